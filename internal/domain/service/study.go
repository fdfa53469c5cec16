package service

import (
	"context"

	"MacroPull/internal/domain/models"
)

// SnapshotProvider serves the latest study snapshot and triggers refreshes.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*models.StudySnapshot, error)
	Refresh(ctx context.Context) (*models.StudySnapshot, error)
}
