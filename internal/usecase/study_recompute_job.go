package usecase

import (
	"context"
	"fmt"
	"time"

	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/queue"
)

// RecomputePayload describes a queued study recompute request.
type RecomputePayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// StudyRecomputeJob refreshes the study snapshot when a recompute
// message arrives. Registered on the Redis queue so API refreshes and
// the periodic ticker share one worker instead of racing the pipeline.
type StudyRecomputeJob struct {
	runner *StudyRunner
	log    *applogger.Logger
}

func NewStudyRecomputeJob(runner *StudyRunner, log *applogger.Logger) *StudyRecomputeJob {
	return &StudyRecomputeJob{runner: runner, log: log}
}

func (j *StudyRecomputeJob) Name() string { return "study_recompute" }
func (j *StudyRecomputeJob) Type() string { return "study.recompute" }

func (j *StudyRecomputeJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RecomputePayload](payload)
	if err != nil {
		return fmt.Errorf("recompute payload: %w", err)
	}

	started := time.Now()
	if _, err := j.runner.Refresh(ctx); err != nil {
		return fmt.Errorf("study refresh: %w", err)
	}

	if j.log != nil {
		j.log.Info("study recomputed",
			applogger.String("reason", p.Reason),
			applogger.Duration("took", time.Since(started)),
		)
	}
	return nil
}
