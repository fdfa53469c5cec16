package queue

import "context"

// Job is a registered consumer of one message type. The recompute job
// is the canonical implementation.
type Job interface {
	// Name returns the unique identifier of the job.
	Name() string

	// Type returns the message type the job consumes.
	Type() string

	// Handle processes one dequeued payload.
	Handle(ctx context.Context, payload interface{}) error
}
