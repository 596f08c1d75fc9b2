// Package jobs is the boundary to the external post-processing workers.
// The core only publishes "file registered" events; thumbnailing and
// transcription kickoff happen on the consumer side.
package jobs

import (
	"context"

	"github.com/google/uuid"
)

// Queue enqueues post-processing work for a newly registered file.
// Delivery is at-least-once and fully asynchronous: callers treat
// enqueue failures as log-and-continue, never as a reason to roll back
// the file registration.
type Queue interface {
	EnqueuePostProcess(ctx context.Context, fileID uuid.UUID) error
}
