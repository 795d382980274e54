package stage

import (
	"context"

	"scribe/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	// Prepare performs cheap validation and state setup before Execute.
	// Mutations to the task are persisted by the manager.
	Prepare(context.Context, *queue.Task) error
	// Execute performs the stage's work. On return with nil error the
	// manager advances the task to the stage's done status.
	Execute(context.Context, *queue.Task) error
	// HealthCheck reports whether the stage's dependencies are usable.
	HealthCheck(context.Context) Health
}
