package stage

import (
	"context"

	"microlesson/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Video) error
	Execute(context.Context, *queue.Video) error
	HealthCheck(context.Context) Health
}

// Chain runs several handlers inside one workflow stage window. Prepare and
// Execute run each handler in order and stop at the first error; HealthCheck
// reports the first unready handler.
func Chain(handlers ...Handler) Handler {
	return chain(handlers)
}

type chain []Handler

func (c chain) Prepare(ctx context.Context, video *queue.Video) error {
	for _, h := range c {
		if err := h.Prepare(ctx, video); err != nil {
			return err
		}
	}
	return nil
}

func (c chain) Execute(ctx context.Context, video *queue.Video) error {
	for _, h := range c {
		if err := h.Execute(ctx, video); err != nil {
			return err
		}
	}
	return nil
}

func (c chain) HealthCheck(ctx context.Context) Health {
	for _, h := range c {
		if health := h.HealthCheck(ctx); !health.Ready {
			return health
		}
	}
	return Healthy("chain")
}
