package warehouse

import (
	"context"
	"fmt"
	"popmetrics/internal/models"

	"golang.org/x/time/rate"
)

// Executor is anything that can run the indicators query.
type Executor interface {
	Run(ctx context.Context, query string) ([]models.RawRow, error)
}

// Throttled limits how often the wrapped executor is called.
type Throttled struct {
	next    Executor
	limiter *rate.Limiter
}

// Throttle wraps next with limiter. Callers block in Run until the limiter
// admits them or ctx ends.
func Throttle(next Executor, limiter *rate.Limiter) *Throttled {
	return &Throttled{next: next, limiter: limiter}
}

func (t *Throttled) Run(ctx context.Context, query string) ([]models.RawRow, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for warehouse slot: %w", err)
	}
	return t.next.Run(ctx, query)
}
