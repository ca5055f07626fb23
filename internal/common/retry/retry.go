// Package retry re-runs idempotent reads and upserts that failed on a transient dependency error.
package retry

import (
	"context"
	"time"

	apperrors "investor-matching/internal/common/errors"

	"github.com/cenkalti/backoff/v5"
)

type Policy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy matches the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{MaxTries: 3, InitialInterval: 100 * time.Millisecond, MaxInterval: 2 * time.Second}
}

type singleAttemptKey struct{}

// SingleAttempt marks ctx so Do and Run make one attempt regardless of policy. Transactors set it:
// a failed statement aborts the surrounding transaction, so retrying inside it cannot succeed.
func SingleAttempt(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleAttemptKey{}, true)
}

func isSingleAttempt(ctx context.Context) bool {
	v, _ := ctx.Value(singleAttemptKey{}).(bool)
	return v
}

// Do runs op until it succeeds, returns a non-dependency error, or the policy gives up. Only
// DependencyErrors are retried; everything else is returned on the first attempt.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxTries <= 1 || isSingleAttempt(ctx) {
		return op(ctx)
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err != nil && !apperrors.IsDependency(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxTries))
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
