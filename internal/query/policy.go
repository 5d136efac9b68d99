package query

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the staleness table: how long a key class stays fresh.
type Policy struct {
	Default    time.Duration
	StaleTimes map[string]time.Duration
}

func (p Policy) StaleTime(name string) time.Duration {
	if d, ok := p.StaleTimes[name]; ok {
		return d
	}
	return p.Default
}

// RetryPolicy retries errors Retryable accepts, Attempts extra times, waiting
// Backoff between tries. Everything else fails on the first attempt.
type RetryPolicy struct {
	Attempts  uint64
	Backoff   time.Duration
	Retryable func(error) bool
}

func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) (any, error)) (any, error) {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), p.Attempts),
		ctx,
	)

	return backoff.RetryWithData(func() (any, error) {
		v, err := op(ctx)
		if err != nil && (p.Retryable == nil || !p.Retryable(err)) {
			return nil, backoff.Permanent(err)
		}
		return v, err
	}, b)
}
