// Package retry runs an operation a bounded number of times with a fixed delay.
package retry

import (
	"context"
	"time"

	"github.com/jo-hoe/socialpost/internal/common"
)

// Policy is a fixed-count, fixed-delay retry policy. No exponential backoff
// and no jitter: the job's own schedule is the outer retry loop.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy is 3 attempts, 5 seconds apart.
func DefaultPolicy() Policy {
	return Policy{Attempts: common.DefaultRetryAttempts, Delay: 5 * time.Second}
}

// Result reports how many attempts were made and the last error, nil on success.
type Result struct {
	Attempts int
	Err      error
}

// OK reports whether the operation eventually succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do calls fn until it succeeds or the policy is exhausted. onFailure, if
// non-nil, is called after every failed attempt. There is no delay after the
// last attempt. A cancelled context stops further attempts.
func Do(ctx context.Context, p Policy, sleep Sleeper, fn func(ctx context.Context) error, onFailure func(attempt int, err error)) Result {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = Sleep
	}
	var res Result
	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt
		err := fn(ctx)
		if err == nil {
			res.Err = nil
			return res
		}
		res.Err = err
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		if attempt < attempts {
			if serr := sleep(ctx, p.Delay); serr != nil {
				res.Err = serr
				return res
			}
		}
	}
	return res
}
