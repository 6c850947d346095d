package booking

import (
    "context"
    "math/rand/v2"
    "time"
)

// RetryPolicy bounds how often a unit of work is re-run after a transient
// failure.  Each attempt gets its own AttemptTimeout; an attempt aborted by
// it is rolled back and counted as transient.  A booking decision reached
// after the deadline keeps its own kind.
type RetryPolicy struct {
    MaxAttempts    int
    BaseDelay      time.Duration
    MaxDelay       time.Duration
    AttemptTimeout time.Duration
}

// DefaultRetryPolicy allows three attempts with a short jittered pause.
func DefaultRetryPolicy() RetryPolicy {
    return RetryPolicy{
        MaxAttempts:    3,
        BaseDelay:      20 * time.Millisecond,
        MaxDelay:       250 * time.Millisecond,
        AttemptTimeout: 5 * time.Second,
    }
}

func (p RetryPolicy) normalized() RetryPolicy {
    if p.MaxAttempts < 1 {
        p.MaxAttempts = 1
    }
    if p.MaxDelay < p.BaseDelay {
        p.MaxDelay = p.BaseDelay
    }
    return p
}

// Backoff returns the pause after the given failed attempt (1-based):
// a uniform random duration in [0, min(MaxDelay, BaseDelay*2^(attempt-1))].
func (p RetryPolicy) Backoff(attempt int) time.Duration {
    ceiling := p.BaseDelay
    for i := 1; i < attempt && ceiling < p.MaxDelay; i++ {
        ceiling *= 2
    }
    if ceiling > p.MaxDelay {
        ceiling = p.MaxDelay
    }
    if ceiling <= 0 {
        return 0
    }
    return rand.N(ceiling + 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
    if d <= 0 {
        return ctx.Err()
    }
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
