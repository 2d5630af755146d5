package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/buzzexport/models"
)

// State is the terminal (or current) state of a poll sequence.
type State int

const (
	StatePolling State = iota
	StateSucceeded
	StateExhausted
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Default budget: 60 attempts one second apart, about a minute.
const (
	DefaultMaxAttempts = 60
	DefaultInterval    = time.Second
)

// Policy is the fixed-interval retry budget.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPolicy returns the one-minute budget.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Interval: DefaultInterval}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Interval < 0 {
		p.Interval = 0
	}
	return p
}

// ExtractFunc performs one extraction attempt. It must not block for long;
// waiting between attempts is the poller's job.
type ExtractFunc func(ctx context.Context) models.Outcome

// Tick reports one NotReady attempt. Attempt is 1-based.
type Tick struct {
	Attempt     int
	MaxAttempts int
	Outcome     models.Outcome
}

// ProgressFunc receives every NotReady tick, including the last one.
type ProgressFunc func(Tick)

// Result is the terminal state of a poll sequence. Outcome is the Ready
// outcome on success, otherwise the last NotReady outcome seen.
type Result struct {
	State       State
	Outcome     models.Outcome
	Attempts    int
	MaxAttempts int
}

// WaitUntilReady calls extract until it reports Ready or the budget runs
// out. Exhaustion is reported through Result, never as an error. The wait
// between attempts honours ctx; cancellation ends the sequence with
// StateCanceled.
func WaitUntilReady(ctx context.Context, extract ExtractFunc, policy Policy, progress ProgressFunc) Result {
	policy = policy.normalized()

	var last models.Outcome
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{State: StateCanceled, Outcome: last, Attempts: attempt, MaxAttempts: policy.MaxAttempts}
		}

		last = extract(ctx)
		if last.IsReady() {
			slog.Debug("poll succeeded", "attempt", attempt+1, "courses", last.CourseCount())
			return Result{State: StateSucceeded, Outcome: last, Attempts: attempt + 1, MaxAttempts: policy.MaxAttempts}
		}

		slog.Debug("poll not ready",
			"attempt", attempt+1,
			"maxAttempts", policy.MaxAttempts,
			"reason", last.Reason(),
		)
		if progress != nil {
			progress(Tick{Attempt: attempt + 1, MaxAttempts: policy.MaxAttempts, Outcome: last})
		}

		if attempt+1 == policy.MaxAttempts {
			break
		}
		if !sleep(ctx, policy.Interval) {
			return Result{State: StateCanceled, Outcome: last, Attempts: attempt + 1, MaxAttempts: policy.MaxAttempts}
		}
	}

	return Result{State: StateExhausted, Outcome: last, Attempts: policy.MaxAttempts, MaxAttempts: policy.MaxAttempts}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
