package domain

import (
	"context"
	"time"
)

// RunResult is how a pairing run ended.
type RunResult string

const (
	ResultPaired       RunResult = "paired"
	ResultRelayFailed  RunResult = "relay_failed"
	ResultAuthRejected RunResult = "auth_rejected"
	ResultExhausted    RunResult = "exhausted"
	ResultInitFailed   RunResult = "init_failed"
	ResultCanceled     RunResult = "canceled"
	ResultPanic        RunResult = "panic"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Session   string    `json:"session"`
}

// AttemptEvent is fired when a new pairing attempt starts.
type AttemptEvent struct {
	EventBase
	Attempt int `json:"attempt"` // 0 for the first attempt
}

// ConnectionEvent wraps a connection update observed during a run.
type ConnectionEvent struct {
	EventBase
	Update ConnectionUpdate `json:"-"`
}

// OutcomeEvent is fired once, when the request receives its answer.
type OutcomeEvent struct {
	EventBase
	Outcome Outcome `json:"-"`
}

// RelayEvent is fired after the credentials relay finished or failed.
type RelayEvent struct {
	EventBase
	Err error `json:"-"`
}

// FinishEvent is fired when a run is over and its session released.
type FinishEvent struct {
	EventBase
	Result RunResult `json:"result"`
	Err    error     `json:"-"`
}

// LifecycleHooks defines callbacks for pairing observability.
// Every field is optional.
type LifecycleHooks struct {
	OnAttempt          func(context.Context, *AttemptEvent)
	OnConnectionUpdate func(context.Context, *ConnectionEvent)
	OnOutcome          func(context.Context, *OutcomeEvent)
	OnRelay            func(context.Context, *RelayEvent)
	OnFinish           func(context.Context, *FinishEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnAttempt:          chain(h.OnAttempt, other.OnAttempt),
		OnConnectionUpdate: chain(h.OnConnectionUpdate, other.OnConnectionUpdate),
		OnOutcome:          chain(h.OnOutcome, other.OnOutcome),
		OnRelay:            chain(h.OnRelay, other.OnRelay),
		OnFinish:           chain(h.OnFinish, other.OnFinish),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
