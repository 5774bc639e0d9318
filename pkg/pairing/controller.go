package pairing

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/ports"
	"github.com/aretw0/pairgate/pkg/session"
)

// eventBuffer absorbs bursts of updates while the controller is busy relaying.
const eventBuffer = 64

// event is one message from a client handler to the controller goroutine.
// attempt tags the client that produced it so late events of a discarded
// client are ignored.
type event struct {
	attempt int
	creds   *domain.Credentials
	update  *domain.ConnectionUpdate
}

// run is the state of one pairing request.
type run struct {
	lease     *session.Lease
	number    string
	responder *Responder
	events    chan event
	hooks     domain.LifecycleHooks
	client    ports.Client // Current attempt's client, owned by the controller goroutine
}

func newRun(lease *session.Lease, number string, hooks domain.LifecycleHooks) *run {
	return &run{
		lease:     lease,
		number:    number,
		responder: NewResponder(),
		events:    make(chan event, eventBuffer),
		hooks:     hooks,
	}
}

// post hands an event to the controller. It gives up once the run is over.
func (r *run) post(ctx context.Context, ev event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

// respond answers the request if it was not answered yet.
func (r *run) respond(ctx context.Context, o domain.Outcome) bool {
	if !r.responder.Respond(o) {
		return false
	}
	if r.hooks.OnOutcome != nil {
		r.hooks.OnOutcome(ctx, &domain.OutcomeEvent{EventBase: r.base(), Outcome: o})
	}
	return true
}

func (r *run) base() domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Session: r.lease.Name()}
}

// step is what the controller does after an attempt's connection settles.
type step int

const (
	stepPaired step = iota
	stepRelayFailed
	stepRetry
	stepAuthRejected
	stepCanceled
)

// execute is the retry controller: an explicit bounded loop over attempts.
// It owns the run until the session is released.
func (s *Service) execute(ctx context.Context, r *run) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic in pairing run: %v", p)
			s.logger.Error("Uncaught panic, cleaning up session",
				"session", r.lease.Name(),
				"err", err,
				"stack", string(debug.Stack()),
			)
			r.respond(ctx, domain.Unavailable(err))
			s.finish(ctx, r, domain.ResultPanic, err)
		}
	}()

	retries := 0
	for attempt := 0; ; attempt++ {
		if s.hooks.OnAttempt != nil {
			s.hooks.OnAttempt(ctx, &domain.AttemptEvent{EventBase: r.base(), Attempt: attempt})
		}

		client, err := s.orchestrator.Attempt(ctx, r, attempt)
		if err != nil {
			if ctx.Err() != nil {
				s.finish(ctx, r, domain.ResultCanceled, ctx.Err())
				return
			}
			s.logger.Error("Error initializing session", "session", r.lease.Name(), "attempt", attempt, "err", err)
			r.respond(ctx, domain.Unavailable(err))
			s.finish(ctx, r, domain.ResultInitFailed, err)
			return
		}
		r.client = client

		next, err := s.await(ctx, r, attempt)
		client.Disconnect()
		r.client = nil

		switch next {
		case stepPaired:
			s.finish(ctx, r, domain.ResultPaired, nil)
			return
		case stepRelayFailed:
			s.finish(ctx, r, domain.ResultRelayFailed, err)
			return
		case stepAuthRejected:
			s.logger.Warn("Session logged out, not retrying", "session", r.lease.Name())
			s.finish(ctx, r, domain.ResultAuthRejected, err)
			return
		case stepCanceled:
			s.finish(ctx, r, domain.ResultCanceled, err)
			return
		}

		retries++
		if retries >= s.maxRetries {
			s.logger.Error("Max retries reached, stopping reconnection attempts",
				"session", r.lease.Name(),
				"retries", retries,
			)
			r.respond(ctx, domain.Exhausted())
			s.finish(ctx, r, domain.ResultExhausted, domain.ErrRetriesExhausted)
			return
		}

		s.logger.Info("Retrying connection",
			"session", r.lease.Name(),
			"retry", retries,
			"max_retries", s.maxRetries,
		)
		if err := sleep(ctx, s.timings.RetryDelay); err != nil {
			s.finish(ctx, r, domain.ResultCanceled, err)
			return
		}
	}
}

// await consumes events of the given attempt until its connection opens or closes.
func (s *Service) await(ctx context.Context, r *run, attempt int) (step, error) {
	for {
		select {
		case <-ctx.Done():
			return stepCanceled, ctx.Err()
		case ev := <-r.events:
			if ev.attempt != attempt {
				continue
			}
			if ev.creds != nil {
				s.saveCredentials(r, *ev.creds)
				continue
			}
			u := *ev.update
			if s.hooks.OnConnectionUpdate != nil {
				s.hooks.OnConnectionUpdate(ctx, &domain.ConnectionEvent{EventBase: r.base(), Update: u})
			}

			switch {
			case u.Status == domain.StatusOpen:
				s.logger.Info("Connection opened successfully", "session", r.lease.Name())
				if err := s.relay(ctx, r, attempt); err != nil {
					if ctx.Err() != nil {
						return stepCanceled, err
					}
					s.logger.Error("Failed to relay session", "session", r.lease.Name(), "err", err)
					return stepRelayFailed, err
				}
				return stepPaired, nil
			case u.IsAuthRejection():
				return stepAuthRejected, domain.ErrAuthRejected
			case u.Status == domain.StatusClose:
				s.logger.Warn("Connection closed unexpectedly",
					"session", r.lease.Name(),
					"code", u.StatusCode,
					"err", u.Err,
				)
				return stepRetry, u.Err
			}
		}
	}
}

// relay sends the notice, the raw credentials and the confirmation in order.
func (s *Service) relay(ctx context.Context, r *run, attempt int) (err error) {
	defer func() {
		if s.hooks.OnRelay != nil {
			s.hooks.OnRelay(ctx, &domain.RelayEvent{EventBase: r.base(), Err: err})
		}
	}()

	to := domain.NormalizeIdentity(r.number)

	if err := r.client.SendText(ctx, to, s.messages.Notice); err != nil {
		return fmt.Errorf("failed to send notice: %w", err)
	}

	// Late credential updates keep landing while we wait.
	if err := s.settle(ctx, r, attempt, s.timings.SettleDelay); err != nil {
		return err
	}

	data, err := r.lease.ReadCredentials()
	if err != nil {
		return err
	}
	if err := r.client.SendText(ctx, to, string(data)); err != nil {
		return fmt.Errorf("failed to send credentials: %w", err)
	}

	if err := r.client.SendText(ctx, to, s.messages.Confirmation); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}

	return sleep(ctx, s.timings.CleanupDelay)
}

// settle waits for d while still persisting credential updates of the attempt.
func (s *Service) settle(ctx context.Context, r *run, attempt int, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev := <-r.events:
			if ev.attempt == attempt && ev.creds != nil {
				s.saveCredentials(r, *ev.creds)
			}
		}
	}
}

func (s *Service) saveCredentials(r *run, creds domain.Credentials) {
	if err := r.lease.WriteCredentials(creds); err != nil {
		s.logger.Error("Failed to save credentials", "session", r.lease.Name(), "err", err)
	}
}

// finish releases the session and reports how the run ended.
func (s *Service) finish(ctx context.Context, r *run, result domain.RunResult, err error) {
	if r.client != nil {
		r.client.Disconnect()
		r.client = nil
	}
	r.lease.Release(context.WithoutCancel(ctx))

	level := s.logger.Info
	if result != domain.ResultPaired && !errors.Is(err, context.Canceled) {
		level = s.logger.Warn
	}
	level("Pairing run finished", "session", r.lease.Name(), "result", string(result), "err", err)

	if s.hooks.OnFinish != nil {
		s.hooks.OnFinish(ctx, &domain.FinishEvent{EventBase: r.base(), Result: result, Err: err})
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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
