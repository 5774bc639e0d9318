package pairing

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/pairgate/internal/logging"
	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/ports"
	"github.com/aretw0/pairgate/pkg/session"
)

// Service pairs phone numbers on request. Runs outlive the request that
// started them and are bound to the Service lifetime instead.
type Service struct {
	sessions     *session.Manager
	orchestrator *Orchestrator

	timings        Timings
	messages       Messages
	maxRetries     int
	defaultSession string
	hooks          domain.LifecycleHooks
	logger         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a pairing Service.
func NewService(factory ports.ClientFactory, sessions *session.Manager, opts ...Option) *Service {
	s := &Service{
		sessions:       sessions,
		timings:        DefaultTimings(),
		messages:       DefaultMessages(),
		maxRetries:     domain.MaxRetries,
		defaultSession: domain.DefaultSessionName,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.orchestrator = &Orchestrator{
		factory: factory,
		delay:   func(ctx context.Context) error { return sleep(ctx, s.timings.PairDelay) },
		logger:  s.logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Pair starts pairing number and waits for the request's single Outcome.
//
// It returns an error wrapping domain.ErrInvalidInput for malformed numbers,
// domain.ErrSessionBusy if the same number is already pairing, and ctx.Err()
// if ctx ends first; the background run goes on regardless.
func (s *Service) Pair(ctx context.Context, number string) (domain.Outcome, error) {
	number, err := SanitizeNumber(number)
	if err != nil {
		return domain.Outcome{}, err
	}
	name := domain.SessionName(number, s.defaultSession)

	lease, err := s.sessions.Acquire(ctx, name)
	if err != nil {
		return domain.Outcome{}, err
	}

	r := newRun(lease, number, s.hooks)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(s.ctx, r)
	}()

	select {
	case <-r.responder.Done():
		return r.responder.Outcome(), nil
	case <-ctx.Done():
		s.logger.Warn("Request ended before an outcome was available", "session", name, "err", ctx.Err())
		return domain.Outcome{}, ctx.Err()
	}
}

// Active lists the sessions currently being paired.
func (s *Service) Active() []string {
	return s.sessions.Active()
}

// Close stops every run and removes their session directories. It waits for
// runs to wind down until ctx ends.
func (s *Service) Close(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.sessions.ReleaseAll(context.WithoutCancel(ctx))
	return err
}
