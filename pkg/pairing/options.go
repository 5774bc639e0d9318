package pairing

import (
	"log/slog"
	"time"

	"github.com/aretw0/pairgate/pkg/domain"
)

// Timings groups the fixed waits of a pairing run.
type Timings struct {
	PairDelay    time.Duration // Before requesting a pairing code
	RetryDelay   time.Duration // Before re-attempting after an unexpected close
	SettleDelay  time.Duration // Between the notice and reading creds.json
	CleanupDelay time.Duration // After the last message, before the session is removed
}

// DefaultTimings returns the production waits.
func DefaultTimings() Timings {
	return Timings{
		PairDelay:    2 * time.Second,
		RetryDelay:   10 * time.Second,
		SettleDelay:  10 * time.Second,
		CleanupDelay: 100 * time.Millisecond,
	}
}

// Messages are the texts relayed around the credentials.
type Messages struct {
	Notice       string
	Confirmation string
}

// DefaultMessages returns the stock relay texts.
func DefaultMessages() Messages {
	return Messages{
		Notice: "Generating your session, wait a moment",
		Confirmation: "*Session connected.*\n\n" +
			"The message above is your session ID. Keep it private: " +
			"anyone holding it can use this device.",
	}
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
// Calling it several times merges the hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithTimings overrides the waits of a run.
func WithTimings(t Timings) Option {
	return func(s *Service) {
		s.timings = t
	}
}

// WithMessages overrides the relayed texts. Empty fields keep the defaults.
func WithMessages(m Messages) Option {
	return func(s *Service) {
		if m.Notice != "" {
			s.messages.Notice = m.Notice
		}
		if m.Confirmation != "" {
			s.messages.Confirmation = m.Confirmation
		}
	}
}

// WithMaxRetries sets the attempt budget (default domain.MaxRetries).
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithDefaultSession sets the session name used when a request has no digits.
func WithDefaultSession(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultSession = name
		}
	}
}
