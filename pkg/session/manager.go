package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/pairgate/internal/logging"
	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can keep a number locked.
const DefaultLockTTL = 10 * time.Minute

// Lease is the exclusive right to use one session directory for the lifetime
// of a pairing request. Release removes the directory.
type Lease struct {
	name   string
	path   string
	mgr    *Manager
	unlock ports.UnlockFunc // Function to release distributed lock (if any)
	once   sync.Once
}

// Name returns the session name.
func (l *Lease) Name() string { return l.name }

// Path returns the session directory.
func (l *Lease) Path() string { return l.path }

// WriteCredentials stores creds.json in the leased directory.
func (l *Lease) WriteCredentials(creds domain.Credentials) error {
	return l.mgr.store.WriteCredentials(l.path, creds)
}

// ReadCredentials returns the raw creds.json of the leased directory.
func (l *Lease) ReadCredentials() ([]byte, error) {
	return l.mgr.store.ReadCredentials(l.path)
}

// Release deletes the session directory and frees the locks.
// It is idempotent.
func (l *Lease) Release(ctx context.Context) {
	l.once.Do(func() {
		l.mgr.store.Remove(l.path)
		if l.unlock != nil {
			if err := l.unlock(ctx); err != nil {
				l.mgr.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session", l.name,
					"err", err,
				)
			}
		}
		l.mgr.forget(l)
		l.mgr.logger.Debug("Session released", "session", l.name)
	})
}

// Manager hands out leases and tracks the live ones, so that shutdown can
// clean every directory still in use instead of only the latest one.
type Manager struct {
	store *Store

	mu     sync.Mutex        // Global lock for the map
	leases map[string]*Lease // Live leases by session name

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager over the given store.
func NewManager(store *Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		leases:  make(map[string]*Lease),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire reserves the named session and creates a clean directory for it.
// It returns domain.ErrSessionBusy if the session is already leased, here or
// on another replica.
func (m *Manager) Acquire(ctx context.Context, name string) (*Lease, error) {
	lease := &Lease{name: name, mgr: m}

	m.mu.Lock()
	if _, busy := m.leases[name]; busy {
		m.mu.Unlock()
		return nil, domain.ErrSessionBusy
	}
	m.leases[name] = lease
	m.mu.Unlock()

	if m.locker != nil {
		unlock, err := m.locker.TryLock(ctx, name, m.lockTTL)
		if err != nil {
			m.forget(lease)
			if errors.Is(err, domain.ErrLockHeld) {
				return nil, fmt.Errorf("%w (held by another replica)", domain.ErrSessionBusy)
			}
			return nil, fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		lease.unlock = unlock
	}

	path, err := m.store.Create(name)
	if err != nil {
		if lease.unlock != nil {
			_ = lease.unlock(ctx)
		}
		m.forget(lease)
		return nil, err
	}
	m.mu.Lock()
	lease.path = path
	m.mu.Unlock()
	return lease, nil
}

// forget drops the lease from the live set if it is still the registered one.
func (m *Manager) forget(l *Lease) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.leases[l.name] == l {
		delete(m.leases, l.name)
	}
}

// Active lists the names of live sessions.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.leases))
	for name := range m.leases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReleaseAll releases every live lease. It runs on shutdown and after a fatal run.
func (m *Manager) ReleaseAll(ctx context.Context) {
	m.mu.Lock()
	live := make([]*Lease, 0, len(m.leases))
	for _, l := range m.leases {
		// A lease still being created has no path yet; Acquire cleans it up.
		if l.path != "" {
			live = append(live, l)
		}
	}
	m.mu.Unlock()

	for _, l := range live {
		l.Release(ctx)
	}
	if len(live) > 0 {
		m.logger.Info("Session directories removed", "count", len(live))
	}
}
