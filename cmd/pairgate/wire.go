package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/pairgate/internal/config"
	"github.com/aretw0/pairgate/internal/logging"
	redisAdapter "github.com/aretw0/pairgate/pkg/adapters/redis"
	"github.com/aretw0/pairgate/pkg/adapters/whatsmeow"
	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/observability"
	"github.com/aretw0/pairgate/pkg/pairing"
	"github.com/aretw0/pairgate/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// app is the wired pairing service and the resources it owns.
type app struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	service *pairing.Service
	redis   *backend.Client
}

func newApp(ctx context.Context, cfg config.Config, hooks domain.LifecycleHooks) (*app, error) {
	var logOpts []logging.Option
	if !cfg.LogMaskNumbers {
		logOpts = append(logOpts, logging.WithPIIPatterns())
	}
	logger := logging.NewWithFormat(os.Stderr, logging.ParseLevel(cfg.LogLevel), logging.Format(cfg.LogFormat), logOpts...)
	a := &app{
		logger:  logger,
		metrics: observability.NewMetrics(),
	}

	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.Redis.LockTTL),
	}
	if cfg.Redis.Enabled() {
		a.redis = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker := redisAdapter.NewLocker(a.redis, cfg.Redis.Prefix)
		if err := locker.Ping(ctx); err != nil {
			_ = a.redis.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		managerOpts = append(managerOpts, session.WithLocker(locker))
		logger.Info("Distributed session lock enabled", "redis", cfg.Redis.Addr)
	}
	sessions := session.NewManager(session.NewStore(cfg.SessionsDir, logger), managerOpts...)

	factory := whatsmeow.NewFactory(
		whatsmeow.WithBrowser(whatsmeow.Browser{OS: cfg.Browser.OS, DisplayName: cfg.Browser.Name}),
		whatsmeow.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		whatsmeow.WithLogger(logger),
		whatsmeow.WithProtocolLogLevel(cfg.ProtocolLogLevel),
	)

	a.service = pairing.NewService(factory, sessions,
		pairing.WithLogger(logger),
		pairing.WithLifecycleHooks(a.metrics.Hooks()),
		pairing.WithLifecycleHooks(hooks),
		pairing.WithTimings(pairing.Timings{
			PairDelay:    cfg.Timings.PairDelay,
			RetryDelay:   cfg.Timings.RetryDelay,
			SettleDelay:  cfg.Timings.SettleDelay,
			CleanupDelay: cfg.Timings.CleanupDelay,
		}),
		pairing.WithMessages(pairing.Messages{
			Notice:       cfg.Messages.Notice,
			Confirmation: cfg.Messages.Confirmation,
		}),
		pairing.WithMaxRetries(cfg.MaxRetries),
		pairing.WithDefaultSession(cfg.DefaultSession),
	)
	return a, nil
}

// Close stops all runs, removes their sessions and drops the Redis connection.
func (a *app) Close(ctx context.Context) error {
	err := a.service.Close(ctx)
	if a.redis != nil {
		err = errors.Join(err, a.redis.Close())
	}
	return err
}
