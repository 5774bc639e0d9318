package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/pairgate"
	"github.com/aretw0/pairgate/internal/presentation/tui"
	httpAdapter "github.com/aretw0/pairgate/pkg/adapters/http"
	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pairing HTTP server",
	Long: `Starts the HTTP endpoint. GET /?number=<digits> answers with a pairing code
and keeps the session alive in the background until the credentials have been
delivered. With exit_on_success the process exits 0 after the first delivery.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if term.IsTerminal(int(os.Stderr.Fd())) {
			tui.PrintBanner(os.Stderr, strings.TrimSpace(pairgate.Version))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		finished := make(chan domain.RunResult, 1)
		hooks := domain.LifecycleHooks{
			OnFinish: func(_ context.Context, e *domain.FinishEvent) {
				if stopsServer(e.Result, cfg.ExitOnSuccess) {
					select {
					case finished <- e.Result:
					default:
					}
				}
			},
		}

		a, err := newApp(ctx, cfg, hooks)
		if err != nil {
			return err
		}

		handler, err := httpAdapter.NewHandler(a.service,
			httpAdapter.WithResponseTimeout(cfg.ResponseTimeout),
			httpAdapter.WithMetricsHandler(a.metrics.Handler()),
			httpAdapter.WithLogger(a.logger),
		)
		if err != nil {
			_ = a.Close(context.Background())
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		var result domain.RunResult
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.logger.Info("Starting pairgate server", "addr", srv.Addr, "sessions_dir", cfg.SessionsDir)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-gctx.Done():
				a.logger.Info("Start shutdown")
			case result = <-finished:
				a.logger.Info("Pairing run ended, shutting down", "result", result)
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				_ = srv.Close()
			}
			return nil
		})
		serveErr := g.Wait()

		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			a.logger.Warn("Pairing runs did not stop cleanly", "err", err)
		}

		if serveErr != nil {
			return serveErr
		}
		if result == domain.ResultPanic {
			return errors.New("a pairing run panicked, exiting")
		}
		a.logger.Info("pairgate server stopped gracefully")
		return nil
	},
}

// stopsServer reports whether a finished run should end the serve command.
func stopsServer(result domain.RunResult, exitOnSuccess bool) bool {
	switch result {
	case domain.ResultPanic:
		return true
	case domain.ResultPaired:
		return exitOnSuccess
	}
	return false
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8000", "Address to listen on")
	serveCmd.Flags().Bool("exit-on-success", true, "Exit after the first successful pairing")
	serveCmd.Flags().Duration("response-timeout", 2*time.Minute, "How long a request waits for a pairing code")
}
