package pairing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/ports"
)

// Orchestrator performs a single pairing attempt. It never retries on its own;
// the controller loop decides whether another attempt runs.
type Orchestrator struct {
	factory ports.ClientFactory
	delay   func(context.Context) error // PairDelay wait
	logger  *slog.Logger
}

// Attempt builds a client bound to the run's session directory, wires its
// handlers into the run's event stream, connects, and requests a pairing code
// if the stored auth state is not registered yet.
//
// On error the client, if any, is already disconnected.
func (o *Orchestrator) Attempt(ctx context.Context, r *run, attempt int) (ports.Client, error) {
	version, err := o.factory.LatestVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch protocol version: %w", err)
	}

	client, err := o.factory.NewClient(ctx, r.lease.Path(), version)
	if err != nil {
		return nil, fmt.Errorf("failed to create protocol client: %w", err)
	}

	client.OnCredentialsUpdate(func(creds domain.Credentials) {
		r.post(ctx, event{attempt: attempt, creds: &creds})
	})
	client.OnConnectionUpdate(func(u domain.ConnectionUpdate) {
		r.post(ctx, event{attempt: attempt, update: &u})
	})

	if err := client.Connect(ctx); err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if client.Registered() {
		o.logger.Debug("Session already registered, skipping pairing code", "session", r.lease.Name())
		return client, nil
	}

	if err := o.delay(ctx); err != nil {
		client.Disconnect()
		return nil, err
	}

	phone := domain.Digits(r.number)
	if phone == "" {
		client.Disconnect()
		return nil, domain.ErrMissingNumber
	}

	code, err := client.RequestPairingCode(ctx, phone)
	if err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("failed to request pairing code: %w", err)
	}

	if r.respond(ctx, domain.CodeIssued(code)) {
		o.logger.Info("Pairing code issued", "session", r.lease.Name(), "number", phone, "attempt", attempt)
	} else {
		o.logger.Debug("Pairing code discarded, request already answered", "session", r.lease.Name(), "attempt", attempt)
	}
	return client, nil
}
