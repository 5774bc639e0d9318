/*
Package pairgate links a messaging account to a new companion device by
phone-number pairing code, and hands the resulting session credentials back to
the account owner.

# Concept

A caller asks for a code with GET /?number=<digits>. pairgate opens a fresh
protocol connection in a per-number session directory, requests a pairing code
and answers the HTTP request with it. The connection keeps running in the
background: once the owner types the code on their phone and the link opens,
pairgate sends three messages to the owner's own chat (a notice, the raw
credentials document and a confirmation), then removes the session directory.

Unexpected disconnects are retried a bounded number of times. A logout (401)
is never retried.

# Layout

  - pkg/domain: connection updates, credentials, outcomes and lifecycle hooks.
  - pkg/ports: the protocol client and distributed locker interfaces.
  - pkg/session: per-number session directories and exclusive leases.
  - pkg/pairing: the pairing service, orchestrator and retry controller.
  - pkg/adapters: whatsmeow (protocol), http (chi endpoint), mcp (agent tool)
    and redis (cross-replica lock).
  - pkg/observability: Prometheus metrics fed by lifecycle hooks.

# Usage

	pairgate serve --addr :8000 --sessions-dir ./sessions

Embedding the service directly:

	factory := whatsmeow.NewFactory()
	sessions := session.NewManager(session.NewStore("sessions", logger))
	svc := pairing.NewService(factory, sessions, pairing.WithLogger(logger))
	defer svc.Close(context.Background())

	outcome, err := svc.Pair(ctx, "+1 555 123 4567")
*/
package pairgate
