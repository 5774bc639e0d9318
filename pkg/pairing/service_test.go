package pairing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/aretw0/pairgate/pkg/pairing"
	"github.com/aretw0/pairgate/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastTimings = pairing.Timings{
	PairDelay:    time.Millisecond,
	RetryDelay:   time.Millisecond,
	SettleDelay:  5 * time.Millisecond,
	CleanupDelay: time.Millisecond,
}

type harness struct {
	svc      *pairing.Service
	factory  *FakeFactory
	root     string
	finished chan *domain.FinishEvent

	mu       sync.Mutex
	outcomes []domain.Outcome
	attempts []int
}

func newHarness(t *testing.T, scripts ...script) *harness {
	t.Helper()
	h := &harness{
		factory:  &FakeFactory{scripts: scripts},
		root:     t.TempDir(),
		finished: make(chan *domain.FinishEvent, 8),
	}
	hooks := domain.LifecycleHooks{
		OnAttempt: func(ctx context.Context, e *domain.AttemptEvent) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.attempts = append(h.attempts, e.Attempt)
		},
		OnOutcome: func(ctx context.Context, e *domain.OutcomeEvent) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.outcomes = append(h.outcomes, e.Outcome)
		},
		OnFinish: func(ctx context.Context, e *domain.FinishEvent) {
			h.finished <- e
		},
	}
	mgr := session.NewManager(session.NewStore(h.root, nil))
	h.svc = pairing.NewService(h.factory, mgr,
		pairing.WithTimings(fastTimings),
		pairing.WithLifecycleHooks(hooks),
		pairing.WithMessages(pairing.Messages{Confirmation: "connected"}),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.svc.Close(ctx)
	})
	return h
}

func (h *harness) waitFinish(t *testing.T) *domain.FinishEvent {
	t.Helper()
	select {
	case e := <-h.finished:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
		return nil
	}
}

func (h *harness) Outcomes() []domain.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Outcome(nil), h.outcomes...)
}

func (h *harness) Attempts() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.attempts...)
}

func TestPair_IssuesCodeWithDigitsOnly(t *testing.T) {
	h := newHarness(t, script{code: "ABC-1234"})

	out, err := h.svc.Pair(context.Background(), "+1 (555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCode, out.Kind)
	assert.Equal(t, "ABC-1234", out.Code)

	clients := h.factory.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, "15551234567", clients[0].PairedPhone())
	assert.Equal(t, filepath.Join(h.root, "15551234567"), h.factory.dirs[0])
	assert.Equal(t, []string{"15551234567"}, h.svc.Active(), "run keeps its session after answering")
}

func TestPair_ConstructionFailureIsUnavailable(t *testing.T) {
	h := newHarness(t, script{newErr: errors.New("store locked")})

	out, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnavailable, out.Kind)
	assert.ErrorContains(t, out.Err, "store locked")

	fin := h.waitFinish(t)
	assert.Equal(t, domain.ResultInitFailed, fin.Result)
	assert.NoDirExists(t, filepath.Join(h.root, "15551234567"))
	assert.Equal(t, 1, h.factory.Attempts(), "the orchestrator itself never retries")
}

func TestPair_VersionFailureIsUnavailable(t *testing.T) {
	h := newHarness(t, script{versionErr: errors.New("dial tcp: timeout")})

	out, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnavailable, out.Kind)
	assert.Equal(t, domain.ResultInitFailed, h.waitFinish(t).Result)
}

func TestPair_MissingNumberIsUnavailable(t *testing.T) {
	h := newHarness(t, script{code: "NEVER"})

	out, err := h.svc.Pair(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnavailable, out.Kind)
	assert.ErrorIs(t, out.Err, domain.ErrMissingNumber)
	assert.Equal(t, filepath.Join(h.root, domain.DefaultSessionName), h.factory.dirs[0])

	clients := h.factory.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, 1, clients[0].Disconnects())
}

func TestPair_PairingCodeFailureIsUnavailable(t *testing.T) {
	h := newHarness(t, script{pairErr: errors.New("rate-overlimit")})

	out, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnavailable, out.Kind)
	assert.Equal(t, domain.ResultInitFailed, h.waitFinish(t).Result)
}

func TestPair_OpenRelaysThreeMessagesInOrder(t *testing.T) {
	creds := domain.Credentials{RegistrationID: 99, Registered: true, Me: &domain.Me{ID: "15551234567:4@s.whatsapp.net"}}
	h := newHarness(t, script{
		code:    "ABC-1234",
		creds:   []domain.Credentials{{RegistrationID: 1}, creds},
		updates: []domain.ConnectionUpdate{{Status: domain.StatusConnecting}, domain.Open()},
	})

	out, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)
	require.Equal(t, "ABC-1234", out.Code)

	fin := h.waitFinish(t)
	require.Equal(t, domain.ResultPaired, fin.Result, "err: %v", fin.Err)

	msgs := h.factory.Clients()[0].Messages()
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, "15551234567@s.whatsapp.net", m.to)
	}
	assert.Equal(t, pairing.DefaultMessages().Notice, msgs[0].text)
	assert.JSONEq(t, `{
		"noiseKey": {"public": null, "private": null},
		"signedIdentityKey": {"public": null, "private": null},
		"signedPreKey": {"keyPair": {"public": null, "private": null}, "keyId": 0, "signature": null},
		"registrationId": 99,
		"advSecretKey": null,
		"me": {"id": "15551234567:4@s.whatsapp.net"},
		"registered": true
	}`, msgs[1].text, "the latest credentials are relayed verbatim")
	assert.Equal(t, "connected", msgs[2].text)

	assert.NoDirExists(t, filepath.Join(h.root, "15551234567"))
	assert.Empty(t, h.svc.Active())
	assert.Len(t, h.Outcomes(), 1)
}

func TestPair_RetriesThenPairs(t *testing.T) {
	h := newHarness(t,
		script{
			code: "ABC-1234",
			// A stale open from the discarded client must not trigger a relay.
			updates: []domain.ConnectionUpdate{domain.Closed(domain.CodeRestartRequired, errors.New("restart required")), domain.Open()},
		},
		script{
			code:    "XYZ-9999",
			creds:   []domain.Credentials{{Registered: true}},
			updates: []domain.ConnectionUpdate{domain.Open()},
		},
	)

	out, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)
	assert.Equal(t, "ABC-1234", out.Code)

	fin := h.waitFinish(t)
	require.Equal(t, domain.ResultPaired, fin.Result)

	clients := h.factory.Clients()
	require.Len(t, clients, 2)
	assert.Empty(t, clients[0].Messages())
	assert.Len(t, clients[1].Messages(), 3)
	assert.Equal(t, h.factory.dirs[0], h.factory.dirs[1], "retries reuse the same session directory")
	assert.Equal(t, []int{0, 1}, h.Attempts())

	// The second pairing code never reaches the caller.
	outcomes := h.Outcomes()
	require.Len(t, outcomes, 1)
	assert.Equal(t, "ABC-1234", outcomes[0].Code)
}

func TestPair_RetriesExhausted(t *testing.T) {
	h := newHarness(t, script{
		registered: true, // no pairing code, so the failure is the first answer
		updates:    []domain.ConnectionUpdate{domain.Closed(domain.CodeConnectionClosed, errors.New("eof"))},
	})

	out, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExhausted, out.Kind)

	fin := h.waitFinish(t)
	assert.Equal(t, domain.ResultExhausted, fin.Result)
	assert.ErrorIs(t, fin.Err, domain.ErrRetriesExhausted)
	assert.Equal(t, domain.MaxRetries, h.factory.Attempts(), "five closes, five attempts, no sixth")
	for _, c := range h.factory.Clients() {
		assert.GreaterOrEqual(t, c.Disconnects(), 1)
	}
	assert.NoDirExists(t, filepath.Join(h.root, "15551234567"))
}

func TestPair_ExhaustedAfterCodeKeepsFirstAnswer(t *testing.T) {
	h := newHarness(t, script{
		code:    "ABC-1234",
		updates: []domain.ConnectionUpdate{domain.Closed(domain.CodeConnectionClosed, nil)},
	})

	out, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)
	assert.Equal(t, "ABC-1234", out.Code)

	assert.Equal(t, domain.ResultExhausted, h.waitFinish(t).Result)
	outcomes := h.Outcomes()
	require.Len(t, outcomes, 1, "a late failure is logged, not answered")
	assert.Equal(t, domain.OutcomeCode, outcomes[0].Kind)
}

func TestPair_LoggedOutIsNotRetried(t *testing.T) {
	h := newHarness(t, script{
		code:    "ABC-1234",
		updates: []domain.ConnectionUpdate{domain.Closed(domain.CodeLoggedOut, errors.New("logged out"))},
	})

	_, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)

	fin := h.waitFinish(t)
	assert.Equal(t, domain.ResultAuthRejected, fin.Result)
	assert.ErrorIs(t, fin.Err, domain.ErrAuthRejected)
	assert.Equal(t, 1, h.factory.Attempts())
	assert.Equal(t, []int{0}, h.Attempts())
	assert.NoDirExists(t, filepath.Join(h.root, "15551234567"))
}

func TestPair_RejectsDuplicateInFlight(t *testing.T) {
	h := newHarness(t, script{code: "ABC-1234"})

	_, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)

	_, err = h.svc.Pair(context.Background(), "+1 555 123 4567")
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
	assert.Equal(t, 1, h.factory.Attempts())
}

func TestPair_RequestContextEndsFirst(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, script{code: "ABC-1234", blockPair: release})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.svc.Pair(ctx, "15551234567")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The run is still alive and answers into the void once unblocked.
	assert.Equal(t, []string{"15551234567"}, h.svc.Active())
	close(release)
	require.Eventually(t, func() bool { return len(h.Outcomes()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestPair_PanicCleansUp(t *testing.T) {
	h := newHarness(t, script{
		code:      "ABC-1234",
		updates:   []domain.ConnectionUpdate{domain.Open()},
		sendPanic: true,
	})

	_, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)

	fin := h.waitFinish(t)
	assert.Equal(t, domain.ResultPanic, fin.Result)
	assert.ErrorContains(t, fin.Err, "send exploded")
	_, statErr := os.Stat(filepath.Join(h.root, "15551234567"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_CloseStopsRuns(t *testing.T) {
	h := newHarness(t, script{code: "ABC-1234"})

	_, err := h.svc.Pair(context.Background(), "15551234567")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.svc.Close(ctx))

	assert.Equal(t, domain.ResultCanceled, h.waitFinish(t).Result)
	assert.NoDirExists(t, filepath.Join(h.root, "15551234567"))
	assert.Empty(t, h.svc.Active())
}

func TestPair_InvalidNumberTouchesNoSession(t *testing.T) {
	h := newHarness(t, script{code: "ABC-1234"})

	_, err := h.svc.Pair(context.Background(), "1555\xff")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, h.svc.Active())
	assert.Zero(t, h.factory.Attempts())
}
