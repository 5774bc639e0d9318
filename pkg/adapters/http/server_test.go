package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockPairer returns a canned outcome.
type MockPairer struct {
	PairFunc func(ctx context.Context, number string) (domain.Outcome, error)
	Sessions []string

	mu      sync.Mutex
	numbers []string
}

func (m *MockPairer) Pair(ctx context.Context, number string) (domain.Outcome, error) {
	m.mu.Lock()
	m.numbers = append(m.numbers, number)
	m.mu.Unlock()
	return m.PairFunc(ctx, number)
}

func (m *MockPairer) Active() []string { return m.Sessions }

func (m *MockPairer) Numbers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.numbers...)
}

func outcome(o domain.Outcome, err error) func(context.Context, string) (domain.Outcome, error) {
	return func(context.Context, string) (domain.Outcome, error) { return o, err }
}

func newTestHandler(t *testing.T, p Pairer, opts ...Option) http.Handler {
	t.Helper()
	h, err := NewHandler(p, opts...)
	require.NoError(t, err)
	return h
}

func do(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestRequestPairingCode_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		outcome  domain.Outcome
		err      error
		wantCode int
		wantBody string
	}{
		{"Code", domain.CodeIssued("ABC-1234"), nil, http.StatusOK, `{"code":"ABC-1234"}`},
		{"Unavailable", domain.Unavailable(fmt.Errorf("boom")), nil, http.StatusServiceUnavailable, `{"code":"Service Unavailable"}`},
		{"Exhausted", domain.Exhausted(), nil, http.StatusInternalServerError, `{"message":"Unable to reconnect after multiple attempts."}`},
		{"Busy", domain.Outcome{}, fmt.Errorf("%w (held by another replica)", domain.ErrSessionBusy), http.StatusConflict, `{"message":"A pairing request for this number is already in progress."}`},
		{"InvalidInput", domain.Outcome{}, fmt.Errorf("%w: bad utf-8", domain.ErrInvalidInput), http.StatusBadRequest, `{"message":"invalid input: bad utf-8"}`},
		{"SessionError", domain.Outcome{}, fmt.Errorf("disk full"), http.StatusServiceUnavailable, `{"code":"Service Unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &MockPairer{PairFunc: outcome(tt.outcome, tt.err)})

			w := do(h, "/?number=15551234567")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestRequestPairingCode_PassesNumberThrough(t *testing.T) {
	p := &MockPairer{PairFunc: outcome(domain.CodeIssued("X"), nil)}
	h := newTestHandler(t, p)

	do(h, "/?number=%2B1+555+123-4567")
	do(h, "/")

	assert.Equal(t, []string{"+1 555 123-4567", ""}, p.Numbers())
}

func TestRequestPairingCode_Timeout(t *testing.T) {
	p := &MockPairer{PairFunc: func(ctx context.Context, _ string) (domain.Outcome, error) {
		<-ctx.Done()
		return domain.Outcome{}, ctx.Err()
	}}
	h := newTestHandler(t, p, WithResponseTimeout(10*time.Millisecond))

	w := do(h, "/?number=15551234567")

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "Timed out")
}

func TestRequestPairingCode_ClientGone(t *testing.T) {
	p := &MockPairer{PairFunc: func(ctx context.Context, _ string) (domain.Outcome, error) {
		<-ctx.Done()
		return domain.Outcome{}, ctx.Err()
	}}
	h := newTestHandler(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/?number=1", nil).WithContext(ctx))

	assert.Empty(t, w.Body.String(), "nothing is written for a departed client")
}

func TestRequestPairingCode_ValidationFailure(t *testing.T) {
	p := &MockPairer{PairFunc: outcome(domain.CodeIssued("X"), nil)}
	h := newTestHandler(t, p)

	w := do(h, "/?number="+strings.Repeat("1", 65))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, p.Numbers(), "invalid requests never reach the service")
}

func TestGetInfo(t *testing.T) {
	h := newTestHandler(t, &MockPairer{Sessions: []string{"15551234567"}})

	w := do(h, "/info")
	require.Equal(t, http.StatusOK, w.Code)

	var info InfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "pairgate-http", info.App)
	assert.Equal(t, "1.0.0", info.APIVersion)
	assert.Equal(t, []string{"15551234567"}, info.ActiveSessions)
}

func TestAuxiliaryRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pairgate_attempts_total 0\n"))
	})
	h := newTestHandler(t, &MockPairer{}, WithMetricsHandler(metrics))

	w := do(h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, "/openapi.yaml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "operationId: requestPairingCode")

	w = do(h, "/metrics")
	assert.Contains(t, w.Body.String(), "pairgate_attempts_total")
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t, &MockPairer{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverer(t *testing.T) {
	p := &MockPairer{PairFunc: func(context.Context, string) (domain.Outcome, error) {
		panic("handler exploded")
	}}
	h := newTestHandler(t, p)

	w := do(h, "/?number=1")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetSwagger(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/"))
}
