package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/pairgate"
	"github.com/aretw0/pairgate/internal/logging"
	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
)

// DefaultResponseTimeout bounds how long a request waits for its first outcome.
const DefaultResponseTimeout = 2 * time.Minute

// Pairer is the pairing service as seen by the HTTP layer.
type Pairer interface {
	Pair(ctx context.Context, number string) (domain.Outcome, error)
	Active() []string
}

// CodeResponse carries a pairing code or the unavailable marker.
type CodeResponse struct {
	Code string `json:"code"`
}

// MessageResponse carries a human-readable failure.
type MessageResponse struct {
	Message string `json:"message"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	App            string   `json:"app"`
	Version        string   `json:"version"`
	APIVersion     string   `json:"api_version"`
	ActiveSessions []string `json:"active_sessions"`
}

// RequestPairingCodeParams holds the query parameters of GET /.
type RequestPairingCodeParams struct {
	Number *string
}

// Server serves the pairing endpoint.
type Server struct {
	pairer  Pairer
	timeout time.Duration
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithResponseTimeout sets how long GET / waits for an outcome.
func WithResponseTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the pairing service.
func NewHandler(pairer Pairer, opts ...Option) (http.Handler, error) {
	s := &Server{
		pairer:  pairer,
		timeout: DefaultResponseTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validator, err := newRequestValidator(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.With(validator.middleware).Get("/", s.RequestPairingCode)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec())
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestPairingCode handles GET /?number=...
func (s *Server) RequestPairingCode(w http.ResponseWriter, r *http.Request) {
	var params RequestPairingCodeParams
	if err := runtime.BindQueryParameter("form", true, false, "number", r.URL.Query(), &params.Number); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid number parameter: " + err.Error()})
		return
	}
	number := ""
	if params.Number != nil {
		number = *params.Number
	}

	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	outcome, err := s.pairer.Pair(ctx, number)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: err.Error()})
		return
	case errors.Is(err, domain.ErrSessionBusy):
		logger.Warn("Rejected duplicate pairing request", "err", err)
		writeJSON(w, http.StatusConflict, MessageResponse{Message: "A pairing request for this number is already in progress."})
		return
	case r.Context().Err() != nil:
		logger.Debug("Client went away before an outcome was available")
		return
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Timed out waiting for pairing outcome", "timeout", s.timeout)
		writeJSON(w, http.StatusGatewayTimeout, MessageResponse{Message: "Timed out waiting for a pairing code."})
		return
	case err != nil:
		logger.Error("Pairing request failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, CodeResponse{Code: domain.UnavailableCode})
		return
	}

	switch outcome.Kind {
	case domain.OutcomeCode:
		writeJSON(w, http.StatusOK, CodeResponse{Code: outcome.Code})
	case domain.OutcomeExhausted:
		writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: domain.ExhaustedMessage})
	default:
		writeJSON(w, http.StatusServiceUnavailable, CodeResponse{Code: domain.UnavailableCode})
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	active := s.pairer.Active()
	if active == nil {
		active = []string{}
	}
	writeJSON(w, http.StatusOK, InfoResponse{
		App:            "pairgate-http",
		Version:        strings.TrimSpace(pairgate.Version),
		APIVersion:     apiVersion,
		ActiveSessions: active,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
