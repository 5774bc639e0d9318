package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/pairgate"
	"github.com/aretw0/pairgate/internal/logging"
	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionsURI lists the sessions currently held by pairing runs.
const SessionsURI = "pairgate://sessions"

// Pairer is the pairing service as seen by MCP tools.
type Pairer interface {
	Pair(ctx context.Context, number string) (domain.Outcome, error)
	Active() []string
}

// Server exposes the pairing service as an MCP server.
type Server struct {
	pairer    Pairer
	timeout   time.Duration
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithResponseTimeout bounds how long a tool call waits for an outcome.
func WithResponseTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(pairer Pairer, opts ...Option) *Server {
	s := &Server{
		pairer:    pairer,
		timeout:   2 * time.Minute,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("pairgate-mcp", strings.TrimSpace(pairgate.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: request_pairing_code
	pairTool := mcp.NewTool("request_pairing_code",
		mcp.WithDescription("Start pairing a phone number and return the code to type on the phone. "+
			"Once linked, the session credentials are sent to that number."),
		mcp.WithString("number", mcp.Required(), mcp.Description("Phone number in international format")),
	)
	s.mcpServer.AddTool(pairTool, s.handleRequestPairingCode)

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the sessions currently held by pairing runs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.active())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleRequestPairingCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number := request.GetString("number", "")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome, err := s.pairer.Pair(ctx, number)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error()), nil
	case errors.Is(err, domain.ErrSessionBusy):
		return mcp.NewToolResultError("a pairing request for this number is already in progress"), nil
	case errors.Is(err, context.DeadlineExceeded):
		return mcp.NewToolResultError("timed out waiting for a pairing code"), nil
	case err != nil:
		s.logger.Error("MCP pairing request failed", "err", err)
		return mcp.NewToolResultError(domain.UnavailableCode), nil
	}

	switch outcome.Kind {
	case domain.OutcomeCode:
		return mcp.NewToolResultText(outcome.Code), nil
	case domain.OutcomeExhausted:
		return mcp.NewToolResultError(domain.ExhaustedMessage), nil
	default:
		msg := domain.UnavailableCode
		if outcome.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, outcome.Err)
		}
		return mcp.NewToolResultError(msg), nil
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Active pairing sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.active())
		if err != nil {
			return nil, fmt.Errorf("failed to encode sessions: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SessionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) active() []string {
	active := s.pairer.Active()
	if active == nil {
		return []string{}
	}
	return active
}
