package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/pkg/binding"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/runner"
	"github.com/aretw0/vista/pkg/session"
)

const treeURIPrefix = "vista://sessions/"

// SessionResponse describes a session after a tool call.
type SessionResponse struct {
	ID      string       `json:"id" jsonschema_description:"Session identifier"`
	Phase   domain.Phase `json:"phase" jsonschema_description:"Orchestrator phase: idle, armed or in_flight"`
	Pending int          `json:"pending" jsonschema_description:"Mutations waiting for the capture callback"`
	Request string       `json:"request" jsonschema_description:"Armed or in-flight request as binding payload"`
}

// PassResponse is the result of apply_pass.
type PassResponse struct {
	Report runner.Report `json:"report" jsonschema_description:"Summary of the executed steps"`
	Error  string        `json:"error,omitempty" jsonschema_description:"First failing step, if any"`
}

// TickResponse is the result of tick.
type TickResponse struct {
	Ran         int                      `json:"ran" jsonschema_description:"Callbacks run, or ticks taken when settling"`
	Phase       domain.Phase             `json:"phase"`
	Completions []domain.CompletionEvent `json:"completions,omitempty"`
}

// OpenArgs are the arguments of open_session.
type OpenArgs struct {
	ID string `json:"id,omitempty"`
}

// TransitionArgs are the arguments of set_transition.
type TransitionArgs struct {
	SessionID string  `json:"session_id"`
	Payload   *string `json:"payload,omitempty"`
}

// PassArgs are the arguments of apply_pass.
type PassArgs struct {
	SessionID string `json:"session_id"`
	Steps     string `json:"steps"`
}

// TickArgs are the arguments of tick.
type TickArgs struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count,omitempty"`
	Settle    bool   `json:"settle,omitempty"`
}

// Server exposes a session.Manager as an MCP Server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(mgr *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  mgr,
		mcpServer: server.NewMCPServer("vista-mcp", strings.TrimSpace(vista.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

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

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open a transition session, or return it if it already exists."),
		mcp.WithString("id", mcp.Description("Session ID (optional, generated when omitted)")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleOpen))

	s.mcpServer.AddTool(mcp.NewTool("set_transition",
		mcp.WithDescription("Set the transition request attribute. The payload is a JSON array of {} or {\"id\",\"name\"} entries; omit it to remove the attribute."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("payload", mcp.Description("Attribute payload, e.g. [{\"id\":\"hero\",\"name\":\"hero\"},{}]")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetTransition))

	s.mcpServer.AddTool(mcp.NewTool("apply_pass",
		mcp.WithDescription("Run a render pass script (JSON array of steps) against the session's shadow tree."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("steps", mcp.Required(), mcp.Description("JSON array of steps, e.g. [{\"op\":\"set_attribute\",\"key\":\"class\",\"value\":\"on\"}]")),
		mcp.WithOutputSchema[PassResponse](),
	), mcp.NewStructuredToolHandler(s.handleApplyPass))

	s.mcpServer.AddTool(mcp.NewTool("tick",
		mcp.WithDescription("Advance the session's platform by animation frames."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("count", mcp.Description("Frames to advance (default 1)")),
		mcp.WithBoolean("settle", mcp.Description("Advance until the transition in flight is finished")),
		mcp.WithOutputSchema[TickResponse](),
	), mcp.NewStructuredToolHandler(s.handleTick))

	s.mcpServer.AddTool(mcp.NewTool("snapshot",
		mcp.WithDescription("Serialize the session's real document as HTML."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleSnapshot)
}

func (s *Server) handleOpen(ctx context.Context, _ mcp.CallToolRequest, args OpenArgs) (SessionResponse, error) {
	sess, err := s.sessions.Open(ctx, args.ID)
	if err != nil {
		return SessionResponse{}, err
	}
	return s.describe(ctx, sess.ID)
}

func (s *Server) handleSetTransition(ctx context.Context, _ mcp.CallToolRequest, args TransitionArgs) (SessionResponse, error) {
	if args.Payload != nil {
		if _, err := binding.Decode(args.Payload); err != nil {
			return SessionResponse{}, err
		}
	}
	err := s.sessions.Do(ctx, args.SessionID, func(_ context.Context, sess *session.Session) error {
		return sess.T.SetAttribute(args.Payload)
	})
	if err != nil {
		return SessionResponse{}, err
	}
	return s.describe(ctx, args.SessionID)
}

func (s *Server) handleApplyPass(ctx context.Context, _ mcp.CallToolRequest, args PassArgs) (PassResponse, error) {
	script, err := runner.ParseScript([]byte(args.Steps), "json")
	if err != nil {
		s.logger.Warn("MCP apply_pass: script rejected", "err", err, "size", len(args.Steps))
		return PassResponse{}, err
	}

	var resp PassResponse
	err = s.sessions.Do(ctx, args.SessionID, func(ctx context.Context, sess *session.Session) error {
		rep, runErr := runner.New(runner.WithLogger(s.logger)).Run(ctx, sess.T, sess.Document, script)
		resp.Report = rep
		if runErr != nil {
			resp.Error = runErr.Error()
		}
		return nil
	})
	return resp, err
}

func (s *Server) handleTick(ctx context.Context, _ mcp.CallToolRequest, args TickArgs) (TickResponse, error) {
	var resp TickResponse
	err := s.sessions.Do(ctx, args.SessionID, func(_ context.Context, sess *session.Session) error {
		off := sess.T.OnComplete(func(ev domain.CompletionEvent) {
			resp.Completions = append(resp.Completions, ev)
		})
		defer off()

		if args.Settle {
			resp.Ran = sess.T.Settle(64)
		} else {
			n := args.Count
			if n <= 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				resp.Ran += sess.T.Tick()
			}
		}
		resp.Phase = sess.T.Phase()
		return nil
	})
	return resp, err
}

func (s *Server) handleSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	html, err := s.snapshot(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
	}
	return mcp.NewToolResultText(html), nil
}

func (s *Server) registerResources() {
	// EXPOSE: vista://sessions
	s.mcpServer.AddResource(mcp.NewResource("vista://sessions", "Open Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.sessions.List())
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "vista://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: vista://sessions/{id}/tree
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(treeURIPrefix+"{id}/tree", "Session Document",
		mcp.WithTemplateMIMEType("text/html"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := strings.TrimSuffix(strings.TrimPrefix(request.Params.URI, treeURIPrefix), "/tree")
		html, err := s.snapshot(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read session tree: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/html",
				Text:     html,
			},
		}, nil
	})
}

func (s *Server) describe(ctx context.Context, id string) (SessionResponse, error) {
	var resp SessionResponse
	err := s.sessions.Do(ctx, id, func(_ context.Context, sess *session.Session) error {
		resp = SessionResponse{
			ID:      sess.ID,
			Phase:   sess.T.Phase(),
			Pending: sess.T.Pending(),
			Request: binding.Encode(sess.T.Request()),
		}
		return nil
	})
	return resp, err
}

func (s *Server) snapshot(ctx context.Context, id string) (string, error) {
	var html string
	err := s.sessions.Do(ctx, id, func(_ context.Context, sess *session.Session) error {
		html = sess.Snapshot()
		return nil
	})
	return html, err
}
