package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/pkg/binding"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/runner"
	"github.com/aretw0/vista/pkg/session"
)

// maxBodySize bounds request bodies; scripts have their own limit on top.
const maxBodySize = 2 << 20

// Server exposes a session.Manager over HTTP.
type Server struct {
	Sessions *session.Manager
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger

	runnerOpts []runner.Option
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithGatherer serves /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithRunnerOptions configures the runner executing pass scripts.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(s *Server) {
		s.runnerOpts = append(s.runnerOpts, opts...)
	}
}

// NewServer creates a Server for mgr.
func NewServer(mgr *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: mgr,
		Logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for the session manager.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	return NewServer(mgr, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBodySize))

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.OpenSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.Post("/transition", s.SetTransition)
			r.Post("/pass", s.ApplyPass)
			r.Post("/tick", s.Tick)
			r.Get("/tree", s.GetTree)
			r.Get("/history", s.GetHistory)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionView is the JSON form of a session.
type SessionView struct {
	ID      string         `json:"id"`
	Phase   domain.Phase   `json:"phase"`
	Pending int            `json:"pending"`
	Pass    uint64         `json:"pass"`
	Request string         `json:"request"`
	Entries []domain.Entry `json:"entries,omitempty"`
}

func view(sess *session.Session) SessionView {
	req := sess.T.Request()
	return SessionView{
		ID:      sess.ID,
		Phase:   sess.T.Phase(),
		Pending: sess.T.Pending(),
		Pass:    sess.T.Pass(),
		Request: binding.Encode(req),
		Entries: req.Entries,
	}
}

// OpenSessionRequest is the optional body of POST /sessions.
type OpenSessionRequest struct {
	ID string `json:"id,omitempty"`
}

// OpenSession handles POST /sessions.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body OpenSessionRequest
	if err := decodeOptional(r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("OpenSession: Invalid request body", "err", err)
		return
	}

	sess, err := s.Sessions.Open(r.Context(), body.ID)
	if err != nil {
		s.fail(w, "OpenSession", err)
		return
	}
	var v SessionView
	_ = s.Sessions.Do(r.Context(), sess.ID, func(_ context.Context, sess *session.Session) error {
		v = view(sess)
		return nil
	})
	writeJSON(w, http.StatusCreated, v)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Sessions.List()})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	var v SessionView
	err := s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, sess *session.Session) error {
		v = view(sess)
		return nil
	})
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// CloseSession handles DELETE /sessions/{id}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "CloseSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransitionRequest is the body of POST /sessions/{id}/transition.
// A null or missing payload removes the attribute.
type TransitionRequest struct {
	Payload *string `json:"payload"`
}

// SetTransition handles POST /sessions/{id}/transition.
func (s *Server) SetTransition(w http.ResponseWriter, r *http.Request) {
	var body TransitionRequest
	if err := decodeOptional(r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("SetTransition: Invalid request body", "err", err)
		return
	}
	if body.Payload != nil {
		// Malformed payloads are ignored by the transitioner; reject them here.
		if _, err := binding.Decode(body.Payload); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	var v SessionView
	err := s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, sess *session.Session) error {
		if err := sess.T.SetAttribute(body.Payload); err != nil {
			return err
		}
		v = view(sess)
		return nil
	})
	if err != nil {
		s.fail(w, "SetTransition", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PassResponse is the result of POST /sessions/{id}/pass.
type PassResponse struct {
	Report  runner.Report       `json:"report"`
	Results []runner.StepResult `json:"results"`
	Error   string              `json:"error,omitempty"`
}

// ApplyPass handles POST /sessions/{id}/pass. The body is a script, either a
// list of steps or an object with "steps".
func (s *Server) ApplyPass(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	format := "json"
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = "yaml"
	}
	script, err := runner.ParseScript(data, format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		s.Logger.Warn("ApplyPass: Invalid script", "err", err)
		return
	}

	collector := &collectHandler{}
	opts := append([]runner.Option{runner.WithHandler(collector), runner.WithLogger(s.Logger)}, s.runnerOpts...)
	var resp PassResponse
	err = s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, sess *session.Session) error {
		rep, runErr := runner.New(opts...).Run(ctx, sess.T, sess.Document, script)
		resp.Report = rep
		if runErr != nil {
			resp.Error = runErr.Error()
		}
		return nil
	})
	if err != nil {
		s.fail(w, "ApplyPass", err)
		return
	}
	resp.Results = collector.results

	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// TickResponse is the result of POST /sessions/{id}/tick.
type TickResponse struct {
	Ran     int          `json:"ran"`
	Phase   domain.Phase `json:"phase"`
	Pending int          `json:"pending"`
}

// Tick handles POST /sessions/{id}/tick?count=n, or ?settle=true to run until idle.
func (s *Server) Tick(w http.ResponseWriter, r *http.Request) {
	count := 1
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "count must be a positive integer", http.StatusBadRequest)
			return
		}
		count = n
	}
	settle := r.URL.Query().Get("settle") == "true"

	var resp TickResponse
	err := s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, sess *session.Session) error {
		if settle {
			resp.Ran = sess.T.Settle(64)
		} else {
			for i := 0; i < count; i++ {
				resp.Ran += sess.T.Tick()
			}
		}
		resp.Phase = sess.T.Phase()
		resp.Pending = sess.T.Pending()
		return nil
	})
	if err != nil {
		s.fail(w, "Tick", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTree handles GET /sessions/{id}/tree. It serves the real document.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	var out string
	err := s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, sess *session.Session) error {
		out = sess.Snapshot()
		return nil
	})
	if err != nil {
		s.fail(w, "GetTree", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

// GetHistory handles GET /sessions/{id}/history?limit=n.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	id := chi.URLParam(r, "id")
	records, err := s.Sessions.History(r.Context(), id, limit)
	if err != nil {
		s.fail(w, "GetHistory", err)
		return
	}
	if records == nil {
		records = []domain.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "records": records})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	events, cancel, err := s.Sessions.Subscribe(id)
	if err != nil {
		s.fail(w, "SubscribeEvents", err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.Logger.Info("SSE: Subscribing to completion events", "session_id", id)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "session_id", id)
			return
		case ev, ok := <-events:
			if !ok {
				fmt.Fprintf(w, "event: closed\ndata: %s\n\n", id)
				flusher.Flush()
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Error("SSE: encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "vista-http",
		"version": strings.TrimSpace(vista.Version),
	})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrTransitionInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, context.Canceled):
		http.Error(w, err.Error(), http.StatusRequestTimeout)
	default:
		http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
		s.Logger.Error(op+" failed", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

// decodeOptional decodes a JSON body, accepting an empty one.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// collectHandler keeps step results for the response.
type collectHandler struct {
	results []runner.StepResult
}

func (c *collectHandler) Step(_ context.Context, res runner.StepResult) error {
	c.results = append(c.results, res)
	return nil
}

func (c *collectHandler) Completion(context.Context, domain.CompletionEvent) error { return nil }
func (c *collectHandler) Summary(context.Context, runner.Report) error             { return nil }
