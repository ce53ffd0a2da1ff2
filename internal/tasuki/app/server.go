package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bdobrica/Tasuki/common/trace"
	"github.com/bdobrica/Tasuki/common/version"
)

// maxRequestBytes caps inbound request bodies. Chat messages are small;
// anything beyond this is either a mistake or abuse.
const maxRequestBytes = 1 << 20 // 1 MiB

const bearerPrefix = "Bearer "

// HTTPServer exposes /health, /status, and any additionally registered
// HTTP endpoints (the assistant API routes). All requests pass through the
// shared middleware chain: panic recovery, trace ID propagation, bearer
// auth, and the request body cap.
type HTTPServer struct {
	addr      string
	authToken string
	store     statusProvider
	sessions  sessionCounter
	startedAt time.Time
	server    *http.Server
	mux       *http.ServeMux
}

// statusProvider is the minimal interface the server needs from Store.
type statusProvider interface {
	WorkspaceCount(ctx context.Context) (int, error)
}

// sessionCounter reports how many session contexts are alive.
type sessionCounter interface {
	Len() int
}

// healthResponse is returned by GET /health.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// statusResponse is returned by GET /status.
type statusResponse struct {
	Status         string    `json:"status"`
	Version        string    `json:"version"`
	Commit         string    `json:"commit"`
	BuildTime      string    `json:"build_time"`
	StartedAt      time.Time `json:"started_at"`
	UptimeSecs     float64   `json:"uptime_seconds"`
	ActiveSessions int       `json:"active_sessions"`
	WorkspaceCount int       `json:"workspace_count"`
}

// errorBody is the structured body of middleware-level failures.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewHTTPServer creates and configures the HTTP server (does not start it).
// An empty authToken disables authentication.
func NewHTTPServer(addr, authToken string, sp statusProvider, sc sessionCounter) *HTTPServer {
	mux := http.NewServeMux()
	hs := &HTTPServer{
		addr:      addr,
		authToken: authToken,
		store:     sp,
		sessions:  sc,
		startedAt: time.Now(),
		mux:       mux,
	}
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/status", hs.handleStatus)
	return hs
}

// Handle registers a handler for the given URL pattern, delegating to the
// underlying ServeMux. Call this before Start to add extra routes (the
// gateway mounts the assistant API through it).
func (h *HTTPServer) Handle(pattern string, handler http.Handler) {
	h.mux.Handle(pattern, handler)
}

// ServeHTTP implements http.Handler so the server can be tested without a
// live network listener (e.g. with httptest.NewRecorder). It applies the
// middleware chain before dispatching to the mux.
func (h *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Every request gets a trace ID: inbound ones are honoured so a caller
	// can correlate across services, and the response always echoes it.
	traceID := r.Header.Get(trace.Header)
	if traceID == "" {
		traceID = trace.GenerateID()
	}
	w.Header().Set(trace.Header, traceID)
	ctx := trace.WithTraceID(r.Context(), traceID)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("http: panic recovered",
				"path", r.URL.Path, "trace_id", traceID, "panic", rec)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		}
	}()

	// /health stays reachable for load-balancer probes that cannot carry
	// credentials; everything else requires the token when one is set.
	if h.authToken != "" && r.URL.Path != "/health" {
		authz := r.Header.Get("Authorization")
		token := strings.TrimPrefix(authz, bearerPrefix)
		if !strings.HasPrefix(authz, bearerPrefix) ||
			subtle.ConstantTimeCompare([]byte(token), []byte(h.authToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

// Start begins listening in the background. Blocks until the listener is
// established so the caller knows the port is open before returning.
func (h *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("http server: listen %s: %w", h.addr, err)
	}

	// WriteTimeout must outlast a chat turn, which can sit through provider
	// retries before producing a response.
	h.server = &http.Server{
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", "err", err)
		}
	}()

	// Shutdown when ctx is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP server.
func (h *HTTPServer) Stop() {
	if h.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
	}
}

// handleHealth responds with a simple ok JSON payload.
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus responds with runtime statistics.
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	workspaceCount := 0
	if h.store != nil {
		if n, err := h.store.WorkspaceCount(r.Context()); err == nil {
			workspaceCount = n
		}
	}
	activeSessions := 0
	if h.sessions != nil {
		activeSessions = h.sessions.Len()
	}

	uptime := time.Since(h.startedAt).Seconds()
	resp := statusResponse{
		Status:         "ok",
		Version:        version.Version,
		Commit:         version.GitCommit,
		BuildTime:      version.BuildTime,
		StartedAt:      h.startedAt,
		UptimeSecs:     uptime,
		ActiveSessions: activeSessions,
		WorkspaceCount: workspaceCount,
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("http: failed to encode JSON response", "err", err)
	}
}
