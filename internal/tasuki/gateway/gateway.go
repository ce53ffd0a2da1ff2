// Package gateway exposes the assistant over HTTP:
//
//	POST /api/assistant/chat          — run one chat turn
//	POST /api/assistant/test          — test candidate provider credentials
//	POST /api/assistant/context/clear — drop a session's conversation context
//	GET  /api/assistant/settings      — current per-user settings (API key redacted)
//	PUT  /api/assistant/settings      — update per-user settings
//	GET  /api/assistant/audit         — recent chat audit entries
//
// Request bodies are validated against embedded JSON Schemas before they are
// decoded, so malformed input is rejected with a field-level message and
// never reaches the orchestrator. Every response, including failures, is a
// structured JSON body.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bdobrica/Tasuki/common/redact"
	"github.com/bdobrica/Tasuki/internal/tasuki/chat"
	"github.com/bdobrica/Tasuki/internal/tasuki/nlp"
	"github.com/bdobrica/Tasuki/internal/tasuki/settings"
	"github.com/bdobrica/Tasuki/internal/tasuki/store"
)

const (
	// defaultAuditLimit is how many audit entries GET /api/assistant/audit
	// returns when the caller does not ask for a specific count.
	defaultAuditLimit = 50
	// maxAuditLimit caps the audit page size.
	maxAuditLimit = 500
)

// ChatService is the slice of the chat orchestrator the gateway needs.
type ChatService interface {
	HandleChat(ctx context.Context, req chat.Request) chat.Response
	TestConnection(ctx context.Context, req chat.TestRequest) chat.TestResponse
	ClearContext(sessionID string)
}

// SettingsStore reads and writes per-user assistant settings.
type SettingsStore interface {
	Assistant(ctx context.Context, userID string) (settings.Assistant, error)
	Apply(ctx context.Context, userID string, upd settings.Update) error
}

// AuditReader lists recorded chat exchanges.
type AuditReader interface {
	GetChatAudit(ctx context.Context, limit int) ([]*store.ChatAuditEntry, error)
}

// RouteRegistrar is satisfied by *http.ServeMux and by app.HTTPServer's
// Handle method, so the gateway can register its routes without importing
// the app package directly.
type RouteRegistrar interface {
	Handle(pattern string, handler http.Handler)
}

// Config assembles a Gateway. Audit may be nil, which disables the audit
// endpoint.
type Config struct {
	Chat      ChatService
	Settings  SettingsStore
	Audit     AuditReader
	ModelRule nlp.ModelRule
}

// Gateway holds the HTTP handlers for the assistant API.
type Gateway struct {
	chat      ChatService
	settings  SettingsStore
	audit     AuditReader
	modelRule nlp.ModelRule
}

// New creates a Gateway.
func New(cfg Config) *Gateway {
	return &Gateway{
		chat:      cfg.Chat,
		settings:  cfg.Settings,
		audit:     cfg.Audit,
		modelRule: cfg.ModelRule,
	}
}

// RegisterRoutes mounts the assistant API on the given registrar.
func (g *Gateway) RegisterRoutes(r RouteRegistrar) {
	r.Handle("/api/assistant/chat", http.HandlerFunc(g.handleChat))
	r.Handle("/api/assistant/test", http.HandlerFunc(g.handleTest))
	r.Handle("/api/assistant/context/clear", http.HandlerFunc(g.handleClearContext))
	r.Handle("/api/assistant/settings", http.HandlerFunc(g.handleSettings))
	r.Handle("/api/assistant/audit", http.HandlerFunc(g.handleAudit))
}

// errorResponse is the structured body of every non-2xx response.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// handleChat runs one assistant turn. Orchestrator-level failures (disabled
// assistant, provider errors) still produce a 200 with a structured body;
// only a malformed request body is rejected at the HTTP layer.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chat.Request
	if !readValidated(w, r, chatRequestSchema, &req) {
		return
	}

	writeJSON(w, http.StatusOK, g.chat.HandleChat(r.Context(), req))
}

// handleTest performs one round trip against candidate credentials. The
// values are used in-flight only and never persisted.
func (g *Gateway) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chat.TestRequest
	if !readValidated(w, r, testRequestSchema, &req) {
		return
	}

	writeJSON(w, http.StatusOK, g.chat.TestConnection(r.Context(), req))
}

// clearContextRequest is the body of POST /api/assistant/context/clear.
type clearContextRequest struct {
	SessionID string `json:"sessionId"`
}

// clearContextResponse acknowledges the clear. Clearing an unknown session
// succeeds; there is nothing useful to report beyond that.
type clearContextResponse struct {
	Success bool `json:"success"`
}

func (g *Gateway) handleClearContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req clearContextRequest
	if !readValidated(w, r, clearRequestSchema, &req) {
		return
	}

	g.chat.ClearContext(req.SessionID)
	writeJSON(w, http.StatusOK, clearContextResponse{Success: true})
}

// settingsResponse is the body of GET /api/assistant/settings. APIKey is a
// masked display form; the stored value never leaves the process.
type settingsResponse struct {
	Enabled   bool   `json:"enabled"`
	APIKeySet bool   `json:"apiKeySet"`
	APIKey    string `json:"apiKey,omitempty"`
	Model     string `json:"model"`
	Endpoint  string `json:"endpoint"`
}

// settingsUpdateRequest is the body of PUT /api/assistant/settings. Absent
// fields are left untouched; an empty string resets the field to the
// process-wide default.
type settingsUpdateRequest struct {
	UserID   string  `json:"userId"`
	Enabled  *bool   `json:"enabled"`
	APIKey   *string `json:"apiKey"`
	Model    *string `json:"model"`
	Endpoint *string `json:"endpoint"`
}

// settingsUpdateResponse acknowledges a settings write.
type settingsUpdateResponse struct {
	Success bool `json:"success"`
}

func (g *Gateway) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.getSettings(w, r)
	case http.MethodPut:
		g.putSettings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (g *Gateway) getSettings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = chat.DefaultUserID
	}

	cfg, err := g.settings.Assistant(r.Context(), userID)
	if err != nil {
		slog.Error("gateway: settings read failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Enabled:   cfg.Enabled,
		APIKeySet: cfg.APIKey != "",
		APIKey:    redact.Mask(cfg.APIKey),
		Model:     cfg.Model,
		Endpoint:  cfg.Endpoint,
	})
}

func (g *Gateway) putSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdateRequest
	if !readValidated(w, r, settingsUpdateSchema, &req) {
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = chat.DefaultUserID
	}

	// Endpoint and model are validated before anything is persisted, so a
	// disallowed value can never become the stored configuration.
	upd := settings.Update{Enabled: req.Enabled, APIKey: req.APIKey}
	if req.Endpoint != nil {
		endpoint := *req.Endpoint
		if endpoint != "" {
			canonical, err := nlp.ValidateAPIURL(endpoint)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			endpoint = canonical
		}
		upd.Endpoint = &endpoint
	}
	if req.Model != nil && *req.Model != "" {
		if err := nlp.ValidateModelName(*req.Model, g.modelRule); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	upd.Model = req.Model

	if err := g.settings.Apply(r.Context(), userID, upd); err != nil {
		slog.Error("gateway: settings write failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	slog.Info("gateway: settings updated", "user_id", userID)
	writeJSON(w, http.StatusOK, settingsUpdateResponse{Success: true})
}

// auditRow is the JSON view of one recorded chat exchange.
type auditRow struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	TraceID     string          `json:"traceId"`
	SessionID   string          `json:"sessionId"`
	UserID      string          `json:"userId"`
	UserMessage string          `json:"userMessage"`
	Reply       string          `json:"reply"`
	Command     string          `json:"command,omitempty"`
	Chain       json.RawMessage `json:"chain,omitempty"`
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
}

// auditResponse is the body of GET /api/assistant/audit.
type auditResponse struct {
	Entries []auditRow `json:"entries"`
}

func (g *Gateway) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if g.audit == nil {
		writeError(w, http.StatusNotFound, "audit trail not configured")
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxAuditLimit {
			n = maxAuditLimit
		}
		limit = n
	}

	entries, err := g.audit.GetChatAudit(r.Context(), limit)
	if err != nil {
		slog.Error("gateway: audit read failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load audit trail")
		return
	}

	rows := make([]auditRow, 0, len(entries))
	for _, e := range entries {
		row := auditRow{
			ID:          e.ID,
			Timestamp:   e.Timestamp,
			TraceID:     e.TraceID,
			SessionID:   e.SessionID,
			UserID:      e.UserID,
			UserMessage: e.UserMessage,
			Reply:       e.Reply,
			Success:     e.Success,
		}
		if e.CommandName.Valid {
			row.Command = e.CommandName.String
		}
		if e.ChainJSON.Valid && json.Valid([]byte(e.ChainJSON.String)) {
			row.Chain = json.RawMessage(e.ChainJSON.String)
		}
		if e.ErrorMessage.Valid {
			row.Error = e.ErrorMessage.String
		}
		rows = append(rows, row)
	}

	writeJSON(w, http.StatusOK, auditResponse{Entries: rows})
}

// writeJSON serialises v as JSON and writes it to w with the given status
// code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("gateway: failed to encode JSON response", "err", err)
	}
}

// writeError writes a structured failure body.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
