package gateway_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Tasuki/internal/tasuki/chat"
	"github.com/bdobrica/Tasuki/internal/tasuki/gateway"
	"github.com/bdobrica/Tasuki/internal/tasuki/settings"
	"github.com/bdobrica/Tasuki/internal/tasuki/store"
)

// --- Stub collaborators ---

type stubChat struct {
	gotChat  *chat.Request
	chatResp chat.Response

	gotTest  *chat.TestRequest
	testResp chat.TestResponse

	cleared []string
}

func (s *stubChat) HandleChat(_ context.Context, req chat.Request) chat.Response {
	s.gotChat = &req
	return s.chatResp
}

func (s *stubChat) TestConnection(_ context.Context, req chat.TestRequest) chat.TestResponse {
	s.gotTest = &req
	return s.testResp
}

func (s *stubChat) ClearContext(sessionID string) {
	s.cleared = append(s.cleared, sessionID)
}

type stubSettingsStore struct {
	cfg    settings.Assistant
	getErr error

	appliedUser string
	applied     *settings.Update
	applyErr    error
}

func (s *stubSettingsStore) Assistant(_ context.Context, _ string) (settings.Assistant, error) {
	return s.cfg, s.getErr
}

func (s *stubSettingsStore) Apply(_ context.Context, userID string, upd settings.Update) error {
	s.appliedUser = userID
	s.applied = &upd
	return s.applyErr
}

type stubAuditReader struct {
	gotLimit int
	entries  []*store.ChatAuditEntry
	err      error
}

func (s *stubAuditReader) GetChatAudit(_ context.Context, limit int) ([]*store.ChatAuditEntry, error) {
	s.gotLimit = limit
	return s.entries, s.err
}

// --- Fixture ---

type fixture struct {
	chat     *stubChat
	settings *stubSettingsStore
	audit    *stubAuditReader
	mux      *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		chat: &stubChat{
			chatResp: chat.Response{Message: "hello!", SessionID: "sess_1", Success: true},
			testResp: chat.TestResponse{Success: true, Message: "ok"},
		},
		settings: &stubSettingsStore{cfg: settings.Assistant{
			Enabled:  true,
			APIKey:   "sk-live-verysecret12345",
			Model:    "gpt-4o-mini",
			Endpoint: "https://api.openai.com/v1",
		}},
		audit: &stubAuditReader{},
		mux:   http.NewServeMux(),
	}
	gw := gateway.New(gateway.Config{
		Chat:     f.chat,
		Settings: f.settings,
		Audit:    f.audit,
	})
	gw.RegisterRoutes(f.mux)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// --- Chat endpoint ---

func TestChat_ValidRequest(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/chat",
		`{"message": "create a task", "sessionId": "sess_1", "history": [{"role": "user", "content": "hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.chat.gotChat == nil {
		t.Fatal("expected HandleChat to be called")
	}
	if f.chat.gotChat.Message != "create a task" {
		t.Errorf("message = %q", f.chat.gotChat.Message)
	}
	if f.chat.gotChat.SessionID != "sess_1" {
		t.Errorf("sessionId = %q", f.chat.gotChat.SessionID)
	}
	if len(f.chat.gotChat.History) != 1 || f.chat.gotChat.History[0].Content != "hi" {
		t.Errorf("history = %+v", f.chat.gotChat.History)
	}

	resp := decodeBody(t, w)
	if resp["message"] != "hello!" || resp["success"] != true {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/chat", `{"sessionId": "sess_1"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if f.chat.gotChat != nil {
		t.Error("HandleChat must not run on a schema violation")
	}
	resp := decodeBody(t, w)
	errMsg, _ := resp["error"].(string)
	if !strings.Contains(errMsg, "message") {
		t.Errorf("error should name the missing field, got %q", errMsg)
	}
}

func TestChat_BadHistoryRole(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/chat",
		`{"message": "hi", "history": [{"role": "robot", "content": "x"}]}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	errMsg, _ := resp["error"].(string)
	if !strings.Contains(errMsg, "history/0/role") {
		t.Errorf("error should locate the bad field, got %q", errMsg)
	}
}

func TestChat_MalformedJSON(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/chat", `{"message": `)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/assistant/chat", "")

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

// --- Connection test endpoint ---

func TestConnectionTest_ValidRequest(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/test",
		`{"apiKey": "sk-x", "apiUrl": "https://api.openai.com/v1", "model": "gpt-4o-mini"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if f.chat.gotTest == nil {
		t.Fatal("expected TestConnection to be called")
	}
	if f.chat.gotTest.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", f.chat.gotTest.Model)
	}
	resp := decodeBody(t, w)
	if resp["success"] != true {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestConnectionTest_NoAPIKeyIsAllowed(t *testing.T) {
	// Local models run unauthenticated; the schema must not require a key.
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/test",
		`{"apiUrl": "http://localhost:11434", "model": "llama3.2"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestConnectionTest_MissingModel(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/test", `{"apiUrl": "https://api.openai.com/v1"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if f.chat.gotTest != nil {
		t.Error("TestConnection must not run on a schema violation")
	}
}

// --- Context clear endpoint ---

func TestClearContext(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/context/clear", `{"sessionId": "sess_42"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.chat.cleared) != 1 || f.chat.cleared[0] != "sess_42" {
		t.Errorf("cleared = %v", f.chat.cleared)
	}
	resp := decodeBody(t, w)
	if resp["success"] != true {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestClearContext_MissingSessionID(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/assistant/context/clear", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(f.chat.cleared) != 0 {
		t.Error("ClearContext must not run on a schema violation")
	}
}

// --- Settings endpoints ---

func TestGetSettings_RedactsAPIKey(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/assistant/settings", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "sk-live-verysecret12345") {
		t.Fatal("raw API key leaked into the settings response")
	}

	resp := decodeBody(t, w)
	if resp["apiKeySet"] != true {
		t.Error("expected apiKeySet true")
	}
	key, _ := resp["apiKey"].(string)
	if !strings.HasSuffix(key, "2345") || !strings.HasPrefix(key, "****") {
		t.Errorf("expected masked key, got %q", key)
	}
	if resp["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", resp["model"])
	}
}

func TestPutSettings_AppliesUpdate(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/assistant/settings",
		`{"userId": "u1", "enabled": true, "apiKey": "sk-new", "model": "gpt-4.1", "endpoint": "https://api.openai.com/v1/"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.settings.appliedUser != "u1" {
		t.Errorf("user = %q", f.settings.appliedUser)
	}
	upd := f.settings.applied
	if upd == nil {
		t.Fatal("expected Apply to be called")
	}
	if upd.Enabled == nil || !*upd.Enabled {
		t.Error("enabled not applied")
	}
	if upd.APIKey == nil || *upd.APIKey != "sk-new" {
		t.Error("apiKey not applied")
	}
	if upd.Model == nil || *upd.Model != "gpt-4.1" {
		t.Error("model not applied")
	}
	// The endpoint is stored in canonical form, trailing slash stripped.
	if upd.Endpoint == nil || *upd.Endpoint != "https://api.openai.com/v1" {
		t.Errorf("endpoint = %v", upd.Endpoint)
	}
}

func TestPutSettings_PartialUpdateLeavesOtherFieldsNil(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/assistant/settings", `{"enabled": false}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	upd := f.settings.applied
	if upd == nil || upd.Enabled == nil || *upd.Enabled {
		t.Fatalf("enabled not applied: %+v", upd)
	}
	if upd.APIKey != nil || upd.Model != nil || upd.Endpoint != nil {
		t.Errorf("absent fields must stay nil: %+v", upd)
	}
}

func TestPutSettings_RejectsDisallowedEndpoint(t *testing.T) {
	f := newFixture(t)

	// Plain http to a public host violates the SSRF guard.
	w := f.do(t, http.MethodPut, "/api/assistant/settings", `{"endpoint": "http://example.com"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if f.settings.applied != nil {
		t.Error("a rejected endpoint must never be persisted")
	}
}

func TestPutSettings_RejectsDisallowedModel(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/assistant/settings", `{"model": "../../etc/passwd"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if f.settings.applied != nil {
		t.Error("a rejected model must never be persisted")
	}
}

// --- Audit endpoint ---

func TestAudit_DefaultLimit(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/assistant/audit", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if f.audit.gotLimit != 50 {
		t.Errorf("limit = %d, want 50", f.audit.gotLimit)
	}
}

func TestAudit_LimitParsing(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
	}{
		{"explicit", "?limit=7", http.StatusOK, 7},
		{"capped", "?limit=9999", http.StatusOK, 500},
		{"not a number", "?limit=abc", http.StatusBadRequest, 0},
		{"negative", "?limit=-1", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(t, http.MethodGet, "/api/assistant/audit"+tt.query, "")
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && f.audit.gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", f.audit.gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestAudit_NotConfigured(t *testing.T) {
	ch := &stubChat{}
	mux := http.NewServeMux()
	gateway.New(gateway.Config{Chat: ch, Settings: &stubSettingsStore{}}).RegisterRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/assistant/audit", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without an audit store, got %d", w.Code)
	}
}

func TestAudit_RowShaping(t *testing.T) {
	f := newFixture(t)
	f.audit.entries = []*store.ChatAuditEntry{{
		ID:          "a1",
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TraceID:     "t_abc",
		SessionID:   "sess_1",
		UserID:      "u1",
		UserMessage: "add task X",
		Reply:       "Creating task \"X\".",
		CommandName: sql.NullString{String: "createTask", Valid: true},
		ChainJSON:   sql.NullString{String: `[{"name":"createWorkspace","parameters":{}}]`, Valid: true},
		Success:     true,
	}}

	w := f.do(t, http.MethodGet, "/api/assistant/audit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Entries []struct {
			ID      string            `json:"id"`
			Command string            `json:"command"`
			Chain   []json.RawMessage `json:"chain"`
			Success bool              `json:"success"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(resp.Entries))
	}
	got := resp.Entries[0]
	if got.ID != "a1" || got.Command != "createTask" || !got.Success {
		t.Errorf("unexpected row: %+v", got)
	}
	if len(got.Chain) != 1 {
		t.Errorf("chain should round-trip as JSON, got %v", got.Chain)
	}
}
