package nlp_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bdobrica/Tasuki/internal/tasuki/nlp"
)

func TestAnthropicAdapter_BuildRequest(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindAnthropic)

	messages := []nlp.ChatMessage{
		{Role: nlp.RoleSystem, Content: "You are Tasuki."},
		{Role: nlp.RoleSystem, Content: "Be brief."},
		{Role: nlp.RoleUser, Content: "create a workspace"},
		{Role: nlp.RoleAssistant, Content: "What should it be called?"},
	}
	wire, err := adapter.BuildRequest("https://api.anthropic.com", "ak-test", "claude-3-5-haiku-20241022", messages, 256)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	if wire.URL != "https://api.anthropic.com/v1/messages" {
		t.Errorf("URL = %q, want the v1 messages path", wire.URL)
	}
	if got := wire.Header.Get("x-api-key"); got != "ak-test" {
		t.Errorf("x-api-key = %q, want the raw key", got)
	}
	if got := wire.Header.Get("anthropic-version"); got != "2023-06-01" {
		t.Errorf("anthropic-version = %q, want 2023-06-01", got)
	}
	if got := wire.Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want no bearer header", got)
	}

	var body struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    string `json:"system"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(wire.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.System != "You are Tasuki.\n\nBe brief." {
		t.Errorf("system = %q, want both system turns joined", body.System)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("messages = %+v, want the 2 non-system turns", body.Messages)
	}
	if body.Messages[0].Role != "user" || body.Messages[1].Role != "assistant" {
		t.Errorf("message roles = %q, %q; want user then assistant", body.Messages[0].Role, body.Messages[1].Role)
	}
	if body.MaxTokens != 256 {
		t.Errorf("max_tokens = %d, want 256", body.MaxTokens)
	}
}

func TestAnthropicAdapter_URLResolution(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindAnthropic)
	messages := []nlp.ChatMessage{{Role: nlp.RoleUser, Content: "hi"}}

	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{"bare host gets v1 prefix", "https://api.anthropic.com", "https://api.anthropic.com/v1/messages"},
		{"v1 base", "https://api.anthropic.com/v1", "https://api.anthropic.com/v1/messages"},
		{"full path used as-is", "https://api.anthropic.com/v1/messages", "https://api.anthropic.com/v1/messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := adapter.BuildRequest(tt.endpoint, "k", "m", messages, 0)
			if err != nil {
				t.Fatalf("BuildRequest: %v", err)
			}
			if wire.URL != tt.want {
				t.Errorf("URL = %q, want %q", wire.URL, tt.want)
			}
		})
	}
}

func TestAnthropicAdapter_ParseReply(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindAnthropic)

	raw := []byte(`{
		"content": [{"type": "text", "text": "Workspace created."}],
		"usage": {"input_tokens": 50, "output_tokens": 10}
	}`)
	reply, err := adapter.ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if reply.Text != "Workspace created." {
		t.Errorf("Text = %q", reply.Text)
	}
	if reply.Usage.PromptTokens != 50 || reply.Usage.CompletionTokens != 10 {
		t.Errorf("Usage = %+v, want 50 in, 10 out", reply.Usage)
	}
	if reply.Usage.TotalTokens != 60 {
		t.Errorf("TotalTokens = %d, want the sum 60", reply.Usage.TotalTokens)
	}
}

func TestAnthropicAdapter_ParseReply_ProviderError(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindAnthropic)

	_, err := adapter.ParseReply([]byte(`{"error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	if err == nil {
		t.Fatal("expected error for provider error body, got nil")
	}
	if !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Errorf("error should carry the provider message, got: %v", err)
	}
}

func TestAnthropicAdapter_ParseReply_Empty(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindAnthropic)

	_, err := adapter.ParseReply([]byte(`{"content": []}`))
	if !errors.Is(err, nlp.ErrEmptyReply) {
		t.Errorf("error = %v, want ErrEmptyReply", err)
	}
}
