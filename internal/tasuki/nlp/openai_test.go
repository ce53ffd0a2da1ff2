package nlp_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bdobrica/Tasuki/internal/tasuki/nlp"
)

func TestOpenAIAdapter_BuildRequest(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindOpenAI)

	messages := []nlp.ChatMessage{
		{Role: nlp.RoleSystem, Content: "You are Tasuki."},
		{Role: nlp.RoleUser, Content: "create a task called Fix login"},
	}
	wire, err := adapter.BuildRequest("https://api.openai.com/v1", "sk-test", "gpt-4o-mini", messages, 512)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	if wire.URL != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("URL = %q, want the chat completions path", wire.URL)
	}
	if got := wire.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
	if got := wire.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxTokens int `json:"max_tokens"`
	}
	if err := json.Unmarshal(wire.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", body.Model)
	}
	if body.MaxTokens != 512 {
		t.Errorf("max_tokens = %d, want 512", body.MaxTokens)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want system then user in order", body.Messages)
	}
}

func TestOpenAIAdapter_BuildRequest_NoKeyOmitsAuth(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindCustom)

	wire, err := adapter.BuildRequest("https://llm.mycompany.com/v1", "", "local-model", []nlp.ChatMessage{
		{Role: nlp.RoleUser, Content: "hello"},
	}, 0)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if got := wire.Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want no auth header without a key", got)
	}
}

func TestOpenAIAdapter_URLResolution(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindOpenAI)
	messages := []nlp.ChatMessage{{Role: nlp.RoleUser, Content: "hi"}}

	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{"bare host gets v1 prefix", "https://api.openai.com", "https://api.openai.com/v1/chat/completions"},
		{"v1 base", "https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"openrouter base", "https://openrouter.ai/api/v1", "https://openrouter.ai/api/v1/chat/completions"},
		{"full path used as-is", "https://gw.example.com/v1/chat/completions", "https://gw.example.com/v1/chat/completions"},
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

func TestOpenAIAdapter_ParseReply(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindOpenAI)

	raw := []byte(`{
		"choices": [{"message": {"role": "assistant", "content": "Done! Your task is created."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
	}`)
	reply, err := adapter.ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if reply.Text != "Done! Your task is created." {
		t.Errorf("Text = %q", reply.Text)
	}
	if reply.Usage.PromptTokens != 100 || reply.Usage.CompletionTokens != 20 || reply.Usage.TotalTokens != 120 {
		t.Errorf("Usage = %+v, want 100/20/120", reply.Usage)
	}
}

func TestOpenAIAdapter_ParseReply_ProviderError(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindOpenAI)

	_, err := adapter.ParseReply([]byte(`{"error": {"message": "The model is overloaded.", "type": "server_error"}}`))
	if err == nil {
		t.Fatal("expected error for provider error body, got nil")
	}
	if !strings.Contains(err.Error(), "The model is overloaded.") {
		t.Errorf("error should carry the provider message, got: %v", err)
	}
}

func TestOpenAIAdapter_ParseReply_Empty(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindOpenAI)

	for name, raw := range map[string]string{
		"no choices":         `{"choices": []}`,
		"whitespace content": `{"choices": [{"message": {"role": "assistant", "content": "  \n"}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := adapter.ParseReply([]byte(raw))
			if !errors.Is(err, nlp.ErrEmptyReply) {
				t.Errorf("error = %v, want ErrEmptyReply", err)
			}
		})
	}
}

func TestOpenAIAdapter_ParseReply_MalformedJSON(t *testing.T) {
	adapter := nlp.AdapterFor(nlp.KindOpenAI)

	_, err := adapter.ParseReply([]byte("<html>bad gateway</html>"))
	if err == nil {
		t.Fatal("expected decode error for non-JSON body, got nil")
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("expected decode error, got: %v", err)
	}
}
