package nlp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ollamaNativeResponse is the reply shape of Ollama's native /api/chat
// endpoint. The /v1 endpoint speaks the OpenAI dialect instead.
type ollamaNativeResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// ollamaAdapter targets local models: the OpenAI request shape with no auth
// at all, tolerating both base-path conventions a local install exposes
// (/v1/chat/completions and /api/chat).
type ollamaAdapter struct{}

func (ollamaAdapter) Kind() Kind { return KindOllama }

func (ollamaAdapter) BuildRequest(endpoint, _ string, model string, messages []ChatMessage, maxTokens int) (WireRequest, error) {
	body := oaiRequest{
		Model:     model,
		Messages:  make([]oaiMessage, 0, len(messages)),
		MaxTokens: maxTokens,
	}
	for _, m := range messages {
		body.Messages = append(body.Messages, oaiMessage{Role: m.Role, Content: m.Content})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return WireRequest{}, fmt.Errorf("nlp: marshal request: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	return WireRequest{
		URL:    ollamaChatURL(endpoint),
		Header: header,
		Body:   data,
	}, nil
}

func (ollamaAdapter) ParseReply(raw []byte) (Reply, error) {
	// The OpenAI-compatible endpoint is the common case; fall back to the
	// native shape when no choices are present.
	var oai oaiResponse
	if err := json.Unmarshal(raw, &oai); err == nil && len(oai.Choices) > 0 {
		return openAIAdapter{kind: KindOllama}.ParseReply(raw)
	}

	var native ollamaNativeResponse
	if err := json.Unmarshal(raw, &native); err != nil {
		return Reply{}, fmt.Errorf("nlp: decode provider reply: %w", err)
	}
	if native.Error != "" {
		return Reply{}, fmt.Errorf("nlp: provider error: %s", native.Error)
	}
	if strings.TrimSpace(native.Message.Content) == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{
		Text: native.Message.Content,
		Usage: TokenUsage{
			PromptTokens:     native.PromptEvalCount,
			CompletionTokens: native.EvalCount,
			TotalTokens:      native.PromptEvalCount + native.EvalCount,
		},
	}, nil
}

// ollamaChatURL resolves the chat URL, honoring whichever base-path
// convention the configured endpoint already names.
func ollamaChatURL(endpoint string) string {
	switch {
	case strings.HasSuffix(endpoint, "/api/chat"), strings.HasSuffix(endpoint, "/chat/completions"):
		return endpoint
	case strings.HasSuffix(endpoint, "/api"):
		return endpoint + "/chat"
	case strings.HasSuffix(endpoint, "/v1"):
		return endpoint + "/chat/completions"
	}
	if u, err := url.Parse(endpoint); err == nil && (u.Path == "" || u.Path == "/") {
		return endpoint + "/v1/chat/completions"
	}
	return endpoint + "/chat/completions"
}
