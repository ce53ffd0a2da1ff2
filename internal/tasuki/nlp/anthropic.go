package nlp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// anthropicVersion is the API version header Anthropic requires on every
// request.
const anthropicVersion = "2023-06-01"

// --- minimal Anthropic wire types ---

type anthMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []anthMessage `json:"messages"`
}

type anthResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// anthropicAdapter speaks the Anthropic messages API: the system turn moves
// into a dedicated top-level field, auth uses x-api-key plus a version
// header instead of a bearer token.
type anthropicAdapter struct{}

func (anthropicAdapter) Kind() Kind { return KindAnthropic }

func (anthropicAdapter) BuildRequest(endpoint, apiKey, model string, messages []ChatMessage, maxTokens int) (WireRequest, error) {
	var system []string
	body := anthRequest{Model: model, MaxTokens: maxTokens}
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		body.Messages = append(body.Messages, anthMessage{Role: m.Role, Content: m.Content})
	}
	body.System = strings.Join(system, "\n\n")

	data, err := json.Marshal(body)
	if err != nil {
		return WireRequest{}, fmt.Errorf("nlp: marshal request: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("x-api-key", apiKey)
	header.Set("anthropic-version", anthropicVersion)

	return WireRequest{
		URL:    anthropicMessagesURL(endpoint),
		Header: header,
		Body:   data,
	}, nil
}

func (anthropicAdapter) ParseReply(raw []byte) (Reply, error) {
	var resp anthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Reply{}, fmt.Errorf("nlp: decode provider reply: %w", err)
	}
	if resp.Error != nil {
		return Reply{}, fmt.Errorf("nlp: provider error (%s): %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Content) == 0 || strings.TrimSpace(resp.Content[0].Text) == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{
		Text: resp.Content[0].Text,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// anthropicMessagesURL resolves the messages endpoint. A bare host gets the
// conventional /v1 prefix.
func anthropicMessagesURL(endpoint string) string {
	if strings.HasSuffix(endpoint, "/messages") {
		return endpoint
	}
	if u, err := url.Parse(endpoint); err == nil && (u.Path == "" || u.Path == "/") {
		return endpoint + "/v1/messages"
	}
	return endpoint + "/messages"
}
