package nlp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// --- minimal OpenAI wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model     string       `json:"model"`
	Messages  []oaiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type oaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Usage   oaiUsage    `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

// openAIAdapter speaks the flat-messages chat completions dialect used by
// OpenAI, OpenRouter, and virtually every custom/self-hosted gateway.
type openAIAdapter struct {
	kind Kind
}

func (a openAIAdapter) Kind() Kind { return a.kind }

func (a openAIAdapter) BuildRequest(endpoint, apiKey, model string, messages []ChatMessage, maxTokens int) (WireRequest, error) {
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
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}

	return WireRequest{
		URL:    chatCompletionsURL(endpoint),
		Header: header,
		Body:   data,
	}, nil
}

func (a openAIAdapter) ParseReply(raw []byte) (Reply, error) {
	var resp oaiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Reply{}, fmt.Errorf("nlp: decode provider reply: %w", err)
	}
	if resp.Error != nil {
		return Reply{}, fmt.Errorf("nlp: provider error (%s): %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{
		Text: resp.Choices[0].Message.Content,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// chatCompletionsURL resolves the final chat completions URL from a
// canonical endpoint. A bare host gets the conventional /v1 prefix; an
// endpoint that already names the completions path is used as-is.
func chatCompletionsURL(endpoint string) string {
	if strings.HasSuffix(endpoint, "/chat/completions") {
		return endpoint
	}
	if u, err := url.Parse(endpoint); err == nil && (u.Path == "" || u.Path == "/") {
		return endpoint + "/v1/chat/completions"
	}
	return endpoint + "/chat/completions"
}
