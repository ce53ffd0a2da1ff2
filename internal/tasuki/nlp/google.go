package nlp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// --- minimal Gemini wire types ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// googleAdapter speaks the Gemini generateContent API: contents[].parts[]
// instead of flat messages, non-user roles renamed to "model", and the API
// key passed as a query parameter, never a header.
type googleAdapter struct{}

func (googleAdapter) Kind() Kind { return KindGoogle }

func (googleAdapter) BuildRequest(endpoint, apiKey, model string, messages []ChatMessage, maxTokens int) (WireRequest, error) {
	var body geminiRequest
	for _, m := range messages {
		role := "user"
		if m.Role == RoleAssistant || m.Role == RoleSystem {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	body.GenerationConfig.MaxOutputTokens = maxTokens

	data, err := json.Marshal(body)
	if err != nil {
		return WireRequest{}, fmt.Errorf("nlp: marshal request: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	// The model name is embedded in the URL path; ValidateModelName has
	// already rejected traversal and path separators.
	return WireRequest{
		URL:    geminiGenerateURL(endpoint, model) + "?key=" + url.QueryEscape(apiKey),
		Header: header,
		Body:   data,
	}, nil
}

func (googleAdapter) ParseReply(raw []byte) (Reply, error) {
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Reply{}, fmt.Errorf("nlp: decode provider reply: %w", err)
	}
	if resp.Error != nil {
		return Reply{}, fmt.Errorf("nlp: provider error (code %d): %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 ||
		strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text) == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{
		Text: resp.Candidates[0].Content.Parts[0].Text,
		Usage: TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// geminiGenerateURL resolves the generateContent URL for a model. A bare
// host gets the conventional /v1beta prefix.
func geminiGenerateURL(endpoint, model string) string {
	suffix := "/models/" + model + ":generateContent"
	if u, err := url.Parse(endpoint); err == nil && (u.Path == "" || u.Path == "/") {
		return endpoint + "/v1beta" + suffix
	}
	return endpoint + suffix
}
