package nlp

import "net/http"

// WireRequest is a fully shaped provider HTTP request: final URL, auth and
// content headers, and the marshalled body.
type WireRequest struct {
	URL    string
	Header http.Header
	Body   []byte
}

// Adapter builds and parses the wire format of one provider family.
// Implementations are stateless and safe for concurrent use. Supporting a
// new provider means adding an adapter, not editing a shared conditional.
type Adapter interface {
	// Kind identifies the wire format this adapter speaks.
	Kind() Kind

	// BuildRequest shapes the canonical messages into the provider's body,
	// resolves the final URL from the validated endpoint, and sets whatever
	// auth the provider expects. endpoint must already have passed
	// ValidateAPIURL.
	BuildRequest(endpoint, apiKey, model string, messages []ChatMessage, maxTokens int) (WireRequest, error)

	// ParseReply extracts the completion text and token usage from a 2xx
	// response body.
	ParseReply(raw []byte) (Reply, error)
}

// AdapterFor returns the adapter for a provider kind. Custom endpoints are
// assumed to speak the OpenAI-compatible dialect, which is the de facto
// standard for self-hosted gateways.
func AdapterFor(kind Kind) Adapter {
	switch kind {
	case KindAnthropic:
		return anthropicAdapter{}
	case KindGoogle:
		return googleAdapter{}
	case KindOllama:
		return ollamaAdapter{}
	case KindOpenAI:
		return openAIAdapter{kind: KindOpenAI}
	case KindOpenRouter:
		return openAIAdapter{kind: KindOpenRouter}
	default:
		return openAIAdapter{kind: KindCustom}
	}
}
