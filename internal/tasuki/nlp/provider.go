// Package nlp talks to external AI completion APIs on behalf of the chat
// gateway.
//
// The package presents one uniform contract over five structurally different
// provider wire formats: classify the configured endpoint into a provider
// kind, build the provider-specific request, and parse the provider-specific
// reply back into plain text. Everything above this package works with
// canonical ChatMessage turns and plain strings.
//
// Security invariants (unchanged by this layer):
//   - The model only proposes commands; it never executes them.
//   - Endpoint URLs are SSRF-guarded before any request is built: https
//     only, except for loopback and RFC1918 hosts running local models.
//   - Model identifiers are validated against a character whitelist so they
//     can never smuggle path traversal into the request URL.
//   - API keys appear in exactly one outbound request header (or query
//     parameter, for Google) and are never logged.
//   - Rate limiting and daily token budgets bound runaway spend per caller.
package nlp

import "errors"

// Sentinel errors for the upstream status codes the gateway maps to specific
// user-facing messages. Everything else surfaces the provider's own error
// body text.
var (
	// ErrInvalidAPIKey is returned on HTTP 401: the provider rejected the
	// configured credential.
	ErrInvalidAPIKey = errors.New("nlp: invalid API key")

	// ErrRateLimited is returned on HTTP 429: the provider is throttling.
	ErrRateLimited = errors.New("nlp: upstream rate limit exceeded")

	// ErrInsufficientCredits is returned on HTTP 402: the provider account
	// has no spend left (OpenRouter reports this for exhausted balances).
	ErrInsufficientCredits = errors.New("nlp: insufficient credits")

	// ErrModelNotFound is returned on HTTP 404. Only the connection-test
	// path maps this to a specific message; during chat a 404 falls through
	// to the generic upstream error text.
	ErrModelNotFound = errors.New("nlp: model not found")

	// ErrEmptyReply is returned when the provider answers 2xx but the body
	// carries no completion text.
	ErrEmptyReply = errors.New("nlp: empty completion in provider reply")
)

// Canonical chat roles. Adapters rename these where a provider demands it
// (Google has no "assistant" or "system" role on the wire).
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single canonical conversation turn: the system prompt,
// a history turn supplied by the caller, or the current user message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage carries the token counts reported by the upstream API for a
// single completion call. Fields are zero-valued when the provider does not
// report usage data.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the input.
	PromptTokens int
	// CompletionTokens is the number of tokens in the reply.
	CompletionTokens int
	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// Reply is a parsed provider response: the completion text plus whatever
// usage accounting the provider included.
type Reply struct {
	Text  string
	Usage TokenUsage
}

// User-facing messages for the mapped failure conditions. Defined here so
// callers do not hard-code them.
const (
	// InvalidKeyMessage is surfaced on ErrInvalidAPIKey.
	InvalidKeyMessage = "The AI provider rejected your API key. Please check the assistant settings."

	// APIRateLimitMessage is surfaced on ErrRateLimited. Unlike the
	// per-session client-side limit, this means the provider itself is
	// throttled.
	APIRateLimitMessage = "The AI provider is rate limiting requests right now. Please wait a moment and try again."

	// CreditsMessage is surfaced on ErrInsufficientCredits.
	CreditsMessage = "The AI provider reports insufficient credits for this request. Please top up your account."

	// ModelNotFoundMessage is surfaced on ErrModelNotFound from the
	// connection-test path.
	ModelNotFoundMessage = "The configured model was not found at this endpoint. Please check the model name."

	// NetworkErrorMessage is surfaced when the failure is transport-level
	// rather than an HTTP status from the provider.
	NetworkErrorMessage = "Could not reach the AI provider. Please check your connection and the endpoint URL."

	// RateLimitMessage is the reply for callers who exceed the per-session
	// request limit.
	RateLimitMessage = "I'm handling too many requests from this session right now. Please try again in a moment."

	// TokenBudgetExceededMessage is the reply for callers who have exhausted
	// their daily token allowance.
	TokenBudgetExceededMessage = "I've reached the daily assistant usage limit for your account. Please try again tomorrow."
)
