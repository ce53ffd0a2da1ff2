package chat

import "regexp"

// namedSecretPatterns matches well-known credential formats that should never
// be forwarded to a third-party AI provider. Each pattern is intentionally
// specific (vendor prefix + sufficient length) to keep the false-positive
// rate low.
var namedSecretPatterns = []*regexp.Regexp{
	// OpenAI API key — classic and project variants
	regexp.MustCompile(`\bsk-[A-Za-z0-9]{20,}\b`),
	regexp.MustCompile(`\bsk-proj-[A-Za-z0-9_\-]{20,}\b`),
	// Anthropic
	regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{20,}\b`),
	// AWS access key ID
	regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`),
	// GitHub tokens (personal, OAuth, fine-grained)
	regexp.MustCompile(`\bghp_[A-Za-z0-9]{36,}\b`),
	regexp.MustCompile(`\bgho_[A-Za-z0-9]{36,}\b`),
	regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{20,}\b`),
	// Slack tokens
	regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9\-]{10,}\b`),
	// Stripe secret / restricted / public keys
	regexp.MustCompile(`\b(?:sk|rk|pk)_(?:live|test)_[A-Za-z0-9]{20,}\b`),
}

// genericSecretPatterns catches high-entropy strings that are unlikely to
// appear in normal prose about tasks and projects.
var genericSecretPatterns = []*regexp.Regexp{
	// Long base64 segment (≥48 contiguous chars from the base64 alphabet).
	// Using 48 instead of 40 avoids false positives from SHA-1 hashes (40
	// chars) while still catching SHA-256 hashes (64 chars) and longer API
	// tokens.
	regexp.MustCompile(`[A-Za-z0-9+/]{48,}={0,2}`),
	// Long lowercase hex (≥48 chars).
	regexp.MustCompile(`[0-9a-f]{48,}`),
}

// LooksLikeSecret reports whether body appears to contain a sensitive
// credential. Matching messages are refused before any provider call so that
// keys never reach a third-party API or linger in the session context.
func LooksLikeSecret(body string) bool {
	for _, re := range namedSecretPatterns {
		if re.MatchString(body) {
			return true
		}
	}
	for _, re := range genericSecretPatterns {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

// SecretGuardrailMessage is the reply sent when a message is rejected by the
// secret-in-chat guardrail.
const SecretGuardrailMessage = "⛔ That looks like a secret. " +
	"I won't send credentials to the AI provider — please remove it from the message " +
	"and store API keys through the assistant settings instead."
