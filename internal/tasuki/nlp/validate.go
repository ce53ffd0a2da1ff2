package nlp

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// DefaultModelMaxLength caps model identifier length.
	DefaultModelMaxLength = 100

	// defaultModelPattern is the character whitelist for model identifiers.
	// Deliberately tight; deployments that use slash- or colon-qualified
	// model names (OpenRouter vendors, Ollama tags) widen it via ModelRule.
	defaultModelPattern = `^[A-Za-z0-9.-]+$`
)

var defaultModelRe = regexp.MustCompile(defaultModelPattern)

// driveLetterRe matches Windows-style absolute paths like "C:" at the start
// of a model name.
var driveLetterRe = regexp.MustCompile(`^[A-Za-z]:`)

// ValidateAPIURL is the SSRF guard for caller-supplied endpoint URLs. The
// URL must parse, carry a hostname, and use https; plain http is tolerated
// only for loopback and RFC1918 hosts (the self-hosted-model exception).
// The canonical form has any trailing slash stripped.
func ValidateAPIURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("nlp: endpoint URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("nlp: invalid endpoint URL: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("nlp: endpoint URL has no host")
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !isLocalHost(host) {
			return "", fmt.Errorf("nlp: plain http is only allowed for local endpoints, got host %q", host)
		}
	default:
		return "", fmt.Errorf("nlp: unsupported URL scheme %q", u.Scheme)
	}

	return strings.TrimSuffix(u.String(), "/"), nil
}

// ModelRule configures ValidateModelName. The zero value applies the
// defaults (100 chars, [A-Za-z0-9.-]).
type ModelRule struct {
	// MaxLength caps the identifier length; ≤ 0 means DefaultModelMaxLength.
	MaxLength int
	// Pattern is an anchored whitelist regex; empty means the default
	// character set.
	Pattern string
}

// ValidateModelName guards the model identifier that gets interpolated into
// request URLs and bodies: no blank values, no oversized values, no path
// traversal, no absolute paths, and nothing outside the whitelist.
func ValidateModelName(model string, rule ModelRule) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("nlp: model name is empty")
	}

	maxLen := rule.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultModelMaxLength
	}
	if len(model) > maxLen {
		return fmt.Errorf("nlp: model name exceeds %d characters", maxLen)
	}

	if strings.Contains(model, "..") {
		return fmt.Errorf("nlp: model name must not contain path traversal")
	}
	if strings.HasPrefix(model, "/") || strings.HasPrefix(model, `\`) || driveLetterRe.MatchString(model) {
		return fmt.Errorf("nlp: model name must not be an absolute path")
	}

	re := defaultModelRe
	if rule.Pattern != "" {
		custom, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("nlp: invalid model whitelist pattern: %w", err)
		}
		re = custom
	}
	if !re.MatchString(model) {
		return fmt.Errorf("nlp: model name contains disallowed characters")
	}
	return nil
}
