package nlp

import (
	"net"
	"net/url"
	"strings"
)

// Kind identifies which wire format an endpoint speaks.
type Kind string

const (
	KindOllama     Kind = "ollama"
	KindOpenRouter Kind = "openrouter"
	KindOpenAI     Kind = "openai"
	KindAnthropic  Kind = "anthropic"
	KindGoogle     Kind = "google"
	KindCustom     Kind = "custom"
)

// namedHosts maps known SaaS hostnames to their provider kind. Subdomains of
// these hosts classify the same way.
var namedHosts = map[string]Kind{
	"openrouter.ai":                     KindOpenRouter,
	"api.openai.com":                    KindOpenAI,
	"api.anthropic.com":                 KindAnthropic,
	"generativelanguage.googleapis.com": KindGoogle,
}

// Classify derives the provider kind from an endpoint URL. Loopback and
// RFC1918 hosts classify as ollama (local, unauthenticated models) before
// any hostname matching; known SaaS hostnames and their subdomains map to
// their named provider; everything else is custom.
func Classify(endpoint string) Kind {
	u, err := url.Parse(endpoint)
	if err != nil {
		return KindCustom
	}
	host := strings.ToLower(u.Hostname())

	if isLocalHost(host) {
		return KindOllama
	}

	for domain, kind := range namedHosts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return kind
		}
	}
	return KindCustom
}

// isLocalHost reports whether host is loopback or an RFC1918 private
// address.
func isLocalHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
