// Tasuki is the conversational command gateway binary.
//
// All configuration is loaded from environment variables. The server opens
// its SQLite database, mounts the assistant HTTP API, and translates free-
// text chat messages into structured application commands using the
// configured AI provider.
//
// Optional environment variables:
//
//	TASUKI_DATABASE_PATH    - path to the SQLite database (default "./tasuki.db")
//	TASUKI_HTTP_ADDR        - HTTP listen address (default ":8080")
//	TASUKI_AUTH_TOKEN       - bearer token protecting the API; empty disables auth
//	TASUKI_MASTER_KEY       - 64-char hex key encrypting stored API keys at rest
//	TASUKI_NLP_ENABLED      - enable the assistant by default (default "false")
//	TASUKI_NLP_API_KEY      - default provider API key
//	TASUKI_NLP_MODEL        - default chat model (default "gpt-4o-mini")
//	TASUKI_NLP_ENDPOINT     - default provider base URL (default "https://api.openai.com/v1")
//	TASUKI_RATE_LIMIT       - provider calls per session per minute (default 20)
//	TASUKI_TOKEN_BUDGET     - LLM tokens per user per UTC day (default 50000)
//	TASUKI_MAX_TOKENS       - completion cap per chat turn (default 1000)
//	TASUKI_PROVIDER_TIMEOUT - per-call provider timeout (default "30s")
//	TASUKI_SESSION_TTL      - idle session context lifetime (default "1h")
//	TASUKI_SWEEP_INTERVAL   - session sweep cadence (default "1h")
//	TASUKI_PATTERNS_FILE    - YAML file of custom heuristic patterns
//	TASUKI_MODEL_MAX_LENGTH - max model identifier length (default 100)
//	TASUKI_MODEL_PATTERN    - anchored whitelist regex for model identifiers
//	TASUKI_LOG_LEVEL        - "debug", "info", "warn", "error" (default "info")
//	TASUKI_LOG_FORMAT       - "text" or "json" (default "text")
package main

import (
	"fmt"
	"os"

	"github.com/bdobrica/Tasuki/common/crypto"
	"github.com/bdobrica/Tasuki/common/environment"
	"github.com/bdobrica/Tasuki/common/version"
	"github.com/bdobrica/Tasuki/internal/tasuki/app"
	"github.com/bdobrica/Tasuki/internal/tasuki/nlp"
	"github.com/bdobrica/Tasuki/internal/tasuki/observability"
)

func main() {
	observability.Setup(
		environment.StringOr("TASUKI_LOG_LEVEL", "info"),
		environment.StringOr("TASUKI_LOG_FORMAT", "text"),
	)

	fmt.Printf("Tasuki Conversational Gateway\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	// Load configuration from environment
	config := loadConfig()

	// Load master encryption key when configured. Without it stored API
	// keys fall back to plaintext, which app.New announces loudly.
	if raw := os.Getenv("TASUKI_MASTER_KEY"); raw != "" {
		key, err := crypto.ParseMasterKey(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: TASUKI_MASTER_KEY: %v\nGenerate a key with: openssl rand -hex 32\n", err)
			os.Exit(1)
		}
		config.MasterKey = key
	}

	// Create application
	tasuki, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Tasuki: %v\n", err)
		os.Exit(1)
	}
	defer tasuki.Stop()

	// Run application
	if err := tasuki.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Tasuki: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from environment variables
func loadConfig() *app.Config {
	return &app.Config{
		DatabasePath:    environment.StringOr("TASUKI_DATABASE_PATH", "./tasuki.db"),
		HTTPAddr:        environment.StringOr("TASUKI_HTTP_ADDR", ":8080"),
		AuthToken:       os.Getenv("TASUKI_AUTH_TOKEN"),
		NLPEnabled:      environment.BoolOr("TASUKI_NLP_ENABLED", false),
		NLPAPIKey:       os.Getenv("TASUKI_NLP_API_KEY"),
		NLPModel:        environment.StringOr("TASUKI_NLP_MODEL", "gpt-4o-mini"),
		NLPEndpoint:     environment.StringOr("TASUKI_NLP_ENDPOINT", "https://api.openai.com/v1"),
		RateLimit:       environment.IntOr("TASUKI_RATE_LIMIT", 0),
		TokenBudget:     environment.IntOr("TASUKI_TOKEN_BUDGET", 0),
		MaxTokens:       environment.IntOr("TASUKI_MAX_TOKENS", 0),
		ProviderTimeout: environment.DurationOr("TASUKI_PROVIDER_TIMEOUT", 0),
		SessionTTL:      environment.DurationOr("TASUKI_SESSION_TTL", 0),
		SweepInterval:   environment.DurationOr("TASUKI_SWEEP_INTERVAL", 0),
		PatternsFile:    os.Getenv("TASUKI_PATTERNS_FILE"),
		ModelRule: nlp.ModelRule{
			MaxLength: environment.IntOr("TASUKI_MODEL_MAX_LENGTH", 0),
			Pattern:   os.Getenv("TASUKI_MODEL_PATTERN"),
		},
	}
}
