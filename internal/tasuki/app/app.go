// Package app provides the main Tasuki application
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bdobrica/Tasuki/internal/tasuki/chat"
	"github.com/bdobrica/Tasuki/internal/tasuki/command"
	"github.com/bdobrica/Tasuki/internal/tasuki/gateway"
	"github.com/bdobrica/Tasuki/internal/tasuki/nlp"
	"github.com/bdobrica/Tasuki/internal/tasuki/session"
	"github.com/bdobrica/Tasuki/internal/tasuki/settings"
	"github.com/bdobrica/Tasuki/internal/tasuki/store"
)

// Config holds application configuration
type Config struct {
	DatabasePath string

	// MasterKey encrypts API keys at rest. When empty, keys are stored in
	// plaintext (development mode).
	MasterKey []byte

	// HTTPAddr is the TCP address the API server binds to (e.g. ":8080").
	// Defaults to ":8080" when empty.
	HTTPAddr string

	// AuthToken protects every endpoint except /health. When empty,
	// authentication is disabled.
	AuthToken string

	// --- Assistant defaults (per-user settings override these) ---

	// NLPEnabled turns the assistant on for users who have not set the flag
	// themselves.
	NLPEnabled bool

	// NLPAPIKey is the bootstrap provider API key, normally sourced from the
	// environment. Users can store their own key via the settings API.
	NLPAPIKey string

	// NLPModel is the default chat model. Defaults to "gpt-4o-mini" when
	// empty (applied by the settings store).
	NLPModel string

	// NLPEndpoint is the default base URL of the provider API, e.g.:
	//   https://api.openai.com/v1  (OpenAI)
	//   http://localhost:11434     (Ollama)
	//   https://openrouter.ai/api/v1
	NLPEndpoint string

	// RateLimit is the maximum number of provider calls allowed per session
	// per minute. Defaults to nlp.DefaultRateLimit (20) when zero.
	RateLimit int

	// TokenBudget is the maximum number of LLM tokens allowed per user per
	// UTC day. Defaults to nlp.DefaultTokenBudget (50 000) when zero.
	TokenBudget int

	// MaxTokens bounds the completion size of a single chat turn. Defaults
	// to chat.DefaultMaxTokens when zero.
	MaxTokens int

	// ProviderTimeout is the per-call HTTP timeout against the provider.
	// Defaults to nlp.DefaultTimeout when zero.
	ProviderTimeout time.Duration

	// SessionTTL is how long an idle session context survives before the
	// sweep removes it. Defaults to session.DefaultTTL (1 h) when zero.
	SessionTTL time.Duration

	// SweepInterval is how often the background sweep runs. Defaults to
	// session.DefaultSweepInterval (1 h) when zero.
	SweepInterval time.Duration

	// PatternsFile optionally points at a YAML file of custom heuristic
	// extraction patterns. When empty the built-in patterns are used.
	PatternsFile string

	// ModelRule constrains user-supplied model identifiers. The zero value
	// applies the defaults.
	ModelRule nlp.ModelRule
}

// App is the main Tasuki application
type App struct {
	config   *Config
	store    *store.Store
	sessions *session.MemoryStore
	updater  *session.Updater
	service  *chat.Service
	server   *HTTPServer
}

// New creates a new Tasuki application
func New(config *Config) (*App, error) {
	if config.HTTPAddr == "" {
		config.HTTPAddr = ":8080"
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = session.DefaultTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = session.DefaultSweepInterval
	}

	// Initialize database
	slog.Info("opening database", "path", config.DatabasePath)
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize settings store. The environment-sourced values act as
	// process-wide defaults that per-user stored settings override.
	settingsStore := settings.New(st, config.MasterKey, settings.Defaults{
		Enabled:  config.NLPEnabled,
		APIKey:   config.NLPAPIKey,
		Model:    config.NLPModel,
		Endpoint: config.NLPEndpoint,
	})
	slog.Info("settings store ready",
		"default_enabled", config.NLPEnabled,
		"encryption", len(config.MasterKey) > 0)

	// Load custom heuristic patterns when configured; fall back to the
	// built-in set on any failure so a bad file never blocks startup.
	var heuristics *session.Heuristics
	if config.PatternsFile != "" {
		h, err := session.LoadPatterns(config.PatternsFile)
		if err != nil {
			slog.Warn("custom patterns unavailable; using built-in heuristics",
				"path", config.PatternsFile, "err", err)
		} else {
			heuristics = h
			slog.Info("custom heuristic patterns loaded", "path", config.PatternsFile)
		}
	}

	// Initialize session context store and its updater.
	sessions := session.NewMemoryStore()
	updater := session.NewUpdater(sessions, st, st, heuristics)

	// Provider client, rate-limiter, and token budget are always
	// initialised so they take effect the moment the assistant is enabled.
	completer := nlp.NewClient(nlp.Config{Timeout: config.ProviderTimeout})
	rateLimiter := nlp.NewRateLimiter(config.RateLimit, time.Minute)
	tokenBudget := nlp.NewTokenBudget(config.TokenBudget)
	slog.Info("provider client ready",
		"rate_limit_per_minute", config.RateLimit,
		"daily_tokens_per_user", tokenBudget.Budget())

	// Assemble the chat orchestrator.
	service := chat.New(chat.Config{
		Settings:    settingsStore,
		Sessions:    updater,
		Workspaces:  st,
		Chains:      command.NewChainResolver(st, st),
		Completer:   completer,
		RateLimiter: rateLimiter,
		TokenBudget: tokenBudget,
		Audit:       st,
		ModelRule:   config.ModelRule,
		MaxTokens:   config.MaxTokens,
	})

	// Build the HTTP server and mount the assistant API on it.
	server := NewHTTPServer(config.HTTPAddr, config.AuthToken, st, sessions)
	gw := gateway.New(gateway.Config{
		Chat:      service,
		Settings:  settingsStore,
		Audit:     st,
		ModelRule: config.ModelRule,
	})
	gw.RegisterRoutes(server)
	slog.Info("assistant API routes registered", "addr", config.HTTPAddr)

	return &App{
		config:   config,
		store:    st,
		sessions: sessions,
		updater:  updater,
		service:  service,
		server:   server,
	}, nil
}

// Run starts the Tasuki application
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// Sweep idle session contexts in the background so abandoned
	// conversations do not accumulate.
	go func() {
		ticker := time.NewTicker(a.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.updater.Sweep(a.config.SessionTTL); n > 0 {
					slog.Info("session sweep", "removed", n)
				}
			}
		}
	}()

	slog.Info("Tasuki is running; press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop stops the Tasuki application
func (a *App) Stop() {
	slog.Info("stopping HTTP server")
	a.server.Stop()

	slog.Info("closing database")
	a.store.Close()
}
