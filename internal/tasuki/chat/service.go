// Package chat implements the assistant orchestrator. One HandleChat call
// runs a full turn: enablement and guardrail checks, session context
// refresh, the provider call, command extraction and validation, chain
// resolution, context update, and the structured response. Every failure
// mode converts to a Response with Success false; nothing escapes as an
// error to the transport layer.
package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bdobrica/Tasuki/common/trace"
	"github.com/bdobrica/Tasuki/internal/tasuki/catalog"
	"github.com/bdobrica/Tasuki/internal/tasuki/command"
	"github.com/bdobrica/Tasuki/internal/tasuki/nlp"
	"github.com/bdobrica/Tasuki/internal/tasuki/observability"
	"github.com/bdobrica/Tasuki/internal/tasuki/session"
	"github.com/bdobrica/Tasuki/internal/tasuki/settings"
	"github.com/bdobrica/Tasuki/internal/tasuki/store"
)

const (
	// DefaultUserID is assumed when a request does not identify its user.
	DefaultUserID = "default"
	// DefaultMaxTokens bounds the completion size of a chat turn.
	DefaultMaxTokens = 1000

	sessionIDPrefix = "sess_"
	testPrompt      = "Reply with a single word: OK"
	testMaxTokens   = 16
)

// User-facing messages for conditions detected before or around the
// provider call. Provider-level conditions have their messages in nlp.
const (
	DisabledMessage = "The AI assistant is not enabled for your account. " +
		"Turn it on in the assistant settings."
	MissingKeyMessage = "No API key is configured for the AI assistant. " +
		"Add one in the assistant settings."
	InvalidEndpointMessage = "The configured endpoint URL is not allowed. " +
		"Use an https URL or a local network address."
	InvalidModelMessage = "The configured model name is not valid. " +
		"Check the assistant settings."
	SettingsUnavailableMessage = "The assistant settings are unavailable right now. " +
		"Please try again."
	ProviderFailedMessage = "The AI provider returned an unexpected error. " +
		"Please try again."
	LookupFailedMessage = "I couldn't verify your workspaces and projects just now. " +
		"Please try again in a moment."
	TestSuccessMessage = "Connection successful. The model is reachable and replied."
)

// SettingsSource yields the effective assistant configuration for a user.
type SettingsSource interface {
	Assistant(ctx context.Context, userID string) (settings.Assistant, error)
}

// Completer is the slice of the provider client the orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, endpoint, apiKey, model string, messages []nlp.ChatMessage, maxTokens int) (nlp.Reply, error)
}

// Resolver expands a command into its prerequisite chain.
type Resolver interface {
	Resolve(ctx context.Context, cmd command.ActionCommand) ([]command.ActionCommand, error)
}

// WorkspaceDirectory lists workspace slugs for the system prompt.
type WorkspaceDirectory interface {
	FindAllSlugs(ctx context.Context, organizationID string) ([]string, error)
}

// AuditWriter records completed chat turns. Writes are best-effort.
type AuditWriter interface {
	WriteChatAudit(ctx context.Context, entry *store.ChatAuditEntry) error
}

// Config assembles a Service. RateLimiter, TokenBudget, Audit, and
// Workspaces may be nil; the corresponding step is skipped.
type Config struct {
	Settings    SettingsSource
	Sessions    *session.Updater
	Workspaces  WorkspaceDirectory
	Chains      Resolver
	Completer   Completer
	Catalog     *catalog.Catalog
	RateLimiter *nlp.RateLimiter
	TokenBudget *nlp.TokenBudget
	Audit       AuditWriter
	ModelRule   nlp.ModelRule
	MaxTokens   int
}

// Service runs assistant turns. Safe for concurrent use; per-session state
// lives in the session store, not here.
type Service struct {
	settings  SettingsSource
	sessions  *session.Updater
	wsDir     WorkspaceDirectory
	chains    Resolver
	completer Completer
	catalog   *catalog.Catalog
	limiter   *nlp.RateLimiter
	budget    *nlp.TokenBudget
	audit     AuditWriter
	modelRule nlp.ModelRule
	maxTokens int
}

// New builds a Service from cfg. A nil Catalog falls back to the default
// command set; a non-positive MaxTokens falls back to DefaultMaxTokens.
func New(cfg Config) *Service {
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Service{
		settings:  cfg.Settings,
		sessions:  cfg.Sessions,
		wsDir:     cfg.Workspaces,
		chains:    cfg.Chains,
		completer: cfg.Completer,
		catalog:   cat,
		limiter:   cfg.RateLimiter,
		budget:    cfg.TokenBudget,
		audit:     cfg.Audit,
		modelRule: cfg.ModelRule,
		maxTokens: maxTokens,
	}
}

// NewSessionID mints an identifier for requests that start a fresh
// conversation.
func NewSessionID() string {
	return sessionIDPrefix + uuid.NewString()
}

// HandleChat runs one assistant turn. The returned Response always echoes
// the effective session ID so callers can continue a generated session.
func (s *Service) HandleChat(ctx context.Context, req Request) Response {
	log := observability.WithTrace(ctx)

	userID := req.UserID
	if userID == "" {
		userID = DefaultUserID
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	if strings.TrimSpace(req.Message) == "" {
		return Response{Message: "Please enter a message.", SessionID: sessionID,
			Success: false, Error: "empty message"}
	}

	cfg, err := s.settings.Assistant(ctx, userID)
	if err != nil {
		log.Error("chat: settings lookup failed", "user_id", userID, "err", err)
		return s.fail(ctx, req, sessionID, userID, SettingsUnavailableMessage, err)
	}
	if !cfg.Enabled {
		return s.fail(ctx, req, sessionID, userID, DisabledMessage,
			errors.New("assistant is disabled"))
	}
	// Local models run unauthenticated; everything else needs a key.
	if cfg.APIKey == "" && nlp.Classify(cfg.Endpoint) != nlp.KindOllama {
		return s.fail(ctx, req, sessionID, userID, MissingKeyMessage,
			errors.New("api key not configured"))
	}

	// Refusals below are conversational: the turn succeeds, the request is
	// just not forwarded to the provider.
	if LooksLikeSecret(req.Message) {
		log.Info("chat: message refused by secret guardrail", "session_id", sessionID)
		return Response{Message: SecretGuardrailMessage, SessionID: sessionID, Success: true}
	}
	if s.limiter != nil && !s.limiter.Allow(sessionID) {
		return Response{Message: nlp.RateLimitMessage, SessionID: sessionID, Success: true}
	}
	if s.budget != nil && !s.budget.Allow(userID) {
		log.Info("chat: daily token budget exhausted", "user_id", userID,
			"budget", s.budget.Budget())
		return Response{Message: nlp.TokenBudgetExceededMessage, SessionID: sessionID, Success: true}
	}

	sctx := s.sessions.Refresh(sessionID, req.WorkspaceID, req.ProjectID, req.Message)

	var workspaceSlugs []string
	if s.wsDir != nil {
		if slugs, err := s.wsDir.FindAllSlugs(ctx, req.OrganizationID); err == nil {
			workspaceSlugs = slugs
		} else {
			log.Warn("chat: workspace listing failed, prompting without it", "err", err)
		}
	}

	endpoint, err := nlp.ValidateAPIURL(cfg.Endpoint)
	if err != nil {
		return s.fail(ctx, req, sessionID, userID, InvalidEndpointMessage, err)
	}
	if err := nlp.ValidateModelName(cfg.Model, s.modelRule); err != nil {
		return s.fail(ctx, req, sessionID, userID, InvalidModelMessage, err)
	}

	system := nlp.BuildSystemPrompt(s.catalog, sctx, workspaceSlugs)
	messages := nlp.BuildMessages(system, req.History, req.Message)

	reply, err := s.completer.Complete(ctx, endpoint, cfg.APIKey, cfg.Model, messages, s.maxTokens)
	if err != nil {
		log.Warn("chat: provider call failed", "session_id", sessionID, "err", err)
		msg, detail := mapProviderError(err)
		return s.fail(ctx, req, sessionID, userID, msg, errors.New(detail))
	}

	if s.budget != nil && reply.Usage.TotalTokens > 0 {
		s.budget.RecordUsage(userID, reply.Usage.TotalTokens)
	}
	log.Info("chat: token usage",
		"user_id", userID,
		"session_id", sessionID,
		"prompt_tokens", reply.Usage.PromptTokens,
		"completion_tokens", reply.Usage.CompletionTokens,
		"total_tokens", reply.Usage.TotalTokens,
	)

	cmd, text := command.Extract(reply.Text)
	if cmd == nil {
		return Response{Message: text, SessionID: sessionID, Success: true}
	}

	if vr := command.ValidateParams(s.catalog, *cmd); !vr.Valid {
		// A clarification is a successful turn that withholds the action:
		// no chain resolution, no context mutation.
		return Response{Message: clarification(text, vr), SessionID: sessionID, Success: true}
	}

	chain, err := s.chains.Resolve(ctx, *cmd)
	if err != nil {
		log.Error("chat: chain resolution failed", "command", cmd.Name, "err", err)
		return s.fail(ctx, req, sessionID, userID, LookupFailedMessage, err)
	}

	steps := chain
	if len(steps) == 0 {
		steps = []command.ActionCommand{*cmd}
	}
	for _, step := range steps {
		s.sessions.ApplyCommand(ctx, sessionID, step)
	}

	final := *cmd
	if len(chain) > 0 {
		final = chain[len(chain)-1]
	}
	message := text
	if message == "" {
		message = acknowledgement(final)
	}

	resp := Response{
		Message:   message,
		SessionID: sessionID,
		Action:    &final,
		Success:   true,
	}
	if len(chain) > 0 {
		resp.ActionChain = chain
	}
	s.writeAudit(ctx, req, sessionID, userID, resp)
	return resp
}

// TestConnection performs one round trip against candidate credentials
// without touching stored settings. It never returns an error; failures
// are reported in the TestResponse.
func (s *Service) TestConnection(ctx context.Context, req TestRequest) TestResponse {
	endpoint, err := nlp.ValidateAPIURL(req.APIURL)
	if err != nil {
		return TestResponse{Message: InvalidEndpointMessage, Error: err.Error()}
	}
	if err := nlp.ValidateModelName(req.Model, s.modelRule); err != nil {
		return TestResponse{Message: InvalidModelMessage, Error: err.Error()}
	}

	messages := []nlp.ChatMessage{{Role: nlp.RoleUser, Content: testPrompt}}
	if _, err := s.completer.Complete(ctx, endpoint, req.APIKey, req.Model, messages, testMaxTokens); err != nil {
		observability.WithTrace(ctx).Info("chat: connection test failed", "err", err)
		msg, detail := mapProviderError(err)
		return TestResponse{Message: msg, Error: detail}
	}
	return TestResponse{Success: true, Message: TestSuccessMessage}
}

// ClearContext drops the stored context for sessionID. Clearing an unknown
// session is a no-op.
func (s *Service) ClearContext(sessionID string) {
	s.sessions.Clear(sessionID)
}

// fail converts an error into a structured failure response and records it
// in the audit trail.
func (s *Service) fail(ctx context.Context, req Request, sessionID, userID, message string, err error) Response {
	resp := Response{Message: message, SessionID: sessionID, Success: false}
	if err != nil {
		resp.Error = err.Error()
	}
	s.writeAudit(ctx, req, sessionID, userID, resp)
	return resp
}

// writeAudit records the turn. Audit failures are logged and swallowed so
// they never break the chat path.
func (s *Service) writeAudit(ctx context.Context, req Request, sessionID, userID string, resp Response) {
	if s.audit == nil {
		return
	}
	entry := &store.ChatAuditEntry{
		TraceID:     trace.FromContext(ctx),
		SessionID:   sessionID,
		UserID:      userID,
		UserMessage: req.Message,
		Reply:       resp.Message,
		Success:     resp.Success,
	}
	if resp.Action != nil {
		entry.CommandName = sql.NullString{String: resp.Action.Name, Valid: true}
	}
	if len(resp.ActionChain) > 0 {
		if b, err := json.Marshal(resp.ActionChain); err == nil {
			entry.ChainJSON = sql.NullString{String: string(b), Valid: true}
		}
	}
	if resp.Error != "" {
		entry.ErrorMessage = sql.NullString{String: resp.Error, Valid: true}
	}
	if err := s.audit.WriteChatAudit(ctx, entry); err != nil {
		observability.WithTrace(ctx).Warn("audit write failed", "op", "chat", "err", err)
	}
}

// mapProviderError translates a provider failure into its user-facing
// message plus the detail string for the response's error field.
func mapProviderError(err error) (message, detail string) {
	detail = err.Error()
	switch {
	case errors.Is(err, nlp.ErrInvalidAPIKey):
		return nlp.InvalidKeyMessage, detail
	case errors.Is(err, nlp.ErrRateLimited):
		return nlp.APIRateLimitMessage, detail
	case errors.Is(err, nlp.ErrInsufficientCredits):
		return nlp.CreditsMessage, detail
	case errors.Is(err, nlp.ErrModelNotFound):
		return nlp.ModelNotFoundMessage, detail
	case nlp.IsNetworkError(err):
		return nlp.NetworkErrorMessage, detail
	default:
		return ProviderFailedMessage, detail
	}
}

// clarification builds the reply for a command that failed validation,
// keeping whatever conversational text surrounded the command block.
func clarification(text string, vr command.ValidationResult) string {
	var ask string
	if vr.Reason != "" {
		ask = "I couldn't match that to an action I know. Could you rephrase it?"
	} else {
		ask = fmt.Sprintf("I need a bit more information before I can do that: please provide %s.",
			humanList(vr.Missing))
	}
	if text == "" {
		return ask
	}
	return text + "\n\n" + ask
}

func humanList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// acknowledgement is the fallback reply when the model emitted a command
// block with no surrounding text.
func acknowledgement(cmd command.ActionCommand) string {
	switch cmd.Name {
	case "createWorkspace":
		if name := command.StringParam(cmd.Parameters, "name"); name != "" {
			return fmt.Sprintf("Creating workspace %q.", name)
		}
		return "Creating the workspace."
	case "editWorkspace":
		return "Updating the workspace."
	case "navigateToWorkspace":
		if name := firstParam(cmd, "workspaceName", "workspaceSlug"); name != "" {
			return fmt.Sprintf("Switching to workspace %q.", name)
		}
		return "Switching workspaces."
	case "createProject":
		if name := command.StringParam(cmd.Parameters, "name"); name != "" {
			return fmt.Sprintf("Creating project %q.", name)
		}
		return "Creating the project."
	case "navigateToProject":
		if name := firstParam(cmd, "name", "projectSlug"); name != "" {
			return fmt.Sprintf("Opening project %q.", name)
		}
		return "Opening the project."
	case "createTask":
		if title := command.StringParam(cmd.Parameters, "taskTitle"); title != "" {
			return fmt.Sprintf("Creating task %q.", title)
		}
		return "Creating the task."
	case "editTask":
		return "Updating the task."
	case "completeTask":
		return "Marking the task as complete."
	case "deleteTask":
		return "Deleting the task."
	case "addComment":
		return "Adding your comment to the task."
	default:
		return "Done."
	}
}

func firstParam(cmd command.ActionCommand, keys ...string) string {
	for _, k := range keys {
		if v := command.StringParam(cmd.Parameters, k); v != "" {
			return v
		}
	}
	return ""
}
