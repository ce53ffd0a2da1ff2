package nlp

import (
	"fmt"
	"strings"

	"github.com/bdobrica/Tasuki/internal/tasuki/catalog"
	"github.com/bdobrica/Tasuki/internal/tasuki/session"
)

// maxHistoryTurns bounds how many prior conversation turns are replayed to
// the provider. Older turns are dropped from the front so the prompt cannot
// grow without limit across a long session.
const maxHistoryTurns = 20

// systemPromptTemplate is the complete LLM "system" message template.
//
// Substitution variables (in order via fmt.Sprintf):
//  1. %s - formatted command catalog (catalog.Catalog.String())
//  2. %s - known workspace slugs, comma separated
//  3. %s - current session context block (renderContext)
//
// This constant is defined here (not in client.go) so it can be tested and
// extended independently of the HTTP transport layer.
const systemPromptTemplate = `You are Tasuki, a friendly project management assistant inside a task tracking application.

You chat with the user in plain language and, when the user asks for something actionable, you emit exactly one structured command for the application to execute. You NEVER execute anything yourself.

AVAILABLE COMMANDS:
%s
KNOWN WORKSPACES (slugs): %s

CURRENT CONTEXT:
%s

RULES (strict, do not deviate):
1. Reply to the user conversationally in plain text. Keep replies short and helpful.
2. When the user asks to create, change, navigate, or delete something, append the matching
   command as the LAST line of your reply, on its own line, in exactly this format:
   [COMMAND: commandName] {"param": "value"}
3. Only use command names and parameters from the AVAILABLE COMMANDS list. Never invent
   commands or parameters.
4. Use the slugs from CURRENT CONTEXT when the user does not name a workspace or project
   explicitly. Do not ask for information the context already provides.
5. Slugs are lowercase with hyphens instead of spaces (for example "My Workspace" has the
   slug "my-workspace").
6. If the request is ambiguous or missing required details, ask a short clarifying question
   instead of emitting a command. Do not guess.
7. Never include API keys, tokens, passwords, or any credentials in your reply.
8. For greetings, questions, and chit-chat, reply in plain text with no command block.
9. Emit at most one command block per reply.`

// workspaceSummary formats the known workspace slugs for the system prompt.
// Returns a sentinel string when the slice is empty so the LLM understands
// no workspaces exist yet and should propose creating one.
func workspaceSummary(slugs []string) string {
	if len(slugs) == 0 {
		return "(none yet)"
	}
	return strings.Join(slugs, ", ")
}

// renderContext formats the session context block so the LLM can fill in
// slugs the user left implicit. The sibling project list lets it answer
// "which project?" questions without an extra lookup.
func renderContext(sctx session.Context) string {
	if sctx.WorkspaceSlug == "" {
		return "(no workspace selected yet)"
	}

	var sb strings.Builder
	sb.WriteString("- Current workspace slug: ")
	sb.WriteString(sctx.WorkspaceSlug)
	sb.WriteString("\n")
	if sctx.WorkspaceName != "" {
		sb.WriteString("- Current workspace name: ")
		sb.WriteString(sctx.WorkspaceName)
		sb.WriteString("\n")
	}
	if sctx.ProjectSlug != "" {
		sb.WriteString("- Current project slug: ")
		sb.WriteString(sctx.ProjectSlug)
		sb.WriteString("\n")
	}
	if sctx.ProjectName != "" {
		sb.WriteString("- Current project name: ")
		sb.WriteString(sctx.ProjectName)
		sb.WriteString("\n")
	}
	if len(sctx.SiblingProjectSlugs) > 0 {
		sb.WriteString("- Projects in this workspace: ")
		sb.WriteString(strings.Join(sctx.SiblingProjectSlugs, ", "))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BuildSystemPrompt constructs the complete LLM system prompt.
//
// cat is the full command catalog to present to the LLM. Callers should
// pass catalog.Default() unless they need to restrict the available
// commands.
//
// sctx is the caller's session context so the LLM can resolve "this
// workspace" and "the current project" without asking.
//
// workspaceSlugs should be every workspace slug the caller can see. Pass
// nil when none exist yet.
//
// This function is called on every chat request so the LLM always sees
// fresh context (no stale caching between calls).
func BuildSystemPrompt(cat *catalog.Catalog, sctx session.Context, workspaceSlugs []string) string {
	return fmt.Sprintf(
		systemPromptTemplate,
		cat.String(),
		workspaceSummary(workspaceSlugs),
		renderContext(sctx),
	)
}

// BuildMessages assembles the ordered message sequence for one completion
// call: one system turn, up to maxHistoryTurns prior turns supplied by the
// caller, then the current user message.
func BuildMessages(system string, history []ChatMessage, userMessage string) []ChatMessage {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: system})
	for _, turn := range history {
		if turn.Content == "" {
			continue
		}
		role := turn.Role
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		messages = append(messages, ChatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: userMessage})
	return messages
}
