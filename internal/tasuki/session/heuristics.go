package session

import (
	"fmt"
	"regexp"
	"strings"
)

// maxHeuristicChars bounds how much of the raw message the heuristic scan
// reads.
const maxHeuristicChars = 10_000

// Heuristics infers workspace and project mentions directly from raw user
// text, so the context stays fresh even before the model emits any command.
// Each entity type carries an ordered pattern list tried first-match-wins;
// a skip-list filters conversational noise. The whole mechanism is
// best-effort and may mis-extract; the command-driven rules in the Updater
// remain authoritative.
type Heuristics struct {
	workspace []*regexp.Regexp
	project   []*regexp.Regexp
	skip      map[string]struct{}
}

// Mentions is the result of one heuristic scan. Empty fields mean no
// acceptable candidate was found.
type Mentions struct {
	Workspace string
	Project   string
}

// Default heuristic patterns. Each pattern's first capture group is the
// candidate entity name. Later patterns are progressively looser.
var (
	defaultWorkspacePatterns = []string{
		`(?i)(?:\bin|\bto|\binto|\bon|\bfor|\binside)\s+(?:the\s+)?["']?([A-Za-z0-9][A-Za-z0-9 _-]{0,60}?)["']?\s+workspace\b`,
		`(?i)\bworkspace\s+(?:called|named)\s+["']?([A-Za-z0-9][A-Za-z0-9 _-]{0,60}?)["']?(?:\s*[,.!?;:]|\s*$)`,
		`(?i)\bworkspace\s+["']([A-Za-z0-9][A-Za-z0-9 _-]{0,60}?)["']`,
		`\b([A-Z][\w-]*(?: [A-Z][\w-]*)*)\s+[Ww]orkspace\b`,
	}
	defaultProjectPatterns = []string{
		`(?i)(?:\bin|\bto|\binto|\bon|\bfor|\binside)\s+(?:the\s+)?["']?([A-Za-z0-9][A-Za-z0-9 _-]{0,60}?)["']?\s+project\b`,
		`(?i)\bproject\s+(?:called|named)\s+["']?([A-Za-z0-9][A-Za-z0-9 _-]{0,60}?)["']?(?:\s*[,.!?;:]|\s*$)`,
		`(?i)\bproject\s+["']([A-Za-z0-9][A-Za-z0-9 _-]{0,60}?)["']`,
		`\b([A-Z][\w-]*(?: [A-Z][\w-]*)*)\s+[Pp]roject\b`,
	}
	defaultSkipWords = []string{
		"the", "a", "an", "my", "this", "that", "it", "some", "any",
		"new", "current", "our", "your", "their", "same", "other",
		"first", "second", "last", "next", "active", "default",
		"the current", "the new", "the same", "my new", "a new", "my current",
	}
)

// DefaultHeuristics returns the built-in pattern set.
func DefaultHeuristics() *Heuristics {
	h, err := NewHeuristics(defaultWorkspacePatterns, defaultProjectPatterns, defaultSkipWords)
	if err != nil {
		// The defaults are compiled in tests; a failure here is a programming error.
		panic(err)
	}
	return h
}

// NewHeuristics compiles the given pattern lists. Every pattern must contain
// at least one capture group.
func NewHeuristics(workspacePatterns, projectPatterns, skipWords []string) (*Heuristics, error) {
	compile := func(entity string, patterns []string) ([]*regexp.Regexp, error) {
		out := make([]*regexp.Regexp, 0, len(patterns))
		for i, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("session: compile %s pattern %d: %w", entity, i, err)
			}
			if re.NumSubexp() < 1 {
				return nil, fmt.Errorf("session: %s pattern %d has no capture group", entity, i)
			}
			out = append(out, re)
		}
		return out, nil
	}

	ws, err := compile("workspace", workspacePatterns)
	if err != nil {
		return nil, err
	}
	pr, err := compile("project", projectPatterns)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(skipWords))
	for _, w := range skipWords {
		skip[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Heuristics{workspace: ws, project: pr, skip: skip}, nil
}

// ExtractMentions scans text for workspace and project mentions. The scan is
// capped at maxHeuristicChars to bound cost on pathological input.
func (h *Heuristics) ExtractMentions(text string) Mentions {
	text = capChars(text, maxHeuristicChars)

	var m Mentions
	m.Workspace = h.firstCandidate(h.workspace, text, nil)
	// A project capture containing "workspace" is a pattern collision
	// ("Backend workspace" read as a project name), not a real mention.
	m.Project = h.firstCandidate(h.project, text, func(candidate string) bool {
		return !strings.Contains(strings.ToLower(candidate), "workspace")
	})
	return m
}

// firstCandidate tries each pattern in order and returns the first captured
// candidate that survives the skip-list and the optional extra filter.
func (h *Heuristics) firstCandidate(patterns []*regexp.Regexp, text string, accept func(string) bool) string {
	for _, re := range patterns {
		match := re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		candidate := strings.TrimSpace(match[1])
		if candidate == "" {
			continue
		}
		if _, skipped := h.skip[strings.ToLower(candidate)]; skipped {
			continue
		}
		if accept != nil && !accept(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

// capChars truncates s to at most max characters, respecting rune boundaries.
func capChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
