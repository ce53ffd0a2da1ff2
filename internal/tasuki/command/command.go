// Package command turns unreliable free-text model output into structured,
// executable application commands.
//
// The pipeline has three stages, each usable on its own:
//
//   - Extractor recovers a [COMMAND: name] {json} block from the tail of a
//     model reply, repairing truncated JSON when possible.
//   - ValidateParams checks a recovered command against the catalog.
//   - ChainResolver expands entity-creating commands into an ordered chain of
//     prerequisite steps (a task needs a project, which needs a workspace).
package command

import (
	"strconv"
	"strings"
)

// ActionCommand is a named, parameterized instruction for the surrounding
// application. Parameter values are whatever the model emitted as JSON, so
// callers should go through StringParam rather than type-asserting.
type ActionCommand struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// StringParam returns the named parameter coerced to a string. Numbers and
// booleans are formatted; absent or null parameters yield "".
func StringParam(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// paramPresent reports whether a parameter value counts as supplied. Strings
// must be non-blank; any other non-nil value counts.
func paramPresent(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	default:
		return true
	}
}

// cloneParams returns a shallow copy of params, never nil.
func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
