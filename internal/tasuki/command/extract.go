package command

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Extraction strategies, tried in order against the tail of the reply. The
// first one that matches wins:
//
//  1. marker optionally wrapped in markdown emphasis, JSON object ending the
//     string
//  2. bare marker, JSON object ending the string
//  3. bare marker followed by an object that is not required to be
//     well-terminated (truncated model output; repair closes it)
var extractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\*{0,2}\[COMMAND:\s*(\w+)\]\*{0,2}\s*(\{.*\})\s*$`),
	regexp.MustCompile(`(?s)\[COMMAND:\s*(\w+)\]\s*(\{.*\})\s*$`),
	regexp.MustCompile(`(?s)\[COMMAND:\s*(\w+)\]\s*(\{.*)$`),
}

// Extract recovers an ActionCommand from a free-text model reply.
//
// It returns the command (nil when the reply carries none) and the message
// text to show the user. When a command is recovered, the matched block is
// stripped from the message; when the block is present but its JSON cannot be
// parsed even after repair, the command is dropped, the event is logged, and
// the reply is returned unchanged. Extraction failure is never fatal.
func Extract(reply string) (*ActionCommand, string) {
	for _, re := range extractPatterns {
		m := re.FindStringSubmatchIndex(reply)
		if m == nil {
			continue
		}

		name := reply[m[2]:m[3]]
		raw := reply[m[4]:m[5]]

		params, err := parseParams(raw)
		if err != nil {
			slog.Warn("command: dropping unparseable command payload",
				"command", name, "err", err)
			return nil, reply
		}

		return &ActionCommand{Name: name, Parameters: params}, strings.TrimSpace(reply[:m[0]])
	}

	return nil, reply
}

// parseParams parses the captured parameter text, retrying once after repair.
func parseParams(raw string) (map[string]any, error) {
	var params map[string]any
	err := json.Unmarshal([]byte(raw), &params)
	if err == nil {
		return params, nil
	}

	repaired := RepairJSON(raw)
	if repaired == raw {
		return nil, err
	}
	if err := json.Unmarshal([]byte(repaired), &params); err != nil {
		return nil, err
	}
	return params, nil
}

// RepairJSON appends the closing braces a truncated JSON object is missing,
// counting unmatched '{' versus '}'. It only ever appends: over-closed input
// or malformed string literals are returned unchanged and still fail to
// parse.
func RepairJSON(s string) string {
	deficit := strings.Count(s, "{") - strings.Count(s, "}")
	if deficit <= 0 {
		return s
	}
	return s + strings.Repeat("}", deficit)
}
