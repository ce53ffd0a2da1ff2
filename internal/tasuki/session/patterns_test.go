package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bdobrica/Tasuki/internal/tasuki/session"
)

func writePatternFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPatterns_OverridesOneSection(t *testing.T) {
	path := writePatternFile(t, `
workspace:
  - 'ws=([a-z0-9-]+)'
`)

	h, err := session.LoadPatterns(path)
	if err != nil {
		t.Fatalf("LoadPatterns: %v", err)
	}

	m := h.ExtractMentions("ws=backend please, and open the Core project")
	if m.Workspace != "backend" {
		t.Errorf("custom workspace pattern should apply, got %q", m.Workspace)
	}
	// The project section was omitted, so the defaults still apply.
	if m.Project != "Core" {
		t.Errorf("default project patterns should survive, got %q", m.Project)
	}
}

func TestLoadPatterns_RejectsBadRegex(t *testing.T) {
	path := writePatternFile(t, `
project:
  - '('
`)
	if _, err := session.LoadPatterns(path); err == nil {
		t.Error("invalid regex in file should be rejected")
	}
}

func TestLoadPatterns_RejectsBadYAML(t *testing.T) {
	path := writePatternFile(t, "workspace: [unclosed")
	if _, err := session.LoadPatterns(path); err == nil {
		t.Error("malformed YAML should be rejected")
	}
}

func TestLoadPatterns_MissingFile(t *testing.T) {
	if _, err := session.LoadPatterns(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should be an error")
	}
}
