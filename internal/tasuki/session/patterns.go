package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// patternFile is the on-disk shape of a heuristic pattern override. Any
// section left empty keeps the built-in defaults, so a file can tune one
// entity type without restating everything.
type patternFile struct {
	Workspace []string `yaml:"workspace"`
	Project   []string `yaml:"project"`
	Skip      []string `yaml:"skip"`
}

// LoadPatterns reads a YAML pattern file and compiles it into a Heuristics,
// falling back to the defaults for any section the file omits. Heuristic
// accuracy needs tuning per deployment; this keeps that tuning out of code.
func LoadPatterns(path string) (*Heuristics, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read patterns file: %w", err)
	}

	var file patternFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("session: parse patterns file: %w", err)
	}

	workspace := file.Workspace
	if len(workspace) == 0 {
		workspace = defaultWorkspacePatterns
	}
	project := file.Project
	if len(project) == 0 {
		project = defaultProjectPatterns
	}
	skip := file.Skip
	if len(skip) == 0 {
		skip = defaultSkipWords
	}

	h, err := NewHeuristics(workspace, project, skip)
	if err != nil {
		return nil, fmt.Errorf("session: patterns file %s: %w", path, err)
	}
	return h, nil
}
