package command_test

import (
	"strings"
	"testing"

	"github.com/bdobrica/Tasuki/internal/tasuki/catalog"
	"github.com/bdobrica/Tasuki/internal/tasuki/command"
)

func TestValidateParams_UnknownCommand(t *testing.T) {
	res := command.ValidateParams(catalog.Default(), command.ActionCommand{Name: "teleport"})
	if res.Valid {
		t.Error("unknown command should be invalid")
	}
	if !strings.Contains(res.Reason, "teleport") {
		t.Errorf("reason should name the command, got %q", res.Reason)
	}
}

func TestValidateParams_AllRequiredPresent(t *testing.T) {
	res := command.ValidateParams(catalog.Default(), command.ActionCommand{
		Name:       "addComment",
		Parameters: map[string]any{"taskId": "t1", "comment": "looks good"},
	})
	if !res.Valid {
		t.Errorf("expected valid, missing = %v", res.Missing)
	}
}

func TestValidateParams_MissingRequired(t *testing.T) {
	res := command.ValidateParams(catalog.Default(), command.ActionCommand{
		Name:       "addComment",
		Parameters: map[string]any{"taskId": "t1"},
	})
	if res.Valid {
		t.Error("expected invalid")
	}
	if len(res.Missing) != 1 || res.Missing[0] != "comment" {
		t.Errorf("missing = %v, want [comment]", res.Missing)
	}
}

func TestValidateParams_BlankStringCountsMissing(t *testing.T) {
	res := command.ValidateParams(catalog.Default(), command.ActionCommand{
		Name:       "createWorkspace",
		Parameters: map[string]any{"name": "   "},
	})
	if res.Valid {
		t.Error("blank required parameter should count as missing")
	}
}

func TestValidateParams_NumberCountsPresent(t *testing.T) {
	cat := catalog.New(catalog.Command{Name: "setPriority", Params: []string{"level"}})
	res := command.ValidateParams(cat, command.ActionCommand{
		Name:       "setPriority",
		Parameters: map[string]any{"level": float64(2)},
	})
	if !res.Valid {
		t.Errorf("numeric parameter should count as present, missing = %v", res.Missing)
	}
}

func TestValidateParams_SlugParamsAlwaysExempt(t *testing.T) {
	// Even a catalog that marks the slug parameters required must not report
	// them missing: the chain resolver fills them from session context.
	cat := catalog.New(catalog.Command{
		Name:   "moveTask",
		Params: []string{"taskId", "workspaceSlug", "projectSlug"},
	})
	res := command.ValidateParams(cat, command.ActionCommand{
		Name:       "moveTask",
		Parameters: map[string]any{"taskId": "t1"},
	})
	if !res.Valid {
		t.Errorf("slug parameters must be exempt, missing = %v", res.Missing)
	}

	res = command.ValidateParams(cat, command.ActionCommand{Name: "moveTask"})
	for _, m := range res.Missing {
		if m == "workspaceSlug" || m == "projectSlug" {
			t.Errorf("exempted parameter %q appeared in missing list", m)
		}
	}
}
