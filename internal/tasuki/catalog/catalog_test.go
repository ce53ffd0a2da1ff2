package catalog_test

import (
	"strings"
	"testing"

	"github.com/bdobrica/Tasuki/internal/tasuki/catalog"
)

func TestParamName(t *testing.T) {
	if got := catalog.ParamName("workspaceSlug?"); got != "workspaceSlug" {
		t.Errorf("ParamName = %q, want workspaceSlug", got)
	}
	if got := catalog.ParamName("taskId"); got != "taskId" {
		t.Errorf("ParamName = %q, want taskId", got)
	}
}

func TestCommand_RequiredOptionalSplit(t *testing.T) {
	cmd := catalog.Command{
		Name:   "createProject",
		Params: []string{"name", "workspaceSlug?", "description?"},
	}

	req := cmd.Required()
	if len(req) != 1 || req[0] != "name" {
		t.Errorf("Required = %v, want [name]", req)
	}

	opt := cmd.Optional()
	if len(opt) != 2 || opt[0] != "workspaceSlug" || opt[1] != "description" {
		t.Errorf("Optional = %v, want [workspaceSlug description]", opt)
	}
}

func TestCommand_Signature(t *testing.T) {
	cmd := catalog.Command{Name: "addComment", Params: []string{"taskId", "comment"}}
	if got := cmd.Signature(); got != "addComment(taskId, comment)" {
		t.Errorf("Signature = %q", got)
	}
}

func TestCommand_HasParam(t *testing.T) {
	cmd := catalog.Command{Name: "editTask", Params: []string{"taskId", "priority?"}}
	if !cmd.HasParam("priority") {
		t.Error("HasParam should match optional params by bare name")
	}
	if cmd.HasParam("color") {
		t.Error("HasParam matched undeclared param")
	}
}

func TestDefault_ContainsAllCommands(t *testing.T) {
	cat := catalog.Default()
	names := []string{
		"createWorkspace", "editWorkspace", "navigateToWorkspace",
		"createProject", "navigateToProject",
		"createTask", "editTask", "completeTask", "deleteTask", "addComment",
	}
	for _, name := range names {
		if _, ok := cat.Lookup(name); !ok {
			t.Errorf("Default catalog missing %s", name)
		}
	}
	if len(cat.Commands()) != len(names) {
		t.Errorf("Default catalog has %d commands, want %d", len(cat.Commands()), len(names))
	}
}

func TestLookup_Miss(t *testing.T) {
	if _, ok := catalog.Default().Lookup("launchRocket"); ok {
		t.Error("Lookup returned ok for unknown command")
	}
}

func TestString_RendersSignatures(t *testing.T) {
	out := catalog.Default().String()
	if !strings.Contains(out, "createTask(taskTitle, workspaceSlug?,") {
		t.Errorf("rendered catalog missing createTask signature:\n%s", out)
	}
	if !strings.Contains(out, "completeTask(taskId): Mark a task as done.") {
		t.Errorf("rendered catalog missing completeTask line:\n%s", out)
	}
}

func TestNew_DuplicateOverrides(t *testing.T) {
	cat := catalog.New(
		catalog.Command{Name: "x", Params: []string{"a"}},
		catalog.Command{Name: "x", Params: []string{"b"}},
	)
	cmd, ok := cat.Lookup("x")
	if !ok {
		t.Fatal("Lookup miss after duplicate registration")
	}
	if len(cmd.Params) != 1 || cmd.Params[0] != "b" {
		t.Errorf("later declaration should win, got params %v", cmd.Params)
	}
	if len(cat.Commands()) != 1 {
		t.Errorf("duplicate registration should not grow the command list")
	}
}
