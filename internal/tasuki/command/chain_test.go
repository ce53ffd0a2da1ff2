package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bdobrica/Tasuki/internal/tasuki/command"
)

// stubWorkspaces maps slug → ID and records lookups.
type stubWorkspaces struct {
	ids   map[string]string
	err   error
	calls []string
}

func (s *stubWorkspaces) GetIDBySlug(_ context.Context, slug string) (string, error) {
	s.calls = append(s.calls, slug)
	if s.err != nil {
		return "", s.err
	}
	return s.ids[slug], nil
}

// stubProjects maps workspace ID → project slugs and records lookups.
type stubProjects struct {
	slugs map[string][]string
	err   error
	calls []string
}

func (s *stubProjects) GetAllSlugsByWorkspaceID(_ context.Context, workspaceID string) ([]string, error) {
	s.calls = append(s.calls, workspaceID)
	if s.err != nil {
		return nil, s.err
	}
	return s.slugs[workspaceID], nil
}

func createTaskCmd(params map[string]any) command.ActionCommand {
	return command.ActionCommand{Name: "createTask", Parameters: params}
}

func TestResolve_BothMissingYieldsFullChain(t *testing.T) {
	ws := &stubWorkspaces{ids: map[string]string{}}
	pr := &stubProjects{slugs: map[string][]string{}}
	r := command.NewChainResolver(ws, pr)

	chain, err := r.Resolve(context.Background(), createTaskCmd(map[string]any{
		"workspaceSlug": "backend",
		"projectSlug":   "core",
		"taskTitle":     "X",
	}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	if chain[0].Name != "createWorkspace" || chain[1].Name != "createProject" || chain[2].Name != "createTask" {
		t.Errorf("chain order = %s, %s, %s", chain[0].Name, chain[1].Name, chain[2].Name)
	}
	final := chain[2].Parameters
	if final["workspaceSlug"] != "backend" || final["projectSlug"] != "core" {
		t.Errorf("final step missing resolved slugs: %v", final)
	}
	if final["taskTitle"] != "X" {
		t.Errorf("final step lost original parameters: %v", final)
	}

	// The workspace does not exist, so project membership is never checked.
	if len(pr.calls) != 0 {
		t.Errorf("project lookup should be skipped for a missing workspace, got calls %v", pr.calls)
	}
}

func TestResolve_BothExistYieldsNoChain(t *testing.T) {
	ws := &stubWorkspaces{ids: map[string]string{"backend": "ws-1"}}
	pr := &stubProjects{slugs: map[string][]string{"ws-1": {"core", "infra"}}}
	r := command.NewChainResolver(ws, pr)

	chain, err := r.Resolve(context.Background(), createTaskCmd(map[string]any{
		"workspaceSlug": "backend",
		"projectSlug":   "core",
		"taskTitle":     "X",
	}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if chain != nil {
		t.Errorf("expected no chain when everything exists, got %v", chain)
	}
}

func TestResolve_OnlyProjectMissing(t *testing.T) {
	ws := &stubWorkspaces{ids: map[string]string{"backend": "ws-1"}}
	pr := &stubProjects{slugs: map[string][]string{"ws-1": {"other"}}}
	r := command.NewChainResolver(ws, pr)

	chain, err := r.Resolve(context.Background(), createTaskCmd(map[string]any{
		"workspaceSlug": "backend",
		"projectSlug":   "core",
		"projectName":   "Core",
		"taskTitle":     "X",
	}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].Name != "createProject" {
		t.Errorf("first step = %s, want createProject", chain[0].Name)
	}
	if chain[0].Parameters["name"] != "Core" || chain[0].Parameters["workspaceSlug"] != "backend" {
		t.Errorf("createProject parameters = %v", chain[0].Parameters)
	}
}

func TestResolve_SlugsDerivedFromNames(t *testing.T) {
	ws := &stubWorkspaces{ids: map[string]string{}}
	pr := &stubProjects{}
	r := command.NewChainResolver(ws, pr)

	chain, err := r.Resolve(context.Background(), createTaskCmd(map[string]any{
		"workspaceName": "Backend Team",
		"projectName":   "Core API",
		"taskTitle":     "X",
	}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	final := chain[2].Parameters
	if final["workspaceSlug"] != "backend-team" || final["projectSlug"] != "core-api" {
		t.Errorf("derived slugs = %v", final)
	}
	if chain[0].Parameters["name"] != "Backend Team" {
		t.Errorf("createWorkspace should use the display name, got %v", chain[0].Parameters["name"])
	}
}

func TestResolve_NoSlugsNoChain(t *testing.T) {
	r := command.NewChainResolver(&stubWorkspaces{}, &stubProjects{})
	chain, err := r.Resolve(context.Background(), createTaskCmd(map[string]any{"taskTitle": "X"}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if chain != nil {
		t.Errorf("expected no chain without slugs, got %v", chain)
	}
}

func TestResolve_LookupErrorPropagates(t *testing.T) {
	sentinel := errors.New("db down")
	r := command.NewChainResolver(&stubWorkspaces{err: sentinel}, &stubProjects{})

	_, err := r.Resolve(context.Background(), createTaskCmd(map[string]any{
		"workspaceSlug": "backend",
		"projectSlug":   "core",
		"taskTitle":     "X",
	}))
	if !errors.Is(err, sentinel) {
		t.Errorf("lookup failure should propagate, got %v", err)
	}
}

func TestResolve_CreateProjectMissingWorkspace(t *testing.T) {
	r := command.NewChainResolver(&stubWorkspaces{ids: map[string]string{}}, &stubProjects{})

	chain, err := r.Resolve(context.Background(), command.ActionCommand{
		Name:       "createProject",
		Parameters: map[string]any{"name": "Core", "workspaceSlug": "backend"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].Name != "createWorkspace" || chain[1].Name != "createProject" {
		t.Errorf("chain order = %s, %s", chain[0].Name, chain[1].Name)
	}
}

func TestResolve_CreateProjectExistingWorkspace(t *testing.T) {
	r := command.NewChainResolver(&stubWorkspaces{ids: map[string]string{"backend": "ws-1"}}, &stubProjects{})

	chain, err := r.Resolve(context.Background(), command.ActionCommand{
		Name:       "createProject",
		Parameters: map[string]any{"name": "Core", "workspaceSlug": "backend"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if chain != nil {
		t.Errorf("expected no chain, got %v", chain)
	}
}

func TestResolve_NonCreatingCommandIgnored(t *testing.T) {
	r := command.NewChainResolver(&stubWorkspaces{}, &stubProjects{})
	chain, err := r.Resolve(context.Background(), command.ActionCommand{
		Name:       "completeTask",
		Parameters: map[string]any{"taskId": "t1"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if chain != nil {
		t.Errorf("expected no chain for non-creating command, got %v", chain)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Backend Team", "backend-team"},
		{"  Core   API  ", "core-api"},
		{"Q4 Plans!", "q4-plans"},
		{"already-a-slug", "already-a-slug"},
		{"日本語のみ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := command.Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
