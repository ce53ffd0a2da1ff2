package command

import (
	"context"
	"fmt"
	"slices"
)

// WorkspaceLookup is the slice of the workspace service the chain resolver
// needs.
type WorkspaceLookup interface {
	// GetIDBySlug returns the workspace ID for slug, or "" when no workspace
	// carries it.
	GetIDBySlug(ctx context.Context, slug string) (string, error)
}

// ProjectLookup is the slice of the project service the chain resolver needs.
type ProjectLookup interface {
	// GetAllSlugsByWorkspaceID lists the project slugs inside a workspace.
	GetAllSlugsByWorkspaceID(ctx context.Context, workspaceID string) ([]string, error)
}

// ChainResolver expands createTask and createProject into an ordered chain of
// prerequisite steps when the entities they depend on do not exist yet. A
// single utterance like "add task X to workspace W, project P" can then
// satisfy the whole workspace → project → task hierarchy without multi-turn
// clarification, while entities that already exist are never re-created.
type ChainResolver struct {
	workspaces WorkspaceLookup
	projects   ProjectLookup
}

// NewChainResolver builds a resolver over the given lookups.
func NewChainResolver(workspaces WorkspaceLookup, projects ProjectLookup) *ChainResolver {
	return &ChainResolver{workspaces: workspaces, projects: projects}
}

// Resolve returns the prerequisite chain for cmd, ending with cmd itself with
// resolved slugs merged in. It returns nil when no prerequisite is missing
// (the command executes directly) or when cmd is not an entity-creating
// command. Lookup failures propagate as errors; existence is never assumed
// on a failed check.
func (r *ChainResolver) Resolve(ctx context.Context, cmd ActionCommand) ([]ActionCommand, error) {
	switch cmd.Name {
	case "createTask":
		return r.resolveCreateTask(ctx, cmd)
	case "createProject":
		return r.resolveCreateProject(ctx, cmd)
	default:
		return nil, nil
	}
}

func (r *ChainResolver) resolveCreateTask(ctx context.Context, cmd ActionCommand) ([]ActionCommand, error) {
	title := StringParam(cmd.Parameters, "taskTitle")

	wsSlug := StringParam(cmd.Parameters, "workspaceSlug")
	if wsSlug == "" {
		wsSlug = Slugify(StringParam(cmd.Parameters, "workspaceName"))
	}
	prSlug := StringParam(cmd.Parameters, "projectSlug")
	if prSlug == "" {
		prSlug = Slugify(StringParam(cmd.Parameters, "projectName"))
	}

	// Without both slugs there is nothing to pre-create; the command runs
	// directly and later context updates fill in what they can.
	if wsSlug == "" || prSlug == "" {
		return nil, nil
	}

	wsID, err := r.workspaces.GetIDBySlug(ctx, wsSlug)
	if err != nil {
		return nil, fmt.Errorf("command: resolve chain: workspace lookup %q: %w", wsSlug, err)
	}

	var chain []ActionCommand
	if wsID == "" {
		wsName := StringParam(cmd.Parameters, "workspaceName")
		if wsName == "" {
			wsName = wsSlug
		}
		chain = append(chain, ActionCommand{
			Name: "createWorkspace",
			Parameters: map[string]any{
				"name":        wsName,
				"description": "Workspace created for task: " + title,
			},
		})
	}

	// A project cannot exist inside a workspace that does not exist yet, so
	// the membership check only runs against a real workspace ID.
	projectExists := false
	if wsID != "" {
		slugs, err := r.projects.GetAllSlugsByWorkspaceID(ctx, wsID)
		if err != nil {
			return nil, fmt.Errorf("command: resolve chain: project lookup in %q: %w", wsSlug, err)
		}
		projectExists = slices.Contains(slugs, prSlug)
	}

	if !projectExists {
		prName := StringParam(cmd.Parameters, "projectName")
		if prName == "" {
			prName = prSlug
		}
		chain = append(chain, ActionCommand{
			Name: "createProject",
			Parameters: map[string]any{
				"name":          prName,
				"workspaceSlug": wsSlug,
				"description":   "Project created for task: " + title,
			},
		})
	}

	if len(chain) == 0 {
		return nil, nil
	}

	merged := cloneParams(cmd.Parameters)
	merged["workspaceSlug"] = wsSlug
	merged["projectSlug"] = prSlug
	return append(chain, ActionCommand{Name: cmd.Name, Parameters: merged}), nil
}

func (r *ChainResolver) resolveCreateProject(ctx context.Context, cmd ActionCommand) ([]ActionCommand, error) {
	wsSlug := StringParam(cmd.Parameters, "workspaceSlug")
	if wsSlug == "" {
		return nil, nil
	}

	wsID, err := r.workspaces.GetIDBySlug(ctx, wsSlug)
	if err != nil {
		return nil, fmt.Errorf("command: resolve chain: workspace lookup %q: %w", wsSlug, err)
	}
	if wsID != "" {
		return nil, nil
	}

	name := StringParam(cmd.Parameters, "name")
	merged := cloneParams(cmd.Parameters)
	merged["workspaceSlug"] = wsSlug
	return []ActionCommand{
		{
			Name: "createWorkspace",
			Parameters: map[string]any{
				"name":        wsSlug,
				"description": "Workspace created for project: " + name,
			},
		},
		{Name: cmd.Name, Parameters: merged},
	}, nil
}
