package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/bdobrica/Tasuki/internal/tasuki/command"
)

// MatchStatus classifies how a project slug resolved against stored projects.
type MatchStatus string

const (
	MatchExact    MatchStatus = "exact"
	MatchFuzzy    MatchStatus = "fuzzy"
	MatchNotFound MatchStatus = "not_found"
)

// SlugMatch is the result of validating a project slug. Slug carries the
// canonical stored slug for exact and fuzzy matches.
type SlugMatch struct {
	Status MatchStatus
	Slug   string
}

// WorkspaceLookup is the slice of the workspace service the Updater needs.
type WorkspaceLookup interface {
	GetIDBySlug(ctx context.Context, slug string) (string, error)
}

// ProjectLookup is the slice of the project service the Updater needs.
type ProjectLookup interface {
	GetAllSlugsByWorkspaceID(ctx context.Context, workspaceID string) ([]string, error)
	// ValidateProjectSlug resolves user-supplied input to a stored project
	// slug, tolerating near-misses.
	ValidateProjectSlug(ctx context.Context, input string) (SlugMatch, error)
}

// Updater owns all mutation of session contexts: seeding from the request,
// heuristic text extraction, and the authoritative command-driven rules.
// It is also the store's only read accessor.
type Updater struct {
	store      Store
	workspaces WorkspaceLookup
	projects   ProjectLookup
	heuristics *Heuristics
	now        func() time.Time
}

// NewUpdater builds an Updater. A nil heuristics falls back to the defaults.
func NewUpdater(store Store, workspaces WorkspaceLookup, projects ProjectLookup, heuristics *Heuristics) *Updater {
	if heuristics == nil {
		heuristics = DefaultHeuristics()
	}
	return &Updater{
		store:      store,
		workspaces: workspaces,
		projects:   projects,
		heuristics: heuristics,
		now:        time.Now,
	}
}

// Refresh loads or lazily creates the context for sessionID, folds in the
// caller's current location (slugs supplied on the request) and any
// workspace/project mentions found in the raw message, then persists and
// returns a snapshot.
func (u *Updater) Refresh(sessionID, workspaceSlug, projectSlug, message string) Context {
	sc, ok := u.store.Get(sessionID)
	if !ok {
		sc = Context{SessionID: sessionID}
	}

	if workspaceSlug != "" && workspaceSlug != sc.WorkspaceSlug {
		sc.WorkspaceSlug = workspaceSlug
		sc.WorkspaceName = ""
		sc.clearProject()
		sc.SiblingProjectSlugs = nil
	}
	if projectSlug != "" && projectSlug != sc.ProjectSlug {
		sc.ProjectSlug = projectSlug
		sc.ProjectName = ""
	}

	m := u.heuristics.ExtractMentions(message)
	if m.Workspace != "" {
		if slug := command.Slugify(m.Workspace); slug != "" {
			if slug != sc.WorkspaceSlug {
				sc.WorkspaceSlug = slug
				sc.clearProject()
				sc.SiblingProjectSlugs = nil
			}
			sc.WorkspaceName = m.Workspace
		}
	}
	if m.Project != "" {
		if slug := command.Slugify(m.Project); slug != "" {
			sc.ProjectSlug = slug
			sc.ProjectName = m.Project
		}
	}

	sc.LastUpdated = u.now()
	u.store.Set(sc)
	return sc.Clone()
}

// Context returns a snapshot of the stored context for sessionID.
func (u *Updater) Context(sessionID string) (Context, bool) {
	return u.store.Get(sessionID)
}

// Clear removes the context for sessionID.
func (u *Updater) Clear(sessionID string) {
	u.store.Delete(sessionID)
}

// Sweep removes contexts idle longer than maxAge and returns the count.
func (u *Updater) Sweep(maxAge time.Duration) int {
	return u.store.SweepOlderThan(maxAge)
}

// ApplyCommand applies the entity rule for a command that is about to
// execute. Rules are authoritative: they overwrite whatever the heuristics
// guessed. Lookup failures degrade to warnings; a context update never fails
// the request.
func (u *Updater) ApplyCommand(ctx context.Context, sessionID string, cmd command.ActionCommand) {
	sc, ok := u.store.Get(sessionID)
	if !ok {
		sc = Context{SessionID: sessionID}
	}

	switch cmd.Name {
	case "navigateToWorkspace":
		slug := command.StringParam(cmd.Parameters, "workspaceSlug")
		if slug == "" {
			slug = command.Slugify(command.StringParam(cmd.Parameters, "workspaceName"))
		}
		if slug == "" {
			return
		}
		sc.WorkspaceSlug = slug
		sc.WorkspaceName = command.StringParam(cmd.Parameters, "workspaceName")
		sc.clearProject()
		sc.SiblingProjectSlugs = u.lookupSiblings(ctx, slug)

	case "createWorkspace":
		name := command.StringParam(cmd.Parameters, "name")
		slug := command.Slugify(name)
		if slug == "" {
			return
		}
		sc.WorkspaceSlug = slug
		sc.WorkspaceName = name
		sc.clearProject()
		// A just-created workspace has no projects yet.
		sc.SiblingProjectSlugs = nil

	case "navigateToProject":
		slug := command.StringParam(cmd.Parameters, "projectSlug")
		if slug == "" {
			slug = command.Slugify(command.StringParam(cmd.Parameters, "name"))
		}
		if slug == "" {
			return
		}
		if ws := command.StringParam(cmd.Parameters, "workspaceSlug"); ws != "" && ws != sc.WorkspaceSlug {
			sc.WorkspaceSlug = ws
			sc.WorkspaceName = ""
			sc.SiblingProjectSlugs = nil
		}
		sc.ProjectSlug = u.canonicalProjectSlug(ctx, slug)
		sc.ProjectName = command.StringParam(cmd.Parameters, "name")

	case "createProject":
		name := command.StringParam(cmd.Parameters, "name")
		slug := command.Slugify(name)
		if slug == "" {
			return
		}
		if ws := command.StringParam(cmd.Parameters, "workspaceSlug"); ws != "" && ws != sc.WorkspaceSlug {
			sc.WorkspaceSlug = ws
			sc.WorkspaceName = ""
			sc.SiblingProjectSlugs = nil
		}
		sc.ProjectSlug = slug
		sc.ProjectName = name

	case "editWorkspace":
		name := command.StringParam(cmd.Parameters, "name")
		if name == "" {
			return
		}
		sc.WorkspaceName = name

	default:
		return
	}

	sc.LastUpdated = u.now()
	u.store.Set(sc)
}

// lookupSiblings fetches the project slugs of the workspace with the given
// slug. Failures return nil: stale sibling data is tolerable, a failed
// request is not.
func (u *Updater) lookupSiblings(ctx context.Context, workspaceSlug string) []string {
	id, err := u.workspaces.GetIDBySlug(ctx, workspaceSlug)
	if err != nil {
		slog.Warn("session: sibling refresh: workspace lookup failed",
			"workspace", workspaceSlug, "err", err)
		return nil
	}
	if id == "" {
		return nil
	}
	slugs, err := u.projects.GetAllSlugsByWorkspaceID(ctx, id)
	if err != nil {
		slog.Warn("session: sibling refresh: project lookup failed",
			"workspace", workspaceSlug, "err", err)
		return nil
	}
	return slugs
}

// canonicalProjectSlug resolves a navigation target against stored projects,
// adopting the canonical slug on exact or fuzzy matches. Unknown slugs and
// lookup failures pass the input through unchanged.
func (u *Updater) canonicalProjectSlug(ctx context.Context, slug string) string {
	match, err := u.projects.ValidateProjectSlug(ctx, slug)
	if err != nil {
		slog.Warn("session: project slug validation failed", "slug", slug, "err", err)
		return slug
	}
	switch match.Status {
	case MatchExact, MatchFuzzy:
		return match.Slug
	default:
		return slug
	}
}
