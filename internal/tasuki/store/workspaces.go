package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Workspace is one row of the workspace directory.
type Workspace struct {
	ID             string
	OrganizationID string
	Slug           string
	Name           string
	Description    string
	CreatedAt      time.Time
}

// UpsertWorkspace records a workspace under its (organization, slug) pair.
// An existing row keeps its ID; name and description are refreshed. A zero
// ID gets a generated UUID.
func (s *Store) UpsertWorkspace(ctx context.Context, ws *Workspace) error {
	if ws.Slug == "" {
		return fmt.Errorf("workspace slug is required")
	}
	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, organization_id, slug, name, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_id, slug) DO UPDATE SET
			name        = excluded.name,
			description = excluded.description
	`, ws.ID, ws.OrganizationID, ws.Slug, ws.Name, ws.Description, ws.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert workspace: %w", err)
	}
	return nil
}

// GetIDBySlug returns the ID of the workspace carrying slug, or "" when no
// workspace does. Slugs are matched across organizations; deployments are
// single-tenant in practice.
func (s *Store) GetIDBySlug(ctx context.Context, slug string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM workspaces WHERE slug = ? LIMIT 1", slug,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up workspace by slug: %w", err)
	}
	return id, nil
}

// GetWorkspaceBySlug returns the full workspace row for slug.
func (s *Store) GetWorkspaceBySlug(ctx context.Context, slug string) (*Workspace, error) {
	ws := &Workspace{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, slug, name, description, created_at
		FROM workspaces
		WHERE slug = ?
		LIMIT 1
	`, slug).Scan(&ws.ID, &ws.OrganizationID, &ws.Slug, &ws.Name, &ws.Description, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workspace not found: %s", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return ws, nil
}

// FindAllSlugs lists every workspace slug visible to an organization, sorted
// alphabetically. An empty organizationID lists all workspaces.
func (s *Store) FindAllSlugs(ctx context.Context, organizationID string) ([]string, error) {
	query := "SELECT slug FROM workspaces ORDER BY slug"
	args := []any{}
	if organizationID != "" {
		query = "SELECT slug FROM workspaces WHERE organization_id = ? ORDER BY slug"
		args = append(args, organizationID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan workspace slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspace slugs: %w", err)
	}
	return slugs, nil
}

// WorkspaceCount returns the number of workspaces in the directory.
func (s *Store) WorkspaceCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workspaces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count workspaces: %w", err)
	}
	return count, nil
}
