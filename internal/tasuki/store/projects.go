package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bdobrica/Tasuki/internal/tasuki/session"
)

// Project is one row of the project directory.
type Project struct {
	ID          string
	WorkspaceID string
	Slug        string
	Name        string
	Description string
	CreatedAt   time.Time
}

// UpsertProject records a project under its (workspace, slug) pair. An
// existing row keeps its ID; name and description are refreshed. A zero ID
// gets a generated UUID.
func (s *Store) UpsertProject(ctx context.Context, p *Project) error {
	if p.WorkspaceID == "" || p.Slug == "" {
		return fmt.Errorf("project workspace ID and slug are required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, workspace_id, slug, name, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id, slug) DO UPDATE SET
			name        = excluded.name,
			description = excluded.description
	`, p.ID, p.WorkspaceID, p.Slug, p.Name, p.Description, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

// GetAllSlugsByWorkspaceID lists the project slugs inside a workspace,
// sorted alphabetically.
func (s *Store) GetAllSlugsByWorkspaceID(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT slug FROM projects WHERE workspace_id = ? ORDER BY slug", workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list project slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan project slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project slugs: %w", err)
	}
	return slugs, nil
}

// ValidateProjectSlug resolves user-supplied input to a stored project slug.
// An exact match wins; otherwise the shortest slug the input prefixes (or
// that contains the input) is offered as a fuzzy match, so "cor" resolves to
// "core" without a clarification round-trip.
func (s *Store) ValidateProjectSlug(ctx context.Context, input string) (session.SlugMatch, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return session.SlugMatch{Status: session.MatchNotFound}, nil
	}

	var slug string
	err := s.db.QueryRowContext(ctx,
		"SELECT slug FROM projects WHERE slug = ? LIMIT 1", input,
	).Scan(&slug)
	if err == nil {
		return session.SlugMatch{Status: session.MatchExact, Slug: slug}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return session.SlugMatch{}, fmt.Errorf("failed to validate project slug: %w", err)
	}

	// LIKE special characters in user input would change the match meaning.
	pattern := escapeLike(input)
	for _, like := range []string{pattern + "%", "%" + pattern + "%"} {
		err = s.db.QueryRowContext(ctx, `
			SELECT slug FROM projects
			WHERE slug LIKE ? ESCAPE '\'
			ORDER BY length(slug), slug
			LIMIT 1
		`, like).Scan(&slug)
		if err == nil {
			return session.SlugMatch{Status: session.MatchFuzzy, Slug: slug}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return session.SlugMatch{}, fmt.Errorf("failed to fuzzy-match project slug: %w", err)
		}
	}

	return session.SlugMatch{Status: session.MatchNotFound}, nil
}

// escapeLike escapes the LIKE wildcards in a literal string.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
