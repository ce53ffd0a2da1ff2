package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChatAuditEntry is one recorded chat exchange.
type ChatAuditEntry struct {
	ID           string
	Timestamp    time.Time
	TraceID      string
	SessionID    string
	UserID       string
	UserMessage  string
	Reply        string
	CommandName  sql.NullString
	ChainJSON    sql.NullString
	Success      bool
	ErrorMessage sql.NullString
}

// WriteChatAudit records one chat exchange. A zero ID gets a generated
// UUID; a zero timestamp gets the current time.
func (s *Store) WriteChatAudit(ctx context.Context, entry *ChatAuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_audit (id, ts, trace_id, session_id, user_id, user_message, reply, command_name, chain_json, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp, entry.TraceID, entry.SessionID, entry.UserID,
		entry.UserMessage, entry.Reply, entry.CommandName, entry.ChainJSON,
		entry.Success, entry.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to write chat audit: %w", err)
	}
	return nil
}

// GetChatAudit retrieves the most recent chat exchanges, newest first.
func (s *Store) GetChatAudit(ctx context.Context, limit int) ([]*ChatAuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, session_id, user_id, user_message, reply, command_name, chain_json, success, error_message
		FROM chat_audit
		ORDER BY ts DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat audit: %w", err)
	}
	defer rows.Close()

	return scanChatAudit(rows)
}

// GetChatAuditBySession retrieves every exchange of one session in
// chronological order.
func (s *Store) GetChatAuditBySession(ctx context.Context, sessionID string) ([]*ChatAuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, session_id, user_id, user_message, reply, command_name, chain_json, success, error_message
		FROM chat_audit
		WHERE session_id = ?
		ORDER BY ts ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat audit by session: %w", err)
	}
	defer rows.Close()

	return scanChatAudit(rows)
}

func scanChatAudit(rows *sql.Rows) ([]*ChatAuditEntry, error) {
	var entries []*ChatAuditEntry
	for rows.Next() {
		entry := &ChatAuditEntry{}
		err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.TraceID, &entry.SessionID,
			&entry.UserID, &entry.UserMessage, &entry.Reply,
			&entry.CommandName, &entry.ChainJSON, &entry.Success, &entry.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat audit: %w", err)
	}
	return entries, nil
}
