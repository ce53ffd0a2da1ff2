// Package settings provides the per-user assistant configuration store
// backed by a SQLite table. It holds the enablement flag, the provider API
// key, the model name, and the endpoint URL.
//
// The API key is a credential and is encrypted at rest with AES-256-GCM
// when a master key is configured. Without a master key the store falls
// back to plaintext so development setups keep working; the fallback is
// announced once at construction.
package settings

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bdobrica/Tasuki/common/crypto"
	"github.com/bdobrica/Tasuki/internal/tasuki/store"
)

// Keys of the per-user settings rows.
const (
	KeyEnabled  = "assistant.enabled"
	KeyAPIKey   = "assistant.api_key"
	KeyModel    = "assistant.model"
	KeyEndpoint = "assistant.endpoint"
)

// encPrefix marks stored values that are encrypted at rest. The payload
// after the prefix is base64 of the GCM ciphertext.
const encPrefix = "enc:"

// ErrNotFound is returned by Get when the requested key has not been set
// for the user.
var ErrNotFound = errors.New("settings: key not found")

// secretKeys lists the settings that must never be stored in the clear
// when a master key is available.
var secretKeys = map[string]bool{
	KeyAPIKey: true,
}

// Defaults are the process-wide fallback values, normally sourced from the
// environment at startup. A user's stored settings override them per field.
type Defaults struct {
	Enabled  bool
	APIKey   string
	Model    string
	Endpoint string
}

// Assistant is the effective assistant configuration for one user after
// merging stored values over the defaults.
type Assistant struct {
	Enabled  bool
	APIKey   string
	Model    string
	Endpoint string
}

// Update is a partial settings change. Nil fields are left untouched.
type Update struct {
	Enabled  *bool
	APIKey   *string
	Model    *string
	Endpoint *string
}

// Store reads and writes per-user settings rows. It is safe for concurrent
// use; the underlying database serializes access.
type Store struct {
	db        *store.Store
	masterKey []byte
	defaults  Defaults
}

// New creates a Store backed by the application SQLite database. The
// settings migration must have been applied before New is called, which
// store.New guarantees. An empty masterKey disables encryption at rest.
func New(db *store.Store, masterKey []byte, defaults Defaults) *Store {
	if len(masterKey) == 0 {
		slog.Warn("settings: no master key configured, API keys will be stored in plaintext")
	}
	return &Store{db: db, masterKey: masterKey, defaults: defaults}
}

// Get returns the stored value for (userID, key) or ErrNotFound when the
// user has not set it. Encrypted values are decrypted transparently.
func (s *Store) Get(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT value FROM settings WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("settings: get %q: %w", key, err)
	}
	return s.decode(key, value)
}

// Set upserts the (userID, key) pair, recording the current UTC time in
// updated_at. Secret keys are encrypted before they reach the database when
// a master key is configured.
func (s *Store) Set(ctx context.Context, userID, key, value string) error {
	stored, err := s.encode(key, value)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.DB().ExecContext(ctx, `
		INSERT INTO settings (user_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, userID, key, stored, now)
	if err != nil {
		return fmt.Errorf("settings: set %q: %w", key, err)
	}
	return nil
}

// Delete removes (userID, key). Deleting a non-existent key returns nil.
func (s *Store) Delete(ctx context.Context, userID, key string) error {
	_, err := s.db.DB().ExecContext(ctx,
		`DELETE FROM settings WHERE user_id = ? AND key = ?`, userID, key)
	if err != nil {
		return fmt.Errorf("settings: delete %q: %w", key, err)
	}
	return nil
}

// Assistant returns the effective assistant configuration for userID.
// Stored values win per field; empty or missing rows fall back to the
// defaults, so a fresh database behaves like the environment bootstrap.
func (s *Store) Assistant(ctx context.Context, userID string) (Assistant, error) {
	out := Assistant{
		Enabled:  s.defaults.Enabled,
		APIKey:   s.defaults.APIKey,
		Model:    s.defaults.Model,
		Endpoint: s.defaults.Endpoint,
	}

	if v, err := s.Get(ctx, userID, KeyEnabled); err == nil {
		if enabled, perr := strconv.ParseBool(v); perr == nil {
			out.Enabled = enabled
		}
	} else if !errors.Is(err, ErrNotFound) {
		return Assistant{}, err
	}
	if v, err := s.Get(ctx, userID, KeyAPIKey); err == nil && v != "" {
		out.APIKey = v
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Assistant{}, err
	}
	if v, err := s.Get(ctx, userID, KeyModel); err == nil && v != "" {
		out.Model = v
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Assistant{}, err
	}
	if v, err := s.Get(ctx, userID, KeyEndpoint); err == nil && v != "" {
		out.Endpoint = v
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Assistant{}, err
	}

	return out, nil
}

// Apply writes the non-nil fields of upd for userID. Writes are per-key;
// a failure leaves earlier fields applied.
func (s *Store) Apply(ctx context.Context, userID string, upd Update) error {
	if upd.Enabled != nil {
		if err := s.Set(ctx, userID, KeyEnabled, strconv.FormatBool(*upd.Enabled)); err != nil {
			return err
		}
	}
	if upd.APIKey != nil {
		if err := s.Set(ctx, userID, KeyAPIKey, *upd.APIKey); err != nil {
			return err
		}
	}
	if upd.Model != nil {
		if err := s.Set(ctx, userID, KeyModel, *upd.Model); err != nil {
			return err
		}
	}
	if upd.Endpoint != nil {
		if err := s.Set(ctx, userID, KeyEndpoint, *upd.Endpoint); err != nil {
			return err
		}
	}
	return nil
}

// encode prepares a value for storage, encrypting secret keys when a
// master key is configured.
func (s *Store) encode(key, value string) (string, error) {
	if !secretKeys[key] || len(s.masterKey) == 0 || value == "" {
		return value, nil
	}
	ct, err := crypto.Encrypt(s.masterKey, []byte(value))
	if err != nil {
		return "", fmt.Errorf("settings: encrypt %q: %w", key, err)
	}
	return encPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// decode reverses encode. A value without the encryption prefix is
// returned as is, so plaintext rows written before a master key existed
// stay readable.
func (s *Store) decode(key, stored string) (string, error) {
	if !strings.HasPrefix(stored, encPrefix) {
		return stored, nil
	}
	if len(s.masterKey) == 0 {
		return "", fmt.Errorf("settings: %q is encrypted but no master key is configured", key)
	}
	ct, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encPrefix))
	if err != nil {
		return "", fmt.Errorf("settings: decode %q: %w", key, err)
	}
	pt, err := crypto.Decrypt(s.masterKey, ct)
	if err != nil {
		return "", fmt.Errorf("settings: decrypt %q: %w", key, err)
	}
	return string(pt), nil
}
