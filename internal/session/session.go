// Package session persists the signed-in user between runs.
//
// The file holds two keys, todo_app_token and todo_app_user, in a tiny
// SQLite key/value table.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

const (
	TokenKey = "todo_app_token"
	UserKey  = "todo_app_user"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

var ErrNoSession = errors.New("not logged in")

// Store is safe for concurrent use. The current session is cached in memory
// after Load or Save so token lookups on every request do not hit disk.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	mu      sync.RWMutex
	token   string
	profile model.Profile
	loaded  bool
}

// Open opens or creates the session file at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored session.
func (s *Store) Save(token string, p model.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := tx.Exec(upsert, TokenKey, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if _, err := tx.Exec(upsert, UserKey, string(raw)); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.mu.Lock()
	s.token, s.profile, s.loaded = token, p, true
	s.mu.Unlock()
	return nil
}

// Load restores the stored session. ErrNoSession means nobody is logged in;
// a profile that no longer decodes is treated the same way and removed.
func (s *Store) Load() (string, model.Profile, error) {
	var token, raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, TokenKey).Scan(&token)
	if err == nil {
		err = s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, UserKey).Scan(&raw)
	}
	if errors.Is(err, sql.ErrNoRows) {
		s.forget()
		return "", model.Profile{}, ErrNoSession
	}
	if err != nil {
		return "", model.Profile{}, fmt.Errorf("load session: %w", err)
	}

	var p model.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil || token == "" {
		s.logger.Warn("discarding unreadable session", zap.Error(err))
		if err := s.Clear(); err != nil {
			return "", model.Profile{}, err
		}
		return "", model.Profile{}, ErrNoSession
	}

	s.mu.Lock()
	s.token, s.profile, s.loaded = token, p, true
	s.mu.Unlock()
	return token, p, nil
}

// Clear removes both keys.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key IN (?, ?)`, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.forget()
	return nil
}

// Credentials satisfies api.Credentials.
func (s *Store) Credentials() (string, int64, bool) {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.profile.UserID, s.token != ""
}

// Token is the bearer token, or "" when logged out.
func (s *Store) Token() string {
	token, _, _ := s.Credentials()
	return token
}

// Profile returns the signed-in user.
func (s *Store) Profile() (model.Profile, bool) {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.token != ""
}

// Expire is the api client's 401 hook: the server no longer accepts the
// token, so it is dropped.
func (s *Store) Expire() {
	if err := s.Clear(); err != nil {
		s.logger.Error("failed to clear expired session", zap.Error(err))
		return
	}
	s.logger.Info("session expired, logged out")
}

func (s *Store) ensureLoaded() {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}
	if _, _, err := s.Load(); err != nil && !errors.Is(err, ErrNoSession) {
		s.logger.Warn("failed to load session", zap.Error(err))
	}
}

func (s *Store) forget() {
	s.mu.Lock()
	s.token, s.profile, s.loaded = "", model.Profile{}, true
	s.mu.Unlock()
}
