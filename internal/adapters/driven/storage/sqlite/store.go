package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/campusbridge/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Store is a SQLite database holding credential records.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at dbPath.
// If dbPath is empty, defaults to ~/.campusbridge/data/credentials.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".campusbridge", "data", "credentials.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CredentialStore returns a CredentialStore interface backed by this store.
func (s *Store) CredentialStore() driven.CredentialStore {
	return &credentialStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_credentials.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ==================== Credential Store ====================

// credentialStore implements driven.CredentialStore.
type credentialStore struct {
	store *Store
}

var _ driven.CredentialStore = (*credentialStore)(nil)

// Get retrieves the record for a user and app.
func (s *credentialStore) Get(ctx context.Context, userID, appID string) (*domain.CredentialRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT user_id, app_id, access_token, refresh_token, expires_at, updated_at
		FROM credentials WHERE user_id = ? AND app_id = ?
	`, userID, appID)

	rec, err := scanCredentialRecord(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil // No record for this user is valid
	}
	return rec, err
}

// Put stores or updates a record.
func (s *credentialStore) Put(ctx context.Context, rec domain.CredentialRecord) error {
	if rec.UserID == "" || rec.AppID == "" {
		return domain.ErrInvalidInput
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO credentials
			(user_id, app_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, app_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, rec.UserID, rec.AppID, rec.AccessToken, rec.RefreshToken,
		unixOrZero(rec.Expiry), rec.UpdatedAt.UnixNano())

	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Delete removes the record for a user and app.
func (s *credentialStore) Delete(ctx context.Context, userID, appID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE user_id = ? AND app_id = ?", userID, appID)
	if err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	return nil
}

// scanCredentialRecord scans a single credentials row.
func scanCredentialRecord(row *sql.Row) (*domain.CredentialRecord, error) {
	var rec domain.CredentialRecord
	var expiresAt, updatedAt int64

	if err := row.Scan(&rec.UserID, &rec.AppID, &rec.AccessToken, &rec.RefreshToken,
		&expiresAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning credentials: %w", err)
	}

	if expiresAt > 0 {
		rec.Expiry = time.Unix(expiresAt, 0).UTC()
	}
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &rec, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
