// Package snapshot persists the last built autoload table in sqlite so a
// cold start can serve lookups before composer manifests are re-read.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"implementor/internal/core/ports"
	"implementor/internal/engine/autoload"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("snapshot path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("snapshot path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite snapshot %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite snapshot %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Save replaces the stored table with st in a single transaction.
func (s *Store) Save(ctx context.Context, st ports.StoredTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save autoload table", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := writeTable(ctx, tx, st); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func writeTable(ctx context.Context, tx *sql.Tx, st ports.StoredTable) error {
	t := st.Table
	for _, stmt := range []string{
		`DELETE FROM autoload_classmap_globs`,
		`DELETE FROM autoload_classmap`,
		`DELETE FROM autoload_roots`,
		`DELETE FROM autoload_meta`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO autoload_meta(id, extension, fingerprint, saved_at_utc) VALUES (1, ?, ?, ?)`,
		t.Extension(), st.Fingerprint, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	for i, r := range t.Roots() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO autoload_roots(position, prefix, dir) VALUES (?, ?, ?)`,
			i, r.Prefix, r.Dir,
		); err != nil {
			return fmt.Errorf("insert root %q: %w", r.Prefix, err)
		}
	}
	for i, c := range t.Classmap() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO autoload_classmap(position, prefix) VALUES (?, ?)`,
			i, c.Prefix,
		); err != nil {
			return fmt.Errorf("insert classmap %q: %w", c.Prefix, err)
		}
		for j, g := range c.Globs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO autoload_classmap_globs(classmap_position, position, glob) VALUES (?, ?, ?)`,
				i, j, g,
			); err != nil {
				return fmt.Errorf("insert classmap glob %q: %w", g, err)
			}
		}
	}
	return nil
}

// Load returns the stored table. The boolean is false when nothing has been
// saved yet. Tables saved before fingerprints were recorded carry an empty
// fingerprint.
func (s *Store) Load(ctx context.Context) (ports.StoredTable, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ext, fingerprint string
	err := s.withRetry("load autoload meta", func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT extension, fingerprint FROM autoload_meta WHERE id = 1`,
		).Scan(&ext, &fingerprint)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ports.StoredTable{}, false, nil
	}
	if err != nil {
		return ports.StoredTable{}, false, err
	}
	t, err := s.loadTable(ctx, ext)
	if err != nil {
		return ports.StoredTable{}, false, err
	}
	return ports.StoredTable{Table: t, Fingerprint: fingerprint}, true, nil
}

func (s *Store) loadTable(ctx context.Context, ext string) (*autoload.Table, error) {
	b := autoload.NewBuilder().SetExtension(ext)

	var rows *sql.Rows
	if err := s.withRetry("load autoload roots", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `SELECT prefix, dir FROM autoload_roots ORDER BY position ASC`)
		return qErr
	}); err != nil {
		return nil, err
	}
	for rows.Next() {
		var prefix, dir string
		if err := rows.Scan(&prefix, &dir); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan root row: %w", err)
		}
		b.AddRoot(prefix, dir)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate root rows: %w", err)
	}
	rows.Close()

	if err := s.withRetry("load autoload classmap", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT c.prefix, g.glob
FROM autoload_classmap c
LEFT JOIN autoload_classmap_globs g ON g.classmap_position = c.position
ORDER BY c.position ASC, g.position ASC
`)
		return qErr
	}); err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		order []string
		globs = make(map[string][]string)
	)
	for rows.Next() {
		var (
			prefix string
			glob   sql.NullString
		)
		if err := rows.Scan(&prefix, &glob); err != nil {
			return nil, fmt.Errorf("scan classmap row: %w", err)
		}
		if _, ok := globs[prefix]; !ok {
			order = append(order, prefix)
			globs[prefix] = nil
		}
		if glob.Valid {
			globs[prefix] = append(globs[prefix], glob.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classmap rows: %w", err)
	}
	for _, prefix := range order {
		b.AddClassmap(prefix, globs[prefix]...)
	}

	return b.Build(), nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	if errors.Is(lastErr, sql.ErrNoRows) {
		return lastErr
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
