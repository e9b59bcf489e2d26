package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"jurnalguru/internal/utils"
)

// Op identifies the kind of write a hook observes.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// HookFunc observes a write at the moment it is initiated. It cannot alter
// or veto the write.
type HookFunc func(collection string, op Op)

// Store wraps sql.DB with the versioned document schema and write hooks
type Store struct {
	db   *sql.DB
	path string

	mu                sync.RWMutex
	hooks             []HookFunc
	syncHooksAttached bool
}

// Open opens (creating if needed) the store at customPath, or at the
// XDG-compliant default location when customPath is empty, and applies any
// pending schema migrations.
func Open(customPath string) (*Store, error) {
	dbPath, err := getDatabasePath(customPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: every store operation and transaction is serialized.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.initializeSchema(context.Background()); err != nil {
		db.Close()
		return nil, &StoreError{Op: "init", Err: err}
	}

	return s, nil
}

// getDatabasePath returns the path to the SQLite database file
// Priority: customPath > $XDG_DATA_HOME/jurnalguru/jurnal.db > ~/.local/share/jurnalguru/jurnal.db
func getDatabasePath(customPath string) (string, error) {
	if customPath != "" {
		return utils.ExpandPath(customPath)
	}

	dir, err := utils.AppDir("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(dir, "jurnal.db"), nil
}

func (s *Store) initializeSchema(ctx context.Context) error {
	for _, pragma := range PragmaStatements() {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %q: %w", pragma, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, SchemaVersionTableSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if err := s.migrate(ctx, current, migrations); err != nil {
		return err
	}

	if current == 0 {
		return s.populate(ctx)
	}
	return nil
}

// migrate applies, in increasing order, every migration newer than current.
// Each version commits in its own transaction together with its
// schema_version row, so a version is never applied twice.
func (s *Store) migrate(ctx context.Context, current int, ms []Migration) error {
	for _, m := range ms {
		if m.Version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to apply schema version %d: %w", m.Version, err)
		}
		utils.Debugf("Applied schema version %d", m.Version)
		current = m.Version
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, cs := range m.Collections {
		if _, err := tx.ExecContext(ctx, createTableSQL(cs)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", cs.Name, err)
		}

		wanted := make(map[string]bool)
		for _, idx := range cs.Indexes {
			if !idx.MultiEntry {
				wanted[idx.Name(cs.Name)] = true
			}
		}

		existing, err := existingIndexes(ctx, tx, cs.Name)
		if err != nil {
			return err
		}
		for _, name := range existing {
			if wanted[name] {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DROP INDEX IF EXISTS "+name); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", name, err)
			}
		}

		for _, idx := range cs.Indexes {
			if idx.MultiEntry {
				continue
			}
			if _, err := tx.ExecContext(ctx, createIndexSQL(cs.Name, idx)); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.Name(cs.Name), err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		m.Version, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

func existingIndexes(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND substr(name, 1, 4) = 'idx_'",
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes of %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// populate seeds a freshly created store.
func (s *Store) populate(ctx context.Context) error {
	settings := s.Collection(Settings)
	for _, key := range []string{"teacherName", "schoolName"} {
		if _, err := Save(ctx, settings, Setting{Key: key, Value: ""}); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}
	return nil
}

// SchemaVersion returns the newest schema version applied to the database
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// AttachSyncHooks installs fn as the change-notification hook for every
// collection. It runs at most once per Store; later calls are no-ops and
// report false.
func (s *Store) AttachSyncHooks(fn HookFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.syncHooksAttached {
		return false
	}
	s.syncHooksAttached = true
	s.hooks = append(s.hooks, fn)
	return true
}

func (s *Store) fire(collection string, op Op) {
	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()

	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					utils.Errorf("write hook panicked on %s %s: %v", op, collection, r)
				}
			}()
			hook(collection, op)
		}()
	}
}

// Collection returns a handle on a collection outside of any transaction.
func (s *Store) Collection(name string) *Collection {
	return newCollection(name, s.db, s.fire)
}

// Tx is a transaction spanning any number of collections.
type Tx struct {
	tx   *sql.Tx
	fire HookFunc
}

// Collection returns a handle on a collection bound to the transaction.
func (t *Tx) Collection(name string) *Collection {
	return newCollection(name, t.tx, t.fire)
}

// Tx runs fn inside a single transaction. Either every write fn makes is
// committed or, if fn returns an error or panics, none are.
func (s *Store) Tx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "begin", Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			sqlTx.Rollback()
			panic(r)
		}
		if err != nil {
			sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{tx: sqlTx, fire: s.fire}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return &StoreError{Op: "commit", Err: err}
	}
	return nil
}

// Path returns the filesystem path to the database file
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Compact runs VACUUM to reclaim space after large deletions.
func (s *Store) Compact(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Stats holds per-collection record counts and the database file size
type Stats struct {
	Counts       map[string]int
	DatabaseSize int64 // in bytes
}

// GetStats returns record counts for every collection
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{Counts: make(map[string]int)}

	for _, name := range Collections() {
		n, err := s.Collection(name).Count(ctx)
		if err != nil {
			return stats, err
		}
		stats.Counts[name] = n
	}

	fileInfo, err := os.Stat(s.path)
	if err != nil {
		return stats, fmt.Errorf("failed to stat database file: %w", err)
	}
	stats.DatabaseSize = fileInfo.Size()

	return stats, nil
}
