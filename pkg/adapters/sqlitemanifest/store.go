// Package sqlitemanifest persists manifest entries in a SQLite database.
package sqlitemanifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/user/mediachunk/pkg/adapters/logger"
	"github.com/user/mediachunk/pkg/manifest"
	"github.com/user/mediachunk/pkg/ports"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	tableName  = "manifest_entries"

	// insertBatch keeps multi-row inserts under SQLite's bound parameter limit.
	insertBatch = 500
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

const schema = `
	CREATE TABLE IF NOT EXISTS manifest_entries (
		number INTEGER PRIMARY KEY,
		pts INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL DEFAULT '',
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0
	);
`

// Store is a manifest held in a SQLite file.
type Store struct {
	db  *sqlx.DB
	log ports.Logger
}

// Open opens or creates the manifest database at path.
func Open(path string, log ports.Logger) (*Store, error) {
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create manifest schema: %w", err)
	}
	return &Store{db: db, log: logger.OrNoop(log).WithComponent("manifest")}, nil
}

// Replace swaps the stored entries for entries in a single transaction.
func (s *Store) Replace(ctx context.Context, entries []manifest.Entry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := squirrel.Delete(tableName).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear manifest: %w", err)
	}

	for start := 0; start < len(entries); start += insertBatch {
		end := min(start+insertBatch, len(entries))
		ins := squirrel.Insert(tableName).Columns("number", "pts", "path", "width", "height")
		for _, e := range entries[start:end] {
			ins = ins.Values(e.Number, e.PTS, e.Path, e.Width, e.Height)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert manifest entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("Stored %d manifest entries", len(entries))
	return nil
}

// Load returns every entry ordered by frame number.
func (s *Store) Load(ctx context.Context) (manifest.Memory, error) {
	query, args, err := selectEntries().OrderBy("number").ToSql()
	if err != nil {
		return nil, err
	}
	var entries []manifest.Entry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	return manifest.Memory(entries), nil
}

// NearestKeyframe returns the last entry at or before id, or frame 0 at
// timestamp 0 when there is none.
func (s *Store) NearestKeyframe(ctx context.Context, id int) (int, int64, error) {
	query, args, err := selectEntries().
		Where(squirrel.LtOrEq{"number": id}).
		OrderBy("number DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return 0, 0, err
	}
	var e manifest.Entry
	if err := s.db.GetContext(ctx, &e, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("query keyframe: %w", err)
	}
	return e.Number, e.PTS, nil
}

// Len returns the number of stored entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	query, args, err := squirrel.Select("COUNT(*)").From(tableName).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func selectEntries() squirrel.SelectBuilder {
	return squirrel.Select("number", "pts", "path", "width", "height").From(tableName)
}
