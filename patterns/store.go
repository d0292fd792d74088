package patterns

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/structura/structura/dbopen"
)

// Schema for the pattern snapshot store. Loaded snapshots are versioned:
// every learning step bumps the version inside the same transaction that
// inserts the pattern, which is the atomic replace-on-write the snapshot
// contract requires.
const schema = `
CREATE TABLE IF NOT EXISTS patterns (
    id            TEXT PRIMARY KEY,
    shape         TEXT NOT NULL,
    level         INTEGER NOT NULL DEFAULT 1,
    min_font_size REAL NOT NULL DEFAULT 0,
    bold          INTEGER NOT NULL DEFAULT 0,
    suppress      INTEGER NOT NULL DEFAULT 0,
    confidence    REAL NOT NULL,
    correction_id TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL,
    matches       INTEGER NOT NULL DEFAULT 0,
    successes     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS snapshot_meta (
    id      INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL
);
INSERT OR IGNORE INTO snapshot_meta (id, version) VALUES (1, 0);
`

// store wraps the SQLite persistence of the pattern library. All writes go
// through the Library's writer lock; the store itself only runs statements.
type store struct {
	db *sql.DB
}

func newStore(db *sql.DB) (*store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("patterns schema: %w", err)
	}
	return &store{db: db}, nil
}

// load reads the full pattern set and version as one consistent snapshot.
func (s *store) load(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("patterns load: %w", err)
	}
	defer tx.Rollback()

	snap := &Snapshot{}
	if err := tx.QueryRowContext(ctx, `SELECT version FROM snapshot_meta WHERE id = 1`).Scan(&snap.Version); err != nil {
		return nil, fmt.Errorf("patterns version: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, shape, level, min_font_size, bold, suppress,
		       confidence, correction_id, created_at, matches, successes
		FROM patterns ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("patterns query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Pattern
		var created int64
		var bold, suppress int
		if err := rows.Scan(&p.ID, &p.Shape, &p.Level, &p.MinFontSize, &bold, &suppress,
			&p.Confidence, &p.CorrectionID, &created, &p.Matches, &p.Successes); err != nil {
			return nil, fmt.Errorf("patterns scan: %w", err)
		}
		p.Bold = bold != 0
		p.Suppress = suppress != 0
		p.Created = time.Unix(created, 0).UTC()
		snap.Patterns = append(snap.Patterns, p)
	}
	return snap, rows.Err()
}

// insert adds one pattern and bumps the snapshot version atomically.
func (s *store) insert(ctx context.Context, p Pattern) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO patterns (
				id, shape, level, min_font_size, bold, suppress,
				confidence, correction_id, created_at, matches, successes
			) VALUES (?,?,?,?,?,?,?,?,?,0,0)`,
			p.ID, p.Shape, p.Level, p.MinFontSize, boolInt(p.Bold), boolInt(p.Suppress),
			p.Confidence, p.CorrectionID, p.Created.Unix())
		if err != nil {
			return fmt.Errorf("patterns insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE snapshot_meta SET version = version + 1 WHERE id = 1`); err != nil {
			return fmt.Errorf("patterns version bump: %w", err)
		}
		return nil
	})
}

// recordMatches bumps advisory match counters. Counters never feed back into
// suggestion scoring automatically, so this does not bump the version.
func (s *store) recordMatches(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `UPDATE patterns SET matches = matches + 1 WHERE id = ?`, id); err != nil {
				return fmt.Errorf("patterns counters: %w", err)
			}
		}
		return nil
	})
}

// recordSuccess bumps the success counter of one pattern.
func (s *store) recordSuccess(ctx context.Context, id string) error {
	if _, err := dbopen.Exec(ctx, s.db, `UPDATE patterns SET successes = successes + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("patterns success counter: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
