package revision

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/blockpress/blockpress/internal/content"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS revisions (
	doc_id     TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	rev_id     TEXT    NOT NULL,
	snapshot   TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (doc_id, seq)
);

CREATE TABLE IF NOT EXISTS plugin_activation (
	name   TEXT    PRIMARY KEY,
	active INTEGER NOT NULL DEFAULT 1
);
`

// SQLiteStore is a durable Store backed by a SQLite database. It also
// holds the plugin activation rows consulted by the plugin loader.
type SQLiteStore struct {
	db *sql.DB

	// guardsMu protects the per-document append guards. The guards
	// enforce the reject-on-conflict append semantics in-process; the
	// (doc_id, seq) primary key backstops them at the database.
	guardsMu sync.Mutex
	guards   map[string]*sync.Mutex
}

// OpenSQLite opens (creating if needed) the database at path and
// ensures the schema exists. Use ":memory:" for an ephemeral store.
//
// File-backed stores run in WAL mode with a small connection pool, so
// reads proceed while an append transaction is in flight. An in-memory
// store keeps a single connection: each pooled connection would see
// its own private database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		guards: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Head implements Store.
func (s *SQLiteStore) Head(ctx context.Context, docID string) (Revision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT seq, rev_id, snapshot, created_at FROM revisions
		 WHERE doc_id = ? ORDER BY seq DESC LIMIT 1`, docID)
	return scanRevision(row)
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, docID string, seq uint64) (Revision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT seq, rev_id, snapshot, created_at FROM revisions
		 WHERE doc_id = ? AND seq = ?`, docID, int64(seq))
	return scanRevision(row)
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, docID string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, rev_id, snapshot, created_at FROM revisions
		 WHERE doc_id = ? ORDER BY seq ASC`, docID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			seq     int64
			revID   string
			payload string
			created int64
		)
		if err := rows.Scan(&seq, &revID, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		rev, err := buildRevision(seq, revID, payload, created)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Append implements Store. The snapshot is committed atomically with
// the next sequence number; once Append returns the revision is durable.
func (s *SQLiteStore) Append(ctx context.Context, docID string, snapshot content.Tree) (Revision, error) {
	guard := s.guard(docID)
	if !guard.TryLock() {
		return Revision{}, ErrSaveInProgress
	}
	defer guard.Unlock()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Revision{}, fmt.Errorf("encode snapshot: %w", err)
	}

	rev := Revision{
		ID:        ulid.Make().String(),
		Snapshot:  snapshot.Clone(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var max sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM revisions WHERE doc_id = ?`, docID).Scan(&max); err != nil {
		return Revision{}, fmt.Errorf("next sequence: %w", err)
	}
	rev.Sequence = uint64(max.Int64) + 1

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (doc_id, seq, rev_id, snapshot, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		docID, int64(rev.Sequence), rev.ID, string(payload), rev.CreatedAt.UnixMilli()); err != nil {
		return Revision{}, fmt.Errorf("append revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Revision{}, fmt.Errorf("commit revision: %w", err)
	}
	return rev, nil
}

// ListActivations returns the plugin activation rows as a name → active
// map. Plugins without a row default to active at the loader.
func (s *SQLiteStore) ListActivations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, active FROM plugin_activation`)
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			name   string
			active int
		)
		if err := rows.Scan(&name, &active); err != nil {
			return nil, fmt.Errorf("scan activation: %w", err)
		}
		out[name] = active != 0
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	return out, nil
}

// SetActivation records whether the named plugin should be loaded.
// Takes effect on the next process start; registration is additive for
// the process lifetime.
func (s *SQLiteStore) SetActivation(ctx context.Context, name string, active bool) error {
	val := 0
	if active {
		val = 1
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO plugin_activation (name, active) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET active = excluded.active`, name, val); err != nil {
		return fmt.Errorf("set activation %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) guard(docID string) *sync.Mutex {
	s.guardsMu.Lock()
	defer s.guardsMu.Unlock()

	guard, ok := s.guards[docID]
	if !ok {
		guard = &sync.Mutex{}
		s.guards[docID] = guard
	}
	return guard
}

func scanRevision(row *sql.Row) (Revision, error) {
	var (
		seq     int64
		revID   string
		payload string
		created int64
	)
	if err := row.Scan(&seq, &revID, &payload, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Revision{}, ErrNotFound
		}
		return Revision{}, fmt.Errorf("scan revision: %w", err)
	}
	return buildRevision(seq, revID, payload, created)
}

func buildRevision(seq int64, revID, payload string, created int64) (Revision, error) {
	var snapshot content.Tree
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return Revision{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return Revision{
		ID:        revID,
		Sequence:  uint64(seq),
		Snapshot:  snapshot,
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}
