// Package store exports analysis runs to a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dcdis/internal/analyze"
	"dcdis/internal/cfg"
	"dcdis/internal/dc"
	"dcdis/internal/disasm"
	"dcdis/internal/sid"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("store: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id       TEXT PRIMARY KEY,
	file     TEXT NOT NULL,
	size     INTEGER NOT NULL,
	entries  INTEGER NOT NULL,
	failed   INTEGER NOT NULL,
	created  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	idx       INTEGER NOT NULL,
	name      TEXT NOT NULL,
	name_hash TEXT NOT NULL,
	type_hash TEXT NOT NULL,
	kind      TEXT NOT NULL,
	ptr       INTEGER NOT NULL,
	PRIMARY KEY (run_id, idx)
);
CREATE TABLE IF NOT EXISTS functions (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	entry        INTEGER NOT NULL,
	name         TEXT NOT NULL,
	instr_offset INTEGER NOT NULL,
	const_offset INTEGER NOT NULL,
	lines        INTEGER NOT NULL,
	error        TEXT,
	PRIMARY KEY (run_id, entry)
);
CREATE TABLE IF NOT EXISTS lines (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	entry    INTEGER NOT NULL,
	location INTEGER NOT NULL,
	offset   INTEGER NOT NULL,
	mnemonic TEXT NOT NULL,
	operands TEXT,
	comment  TEXT,
	target   INTEGER,
	label    INTEGER,
	callee   TEXT,
	fault    TEXT,
	PRIMARY KEY (run_id, entry, location)
);
CREATE TABLE IF NOT EXISTS nodes (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	entry    INTEGER NOT NULL,
	start    INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	PRIMARY KEY (run_id, entry, start)
);
CREATE TABLE IF NOT EXISTS edges (
	run_id TEXT NOT NULL REFERENCES runs(id),
	entry  INTEGER NOT NULL,
	src    INTEGER NOT NULL,
	dst    INTEGER NOT NULL,
	kind   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS loops (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	entry     INTEGER NOT NULL,
	head      INTEGER NOT NULL,
	latch     INTEGER NOT NULL,
	body      TEXT NOT NULL,
	dominated INTEGER NOT NULL
);
`

// Store is an open export database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one row of the runs table.
type Run struct {
	ID      string
	File    string
	Size    int
	Entries int
	Failed  int
	Created time.Time
}

// Save writes report in a single transaction and returns the new run id.
// Entry kinds come from c; entry names from names when set.
func (s *Store) Save(ctx context.Context, file string, report *analyze.Report, c dc.Classifier, names disasm.Resolver) (string, error) {
	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	f := report.File
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (id, file, size, entries, failed, created) VALUES (?, ?, ?, ?, ?, ?)",
		id, file, f.Size(), len(f.Entries), report.Failed(), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return "", fmt.Errorf("store: insert run: %w", err)
	}

	for _, e := range f.Entries {
		name := sid.Format(e.NameHash)
		if names != nil {
			name = names.Resolve(e.NameHash)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entries (run_id, idx, name, name_hash, type_hash, kind, ptr) VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, e.Index, name, sid.Format(e.NameHash), sid.Format(e.TypeHash), c.Kind(e.TypeHash).String(), int64(e.Ptr),
		); err != nil {
			return "", fmt.Errorf("store: insert entry %d: %w", e.Index, err)
		}
	}

	for _, res := range report.Results {
		if err := saveResult(ctx, tx, id, res); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit: %w", err)
	}
	return id, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func saveResult(ctx context.Context, tx *sql.Tx, id string, res analyze.Result) error {
	entry := res.Entry.Index
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}
	lines := 0
	if res.Func != nil {
		lines = res.Func.Len()
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO functions (run_id, entry, name, instr_offset, const_offset, lines, error) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, entry, res.Name, int64(res.Lambda.InstrOffset), int64(res.Lambda.ConstOffset), lines, nullString(errText),
	); err != nil {
		return fmt.Errorf("store: insert function %s: %w", res.Name, err)
	}

	if res.Func != nil {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO lines (run_id, entry, location, offset, mnemonic, operands, comment, target, label, callee, fault) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("store: prepare lines: %w", err)
		}
		defer stmt.Close()
		for _, ln := range res.Func.Lines {
			var target, label sql.NullInt64
			if ln.HasTarget() {
				target = sql.NullInt64{Int64: int64(ln.Target), Valid: true}
			}
			if ln.Label >= 0 {
				label = sql.NullInt64{Int64: int64(ln.Label), Valid: true}
			}
			var fault string
			if ln.Fault != nil {
				fault = ln.Fault.Err.Error()
			}
			if _, err := stmt.ExecContext(ctx, id, entry, ln.Location, int64(ln.Offset), ln.Mnemonic,
				nullString(ln.Operands), nullString(ln.Comment), target, label, nullString(ln.Callee), nullString(fault),
			); err != nil {
				return fmt.Errorf("store: insert line %s:%d: %w", res.Name, ln.Location, err)
			}
		}
	}

	if res.Graph != nil {
		return saveGraph(ctx, tx, id, entry, res.Graph)
	}
	return nil
}

func saveGraph(ctx context.Context, tx *sql.Tx, id string, entry int, g *cfg.Graph) error {
	for _, nd := range g.Sorted() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO nodes (run_id, entry, start, end_line) VALUES (?, ?, ?, ?)",
			id, entry, nd.Start, nd.End,
		); err != nil {
			return fmt.Errorf("store: insert node %d: %w", nd.Start, err)
		}
	}
	for _, e := range g.Edges() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO edges (run_id, entry, src, dst, kind) VALUES (?, ?, ?, ?, ?)",
			id, entry, e.From, e.To, e.Kind.String(),
		); err != nil {
			return fmt.Errorf("store: insert edge %d->%d: %w", e.From, e.To, err)
		}
	}
	for _, lp := range g.Loops {
		body, err := json.Marshal(lp.Body)
		if err != nil {
			return fmt.Errorf("store: encode loop body: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO loops (run_id, entry, head, latch, body, dominated) VALUES (?, ?, ?, ?, ?, ?)",
			id, entry, lp.Head, lp.Latch, string(body), lp.Dominated,
		); err != nil {
			return fmt.Errorf("store: insert loop %d: %w", lp.Head, err)
		}
	}
	return nil
}

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	var created string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, file, size, entries, failed, created FROM runs WHERE id = ?", id,
	).Scan(&r.ID, &r.File, &r.Size, &r.Entries, &r.Failed, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("store: query run: %w", err)
	}
	if r.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("store: parse created: %w", err)
	}
	return &r, nil
}

// Loop is one row of the loops table.
type Loop struct {
	Entry     int
	Head      int
	Latch     int
	Body      []int
	Dominated bool
}

// Loops returns the loops of a run ordered by entry and head.
func (s *Store) Loops(ctx context.Context, runID string) ([]Loop, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entry, head, latch, body, dominated FROM loops WHERE run_id = ? ORDER BY entry, head", runID)
	if err != nil {
		return nil, fmt.Errorf("store: query loops: %w", err)
	}
	defer rows.Close()

	var out []Loop
	for rows.Next() {
		var lp Loop
		var body string
		if err := rows.Scan(&lp.Entry, &lp.Head, &lp.Latch, &body, &lp.Dominated); err != nil {
			return nil, fmt.Errorf("store: scan loop: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &lp.Body); err != nil {
			return nil, fmt.Errorf("store: decode loop body: %w", err)
		}
		out = append(out, lp)
	}
	return out, rows.Err()
}

var countQueries = map[string]string{
	"entries":   "SELECT COUNT(*) FROM entries WHERE run_id = ?",
	"functions": "SELECT COUNT(*) FROM functions WHERE run_id = ?",
	"lines":     "SELECT COUNT(*) FROM lines WHERE run_id = ?",
	"nodes":     "SELECT COUNT(*) FROM nodes WHERE run_id = ?",
	"edges":     "SELECT COUNT(*) FROM edges WHERE run_id = ?",
	"loops":     "SELECT COUNT(*) FROM loops WHERE run_id = ?",
}

// Count returns the number of rows a run has in table.
func (s *Store) Count(ctx context.Context, runID, table string) (int, error) {
	q, ok := countQueries[table]
	if !ok {
		return 0, fmt.Errorf("store: unknown table %q", table)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count %s: %w", table, err)
	}
	return n, nil
}

// Callees returns the distinct callee names a run's lambdas call.
func (s *Store) Callees(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT callee FROM lines WHERE run_id = ? AND callee IS NOT NULL ORDER BY callee", runID)
	if err != nil {
		return nil, fmt.Errorf("store: query callees: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan callee: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
