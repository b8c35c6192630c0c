package finitemutsel

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

//TraceStore mirrors the trace into a sqlite table, one row per sweep, keyed by run id
type TraceStore struct {
	db     *sql.DB
	insert *sql.Stmt
	runID  string
}

func traceSQLColumns() []string {
	cols := make([]string, len(traceColumns))
	for i, c := range traceColumns {
		cols[i] = strings.TrimPrefix(c, "#")
	}
	return cols
}

//OpenTraceStore will open (or create) the database at path
func OpenTraceStore(ctx context.Context, path, runID string) (*TraceStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace store: %w", err)
	}
	cols := traceSQLColumns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " REAL"
	}
	schema := "CREATE TABLE IF NOT EXISTS trace (run_id TEXT NOT NULL, " + strings.Join(defs, ", ") + ")"
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create trace table: %w", err)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	insert, err := db.PrepareContext(ctx, "INSERT INTO trace (run_id, "+strings.Join(cols, ", ")+") VALUES ("+marks+")")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare trace insert: %w", err)
	}
	return &TraceStore{db: db, insert: insert, runID: runID}, nil
}

//Append stores one trace row
func (ts *TraceStore) Append(ctx context.Context, row TraceRow) error {
	vals := row.Values()
	args := make([]any, 0, len(vals)+1)
	args = append(args, ts.runID)
	for _, v := range vals {
		args = append(args, v)
	}
	if _, err := ts.insert.ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("append trace row %d: %w", row.Iter, err)
	}
	return nil
}

//Count returns the number of rows stored for this run
func (ts *TraceStore) Count(ctx context.Context) (int, error) {
	var n int
	err := ts.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trace WHERE run_id = ?", ts.runID).Scan(&n)
	return n, err
}

//Close releases the database
func (ts *TraceStore) Close() error {
	ts.insert.Close()
	return ts.db.Close()
}
