// Package engine executes validated SQL against registered tabular files
// using embedded DuckDB.
//
// Each dataset gets one cached connection. Sources that were ingested to a
// native .duckdb file open read-only; everything else materializes into an
// in-memory table named `data` via DuckDB's auto-detecting readers (Excel
// files go through a CSV conversion first). Four independent containment
// walls bound each query: read-only/materialized data, SELECT-only
// validation, a hard row cap, and a timeout.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/sqlcheck"
)

const (
	// DefaultTimeout bounds a single query; MaxTimeout is the hard ceiling
	// regardless of configuration.
	DefaultTimeout = 10 * time.Second
	MaxTimeout     = 30 * time.Second

	// DefaultMaxFileBytes bounds source files accepted on the in-memory
	// load path.
	DefaultMaxFileBytes = 512 << 20
)

// Options configures an Engine; zero values get defaults.
type Options struct {
	Timeout      time.Duration
	MaxFileBytes int64
}

// Engine owns the per-dataset connection cache. Connections live for the
// process lifetime; there is no eviction.
type Engine struct {
	logger       *slog.Logger
	timeout      time.Duration
	maxFileBytes int64

	mu    sync.Mutex
	conns map[string]*datasetConn
}

// datasetConn is one cached connection. The mutex serializes opens so a
// failed open can be retried by a later caller instead of sticking;
// MaxOpenConns(1) serializes queries on the connection.
type datasetConn struct {
	mu sync.Mutex
	db *sql.DB
}

// New creates an Engine.
func New(logger *slog.Logger, opts Options) *Engine {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Engine{
		logger:       logger,
		timeout:      timeout,
		maxFileBytes: maxBytes,
		conns:        make(map[string]*datasetConn),
	}
}

// Close releases every cached connection.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, c := range e.conns {
		if c.db != nil {
			if err := c.db.Close(); err != nil {
				e.logger.Warn("closing dataset connection", "dataset_id", id, "error", err)
			}
		}
	}
	e.conns = make(map[string]*datasetConn)
}

// acquire returns the cached connection for ds, opening it on first use.
// Open failures are not cached: a file that was momentarily unreadable must
// not poison the dataset for the process lifetime.
func (e *Engine) acquire(ctx context.Context, ds *model.Dataset) (*sql.DB, error) {
	e.mu.Lock()
	c, ok := e.conns[ds.ID]
	if !ok {
		c = &datasetConn{}
		e.conns[ds.ID] = c
	}
	e.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}
	db, err := e.open(ctx, ds)
	if err != nil {
		return nil, err
	}
	c.db = db
	e.logger.Info("opened dataset connection",
		"dataset_id", ds.ID, "source", ds.FilePath)
	return db, nil
}

func (e *Engine) open(ctx context.Context, ds *model.Dataset) (*sql.DB, error) {
	ext := strings.ToLower(filepath.Ext(ds.FilePath))

	if ext == ".duckdb" {
		db, err := sql.Open("duckdb", ds.FilePath+"?access_mode=read_only")
		if err != nil {
			return nil, &Failure{Kind: KindEngineError, Err: err}
		}
		db.SetMaxOpenConns(1)
		return db, nil
	}

	info, err := os.Stat(ds.FilePath)
	if err != nil {
		return nil, &Failure{Kind: KindFileUnreadable, Err: fmt.Errorf("source file %s: %w", ds.FilePath, err)}
	}
	if info.Size() > e.maxFileBytes {
		return nil, &Failure{
			Kind: KindFileUnreadable,
			Err:  fmt.Errorf("source file %s is %d bytes, over the %d byte in-memory limit", ds.FilePath, info.Size(), e.maxFileBytes),
		}
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, &Failure{Kind: KindEngineError, Err: err}
	}
	db.SetMaxOpenConns(1)

	// The materialized table is shared process state, so the load runs
	// detached from the caller's context: a client disconnect mid-load must
	// not abort it for everyone else. The hard ceiling applies instead of
	// the per-query timeout since a full-file load is the heavier operation.
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), MaxTimeout)
	defer cancel()
	if err := e.materialize(mctx, db, ds.FilePath, ext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// materialize loads the source file into a table named data.
func (e *Engine) materialize(ctx context.Context, db *sql.DB, path, ext string) error {
	var stmt string
	switch ext {
	case ".csv", ".tsv":
		stmt = fmt.Sprintf("CREATE TABLE data AS SELECT * FROM read_csv_auto(%s)", sqlPath(path))
	case ".parquet":
		stmt = fmt.Sprintf("CREATE TABLE data AS SELECT * FROM read_parquet(%s)", sqlPath(path))
	case ".xlsx", ".xls":
		csvPath, cleanup, err := excelToCSV(path)
		if err != nil {
			return &Failure{Kind: KindFileUnreadable, Err: err}
		}
		defer cleanup()
		stmt = fmt.Sprintf("CREATE TABLE data AS SELECT * FROM read_csv_auto(%s)", sqlPath(csvPath))
	default:
		return &Failure{Kind: KindFileUnreadable, Err: fmt.Errorf("unsupported file format %q", ext)}
	}

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return &Failure{Kind: KindFileUnreadable, Err: fmt.Errorf("loading %s: %w", path, err)}
	}
	return nil
}

// Execute validates and runs each query in order on the dataset's cached
// connection. Every query must pass validation before the connection is
// even opened; a rejected statement never triggers a file load. maxRows
// caps both the LIMIT rewrite and result materialization.
func (e *Engine) Execute(ctx context.Context, ds *model.Dataset, queries []model.PlannedQuery, safeMode bool, maxRows int) ([]model.QueryResult, error) {
	validated := make([]string, len(queries))
	for i, q := range queries {
		sqlText, err := sqlcheck.Validate(q.SQL, safeMode, maxRows)
		if err != nil {
			return nil, &Failure{Kind: KindValidationFailed, Err: fmt.Errorf("query %q: %w", q.Name, err)}
		}
		validated[i] = sqlText
	}

	db, err := e.acquire(ctx, ds)
	if err != nil {
		return nil, err
	}

	results := make([]model.QueryResult, 0, len(queries))
	for i, q := range queries {
		res, err := e.runOne(ctx, db, q.Name, validated[i], maxRows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) runOne(ctx context.Context, db *sql.DB, name, sqlText string, maxRows int) (model.QueryResult, error) {
	qctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := db.QueryContext(qctx, sqlText)
	if err != nil {
		if errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return model.QueryResult{}, &Failure{Kind: KindTimeout, Err: fmt.Errorf("query %q exceeded %s", name, e.timeout)}
		}
		return model.QueryResult{}, &Failure{Kind: KindEngineError, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return model.QueryResult{}, &Failure{Kind: KindEngineError, Err: err}
	}

	out := model.QueryResult{Name: name, Columns: cols, Rows: [][]any{}}
	for rows.Next() && len(out.Rows) < maxRows {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.QueryResult{}, &Failure{Kind: KindEngineError, Err: err}
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, values)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return model.QueryResult{}, &Failure{Kind: KindTimeout, Err: fmt.Errorf("query %q exceeded %s", name, e.timeout)}
		}
		return model.QueryResult{}, &Failure{Kind: KindEngineError, Err: err}
	}
	out.RowCount = len(out.Rows)

	e.logger.Debug("query executed",
		"query", name, "rows", out.RowCount, "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// sqlPath single-quotes a filesystem path for use in a reader call.
func sqlPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", "''") + "'"
}
