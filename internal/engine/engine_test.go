package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/sqlcheck"
)

func TestNewClampsTimeout(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	e := New(logger, Options{})
	if e.timeout != DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", e.timeout)
	}

	e = New(logger, Options{Timeout: time.Minute})
	if e.timeout != MaxTimeout {
		t.Fatalf("expected clamp to %s, got %s", MaxTimeout, e.timeout)
	}

	e = New(logger, Options{Timeout: 3 * time.Second})
	if e.timeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", e.timeout)
	}
}

func TestLogicalType(t *testing.T) {
	cases := map[string]model.ColumnType{
		"VARCHAR":        model.TypeText,
		"BIGINT":         model.TypeInteger,
		"INTEGER":        model.TypeInteger,
		"DOUBLE":         model.TypeDouble,
		"FLOAT":          model.TypeDouble,
		"DECIMAL(18,3)":  model.TypeDecimal,
		"DATE":           model.TypeDate,
		"TIMESTAMP":      model.TypeTimestamp,
		"TIMESTAMP_NS":   model.TypeTimestamp,
		"BOOLEAN":        model.TypeBoolean,
		"BLOB":           model.TypeText,
		"something else": model.TypeText,
	}
	for duck, want := range cases {
		if got := logicalType(duck); got != want {
			t.Errorf("logicalType(%q) = %s, want %s", duck, got, want)
		}
	}
}

func TestSQLPathQuoting(t *testing.T) {
	if got := sqlPath("/data/sales.csv"); got != "'/data/sales.csv'" {
		t.Fatalf("unexpected quoting: %s", got)
	}
	if got := sqlPath("/data/it's.csv"); got != "'/data/it''s.csv'" {
		t.Fatalf("embedded quote not escaped: %s", got)
	}
}

func TestAcquireRetriesAfterFailedOpen(t *testing.T) {
	e := New(slog.New(slog.DiscardHandler), Options{})
	defer e.Close()

	path := filepath.Join(t.TempDir(), "sales.csv")
	ds := &model.Dataset{ID: "ds-1", FilePath: path}

	// First open fails: the file does not exist yet.
	_, err := e.acquire(context.Background(), ds)
	f, ok := AsFailure(err)
	if !ok || f.Kind != KindFileUnreadable {
		t.Fatalf("expected file_unreadable, got %v", err)
	}

	// The failure must not stick: once the file appears, the same dataset
	// opens normally.
	if err := os.WriteFile(path, []byte("category,amount\na,1\nb,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	db, err := e.acquire(context.Background(), ds)
	if err != nil {
		t.Fatalf("open after transient failure: %v", err)
	}
	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM data").Scan(&n); err != nil {
		t.Fatalf("query on recovered connection: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestExecuteValidatesBeforeOpening(t *testing.T) {
	e := New(slog.New(slog.DiscardHandler), Options{})
	defer e.Close()

	// The source file does not exist, so any attempt to open it would fail
	// with file_unreadable. A forbidden statement must be rejected by
	// validation first and never reach the open path.
	ds := &model.Dataset{ID: "ds-1", FilePath: "/nonexistent/sales.csv"}
	queries := []model.PlannedQuery{{Name: "bad", SQL: "DROP TABLE data"}}

	_, err := e.Execute(context.Background(), ds, queries, false, sqlcheck.MaxRows)
	f, ok := AsFailure(err)
	if !ok || f.Kind != KindValidationFailed {
		t.Fatalf("expected validation_failed, got %v", err)
	}
}

func TestFailureUnwrap(t *testing.T) {
	f := &Failure{Kind: KindTimeout, Err: context.DeadlineExceeded}
	got, ok := AsFailure(f)
	if !ok || got.Kind != KindTimeout {
		t.Fatalf("AsFailure failed: %v %v", got, ok)
	}
	if !errors.Is(f, context.DeadlineExceeded) {
		t.Fatal("Failure must unwrap to its cause")
	}
}
