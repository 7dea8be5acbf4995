package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ds := model.Dataset{
		ID:         "ds-1",
		Name:       "sales",
		SourceType: "csv",
		FilePath:   "/data/sales.csv",
		Status:     model.DatasetIngested,
		CreatedAt:  time.Now().UTC(),
		Catalog: &model.Catalog{
			RowCount: 10,
			Columns:  []model.Column{{Name: "amount", Type: model.TypeDouble}},
		},
	}
	if err := r.Put(ds); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := r.Get("ds-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "sales" || got.Catalog == nil || got.Catalog.RowCount != 10 {
		t.Fatalf("unexpected dataset: %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	r, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutReplacesByID(t *testing.T) {
	r, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.Put(model.Dataset{ID: "ds-1", Name: "v1"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := r.Put(model.Dataset{ID: "ds-1", Name: "v2"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if n := len(r.List()); n != 1 {
		t.Fatalf("expected 1 dataset, got %d", n)
	}
	got, _ := r.Get("ds-1")
	if got.Name != "v2" {
		t.Fatalf("expected replacement, got %q", got.Name)
	}
}

func TestReopenLoadsDocument(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.Put(model.Dataset{ID: "ds-1", Name: "sales"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	r2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := r2.Get("ds-1"); err != nil {
		t.Fatalf("dataset lost across reopen: %v", err)
	}
}
