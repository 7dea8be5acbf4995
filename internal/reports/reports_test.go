package reports

import (
	"errors"
	"testing"
	"time"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

func testReport(id, datasetID string) model.Report {
	return model.Report{
		ID:             id,
		DatasetID:      datasetID,
		DatasetName:    "sales",
		ConversationID: "conv-1",
		Question:       "how many rows?",
		Answer:         "This dataset has **1,748** rows.",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestAddGetDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.Add(testReport("rpt-1", "ds-1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := s.Get("rpt-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Answer == "" || got.DatasetID != "ds-1" {
		t.Fatalf("unexpected report: %+v", got)
	}

	if err := s.Delete("rpt-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("rpt-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete("rpt-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestListNewestFirstWithFilter(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, r := range []model.Report{
		testReport("rpt-1", "ds-1"),
		testReport("rpt-2", "ds-2"),
		testReport("rpt-3", "ds-1"),
	} {
		if err := s.Add(r); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	all := s.List("")
	if len(all) != 3 || all[0].ID != "rpt-3" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	filtered := s.List("ds-1")
	if len(filtered) != 2 || filtered[0].ID != "rpt-3" || filtered[1].ID != "rpt-1" {
		t.Fatalf("unexpected filter result: %+v", filtered)
	}
}

func TestReopenLoadsDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Add(testReport("rpt-1", "ds-1")); err != nil {
		t.Fatalf("add: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := s2.Get("rpt-1"); err != nil {
		t.Fatalf("report lost across reopen: %v", err)
	}
}
