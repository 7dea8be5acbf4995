// Package reports persists final_answer snapshots as a single JSON document
// in the application data directory, mirroring the registry's whole-file
// read/rewrite model.
package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// ErrNotFound is returned when a requested report does not exist.
var ErrNotFound = errors.New("reports: report not found")

const fileName = "reports.json"

type document struct {
	Reports []model.Report `json:"reports"`
}

// Store is the report store.
type Store struct {
	path string

	mu  sync.Mutex
	doc document
}

// Open loads (or initializes) the reports document under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("reports: create data dir: %w", err)
	}
	s := &Store{path: filepath.Join(dir, fileName)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reports: read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("reports: parse %s: %w", s.path, err)
	}
	return s, nil
}

// Add appends a report and rewrites the document.
func (s *Store) Add(rep model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Reports = append(s.doc.Reports, rep)
	return s.flush()
}

// List returns reports, newest first, optionally filtered by dataset id.
func (s *Store) List(datasetID string) []model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Report, 0, len(s.doc.Reports))
	for i := len(s.doc.Reports) - 1; i >= 0; i-- {
		rep := s.doc.Reports[i]
		if datasetID == "" || rep.DatasetID == datasetID {
			out = append(out, rep)
		}
	}
	return out
}

// Get returns the report with the given id.
func (s *Store) Get(id string) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rep := range s.doc.Reports {
		if rep.ID == id {
			return rep, nil
		}
	}
	return model.Report{}, ErrNotFound
}

// Delete removes the report with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rep := range s.doc.Reports {
		if rep.ID == id {
			s.doc.Reports = append(s.doc.Reports[:i], s.doc.Reports[i+1:]...)
			return s.flush()
		}
	}
	return ErrNotFound
}

// flush rewrites the whole document. Caller holds the lock.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("reports: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("reports: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("reports: rename %s: %w", tmp, err)
	}
	return nil
}
