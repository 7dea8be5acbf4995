// Package registry persists dataset metadata as a single JSON document in
// the application data directory.
//
// The file is loaded whole on open and rewritten on every mutation, which is
// fine for the hundreds of datasets a local-first install sees. Writes go
// through a temp file plus rename so a crash never leaves a torn document.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// ErrNotFound is returned when a requested dataset does not exist.
var ErrNotFound = errors.New("registry: dataset not found")

const fileName = "registry.json"

type document struct {
	Datasets []model.Dataset `json:"datasets"`
}

// Registry is the dataset store. All access serializes on one mutex; the
// engine, not the registry, is the hot path.
type Registry struct {
	path string

	mu  sync.Mutex
	doc document
}

// Open loads (or initializes) the registry document under dir.
func Open(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create data dir: %w", err)
	}
	r := &Registry{path: filepath.Join(dir, fileName)}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", r.path, err)
	}
	if err := json.Unmarshal(data, &r.doc); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", r.path, err)
	}
	return r, nil
}

// Get returns the dataset with the given id.
func (r *Registry) Get(id string) (model.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ds := range r.doc.Datasets {
		if ds.ID == id {
			return ds, nil
		}
	}
	return model.Dataset{}, ErrNotFound
}

// List returns every registered dataset in registration order.
func (r *Registry) List() []model.Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Dataset, len(r.doc.Datasets))
	copy(out, r.doc.Datasets)
	return out
}

// Put inserts or replaces a dataset by id and rewrites the document.
func (r *Registry) Put(ds model.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := false
	for i := range r.doc.Datasets {
		if r.doc.Datasets[i].ID == ds.ID {
			r.doc.Datasets[i] = ds
			replaced = true
			break
		}
	}
	if !replaced {
		r.doc.Datasets = append(r.doc.Datasets, ds)
	}
	return r.flush()
}

// flush rewrites the whole document. Caller holds the lock.
func (r *Registry) flush() error {
	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("registry: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("registry: rename %s: %w", tmp, err)
	}
	return nil
}
