// Package convo owns per-conversation state and the state machine that
// interprets each chat turn.
package convo

import (
	"sync"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// Context is the per-conversation key/value state accumulated across turns.
// Fields are added or overwritten within a turn but never silently dropped.
type Context struct {
	AnalysisType model.AnalysisType
	TimePeriod   model.TimePeriod

	// Optional column overrides from AI intent extraction.
	Metric     string
	GroupBy    string
	DateColumn string

	// Limit is a top-N override captured by the router.
	Limit int

	// LastPlannedQueries is the plan most recently returned as run_queries;
	// consumed when the client reposts results so the audit carries the
	// executed SQL.
	LastPlannedQueries []model.PlannedQuery

	// ClarificationAsked latches after the first manual clarification so a
	// conversation can never dead-end in a clarification loop.
	ClarificationAsked bool
}

// Conversation is one conversation's identity, lock, and context. Turns on
// the same conversation serialize on mu; context merges are atomic per turn.
type Conversation struct {
	ID string

	mu      sync.Mutex
	Context Context
}

// Store holds every live conversation. State is process-memory only:
// conversations are created on first reference and lost on restart by
// design.
type Store struct {
	mu    sync.Mutex
	convs map[string]*Conversation
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{convs: make(map[string]*Conversation)}
}

// Get returns the conversation with the given id, creating it on first
// reference.
func (s *Store) Get(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		conv = &Conversation{ID: id}
		s.convs[id] = conv
	}
	return conv
}
