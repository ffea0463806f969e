package memstore

import (
	"context"
	"sync"

	"repolens/internal/domain"
	"repolens/internal/port"
)

// repoEntries is the map of one repository. order keeps first-insertion
// order so that equal search scores rank deterministically.
type repoEntries struct {
	mu      sync.RWMutex
	entries map[string]domain.IndexEntry
	order   []string
}

// Store is an in-process vector store. Each repository has its own lock,
// so writers on one repository never block readers of another.
type Store struct {
	mu    sync.Mutex
	repos map[string]*repoEntries
}

func NewStore() *Store {
	return &Store{
		repos: make(map[string]*repoEntries),
	}
}

// repo returns the repository map, creating it when create is set.
func (s *Store) repo(repoID string, create bool) *repoEntries {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.repos[repoID]
	if !ok && create {
		r = &repoEntries{entries: make(map[string]domain.IndexEntry)}
		s.repos[repoID] = r
	}
	return r
}

func (s *Store) Save(_ context.Context, repoID string, entry domain.IndexEntry) error {
	r := s.repo(repoID, true)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ChunkID]; !exists {
		r.order = append(r.order, entry.ChunkID)
	}
	r.entries[entry.ChunkID] = entry
	return nil
}

func (s *Store) Get(_ context.Context, repoID string) ([]domain.IndexEntry, error) {
	r := s.repo(repoID, false)
	if r == nil {
		return []domain.IndexEntry{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.IndexEntry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.entries[id])
	}
	return entries, nil
}

// Clear detaches the repository map under its own lock, so a concurrent
// Get sees either the old entries or none.
func (s *Store) Clear(_ context.Context, repoID string) error {
	s.mu.Lock()
	r, ok := s.repos[repoID]
	delete(s.repos, repoID)
	s.mu.Unlock()

	if !ok {
		return nil
	}

	r.mu.Lock()
	r.entries = make(map[string]domain.IndexEntry)
	r.order = nil
	r.mu.Unlock()
	return nil
}

func (s *Store) Count(_ context.Context, repoID string) (int, error) {
	r := s.repo(repoID, false)
	if r == nil {
		return 0, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

func (s *Store) Close() error {
	return nil
}

var _ port.VectorStore = (*Store)(nil)
