package workspace

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxEntries = 256

// Store keeps workspaces in memory, evicting the least recently used one
// once the store is full. Nothing is persisted.
type Store struct {
	cache *lru.Cache[string, *Workspace]
}

func NewStore(maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	c, err := lru.New[string, *Workspace](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("workspace store: %w", err)
	}
	return &Store{cache: c}, nil
}

func (s *Store) Get(id string) (*Workspace, bool) {
	return s.cache.Get(id)
}

func (s *Store) Put(w *Workspace) {
	s.cache.Add(w.ID, w)
}

func (s *Store) Len() int {
	return s.cache.Len()
}
