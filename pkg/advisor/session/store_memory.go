package session

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps session state in-process. Expiry is left to the
// Memory sweeper so eviction always happens under the per-session lock.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

var _ Store = &MemoryStore{}

func (s *MemoryStore) Get(ctx context.Context, id string) (*State, error) {
	value, found := s.cache.Get(id)
	if !found {
		return nil, nil
	}
	state, ok := value.(*State)
	if !ok {
		return nil, ErrCorrupted
	}
	return state, nil
}

func (s *MemoryStore) Put(ctx context.Context, state *State) error {
	s.cache.Set(state.ID, state, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

func (s *MemoryStore) IDs(ctx context.Context) ([]string, error) {
	items := s.cache.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	return ids, nil
}
