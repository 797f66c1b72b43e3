package visibility

import (
	"context"
	"route-scheduling-service/internal/domain"
	"sync"
)

// MemoryStore is the in-process VisibilityStore used when Redis is not configured.
// Maps are copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.Mutex
	hidden    map[string]map[string]domain.HideRecord
	templates map[string]domain.HideTemplate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hidden:    map[string]map[string]domain.HideRecord{},
		templates: map[string]domain.HideTemplate{},
	}
}

func (s *MemoryStore) LoadHidden(_ context.Context, date string) (map[string]domain.HideRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.hidden[date]), nil
}

func (s *MemoryStore) SaveHidden(_ context.Context, date string, records map[string]domain.HideRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(records) == 0 {
		delete(s.hidden, date)
		return nil
	}
	s.hidden[date] = copyMap(records)
	return nil
}

func (s *MemoryStore) LoadTemplates(_ context.Context) (map[string]domain.HideTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.templates), nil
}

func (s *MemoryStore) SaveTemplates(_ context.Context, templates map[string]domain.HideTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = copyMap(templates)
	return nil
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
