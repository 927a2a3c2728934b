package convstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/healrag/healrag/internal/model"
	appErr "github.com/healrag/healrag/internal/pkg/errors"
)

type memoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*model.ConversationRecord
	ordered []*model.ConversationRecord
}

func init() {
	Register("memory", createMemoryStore)
}

func createMemoryStore(_ interface{}) (Store, error) {
	return NewMemory(), nil
}

// NewMemory is the store used by tests and single-process deployments
// that do not need durable conversations.
func NewMemory() Store {
	return &memoryStore{byID: map[string]*model.ConversationRecord{}}
}

func (s *memoryStore) Put(_ context.Context, record *model.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[record.ID]; ok {
		return fmt.Errorf("%w: conversation %s", appErr.ErrConflict, record.ID)
	}
	clone := *record
	s.byID[record.ID] = &clone
	s.ordered = append(s.ordered, &clone)
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*model.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byID[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *memoryStore) List(_ context.Context, limit int) ([]*model.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.ConversationRecord, 0, len(s.ordered))
	// insertion order approximates recency; newest first
	for i := len(s.ordered) - 1; i >= 0; i-- {
		clone := *s.ordered[i]
		out = append(out, &clone)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memoryStore) Close() error {
	return nil
}
