// Package convstore persists completed conversation turns. Records are
// write-once: stores only insert, fetch by id, and list by recency.
package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/healrag/healrag/internal/model"
)

type Store interface {
	Put(ctx context.Context, record *model.ConversationRecord) error
	// Get returns ErrNotFound when no record has the id.
	Get(ctx context.Context, id string) (*model.ConversationRecord, error)
	// List returns the most recent records first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*model.ConversationRecord, error)
	Close() error
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("conversation_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported conversation store type: %s", typ)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("conversation store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode conversation store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode conversation store config: %w", err)
	}
	return nil
}
