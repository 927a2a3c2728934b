// Package searchengine defines the search engine contract the indexing
// and query layers depend on, with pluggable backends.
package searchengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/healrag/healrag/internal/model"
)

// Embedder produces dense vectors for semantic ranking. Backends that
// get none degrade to lexical retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

// DocumentResult is the per-document outcome of one batch upload.
type DocumentResult struct {
	Key       string `json:"key"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// Engine is the backing search engine surface: idempotent index
// creation, batched uploads keyed on chunk_id, and ranked queries.
type Engine interface {
	// EnsureIndex creates the index if missing; an existing index of the
	// same name is left unchanged.
	EnsureIndex(ctx context.Context, schema *model.IndexSchema) error
	// UploadBatch writes one batch; chunk_id conflicts overwrite.
	UploadBatch(ctx context.Context, index string, docs []model.IndexDocument) ([]DocumentResult, error)
	// Query returns ranked results for the composed request.
	Query(ctx context.Context, index string, req *model.SearchRequest) ([]model.SearchResult, error)
	Close() error
}

type Deps struct {
	Embedder Embedder
}

type Factory func(args interface{}, deps Deps) (Engine, error)

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

func New(typ string, args interface{}, deps Deps) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("search.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported search engine type: %s", typ)
	}
	return factory(args, deps)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("search engine config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode search engine config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode search engine config: %w", err)
	}
	return nil
}
