package searchengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
)

type bleveConfig struct {
	Dir string `json:"dir"`
}

// bleveEngine keeps one local bleve index per index name. It serves
// lexical retrieval with scoring-profile field boosts; semantic
// re-ranking requests degrade to lexical with a logged warning.
type bleveEngine struct {
	dir string

	mu      sync.Mutex
	indexes map[string]bleve.Index
	schemas map[string]*model.IndexSchema
}

func init() {
	Register("bleve", createBleveEngine)
}

func createBleveEngine(args interface{}, _ Deps) (Engine, error) {
	cfg := &bleveConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("bleve dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bleve dir: %w", err)
	}
	return &bleveEngine{
		dir:     cfg.Dir,
		indexes: make(map[string]bleve.Index),
		schemas: make(map[string]*model.IndexSchema),
	}, nil
}

func (e *bleveEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for name, idx := range e.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.indexes, name)
	}
	return firstErr
}

func (e *bleveEngine) EnsureIndex(ctx context.Context, s *model.IndexSchema) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.indexes[s.Name]; ok {
		e.schemas[s.Name] = s
		return nil
	}
	path := filepath.Join(e.dir, s.Name+".bleve")
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildMapping(s))
	}
	if err != nil {
		return fmt.Errorf("%w: open bleve index %s: %v", apperr.ErrTransient, s.Name, err)
	}
	e.indexes[s.Name] = idx
	e.schemas[s.Name] = s
	logutil.GetLogger(ctx).Info("index ensured", zap.String("index", s.Name), zap.String("path", path))
	return nil
}

func buildMapping(s *model.IndexSchema) mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	for _, f := range s.Fields {
		switch {
		case f.Searchable:
			fm := bleve.NewTextFieldMapping()
			fm.Store = true
			doc.AddFieldMappingsAt(f.Name, fm)
		case f.Type == model.FieldTypeDouble:
			fm := bleve.NewNumericFieldMapping()
			fm.Store = true
			doc.AddFieldMappingsAt(f.Name, fm)
		default:
			fm := bleve.NewKeywordFieldMapping()
			fm.Store = true
			doc.AddFieldMappingsAt(f.Name, fm)
		}
	}
	im.DefaultMapping = doc
	return im
}

func (e *bleveEngine) index(name string) (bleve.Index, *model.IndexSchema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.indexes[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: index %s", apperr.ErrNotFound, name)
	}
	return idx, e.schemas[name], nil
}

func (e *bleveEngine) UploadBatch(ctx context.Context, index string, docs []model.IndexDocument) ([]DocumentResult, error) {
	idx, _, err := e.index(index)
	if err != nil {
		return nil, err
	}
	batch := idx.NewBatch()
	results := make([]DocumentResult, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		if err := batch.Index(doc.ChunkID, doc.Fields()); err != nil {
			results = append(results, DocumentResult{Key: doc.ChunkID, Error: err.Error()})
			continue
		}
		results = append(results, DocumentResult{Key: doc.ChunkID, Succeeded: true})
	}
	if err := idx.Batch(batch); err != nil {
		for i := range results {
			results[i].Succeeded = false
			results[i].Error = err.Error()
		}
		return results, fmt.Errorf("%w: bleve batch: %v", apperr.ErrTransient, err)
	}
	logutil.GetLogger(ctx).Debug("batch indexed", zap.String("index", index), zap.Int("docs", len(docs)))
	return results, nil
}

func (e *bleveEngine) Query(ctx context.Context, index string, req *model.SearchRequest) ([]model.SearchResult, error) {
	idx, schema, err := e.index(index)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("index", index), zap.String("query", req.Query))
	if req.SearchType.SemanticRanking() {
		logger.Warn("bleve backend has no semantic ranking, serving lexical results")
	}

	weights := map[string]float64{}
	if schema != nil && schema.ScoringProfile != nil && schema.ScoringProfile.Name == req.ScoringProfile {
		weights = schema.ScoringProfile.Weights
	}
	var fieldQueries []query.Query
	if schema != nil {
		for _, f := range schema.Fields {
			if !f.Searchable {
				continue
			}
			mq := bleve.NewMatchQuery(req.Query)
			mq.SetField(f.Name)
			if w, ok := weights[f.Name]; ok && w > 0 {
				mq.SetBoost(w)
			}
			fieldQueries = append(fieldQueries, mq)
		}
	}
	var q query.Query
	if len(fieldQueries) > 0 {
		q = bleve.NewDisjunctionQuery(fieldQueries...)
	} else {
		q = bleve.NewMatchQuery(req.Query)
	}
	if req.Filter != nil && len(req.Filter.Clauses) > 0 {
		conj := []query.Query{q}
		for _, clause := range req.Filter.Clauses {
			tq := bleve.NewMatchPhraseQuery(clause.Value)
			tq.SetField(clause.Field)
			conj = append(conj, tq)
		}
		q = bleve.NewConjunctionQuery(conj...)
	}

	searchReq := bleve.NewSearchRequestOptions(q, req.Top, 0, false)
	searchReq.Fields = []string{"*"}
	res, err := idx.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("%w: bleve search: %v", apperr.ErrTransient, err)
	}
	results := make([]model.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		fields := make(map[string]interface{}, len(hit.Fields)+1)
		for k, v := range hit.Fields {
			fields[k] = v
		}
		if _, ok := fields["chunk_id"]; !ok {
			fields["chunk_id"] = hit.ID
		}
		results = append(results, model.SearchResult{
			Fields: selectFields(fields, req.Select),
			Score:  hit.Score,
		})
	}
	return results, nil
}
