package searchengine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
)

type postgresConfig struct {
	DSN string `json:"dsn"`
}

// postgresEngine keeps one table per index: documents as jsonb plus a
// weighted tsvector for lexical ranking and a pgvector column for
// semantic ranking.
type postgresEngine struct {
	db       *sqlx.DB
	embedder Embedder

	mu      sync.RWMutex
	schemas map[string]*model.IndexSchema
}

func init() {
	Register("postgres", createPostgresEngine)
}

func createPostgresEngine(args interface{}, deps Deps) (Engine, error) {
	cfg := &postgresConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &postgresEngine{
		db:       db,
		embedder: deps.Embedder,
		schemas:  make(map[string]*model.IndexSchema),
	}, nil
}

func (e *postgresEngine) Close() error {
	return e.db.Close()
}

func tableName(index string) string {
	var sb strings.Builder
	sb.WriteString("rag_")
	for _, r := range strings.ToLower(index) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func (e *postgresEngine) EnsureIndex(ctx context.Context, s *model.IndexSchema) error {
	table := tableName(s.Name)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rag_indexes (name text PRIMARY KEY, schema jsonb NOT NULL)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id text PRIMARY KEY,
			fields jsonb NOT NULL,
			content text NOT NULL DEFAULT '',
			tsv tsvector,
			embedding vector
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_tsv_idx ON %s USING gin(tsv)`, table, table),
	}
	for _, stmt := range stmts {
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create index %s: %v", apperr.ErrTransient, s.Name, err)
		}
	}
	blob, err := json.Marshal(s)
	if err != nil {
		return err
	}
	// An existing index definition is never overwritten.
	if _, err := e.db.ExecContext(ctx,
		`INSERT INTO rag_indexes (name, schema) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		s.Name, blob,
	); err != nil {
		return fmt.Errorf("%w: register index %s: %v", apperr.ErrTransient, s.Name, err)
	}
	e.mu.Lock()
	e.schemas[s.Name] = s
	e.mu.Unlock()
	logutil.GetLogger(ctx).Info("index ensured", zap.String("index", s.Name), zap.String("table", table))
	return nil
}

func (e *postgresEngine) loadSchema(ctx context.Context, index string) (*model.IndexSchema, error) {
	e.mu.RLock()
	cached := e.schemas[index]
	e.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	var blob []byte
	err := e.db.QueryRowContext(ctx, `SELECT schema FROM rag_indexes WHERE name = $1`, index).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: index %s", apperr.ErrNotFound, index)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load index %s: %v", apperr.ErrTransient, index, err)
	}
	s := &model.IndexSchema{}
	if err := json.Unmarshal(blob, s); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.schemas[index] = s
	e.mu.Unlock()
	return s, nil
}

// weightClass maps a scoring profile weight onto the four tsvector
// weight classes.
func weightClass(w float64) string {
	switch {
	case w >= 3:
		return "A"
	case w >= 2:
		return "B"
	case w >= 1.5:
		return "C"
	default:
		return "D"
	}
}

// weightedTexts groups a document's searchable text by tsvector weight
// class according to the index scoring profile.
func weightedTexts(s *model.IndexSchema, fields map[string]interface{}) map[string]string {
	weights := map[string]float64{}
	if s.ScoringProfile != nil {
		weights = s.ScoringProfile.Weights
	}
	grouped := map[string][]string{}
	for _, f := range s.Fields {
		if !f.Searchable {
			continue
		}
		text := fieldText(fields[f.Name])
		if text == "" {
			continue
		}
		class := weightClass(weights[f.Name])
		grouped[class] = append(grouped[class], text)
	}
	out := map[string]string{}
	for class, parts := range grouped {
		sort.Strings(parts)
		out[class] = strings.Join(parts, " ")
	}
	return out
}

func fieldText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, " ")
	case []interface{}:
		var parts []string
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func (e *postgresEngine) UploadBatch(ctx context.Context, index string, docs []model.IndexDocument) ([]DocumentResult, error) {
	s, err := e.loadSchema(ctx, index)
	if err != nil {
		return nil, err
	}
	table := tableName(index)
	stmt := fmt.Sprintf(`INSERT INTO %s (chunk_id, fields, content, tsv, embedding)
		VALUES ($1, $2, $3,
			setweight(to_tsvector('english', $4), 'A') ||
			setweight(to_tsvector('english', $5), 'B') ||
			setweight(to_tsvector('english', $6), 'C') ||
			setweight(to_tsvector('english', $7), 'D'),
			$8)
		ON CONFLICT (chunk_id) DO UPDATE SET
			fields = EXCLUDED.fields,
			content = EXCLUDED.content,
			tsv = EXCLUDED.tsv,
			embedding = EXCLUDED.embedding`, table)

	logger := logutil.GetLogger(ctx).With(zap.String("index", index))
	results := make([]DocumentResult, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		fields := doc.Fields()
		blob, err := json.Marshal(fields)
		if err != nil {
			results = append(results, DocumentResult{Key: doc.ChunkID, Error: err.Error()})
			continue
		}
		var embedding interface{}
		if e.embedder != nil {
			vec, err := e.embedder.Embed(ctx, doc.Content, "RETRIEVAL_DOCUMENT")
			if err != nil {
				logger.Warn("embed document failed, storing without vector",
					zap.String("chunk_id", doc.ChunkID), zap.Error(err))
			} else {
				embedding = pgvector.NewVector(vec)
			}
		}
		grouped := weightedTexts(s, fields)
		if _, err := e.db.ExecContext(ctx, stmt,
			doc.ChunkID, blob, doc.Content,
			grouped["A"], grouped["B"], grouped["C"], grouped["D"],
			embedding,
		); err != nil {
			return results, fmt.Errorf("%w: upload %s: %v", apperr.ErrTransient, doc.ChunkID, err)
		}
		results = append(results, DocumentResult{Key: doc.ChunkID, Succeeded: true})
	}
	return results, nil
}

func (e *postgresEngine) Query(ctx context.Context, index string, req *model.SearchRequest) ([]model.SearchResult, error) {
	if _, err := e.loadSchema(ctx, index); err != nil {
		return nil, err
	}
	table := tableName(index)
	logger := logutil.GetLogger(ctx).With(zap.String("index", index), zap.String("query", req.Query))

	var queryVec interface{}
	semantic := req.SearchType.SemanticRanking()
	if semantic && e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, req.Query, "RETRIEVAL_QUERY")
		if err != nil {
			logger.Warn("embed query failed, falling back to lexical ranking", zap.Error(err))
		} else {
			queryVec = pgvector.NewVector(vec)
		}
	}
	if queryVec == nil {
		semantic = false
	}

	args := []interface{}{req.Query}
	var scoreExpr, matchExpr string
	switch {
	case semantic && req.SearchType == model.SearchTypeSemantic:
		args = append(args, queryVec)
		scoreExpr = `(1 - (embedding <=> $2))`
		matchExpr = `embedding IS NOT NULL`
	case semantic:
		// Hybrid keeps lexical matching active and blends both scores.
		args = append(args, queryVec)
		scoreExpr = `(ts_rank(tsv, plainto_tsquery('english', $1)) + CASE WHEN embedding IS NULL THEN 0 ELSE (1 - (embedding <=> $2)) END) / 2`
		matchExpr = `tsv @@ plainto_tsquery('english', $1)`
	default:
		scoreExpr = `ts_rank(tsv, plainto_tsquery('english', $1))`
		matchExpr = `tsv @@ plainto_tsquery('english', $1)`
	}

	where := []string{matchExpr}
	if req.Filter != nil {
		for _, clause := range req.Filter.Clauses {
			args = append(args, clause.Value)
			where = append(where, fmt.Sprintf("fields->>'%s' = $%d", sanitizeFieldName(clause.Field), len(args)))
		}
	}
	args = append(args, req.Top)
	stmt := fmt.Sprintf(`SELECT fields, %s AS score FROM %s WHERE %s ORDER BY score DESC LIMIT $%d`,
		scoreExpr, table, strings.Join(where, " AND "), len(args))

	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", apperr.ErrTransient, index, err)
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var blob []byte
		var score float64
		if err := rows.Scan(&blob, &score); err != nil {
			return nil, err
		}
		fields := map[string]interface{}{}
		if err := json.Unmarshal(blob, &fields); err != nil {
			return nil, err
		}
		results = append(results, model.SearchResult{
			Fields: selectFields(fields, req.Select),
			Score:  score,
		})
	}
	return results, rows.Err()
}

func sanitizeFieldName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// selectFields keeps only the requested fields. An empty selection keeps
// everything; content is always retained.
func selectFields(fields map[string]interface{}, selected []string) map[string]interface{} {
	if len(selected) == 0 {
		return fields
	}
	out := make(map[string]interface{}, len(selected)+1)
	for _, name := range selected {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}
	if v, ok := fields["content"]; ok {
		out["content"] = v
	}
	return out
}
