// Package query composes search requests and shields the request path
// from retrieval failures.
package query

import (
	"context"
	"sort"

	"github.com/healrag/healrag/internal/model"
	"github.com/healrag/healrag/internal/searchengine"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultTop = 5

// Request is the caller-facing search surface. PlanName, when set, is
// ANDed into Filter; it never replaces it.
type Request struct {
	Query          string
	Top            int
	Filter         *model.Filter
	Select         []string
	SearchType     model.SearchType
	ScoringProfile string
	SemanticConfig string
	PlanName       string
}

// Response carries ranked results. Degraded marks a retrieval failure
// that was swallowed: the result list is empty because search failed,
// not because nothing matched.
type Response struct {
	Results  []model.SearchResult
	Degraded bool
}

type Engine struct {
	backend        searchengine.Engine
	index          string
	top            int
	scoringProfile string
	semanticConfig string
}

type Option func(*Engine)

func WithDefaultTop(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.top = n
		}
	}
}

// WithProfiles sets the scoring profile and semantic configuration used
// when a request names neither.
func WithProfiles(scoring, semantic string) Option {
	return func(e *Engine) {
		e.scoringProfile = scoring
		e.semanticConfig = semantic
	}
}

func New(backend searchengine.Engine, index string, opts ...Option) *Engine {
	e := &Engine{backend: backend, index: index, top: defaultTop}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs the composed query. It never returns an error: retrieval
// failures are logged and reported as a degraded empty response so the
// generation pipeline keeps running.
func (e *Engine) Search(ctx context.Context, req *Request) *Response {
	composed := e.compose(req)
	results, err := e.backend.Query(ctx, e.index, composed)
	if err != nil {
		logutil.GetLogger(ctx).Error("search failed, returning empty result",
			zap.String("index", e.index), zap.String("query", req.Query), zap.Error(err))
		return &Response{Degraded: true}
	}
	if composed.SearchType.SemanticRanking() {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
	return &Response{Results: results}
}

func (e *Engine) compose(req *Request) *model.SearchRequest {
	out := &model.SearchRequest{
		Query:          req.Query,
		Top:            req.Top,
		SearchType:     req.SearchType,
		ScoringProfile: req.ScoringProfile,
		SemanticConfig: req.SemanticConfig,
	}
	if !out.SearchType.Valid() {
		out.SearchType = model.SearchTypeHybrid
	}
	if out.Top <= 0 {
		out.Top = e.top
	}
	if out.ScoringProfile == "" {
		out.ScoringProfile = e.scoringProfile
	}
	if out.SemanticConfig == "" {
		out.SemanticConfig = e.semanticConfig
	}
	out.Select = withContent(req.Select)
	out.Filter = req.Filter
	if req.PlanName != "" {
		out.Filter = out.Filter.And(model.Eq("plan_name", req.PlanName))
	}
	return out
}

// withContent guarantees content is selected; a nil select means all
// fields, which already covers it.
func withContent(sel []string) []string {
	if len(sel) == 0 {
		return nil
	}
	for _, name := range sel {
		if name == "content" {
			return sel
		}
	}
	out := make([]string, 0, len(sel)+1)
	out = append(out, sel...)
	return append(out, "content")
}
