package service

import (
	"context"
	"fmt"

	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
	"github.com/healrag/healrag/internal/query"
)

// SearchService validates raw request parameters and hands composed
// queries to the query engine.
type SearchService struct {
	engine *query.Engine
}

func NewSearchService(engine *query.Engine) *SearchService {
	return &SearchService{engine: engine}
}

type SearchParams struct {
	Query          string
	Top            int
	Filter         string
	Select         []string
	SearchType     string
	ScoringProfile string
	SemanticConfig string
	PlanName       string
}

func (s *SearchService) Search(ctx context.Context, params *SearchParams) (*query.Response, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrInvalid)
	}
	searchType := model.SearchType(params.SearchType)
	if params.SearchType != "" && !searchType.Valid() {
		return nil, fmt.Errorf("%w: search_type must be lexical, semantic or hybrid", apperr.ErrInvalid)
	}
	filter, err := model.ParseFilter(params.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return s.engine.Search(ctx, &query.Request{
		Query:          params.Query,
		Top:            params.Top,
		Filter:         filter,
		Select:         params.Select,
		SearchType:     searchType,
		ScoringProfile: params.ScoringProfile,
		SemanticConfig: params.SemanticConfig,
		PlanName:       params.PlanName,
	}), nil
}
