package service

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
	"github.com/healrag/healrag/internal/query"
	"github.com/healrag/healrag/internal/rag"
)

// RAGService fronts the conversation orchestrator for the request path.
type RAGService struct {
	orc *rag.Orchestrator
}

func NewRAGService(orc *rag.Orchestrator) *RAGService {
	return &RAGService{orc: orc}
}

type ChatParams struct {
	SessionID  string
	Query      string
	Top        int
	Filter     string
	SearchType string
	PlanName   string
}

func (s *RAGService) buildRequest(params *ChatParams) (*rag.ChatRequest, error) {
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
	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &rag.ChatRequest{
		SessionID:  sessionID,
		Query:      params.Query,
		Top:        params.Top,
		Filter:     filter,
		SearchType: searchType,
		PlanName:   params.PlanName,
	}, nil
}

// Chat runs one blocking conversation turn and returns the session id
// alongside the result so new sessions can be continued by the caller.
func (s *RAGService) Chat(ctx context.Context, params *ChatParams) (string, *rag.ChatResult, error) {
	req, err := s.buildRequest(params)
	if err != nil {
		return "", nil, err
	}
	result, err := s.orc.Chat(ctx, req)
	if err != nil {
		return "", nil, err
	}
	return req.SessionID, result, nil
}

// ChatStream runs one streaming turn.
func (s *RAGService) ChatStream(ctx context.Context, params *ChatParams) (string, iter.Seq2[string, error], *query.Response, error) {
	req, err := s.buildRequest(params)
	if err != nil {
		return "", nil, nil, err
	}
	seq, resp := s.orc.ChatStream(ctx, req)
	return req.SessionID, seq, resp, nil
}

func (s *RAGService) ClearSession(sessionID string) {
	s.orc.ClearHistory(sessionID)
}
