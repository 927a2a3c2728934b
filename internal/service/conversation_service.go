package service

import (
	"context"
	"fmt"

	"github.com/healrag/healrag/internal/convstore"
	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
)

const maxConversationPage = 100

type ConversationService struct {
	store convstore.Store
}

func NewConversationService(store convstore.Store) *ConversationService {
	return &ConversationService{store: store}
}

func (s *ConversationService) Get(ctx context.Context, id string) (*model.ConversationRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: conversation id is required", apperr.ErrInvalid)
	}
	return s.store.Get(ctx, id)
}

func (s *ConversationService) List(ctx context.Context, limit int) ([]*model.ConversationRecord, error) {
	if limit <= 0 || limit > maxConversationPage {
		limit = maxConversationPage
	}
	return s.store.List(ctx, limit)
}
