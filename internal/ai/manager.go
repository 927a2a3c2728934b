package ai

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
)

type ManagerConfig struct {
	Timeout int // seconds, applies to non-streaming calls only
}

// Manager fronts the configured chatter and embedder with timeouts and
// response hygiene.
type Manager struct {
	chatter  IChatter
	embedder IEmbedder
	cfg      ManagerConfig
}

func NewManager(chatter IChatter, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{chatter: chatter, embedder: embedder, cfg: cfg}
}

func (m *Manager) Chat(ctx context.Context, msgs []model.Message) (string, error) {
	if m.chatter == nil {
		return "", fmt.Errorf("chatter not configured")
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := m.chatter.Chat(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrGeneration, err)
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty ai response", apperr.ErrGeneration)
	}
	return text, nil
}

// ChatStream does not apply the manager timeout: the caller controls
// stream lifetime through ctx.
func (m *Manager) ChatStream(ctx context.Context, msgs []model.Message) iter.Seq2[string, error] {
	if m.chatter == nil {
		return func(yield func(string, error) bool) {
			yield("", fmt.Errorf("chatter not configured"))
		}
	}
	return func(yield func(string, error) bool) {
		for fragment, err := range m.chatter.ChatStream(ctx, msgs) {
			if err != nil {
				yield("", fmt.Errorf("%w: %v", apperr.ErrGeneration, err))
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return m.embedder.Embed(ctx, text, taskType)
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}
