package ai

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/healrag/healrag/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type ChatterEntry struct {
	Name    string
	Chatter IChatter
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type groupChatter struct {
	items []ChatterEntry
}

// NewGroupChatter chains chatters as fallbacks, tried in order until one
// succeeds.
func NewGroupChatter(items []ChatterEntry) IChatter {
	if len(items) == 0 {
		return nil
	}
	return &groupChatter{items: items}
}

func (g *groupChatter) Chat(ctx context.Context, msgs []model.Message) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Chatter == nil {
			continue
		}
		res, err := item.Chatter.Chat(ctx, msgs)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("chatter failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("chatter not configured")
	}
	return "", lastErr
}

// ChatStream falls through to the next provider only while nothing has
// been emitted yet. Once fragments are flowing a failure ends the
// stream: mixing half-answers from two models is worse than failing.
func (g *groupChatter) ChatStream(ctx context.Context, msgs []model.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var lastErr error
		for i, item := range g.items {
			if item.Chatter == nil {
				continue
			}
			emitted := false
			for fragment, err := range item.Chatter.ChatStream(ctx, msgs) {
				if err != nil {
					if emitted {
						yield("", err)
						return
					}
					lastErr = err
					logutil.GetLogger(ctx).Warn("stream chatter failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
					break
				}
				emitted = true
				if !yield(fragment, nil) {
					return
				}
			}
			if emitted {
				return
			}
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("chatter not configured")
		}
		yield("", lastErr)
	}
}

type groupEmbedder struct {
	items []EmbedderEntry
}

func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Name == "" {
			continue
		}
		names = append(names, item.Name)
	}
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, "|")
}
