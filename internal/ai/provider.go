package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/healrag/healrag/internal/model"
)

// GenOptions carries per-call sampling knobs. Nil fields keep the
// provider default.
type GenOptions struct {
	Temperature *float32
	TopP        *float32
}

type IProvider interface {
	Name() string
	Chat(ctx context.Context, model string, msgs []model.Message, opts *GenOptions) (string, error)
	// ChatStream yields response fragments in arrival order. The
	// sequence ends on the first error.
	ChatStream(ctx context.Context, model string, msgs []model.Message, opts *GenOptions) iter.Seq2[string, error]
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
}

type IChatter interface {
	Chat(ctx context.Context, msgs []model.Message) (string, error)
	ChatStream(ctx context.Context, msgs []model.Message) iter.Seq2[string, error]
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type chatter struct {
	provider IProvider
	model    string
	opts     *GenOptions
}

func NewChatter(p IProvider, model string, opts *GenOptions) IChatter {
	return &chatter{provider: p, model: model, opts: opts}
}

func (c *chatter) Chat(ctx context.Context, msgs []model.Message) (string, error) {
	return c.provider.Chat(ctx, c.model, msgs, c.opts)
}

func (c *chatter) ChatStream(ctx context.Context, msgs []model.Message) iter.Seq2[string, error] {
	return c.provider.ChatStream(ctx, c.model, msgs, c.opts)
}

type embedder struct {
	provider IEmbedProvider
	model    string
}

func NewEmbedder(p IEmbedProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ProviderFactory func(args interface{}) (IProvider, error)

type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	registry      = map[string]ProviderFactory{}
	embedRegistry = map[string]EmbedFactory{}
)

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai embed provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
