package ai

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) client(ctx context.Context) (*genai.Client, error) {
	if p.apiKey == "" {
		return nil, apperr.ErrUnavailable
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// toContents maps chat messages onto the gemini wire shape: system
// messages become the system instruction, assistant turns become the
// "model" role.
func toContents(msgs []model.Message) ([]*genai.Content, *genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == model.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := genai.RoleUser
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	var instruction *genai.Content
	if len(system) > 0 {
		instruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	return contents, instruction
}

func toGenConfig(instruction *genai.Content, opts *GenOptions) *genai.GenerateContentConfig {
	if instruction == nil && opts == nil {
		return nil
	}
	cfg := &genai.GenerateContentConfig{SystemInstruction: instruction}
	if opts != nil {
		cfg.Temperature = opts.Temperature
		cfg.TopP = opts.TopP
	}
	return cfg
}

func (p *geminiProvider) Chat(ctx context.Context, modelName string, msgs []model.Message, opts *GenOptions) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	contents, instruction := toContents(msgs)
	resp, err := client.Models.GenerateContent(ctx, modelName, contents, toGenConfig(instruction, opts))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiProvider) ChatStream(ctx context.Context, modelName string, msgs []model.Message, opts *GenOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		client, err := p.client(ctx)
		if err != nil {
			yield("", err)
			return
		}
		contents, instruction := toContents(msgs)
		for resp, err := range client.Models.GenerateContentStream(ctx, modelName, contents, toGenConfig(instruction, opts)) {
			if err != nil {
				yield("", err)
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

type geminiEmbedProvider struct {
	apiKey string
}

func (p *geminiEmbedProvider) Name() string {
	return "gemini"
}

func (p *geminiEmbedProvider) Embed(ctx context.Context, modelName string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, apperr.ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: taskType}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		modelName,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiEmbedProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
