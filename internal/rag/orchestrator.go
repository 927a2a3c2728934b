package rag

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/healrag/healrag/internal/model"
	"github.com/healrag/healrag/internal/query"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultSystemPrompt = `You are a helpful assistant that answers questions about insurance plans using only the context provided.
If the answer cannot be found in the context, say "I don't know".
Do not make up information.
Cite the document numbers and plan names your answer is based on.`

const persistTimeout = 10 * time.Second

// Generator is the generation surface the orchestrator needs; the ai
// manager satisfies it.
type Generator interface {
	Chat(ctx context.Context, msgs []model.Message) (string, error)
	ChatStream(ctx context.Context, msgs []model.Message) iter.Seq2[string, error]
}

// Persister stores completed conversation turns. May be nil when
// persistence is disabled.
type Persister interface {
	Put(ctx context.Context, record *model.ConversationRecord) error
}

// ChatRequest is one conversation turn: a query plus its retrieval
// parameters, scoped to a session.
type ChatRequest struct {
	SessionID  string
	Query      string
	Top        int
	Filter     *model.Filter
	SearchType model.SearchType
	PlanName   string
}

// ChatResult is a completed turn: the generated answer plus the
// retrieval results it was grounded on.
type ChatResult struct {
	Answer   string
	Results  []model.SearchResult
	Degraded bool
}

type Orchestrator struct {
	search       *query.Engine
	gen          Generator
	history      *History
	store        Persister
	systemPrompt string
}

type OrcOption func(*Orchestrator)

func WithSystemPrompt(prompt string) OrcOption {
	return func(o *Orchestrator) {
		if strings.TrimSpace(prompt) != "" {
			o.systemPrompt = prompt
		}
	}
}

func WithPersister(store Persister) OrcOption {
	return func(o *Orchestrator) {
		o.store = store
	}
}

func NewOrchestrator(search *query.Engine, gen Generator, history *History, opts ...OrcOption) *Orchestrator {
	o := &Orchestrator{
		search:       search,
		gen:          gen,
		history:      history,
		systemPrompt: defaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// buildMessages assembles the turn's transcript: base instruction,
// formatted context, bounded session history, and the query last.
func (o *Orchestrator) buildMessages(req *ChatRequest, contextText string) []model.Message {
	msgs := []model.Message{
		{Role: model.RoleSystem, Content: o.systemPrompt},
		{Role: model.RoleSystem, Content: "Context:\n" + contextText},
	}
	msgs = append(msgs, o.history.Messages(req.SessionID)...)
	return append(msgs, model.Message{Role: model.RoleUser, Content: req.Query})
}

func (o *Orchestrator) retrieve(ctx context.Context, req *ChatRequest) (*query.Response, []model.Message) {
	resp := o.search.Search(ctx, &query.Request{
		Query:      req.Query,
		Top:        req.Top,
		Filter:     req.Filter,
		SearchType: req.SearchType,
		PlanName:   req.PlanName,
	})
	return resp, o.buildMessages(req, FormatContext(resp.Results))
}

// Chat runs one blocking turn. On generation failure the error is
// returned as-is, history keeps its pre-turn state, and nothing is
// persisted.
func (o *Orchestrator) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	resp, msgs := o.retrieve(ctx, req)
	answer, err := o.gen.Chat(ctx, msgs)
	if err != nil {
		return nil, err
	}
	answer = FormatCitations(answer, resp.Results)
	o.complete(ctx, req, answer, resp.Results)
	return &ChatResult{Answer: answer, Results: resp.Results, Degraded: resp.Degraded}, nil
}

// ChatStream runs one streaming turn. Retrieval results are returned
// immediately; fragments arrive through the sequence. History is
// updated and the record persisted only once the stream finishes
// without error.
func (o *Orchestrator) ChatStream(ctx context.Context, req *ChatRequest) (iter.Seq2[string, error], *query.Response) {
	resp, msgs := o.retrieve(ctx, req)
	seq := func(yield func(string, error) bool) {
		var full strings.Builder
		for fragment, err := range o.gen.ChatStream(ctx, msgs) {
			if err != nil {
				yield("", err)
				return
			}
			full.WriteString(fragment)
			if !yield(fragment, nil) {
				return
			}
		}
		o.complete(ctx, req, FormatCitations(full.String(), resp.Results), resp.Results)
	}
	return seq, resp
}

// complete records a finished turn: history first, then a best-effort
// persistence write that cannot fail the turn.
func (o *Orchestrator) complete(ctx context.Context, req *ChatRequest, answer string, results []model.SearchResult) {
	o.history.Append(req.SessionID, req.Query, answer)
	if o.store == nil {
		return
	}
	record := &model.ConversationRecord{
		ID:            uuid.NewString(),
		SessionID:     req.SessionID,
		Query:         req.Query,
		Response:      answer,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		SearchResults: results,
	}
	go func() {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := o.store.Put(pctx, record); err != nil {
			logutil.GetLogger(pctx).Warn("persist conversation failed",
				zap.String("session_id", req.SessionID), zap.String("id", record.ID), zap.Error(err))
		}
	}()
}

func (o *Orchestrator) ClearHistory(sessionID string) {
	o.history.Clear(sessionID)
}
