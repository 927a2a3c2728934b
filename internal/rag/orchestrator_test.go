package rag

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/healrag/healrag/internal/model"
	"github.com/healrag/healrag/internal/query"
	"github.com/healrag/healrag/internal/searchengine"
)

type stubBackend struct {
	results []model.SearchResult
}

func (b *stubBackend) EnsureIndex(_ context.Context, _ *model.IndexSchema) error { return nil }

func (b *stubBackend) UploadBatch(_ context.Context, _ string, _ []model.IndexDocument) ([]searchengine.DocumentResult, error) {
	return nil, nil
}

func (b *stubBackend) Query(_ context.Context, _ string, _ *model.SearchRequest) ([]model.SearchResult, error) {
	return b.results, nil
}

func (b *stubBackend) Close() error { return nil }

type stubGen struct {
	msgs      []model.Message
	answer    string
	fragments []string
	err       error
}

func (g *stubGen) Chat(_ context.Context, msgs []model.Message) (string, error) {
	g.msgs = msgs
	return g.answer, g.err
}

func (g *stubGen) ChatStream(_ context.Context, msgs []model.Message) iter.Seq2[string, error] {
	g.msgs = msgs
	return func(yield func(string, error) bool) {
		for _, f := range g.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if g.err != nil {
			yield("", g.err)
		}
	}
}

type chanPersister struct {
	records chan *model.ConversationRecord
}

func newChanPersister() *chanPersister {
	return &chanPersister{records: make(chan *model.ConversationRecord, 1)}
}

func (p *chanPersister) Put(_ context.Context, record *model.ConversationRecord) error {
	p.records <- record
	return nil
}

func newTestOrchestrator(gen Generator, opts ...OrcOption) *Orchestrator {
	engine := query.New(&stubBackend{results: []model.SearchResult{
		{Fields: map[string]interface{}{"chunk_id": "doc--0", "plan_name": "Gold 1500", "state": "ME", "content": "deductible is $1,500"}},
	}}, "plans")
	return NewOrchestrator(engine, gen, NewHistory(3), opts...)
}

func TestChatBuildsMessageSequence(t *testing.T) {
	gen := &stubGen{answer: "The deductible is $1,500."}
	o := newTestOrchestrator(gen)
	o.history.Append("s1", "old question", "old answer")

	result, err := o.Chat(context.Background(), &ChatRequest{SessionID: "s1", Query: "what is the deductible?"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer != "The deductible is $1,500 [Source: Gold 1500 (ME)]." {
		t.Errorf("answer = %q", result.Answer)
	}
	msgs := gen.msgs
	// system prompt, context, one history exchange, current query
	if len(msgs) != 5 {
		t.Fatalf("messages = %d, want 5", len(msgs))
	}
	if msgs[0].Role != model.RoleSystem || msgs[1].Role != model.RoleSystem {
		t.Error("first two messages must be system")
	}
	if !strings.Contains(msgs[1].Content, "--- Document 1 (doc--0) ---") {
		t.Errorf("context message missing formatted block: %q", msgs[1].Content)
	}
	if msgs[2].Content != "old question" || msgs[3].Content != "old answer" {
		t.Error("history exchange not placed before the query")
	}
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleUser || last.Content != "what is the deductible?" {
		t.Errorf("last message = %+v, want the current user query", last)
	}
}

func TestChatAppendsHistoryOnSuccess(t *testing.T) {
	gen := &stubGen{answer: "answer"}
	o := newTestOrchestrator(gen)
	if _, err := o.Chat(context.Background(), &ChatRequest{SessionID: "s1", Query: "q"}); err != nil {
		t.Fatal(err)
	}
	if o.history.Len("s1") != 1 {
		t.Errorf("history len = %d, want 1", o.history.Len("s1"))
	}
}

func TestChatFailureLeavesHistoryUntouched(t *testing.T) {
	gen := &stubGen{err: fmt.Errorf("model overloaded")}
	persister := newChanPersister()
	o := newTestOrchestrator(gen, WithPersister(persister))
	o.history.Append("s1", "q0", "a0")

	_, err := o.Chat(context.Background(), &ChatRequest{SessionID: "s1", Query: "q1"})
	if err == nil {
		t.Fatal("want generation error surfaced")
	}
	if o.history.Len("s1") != 1 {
		t.Errorf("history len = %d, failed turn must not be recorded", o.history.Len("s1"))
	}
	select {
	case <-persister.records:
		t.Error("failed turn must not be persisted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChatStreamConcatenatesFragments(t *testing.T) {
	gen := &stubGen{fragments: []string{"The ", "deductible ", "is $1,500."}}
	persister := newChanPersister()
	o := newTestOrchestrator(gen, WithPersister(persister))

	seq, resp := o.ChatStream(context.Background(), &ChatRequest{SessionID: "s1", Query: "q"})
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	var full strings.Builder
	for fragment, err := range seq {
		if err != nil {
			t.Fatal(err)
		}
		full.WriteString(fragment)
	}
	if full.String() != "The deductible is $1,500." {
		t.Errorf("concatenated = %q", full.String())
	}
	if o.history.Len("s1") != 1 {
		t.Errorf("history len = %d, want 1 after stream completes", o.history.Len("s1"))
	}
	select {
	case record := <-persister.records:
		// quoted passages get their source marker before persistence
		if record.Response != "The deductible is $1,500 [Source: Gold 1500 (ME)]." || record.SessionID != "s1" {
			t.Errorf("persisted record = %+v", record)
		}
		if record.ID == "" || record.Timestamp == "" {
			t.Error("record missing id or timestamp")
		}
	case <-time.After(time.Second):
		t.Error("completed turn was not persisted")
	}
}

func TestChatStreamFailureSkipsHistory(t *testing.T) {
	gen := &stubGen{fragments: []string{"partial "}, err: fmt.Errorf("stream cut")}
	o := newTestOrchestrator(gen)

	seq, _ := o.ChatStream(context.Background(), &ChatRequest{SessionID: "s1", Query: "q"})
	var sawErr bool
	for _, err := range seq {
		if err != nil {
			sawErr = true
		}
	}
	if !sawErr {
		t.Fatal("stream error not surfaced")
	}
	if o.history.Len("s1") != 0 {
		t.Error("failed stream must not be recorded in history")
	}
}
