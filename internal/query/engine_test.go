package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/healrag/healrag/internal/model"
	"github.com/healrag/healrag/internal/searchengine"
)

type captureBackend struct {
	req     *model.SearchRequest
	results []model.SearchResult
	err     error
}

func (b *captureBackend) EnsureIndex(_ context.Context, _ *model.IndexSchema) error {
	return nil
}

func (b *captureBackend) UploadBatch(_ context.Context, _ string, _ []model.IndexDocument) ([]searchengine.DocumentResult, error) {
	return nil, nil
}

func (b *captureBackend) Query(_ context.Context, _ string, req *model.SearchRequest) ([]model.SearchResult, error) {
	b.req = req
	return b.results, b.err
}

func (b *captureBackend) Close() error { return nil }

func TestFilterComposition(t *testing.T) {
	caller := model.Eq("state", "ME")
	tests := []struct {
		name   string
		filter *model.Filter
		plan   string
		want   string
	}{
		{"both", caller, "Gold 1500", "(state eq 'ME') and (plan_name eq 'Gold 1500')"},
		{"plan only", nil, "Gold 1500", "(plan_name eq 'Gold 1500')"},
		{"filter only", caller, "", "(state eq 'ME')"},
		{"neither", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &captureBackend{}
			e := New(backend, "plans")
			e.Search(context.Background(), &Request{Query: "deductible", Filter: tt.filter, PlanName: tt.plan})
			if got := backend.req.Filter.String(); got != tt.want {
				t.Errorf("composed filter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComposeDefaults(t *testing.T) {
	backend := &captureBackend{}
	e := New(backend, "plans", WithDefaultTop(8), WithProfiles("insurancePlansScoring", "insurancePlansSemantic"))
	e.Search(context.Background(), &Request{Query: "copay"})
	req := backend.req
	if req.SearchType != model.SearchTypeHybrid {
		t.Errorf("search type = %q, want hybrid default", req.SearchType)
	}
	if req.Top != 8 {
		t.Errorf("top = %d, want default 8", req.Top)
	}
	if req.ScoringProfile != "insurancePlansScoring" || req.SemanticConfig != "insurancePlansSemantic" {
		t.Errorf("profiles = %q/%q", req.ScoringProfile, req.SemanticConfig)
	}
}

func TestSelectAlwaysIncludesContent(t *testing.T) {
	backend := &captureBackend{}
	e := New(backend, "plans")
	e.Search(context.Background(), &Request{Query: "q", Select: []string{"plan_name", "state"}})
	got := backend.req.Select
	found := false
	for _, name := range got {
		if name == "content" {
			found = true
		}
	}
	if !found {
		t.Errorf("select %v is missing content", got)
	}

	e.Search(context.Background(), &Request{Query: "q", Select: []string{"content"}})
	if len(backend.req.Select) != 1 {
		t.Errorf("content duplicated: %v", backend.req.Select)
	}

	e.Search(context.Background(), &Request{Query: "q"})
	if backend.req.Select != nil {
		t.Errorf("empty select should stay nil (all fields), got %v", backend.req.Select)
	}
}

func TestEmptyResultIsNotDegraded(t *testing.T) {
	backend := &captureBackend{}
	e := New(backend, "plans")
	resp := e.Search(context.Background(), &Request{Query: "no such plan", SearchType: model.SearchTypeHybrid, Top: 5})
	if resp.Degraded {
		t.Error("zero hits must not be reported as degraded")
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0", len(resp.Results))
	}
}

func TestSearchFailureDegrades(t *testing.T) {
	backend := &captureBackend{err: fmt.Errorf("index unreachable")}
	e := New(backend, "plans")
	resp := e.Search(context.Background(), &Request{Query: "deductible"})
	if !resp.Degraded {
		t.Error("backend error must set Degraded")
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %d, want 0", len(resp.Results))
	}
}

func TestSemanticPostSortIsStable(t *testing.T) {
	backend := &captureBackend{results: []model.SearchResult{
		{Fields: map[string]interface{}{"chunk_id": "a"}, Score: 1.0},
		{Fields: map[string]interface{}{"chunk_id": "b"}, Score: 3.0},
		{Fields: map[string]interface{}{"chunk_id": "c"}, Score: 3.0},
		{Fields: map[string]interface{}{"chunk_id": "d"}, Score: 2.0},
	}}
	e := New(backend, "plans")
	resp := e.Search(context.Background(), &Request{Query: "q", SearchType: model.SearchTypeSemantic})
	var order []string
	for _, r := range resp.Results {
		order = append(order, r.StringField("chunk_id"))
	}
	want := []string{"b", "c", "d", "a"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLexicalKeepsEngineOrder(t *testing.T) {
	backend := &captureBackend{results: []model.SearchResult{
		{Fields: map[string]interface{}{"chunk_id": "a"}, Score: 1.0},
		{Fields: map[string]interface{}{"chunk_id": "b"}, Score: 3.0},
	}}
	e := New(backend, "plans")
	resp := e.Search(context.Background(), &Request{Query: "q", SearchType: model.SearchTypeLexical})
	if resp.Results[0].StringField("chunk_id") != "a" {
		t.Error("lexical results must be returned in engine order")
	}
}
