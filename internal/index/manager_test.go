package index

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
	"github.com/healrag/healrag/internal/searchengine"
)

type fakeEngine struct {
	ensured []string
	batches [][]model.IndexDocument
	// failByFirst maps a batch's first chunk_id to how many transient
	// failures it hits before succeeding.
	failByFirst map[string]int
	permanent   bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{failByFirst: map[string]int{}}
}

func (f *fakeEngine) EnsureIndex(_ context.Context, s *model.IndexSchema) error {
	f.ensured = append(f.ensured, s.Name)
	return nil
}

func (f *fakeEngine) UploadBatch(_ context.Context, _ string, docs []model.IndexDocument) ([]searchengine.DocumentResult, error) {
	if f.permanent {
		return nil, fmt.Errorf("bad request")
	}
	first := docs[0].ChunkID
	if f.failByFirst[first] > 0 {
		f.failByFirst[first]--
		return nil, fmt.Errorf("%w: rate limited", apperr.ErrTransient)
	}
	f.batches = append(f.batches, docs)
	return nil, nil
}

func (f *fakeEngine) Query(_ context.Context, _ string, _ *model.SearchRequest) ([]model.SearchResult, error) {
	return nil, nil
}

func (f *fakeEngine) Close() error { return nil }

func makeDocs(n int) []model.IndexDocument {
	docs := make([]model.IndexDocument, n)
	for i := range docs {
		docs[i].ChunkID = fmt.Sprintf("doc--%d", i)
	}
	return docs
}

func newTestManager(engine searchengine.Engine, opts ...Option) *Manager {
	m := NewManager(engine, opts...)
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m
}

func TestUploadBatching(t *testing.T) {
	engine := newFakeEngine()
	m := newTestManager(engine, WithBatchSize(100))
	report, err := m.Upload(context.Background(), "plans", makeDocs(250))
	if err != nil {
		t.Fatal(err)
	}
	if len(engine.batches) != 3 {
		t.Fatalf("batch count = %d, want 3", len(engine.batches))
	}
	sizes := []int{len(engine.batches[0]), len(engine.batches[1]), len(engine.batches[2])}
	if sizes[0] != 100 || sizes[1] != 100 || sizes[2] != 50 {
		t.Errorf("batch sizes = %v, want [100 100 50]", sizes)
	}
	if report.Indexed != 250 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	engine := newFakeEngine()
	engine.failByFirst["doc--100"] = 2 // batch 2 fails twice, then succeeds
	m := newTestManager(engine, WithBatchSize(100))
	report, err := m.Upload(context.Background(), "plans", makeDocs(250))
	if err != nil {
		t.Fatal(err)
	}
	if report.Indexed != 250 || report.Failed != 0 {
		t.Fatalf("report = %+v, want all indexed", report)
	}
	totalRetries := 0
	for _, b := range report.Batches {
		totalRetries += b.Retries
	}
	if totalRetries != 2 {
		t.Errorf("total retries = %d, want 2", totalRetries)
	}
}

func TestUploadReportsExhaustedBatch(t *testing.T) {
	engine := newFakeEngine()
	engine.failByFirst["doc--0"] = 100
	m := newTestManager(engine, WithBatchSize(10), WithRetry(time.Millisecond, 2))
	report, err := m.Upload(context.Background(), "plans", makeDocs(25))
	if err != nil {
		t.Fatal(err)
	}
	// First batch exhausts retries; remaining batches still run.
	if report.Failed != 10 {
		t.Errorf("failed = %d, want 10", report.Failed)
	}
	if report.Indexed != 15 {
		t.Errorf("indexed = %d, want 15", report.Indexed)
	}
	if !report.Batches[0].Failed || report.Batches[0].Retries != 2 {
		t.Errorf("first batch = %+v", report.Batches[0])
	}
}

func TestUploadDoesNotRetryPermanentErrors(t *testing.T) {
	engine := newFakeEngine()
	engine.permanent = true
	m := newTestManager(engine, WithBatchSize(10))
	report, err := m.Upload(context.Background(), "plans", makeDocs(10))
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 10 {
		t.Fatalf("report = %+v", report)
	}
	if report.Batches[0].Retries != 0 {
		t.Errorf("permanent error was retried %d times", report.Batches[0].Retries)
	}
}

func TestCreateOrUpdateIndexValidatesFirst(t *testing.T) {
	engine := newFakeEngine()
	m := newTestManager(engine)
	bad := &model.IndexSchema{Name: "plans", Fields: []model.FieldDefinition{
		{Name: "content", Type: model.FieldTypeString, Searchable: true},
	}}
	err := m.CreateOrUpdateIndex(context.Background(), bad)
	if !apperr.IsSchema(err) {
		t.Fatalf("err = %v, want schema validation error", err)
	}
	if len(engine.ensured) != 0 {
		t.Error("engine was called despite invalid schema")
	}
}
