// Package index manages search index lifecycle: schema validation,
// idempotent creation, and batched population with retry.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/healrag/healrag/internal/model"
	apperr "github.com/healrag/healrag/internal/pkg/errors"
	"github.com/healrag/healrag/internal/schema"
	"github.com/healrag/healrag/internal/searchengine"
)

const (
	DefaultBatchSize = 100
	defaultBaseDelay = 2 * time.Second
	defaultMaxRetry  = 3
)

type Manager struct {
	engine    searchengine.Engine
	batchSize int
	baseDelay time.Duration
	maxRetry  int
	sleep     func(ctx context.Context, d time.Duration) error
}

type Option func(*Manager)

func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

func WithRetry(baseDelay time.Duration, maxRetry int) Option {
	return func(m *Manager) {
		if baseDelay > 0 {
			m.baseDelay = baseDelay
		}
		if maxRetry >= 0 {
			m.maxRetry = maxRetry
		}
	}
}

func NewManager(engine searchengine.Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:    engine,
		batchSize: DefaultBatchSize,
		baseDelay: defaultBaseDelay,
		maxRetry:  defaultMaxRetry,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CreateOrUpdateIndex validates the schema and ensures the index exists.
// Validation failures abort before any engine call; an existing index of
// the same name is left unchanged by the engine contract.
func (m *Manager) CreateOrUpdateIndex(ctx context.Context, s *model.IndexSchema) error {
	if err := schema.Validate(s); err != nil {
		return err
	}
	return m.engine.EnsureIndex(ctx, s)
}

// BatchResult reports one batch's outcome, including how many retries it
// consumed.
type BatchResult struct {
	Batch   int    `json:"batch"`
	Size    int    `json:"size"`
	Retries int    `json:"retries"`
	Failed  bool   `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// UploadReport aggregates a whole population run.
type UploadReport struct {
	Total   int           `json:"total"`
	Indexed int           `json:"indexed"`
	Failed  int           `json:"failed"`
	Batches []BatchResult `json:"batches"`
}

// Upload partitions documents into fixed-size batches and uploads them
// sequentially. A batch hitting a transient failure is retried with
// exponential backoff; once retries are exhausted the batch is reported
// failed and the run moves on. Partial failure is reported, never fatal.
func (m *Manager) Upload(ctx context.Context, index string, docs []model.IndexDocument) (*UploadReport, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("index", index))
	report := &UploadReport{Total: len(docs)}
	if len(docs) == 0 {
		return report, nil
	}
	batchNum := 0
	for offset := 0; offset < len(docs); offset += m.batchSize {
		end := offset + m.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batchNum++
		batch := docs[offset:end]
		result := m.uploadBatch(ctx, index, batchNum, batch)
		report.Batches = append(report.Batches, result)
		if result.Failed {
			report.Failed += len(batch)
			logger.Error("batch failed after retries",
				zap.Int("batch", batchNum),
				zap.Int("size", len(batch)),
				zap.String("error", result.Error),
			)
			continue
		}
		report.Indexed += len(batch)
	}
	logger.Info("upload finished",
		zap.Int("total", report.Total),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (m *Manager) uploadBatch(ctx context.Context, index string, batchNum int, batch []model.IndexDocument) BatchResult {
	logger := logutil.GetLogger(ctx).With(zap.String("index", index), zap.Int("batch", batchNum))
	result := BatchResult{Batch: batchNum, Size: len(batch)}
	delay := m.baseDelay
	for attempt := 0; ; attempt++ {
		_, err := m.engine.UploadBatch(ctx, index, batch)
		if err == nil {
			return result
		}
		if !apperr.IsTransient(err) || attempt >= m.maxRetry {
			result.Failed = true
			result.Error = err.Error()
			return result
		}
		result.Retries++
		logger.Warn("transient batch failure, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := m.sleep(ctx, delay); err != nil {
			result.Failed = true
			result.Error = fmt.Sprintf("canceled during backoff: %v", err)
			return result
		}
		delay *= 2
	}
}
