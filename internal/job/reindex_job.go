package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/healrag/healrag/internal/service"
)

// ReindexJob rebuilds the search index from the document store on a
// schedule so newly dropped plan files get picked up without operator
// involvement.
type ReindexJob struct {
	ingest *service.IngestService
}

func NewReindexJob(ingest *service.IngestService) *ReindexJob {
	return &ReindexJob{ingest: ingest}
}

func (j *ReindexJob) Name() string {
	return "reindex"
}

func (j *ReindexJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	report, err := j.ingest.Run(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("reindex completed",
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed))
	return nil
}
