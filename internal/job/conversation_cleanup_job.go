package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type conversationPruner interface {
	DeleteBefore(ctx context.Context, cutoff string) (int64, error)
}

// ConversationCleanupJob removes persisted conversation records past
// the retention window.
type ConversationCleanupJob struct {
	store  conversationPruner
	maxAge time.Duration
}

func NewConversationCleanupJob(store conversationPruner, maxAge time.Duration) *ConversationCleanupJob {
	return &ConversationCleanupJob{store: store, maxAge: maxAge}
}

func (j *ConversationCleanupJob) Name() string {
	return "conversation_cleanup"
}

func (j *ConversationCleanupJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)
	deleted, err := j.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("conversation cleanup completed",
		zap.Int64("deleted", deleted), zap.String("cutoff", cutoff))
	return nil
}
