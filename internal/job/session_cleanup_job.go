package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tomehq/tome/internal/repo"
)

// SessionCleanupJob drops chat sessions idle longer than the configured
// age, together with their history rows.
type SessionCleanupJob struct {
	sessions   *repo.SessionRepo
	maxAgeDays int
}

func NewSessionCleanupJob(sessions *repo.SessionRepo, maxAgeDays int) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions, maxAgeDays: maxAgeDays}
}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

func (j *SessionCleanupJob) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()
	removed, err := j.sessions.DeleteIdleBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("idle sessions removed", zap.Int64("count", removed))
	}
	return nil
}
