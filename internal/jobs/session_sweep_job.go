package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionSweepJobName is the name of the signature session cleanup job
const SessionSweepJobName = "session_sweep"

// DefaultSweepTimeout bounds a single sweep run
const DefaultSweepTimeout = 2 * time.Minute

// SessionSweeper removes expired pending signature sessions. Sessions
// already signed are audit records and are never swept.
// This interface allows the job to call the service without importing
// the service package directly.
type SessionSweeper interface {
	SweepExpired(ctx context.Context, grace time.Duration) (removed int64, err error)
}

// SessionSweepJob periodically deletes pending signature sessions whose
// expiry plus the grace period has passed.
type SessionSweepJob struct {
	sweeper SessionSweeper
	grace   time.Duration
	logger  *zap.Logger
	timeout time.Duration
}

func NewSessionSweepJob(sweeper SessionSweeper, grace time.Duration, logger *zap.Logger) *SessionSweepJob {
	return &SessionSweepJob{
		sweeper: sweeper,
		grace:   grace,
		logger:  logger,
		timeout: DefaultSweepTimeout,
	}
}

// Run executes one sweep. Called by the scheduler according to the cron
// expression.
func (j *SessionSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	removed, err := j.sweeper.SweepExpired(ctx, j.grace)
	if err != nil {
		j.logger.Error("signature session sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if removed > 0 {
		j.logger.Info("signature session sweep completed",
			zap.Int64("removed", removed),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterSessionSweepJob registers the sweep with the scheduler.
// The cronExpr should be a valid cron expression (e.g., "0 30 * * * *"
// for half past every hour).
func RegisterSessionSweepJob(scheduler *Scheduler, sweeper SessionSweeper, grace time.Duration, logger *zap.Logger, cronExpr string) error {
	job := NewSessionSweepJob(sweeper, grace, logger)
	return scheduler.AddJob(SessionSweepJobName, cronExpr, job.Run)
}
