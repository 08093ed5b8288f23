package application

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultSyncInterval = 15 * time.Minute

// Scheduler runs the sync job for a fixed set of anchors on an interval.
type Scheduler struct {
	job      *Job
	anchors  []string
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(job *Job, anchors []string, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		job:      job,
		anchors:  anchors,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.job == nil || len(s.anchors) == 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce syncs each configured anchor in turn.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, anchorID := range s.anchors {
		if anchorID == "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if _, err := s.job.SyncAnchor(ctx, anchorID); err != nil {
			s.logger.Error("scheduled commute sync failed", zap.String("anchor_id", anchorID), zap.Error(err))
		}
	}
}
