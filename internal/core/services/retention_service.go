package services

import (
	"context"
	"time"

	"github.com/tracecmd/backend/internal/core/ports"
)

// RetentionService prunes timeline events older than the retention window
type RetentionService struct {
	timeline  ports.TimelineRepository
	logger    ports.Logger
	retention time.Duration
	interval  time.Duration
}

func NewRetentionService(timeline ports.TimelineRepository, logger ports.Logger, retention, interval time.Duration) *RetentionService {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionService{
		timeline:  timeline,
		logger:    logger,
		retention: retention,
		interval:  interval,
	}
}

// PruneOnce deletes events older than the retention window
func (s *RetentionService) PruneOnce(ctx context.Context) error {
	if err := s.timeline.CleanupOld(ctx, s.retention); err != nil {
		s.logger.Warnw("timeline_cleanup_failed", "retention", s.retention, "error", err)
		return err
	}
	s.logger.Debugw("timeline_cleanup_done", "retention", s.retention)
	return nil
}

// Run prunes on every interval until ctx is done
func (s *RetentionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneCtx, cancel := context.WithTimeout(ctx, time.Minute)
			_ = s.PruneOnce(pruneCtx)
			cancel()
		}
	}
}
