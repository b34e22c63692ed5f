package scheduler

import (
	"context"
	"errors"
	"time"
)

// Run scans once right away and then every interval until ctx is done. A
// failed scan is logged and the loop carries on.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	s.cfg.Log.Info("Reminder scheduler started", "interval", interval, "workers", s.cfg.ReminderDispatchWorkers, "owner", s.owner)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.cfg.Log.Error("Reminder scan failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.cfg.Log.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
