package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"newsforge/store"
)

// Enqueuer is the slice of the task queue the scheduler needs.
type Enqueuer interface {
	EnqueueGenerateAndSend(ctx context.Context, newsletterID, recipientEmail string) (string, error)
}

// Scheduler periodically finds active newsletters whose schedule interval has
// elapsed and enqueues a generate-and-send task for each.
type Scheduler struct {
	store    *store.Store
	queue    Enqueuer
	interval time.Duration
	log      *zap.Logger
}

func NewScheduler(st *store.Store, queue Enqueuer, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{store: st, queue: queue, interval: interval, log: log}
}

// Run blocks until ctx is cancelled. Each tick is panic-recovered so a bad
// pass never kills the process.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.log.Error("scheduler pass panicked", zap.Any("panic", r))
					}
				}()
				enqueued, err := s.CheckDue(ctx)
				if err != nil {
					s.log.Error("scheduler pass failed", zap.Error(err))
					return
				}
				if enqueued > 0 {
					s.log.Info("scheduled newsletters enqueued", zap.Int("count", enqueued))
				}
			}()
		}
	}
}

// CheckDue runs one scheduling pass and returns how many tasks it enqueued.
func (s *Scheduler) CheckDue(ctx context.Context) (int, error) {
	scheduled, err := s.store.ListScheduled(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	enqueued := 0
	for _, n := range scheduled {
		if !ScheduleDue(n.Schedule, n.LastSentAt, now) {
			continue
		}
		taskID, err := s.queue.EnqueueGenerateAndSend(ctx, n.ID, n.Email)
		if err != nil {
			s.log.Error("enqueue failed",
				zap.String("newsletter_id", n.ID),
				zap.Error(err),
			)
			continue
		}
		s.log.Info("newsletter due",
			zap.String("newsletter_id", n.ID),
			zap.String("schedule", n.Schedule),
			zap.String("task_id", taskID),
		)
		enqueued++
	}
	return enqueued, nil
}

// ScheduleDue interprets the named schedules as minimum intervals since the
// last successful send. A newsletter that has never been sent is due.
func ScheduleDue(schedule string, lastSentAt *time.Time, now time.Time) bool {
	var interval time.Duration
	switch schedule {
	case "daily":
		interval = 24 * time.Hour
	case "weekly":
		interval = 7 * 24 * time.Hour
	case "biweekly":
		interval = 14 * 24 * time.Hour
	case "monthly":
		interval = 30 * 24 * time.Hour
	default:
		return false
	}

	if lastSentAt == nil {
		return true
	}
	return now.Sub(*lastSentAt) >= interval
}

var ValidSchedules = []string{"daily", "weekly", "biweekly", "monthly"}

func IsValidSchedule(schedule string) bool {
	if schedule == "" {
		return true // manual-only newsletter
	}
	for _, s := range ValidSchedules {
		if schedule == s {
			return true
		}
	}
	return false
}
