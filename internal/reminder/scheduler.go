package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"

	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/model"
)

// DailySchedule runs the reminder pass every day at 09:00 local time.
const DailySchedule = "0 9 * * *"

// Store reads care plans and stamps sent reminders.
type Store interface {
	ListCarePlansWithUsers(ctx context.Context) ([]*model.PlanWithUser, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}

// Mailer delivers reminder emails.
type Mailer interface {
	SendReminderEmail(ctx context.Context, user *model.User, plan model.CarePlan) error
}

// RunResult summarizes one reminder pass.
type RunResult struct {
	Scanned int
	Skipped int
	Sent    int
	Failed  int
}

// Scheduler sends due reminders once a day.
type Scheduler struct {
	store   Store
	mailer  Mailer
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
	cron    *cron.Cron
}

// NewScheduler creates a Scheduler. recorder defaults to a noop recorder.
func NewScheduler(store Store, mailer Mailer, logger *slog.Logger, recorder metrics.Recorder) *Scheduler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Scheduler{
		store:   store,
		mailer:  mailer,
		logger:  logger.With("component", "reminder.scheduler"),
		metrics: recorder,
		now:     time.Now,
	}
}

// Start registers the daily pass and starts the cron goroutine.
func (s *Scheduler) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(DailySchedule, s.runScheduled); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	s.cron = c
	c.Start()
	s.logger.Info("reminder scheduler started", "schedule", DailySchedule)
	return nil
}

// Shutdown stops scheduling and waits for a running pass to finish.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runScheduled() {
	s.logger.Info("running daily reminder check")
	result, err := s.RunOnce(context.Background(), s.now())
	if err != nil {
		s.logger.Error("reminder run failed", "error", err)
		sentry.CaptureException(err)
		return
	}
	s.logger.Info("reminder run complete",
		"scanned", result.Scanned,
		"skipped", result.Skipped,
		"sent", result.Sent,
		"failed", result.Failed,
	)
}

// RunOnce visits every care plan once and sends the reminders due at now.
// Send and stamp failures are logged and do not stop the pass.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (RunResult, error) {
	start := time.Now()
	var result RunResult

	plans, err := s.store.ListCarePlansWithUsers(ctx)
	if err != nil {
		return result, fmt.Errorf("list care plans: %w", err)
	}

	for _, p := range plans {
		result.Scanned++

		days, due := s.due(p, now)
		if !due {
			result.Skipped++
			continue
		}

		if err := s.remind(ctx, p, now); err != nil {
			result.Failed++
			s.logger.Error("reminder failed",
				"care_plan_id", p.Record.ID,
				"user_id", p.Record.UserID,
				"interval_days", days,
				"error", err,
			)
			sentry.CaptureException(err)
			continue
		}
		result.Sent++
	}

	s.metrics.ObserveReminderRun(result.Sent, result.Failed, time.Since(start))
	return result, nil
}

// due reports whether a reminder should be sent for p at now.
func (s *Scheduler) due(p *model.PlanWithUser, now time.Time) (int, bool) {
	if p == nil || p.Record == nil || p.User == nil || p.User.Email == "" {
		return 0, false
	}

	freq, ok := ParseWashFrequency(p.Record.CarePlan.WashFrequency)
	if !ok {
		return 0, false
	}
	days, ok := freq.IntervalDays()
	if !ok {
		return 0, false
	}

	return days, ElapsedDays(p.Record.ReminderAnchor(), now) >= days
}

// remind sends then stamps. A crash between the two resends next run.
func (s *Scheduler) remind(ctx context.Context, p *model.PlanWithUser, now time.Time) error {
	s.logger.Info("sending reminder", "care_plan_id", p.Record.ID, "email", p.User.Email)

	if err := s.mailer.SendReminderEmail(ctx, p.User, p.Record.CarePlan); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	if err := s.store.MarkReminderSent(ctx, p.Record.ID, now); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}

	stamped := now
	p.Record.LastReminderSent = &stamped
	return nil
}
