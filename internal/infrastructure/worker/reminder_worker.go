package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/dispatcher"
	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
)

// ReminderWorkerConfig holds configuration for the weekly report reminder
type ReminderWorkerConfig struct {
	Interval time.Duration
	Location *time.Location
}

// DefaultReminderWorkerConfig returns default configuration
func DefaultReminderWorkerConfig() ReminderWorkerConfig {
	return ReminderWorkerConfig{
		Interval: 24 * time.Hour,
		Location: time.UTC,
	}
}

// ReminderWorker publishes a reminder for every staff member who has not
// submitted a weekly report for the previous week
type ReminderWorker struct {
	config    ReminderWorkerConfig
	reports   port.WeeklyReportRepository
	publisher dispatcher.Publisher
	now       func() time.Time
	logger    *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	sentCount int

	// staff already reminded for remindedWeek
	remindedWeek time.Time
	reminded     map[string]bool
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(
	config ReminderWorkerConfig,
	reports port.WeeklyReportRepository,
	publisher dispatcher.Publisher,
	now func() time.Time,
	logger *zap.Logger,
) *ReminderWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultReminderWorkerConfig().Interval
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderWorker{
		config:    config,
		reports:   reports,
		publisher: publisher,
		now:       now,
		logger:    logger,
	}
}

// Start begins the reminder loop
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("reminder worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("ReminderWorker started", zap.Duration("interval", w.config.Interval))
	go w.loop(ctx, w.done)
	return nil
}

// Stop terminates the loop and waits for the current run to finish
func (w *ReminderWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("ReminderWorker stopped", zap.Int("sent_count", w.SentCount()))
	return nil
}

// Name returns the worker name for identification
func (w *ReminderWorker) Name() string {
	return "ReminderWorker"
}

// SentCount returns the number of reminders published since creation
func (w *ReminderWorker) SentCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sentCount
}

func (w *ReminderWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("Failed to send weekly reminders", zap.Error(err))
			}
		}
	}
}

// RunOnce publishes reminders for the week preceding the current one and
// returns how many were published. A staff member is reminded at most once
// per week.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	week := PreviousWeekStart(w.now(), w.config.Location)

	staff, err := w.reports.StaffWithoutReport(ctx, week)
	if err != nil {
		return 0, fmt.Errorf("find staff without report: %w", err)
	}

	w.mu.Lock()
	if !w.remindedWeek.Equal(week) {
		w.remindedWeek = week
		w.reminded = make(map[string]bool)
	}
	pending := make([]*entity.Profile, 0, len(staff))
	for _, p := range staff {
		if !w.reminded[p.ID] {
			w.reminded[p.ID] = true
			pending = append(pending, p)
		}
	}
	w.sentCount += len(pending)
	w.mu.Unlock()

	for _, p := range pending {
		w.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeWeeklyReminder, p.ID, p.ID, "", map[string]interface{}{
			event.KeyWeek: week.Format(entity.DateLayout),
		}))
	}

	w.logger.Info("Weekly reminders published",
		zap.String("week_start", week.Format(entity.DateLayout)),
		zap.Int("count", len(pending)),
		zap.Int("already_reminded", len(staff)-len(pending)))
	return len(pending), nil
}

// PreviousWeekStart returns the Monday of the week before the one containing
// now, as a calendar date in loc
func PreviousWeekStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return entity.WeekStartOf(local).AddDate(0, 0, -7)
}
