package service

import (
	"context"
	"errors"
	"sync"
	"time"
	_ "time/tzdata"

	"companion-be/internal/entity"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/repository/specification"
	"companion-be/internal/repository/unitofwork"
	"companion-be/pkg/events"
)

// ReminderCatchUp is how long after the configured time a reminder may still go out.
const ReminderCatchUp = time.Hour

var ErrSchedulerRunning = errors.New("reminder scheduler already running")

type SchedulerStatus struct {
	Running       bool       `json:"running"`
	Interval      string     `json:"interval"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	RemindersSent int        `json:"reminders_sent"`
}

// ReminderScheduler publishes DAILY_REMINDER once per user per local day.
type ReminderScheduler struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  events.Publisher
	interval   time.Duration
	logger     logger.ILogger
	now        func() time.Time

	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	lastRunAt *time.Time
	lastError string
	sent      int
}

func NewReminderScheduler(uowFactory unitofwork.RepositoryFactory, publisher events.Publisher, interval time.Duration, log logger.ILogger) *ReminderScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderScheduler{
		uowFactory: uowFactory,
		publisher:  publisher,
		interval:   interval,
		logger:     log,
		now:        time.Now,
	}
}

// Start runs one pass immediately, then one per interval, until Stop or ctx is done.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop = stop
	s.done = done
	s.mu.Unlock()

	s.logger.Info("ReminderScheduler", "Scheduler started", map[string]interface{}{"interval": s.interval.String()})
	go s.loop(ctx, stop, done)
	return nil
}

func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.logger.Info("ReminderScheduler", "Scheduler stopped", nil)
}

func (s *ReminderScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStatus{
		Running:       s.stop != nil,
		Interval:      s.interval.String(),
		LastRunAt:     s.lastRunAt,
		LastError:     s.lastError,
		RemindersSent: s.sent,
	}
}

func (s *ReminderScheduler) loop(ctx context.Context, stop chan struct{}, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.release(stop)
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// release clears the running state unless Stop or a newer Start already owns it.
func (s *ReminderScheduler) release(stop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == stop {
		s.stop, s.done = nil, nil
		s.logger.Info("ReminderScheduler", "Scheduler stopped by context", nil)
	}
}

// runOnce returns the number of reminders published in this pass.
func (s *ReminderScheduler) runOnce(ctx context.Context) int {
	now := s.now()
	sent, err := s.dispatch(ctx, now)

	s.mu.Lock()
	s.lastRunAt = &now
	s.sent += sent
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("ReminderScheduler", "Reminder pass failed", map[string]interface{}{"error": err.Error()})
	} else if sent > 0 {
		s.logger.Info("ReminderScheduler", "Reminders published", map[string]interface{}{"count": sent})
	}
	return sent
}

func (s *ReminderScheduler) dispatch(ctx context.Context, now time.Time) (int, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).UserRepository()

	prefs, err := repo.FindPreferences(ctx, specification.RemindersEnabled{})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, pref := range prefs {
		localDate, due := s.due(pref, now)
		if !due {
			continue
		}

		user, err := repo.FindOne(ctx, specification.ByID{ID: pref.UserId})
		if err != nil {
			return sent, err
		}
		if user == nil {
			continue
		}

		if err := s.publisher.Publish(ctx, events.NewDailyReminder(user.Id, user.FullName, user.Email, pref.EmailEnabled, localDate)); err != nil {
			s.logger.Warn("ReminderScheduler", "Failed to publish reminder", map[string]interface{}{
				"user_id": user.Id.String(),
				"error":   err.Error(),
			})
			continue
		}

		sentAt := now
		pref.LastReminderAt = &sentAt
		pref.UpdatedAt = now
		if err := repo.SavePreference(ctx, pref); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// due reports whether pref's reminder falls inside the catch-up window and was not sent on that local day.
func (s *ReminderScheduler) due(pref *entity.UserPreference, now time.Time) (string, bool) {
	loc, err := time.LoadLocation(pref.Timezone)
	if err != nil || pref.Timezone == "" {
		if pref.Timezone != "" {
			s.logger.Warn("ReminderScheduler", "Unknown timezone, using UTC", map[string]interface{}{
				"user_id":  pref.UserId.String(),
				"timezone": pref.Timezone,
			})
		}
		loc = time.UTC
	}

	clock, err := time.Parse("15:04", pref.ReminderTime)
	if err != nil {
		return "", false
	}

	local := now.In(loc)
	scheduled := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if local.Before(scheduled) || local.Sub(scheduled) >= ReminderCatchUp {
		return "", false
	}

	localDate := local.Format("2006-01-02")
	if pref.LastReminderAt != nil && pref.LastReminderAt.In(loc).Format("2006-01-02") == localDate {
		return "", false
	}
	return localDate, true
}
