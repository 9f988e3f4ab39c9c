// Package scheduler delivers the daily menu notification. A periodic
// sweep reads all users, picks the cohort whose preferred hour is now,
// and fires the budget-plus-invite sequence once per user per day.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/calorico/bot/domain"
	"github.com/m3rciful/calorico/bot/texts"
	"github.com/m3rciful/calorico/core/config"
	"github.com/m3rciful/calorico/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Store is the user persistence the sweep reads and writes.
type Store interface {
	GetAllUsers(ctx context.Context) (map[int64]*domain.User, error)
	SaveUser(ctx context.Context, u *domain.User) error
}

// Messenger sends scheduler messages outside any update context.
type Messenger interface {
	SendText(ctx context.Context, userID int64, text string) (messageID int, err error)
	SendKeyboard(ctx context.Context, userID int64, text string, kb *tele.ReplyMarkup) (messageID int, err error)
	Pin(ctx context.Context, userID int64, messageID int) error
}

// Sweeper runs the periodic delivery sweep.
type Sweeper struct {
	store Store
	msgr  Messenger

	interval     time.Duration
	initialDelay time.Duration
	now          func() time.Time

	mu           sync.Mutex
	cron         *cron.Cron
	initialTimer *time.Timer
	stopped      bool
}

// New builds a Sweeper from the scheduler config section.
func New(store Store, msgr Messenger, cfg config.SchedulerConfig) *Sweeper {
	return &Sweeper{
		store:        store,
		msgr:         msgr,
		interval:     cfg.SweepInterval,
		initialDelay: cfg.InitialDelay,
		now:          time.Now,
	}
}

// Start arms the first sweep after the initial delay, then repeats on
// the configured interval. Missed windows are not caught up.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Sweep(context.Background())
	}); err != nil {
		logger.Sched.Error("sweep schedule rejected",
			slog.String("event", "sched.start"),
			slog.String("err", err.Error()),
		)
		return
	}
	s.cron = c
	s.stopped = false

	s.initialTimer = time.AfterFunc(s.initialDelay, s.initialFire)
	logger.Sched.Info("scheduler armed",
		slog.String("event", "sched.start"),
		slog.Duration("interval", s.interval),
		slog.Duration("initial_delay", s.initialDelay),
	)
}

// initialFire runs the first sweep after the initial delay and then
// starts the cron loop. The timer may fire concurrently with Stop, so
// both the sweep and the cron start are gated on the stopped flag.
func (s *Sweeper) initialFire() {
	s.mu.Lock()
	if s.stopped || s.cron == nil {
		s.mu.Unlock()
		return
	}
	c := s.cron
	s.mu.Unlock()

	s.Sweep(context.Background())

	s.mu.Lock()
	if !s.stopped && s.cron == c {
		c.Start()
	}
	s.mu.Unlock()
}

// Stop cancels the pending timer and stops the cron loop. A sweep that
// is already running finishes.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.initialTimer != nil {
		s.initialTimer.Stop()
		s.initialTimer = nil
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
	logger.Sched.Info("scheduler stopped", slog.String("event", "sched.stop"))
}

// Sweep runs one delivery pass. A failed bulk read aborts the whole
// sweep; a failed delivery skips only that user.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := s.now()

	users, err := s.store.GetAllUsers(ctx)
	if err != nil {
		logger.Sched.Error("sweep aborted",
			slog.String("event", "sched.sweep"),
			slog.String("err", err.Error()),
		)
		return
	}

	var sent, skipped int
	for _, u := range users {
		if !u.EligibleForDailyMenu(start) {
			continue
		}
		if err := s.fireUser(ctx, u, start); err != nil {
			skipped++
			logger.Sched.Error("delivery failed",
				slog.String("event", "sched.fire"),
				slog.Int64("user_id", u.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}

	logger.Sched.Info("sweep done",
		slog.String("event", "sched.sweep"),
		slog.Int("checked", len(users)),
		slog.Int("sent", sent),
		slog.Int("skipped", skipped),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
}

// fireUser runs the delivery sequence for one eligible user: budget
// message, best-effort pin, menu invite, then bookkeeping. Bookkeeping
// is stamped only after both sends succeed, so a failed delivery is
// retried by the next sweep.
func (s *Sweeper) fireUser(ctx context.Context, u *domain.User, now time.Time) error {
	msgID, err := s.msgr.SendText(ctx, u.ID, texts.CalorieBudget(u.CalorieBudget))
	if err != nil {
		return fmt.Errorf("budget message: %w", err)
	}

	if err := s.msgr.Pin(ctx, u.ID, msgID); err != nil {
		logger.Sched.Warn("pin failed",
			slog.String("event", "sched.pin"),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
	}

	if _, err := s.msgr.SendKeyboard(ctx, u.ID, texts.MenuReady, texts.MainKeyboard()); err != nil {
		return fmt.Errorf("menu invite: %w", err)
	}

	u.MarkMenuSent(now)
	if err := s.store.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("persist delivery: %w", err)
	}

	logger.Sched.Info("menu delivered",
		slog.String("event", "sched.fire"),
		slog.Int64("user_id", u.ID),
		slog.Int("day_count", u.Flow.DayCount),
	)
	return nil
}
