package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/calorico/bot/domain"
	"github.com/m3rciful/calorico/core/config"

	tele "gopkg.in/telebot.v4"
)

type fakeStore struct {
	users   map[int64]*domain.User
	readErr error
	reads   int
	saves   int
}

func (s *fakeStore) GetAllUsers(ctx context.Context) (map[int64]*domain.User, error) {
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.users, nil
}

func (s *fakeStore) SaveUser(ctx context.Context, u *domain.User) error {
	s.saves++
	s.users[u.ID] = u
	return nil
}

type fakeMessenger struct {
	sendErr error
	kbErr   error
	pinErr  error

	texts []string
	kbs   []string
	pins  []int
}

func (m *fakeMessenger) SendText(ctx context.Context, userID int64, text string) (int, error) {
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.texts = append(m.texts, text)
	return 100 + len(m.texts), nil
}

func (m *fakeMessenger) SendKeyboard(ctx context.Context, userID int64, text string, kb *tele.ReplyMarkup) (int, error) {
	if m.kbErr != nil {
		return 0, m.kbErr
	}
	m.kbs = append(m.kbs, text)
	return 200 + len(m.kbs), nil
}

func (m *fakeMessenger) Pin(ctx context.Context, userID int64, messageID int) error {
	if m.pinErr != nil {
		return m.pinErr
	}
	m.pins = append(m.pins, messageID)
	return nil
}

func trackedUser(id int64, hour string) *domain.User {
	u := domain.New(id)
	u.CompleteSetup()
	u.DailyMenuEnabled = true
	u.PreferredMenuHour = hour
	u.CalorieBudget = 1800
	return u
}

func newTestSweeper(store *fakeStore, msgr *fakeMessenger, at time.Time) *Sweeper {
	s := New(store, msgr, config.SchedulerConfig{
		SweepInterval: 10 * time.Minute,
		InitialDelay:  30 * time.Second,
	})
	s.now = func() time.Time { return at }
	return s
}

func TestSweepDeliversToMatchingCohort(t *testing.T) {
	at := time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)
	store := &fakeStore{users: map[int64]*domain.User{
		1: trackedUser(1, "08:00"),
		2: trackedUser(2, "09:00"),
		3: trackedUser(3, domain.ManualRequestSentinel),
	}}
	msgr := &fakeMessenger{}

	newTestSweeper(store, msgr, at).Sweep(context.Background())

	if len(msgr.texts) != 1 || !strings.Contains(msgr.texts[0], "1800") {
		t.Fatalf("budget messages = %v, want one containing the budget", msgr.texts)
	}
	if len(msgr.pins) != 1 {
		t.Fatalf("pins = %v, want exactly one", msgr.pins)
	}
	if len(msgr.kbs) != 1 {
		t.Fatalf("menu invites = %v, want exactly one", msgr.kbs)
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}

	u := store.users[1]
	if u.Flow.DayCount != 1 {
		t.Errorf("day count = %d, want 1", u.Flow.DayCount)
	}
	if u.LastMenuSent == nil || !u.LastMenuSent.Equal(at) {
		t.Errorf("last menu sent = %v, want %v", u.LastMenuSent, at)
	}
	if store.users[2].Flow.DayCount != 0 || store.users[3].Flow.DayCount != 0 {
		t.Error("users outside the cohort must not be touched")
	}
}

func TestSecondSweepSameDayIsIdempotent(t *testing.T) {
	first := time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)
	store := &fakeStore{users: map[int64]*domain.User{1: trackedUser(1, "08:00")}}
	msgr := &fakeMessenger{}

	s := newTestSweeper(store, msgr, first)
	s.Sweep(context.Background())

	// Same hour, later minute: the guard must block a second delivery.
	s.now = func() time.Time { return first.Add(40 * time.Minute) }
	s.Sweep(context.Background())

	if len(msgr.texts) != 1 || len(msgr.kbs) != 1 {
		t.Fatalf("got %d budget / %d invite sends, want 1 / 1", len(msgr.texts), len(msgr.kbs))
	}
	if store.users[1].Flow.DayCount != 1 {
		t.Fatalf("day count = %d, want 1", store.users[1].Flow.DayCount)
	}
}

func TestNextDayDeliversAgain(t *testing.T) {
	first := time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)
	store := &fakeStore{users: map[int64]*domain.User{1: trackedUser(1, "08:00")}}
	msgr := &fakeMessenger{}

	s := newTestSweeper(store, msgr, first)
	s.Sweep(context.Background())

	s.now = func() time.Time { return first.AddDate(0, 0, 1) }
	s.Sweep(context.Background())

	if len(msgr.texts) != 2 {
		t.Fatalf("budget sends = %d, want 2", len(msgr.texts))
	}
	if store.users[1].Flow.DayCount != 2 {
		t.Fatalf("day count = %d, want 2", store.users[1].Flow.DayCount)
	}
}

func TestSendFailureSkipsBookkeeping(t *testing.T) {
	at := time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)
	store := &fakeStore{users: map[int64]*domain.User{1: trackedUser(1, "08:00")}}
	msgr := &fakeMessenger{sendErr: errors.New("blocked by user")}

	s := newTestSweeper(store, msgr, at)
	s.Sweep(context.Background())

	if store.saves != 0 {
		t.Fatalf("saves = %d, want 0 after failed delivery", store.saves)
	}
	if store.users[1].Flow.DayCount != 0 || store.users[1].LastMenuSent != nil {
		t.Fatal("bookkeeping must not be stamped when delivery fails")
	}

	// The next sweep retries the user.
	msgr.sendErr = nil
	s.Sweep(context.Background())
	if store.users[1].Flow.DayCount != 1 {
		t.Fatalf("day count = %d, want 1 after retry sweep", store.users[1].Flow.DayCount)
	}
}

func TestInviteFailureSkipsBookkeeping(t *testing.T) {
	at := time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)
	store := &fakeStore{users: map[int64]*domain.User{1: trackedUser(1, "08:00")}}
	msgr := &fakeMessenger{kbErr: errors.New("blocked by user")}

	newTestSweeper(store, msgr, at).Sweep(context.Background())

	if store.saves != 0 || store.users[1].LastMenuSent != nil {
		t.Fatal("bookkeeping must not be stamped when the invite fails")
	}
}

func TestPinFailureDoesNotBlockDelivery(t *testing.T) {
	at := time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)
	store := &fakeStore{users: map[int64]*domain.User{1: trackedUser(1, "08:00")}}
	msgr := &fakeMessenger{pinErr: errors.New("not enough rights")}

	newTestSweeper(store, msgr, at).Sweep(context.Background())

	if len(msgr.kbs) != 1 {
		t.Fatalf("menu invites = %d, want 1 despite pin failure", len(msgr.kbs))
	}
	if store.users[1].Flow.DayCount != 1 {
		t.Fatalf("day count = %d, want 1 despite pin failure", store.users[1].Flow.DayCount)
	}
}

func TestStopCancelsPendingInitialSweep(t *testing.T) {
	at := time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)
	store := &fakeStore{users: map[int64]*domain.User{1: trackedUser(1, "08:00")}}
	msgr := &fakeMessenger{}

	s := New(store, msgr, config.SchedulerConfig{
		SweepInterval: time.Hour,
		InitialDelay:  50 * time.Millisecond,
	})
	s.now = func() time.Time { return at }

	s.Start()
	s.Stop()

	// Give a racing timer callback time to fire if the guard were missing.
	time.Sleep(150 * time.Millisecond)
	if store.reads != 0 {
		t.Fatalf("reads = %d, want 0 after Stop before the initial delay", store.reads)
	}
	if len(msgr.texts) != 0 {
		t.Fatalf("sends = %d, want 0 after Stop", len(msgr.texts))
	}

	// A timer callback that lost the race to Stop must not sweep or
	// start the repeating loop.
	s.initialFire()
	if store.reads != 0 {
		t.Fatalf("reads = %d, want 0 when the callback runs after Stop", store.reads)
	}
}

func TestBulkReadFailureAbortsSweep(t *testing.T) {
	store := &fakeStore{readErr: errors.New("connection refused")}
	msgr := &fakeMessenger{}

	at := time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)
	newTestSweeper(store, msgr, at).Sweep(context.Background())

	if len(msgr.texts) != 0 || len(msgr.kbs) != 0 || len(msgr.pins) != 0 {
		t.Fatal("no messages may be sent when the bulk read fails")
	}
}
