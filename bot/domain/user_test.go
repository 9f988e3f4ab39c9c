package domain

import (
	"testing"
	"time"
)

func at(t *testing.T, hour, min int) time.Time {
	t.Helper()
	return time.Date(2025, time.March, 10, hour, min, 0, 0, time.Local)
}

func eligibleUser() *User {
	u := New(42)
	u.CompleteSetup()
	u.DailyMenuEnabled = true
	u.PreferredMenuHour = "08:00"
	return u
}

func TestEligibleForDailyMenu(t *testing.T) {
	yesterday := at(t, 8, 5).AddDate(0, 0, -1)
	earlierToday := at(t, 8, 1)

	tests := []struct {
		name   string
		mutate func(*User)
		now    time.Time
		want   bool
	}{
		{
			name:   "matching hour fires",
			mutate: func(u *User) {},
			now:    at(t, 8, 3),
			want:   true,
		},
		{
			name:   "setup not complete never fires",
			mutate: func(u *User) { u.Flow.SetupComplete = false },
			now:    at(t, 8, 3),
			want:   false,
		},
		{
			name:   "daily menu disabled",
			mutate: func(u *User) { u.DailyMenuEnabled = false },
			now:    at(t, 8, 3),
			want:   false,
		},
		{
			name:   "wrong hour",
			mutate: func(u *User) {},
			now:    at(t, 9, 3),
			want:   false,
		},
		{
			name:   "manual sentinel never fires",
			mutate: func(u *User) { u.PreferredMenuHour = ManualRequestSentinel },
			now:    at(t, 8, 3),
			want:   false,
		},
		{
			name:   "already sent today blocks",
			mutate: func(u *User) { u.LastMenuSent = &earlierToday },
			now:    at(t, 8, 30),
			want:   false,
		},
		{
			name:   "sent yesterday allows",
			mutate: func(u *User) { u.LastMenuSent = &yesterday },
			now:    at(t, 8, 3),
			want:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := eligibleUser()
			tc.mutate(u)
			if got := u.EligibleForDailyMenu(tc.now); got != tc.want {
				t.Fatalf("EligibleForDailyMenu() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMarkMenuSentGuardsSecondDelivery(t *testing.T) {
	u := eligibleUser()
	first := at(t, 8, 3)

	if !u.EligibleForDailyMenu(first) {
		t.Fatal("expected user to be eligible before first delivery")
	}
	u.MarkMenuSent(first)

	if u.Flow.DayCount != 1 {
		t.Fatalf("day count = %d, want 1", u.Flow.DayCount)
	}
	if u.Flow.Stage != StageTracking || !u.Flow.SetupComplete {
		t.Fatalf("flow not re-asserted: %+v", u.Flow)
	}
	if !u.MenuSentToday || u.MenuSentDate != first.Format("2006-01-02") {
		t.Fatalf("same-day bookkeeping not stamped: %v %q", u.MenuSentToday, u.MenuSentDate)
	}

	// Later sweep on the same day must be blocked.
	if u.EligibleForDailyMenu(at(t, 8, 55)) {
		t.Fatal("second sweep same day should be blocked")
	}

	// Next day rolls the guard over.
	nextDay := first.AddDate(0, 0, 1)
	if !u.EligibleForDailyMenu(nextDay) {
		t.Fatal("next day should be eligible again")
	}
	u.MarkMenuSent(nextDay)
	if u.Flow.DayCount != 2 {
		t.Fatalf("day count = %d, want 2", u.Flow.DayCount)
	}
}

func TestCompleteSetupResetsDayCount(t *testing.T) {
	u := New(7)
	u.Flow.DayCount = 9
	u.CompleteSetup()
	if !u.Flow.SetupComplete || u.Flow.Stage != StageTracking || u.Flow.DayCount != 0 {
		t.Fatalf("unexpected flow after setup: %+v", u.Flow)
	}
}

func TestHourSlot(t *testing.T) {
	if got := HourSlot(at(t, 8, 59)); got != "08:00" {
		t.Fatalf("HourSlot = %q, want 08:00", got)
	}
	if got := HourSlot(at(t, 23, 0)); got != "23:00" {
		t.Fatalf("HourSlot = %q, want 23:00", got)
	}
}
