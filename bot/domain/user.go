package domain

import (
	"fmt"
	"time"
)

// ManualRequestSentinel is the schedule answer of users who prefer to ask
// for their menu themselves. It is stored in PreferredMenuHour verbatim and
// excludes the user from the daily sweep.
const ManualRequestSentinel = "מעדיף לבקש לבד"

// Flow stages.
const (
	StageOnboarding = "onboarding"
	StageTracking   = "tracking"
)

// Flow tracks where a user is in the product lifecycle.
type Flow struct {
	Stage         string
	SetupComplete bool
	DayCount      int
}

// User is the persisted per-user record. Free-form questionnaire answers
// live in Profile and are never interpreted here.
type User struct {
	ID                int64
	Flow              Flow
	DailyMenuEnabled  bool
	PreferredMenuHour string
	LastMenuSent      *time.Time
	CalorieBudget     int
	MenuSentToday     bool
	MenuSentDate      string
	Profile           map[string]string
}

// New returns a fresh record in the onboarding stage.
func New(id int64) *User {
	return &User{
		ID:      id,
		Flow:    Flow{Stage: StageOnboarding},
		Profile: make(map[string]string),
	}
}

// HourSlot truncates an instant to its "HH:00" wall-clock slot label.
func HourSlot(now time.Time) string {
	return fmt.Sprintf("%02d:00", now.Hour())
}

// EligibleForDailyMenu evaluates the sweep cohort predicate against the
// given instant. All conditions must hold:
// setup complete, daily menu enabled, preferred hour equals the current
// "HH:00" slot, hour is not the manual-request sentinel, and the last
// delivery (if any) happened strictly before today.
func (u *User) EligibleForDailyMenu(now time.Time) bool {
	if !u.Flow.SetupComplete {
		return false
	}
	if !u.DailyMenuEnabled {
		return false
	}
	if u.PreferredMenuHour == ManualRequestSentinel {
		return false
	}
	if u.PreferredMenuHour != HourSlot(now) {
		return false
	}
	if u.LastMenuSent != nil {
		y, m, d := now.Date()
		startOfToday := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		if !u.LastMenuSent.In(now.Location()).Before(startOfToday) {
			return false
		}
	}
	return true
}

// CompleteSetup applies the questionnaire terminal transition: the user
// enters tracking with a zeroed day counter.
func (u *User) CompleteSetup() {
	u.Flow = Flow{Stage: StageTracking, SetupComplete: true, DayCount: 0}
}

// MarkMenuSent records one successful daily delivery: increments the day
// counter, re-asserts the tracking flow, and stamps the idempotency guard
// so the user cannot fire again until the date rolls over.
func (u *User) MarkMenuSent(now time.Time) {
	u.Flow = Flow{
		Stage:         StageTracking,
		SetupComplete: true,
		DayCount:      u.Flow.DayCount + 1,
	}
	sent := now
	u.LastMenuSent = &sent
	u.MenuSentToday = true
	u.MenuSentDate = now.Format("2006-01-02")
}
