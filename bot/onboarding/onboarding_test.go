package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/m3rciful/calorico/bot/domain"
	"github.com/m3rciful/calorico/bot/questionnaire"
	"github.com/m3rciful/calorico/bot/services"
	"github.com/m3rciful/calorico/bot/store"
	"github.com/m3rciful/calorico/bot/texts"
	"github.com/m3rciful/calorico/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

type memStore struct {
	users map[int64]*domain.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*domain.User)}
}

func (s *memStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (s *memStore) SaveUser(ctx context.Context, u *domain.User) error {
	s.users[u.ID] = u
	return nil
}

type fakeCtx struct {
	tele.Context
	userID int64
	text   string
	cb     *tele.Callback
	store  map[string]any
	sent   []string
}

func (f *fakeCtx) Sender() *tele.User       { return &tele.User{ID: f.userID} }
func (f *fakeCtx) Chat() *tele.Chat         { return &tele.Chat{ID: f.userID} }
func (f *fakeCtx) Update() tele.Update      { return tele.Update{ID: 1} }
func (f *fakeCtx) Text() string             { return f.text }
func (f *fakeCtx) Callback() *tele.Callback { return f.cb }
func (f *fakeCtx) Get(key string) any       { return f.store[key] }
func (f *fakeCtx) Set(key string, val any)  { f.store[key] = val }

func (f *fakeCtx) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

func (f *fakeCtx) Respond(_ ...*tele.CallbackResponse) error { return nil }

const testUser int64 = 42

func answer(t *testing.T, m *state.Machine, text string) *fakeCtx {
	t.Helper()
	c := &fakeCtx{userID: testUser, text: text, store: make(map[string]any)}
	if err := m.Handle(c); err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
	return c
}

func press(t *testing.T, m *state.Machine, unique, data string) {
	t.Helper()
	c := &fakeCtx{
		userID: testUser,
		cb:     &tele.Callback{Unique: unique, Data: data},
		store:  make(map[string]any),
	}
	if err := m.Handle(c); err != nil {
		t.Fatalf("Handle(callback %s|%s): %v", unique, data, err)
	}
}

func startOnboarding(t *testing.T) (*Onboarding, *memStore) {
	t.Helper()
	users := newMemStore()
	o, err := New(state.NewMemoryManager(), users, services.BasicNutrition{})
	if err != nil {
		t.Fatal(err)
	}
	c := &fakeCtx{userID: testUser, text: "/start", store: make(map[string]any)}
	if err := o.Start(c); err != nil {
		t.Fatal(err)
	}
	return o, users
}

func TestQuestionnaireShortPath(t *testing.T) {
	o, users := startOnboarding(t)
	m := o.Machine()

	answer(t, m, "דנה")
	answer(t, m, texts.OptGenderFemale)
	answer(t, m, "30")
	answer(t, m, "165")
	answer(t, m, "60")
	answer(t, m, texts.OptGoalLose)
	answer(t, m, "25")
	answer(t, m, "22")
	// No regular training skips the whole activity block.
	answer(t, m, texts.BtnNo)
	// No supplements skips the supplement types question.
	answer(t, m, texts.BtnNo)
	answer(t, m, "אין")
	answer(t, m, "צמחוני")
	answer(t, m, texts.OptNoAllergies)
	answer(t, m, texts.BtnYes)
	answer(t, m, "08:00")

	if m.InProgress(testUser) {
		t.Fatal("conversation must end after the schedule answer")
	}

	u := users.users[testUser]
	if u == nil {
		t.Fatal("user not persisted")
	}
	if !u.Flow.SetupComplete || u.Flow.Stage != domain.StageTracking || u.Flow.DayCount != 0 {
		t.Fatalf("terminal flow = %+v", u.Flow)
	}
	if u.PreferredMenuHour != "08:00" || !u.DailyMenuEnabled {
		t.Fatalf("schedule not applied: hour=%q enabled=%v", u.PreferredMenuHour, u.DailyMenuEnabled)
	}
	if u.CalorieBudget != 1600 {
		t.Fatalf("budget = %d, want 1600 for weight loss", u.CalorieBudget)
	}
	if u.Profile[questionnaire.KeyName] != "דנה" {
		t.Fatalf("profile name = %q", u.Profile[questionnaire.KeyName])
	}
	if _, ok := u.Profile[questionnaire.KeyActivityType]; ok {
		t.Fatal("skipped activity answers must not be persisted")
	}
}

func TestQuestionnaireMixedPathWithManualSchedule(t *testing.T) {
	o, users := startOnboarding(t)
	m := o.Machine()

	answer(t, m, "יואב")
	answer(t, m, texts.OptGenderMale)
	answer(t, m, "28")
	answer(t, m, "180")
	answer(t, m, "78")
	answer(t, m, texts.OptGoalGain)
	answer(t, m, "18")
	answer(t, m, "15")
	answer(t, m, texts.BtnYes)
	press(t, m, "activity", texts.OptActivityMixed)
	press(t, m, "activity", texts.OptSelectionDone)
	answer(t, m, texts.OptActivityMixed)
	answer(t, m, "4")
	answer(t, m, "60")
	answer(t, m, "ערב")
	answer(t, m, "סיבולת")
	answer(t, m, "היפרטרופיה")
	answer(t, m, texts.BtnYes)
	answer(t, m, "חלבון")
	answer(t, m, "אין")
	// Mixed training selected, so the mixed block is asked.
	answer(t, m, "ריצה ויוגה")
	answer(t, m, "2")
	answer(t, m, "30")
	answer(t, m, texts.BtnYes)
	answer(t, m, "ללא")
	press(t, m, "allergy", texts.OptSelectionDone)
	answer(t, m, texts.BtnNo)
	answer(t, m, domain.ManualRequestSentinel)

	if m.InProgress(testUser) {
		t.Fatal("conversation must end after the schedule answer")
	}

	u := users.users[testUser]
	if u.PreferredMenuHour != domain.ManualRequestSentinel {
		t.Fatalf("preferred hour = %q, want the manual sentinel", u.PreferredMenuHour)
	}
	if !u.DailyMenuEnabled {
		t.Fatal("daily menu stays enabled; the sentinel is excluded at sweep time")
	}
	if u.EligibleForDailyMenu(time.Date(2025, time.March, 10, 8, 3, 0, 0, time.Local)) {
		t.Fatal("sentinel user must never be eligible for the sweep")
	}
	if u.CalorieBudget != 2400 {
		t.Fatalf("budget = %d, want 2400 for muscle gain", u.CalorieBudget)
	}
	if u.Profile[questionnaire.KeyAllergies] != texts.OptNoAllergies {
		t.Fatalf("empty allergy selection should default to %q", texts.OptNoAllergies)
	}
	if u.Profile[questionnaire.KeyMixedActivities] != "ריצה ויוגה" {
		t.Fatalf("mixed block answer missing: %q", u.Profile[questionnaire.KeyMixedActivities])
	}
}

func TestRepeatedSelectionIsStoredOnce(t *testing.T) {
	o, _ := startOnboarding(t)
	m := o.Machine()

	answer(t, m, "דנה")
	answer(t, m, texts.OptGenderFemale)
	answer(t, m, "30")
	answer(t, m, "165")
	answer(t, m, "60")
	answer(t, m, texts.OptGoalLose)
	answer(t, m, "25")
	answer(t, m, "22")
	answer(t, m, texts.BtnYes)

	press(t, m, "activity", texts.OptActivityCardio)
	press(t, m, "activity", texts.OptActivityCardio)
	press(t, m, "activity", texts.OptActivityStrength)
	press(t, m, "activity", texts.OptActivityCardio)
	press(t, m, "activity", texts.OptSelectionDone)

	sessions := o.steps.Sessions()
	got, _ := sessions.GetTempString(testUser, questionnaire.KeyActivityTypes)
	want := texts.OptActivityCardio + "," + texts.OptActivityStrength
	if got != want {
		t.Fatalf("activity types = %q, want %q", got, want)
	}
}

func TestInvalidAnswersKeepTheStep(t *testing.T) {
	o, _ := startOnboarding(t)
	m := o.Machine()

	answer(t, m, "דנה")
	// Gender must come from the keyboard.
	answer(t, m, "בננה")
	c := answer(t, m, texts.OptGenderFemale)
	if len(c.sent) == 0 {
		t.Fatal("accepting the retried answer must prompt the next question")
	}

	// Age must be a positive number.
	answer(t, m, "abc")
	answer(t, m, "-5")
	answer(t, m, "30")
	answer(t, m, "165")

	if !m.InProgress(testUser) {
		t.Fatal("conversation must still be active mid-questionnaire")
	}
}

func TestRestartKeepsCompletedRecord(t *testing.T) {
	o, users := startOnboarding(t)
	m := o.Machine()

	answer(t, m, "דנה")
	answer(t, m, texts.OptGenderFemale)
	answer(t, m, "30")
	answer(t, m, "165")
	answer(t, m, "60")
	answer(t, m, texts.OptGoalLose)
	answer(t, m, "25")
	answer(t, m, "22")
	answer(t, m, texts.BtnNo)
	answer(t, m, texts.BtnNo)
	answer(t, m, "אין")
	answer(t, m, "צמחוני")
	answer(t, m, texts.OptNoAllergies)
	answer(t, m, texts.BtnYes)
	answer(t, m, "08:00")

	// Re-entering the questionnaire must not touch the persisted record
	// until the new run completes.
	c := &fakeCtx{userID: testUser, text: "/start", store: make(map[string]any)}
	if err := o.Start(c); err != nil {
		t.Fatal(err)
	}

	u := users.users[testUser]
	if !u.Flow.SetupComplete || u.Flow.Stage != domain.StageTracking {
		t.Fatalf("restart must not alter the completed record: %+v", u.Flow)
	}
	if u.PreferredMenuHour != "08:00" {
		t.Fatalf("restart must not alter the persisted schedule: %q", u.PreferredMenuHour)
	}
}

func TestRestartDiscardsAnswers(t *testing.T) {
	o, _ := startOnboarding(t)
	m := o.Machine()

	answer(t, m, "דנה")
	answer(t, m, texts.OptGenderFemale)

	c := &fakeCtx{userID: testUser, text: "/start", store: make(map[string]any)}
	if err := o.Start(c); err != nil {
		t.Fatal(err)
	}

	sessions := o.steps.Sessions()
	if _, ok := sessions.GetTempString(testUser, questionnaire.KeyName); ok {
		t.Fatal("restart must drop previously collected answers")
	}
	if !m.InProgress(testUser) {
		t.Fatal("restart must re-enter the first step")
	}
}
