package state

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

type fakeCtx struct {
	tele.Context
	userID int64
	text   string
	cb     *tele.Callback
	store  map[string]any
	sent   []string
}

func newFakeCtx(userID int64, text string) *fakeCtx {
	return &fakeCtx{userID: userID, text: text, store: make(map[string]any)}
}

func (f *fakeCtx) Sender() *tele.User        { return &tele.User{ID: f.userID} }
func (f *fakeCtx) Chat() *tele.Chat          { return &tele.Chat{ID: f.userID} }
func (f *fakeCtx) Update() tele.Update       { return tele.Update{ID: 1} }
func (f *fakeCtx) Text() string              { return f.text }
func (f *fakeCtx) Callback() *tele.Callback  { return f.cb }
func (f *fakeCtx) Get(key string) any        { return f.store[key] }
func (f *fakeCtx) Set(key string, val any)   { f.store[key] = val }

func (f *fakeCtx) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

func (f *fakeCtx) Respond(_ ...*tele.CallbackResponse) error { return nil }

const (
	stepOne   State = "one"
	stepTwo   State = "two"
	stepThree State = "three"
)

func advanceStep() StepHandler {
	return func(tele.Context) (Outcome, error) { return Advance, nil }
}

func threeSteps(outcomes map[State]Outcome) []Step {
	handler := func(st State) StepHandler {
		return func(tele.Context) (Outcome, error) {
			if o, ok := outcomes[st]; ok {
				return o, nil
			}
			return Advance, nil
		}
	}
	return []Step{
		{State: stepOne, OnText: handler(stepOne)},
		{State: stepTwo, OnText: handler(stepTwo)},
		{State: stepThree, OnText: handler(stepThree)},
	}
}

func TestNewSequenceValidation(t *testing.T) {
	if _, err := NewSequence(nil); err == nil {
		t.Error("empty sequence must be rejected")
	}
	if _, err := NewSequence([]Step{{State: stepOne}}); err == nil {
		t.Error("step without handlers must be rejected")
	}
	steps := []Step{
		{State: stepOne, OnText: advanceStep()},
		{State: stepOne, OnText: advanceStep()},
	}
	if _, err := NewSequence(steps); err == nil {
		t.Error("duplicate step must be rejected")
	}
}

func TestMachineWalksSequenceInOrder(t *testing.T) {
	seq, err := NewSequence(threeSteps(nil))
	if err != nil {
		t.Fatal(err)
	}

	finished := false
	mgr := NewMemoryManager()
	m := NewMachine(mgr, seq, func(tele.Context) error {
		finished = true
		return nil
	})

	m.Start(7)
	if got := mgr.GetState(7); got != stepOne {
		t.Fatalf("state after Start = %q, want %q", got, stepOne)
	}
	if !m.InProgress(7) {
		t.Fatal("conversation must be in progress after Start")
	}

	c := newFakeCtx(7, "answer")
	for _, want := range []State{stepTwo, stepThree} {
		if err := m.Handle(c); err != nil {
			t.Fatal(err)
		}
		if got := mgr.GetState(7); got != want {
			t.Fatalf("state = %q, want %q", got, want)
		}
	}

	// Advancing past the last step finishes the conversation.
	if err := m.Handle(c); err != nil {
		t.Fatal(err)
	}
	if !finished {
		t.Fatal("terminal transition did not run")
	}
	if m.InProgress(7) {
		t.Fatal("conversation must end after the last step")
	}
}

func TestStayKeepsCurrentState(t *testing.T) {
	seq, err := NewSequence(threeSteps(map[State]Outcome{stepOne: Stay}))
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewMemoryManager()
	m := NewMachine(mgr, seq, nil)

	m.Start(7)
	if err := m.Handle(newFakeCtx(7, "bad input")); err != nil {
		t.Fatal(err)
	}
	if got := mgr.GetState(7); got != stepOne {
		t.Fatalf("state = %q, want %q after Stay", got, stepOne)
	}
}

func TestGoToJumpsOverSteps(t *testing.T) {
	seq, err := NewSequence(threeSteps(map[State]Outcome{stepOne: GoTo(stepThree)}))
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewMemoryManager()
	m := NewMachine(mgr, seq, nil)

	m.Start(7)
	if err := m.Handle(newFakeCtx(7, "x")); err != nil {
		t.Fatal(err)
	}
	if got := mgr.GetState(7); got != stepThree {
		t.Fatalf("state = %q, want %q after GoTo", got, stepThree)
	}
}

func TestGoToUnknownStepFails(t *testing.T) {
	seq, err := NewSequence(threeSteps(map[State]Outcome{stepOne: GoTo("nowhere")}))
	if err != nil {
		t.Fatal(err)
	}
	m := NewMachine(NewMemoryManager(), seq, nil)
	m.Start(7)
	if err := m.Handle(newFakeCtx(7, "x")); err == nil {
		t.Fatal("transition to an undeclared step must fail")
	}
}

func TestRestartDiscardsPreviousSession(t *testing.T) {
	seq, err := NewSequence(threeSteps(nil))
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewMemoryManager()
	m := NewMachine(mgr, seq, nil)

	m.Start(7)
	_ = m.Handle(newFakeCtx(7, "first answer"))
	mgr.SetTemp(7, "answer", "stale")

	m.Start(7)
	if got := mgr.GetState(7); got != stepOne {
		t.Fatalf("state after restart = %q, want %q", got, stepOne)
	}
	if _, ok := mgr.GetTempString(7, "answer"); ok {
		t.Fatal("restart must discard collected answers")
	}
}

func TestFinishCanStillReadSessionData(t *testing.T) {
	var captured string
	mgr := NewMemoryManager()

	steps := []Step{{
		State: stepOne,
		OnText: func(c tele.Context) (Outcome, error) {
			mgr.SetTemp(c.Sender().ID, "answer", c.Text())
			return Finish, nil
		},
	}}
	seq, err := NewSequence(steps)
	if err != nil {
		t.Fatal(err)
	}
	m := NewMachine(mgr, seq, func(c tele.Context) error {
		captured, _ = mgr.GetTempString(c.Sender().ID, "answer")
		return nil
	})

	m.Start(7)
	if err := m.Handle(newFakeCtx(7, "final")); err != nil {
		t.Fatal(err)
	}
	if captured != "final" {
		t.Fatalf("finish read %q, want %q", captured, "final")
	}
	if mgr.HasState(7) || mgr.InProgress(7) {
		t.Fatal("session must be destroyed after finish")
	}
}

func TestAcceptsCallbackPerStep(t *testing.T) {
	steps := []Step{
		{State: stepOne, OnText: advanceStep()},
		{State: stepTwo, OnCallback: advanceStep()},
	}
	seq, err := NewSequence(steps)
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewMemoryManager()
	m := NewMachine(mgr, seq, nil)

	m.Start(7)
	if m.AcceptsCallback(7) {
		t.Error("text-only step must not accept callbacks")
	}
	mgr.SetState(7, stepTwo)
	if !m.AcceptsCallback(7) {
		t.Error("callback step must accept callbacks")
	}
}

func TestStaleStateIsDropped(t *testing.T) {
	seq, err := NewSequence(threeSteps(nil))
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewMemoryManager()
	m := NewMachine(mgr, seq, nil)

	mgr.SetState(7, "removed_step")
	if err := m.Handle(newFakeCtx(7, "x")); err != nil {
		t.Fatal(err)
	}
	if mgr.HasState(7) {
		t.Fatal("stale state must be cleared")
	}
}
