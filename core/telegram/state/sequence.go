package state

import (
	"fmt"

	"github.com/m3rciful/calorico/core/logger"
	tghelpers "github.com/m3rciful/calorico/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

type outcomeKind int

const (
	outcomeStay outcomeKind = iota
	outcomeAdvance
	outcomeGoTo
	outcomeFinish
)

// Outcome tells the Machine what to do after a step handler ran.
type Outcome struct {
	kind outcomeKind
	to   State
}

var (
	// Stay keeps the current state; the step asks again on invalid input.
	Stay = Outcome{kind: outcomeStay}
	// Advance moves to the next step in declaration order.
	Advance = Outcome{kind: outcomeAdvance}
	// Finish ends the conversation immediately.
	Finish = Outcome{kind: outcomeFinish}
)

// GoTo jumps to a specific step, skipping the declared order.
func GoTo(st State) Outcome {
	return Outcome{kind: outcomeGoTo, to: st}
}

func (o Outcome) String() string {
	switch o.kind {
	case outcomeAdvance:
		return "advance"
	case outcomeGoTo:
		return "goto:" + string(o.to)
	case outcomeFinish:
		return "finish"
	default:
		return "stay"
	}
}

// StepHandler consumes one update for its step and reports what happens next.
type StepHandler func(c tele.Context) (Outcome, error)

// Step declares a single conversation state. A nil OnText or OnCallback means
// the step ignores that kind of update.
type Step struct {
	State      State
	OnText     StepHandler
	OnCallback StepHandler
}

// Sequence is an immutable, ordered conversation definition.
type Sequence struct {
	steps []Step
	index map[State]int
}

// NewSequence validates the step table and returns a Sequence.
func NewSequence(steps []Step) (*Sequence, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("state: empty sequence")
	}
	index := make(map[State]int, len(steps))
	for i, step := range steps {
		if step.State == "" || step.State == StateIdle {
			return nil, fmt.Errorf("state: invalid step state at position %d", i)
		}
		if step.OnText == nil && step.OnCallback == nil {
			return nil, fmt.Errorf("state: step %q has no handlers", step.State)
		}
		if _, dup := index[step.State]; dup {
			return nil, fmt.Errorf("state: duplicate step %q", step.State)
		}
		index[step.State] = i
	}
	return &Sequence{steps: steps, index: index}, nil
}

// First returns the initial step state.
func (s *Sequence) First() State {
	return s.steps[0].State
}

// Lookup returns the step declared for the given state.
func (s *Sequence) Lookup(st State) (Step, bool) {
	i, ok := s.index[st]
	if !ok {
		return Step{}, false
	}
	return s.steps[i], true
}

// Next returns the state following st in declaration order.
func (s *Sequence) Next(st State) (State, bool) {
	i, ok := s.index[st]
	if !ok || i+1 >= len(s.steps) {
		return StateIdle, false
	}
	return s.steps[i+1].State, true
}

// Contains reports whether st is part of the sequence.
func (s *Sequence) Contains(st State) bool {
	_, ok := s.index[st]
	return ok
}

// Len returns the number of declared steps.
func (s *Sequence) Len() int {
	return len(s.steps)
}

// FinishFunc runs once when the conversation reaches its terminal transition.
type FinishFunc func(c tele.Context) error

// Machine binds a Sequence to a session Manager and drives conversations.
type Machine struct {
	mgr      Manager
	seq      *Sequence
	onFinish FinishFunc
}

// NewMachine constructs a Machine. onFinish may be nil.
func NewMachine(mgr Manager, seq *Sequence, onFinish FinishFunc) *Machine {
	return &Machine{mgr: mgr, seq: seq, onFinish: onFinish}
}

// Start resets the user session and enters the first step. Re-entry while a
// conversation is active discards the previous session.
func (m *Machine) Start(userID int64) {
	m.mgr.Clear(userID)
	m.mgr.SetState(userID, m.seq.First())
}

// Abort drops the user session without running the terminal transition.
func (m *Machine) Abort(userID int64) {
	m.mgr.Clear(userID)
}

// InProgress reports whether the user has an active conversation.
func (m *Machine) InProgress(userID int64) bool {
	return m.mgr.InProgress(userID) && m.seq.Contains(m.mgr.GetState(userID))
}

// AcceptsCallback reports whether the user's current step consumes callbacks.
func (m *Machine) AcceptsCallback(userID int64) bool {
	step, ok := m.seq.Lookup(m.mgr.GetState(userID))
	return ok && step.OnCallback != nil
}

// Handle routes one update to the handler of the user's current step and
// applies the resulting transition.
func (m *Machine) Handle(c tele.Context) error {
	userID := c.Sender().ID
	current := m.mgr.GetState(userID)
	ctx := tghelpers.BuildContext(c)

	step, ok := m.seq.Lookup(current)
	if !ok {
		// Stale state from a previous sequence revision; drop it.
		m.mgr.Clear(userID)
		logger.Warn(ctx, "tg", "fsm.stale_state",
			slog.Int64("user_id", userID),
			slog.String("state", string(current)),
		)
		return nil
	}

	handler := step.OnText
	if c.Callback() != nil {
		handler = step.OnCallback
	}
	if handler == nil {
		logger.Debug(ctx, "tg", "fsm.ignored",
			slog.Int64("user_id", userID),
			slog.String("state", string(current)),
		)
		return nil
	}

	outcome, err := handler(c)
	if err != nil {
		return err
	}

	logger.Debug(ctx, "tg", "fsm.step",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
		slog.String("outcome", outcome.String()),
	)

	switch outcome.kind {
	case outcomeStay:
		return nil
	case outcomeAdvance:
		next, ok := m.seq.Next(current)
		if !ok {
			return m.finish(c, userID)
		}
		m.mgr.SetState(userID, next)
		return nil
	case outcomeGoTo:
		if !m.seq.Contains(outcome.to) {
			return fmt.Errorf("state: transition to unknown step %q from %q", outcome.to, current)
		}
		m.mgr.SetState(userID, outcome.to)
		return nil
	case outcomeFinish:
		return m.finish(c, userID)
	}
	return nil
}

func (m *Machine) finish(c tele.Context, userID int64) error {
	m.mgr.ClearState(userID)
	defer m.mgr.Clear(userID)
	if m.onFinish != nil {
		return m.onFinish(c)
	}
	return nil
}
