package router

import (
	"testing"

	tg "github.com/m3rciful/calorico/core/telegram"
	"github.com/m3rciful/calorico/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// fakeFSM is a conversation machine stub with scripted session flags.
type fakeFSM struct {
	active    bool
	acceptsCB bool
	handled   int
}

func (f *fakeFSM) InProgress(int64) bool      { return f.active }
func (f *fakeFSM) AcceptsCallback(int64) bool { return f.acceptsCB }
func (f *fakeFSM) Handle(tele.Context) error  { f.handled++; return nil }

type fakeCtx struct {
	tele.Context
	userID int64
	text   string
	cb     *tele.Callback
	store  map[string]any
}

func (f *fakeCtx) Sender() *tele.User       { return &tele.User{ID: f.userID} }
func (f *fakeCtx) Chat() *tele.Chat         { return &tele.Chat{ID: f.userID} }
func (f *fakeCtx) Update() tele.Update      { return tele.Update{ID: 1} }
func (f *fakeCtx) Text() string             { return f.text }
func (f *fakeCtx) Callback() *tele.Callback { return f.cb }
func (f *fakeCtx) Get(key string) any       { return f.store[key] }
func (f *fakeCtx) Set(key string, val any)  { f.store[key] = val }

func (f *fakeCtx) Send(any, ...any) error                  { return nil }
func (f *fakeCtx) Respond(...*tele.CallbackResponse) error { return nil }

func textCtx(text string) *fakeCtx {
	return &fakeCtx{userID: 7, text: text, store: make(map[string]any)}
}

func callbackCtx(unique, data string) *fakeCtx {
	return &fakeCtx{
		userID: 7,
		cb:     &tele.Callback{Unique: unique, Data: data},
		store:  make(map[string]any),
	}
}

// mark returns a handler that flips the given flag when dispatched.
func mark(called *bool) tele.HandlerFunc {
	return func(tele.Context) error {
		*called = true
		return nil
	}
}

// onTextHandler extracts the tele.OnText handler from the built routes.
func onTextHandler(t *testing.T, fsm FSM, reg *tg.Registry) tele.HandlerFunc {
	t.Helper()
	for _, r := range TextRoutes(fsm, reg, TextOptions{}) {
		if r.Endpoint == tele.OnText {
			return r.Handler
		}
	}
	t.Fatal("no OnText route built")
	return nil
}

func TestActiveConversationPreemptsTextRules(t *testing.T) {
	fsm := &fakeFSM{active: true}
	reg := tg.NewRegistry()
	ruleCalled := false
	if err := reg.RegisterTextRule("help", tg.Exact("עזרה"), mark(&ruleCalled)); err != nil {
		t.Fatal(err)
	}

	handler := onTextHandler(t, fsm, reg)
	if err := handler(textCtx("עזרה")); err != nil {
		t.Fatal(err)
	}
	if fsm.handled != 1 {
		t.Fatalf("fsm.handled = %d, want 1", fsm.handled)
	}
	if ruleCalled {
		t.Fatal("a matching rule must not fire while a conversation is active")
	}
}

func TestInactiveConversationDispatchesRules(t *testing.T) {
	fsm := &fakeFSM{active: false}
	reg := tg.NewRegistry()
	ruleCalled := false
	if err := reg.RegisterTextRule("help", tg.Exact("עזרה"), mark(&ruleCalled)); err != nil {
		t.Fatal(err)
	}

	handler := onTextHandler(t, fsm, reg)
	if err := handler(textCtx("עזרה")); err != nil {
		t.Fatal(err)
	}
	if !ruleCalled {
		t.Fatal("rule must fire when no conversation is active")
	}
	if fsm.handled != 0 {
		t.Fatalf("fsm.handled = %d, want 0", fsm.handled)
	}
}

func TestUnmatchedTextReachesFallback(t *testing.T) {
	fsm := &fakeFSM{}
	reg := tg.NewRegistry()
	ruleCalled := false
	fallbackCalled := false
	if err := reg.RegisterTextRule("help", tg.Exact("עזרה"), mark(&ruleCalled)); err != nil {
		t.Fatal(err)
	}
	reg.SetTextFallback(mark(&fallbackCalled))

	handler := onTextHandler(t, fsm, reg)
	if err := handler(textCtx("מה התפריט שלי?")); err != nil {
		t.Fatal(err)
	}
	if ruleCalled {
		t.Fatal("non-matching text must not hit the rule")
	}
	if !fallbackCalled {
		t.Fatal("unmatched text must reach the catch-all fallback")
	}
}

func TestBareCommandWordIsPlainText(t *testing.T) {
	fsm := &fakeFSM{}
	reg := tg.NewRegistry()
	cmdCalled := false
	fallbackCalled := false
	reg.RegisterCommand("/start", commands.Command{
		Handler:     mark(&cmdCalled),
		Description: "התחלה",
	})
	reg.SetTextFallback(mark(&fallbackCalled))

	handler := onTextHandler(t, fsm, reg)
	if err := handler(textCtx("start")); err != nil {
		t.Fatal(err)
	}
	if cmdCalled {
		t.Fatal(`bare "start" must not dispatch the /start handler`)
	}
	if !fallbackCalled {
		t.Fatal(`bare "start" must fall through to the catch-all`)
	}

	fallbackCalled = false
	if err := handler(textCtx("/start")); err != nil {
		t.Fatal(err)
	}
	if !cmdCalled {
		t.Fatal("/start typed as text must dispatch the command handler")
	}
	if fallbackCalled {
		t.Fatal("/start must not reach the catch-all")
	}
}

func TestCallbackDuringTextOnlyStepDispatchesRules(t *testing.T) {
	fsm := &fakeFSM{active: true, acceptsCB: false}
	reg := tg.NewRegistry()
	ruleCalled := false
	if err := reg.RegisterCallbackRule("report", `^report\|(daily|weekly)$`, mark(&ruleCalled)); err != nil {
		t.Fatal(err)
	}

	route := CallbackRoute(fsm, reg, CallbackOptions{})
	if err := route.Handler(callbackCtx("report", "daily")); err != nil {
		t.Fatal(err)
	}
	if fsm.handled != 0 {
		t.Fatal("a text-only step must not consume callbacks")
	}
	if !ruleCalled {
		t.Fatal("callback must fall through to the matching rule")
	}
}

func TestCallbackAcceptingStepPreempts(t *testing.T) {
	fsm := &fakeFSM{active: true, acceptsCB: true}
	reg := tg.NewRegistry()
	ruleCalled := false
	if err := reg.RegisterCallbackRule("report", `^report\|(daily|weekly)$`, mark(&ruleCalled)); err != nil {
		t.Fatal(err)
	}

	route := CallbackRoute(fsm, reg, CallbackOptions{})
	if err := route.Handler(callbackCtx("report", "daily")); err != nil {
		t.Fatal(err)
	}
	if fsm.handled != 1 {
		t.Fatalf("fsm.handled = %d, want 1", fsm.handled)
	}
	if ruleCalled {
		t.Fatal("the conversation must pre-empt callback rules")
	}
}

func TestUnknownCallbackReachesNotFound(t *testing.T) {
	fsm := &fakeFSM{}
	reg := tg.NewRegistry()
	notFoundCalled := false
	if err := reg.RegisterCallbackRule("report", `^report\|(daily|weekly)$`, func(tele.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	reg.SetCallbackNotFound(mark(&notFoundCalled))

	route := CallbackRoute(fsm, reg, CallbackOptions{})
	if err := route.Handler(callbackCtx("report", "hourly")); err != nil {
		t.Fatal(err)
	}
	if !notFoundCalled {
		t.Fatal("unmatched callback data must reach the not-found fallback")
	}
}
