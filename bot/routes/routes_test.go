package routes

import (
	"testing"

	tgcore "github.com/m3rciful/calorico/core/telegram"

	tele "gopkg.in/telebot.v4"
)

func nop(tele.Context) error { return nil }

func testRegistry(t *testing.T) *tgcore.Registry {
	t.Helper()
	reg := tgcore.NewRegistry()
	err := Register(reg, Handlers{
		Start:           nop,
		Help:            nop,
		Menu:            nop,
		ResetAsk:        nop,
		MainMenu:        nop,
		Summary:         nop,
		HelpAction:      nop,
		PersonalDetails: nop,
		FreeText:        nop,
		Report:          nop,
		Reset:           nop,
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	return reg
}

func TestTextRuleDispatch(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		text     string
		wantRule string
	}{
		{"לקבלת תפריט יומי מותאם אישית", "main_menu"},
		{"מה אכלתי היום", "main_menu"},
		{"בניית ארוחה לפי מה שיש לי בבית", "main_menu"},
		{"קבלת דוח", "main_menu"},
		{"תזכורות על שתיית מים", "main_menu"},
		{"✅ סיימתי להיום", "summary"},
		{"סיימתי", "summary"},
		{"סיימתי להיום!", "summary"},
		{"עזרה", "help"},
		{"שאל שאלה חופשית", "help_actions"},
		{"שאלי שאלה חופשית", "help_actions"},
		{"מעבר לשאלון אישי", "help_actions"},
		{"כן", "personal_details"},
		{"לא", "personal_details"},
	}
	for _, tc := range tests {
		rule, ok := reg.MatchTextRule(tc.text)
		if !ok {
			t.Errorf("MatchTextRule(%q): no rule matched, want %q", tc.text, tc.wantRule)
			continue
		}
		if rule.Name != tc.wantRule {
			t.Errorf("MatchTextRule(%q) = %q, want %q", tc.text, rule.Name, tc.wantRule)
		}
	}
}

func TestUnmatchedTextFallsThrough(t *testing.T) {
	reg := testRegistry(t)

	for _, text := range []string{
		"מה לאכול אחרי אימון?",
		"סיימתי אתמול",
		"✅ סיימתי להיום ועוד משהו",
		"",
	} {
		if rule, ok := reg.MatchTextRule(text); ok {
			t.Errorf("MatchTextRule(%q) matched rule %q, want fallback", text, rule.Name)
		}
	}
	if reg.TextFallback() == nil {
		t.Fatal("text fallback not installed")
	}
}

func TestRuleOrderIsDeclared(t *testing.T) {
	reg := testRegistry(t)

	want := []string{"main_menu", "summary", "help", "help_actions", "personal_details"}
	got := reg.ListTextRules()
	if len(got) != len(want) {
		t.Fatalf("rule count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rule order = %v, want %v", got, want)
		}
	}
}

func TestCallbackRuleDispatch(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		data     string
		wantRule string
		wantOK   bool
	}{
		{"report|daily", "report", true},
		{"report|weekly", "report", true},
		{"report|monthly", "report", true},
		{"report|smart_feedback", "report", true},
		{"reset|confirm", "reset", true},
		{"reset|cancel", "reset", true},
		{"report|bogus", "", false},
		{"reset|", "", false},
		{"other|daily", "", false},
	}
	for _, tc := range tests {
		rule, ok := reg.MatchCallbackRule(tc.data)
		if ok != tc.wantOK {
			t.Errorf("MatchCallbackRule(%q) ok = %v, want %v", tc.data, ok, tc.wantOK)
			continue
		}
		if ok && rule.Name != tc.wantRule {
			t.Errorf("MatchCallbackRule(%q) = %q, want %q", tc.data, rule.Name, tc.wantRule)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	reg := testRegistry(t)

	for _, name := range []string{"/start", "/help", "/menu", "/reset"} {
		if _, _, ok := reg.LookupCommand(name); !ok {
			t.Errorf("command %s not registered", name)
		}
	}
	if got := len(reg.ListCommands(true)); got != 4 {
		t.Errorf("visible commands = %d, want 4", got)
	}
}
