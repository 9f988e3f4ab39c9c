// Package routes declares the dispatch table: which texts and callbacks
// reach which handler, and in what order.
package routes

import (
	"regexp"

	"github.com/m3rciful/calorico/bot/texts"
	tgcore "github.com/m3rciful/calorico/core/telegram"
	"github.com/m3rciful/calorico/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Rule evaluation order matters: the summary rule must run before the
// free-text fallback, and main-menu labels before anything looser.
var (
	menuPattern    = regexp.MustCompile(`^(לקבלת תפריט יומי מותאם אישית|מה אכלתי היום|בניית ארוחה לפי מה שיש לי בבית|קבלת דוח|תזכורות על שתיית מים)$`)
	summaryPattern = regexp.MustCompile(`^✅ סיימתי להיום$|^סיימתי( להיום)?[.!]?$`)

	reportCallback = `^report\|(daily|weekly|monthly|smart_feedback)$`
	resetCallback  = `^reset\|(confirm|cancel)$`
)

// Handlers carries the endpoints the dispatch table binds to.
type Handlers struct {
	Start           tele.HandlerFunc
	Help            tele.HandlerFunc
	Menu            tele.HandlerFunc
	ResetAsk        tele.HandlerFunc
	MainMenu        tele.HandlerFunc
	Summary         tele.HandlerFunc
	HelpAction      tele.HandlerFunc
	PersonalDetails tele.HandlerFunc
	FreeText        tele.HandlerFunc
	Report          tele.HandlerFunc
	Reset           tele.HandlerFunc
}

// Register fills the registry: commands, ordered text rules, the
// free-text fallback, and callback rules.
func Register(reg *tgcore.Registry, h Handlers) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "התחלת השאלון האישי",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     h.Help,
		Description: "עזרה ורשימת פעולות",
	})
	reg.RegisterCommand("/menu", commands.Command{
		Handler:     h.Menu,
		Description: "קבלת התפריט היומי",
	})
	reg.RegisterCommand("/reset", commands.Command{
		Handler:     h.ResetAsk,
		Description: "איפוס כל הנתונים",
	})

	textRules := []struct {
		name    string
		match   tgcore.Matcher
		handler tele.HandlerFunc
	}{
		{"main_menu", tgcore.Regex(menuPattern), h.MainMenu},
		{"summary", tgcore.Regex(summaryPattern), h.Summary},
		{"help", tgcore.Exact(texts.BtnHelp), h.Help},
		{"help_actions", tgcore.Exact(texts.BtnAskFreeM, texts.BtnAskFreeF, texts.BtnToQuestions), h.HelpAction},
		{"personal_details", tgcore.Exact(texts.BtnYes, texts.BtnNo), h.PersonalDetails},
	}
	for _, r := range textRules {
		if err := reg.RegisterTextRule(r.name, r.match, r.handler); err != nil {
			return err
		}
	}
	reg.SetTextFallback(h.FreeText)

	if err := reg.RegisterCallbackRule("report", reportCallback, h.Report); err != nil {
		return err
	}
	if err := reg.RegisterCallbackRule("reset", resetCallback, h.Reset); err != nil {
		return err
	}
	return nil
}
