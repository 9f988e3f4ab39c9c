package app

import (
	"context"
	"errors"

	"github.com/m3rciful/calorico/bot/domain"
	"github.com/m3rciful/calorico/bot/onboarding"
	"github.com/m3rciful/calorico/bot/questionnaire"
	"github.com/m3rciful/calorico/bot/services"
	"github.com/m3rciful/calorico/bot/store"
	"github.com/m3rciful/calorico/bot/texts"
	"github.com/m3rciful/calorico/core/logger"
	"github.com/m3rciful/calorico/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/calorico/core/telegram/helpers"
	"github.com/m3rciful/calorico/core/telegram/keyboard"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// UserStore is the persistence surface the handlers use.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SaveUser(ctx context.Context, u *domain.User) error
}

// Handlers binds the tracking-stage endpoints to their collaborators.
type Handlers struct {
	users    UserStore
	onb      *onboarding.Onboarding
	menus    services.Menus
	reports  services.Reports
	freeText services.FreeText
}

// NewHandlers wires the tracking-stage handler set.
func NewHandlers(users UserStore, onb *onboarding.Onboarding, menus services.Menus, reports services.Reports, freeText services.FreeText) *Handlers {
	return &Handlers{
		users:    users,
		onb:      onb,
		menus:    menus,
		reports:  reports,
		freeText: freeText,
	}
}

// loadUser resolves the sender's record. A missing or unfinished record
// gets the not-registered nudge and a nil user.
func (h *Handlers) loadUser(c tele.Context) (*domain.User, error) {
	ctx := tghelpers.BuildContext(c)
	u, err := h.users.GetUser(ctx, c.Sender().ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, tghelpers.SendText(c, texts.NotRegistered)
	}
	if err != nil {
		return nil, err
	}
	if !u.Flow.SetupComplete {
		return nil, tghelpers.SendText(c, texts.NotRegistered)
	}
	return u, nil
}

// Start enters the questionnaire, restarting any active conversation.
func (h *Handlers) Start(c tele.Context) error {
	return h.onb.Start(c)
}

// Help shows the help text with the follow-up actions. It also serves as
// the global fallback inside an active conversation.
func (h *Handlers) Help(c tele.Context) error {
	return tghelpers.SendKB(c, texts.HelpText, texts.HelpKeyboard())
}

// Menu serves /menu and the daily-menu button.
func (h *Handlers) Menu(c tele.Context) error {
	u, err := h.loadUser(c)
	if u == nil {
		return err
	}
	menu, err := h.menus.DailyMenu(tghelpers.BuildContext(c), u)
	if err != nil {
		return err
	}
	return tghelpers.SendKB(c, menu, texts.MainKeyboard())
}

// MainMenu dispatches the persistent reply-keyboard buttons.
func (h *Handlers) MainMenu(c tele.Context) error {
	switch c.Text() {
	case texts.BtnDailyMenu:
		return h.Menu(c)
	case texts.BtnEatenToday:
		return tghelpers.SendText(c, texts.EatenPrompt)
	case texts.BtnBuildMeal:
		return tghelpers.SendText(c, texts.BuildMealPrompt)
	case texts.BtnReport:
		return tghelpers.SendKB(c, texts.ReportChoose, texts.ReportKeyboard())
	case texts.BtnWater:
		return h.toggleWater(c)
	}
	return tghelpers.SendText(c, texts.UnknownAction)
}

func (h *Handlers) toggleWater(c tele.Context) error {
	u, err := h.loadUser(c)
	if u == nil {
		return err
	}
	ctx := tghelpers.BuildContext(c)

	enabled := u.Profile[questionnaire.KeyWaterReminder] == texts.BtnYes
	if enabled {
		u.Profile[questionnaire.KeyWaterReminder] = texts.BtnNo
	} else {
		u.Profile[questionnaire.KeyWaterReminder] = texts.BtnYes
	}
	if err := h.users.SaveUser(ctx, u); err != nil {
		return err
	}
	if enabled {
		return tghelpers.SendText(c, texts.WaterOff)
	}
	return tghelpers.SendText(c, texts.WaterOn)
}

// Summary closes the day after the done button.
func (h *Handlers) Summary(c tele.Context) error {
	u, err := h.loadUser(c)
	if u == nil {
		return err
	}
	logger.Info(tghelpers.BuildContext(c), "tg", "day.summary",
		slog.Int64("user_id", u.ID),
		slog.Int("day_count", u.Flow.DayCount),
	)
	return tghelpers.SendKB(c, texts.SummaryClosing, texts.MainKeyboard())
}

// HelpAction dispatches the help keyboard buttons.
func (h *Handlers) HelpAction(c tele.Context) error {
	switch c.Text() {
	case texts.BtnAskFreeM, texts.BtnAskFreeF:
		return tghelpers.SendText(c, texts.FreeTextPrompt)
	case texts.BtnToQuestions:
		return h.onb.Start(c)
	}
	return tghelpers.SendText(c, texts.UnknownAction)
}

// PersonalDetails handles a bare yes/no outside any conversation: yes
// re-enters the questionnaire, no keeps everything as is.
func (h *Handlers) PersonalDetails(c tele.Context) error {
	if c.Text() == texts.BtnYes {
		return h.onb.Start(c)
	}
	return tghelpers.SendKB(c, texts.StayAsIs, texts.MainKeyboard())
}

// FreeText is the catch-all for unrouted messages.
func (h *Handlers) FreeText(c tele.Context) error {
	u, err := h.loadUser(c)
	if u == nil {
		return err
	}
	answer, err := h.freeText.Answer(tghelpers.BuildContext(c), u, c.Text())
	if err != nil {
		return err
	}
	return tghelpers.SendText(c, answer)
}

// ResetAsk serves /reset with an inline confirmation.
func (h *Handlers) ResetAsk(c tele.Context) error {
	return tghelpers.SendKB(c, texts.ResetQuestion, texts.ResetKeyboard())
}

// Reset handles the reset confirmation callback.
func (h *Handlers) Reset(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	switch callbacks.CallbackPayload(c) {
	case "confirm":
		fresh := domain.New(c.Sender().ID)
		if err := h.users.SaveUser(ctx, fresh); err != nil {
			return err
		}
		h.onb.Machine().Abort(c.Sender().ID)
		logger.Info(ctx, "tg", "user.reset", slog.Int64("user_id", c.Sender().ID))
		return tghelpers.SendKB(c, texts.ResetDone, keyboard.RemoveKeyboard())
	case "cancel":
		return tghelpers.SendText(c, texts.ResetCancelled)
	}
	return tghelpers.SendText(c, texts.UnknownAction)
}

// Report handles the report type callback.
func (h *Handlers) Report(c tele.Context) error {
	u, err := h.loadUser(c)
	if u == nil {
		return err
	}
	kind := callbacks.CallbackPayload(c)
	report, err := h.reports.Report(tghelpers.BuildContext(c), u, kind)
	if err != nil {
		return tghelpers.SendText(c, texts.UnknownAction)
	}
	// Replace the report chooser in place instead of stacking messages.
	return tghelpers.EditOrSendMD(c, report)
}
