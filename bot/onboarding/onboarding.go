// Package onboarding assembles the questionnaire into a conversation
// machine and owns the terminal transition into tracking.
package onboarding

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/calorico/bot/domain"
	"github.com/m3rciful/calorico/bot/questionnaire"
	"github.com/m3rciful/calorico/bot/services"
	"github.com/m3rciful/calorico/bot/store"
	"github.com/m3rciful/calorico/bot/texts"
	"github.com/m3rciful/calorico/core/logger"
	"github.com/m3rciful/calorico/core/telegram/format"
	tghelpers "github.com/m3rciful/calorico/core/telegram/helpers"
	"github.com/m3rciful/calorico/core/telegram/keyboard"
	"github.com/m3rciful/calorico/core/telegram/state"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Store is the user persistence the onboarding flow needs.
type Store interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SaveUser(ctx context.Context, u *domain.User) error
}

// Onboarding owns the questionnaire conversation from /start to the
// terminal transition into tracking.
type Onboarding struct {
	steps     *questionnaire.Steps
	machine   *state.Machine
	users     Store
	nutrition services.Nutrition
}

// profileKeys lists every answer copied into the persisted profile.
var profileKeys = []string{
	questionnaire.KeyName,
	questionnaire.KeyGender,
	questionnaire.KeyAge,
	questionnaire.KeyHeight,
	questionnaire.KeyWeight,
	questionnaire.KeyGoal,
	questionnaire.KeyBodyFatCurrent,
	questionnaire.KeyBodyFatTarget,
	questionnaire.KeyActivity,
	questionnaire.KeyActivityTypes,
	questionnaire.KeyActivityType,
	questionnaire.KeyActivityFreq,
	questionnaire.KeyActivityDur,
	questionnaire.KeyTrainingTime,
	questionnaire.KeyCardioGoal,
	questionnaire.KeyStrengthGoal,
	questionnaire.KeySupplements,
	questionnaire.KeySupplementTypes,
	questionnaire.KeyLimitations,
	questionnaire.KeyMixedActivities,
	questionnaire.KeyMixedFrequency,
	questionnaire.KeyMixedDuration,
	questionnaire.KeyMixedMenuAdapt,
	questionnaire.KeyDiet,
	questionnaire.KeyAllergies,
	questionnaire.KeyWaterReminder,
	questionnaire.KeySchedule,
}

// New wires the step table into a conversation machine.
func New(sessions state.Manager, users Store, nutrition services.Nutrition) (*Onboarding, error) {
	o := &Onboarding{
		steps:     questionnaire.NewSteps(sessions),
		users:     users,
		nutrition: nutrition,
	}
	seq, err := state.NewSequence(o.stepTable())
	if err != nil {
		return nil, fmt.Errorf("onboarding: %w", err)
	}
	o.machine = state.NewMachine(sessions, seq, o.finish)
	return o, nil
}

// Machine exposes the conversation machine for routing.
func (o *Onboarding) Machine() *state.Machine {
	return o.machine
}

// stepTable declares the questionnaire in asking order.
func (o *Onboarding) stepTable() []state.Step {
	q := o.steps
	return []state.Step{
		{State: questionnaire.StateName, OnText: q.Name},
		{State: questionnaire.StateGender, OnText: q.Gender},
		{State: questionnaire.StateAge, OnText: q.Age},
		{State: questionnaire.StateHeight, OnText: q.Height},
		{State: questionnaire.StateWeight, OnText: q.Weight},
		{State: questionnaire.StateGoal, OnText: q.Goal},
		{State: questionnaire.StateBodyFatCurrent, OnText: q.BodyFatCurrent},
		{State: questionnaire.StateBodyFatTarget, OnText: q.BodyFatTarget},
		{State: questionnaire.StateActivity, OnText: q.Activity},
		{State: questionnaire.StateActivityTypesSel, OnCallback: q.ActivityTypesSelection},
		{State: questionnaire.StateActivityType, OnText: q.ActivityType},
		{State: questionnaire.StateActivityFreq, OnText: q.ActivityFrequency},
		{State: questionnaire.StateActivityDur, OnText: q.ActivityDuration},
		{State: questionnaire.StateTrainingTime, OnText: q.TrainingTime},
		{State: questionnaire.StateCardioGoal, OnText: q.CardioGoal},
		{State: questionnaire.StateStrengthGoal, OnText: q.StrengthGoal},
		{State: questionnaire.StateSupplements, OnText: q.Supplements},
		{State: questionnaire.StateSupplementTypes, OnText: q.SupplementTypes},
		{State: questionnaire.StateLimitations, OnText: q.Limitations},
		{State: questionnaire.StateMixedActivities, OnText: q.MixedActivities},
		{State: questionnaire.StateMixedFrequency, OnText: q.MixedFrequency},
		{State: questionnaire.StateMixedDuration, OnText: q.MixedDuration},
		{State: questionnaire.StateMixedMenuAdapt, OnText: q.MixedMenuAdaptation},
		{State: questionnaire.StateDiet, OnText: q.Diet},
		{State: questionnaire.StateAllergies, OnText: q.AllergiesText, OnCallback: q.AllergiesCallback},
		{State: questionnaire.StateWaterReminder, OnText: q.WaterReminder},
		{State: questionnaire.StateSchedule, OnText: q.Schedule},
	}
}

// Start handles /start: ensures a user record exists and asks the first
// question. Re-entry mid-conversation restarts the questionnaire from
// scratch.
func (o *Onboarding) Start(c tele.Context) error {
	userID := c.Sender().ID
	ctx := tghelpers.BuildContext(c)

	// A restart discards the in-memory session only; a record persisted by
	// a previously completed run stays untouched until the new terminal
	// transition overwrites it.
	_, err := o.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		if err := o.users.SaveUser(ctx, domain.New(userID)); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	o.machine.Start(userID)
	logger.Info(ctx, "tg", "onboarding.start", slog.Int64("user_id", userID))

	if err := tghelpers.SendKB(c, texts.Welcome, keyboard.RemoveKeyboard()); err != nil {
		return err
	}
	return tghelpers.SendText(c, texts.QName)
}

// finish is the terminal transition: persist the profile, derive the
// budget, enable the daily menu, and hand the user the main keyboard.
func (o *Onboarding) finish(c tele.Context) error {
	userID := c.Sender().ID
	ctx := tghelpers.BuildContext(c)
	sessions := o.steps.Sessions()

	u, err := o.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		u = domain.New(userID)
	} else if err != nil {
		return err
	}

	profile := make(map[string]string, len(profileKeys))
	for _, key := range profileKeys {
		if v, ok := sessions.GetTempString(userID, key); ok && v != "" {
			profile[key] = v
		}
	}

	u.Profile = profile
	u.CalorieBudget = o.nutrition.CalorieBudget(profile)
	u.PreferredMenuHour = profile[questionnaire.KeySchedule]
	u.DailyMenuEnabled = true
	u.CompleteSetup()

	if err := o.users.SaveUser(ctx, u); err != nil {
		return err
	}

	logger.Info(ctx, "tg", "onboarding.complete",
		slog.Int64("user_id", userID),
		slog.Int("calorie_budget", u.CalorieBudget),
		slog.String("preferred_menu_hour", u.PreferredMenuHour),
	)

	done := texts.SetupComplete
	if name := profile[questionnaire.KeyName]; name != "" {
		escaped, err := format.EscapeMarkdown(name, format.MarkdownV1)
		if err != nil {
			return err
		}
		done = texts.SetupCompleteFor(escaped)
	}
	return tghelpers.SendMD(c, done, texts.MainKeyboard())
}
