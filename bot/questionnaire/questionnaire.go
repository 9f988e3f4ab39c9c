// Package questionnaire implements the onboarding step handlers. Each
// handler validates one answer, stores it in the session, prompts the next
// question, and tells the conversation machine whether to advance.
package questionnaire

import (
	"strconv"
	"strings"

	"github.com/m3rciful/calorico/bot/domain"
	"github.com/m3rciful/calorico/bot/texts"
	"github.com/m3rciful/calorico/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/calorico/core/telegram/helpers"
	"github.com/m3rciful/calorico/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Onboarding states, in declaration order.
const (
	StateName             state.State = "name"
	StateGender           state.State = "gender"
	StateAge              state.State = "age"
	StateHeight           state.State = "height"
	StateWeight           state.State = "weight"
	StateGoal             state.State = "goal"
	StateBodyFatCurrent   state.State = "body_fat_current"
	StateBodyFatTarget    state.State = "body_fat_target_goal"
	StateActivity         state.State = "activity"
	StateActivityTypesSel state.State = "activity_types_selection"
	StateActivityType     state.State = "activity_type"
	StateActivityFreq     state.State = "activity_frequency"
	StateActivityDur      state.State = "activity_duration"
	StateTrainingTime     state.State = "training_time"
	StateCardioGoal       state.State = "cardio_goal"
	StateStrengthGoal     state.State = "strength_goal"
	StateSupplements      state.State = "supplements"
	StateSupplementTypes  state.State = "supplement_types"
	StateLimitations      state.State = "limitations"
	StateMixedActivities  state.State = "mixed_activities"
	StateMixedFrequency   state.State = "mixed_frequency"
	StateMixedDuration    state.State = "mixed_duration"
	StateMixedMenuAdapt   state.State = "mixed_menu_adaptation"
	StateDiet             state.State = "diet"
	StateAllergies        state.State = "allergies"
	StateWaterReminder    state.State = "water_reminder_opt_in"
	StateSchedule         state.State = "schedule"
)

// Answer keys written into the session and, on completion, the profile.
const (
	KeyName            = "name"
	KeyGender          = "gender"
	KeyAge             = "age"
	KeyHeight          = "height"
	KeyWeight          = "weight"
	KeyGoal            = "goal"
	KeyBodyFatCurrent  = "body_fat_current"
	KeyBodyFatTarget   = "body_fat_target_goal"
	KeyActivity        = "activity"
	KeyActivityTypes   = "activity_types"
	KeyActivityType    = "activity_type"
	KeyActivityFreq    = "activity_frequency"
	KeyActivityDur     = "activity_duration"
	KeyTrainingTime    = "training_time"
	KeyCardioGoal      = "cardio_goal"
	KeyStrengthGoal    = "strength_goal"
	KeySupplements     = "supplements"
	KeySupplementTypes = "supplement_types"
	KeyLimitations     = "limitations"
	KeyMixedActivities = "mixed_activities"
	KeyMixedFrequency  = "mixed_frequency"
	KeyMixedDuration   = "mixed_duration"
	KeyMixedMenuAdapt  = "mixed_menu_adaptation"
	KeyDiet            = "diet"
	KeyAllergies       = "allergies"
	KeyWaterReminder   = "water_reminder"
	KeySchedule        = "preferred_menu_hour"
)

// Steps binds the handlers to a session manager.
type Steps struct {
	sessions state.Manager
}

// NewSteps constructs the questionnaire collaborators.
func NewSteps(sessions state.Manager) *Steps {
	return &Steps{sessions: sessions}
}

// Sessions exposes the underlying manager for the terminal transition.
func (q *Steps) Sessions() state.Manager {
	return q.sessions
}

func (q *Steps) store(c tele.Context, key, value string) {
	q.sessions.SetTemp(c.Sender().ID, key, value)
}

// freeText captures any non-empty text and asks the next question.
func (q *Steps) freeText(key, nextPrompt string, kb *tele.ReplyMarkup) state.StepHandler {
	return func(c tele.Context) (state.Outcome, error) {
		answer := strings.TrimSpace(c.Text())
		if answer == "" {
			return state.Stay, nil
		}
		q.store(c, key, answer)
		if kb != nil {
			return state.Advance, tghelpers.SendKB(c, nextPrompt, kb)
		}
		return state.Advance, tghelpers.SendText(c, nextPrompt)
	}
}

// numeric captures a positive integer, re-prompting on anything else.
func (q *Steps) numeric(key, nextPrompt string, kb *tele.ReplyMarkup) state.StepHandler {
	return func(c tele.Context) (state.Outcome, error) {
		answer := strings.TrimSpace(c.Text())
		n, err := strconv.Atoi(answer)
		if err != nil || n <= 0 {
			return state.Stay, tghelpers.SendText(c, texts.InvalidNumber)
		}
		q.store(c, key, answer)
		if kb != nil {
			return state.Advance, tghelpers.SendKB(c, nextPrompt, kb)
		}
		return state.Advance, tghelpers.SendText(c, nextPrompt)
	}
}

// choice captures one of the allowed answers, re-prompting on anything else.
func (q *Steps) choice(key string, allowed []string, next func(answer string) (state.Outcome, string, *tele.ReplyMarkup)) state.StepHandler {
	return func(c tele.Context) (state.Outcome, error) {
		answer := strings.TrimSpace(c.Text())
		ok := false
		for _, a := range allowed {
			if answer == a {
				ok = true
				break
			}
		}
		if !ok {
			return state.Stay, tghelpers.SendText(c, texts.InvalidChoice)
		}
		q.store(c, key, answer)
		outcome, prompt, kb := next(answer)
		if kb != nil {
			return outcome, tghelpers.SendKB(c, prompt, kb)
		}
		return outcome, tghelpers.SendText(c, prompt)
	}
}

// multiSelect accumulates inline-button payloads until the done button.
func (q *Steps) multiSelect(key, doneValue string, requireOne bool, onDone func(c tele.Context) (state.Outcome, error)) state.StepHandler {
	return func(c tele.Context) (state.Outcome, error) {
		payload := callbacks.CallbackPayload(c)
		_ = c.Respond()
		if payload != doneValue {
			selected, _ := q.sessions.GetTempString(c.Sender().ID, key)
			for _, prev := range strings.Split(selected, ",") {
				if prev == payload {
					// Re-pressing a chosen option is a no-op.
					return state.Stay, nil
				}
			}
			if selected != "" {
				selected += ","
			}
			q.store(c, key, selected+payload)
			return state.Stay, nil
		}
		if requireOne {
			if selected, _ := q.sessions.GetTempString(c.Sender().ID, key); selected == "" {
				return state.Stay, tghelpers.SendText(c, texts.InvalidChoice)
			}
		}
		return onDone(c)
	}
}

func yesNo() []string {
	return []string{texts.BtnYes, texts.BtnNo}
}

// Name → Gender.
func (q *Steps) Name(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyName, texts.QGender, texts.GenderKeyboard())(c)
}

// Gender → Age.
func (q *Steps) Gender(c tele.Context) (state.Outcome, error) {
	allowed := []string{texts.OptGenderFemale, texts.OptGenderMale, texts.OptGenderOther}
	return q.choice(KeyGender, allowed, func(string) (state.Outcome, string, *tele.ReplyMarkup) {
		return state.Advance, texts.QAge, nil
	})(c)
}

// Age → Height.
func (q *Steps) Age(c tele.Context) (state.Outcome, error) {
	return q.numeric(KeyAge, texts.QHeight, nil)(c)
}

// Height → Weight.
func (q *Steps) Height(c tele.Context) (state.Outcome, error) {
	return q.numeric(KeyHeight, texts.QWeight, nil)(c)
}

// Weight → Goal.
func (q *Steps) Weight(c tele.Context) (state.Outcome, error) {
	return q.numeric(KeyWeight, texts.QGoal, texts.GoalKeyboard())(c)
}

// Goal → BodyFatCurrent.
func (q *Steps) Goal(c tele.Context) (state.Outcome, error) {
	allowed := []string{texts.OptGoalLose, texts.OptGoalMaintain, texts.OptGoalGain}
	return q.choice(KeyGoal, allowed, func(string) (state.Outcome, string, *tele.ReplyMarkup) {
		return state.Advance, texts.QBodyFatCurrent, nil
	})(c)
}

// BodyFatCurrent → BodyFatTarget. Free text so "לא יודע" is acceptable.
func (q *Steps) BodyFatCurrent(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyBodyFatCurrent, texts.QBodyFatTarget, nil)(c)
}

// BodyFatTarget → Activity.
func (q *Steps) BodyFatTarget(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyBodyFatTarget, texts.QActivity, texts.YesNoKeyboard())(c)
}

// Activity branches: training users continue into the activity block,
// the rest skip straight to supplements.
func (q *Steps) Activity(c tele.Context) (state.Outcome, error) {
	return q.choice(KeyActivity, yesNo(), func(answer string) (state.Outcome, string, *tele.ReplyMarkup) {
		if answer == texts.BtnNo {
			return state.GoTo(StateSupplements), texts.QSupplements, texts.YesNoKeyboard()
		}
		return state.Advance, texts.QActivityTypes, texts.ActivityTypesKeyboard()
	})(c)
}

// ActivityTypesSelection is the button-driven multi-select.
func (q *Steps) ActivityTypesSelection(c tele.Context) (state.Outcome, error) {
	return q.multiSelect(KeyActivityTypes, texts.OptSelectionDone, true, func(c tele.Context) (state.Outcome, error) {
		return state.Advance, tghelpers.SendText(c, texts.QActivityType)
	})(c)
}

// ActivityType → ActivityFrequency.
func (q *Steps) ActivityType(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyActivityType, texts.QActivityFreq, nil)(c)
}

// ActivityFrequency → ActivityDuration.
func (q *Steps) ActivityFrequency(c tele.Context) (state.Outcome, error) {
	return q.numeric(KeyActivityFreq, texts.QActivityDur, nil)(c)
}

// ActivityDuration → TrainingTime.
func (q *Steps) ActivityDuration(c tele.Context) (state.Outcome, error) {
	return q.numeric(KeyActivityDur, texts.QTrainingTime, nil)(c)
}

// TrainingTime → CardioGoal.
func (q *Steps) TrainingTime(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyTrainingTime, texts.QCardioGoal, nil)(c)
}

// CardioGoal → StrengthGoal.
func (q *Steps) CardioGoal(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyCardioGoal, texts.QStrengthGoal, nil)(c)
}

// StrengthGoal → Supplements.
func (q *Steps) StrengthGoal(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyStrengthGoal, texts.QSupplements, texts.YesNoKeyboard())(c)
}

// Supplements branches past the supplement-types question when unused.
func (q *Steps) Supplements(c tele.Context) (state.Outcome, error) {
	return q.choice(KeySupplements, yesNo(), func(answer string) (state.Outcome, string, *tele.ReplyMarkup) {
		if answer == texts.BtnNo {
			return state.GoTo(StateLimitations), texts.QLimitations, nil
		}
		return state.Advance, texts.QSupplementTypes, nil
	})(c)
}

// SupplementTypes → Limitations.
func (q *Steps) SupplementTypes(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeySupplementTypes, texts.QLimitations, nil)(c)
}

// Limitations enters the mixed-activity block only when the user picked
// mixed training; everyone else jumps to the diet question.
func (q *Steps) Limitations(c tele.Context) (state.Outcome, error) {
	answer := strings.TrimSpace(c.Text())
	if answer == "" {
		return state.Stay, nil
	}
	q.store(c, KeyLimitations, answer)
	selected, _ := q.sessions.GetTempString(c.Sender().ID, KeyActivityTypes)
	if strings.Contains(selected, texts.OptActivityMixed) {
		return state.Advance, tghelpers.SendText(c, texts.QMixedActivities)
	}
	return state.GoTo(StateDiet), tghelpers.SendText(c, texts.QDiet)
}

// MixedActivities → MixedFrequency.
func (q *Steps) MixedActivities(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyMixedActivities, texts.QMixedFrequency, nil)(c)
}

// MixedFrequency → MixedDuration.
func (q *Steps) MixedFrequency(c tele.Context) (state.Outcome, error) {
	return q.numeric(KeyMixedFrequency, texts.QMixedDuration, nil)(c)
}

// MixedDuration → MixedMenuAdaptation.
func (q *Steps) MixedDuration(c tele.Context) (state.Outcome, error) {
	return q.numeric(KeyMixedDuration, texts.QMixedMenuAdapt, texts.YesNoKeyboard())(c)
}

// MixedMenuAdaptation → Diet.
func (q *Steps) MixedMenuAdaptation(c tele.Context) (state.Outcome, error) {
	return q.choice(KeyMixedMenuAdapt, yesNo(), func(string) (state.Outcome, string, *tele.ReplyMarkup) {
		return state.Advance, texts.QDiet, nil
	})(c)
}

// Diet → Allergies.
func (q *Steps) Diet(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyDiet, texts.QAllergies, texts.AllergyKeyboard())(c)
}

// AllergiesText accepts a typed allergy list.
func (q *Steps) AllergiesText(c tele.Context) (state.Outcome, error) {
	return q.freeText(KeyAllergies, texts.QWaterReminder, texts.YesNoKeyboard())(c)
}

// AllergiesCallback accumulates button picks until the done button.
func (q *Steps) AllergiesCallback(c tele.Context) (state.Outcome, error) {
	return q.multiSelect(KeyAllergies, texts.OptSelectionDone, false, func(c tele.Context) (state.Outcome, error) {
		if selected, _ := q.sessions.GetTempString(c.Sender().ID, KeyAllergies); selected == "" {
			q.store(c, KeyAllergies, texts.OptNoAllergies)
		}
		return state.Advance, tghelpers.SendKB(c, texts.QWaterReminder, texts.YesNoKeyboard())
	})(c)
}

// WaterReminder → Schedule.
func (q *Steps) WaterReminder(c tele.Context) (state.Outcome, error) {
	return q.choice(KeyWaterReminder, yesNo(), func(string) (state.Outcome, string, *tele.ReplyMarkup) {
		return state.Advance, texts.QSchedule, texts.ScheduleKeyboard(scheduleSentinel)
	})(c)
}

const scheduleSentinel = domain.ManualRequestSentinel

// Schedule accepts an "HH:00" slot or the manual-request option and ends
// the questionnaire.
func (q *Steps) Schedule(c tele.Context) (state.Outcome, error) {
	answer := strings.TrimSpace(c.Text())
	if answer == scheduleSentinel {
		q.store(c, KeySchedule, answer)
		return state.Finish, nil
	}
	if h, ok := tghelpers.ParseHour(answer); ok {
		q.store(c, KeySchedule, tghelpers.FormatHour(h))
		return state.Finish, nil
	}
	return state.Stay, tghelpers.SendKB(c, texts.InvalidChoice, texts.ScheduleKeyboard(scheduleSentinel))
}
