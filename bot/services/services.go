// Package services declares the collaborator boundary: menu, report, and
// nutrition content providers. The orchestration core routes to these and
// never interprets their output.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/calorico/bot/domain"
	"github.com/m3rciful/calorico/bot/texts"
	"github.com/m3rciful/calorico/core/logger"
	"log/slog"
)

// Menus produces the daily menu text for a user.
type Menus interface {
	DailyMenu(ctx context.Context, u *domain.User) (string, error)
}

// Reports produces a report of the given kind for a user.
// Kind is one of: daily, weekly, monthly, smart_feedback.
type Reports interface {
	Report(ctx context.Context, u *domain.User, kind string) (string, error)
}

// Nutrition derives the daily calorie budget from questionnaire answers.
type Nutrition interface {
	CalorieBudget(profile map[string]string) int
}

// FreeText answers an unrouted free-form message.
type FreeText interface {
	Answer(ctx context.Context, u *domain.User, text string) (string, error)
}

// StaticMenus is the default menu provider: a deterministic template built
// from the user's calorie budget.
type StaticMenus struct{}

// DailyMenu renders the default three-meal split of the user's budget.
func (StaticMenus) DailyMenu(ctx context.Context, u *domain.User) (string, error) {
	start := time.Now()
	budget := u.CalorieBudget
	if budget <= 0 {
		budget = 1800
	}
	var b strings.Builder
	b.WriteString("🍽️ התפריט היומי שלך:\n")
	fmt.Fprintf(&b, "🥣 בוקר (~%d קלוריות): שיבולת שועל עם פירות ואגוזים\n", budget*30/100)
	fmt.Fprintf(&b, "🥗 צהריים (~%d קלוריות): חזה עוף, אורז מלא וסלט ירקות\n", budget*40/100)
	fmt.Fprintf(&b, "🍳 ערב (~%d קלוריות): חביתה, גבינה וירקות\n", budget*30/100)
	logger.SVCMenu.Debug("menu built",
		slog.String("event", "menu.daily"),
		slog.Int64("user_id", u.ID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return b.String(), nil
}

// StaticReports is the default report provider.
type StaticReports struct{}

// Report renders a per-kind placeholder summary from the user record.
func (StaticReports) Report(ctx context.Context, u *domain.User, kind string) (string, error) {
	switch kind {
	case "daily":
		return fmt.Sprintf("📊 דוח יומי - יום %d במעקב, תקציב %d קלוריות.", u.Flow.DayCount, u.CalorieBudget), nil
	case "weekly":
		return fmt.Sprintf("📊 דוח שבועי - %d ימי מעקב עד כה.", u.Flow.DayCount), nil
	case "monthly":
		return fmt.Sprintf("📊 דוח חודשי - %d ימי מעקב עד כה.", u.Flow.DayCount), nil
	case "smart_feedback":
		return "💡 משוב חכם: שמרו על עקביות, רוב הימים שלכם בתקציב!", nil
	}
	return "", fmt.Errorf("services: unknown report kind %q", kind)
}

// BasicNutrition is the default budget calculator: a goal-keyed base value.
// Real nutrition math lives outside this core.
type BasicNutrition struct{}

// CalorieBudget maps the questionnaire goal answer to a daily budget.
func (BasicNutrition) CalorieBudget(profile map[string]string) int {
	switch profile["goal"] {
	case texts.OptGoalLose:
		return 1600
	case texts.OptGoalGain:
		return 2400
	default:
		return 2000
	}
}

// EchoFreeText is the default free-text responder.
type EchoFreeText struct{}

// Answer acknowledges the message and points at the main menu.
func (EchoFreeText) Answer(ctx context.Context, u *domain.User, text string) (string, error) {
	return "קיבלתי 🙂 אפשר לבחור פעולה מהתפריט הראשי, או לשאול שאלה דרך 'עזרה'.", nil
}
