// Package texts holds the user-facing Hebrew strings and keyboards.
package texts

import (
	"fmt"

	"github.com/m3rciful/calorico/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Main menu button labels.
const (
	BtnDailyMenu   = "לקבלת תפריט יומי מותאם אישית"
	BtnEatenToday  = "מה אכלתי היום"
	BtnBuildMeal   = "בניית ארוחה לפי מה שיש לי בבית"
	BtnReport      = "קבלת דוח"
	BtnWater       = "תזכורות על שתיית מים"
	BtnDoneToday   = "✅ סיימתי להיום"
	BtnHelp        = "עזרה"
	BtnAskFreeM    = "שאל שאלה חופשית"
	BtnAskFreeF    = "שאלי שאלה חופשית"
	BtnToQuestions = "מעבר לשאלון אישי"
	BtnYes         = "כן"
	BtnNo          = "לא"
)

// Daily push notifications.
const (
	MenuReady = "🍽️ התפריט היומי שלך מוכן! לחץ על 'לקבלת תפריט יומי מותאם אישית'"
)

// CalorieBudget renders the pinned daily budget announcement.
func CalorieBudget(budget int) string {
	return fmt.Sprintf("📌 תקציב הקלוריות היומי שלך: %d קלוריות", budget)
}

// General replies.
const (
	Welcome        = "ברוכים הבאים לקלוריקו! 🥗\nנתחיל בשאלון קצר כדי להתאים לך תפריט אישי."
	HelpText       = "אפשר לשאול אותי שאלה חופשית, לבקש תפריט יומי, לדווח מה אכלת או לקבל דוח.\nפקודות: /start להתחלת השאלון, /menu לתפריט, /reset לאיפוס."
	HelpChoose     = "במה אפשר לעזור?"
	ResetQuestion  = "לאפס את כל הנתונים שלך? פעולה זו אינה הפיכה."
	ResetDone      = "הנתונים אופסו. שלחו /start כדי להתחיל מחדש."
	ResetCancelled = "האיפוס בוטל."
	UnknownAction  = "פעולה לא מוכרת"
	NotRegistered  = "עוד לא נפגשנו 🙂 שלחו /start כדי להתחיל."
	SummaryClosing = "כל הכבוד על היום! 🎉 נתראה מחר."

	EatenPrompt     = "מה אכלת היום? פרטו לי ואשמור את זה ביומן 🙂"
	BuildMealPrompt = "אילו מצרכים יש לך בבית? כתבו לי ואבנה מזה ארוחה."
	ReportChoose    = "איזה דוח תרצו לקבל?"
	WaterOn         = "💧 תזכורות שתייה הופעלו!"
	WaterOff        = "תזכורות השתייה כובו."
	FreeTextPrompt  = "אפשר לשאול אותי כל שאלה על תזונה, פשוט כתבו אותה כאן 🙂"
	StayAsIs        = "מעולה, ממשיכים כרגיל 🙂"
)

// Questionnaire prompts, one per onboarding state.
const (
	QName            = "איך קוראים לך?"
	QGender          = "מה המגדר שלך?"
	QAge             = "בן/בת כמה את/ה?"
	QHeight          = "מה הגובה שלך בס\"מ?"
	QWeight          = "מה המשקל שלך בק\"ג?"
	QGoal            = "מה המטרה שלך?"
	QBodyFatCurrent  = "מה אחוז השומן הנוכחי שלך? (אם לא ידוע, כתבו 'לא יודע')"
	QBodyFatTarget   = "מה אחוז השומן שאליו תרצו להגיע?"
	QActivity        = "האם את/ה מתאמן/ת באופן קבוע?"
	QActivityTypes   = "אילו סוגי פעילות? אפשר לבחור כמה, ולסיום ללחוץ 'סיום'"
	QActivityType    = "מה סוג האימון העיקרי שלך?"
	QActivityFreq    = "כמה פעמים בשבוע את/ה מתאמן/ת?"
	QActivityDur     = "כמה זמן נמשך אימון ממוצע? (בדקות)"
	QTrainingTime    = "באיזו שעה ביום את/ה בדרך כלל מתאמן/ת?"
	QCardioGoal      = "מה המטרה של אימוני האירובי שלך?"
	QStrengthGoal    = "מה המטרה של אימוני הכוח שלך?"
	QSupplements     = "האם את/ה נוטל/ת תוספי תזונה?"
	QSupplementTypes = "אילו תוספים?"
	QLimitations     = "האם יש מגבלות רפואיות שכדאי שנדע עליהן? (אם אין, כתבו 'אין')"
	QMixedActivities = "אילו פעילויות משולבות את/ה עושה?"
	QMixedFrequency  = "כמה פעמים בשבוע?"
	QMixedDuration   = "מה משך הפעילות בדקות?"
	QMixedMenuAdapt  = "להתאים את התפריט לימי אימון?"
	QDiet            = "האם את/ה שומר/ת על תזונה מסוימת? (צמחוני, טבעוני, כשר, ללא)"
	QAllergies       = "יש אלרגיות או רגישויות למזון? אפשר לבחור מהכפתורים או לכתוב, ולסיום ללחוץ 'סיום'"
	QWaterReminder   = "לשלוח לך תזכורות על שתיית מים במהלך היום?"
	QSchedule        = "באיזו שעה תרצו לקבל את התפריט היומי?"
)

// Questionnaire validation re-prompts.
const (
	InvalidChoice = "לא הבנתי, אפשר לבחור מהכפתורים 🙂"
	InvalidNumber = "צריך מספר 🙂 ננסה שוב:"
	SetupComplete = "זהו, סיימנו! 🎉 התפריט האישי שלך מוכן. אפשר לבחור מהתפריט הראשי."
)

// SetupCompleteFor personalizes the completion message. The name is
// interpolated into a Markdown message, so callers escape it first.
func SetupCompleteFor(name string) string {
	return fmt.Sprintf("זהו, סיימנו, *%s*! 🎉 התפריט האישי שלך מוכן. אפשר לבחור מהתפריט הראשי.", name)
}

// Questionnaire option labels.
const (
	OptGoalLose     = "ירידה במשקל"
	OptGoalMaintain = "שמירה על המשקל"
	OptGoalGain     = "עלייה במסת שריר"

	OptGenderFemale = "נקבה"
	OptGenderMale   = "זכר"
	OptGenderOther  = "אחר"

	OptActivityCardio   = "אירובי"
	OptActivityStrength = "כוח"
	OptActivityMixed    = "משולב"
	OptSelectionDone    = "סיום"

	OptNoAllergies = "אין"
)

// MainKeyboard is the persistent reply keyboard shown after onboarding.
func MainKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{BtnDailyMenu},
		[]string{BtnEatenToday, BtnBuildMeal},
		[]string{BtnReport, BtnWater},
		[]string{BtnDoneToday, BtnHelp},
	)
}

// YesNoKeyboard offers the two-button yes/no choice.
func YesNoKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{BtnYes, BtnNo})
}

// GenderKeyboard offers the gender options.
func GenderKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{OptGenderFemale, OptGenderMale, OptGenderOther})
}

// GoalKeyboard offers the nutrition goal options.
func GoalKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{OptGoalLose},
		[]string{OptGoalMaintain},
		[]string{OptGoalGain},
	)
}

// HelpKeyboard offers the help action buttons.
func HelpKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{BtnAskFreeM, BtnAskFreeF},
		[]string{BtnToQuestions},
	)
}

// ScheduleHours are the menu delivery hour choices offered in the
// questionnaire, plus the manual-request option.
var ScheduleHours = []string{"07:00", "08:00", "09:00", "10:00", "12:00", "18:00"}

// ScheduleKeyboard offers delivery hours and the manual-request option.
func ScheduleKeyboard(manualSentinel string) *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		ScheduleHours[:3],
		ScheduleHours[3:],
		[]string{manualSentinel},
	)
}

// ActivityTypesKeyboard is the inline multi-select for workout kinds.
func ActivityTypesKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: OptActivityCardio, Unique: "activity", Data: OptActivityCardio},
			{Text: OptActivityStrength, Unique: "activity", Data: OptActivityStrength},
			{Text: OptActivityMixed, Unique: "activity", Data: OptActivityMixed},
		},
		[]keyboard.InlineBtn{
			{Text: OptSelectionDone, Unique: "activity", Data: OptSelectionDone},
		},
	)
}

// AllergyKeyboard is the inline multi-select for common allergies.
func AllergyKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "גלוטן", Unique: "allergy", Data: "גלוטן"},
			{Text: "לקטוז", Unique: "allergy", Data: "לקטוז"},
			{Text: "אגוזים", Unique: "allergy", Data: "אגוזים"},
		},
		[]keyboard.InlineBtn{
			{Text: "ביצים", Unique: "allergy", Data: "ביצים"},
			{Text: "סויה", Unique: "allergy", Data: "סויה"},
			{Text: OptNoAllergies, Unique: "allergy", Data: OptNoAllergies},
		},
		[]keyboard.InlineBtn{
			{Text: OptSelectionDone, Unique: "allergy", Data: OptSelectionDone},
		},
	)
}

// ReportKeyboard is the inline report type chooser.
func ReportKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "דוח יומי", Unique: "report", Data: "daily"},
			{Text: "דוח שבועי", Unique: "report", Data: "weekly"},
		},
		[]keyboard.InlineBtn{
			{Text: "דוח חודשי", Unique: "report", Data: "monthly"},
			{Text: "משוב חכם", Unique: "report", Data: "smart_feedback"},
		},
	)
}

// ResetKeyboard is the inline reset confirmation.
func ResetKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "כן, לאפס", Unique: "reset", Data: "confirm"},
			{Text: "ביטול", Unique: "reset", Data: "cancel"},
		},
	)
}
