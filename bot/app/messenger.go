package app

import (
	"context"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// botMessenger adapts the bot API to the scheduler's Messenger interface
// for sends that happen outside any update context.
type botMessenger struct {
	bot *tele.Bot
}

func newBotMessenger(bot *tele.Bot) *botMessenger {
	return &botMessenger{bot: bot}
}

func (m *botMessenger) SendText(ctx context.Context, userID int64, text string) (int, error) {
	msg, err := m.bot.Send(&tele.User{ID: userID}, text)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (m *botMessenger) SendKeyboard(ctx context.Context, userID int64, text string, kb *tele.ReplyMarkup) (int, error) {
	msg, err := m.bot.Send(&tele.User{ID: userID}, text, kb)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// pinRef addresses an already-sent message for Bot.Pin.
type pinRef struct {
	messageID int
	chatID    int64
}

func (p pinRef) MessageSig() (string, int64) {
	return strconv.Itoa(p.messageID), p.chatID
}

func (m *botMessenger) Pin(ctx context.Context, userID int64, messageID int) error {
	return m.bot.Pin(pinRef{messageID: messageID, chatID: userID})
}
