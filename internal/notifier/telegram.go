package notifier

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"levelwatch/internal/alert"
)

// Telegram delivers one message per run to a configured chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (n *Telegram) Notify(_ context.Context, events []alert.Event) error {
	if len(events) == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(n.chatID, formatBatch(events))
	_, err := n.bot.Send(msg)
	return err
}
