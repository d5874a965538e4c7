package services

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel mirrors notifications to a staff chat.
type TelegramChannel struct {
	client telegramClient
	chatID int64
}

// NewTelegramChannel contacts the Bot API once to validate the token.
func NewTelegramChannel(botToken string, chatID int64) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramChannel{client: bot, chatID: chatID}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Deliver(ctx context.Context, n Notification) error {
	text := fmt.Sprintf("[%s] %s\nto: %s\n\n%s", n.Kind, n.Subject, n.To, n.Body)
	if n.Kind == KindPasswordReset {
		// never mirror reset links
		text = fmt.Sprintf("[%s] reset link sent to %s", n.Kind, n.To)
	}
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.DisableWebPagePreview = true

	done := make(chan error, 1)
	go func() {
		_, err := c.client.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
