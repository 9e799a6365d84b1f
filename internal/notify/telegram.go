package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

// Telegram posts HTML-formatted messages to a single chat.
type Telegram struct {
	bot    *bot.Bot
	chatID int64
	log    *logrus.Entry
}

func NewTelegram(token string, chatID int64, logger *logrus.Logger) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		log:    logger.WithField("component", "telegram"),
	}, nil
}

func (t *Telegram) Create(ctx context.Context, text string) (int, error) {
	msg, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return msg.ID, nil
}

func (t *Telegram) Update(ctx context.Context, id int, text string) (int, error) {
	_, err := t.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    t.chatID,
		MessageID: id,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		// Editing to identical content is a no-op, not a failure.
		if strings.Contains(err.Error(), "message is not modified") {
			return id, nil
		}
		return 0, fmt.Errorf("failed to edit message %d: %w", id, err)
	}
	return id, nil
}

func (t *Telegram) Delete(ctx context.Context, id int) error {
	ok, err := t.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    t.chatID,
		MessageID: id,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %d: %w", id, err)
	}
	if !ok {
		t.log.WithField("message_id", id).Warn("Delete reported not ok")
	}
	return nil
}
