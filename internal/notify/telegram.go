package notify

import (
	"context"
	"fmt"
	"strconv"

	"challenge_arena/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender - часть BotAPI, нужная каналу
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel шлет уведомления в чат бота, target - chat id
type TelegramChannel struct {
	bot TelegramSender
}

func NewTelegramChannel(bot TelegramSender) *TelegramChannel {
	return &TelegramChannel{bot: bot}
}

func (t *TelegramChannel) Kind() domain.EndpointKind {
	return domain.EndpointTelegram
}

func (t *TelegramChannel) Deliver(ctx context.Context, target string, msg Message) error {
	chatID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", target, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = t.bot.Send(tgbotapi.NewMessage(chatID, msg.Text))
	return err
}
