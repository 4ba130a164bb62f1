package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"memberbase/internal/models"
)

// Notifier pushes operational notifications. Failures are logged by callers
// and never fail the request that triggered them.
type Notifier interface {
	NotifySignup(user *models.User) error
}

type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier connects the bot. Wire it only when a token and chat id
// are configured; an unconfigured deployment simply passes a nil Notifier.
func NewTelegramNotifier(botToken string, chatID int64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	log.Printf("[notify][telegram] connected as @%s", bot.Self.UserName)
	return &telegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *telegramNotifier) NotifySignup(user *models.User) error {
	text := fmt.Sprintf("New signup: <b>%s</b> (%s), id=%d", user.Name, user.Email, user.ID)
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}
