package notify

import (
	"context"
	"fmt"
	"sync"

	"staysync/internal/config"
	"staysync/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the part of the bot API the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends sync outcomes to an operator chat. A message is only
// sent when it differs from the previous one, so a quiet system does not
// produce a message every cycle.
type TelegramNotifier struct {
	sender     Sender
	chatID     int64
	errorsOnly bool
	logger     *zerolog.Logger

	mu   sync.Mutex
	last string
}

func NewTelegramNotifier(sender Sender, cfg config.TelegramConfig, logger *zerolog.Logger) *TelegramNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramNotifier{
		sender:     sender,
		chatID:     cfg.ChatID,
		errorsOnly: cfg.NotifyErrorsOnly,
		logger:     logger,
	}
}

// NewTelegramBot connects to the bot API with the configured token.
func NewTelegramBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

func (n *TelegramNotifier) NotifyStatus(_ context.Context, status models.SyncStatus) error {
	if n.errorsOnly && !status.Error && status.Failures == 0 {
		return nil
	}

	text := formatStatus(status)

	n.mu.Lock()
	if text == n.last {
		n.mu.Unlock()
		return nil
	}
	n.last = text
	n.mu.Unlock()

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.sender.Send(msg); err != nil {
		n.mu.Lock()
		n.last = ""
		n.mu.Unlock()
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	n.logger.Debug().Str("cycle_id", status.CycleID).Msg("sync status sent to telegram")
	return nil
}

func formatStatus(status models.SyncStatus) string {
	icon := "✅"
	if status.Error {
		icon = "❌"
	} else if status.Failures > 0 {
		icon = "⚠️"
	}
	text := fmt.Sprintf("%s %s", icon, status.Message)
	if status.Failures > 0 {
		text += fmt.Sprintf("\nFailed items: %d", status.Failures)
	}
	return text
}
