package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"staysync/internal/clock"
	"staysync/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncController is the sync worker as seen by the operator.
type SyncController interface {
	ForceSync() bool
	LastStatus() models.SyncStatus
}

type PropertyLister interface {
	List(ctx context.Context) ([]*models.Property, error)
}

type MovementSource interface {
	Upcoming(ctx context.Context, propertyID int64, limit int) ([]models.Movement, error)
}

// Bot answers operator commands in the alert chat: sync status, a forced
// sync and the day's arrivals and departures.
type Bot struct {
	api        TelegramAPI
	chatID     int64
	sync       SyncController
	properties PropertyLister
	movements  MovementSource
	clock      clock.Clock
	logger     zerolog.Logger
}

func NewBot(api TelegramAPI, chatID int64, sync SyncController, properties PropertyLister, movements MovementSource, c clock.Clock, logger *zerolog.Logger) *Bot {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "telegram_bot").Logger()
	}
	if c == nil {
		c = clock.NewSystem()
	}
	return &Bot{
		api:        api,
		chatID:     chatID,
		sync:       sync,
		properties: properties,
		movements:  movements,
		clock:      c,
		logger:     l,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.api.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Chat == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.New().String()).Logger()

	b.withRecovery(func() {
		chatID := update.Message.Chat.ID
		if !b.isOperator(chatID) {
			l.Warn().Int64("chat_id", chatID).Msg("command from unknown chat ignored")
			return
		}
		if !update.Message.IsCommand() {
			return
		}

		reply := b.handleCommand(updateCtx, update.Message.Command(), l)
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
			l.Error().Err(err).Msg("failed to send reply")
		}
	})
}

func (b *Bot) handleCommand(ctx context.Context, command string, l zerolog.Logger) string {
	switch command {
	case "start", "help":
		return helpText
	case "status":
		return formatStatus(b.sync.LastStatus())
	case "sync":
		if b.sync.ForceSync() {
			return "🔄 " + models.StatusManualRequested
		}
		return "⏳ Sync already requested"
	case "today":
		text, err := b.todayMovements(ctx)
		if err != nil {
			l.Error().Err(err).Msg("failed to load movements")
			return "❌ Failed to load today's movements"
		}
		return text
	default:
		return "Unknown command. " + helpText
	}
}

const helpText = "Commands:\n/status - last sync status\n/sync - sync now\n/today - check-ins and check-outs today"

func (b *Bot) todayMovements(ctx context.Context) (string, error) {
	props, err := b.properties.List(ctx)
	if err != nil {
		return "", err
	}
	sort.Slice(props, func(i, j int) bool { return props[i].ID < props[j].ID })

	today := models.Day(b.clock.Now())
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 %s\n", models.FormatDate(today))

	found := 0
	for _, p := range props {
		moves, err := b.movements.Upcoming(ctx, p.ID, 0)
		if err != nil {
			return "", fmt.Errorf("property %d: %w", p.ID, err)
		}
		for _, m := range moves {
			if !models.Day(m.Date).Equal(today) {
				continue
			}
			icon := "➡"
			if m.Type == models.MovementCheckOut {
				icon = "⬅"
			}
			fmt.Fprintf(&sb, "%s %s: %s (%s)\n", icon, m.Type, m.GuestName, p.Name)
			found++
		}
	}
	if found == 0 {
		sb.WriteString("No check-ins or check-outs today")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func formatStatus(st models.SyncStatus) string {
	if st.Message == "" {
		return "No sync has run yet"
	}
	text := st.Message
	if st.Failures > 0 {
		text += fmt.Sprintf("\nFailed items: %d", st.Failures)
	}
	if !st.CreatedAt.IsZero() {
		text += "\nAt: " + st.CreatedAt.UTC().Format("2006-01-02 15:04:05") + " UTC"
	}
	return text
}
