package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"staysync/internal/clock"
	"staysync/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operatorChat = int64(42)

type mockTelegram struct {
	updates chan tgbotapi.Update
	sent    chan tgbotapi.MessageConfig
	stopped chan struct{}
}

func newMockTelegram() *mockTelegram {
	return &mockTelegram{
		updates: make(chan tgbotapi.Update, 4),
		sent:    make(chan tgbotapi.MessageConfig, 4),
		stopped: make(chan struct{}),
	}
}

func (m *mockTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent <- msg
	}
	return tgbotapi.Message{}, nil
}

func (m *mockTelegram) StopReceivingUpdates() {
	close(m.stopped)
}

func (m *mockTelegram) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "staysync_bot"}
}

type fakeSync struct {
	forced bool
	status models.SyncStatus
}

func (f *fakeSync) ForceSync() bool {
	if f.forced {
		return false
	}
	f.forced = true
	return true
}

func (f *fakeSync) LastStatus() models.SyncStatus { return f.status }

type fakeProperties []*models.Property

func (f fakeProperties) List(context.Context) ([]*models.Property, error) { return f, nil }

type fakeMovements struct {
	byProperty map[int64][]models.Movement
	err        error
}

func (f fakeMovements) Upcoming(_ context.Context, propertyID int64, _ int) ([]models.Movement, error) {
	return f.byProperty[propertyID], f.err
}

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

var today = time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)

func newTestBot(tg *mockTelegram, sync *fakeSync, moves fakeMovements) *Bot {
	props := fakeProperties{{ID: 2, Name: "Beach"}, {ID: 1, Name: "Loft"}}
	return NewBot(tg, operatorChat, sync, props, moves, clock.NewManual(today), nil)
}

func TestBotCommands(t *testing.T) {
	tg := newMockTelegram()
	sync := &fakeSync{status: models.SyncStatus{Message: "Synced 3 updates", Failures: 1}}
	moves := fakeMovements{byProperty: map[int64][]models.Movement{
		1: {
			{ReservationID: 7, GuestName: "Ana", Date: today, Type: models.MovementCheckOut},
			{ReservationID: 8, GuestName: "Bo", Date: today.AddDate(0, 0, 3), Type: models.MovementCheckIn},
		},
		2: {{ReservationID: 9, GuestName: "Cy", Date: today, Type: models.MovementCheckIn}},
	}}
	b := newTestBot(tg, sync, moves)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()

	expect := func(update tgbotapi.Update) string {
		t.Helper()
		tg.updates <- update
		select {
		case msg := <-tg.sent:
			assert.Equal(t, operatorChat, msg.ChatID)
			return msg.Text
		case <-time.After(2 * time.Second):
			t.Fatal("no reply")
			return ""
		}
	}

	assert.Equal(t, "Synced 3 updates\nFailed items: 1", expect(command(operatorChat, "/status")))
	assert.Contains(t, expect(command(operatorChat, "/sync")), models.StatusManualRequested)
	assert.Contains(t, expect(command(operatorChat, "/sync")), "already requested")
	assert.Equal(t, "📅 2025-07-01\n⬅ CHECK-OUT: Ana (Loft)\n➡ CHECK-IN: Cy (Beach)", expect(command(operatorChat, "/today")))
	assert.Contains(t, expect(command(operatorChat, "/help")), "/sync")

	// чужой чат игнорируется
	tg.updates <- command(7, "/sync")
	assert.Contains(t, expect(command(operatorChat, "/start")), "Commands")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}
	select {
	case <-tg.stopped:
	default:
		t.Fatal("updates were not stopped")
	}
}

func TestTodayMovements(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		b := newTestBot(newMockTelegram(), &fakeSync{}, fakeMovements{})
		text, err := b.todayMovements(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "📅 2025-07-01\nNo check-ins or check-outs today", text)
	})

	t.Run("Error", func(t *testing.T) {
		b := newTestBot(newMockTelegram(), &fakeSync{}, fakeMovements{err: errors.New("db down")})
		_, err := b.todayMovements(context.Background())
		assert.Error(t, err)
	})
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "No sync has run yet", formatStatus(models.SyncStatus{}))

	at := time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "System Synced (No changes)\nAt: 2025-07-01 10:30:00 UTC",
		formatStatus(models.SyncStatus{Message: models.StatusNoChanges, CreatedAt: at}))
}
