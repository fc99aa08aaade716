package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/klaxon/internal/client"
	"github.com/user/klaxon/internal/protocol"
	"github.com/user/klaxon/internal/registry"
)

const maxTelegramMessage = 4096

// Confirmer acknowledges a pending alert on behalf of the chat user.
type Confirmer interface {
	Confirm(ctx context.Context, id protocol.AlertID) error
}

// Adapter mirrors alerts into a Telegram chat and accepts confirmation
// commands back. Only the configured chat is served.
type Adapter struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	registry  *registry.Registry
	confirmer Confirmer
	status    func() client.Status
}

// New creates a Telegram adapter.
func New(token string, chatID int64, reg *registry.Registry, confirmer Confirmer, status func() client.Status) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{
		bot:       bot,
		chatID:    chatID,
		registry:  reg,
		confirmer: confirmer,
		status:    status,
	}, nil
}

// Name identifies the adapter in dispatch logs.
func (a *Adapter) Name() string {
	return "telegram"
}

// Present pushes an alert to the configured chat.
func (a *Adapter) Present(ctx context.Context, alert protocol.Alert) error {
	return a.send(a.chatID, formatAlert(alert))
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Ignore chats other than the configured one
	if a.chatID != 0 && msg.Chat.ID != a.chatID {
		return
	}
	if !msg.IsCommand() {
		return
	}
	a.handleCommand(ctx, msg)
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "status":
		st := a.status()
		a.sendResponse(chatID, fmt.Sprintf("State: %s\nAttempts: %d\nPending: %d",
			st.State, st.Attempts, a.registry.Count()))

	case "pending":
		pending := a.registry.Pending()
		if len(pending) == 0 {
			a.sendResponse(chatID, "No alerts awaiting confirmation.")
			return
		}
		var b strings.Builder
		b.WriteString("Pending confirmations:\n")
		for _, p := range pending {
			fmt.Fprintf(&b, "`%s` [%s] %s (expires %s)\n",
				p.ID, p.Level, p.Title, p.ExpiresAt.Format("15:04:05"))
		}
		a.sendResponse(chatID, b.String())

	case "confirm":
		id := strings.TrimSpace(msg.CommandArguments())
		if id == "" {
			a.sendResponse(chatID, "Usage: /confirm <alert-id>")
			return
		}
		if err := a.confirmer.Confirm(ctx, protocol.AlertID(id)); err != nil {
			a.sendResponse(chatID, fmt.Sprintf("Could not confirm %s: %v", id, err))
			return
		}
		a.sendResponse(chatID, fmt.Sprintf("Confirmed %s.", id))

	default:
		a.sendResponse(chatID, "Unknown command. Available: /status, /pending, /confirm <id>")
	}
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	if err := a.send(chatID, text); err != nil {
		log.Printf("send message error: %v", err)
	}
}

func (a *Adapter) send(chatID int64, text string) error {
	parts := splitMessage(text)
	for _, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatAlert(alert protocol.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*[%s]* %s\n", strings.ToUpper(string(alert.Level)), alert.Title)
	b.WriteString(alert.Message)
	if alert.RequiresConfirmation {
		fmt.Fprintf(&b, "\n\nConfirm with /confirm %s", alert.ID)
	}
	return b.String()
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
