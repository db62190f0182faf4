// Package channel holds the user-facing surfaces: the Telegram bot the
// pipeline replies through, and the auxiliary HTTP listener for uptime
// probes.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"linklift/internal/compose"
	"linklift/internal/domain"
)

const telegramPollTimeout = 30 // seconds

// MessageFunc receives each non-command text message. The Telegram channel
// dispatches every message on its own goroutine; the pipeline itself stays
// strictly sequential per request.
type MessageFunc func(ctx context.Context, msg domain.Inbound)

// Telegram is the messaging surface. It implements domain.Surface for the
// pipeline's outbound side and polls for inbound updates.
type Telegram struct {
	token     string
	parseMode string

	bot       *tgbotapi.BotAPI
	composer  *compose.Composer
	onMessage MessageFunc
	logger    *slog.Logger
}

type TelegramConfig struct {
	Token     string
	ParseMode string
	Composer  *compose.Composer
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	return &Telegram{
		token:     cfg.Token,
		parseMode: cfg.ParseMode,
		composer:  cfg.Composer,
		logger:    cfg.Logger,
	}
}

// OnMessage registers the pipeline entry point. Must be called before Start.
func (t *Telegram) OnMessage(fn MessageFunc) { t.onMessage = fn }

// Start connects to Telegram and polls for updates until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		t.handleCommand(msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || t.onMessage == nil {
		return
	}

	kind := domain.ChatPrivate
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		kind = domain.ChatGroup
	}

	t.logger.Info("message received",
		"chat", msg.Chat.ID,
		"kind", kind,
		"sender", msg.From.FirstName,
		"text_len", len(text),
	)

	typing := tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	inbound := domain.Inbound{
		ChatID:     msg.Chat.ID,
		Kind:       kind,
		Text:       text,
		SenderName: msg.From.FirstName,
	}

	// Each message gets its own goroutine so one slow download never
	// stalls the update loop; requests share nothing.
	go t.onMessage(ctx, inbound)
}

func (t *Telegram) handleCommand(msg *tgbotapi.Message) {
	var text string
	switch msg.Command() {
	case "start":
		text = t.composer.Welcome()
	case "help":
		text = t.composer.Help()
	case "custom":
		text = t.composer.Custom()
	default:
		text = "Unknown command. Type /help for available commands."
	}
	t.send(msg.Chat.ID, text)
}

func (t *Telegram) send(chatID int64, text string) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = t.parseMode
	if _, err := t.bot.Send(out); err != nil {
		// Malformed user-supplied text can break Markdown parsing; retry plain.
		if strings.Contains(err.Error(), "can't parse entities") {
			plain := tgbotapi.NewMessage(chatID, text)
			if _, err2 := t.bot.Send(plain); err2 == nil {
				return
			}
		}
		t.logger.Error("telegram send failed", "chat", chatID, "err", err)
	}
}

// --- domain.Surface ---

func (t *Telegram) Reply(_ context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = t.parseMode
	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram send: %w", err)
	}
	return sent.MessageID, nil
}

func (t *Telegram) ReplyVideo(_ context.Context, chatID int64, video *domain.Transfer, caption string) error {
	out := tgbotapi.NewVideo(chatID, tgbotapi.FileBytes{Name: video.FileName, Bytes: video.Data})
	out.Caption = caption
	out.ParseMode = t.parseMode
	if _, err := t.bot.Send(out); err != nil {
		return fmt.Errorf("telegram video send: %w", err)
	}
	return nil
}

func (t *Telegram) Edit(_ context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = t.parseMode
	if _, err := t.bot.Send(edit); err != nil {
		return fmt.Errorf("telegram edit: %w", err)
	}
	return nil
}
