package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	Token  string
	ChatID int64
	// Endpoint overrides the bot API URL format, mainly for tests
	// (default tgbotapi.APIEndpoint).
	Endpoint string
	Logger   *slog.Logger
}

// Telegram sends HTML messages to one chat through the bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// ErrTelegramNotConfigured is returned when the token or chat id is missing.
var ErrTelegramNotConfigured = errors.New("notify: telegram token and chat id are required")

// NewTelegram returns a Telegram channel. The token is checked against the
// API once.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, ErrTelegramNotConfigured
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, &ErrSendFailed{Channel: "telegram", Platform: "telegram", Cause: fmt.Errorf("connect: %w", err)}
	}
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: logger}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Send splits text into ChunkSize parts and sends them in order. A failed
// part is logged and the remaining parts are still sent; the first failure
// is returned.
func (t *Telegram) Send(ctx context.Context, text string) error {
	parts := Chunk(text, ChunkSize)
	var first error
	for i, p := range parts {
		if err := ctx.Err(); err != nil {
			if first == nil {
				first = &ErrSendFailed{Channel: t.Name(), Platform: "telegram", Part: i + 1, Cause: err}
			}
			break
		}
		msg := tgbotapi.NewMessage(t.chatID, p)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Warn("notify: telegram part failed", "part", i+1, "parts", len(parts), "error", err)
			if first == nil {
				first = &ErrSendFailed{Channel: t.Name(), Platform: "telegram", Part: i + 1, Cause: err}
			}
		}
	}
	return first
}
