package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"github.com/py-sit/skyalert/internal/config"
	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/utils"
)

// Notifier pushes administrator notices to a Telegram chat. A Notifier built
// without a bot token is disabled and drops every message.
type Notifier struct {
	token  string
	chatID int64
	logger *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) *Notifier {
	return &Notifier{
		token:  cfg.Telegram.BotToken,
		chatID: cfg.Telegram.ChatID,
		logger: logger,
	}
}

// Enabled reports whether a bot token and chat are configured.
func (n *Notifier) Enabled() bool {
	return n.token != "" && n.chatID != 0
}

// Notify sends the text to the admin chat, retrying transient failures.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if !n.Enabled() {
		n.logger.Debugf("Telegram notifier disabled, dropping notice")
		return nil
	}
	return utils.Retry(n.logger, 3, time.Second, func() error {
		b, err := bot.New(n.token)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID: n.chatID,
			Text:   text,
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", n.chatID, err)
		}
		return nil
	})
}
