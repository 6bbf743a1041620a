package orders

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// escapeTelegramMarkdown escapes special Markdown characters for Telegram messages.
func escapeTelegramMarkdown(s string) string {
	for _, ch := range []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"} {
		s = strings.ReplaceAll(s, ch, "\\"+ch)
	}
	return s
}

// sender is the part of tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts accepted orders to one Telegram chat.
type TelegramNotifier struct {
	bot    sender
	chatID int64
	logger *slog.Logger
}

// NewTelegramNotifier connects to the bot API. It returns nil, nil when
// botToken or chatID is unset, which disables notifications.
func NewTelegramNotifier(botToken string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	if botToken == "" || chatID == 0 {
		logger.Info("Telegram not configured, order notifications disabled")
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	logger.Info("Telegram bot initialized", "bot_name", bot.Self.UserName)

	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// FormatOrder renders the notification text for an order.
func FormatOrder(o Order) string {
	emoji := "\U0001F7E2" // green circle
	if o.Side == "SELL" {
		emoji = "\U0001F534" // red circle
	}
	return fmt.Sprintf("%s *%s* %d × %s\nPrice: %s\nOrder: %s",
		emoji,
		escapeTelegramMarkdown(o.Side),
		o.Qty,
		escapeTelegramMarkdown(o.Symbol),
		escapeTelegramMarkdown(fmt.Sprintf("%.2f", o.Price)),
		escapeTelegramMarkdown(o.ID),
	)
}

// NotifyOrder sends the order to the configured chat. Failures are logged.
func (t *TelegramNotifier) NotifyOrder(o Order) {
	if t == nil || t.bot == nil {
		return
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatOrder(o))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("Failed to send Telegram notification", "order_id", o.ID, "chat_id", t.chatID, "error", err)
		return
	}
	t.logger.Info("Telegram notification sent", "order_id", o.ID)
}
