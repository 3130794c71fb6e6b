package notify

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/riskgate/internal/config"
)

// TelegramNotifier pushes blocked-trade alerts to an operator chat.
// Delivery is best effort; a failed send is logged and dropped.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier builds a notifier from config. Returns nil when
// telegram is disabled or the bot token is rejected; callers treat a
// nil notifier as notifications-off.
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	if !cfg.Enabled || cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Printf("[WARN] telegram notifier disabled: %v", err)
		return nil
	}
	return &TelegramNotifier{bot: bot, chatID: cfg.ChatID}
}

// Notify sends one text message to the operator chat
func (n *TelegramNotifier) Notify(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("[WARN] telegram send failed: %v", err)
	}
}
