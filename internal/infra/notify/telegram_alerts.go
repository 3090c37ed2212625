package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/domain/ports/adapter"
)

var (
	_ adapter.OpsAlerter = (*TelegramAlerter)(nil)
	_ adapter.OpsAlerter = (*NoopAlerter)(nil)
)

// TelegramAlerter pushes operational alerts (gateway rejections, job failures)
// to the on-call Telegram chat. Best-effort: send errors are logged, never
// propagated.
type TelegramAlerter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

func NewTelegramAlerter(token string, chatID int64, logger *zerolog.Logger) (*TelegramAlerter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	aLog := logger.With().Str("component", "TelegramAlerter").Logger()
	return &TelegramAlerter{bot: bot, chatID: chatID, log: &aLog}, nil
}

func (a *TelegramAlerter) Alert(ctx context.Context, message string) {
	msg := tgbotapi.NewMessage(a.chatID, message)
	if _, err := a.bot.Send(msg); err != nil {
		a.log.Warn().Err(err).Msg("ops alert send failed")
	}
}

// NoopAlerter is used when no alerts.telegram_token is configured.
type NoopAlerter struct{}

func (NoopAlerter) Alert(context.Context, string) {}
