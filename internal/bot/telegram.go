// Package bot provides the Telegram-facing surface of the notifier: the
// transport adapter used to send, edit, and delete messages, the long-poll
// command loop, and the liveness progress ticker shown after the wrapped
// command finishes.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-notify-bot/internal/services"
)

// Telegram adapts the Bot API to the services.Transport contract. Outbound
// calls are gated by a rate limiter; Telegram throttles bots that burst.
type Telegram struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ services.Transport = (*Telegram)(nil)

// NewTelegram authorizes against the Bot API with the given token.
func NewTelegram(token string, log zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	log.Info().Str("bot", api.Self.UserName).Msg("authorized on telegram")
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 5),
		log:     log,
	}, nil
}

// Send delivers text (HTML parse mode) and returns the remote message ID.
func (t *Telegram) Send(ctx context.Context, chatID, text string) (int, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return 0, err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit replaces the text of a previously sent message.
func (t *Telegram) Edit(ctx context.Context, chatID string, messageID int, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(id, messageID, text)
	_, err = t.api.Request(edit)
	return err
}

// Delete removes a previously sent message.
func (t *Telegram) Delete(ctx context.Context, chatID string, messageID int) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = t.api.Request(tgbotapi.NewDeleteMessage(id, messageID))
	return err
}

// Commands long-polls the Bot API and emits inbound bot commands until the
// context is cancelled. The returned channel is closed on shutdown.
func (t *Telegram) Commands(ctx context.Context) <-chan Command {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.api.GetUpdatesChan(cfg)

	out := make(chan Command)
	go func() {
		defer close(out)
		defer t.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				if u.Message == nil || !u.Message.IsCommand() {
					continue
				}
				cmd := Command{
					Name:   u.Message.Command(),
					ChatID: strconv.FormatInt(u.Message.Chat.ID, 10),
				}
				select {
				case out <- cmd:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}
