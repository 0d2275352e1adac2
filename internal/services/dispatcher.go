// Package services – Dispatcher
//
// The Dispatcher delivers a message to a chat and records the resulting
// remote message identifier in the history store. Ordering is strict:
// transport send happens before the store write, so a record can never
// exist for a message that was not actually delivered. A failed send
// produces no record and is terminal for that call; whether a failed
// notification matters is the caller's decision.
package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-notify-bot/internal/domain"
)

// Transport is the remote chat service surface the services layer needs.
// Implementations live in internal/bot.
type Transport interface {
	// Send delivers text to a chat and returns the remote message identifier.
	Send(ctx context.Context, chatID, text string) (int, error)

	// Edit replaces the text of a previously sent message.
	Edit(ctx context.Context, chatID string, messageID int, text string) error

	// Delete removes a previously sent message.
	Delete(ctx context.Context, chatID string, messageID int) error
}

// HistoryStore is the persistence contract required by the services layer.
// *repo.NotificationStore satisfies it.
type HistoryStore interface {
	Add(ctx context.Context, chatID string, messageID int, command string, deviceName, osName *string, status domain.Status) (*domain.Notification, error)
	ListForChat(ctx context.Context, chatID string, limit int) ([]domain.Notification, error)
	DeleteForChat(ctx context.Context, chatID string) (int64, error)
}

// Dispatcher sends chat messages and tracks them in the history store.
type Dispatcher struct {
	Transport Transport
	Store     HistoryStore

	// DeviceName and OSName are stamped onto every record as origin metadata.
	DeviceName string
	OSName     string

	Log zerolog.Logger
}

// NewDispatcher constructs a Dispatcher with the given collaborators.
func NewDispatcher(tr Transport, store HistoryStore, deviceName, osName string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		Transport:  tr,
		Store:      store,
		DeviceName: deviceName,
		OSName:     osName,
		Log:        log,
	}
}

// Send delivers text to chatID and persists a record keyed by the returned
// remote message identifier. On transport failure no record is written and
// the error wraps ErrTransport. On store failure after a successful send the
// store error propagates; the remote message is deliberately left standing.
func (d *Dispatcher) Send(ctx context.Context, chatID, text, command string, status domain.Status) (*domain.Notification, error) {
	msgID, err := d.Transport.Send(ctx, chatID, text)
	if err != nil {
		return nil, fmt.Errorf("%w: send to chat %s: %v", ErrTransport, chatID, err)
	}
	d.Log.Info().Str("chat_id", chatID).Int("message_id", msgID).Msg("message sent")

	dev, osn := optional(d.DeviceName), optional(d.OSName)
	rec, err := d.Store.Add(ctx, chatID, msgID, command, dev, osn, status)
	if err != nil {
		d.Log.Error().Err(err).
			Str("chat_id", chatID).
			Int("message_id", msgID).
			Msg("message delivered but not recorded")
		return nil, err
	}
	return rec, nil
}

// optional maps "" to a NULL column value.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
