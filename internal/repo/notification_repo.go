// Package repo implements the data persistence layer for notification
// history, backed by GORM. This file provides the NotificationStore, the
// single owner of all persisted records.
//
// Error semantics:
//   - Malformed input (zero message ID, blank chat ID) returns ErrInvalidRecord.
//   - On DB errors (connectivity, constraint violations) the gorm error is
//     wrapped in ErrPersistence and propagated.
//
// Every operation scopes its own connection through the GORM pool and is
// atomic per call; reads return detached copies, never live row references.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-notify-bot/internal/domain"
)

// ErrPersistence indicates the backing store was unreachable or rejected
// a read/write.
var ErrPersistence = errors.New("persistence failure")

// ErrInvalidRecord indicates a malformed record, e.g. a missing remote
// message identifier.
var ErrInvalidRecord = errors.New("invalid notification record")

// NotificationStore persists and queries notification history rows.
type NotificationStore struct {
	db *gorm.DB
}

// NewNotificationStore wraps an opened GORM handle.
func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Add inserts one notification with a store-assigned UTC timestamp and
// returns the persisted record. The command line is clipped at
// domain.CommandMaxLen runes. The write is atomic: either the full row is
// visible to subsequent reads or nothing is.
func (s *NotificationStore) Add(ctx context.Context, chatID string, messageID int, command string, deviceName, osName *string, status domain.Status) (*domain.Notification, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: empty chat id", ErrInvalidRecord)
	}
	if messageID <= 0 {
		return nil, fmt.Errorf("%w: missing message id", ErrInvalidRecord)
	}
	if !status.Valid() {
		status = domain.StatusCompleted
	}

	n := &domain.Notification{
		ChatID:     chatID,
		MessageID:  messageID,
		Timestamp:  time.Now().UTC(),
		Command:    clip(command, domain.CommandMaxLen),
		DeviceName: deviceName,
		OSName:     osName,
		Status:     status,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("%w: insert notification: %v", ErrPersistence, err)
	}
	return n, nil
}

// ListForChat returns the chat's records ordered most recent first
// (Timestamp DESC, ID DESC as a collision tiebreak). A chat with no records
// yields an empty slice, not an error. limit <= 0 returns all records.
func (s *NotificationStore) ListForChat(ctx context.Context, chatID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	q := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list notifications for chat %s: %v", ErrPersistence, chatID, err)
	}
	return out, nil
}

// DeleteForChat removes all records for the chat and returns the number of
// rows removed. Idempotent: a second call returns 0.
func (s *NotificationStore) DeleteForChat(ctx context.Context, chatID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&domain.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: delete notifications for chat %s: %v", ErrPersistence, chatID, res.Error)
	}
	return res.RowsAffected, nil
}

// clip truncates s to max runes.
func clip(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max])
}
