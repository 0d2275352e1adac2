// Package domain defines the persistence model for notification history.
// A Notification row is written each time the bot successfully delivers a
// message to a chat, and is the unit the retraction protocol sweeps over.
// The type is mapped with GORM and forms the core data layer of the notifier.
package domain

import (
	"time"
)

// Status classifies the lifecycle point a notification was sent at.
// It is a closed set; StatusCompleted is the legacy default for callers
// that do not track lifecycle.
type Status string

// Allowed Status values.
const (
	StatusStarted   Status = "started"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the allowed status values.
func (s Status) Valid() bool {
	switch s {
	case StatusStarted, StatusSuccess, StatusFailed, StatusCompleted:
		return true
	}
	return false
}

// CommandMaxLen caps the stored command line. Longer command lines are
// clipped at the store boundary so display contexts never re-derive limits.
const CommandMaxLen = 512

// Notification represents one message the bot sent to a chat, keyed by the
// remote message identifier so it can be deleted later.
//
// Fields:
//   - ID: auto-increment primary key assigned by the store.
//   - ChatID: destination conversation; indexed, many rows per chat.
//   - MessageID: identifier assigned by the remote service on send. Required
//     for retraction; a zero value marks the record invalid.
//   - Timestamp: creation time (UTC), used for ordering and display.
//   - Command: the wrapped shell command line, whitespace-joined tokens.
//   - DeviceName / OSName: optional origin metadata, nullable.
//   - Status: lifecycle tag, see Status.
type Notification struct {
	ID         int64     `json:"id"          gorm:"primaryKey;autoIncrement"`
	ChatID     string    `json:"chat_id"     gorm:"type:varchar(64);not null;index:idx_chat_id"`
	MessageID  int       `json:"message_id"  gorm:"not null"`
	Timestamp  time.Time `json:"timestamp"   gorm:"not null;index:idx_timestamp,sort:desc"`
	Command    string    `json:"command"     gorm:"type:varchar(512);not null"`
	DeviceName *string   `json:"device_name,omitempty" gorm:"type:varchar(255)"`
	OSName     *string   `json:"os_name,omitempty"     gorm:"type:varchar(64)"`
	Status     Status    `json:"status"      gorm:"type:varchar(16);not null;default:'completed'"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// ShortCommand returns the command elided beyond max runes with a trailing
// "..." marker, for display in the stats report.
func (n Notification) ShortCommand(max int) string {
	r := []rune(n.Command)
	if max <= 0 || len(r) <= max {
		return n.Command
	}
	return string(r[:max]) + "..."
}

// Statistics is the aggregate diagnostic report over the whole store.
type Statistics struct {
	TotalNotifications int64 `json:"total_notifications"`
	UniqueChats        int64 `json:"unique_chats"`
	UniqueDevices      int64 `json:"unique_devices"`
	UniqueOS           int64 `json:"unique_os"`
}
