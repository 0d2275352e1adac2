// Package repo implements the data persistence layer for notification
// history, backed by GORM. This file provides the aggregate statistics query
// used by the diagnostics command. It is not on the retraction protocol's
// correctness path.
package repo

import (
	"context"
	"fmt"

	"github.com/tbourn/go-notify-bot/internal/domain"
)

// Statistics returns aggregate counts over the whole store: total rows,
// distinct chats, distinct devices, and distinct operating systems.
// NULL device/OS values do not contribute to the distinct counts.
func (s *NotificationStore) Statistics(ctx context.Context) (domain.Statistics, error) {
	var row struct {
		TotalNotifications int64
		UniqueChats        int64
		UniqueDevices      int64
		UniqueOS           int64
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*)                      AS total_notifications,
			COUNT(DISTINCT chat_id)       AS unique_chats,
			COUNT(DISTINCT device_name)   AS unique_devices,
			COUNT(DISTINCT os_name)       AS unique_os
		FROM notifications
	`).Scan(&row).Error
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("%w: statistics: %v", ErrPersistence, err)
	}
	return domain.Statistics{
		TotalNotifications: row.TotalNotifications,
		UniqueChats:        row.UniqueChats,
		UniqueDevices:      row.UniqueDevices,
		UniqueOS:           row.UniqueOS,
	}, nil
}
