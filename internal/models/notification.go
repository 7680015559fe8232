package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений settlement подсистемы.
const (
	NotificationTypeContract     = "contract"
	NotificationTypeCancellation = "cancellation"
	NotificationTypeDispute      = "dispute"
	NotificationTypeExtension    = "extension"
)

// Notification описывает событие, отправленное стороне контракта.
// Доставка — fire-and-forget: сбой доставки не откатывает операцию.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Role      string     `db:"role" json:"role"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Type      string     `db:"type" json:"type"`
	RelatedID *uuid.UUID `db:"related_id" json:"related_id,omitempty"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
