package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifyNewOrder    NotificationType = "new_order"
	NotifyOrderStatus NotificationType = "order_status"
	NotifyBinding     NotificationType = "binding"
	NotifyTip         NotificationType = "tip"
	NotifySystem      NotificationType = "system"
)

type Notification struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	UserID    uuid.UUID              `db:"user_id" json:"user_id"`
	Type      NotificationType       `db:"type" json:"type"`
	Title     string                 `db:"title" json:"title"`
	Content   string                 `db:"content" json:"content"`
	Data      map[string]interface{} `db:"data" json:"data,omitempty"`
	IsRead    bool                   `db:"is_read" json:"is_read"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Event is a pending notification produced by a state-machine operation.
// The operation runs inside a transaction; events are dispatched by the
// caller only after that transaction commits.
type Event struct {
	UserID  uuid.UUID
	Type    NotificationType
	Title   string
	Content string
	Data    map[string]interface{}
}

// OrderEvent builds the standard payload carried by order notifications.
func OrderEvent(userID uuid.UUID, typ NotificationType, title, content string, order *Order) Event {
	return Event{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Content: content,
		Data: map[string]interface{}{
			"order_id": order.ID.String(),
			"order_no": order.OrderNo,
			"status":   string(order.Status),
		},
	}
}
