package dbhelper

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/models"
)

func CreateNotification(userID uuid.UUID, typ models.NotificationType, title, content string, data map[string]interface{}) error {
	var payload interface{}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := database.Chefly.Exec(`
		INSERT INTO notifications (user_id, type, title, content, data)
		VALUES ($1, $2, $3, $4, $5)`,
		userID, typ, title, content, payload)
	return err
}

// DispatchEvents persists the pending events a state-machine operation
// produced. It runs after the operation's transaction committed; failures
// are aggregated and reported but must not fail the business operation.
func DispatchEvents(events []models.Event) error {
	var result error
	for _, ev := range events {
		if err := CreateNotification(ev.UserID, ev.Type, ev.Title, ev.Content, ev.Data); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func ListNotifications(userID uuid.UUID, page, pageSize int) ([]models.Notification, int, error) {
	var total int
	err := database.Chefly.QueryRow(`
		SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := database.Chefly.Query(`
		SELECT id, user_id, type, title, content, data, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content,
			&data, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, 0, err
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, total, rows.Err()
}

func MarkNotificationRead(notificationID, userID uuid.UUID) error {
	_, err := database.Chefly.Exec(`
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2`, notificationID, userID)
	return err
}
