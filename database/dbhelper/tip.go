package dbhelper

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/models"
)

func CreateTip(tip *models.Tip) error {
	var orderID interface{}
	if tip.OrderID != nil {
		orderID = *tip.OrderID
	}
	var message interface{}
	if tip.Message != "" {
		message = tip.Message
	}
	return database.Chefly.QueryRow(`
		INSERT INTO tips (foodie_id, chef_id, order_id, amount, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		tip.FoodieID, tip.ChefID, orderID, tip.Amount, message, tip.Status).
		Scan(&tip.ID, &tip.CreatedAt)
}

const tipColumns = `id, foodie_id, chef_id, order_id, amount, COALESCE(message, ''),
	COALESCE(payment_id, ''), status, created_at`

func scanTip(row *sql.Row) (*models.Tip, error) {
	var t models.Tip
	var orderID uuid.NullUUID
	err := row.Scan(&t.ID, &t.FoodieID, &t.ChefID, &orderID, &t.Amount, &t.Message,
		&t.PaymentID, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if orderID.Valid {
		t.OrderID = &orderID.UUID
	}
	return &t, nil
}

func GetTipByID(tipID uuid.UUID) (*models.Tip, error) {
	return scanTip(database.Chefly.QueryRow(`
		SELECT `+tipColumns+` FROM tips WHERE id = $1`, tipID))
}

// GetTipByPaymentIDForUpdate locks the tip row during webhook
// reconciliation, mirroring the order-side discipline.
func GetTipByPaymentIDForUpdate(tx *sql.Tx, paymentID string) (*models.Tip, error) {
	return scanTip(tx.QueryRow(`
		SELECT `+tipColumns+` FROM tips WHERE payment_id = $1 FOR UPDATE`, paymentID))
}

// SetTipPaymentID records the TIP-prefixed merchant number before the
// gateway call, so the callback can find the row.
func SetTipPaymentID(tipID uuid.UUID, paymentID string) error {
	_, err := database.Chefly.Exec(`UPDATE tips SET payment_id = $1 WHERE id = $2`, paymentID, tipID)
	return err
}

func SetTipStatus(tx *sql.Tx, tipID uuid.UUID, status models.TipStatus, transactionID string) error {
	if transactionID != "" {
		_, err := tx.Exec(`UPDATE tips SET status = $1, payment_id = $2 WHERE id = $3`,
			status, transactionID, tipID)
		return err
	}
	_, err := tx.Exec(`UPDATE tips SET status = $1 WHERE id = $2`, status, tipID)
	return err
}
