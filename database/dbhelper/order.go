package dbhelper

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/models"
	"github.com/chefly/chefly/utils"
)

var ErrOrderNoExhausted = errors.New("order number allocation exhausted")

const orderNoMaxAttempts = 5

// AllocateOrderNo generates a candidate order number and checks the store
// for a collision, regenerating up to orderNoMaxAttempts times. The
// timestamp+random format makes collisions astronomically rare; exhausting
// the retries indicates something is badly wrong (a stuck clock, a broken
// random source) and is treated as fatal, not retryable.
func AllocateOrderNo(tx *sql.Tx) (string, error) {
	for i := 0; i < orderNoMaxAttempts; i++ {
		orderNo := utils.NewOrderNo()

		var exists bool
		err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM orders WHERE order_no = $1)`, orderNo).
			Scan(&exists)
		if err != nil {
			return "", err
		}
		if !exists {
			return orderNo, nil
		}
	}
	return "", ErrOrderNoExhausted
}

func CreateOrder(tx *sql.Tx, order *models.Order) error {
	var remarks interface{}
	if order.Remarks != "" {
		remarks = order.Remarks
	}

	err := tx.QueryRow(`
		INSERT INTO orders (order_no, foodie_id, chef_id, status, total_price, delivery_time, address_snapshot, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		order.OrderNo, order.FoodieID, order.ChefID, order.Status, order.TotalPrice,
		order.DeliveryTime, order.AddressSnapshot, remarks).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.QueryRow(`
			INSERT INTO order_items (order_id, dish_id, dish_name, dish_image, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			item.OrderID, item.DishID, item.DishName, item.DishImage, item.Price, item.Quantity).
			Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `id, order_no, foodie_id, chef_id, status, total_price, delivery_time,
	address_snapshot, COALESCE(remarks, ''), COALESCE(cancel_reason, ''), is_reviewed,
	COALESCE(payment_id, ''), COALESCE(payment_fail_reason, ''), created_at, completed_at`

func scanOrder(row *sql.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.OrderNo, &o.FoodieID, &o.ChefID, &o.Status, &o.TotalPrice,
		&o.DeliveryTime, &o.AddressSnapshot, &o.Remarks, &o.CancelReason, &o.IsReviewed,
		&o.PaymentID, &o.PayFailReason, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func GetOrderByID(orderID uuid.UUID) (*models.Order, error) {
	return scanOrder(database.Chefly.QueryRow(`
		SELECT `+orderColumns+` FROM orders
		WHERE id = $1 AND archived_at IS NULL`, orderID))
}

// GetOrderForUpdate reads the order inside tx holding a row-level exclusive
// lock, so the status-check-then-transition step of the caller cannot race
// a concurrent action on the same order.
func GetOrderForUpdate(tx *sql.Tx, orderID uuid.UUID) (*models.Order, error) {
	return scanOrder(tx.QueryRow(`
		SELECT `+orderColumns+` FROM orders
		WHERE id = $1 AND archived_at IS NULL
		FOR UPDATE`, orderID))
}

// GetOrderByNoForUpdate is the webhook-side locked lookup by the merchant
// order number. Two concurrent deliveries of the same payment event
// serialize here, so only one can observe status = unpaid.
func GetOrderByNoForUpdate(tx *sql.Tx, orderNo string) (*models.Order, error) {
	return scanOrder(tx.QueryRow(`
		SELECT `+orderColumns+` FROM orders
		WHERE order_no = $1 AND archived_at IS NULL
		FOR UPDATE`, orderNo))
}

// Querier lets order-item reads run either on the pool or inside a
// transaction.
type Querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func GetOrderItems(q Querier, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := q.Query(`
		SELECT id, order_id, dish_id, dish_name, COALESCE(dish_image, ''), price, quantity
		FROM order_items
		WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.DishID, &it.DishName,
			&it.DishImage, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func UpdateOrderStatus(tx *sql.Tx, orderID uuid.UUID, status models.OrderStatus) error {
	_, err := tx.Exec(`UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	return err
}

func MarkOrderPaid(tx *sql.Tx, orderID uuid.UUID, transactionID string) error {
	_, err := tx.Exec(`
		UPDATE orders SET status = $1, payment_id = $2, payment_fail_reason = NULL
		WHERE id = $3`, models.StatusPending, transactionID, orderID)
	return err
}

// SetOrderPaymentFailed records the gateway's failure reason on the order.
// The status is untouched: the order stays unpaid and payable.
func SetOrderPaymentFailed(tx *sql.Tx, orderID uuid.UUID, reason string) error {
	_, err := tx.Exec(`
		UPDATE orders SET payment_fail_reason = $1
		WHERE id = $2`, reason, orderID)
	return err
}

func SetOrderCancelled(tx *sql.Tx, orderID uuid.UUID, reason string) error {
	_, err := tx.Exec(`
		UPDATE orders SET status = $1, cancel_reason = $2
		WHERE id = $3`, models.StatusCancelled, reason, orderID)
	return err
}

func SetOrderCompleted(tx *sql.Tx, orderID uuid.UUID, completedAt time.Time) error {
	_, err := tx.Exec(`
		UPDATE orders SET status = $1, completed_at = $2
		WHERE id = $3`, models.StatusCompleted, completedAt, orderID)
	return err
}

// ReleaseOrderItems gives back every line item's reservation at the order's
// delivery date. Runs in the same transaction as the cancelling status write.
func ReleaseOrderItems(tx *sql.Tx, order *models.Order, items []models.OrderItem) error {
	deliveryDate := order.DeliveryTime
	for _, item := range items {
		if err := ReleaseDish(tx, item.DishID, deliveryDate, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ListOrders pages through a party's orders, newest first. userColumn picks
// which side of the order the caller is on.
func ListOrders(userColumn string, userID uuid.UUID, status models.OrderStatus, page, pageSize int) ([]models.Order, int, error) {
	if userColumn != "foodie_id" && userColumn != "chef_id" {
		return nil, 0, errors.New("invalid user column")
	}

	where := ` WHERE ` + userColumn + ` = $1 AND archived_at IS NULL`
	args := []interface{}{userID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int
	if err := database.Chefly.QueryRow(`SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	rows, err := database.Chefly.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.OrderNo, &o.FoodieID, &o.ChefID, &o.Status, &o.TotalPrice,
			&o.DeliveryTime, &o.AddressSnapshot, &o.Remarks, &o.CancelReason, &o.IsReviewed,
			&o.PaymentID, &o.PayFailReason, &o.CreatedAt, &o.CompletedAt); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}
