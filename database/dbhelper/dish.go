package dbhelper

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/models"
)

var (
	ErrDishNotFound         = errors.New("dish not found")
	ErrDishOffShelf         = errors.New("dish is off shelf")
	ErrDishWrongChef        = errors.New("dish does not belong to the bound chef")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInsufficientQuantity = errors.New("insufficient daily quantity")
)

func CreateDish(dish *models.Dish) error {
	images, err := json.Marshal(dish.Images)
	if err != nil {
		return err
	}
	return database.Chefly.QueryRow(`
		INSERT INTO dishes (chef_id, name, price, images, description, max_quantity, is_on_shelf)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		dish.ChefID, dish.Name, dish.Price, images, dish.Description, dish.MaxQuantity, dish.IsOnShelf).
		Scan(&dish.ID, &dish.CreatedAt)
}

func UpdateDish(dish *models.Dish) error {
	images, err := json.Marshal(dish.Images)
	if err != nil {
		return err
	}
	res, err := database.Chefly.Exec(`
		UPDATE dishes
		SET name = $1, price = $2, images = $3, description = $4, max_quantity = $5, is_on_shelf = $6
		WHERE id = $7 AND chef_id = $8 AND archived_at IS NULL`,
		dish.Name, dish.Price, images, dish.Description, dish.MaxQuantity, dish.IsOnShelf,
		dish.ID, dish.ChefID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDishNotFound
	}
	return nil
}

func ArchiveDish(dishID, chefID uuid.UUID) error {
	res, err := database.Chefly.Exec(`
		UPDATE dishes SET archived_at = now()
		WHERE id = $1 AND chef_id = $2 AND archived_at IS NULL`, dishID, chefID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDishNotFound
	}
	return nil
}

func ListDishesByChef(chefID uuid.UUID, onShelfOnly bool) ([]models.Dish, error) {
	query := `
		SELECT id, chef_id, name, price, images, description, max_quantity, is_on_shelf, created_at
		FROM dishes
		WHERE chef_id = $1 AND archived_at IS NULL`
	if onShelfOnly {
		query += ` AND is_on_shelf = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := database.Chefly.Query(query, chefID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dishes []models.Dish
	for rows.Next() {
		var d models.Dish
		var images []byte
		var description sql.NullString
		if err := rows.Scan(&d.ID, &d.ChefID, &d.Name, &d.Price, &images,
			&description, &d.MaxQuantity, &d.IsOnShelf, &d.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(images, &d.Images); err != nil {
			return nil, err
		}
		d.Description = description.String
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

// PricedItem is an order-line snapshot plus the dish's daily capacity,
// needed later to reserve inventory for the line.
type PricedItem struct {
	Item        models.OrderItem
	MaxQuantity int
}

// ItemRequest is one requested order line, by dish id and quantity.
type ItemRequest struct {
	DishID   uuid.UUID
	Quantity int
}

// PriceOrderItems validates catalog-level eligibility of every requested
// dish and computes the snapshot pricing. It performs no inventory checks
// and no writes; capacity is the ledger's concern.
func PriceOrderItems(tx *sql.Tx, chefID uuid.UUID, items []ItemRequest) (float64, []PricedItem, error) {
	var total float64
	priced := make([]PricedItem, 0, len(items))

	for _, req := range items {
		if req.Quantity < 1 {
			return 0, nil, fmt.Errorf("dish %s: %w", req.DishID, ErrInvalidQuantity)
		}

		var (
			d      models.Dish
			images []byte
		)
		err := tx.QueryRow(`
			SELECT id, chef_id, name, price, images, max_quantity, is_on_shelf
			FROM dishes
			WHERE id = $1 AND archived_at IS NULL`, req.DishID).
			Scan(&d.ID, &d.ChefID, &d.Name, &d.Price, &images, &d.MaxQuantity, &d.IsOnShelf)
		if err == sql.ErrNoRows {
			return 0, nil, fmt.Errorf("dish %s: %w", req.DishID, ErrDishNotFound)
		}
		if err != nil {
			return 0, nil, err
		}
		if !d.IsOnShelf {
			return 0, nil, fmt.Errorf("dish %s: %w", d.Name, ErrDishOffShelf)
		}
		if d.ChefID != chefID {
			return 0, nil, fmt.Errorf("dish %s: %w", d.Name, ErrDishWrongChef)
		}
		if err := json.Unmarshal(images, &d.Images); err != nil {
			return 0, nil, err
		}

		item := models.OrderItem{
			DishID:   d.ID,
			DishName: d.Name,
			Price:    d.Price,
			Quantity: req.Quantity,
		}
		if len(d.Images) > 0 {
			item.DishImage = d.Images[0]
		}
		total += item.Subtotal()
		priced = append(priced, PricedItem{Item: item, MaxQuantity: d.MaxQuantity})
	}

	return total, priced, nil
}

// ledgerDate derives the calendar date keying the daily ledger from a
// delivery instant. Reservation and release must compute the same key for
// the same instant, whatever offset the time value happens to carry, so
// the instant is pinned to UTC before the date is taken.
func ledgerDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// GetAvailableQuantity returns max_quantity minus the booked quantity for
// the dish on the given date, clamped at zero. A missing ledger row counts
// as zero booked.
func GetAvailableQuantity(dishID uuid.UUID, date time.Time) (int, error) {
	var available int
	err := database.Chefly.QueryRow(`
		SELECT d.max_quantity - COALESCE(q.booked_quantity, 0)
		FROM dishes d
		LEFT JOIN daily_dish_quantities q ON q.dish_id = d.id AND q.date = $2
		WHERE d.id = $1 AND d.archived_at IS NULL`,
		dishID, ledgerDate(date)).Scan(&available)
	if err == sql.ErrNoRows {
		return 0, ErrDishNotFound
	}
	if err != nil {
		return 0, err
	}
	if available < 0 {
		available = 0
	}
	return available, nil
}

// ReserveDish books qty units of the dish for the date. The insert and the
// capacity check are a single conditional statement, so two concurrent
// reservations can never both slip past max_quantity: zero rows affected
// means the reservation was refused and nothing changed.
func ReserveDish(tx *sql.Tx, dishID uuid.UUID, date time.Time, qty, maxQuantity int) error {
	res, err := tx.Exec(`
		INSERT INTO daily_dish_quantities (dish_id, date, booked_quantity)
		SELECT $1, $2::date, $3 WHERE $3 <= $4
		ON CONFLICT (dish_id, date) DO UPDATE
		SET booked_quantity = daily_dish_quantities.booked_quantity + $3
		WHERE daily_dish_quantities.booked_quantity + $3 <= $4`,
		dishID, ledgerDate(date), qty, maxQuantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientQuantity
	}
	return nil
}

// ReleaseDish gives back qty units, clamped at zero. It tolerates being
// called more times than the matching reserve and never fails on a missing
// row, so retried cancellations are harmless.
func ReleaseDish(tx *sql.Tx, dishID uuid.UUID, date time.Time, qty int) error {
	_, err := tx.Exec(`
		UPDATE daily_dish_quantities
		SET booked_quantity = GREATEST(booked_quantity - $3, 0)
		WHERE dish_id = $1 AND date = $2::date`,
		dishID, ledgerDate(date), qty)
	return err
}
