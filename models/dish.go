package models

import (
	"time"

	"github.com/google/uuid"
)

type Dish struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ChefID      uuid.UUID  `db:"chef_id" json:"chef_id"`
	Name        string     `db:"name" json:"name"`
	Price       float64    `db:"price" json:"price"`
	Images      []string   `db:"images" json:"images"`
	Description string     `db:"description" json:"description,omitempty"`
	MaxQuantity int        `db:"max_quantity" json:"max_quantity"`
	IsOnShelf   bool       `db:"is_on_shelf" json:"is_on_shelf"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ArchivedAt  *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

// DailyDishQuantity tracks committed inventory per dish per calendar date.
// Rows are created lazily on first reservation and never deleted.
type DailyDishQuantity struct {
	ID             uuid.UUID `db:"id" json:"id"`
	DishID         uuid.UUID `db:"dish_id" json:"dish_id"`
	Date           time.Time `db:"date" json:"date"`
	BookedQuantity int       `db:"booked_quantity" json:"booked_quantity"`
}
