package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusUnpaid     OrderStatus = "unpaid"
	StatusPending    OrderStatus = "pending"
	StatusAccepted   OrderStatus = "accepted"
	StatusCooking    OrderStatus = "cooking"
	StatusDelivering OrderStatus = "delivering"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// statusTransitions is the single source of truth for the order lifecycle.
// Every action handler checks it; there is no per-operation status comparison.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusUnpaid:     {StatusPending, StatusCancelled},
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusCooking, StatusCancelled},
	StatusCooking:    {StatusDelivering},
	StatusDelivering: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	next, ok := statusTransitions[s]
	return ok && len(next) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AddressSnapshot is the delivery address copied into the order at creation.
// Later edits to the source address never change it.
type AddressSnapshot struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Province string `json:"province"`
	City     string `json:"city"`
	District string `json:"district"`
	Detail   string `json:"detail"`
}

func (a AddressSnapshot) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AddressSnapshot) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("address snapshot: cannot scan %T", src)
	}
	return json.Unmarshal(b, a)
}

type Order struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	OrderNo         string          `db:"order_no" json:"order_no"`
	FoodieID        uuid.UUID       `db:"foodie_id" json:"foodie_id"`
	ChefID          uuid.UUID       `db:"chef_id" json:"chef_id"`
	Status          OrderStatus     `db:"status" json:"status"`
	TotalPrice      float64         `db:"total_price" json:"total_price"`
	DeliveryTime    time.Time       `db:"delivery_time" json:"delivery_time"`
	AddressSnapshot AddressSnapshot `db:"address_snapshot" json:"address"`
	Remarks         string          `db:"remarks" json:"remarks,omitempty"`
	CancelReason    string          `db:"cancel_reason" json:"cancel_reason,omitempty"`
	IsReviewed      bool            `db:"is_reviewed" json:"is_reviewed"`
	PaymentID       string          `db:"payment_id" json:"-"`
	PayFailReason   string          `db:"payment_fail_reason" json:"payment_fail_reason,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	ArchivedAt      *time.Time      `db:"archived_at" json:"-"`
	Items           []OrderItem     `db:"-" json:"items,omitempty"`
}

// OrderItem carries a snapshot of the dish at order time; the live dish
// record can change or disappear without affecting it.
type OrderItem struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	DishID    uuid.UUID `db:"dish_id" json:"dish_id"`
	DishName  string    `db:"dish_name" json:"dish_name"`
	DishImage string    `db:"dish_image" json:"dish_image,omitempty"`
	Price     float64   `db:"price" json:"price"`
	Quantity  int       `db:"quantity" json:"quantity"`
}

func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
