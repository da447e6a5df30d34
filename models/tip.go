package models

import (
	"time"

	"github.com/google/uuid"
)

type TipStatus string

const (
	TipPending TipStatus = "pending"
	TipPaid    TipStatus = "paid"
	TipFailed  TipStatus = "failed"
)

type Tip struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	FoodieID  uuid.UUID  `db:"foodie_id" json:"foodie_id"`
	ChefID    uuid.UUID  `db:"chef_id" json:"chef_id"`
	OrderID   *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	Amount    float64    `db:"amount" json:"amount"`
	Message   string     `db:"message" json:"message,omitempty"`
	PaymentID string     `db:"payment_id" json:"-"`
	Status    TipStatus  `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
