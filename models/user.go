package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleFoodie Role = "foodie"
	RoleChef   Role = "chef"
)

func (r Role) IsValid() bool {
	return r == RoleFoodie || r == RoleChef
}

type User struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Email       string     `db:"email" json:"email"`
	Password    string     `db:"password" json:"-"`
	Role        Role       `db:"role" json:"role"`
	OpenID      string     `db:"openid" json:"-"`
	BindingCode string     `db:"binding_code" json:"binding_code,omitempty"`
	TotalOrders int        `db:"total_orders" json:"total_orders"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ArchivedAt  *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

// Binding ties a foodie to exactly one chef. The unique constraint on
// foodie_id enforces the one-chef-per-foodie rule at the storage level.
type Binding struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FoodieID    uuid.UUID `db:"foodie_id" json:"foodie_id"`
	ChefID      uuid.UUID `db:"chef_id" json:"chef_id"`
	BindingCode string    `db:"binding_code" json:"binding_code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Address struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Name       string     `db:"name" json:"name"`
	Phone      string     `db:"phone" json:"phone"`
	Province   string     `db:"province" json:"province"`
	City       string     `db:"city" json:"city"`
	District   string     `db:"district" json:"district"`
	Detail     string     `db:"detail" json:"detail"`
	IsDefault  bool       `db:"is_default" json:"is_default"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}
