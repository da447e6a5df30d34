package dbhelper

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/models"
)

func CreateUser(tx *sql.Tx, name, email, hashedPassword string, role models.Role) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(`
		INSERT INTO users (name, email, password, role)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		name, email, hashedPassword, role).Scan(&id)
	return id, err
}

func IsUserExists(email string) (bool, error) {
	var count int
	err := database.Chefly.QueryRow(`SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER($1)`, email).Scan(&count)
	return count > 0, err
}

func GetUserByPassword(email, password string) (uuid.UUID, string, models.Role, error) {
	var id uuid.UUID
	var name, hashedPassword string
	var role models.Role

	err := database.Chefly.QueryRow(`
		SELECT id, name, password, role FROM users
		WHERE LOWER(email) = LOWER($1) AND archived_at IS NULL`, email).
		Scan(&id, &name, &hashedPassword, &role)
	if err != nil {
		return uuid.Nil, "", "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) != nil {
		return uuid.Nil, "", "", fmt.Errorf("incorrect password")
	}

	return id, name, role, nil
}

func GetUserByID(userID uuid.UUID) (*models.User, error) {
	var u models.User
	var openid, bindingCode sql.NullString
	err := database.Chefly.QueryRow(`
		SELECT id, name, email, role, openid, binding_code, total_orders, created_at
		FROM users
		WHERE id = $1 AND archived_at IS NULL`, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &openid, &bindingCode, &u.TotalOrders, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.OpenID = openid.String
	u.BindingCode = bindingCode.String
	return &u, nil
}

// SetBindingCode stores the chef's shareable 8-char code foodies bind with.
func SetBindingCode(tx *sql.Tx, chefID uuid.UUID, code string) error {
	_, err := tx.Exec(`UPDATE users SET binding_code = $1 WHERE id = $2`, code, chefID)
	return err
}

// GetChefByBindingCode resolves a binding code to the owning chef.
func GetChefByBindingCode(code string) (uuid.UUID, error) {
	var chefID uuid.UUID
	err := database.Chefly.QueryRow(`
		SELECT id FROM users
		WHERE binding_code = $1 AND role = 'chef' AND archived_at IS NULL`, code).
		Scan(&chefID)
	return chefID, err
}

func CreateBinding(tx *sql.Tx, foodieID, chefID uuid.UUID, code string) error {
	_, err := tx.Exec(`
		INSERT INTO bindings (foodie_id, chef_id, binding_code)
		VALUES ($1, $2, $3)`, foodieID, chefID, code)
	return err
}

func IsFoodieBound(foodieID uuid.UUID) (bool, error) {
	var bound bool
	err := database.Chefly.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM bindings WHERE foodie_id = $1)`, foodieID).Scan(&bound)
	return bound, err
}

// GetBoundChef returns the single chef the foodie is bound to.
// sql.ErrNoRows means the foodie has no binding yet.
func GetBoundChef(tx *sql.Tx, foodieID uuid.UUID) (uuid.UUID, error) {
	var chefID uuid.UUID
	err := tx.QueryRow(`SELECT chef_id FROM bindings WHERE foodie_id = $1`, foodieID).Scan(&chefID)
	return chefID, err
}

// IncrementChefOrderCount bumps the chef's lifetime completed-order counter.
// Called from receipt confirmation inside the same transaction as the
// status write.
func IncrementChefOrderCount(tx *sql.Tx, chefID uuid.UUID) error {
	_, err := tx.Exec(`UPDATE users SET total_orders = total_orders + 1 WHERE id = $1`, chefID)
	return err
}
