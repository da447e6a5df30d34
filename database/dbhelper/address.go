package dbhelper

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/models"
)

func CreateAddress(addr *models.Address) error {
	return database.Chefly.QueryRow(`
		INSERT INTO addresses (user_id, name, phone, province, city, district, detail, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		addr.UserID, addr.Name, addr.Phone, addr.Province, addr.City, addr.District,
		addr.Detail, addr.IsDefault).
		Scan(&addr.ID, &addr.CreatedAt)
}

// GetAddressForUser loads the address only if it belongs to userID;
// sql.ErrNoRows covers both "missing" and "not yours".
func GetAddressForUser(tx *sql.Tx, addressID, userID uuid.UUID) (*models.Address, error) {
	var a models.Address
	err := tx.QueryRow(`
		SELECT id, user_id, name, phone, province, city, district, detail, is_default, created_at
		FROM addresses
		WHERE id = $1 AND user_id = $2 AND archived_at IS NULL`, addressID, userID).
		Scan(&a.ID, &a.UserID, &a.Name, &a.Phone, &a.Province, &a.City, &a.District,
			&a.Detail, &a.IsDefault, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func ListAddresses(userID uuid.UUID) ([]models.Address, error) {
	rows, err := database.Chefly.Query(`
		SELECT id, user_id, name, phone, province, city, district, detail, is_default, created_at
		FROM addresses
		WHERE user_id = $1 AND archived_at IS NULL
		ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Phone, &a.Province, &a.City,
			&a.District, &a.Detail, &a.IsDefault, &a.CreatedAt); err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

// SnapshotAddress copies the mutable address fields into the immutable
// form embedded in orders.
func SnapshotAddress(a *models.Address) models.AddressSnapshot {
	return models.AddressSnapshot{
		Name:     a.Name,
		Phone:    a.Phone,
		Province: a.Province,
		City:     a.City,
		District: a.District,
		Detail:   a.Detail,
	}
}
