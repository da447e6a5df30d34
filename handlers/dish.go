package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/database/dbhelper"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
)

func CreateDish(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var dish models.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if dish.Name == "" || dish.Price <= 0 {
		http.Error(w, "name and a positive price are required", http.StatusBadRequest)
		return
	}
	if dish.MaxQuantity < 1 {
		dish.MaxQuantity = 10
	}
	if dish.Images == nil {
		dish.Images = []string{}
	}
	dish.ChefID = claims.UserID
	dish.IsOnShelf = true

	if err := dbhelper.CreateDish(&dish); err != nil {
		logrus.Printf("failed to create dish, error: %v", err)
		http.Error(w, "failed to create dish", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dish)
}

func UpdateDish(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	dishID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid dish id", http.StatusBadRequest)
		return
	}

	var dish models.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if dish.Name == "" || dish.Price <= 0 {
		http.Error(w, "name and a positive price are required", http.StatusBadRequest)
		return
	}
	if dish.Images == nil {
		dish.Images = []string{}
	}
	dish.ID = dishID
	dish.ChefID = claims.UserID

	// edits never touch existing orders; item snapshots are immutable
	if err := dbhelper.UpdateDish(&dish); err != nil {
		if errors.Is(err, dbhelper.ErrDishNotFound) {
			http.Error(w, "dish not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update dish", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dish)
}

func DeleteDish(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	dishID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid dish id", http.StatusBadRequest)
		return
	}

	if err := dbhelper.ArchiveDish(dishID, claims.UserID); err != nil {
		if errors.Is(err, dbhelper.ErrDishNotFound) {
			http.Error(w, "dish not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete dish", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "dish deleted"})
}

// ListChefDishes lists the chef's own menu, including off-shelf dishes.
func ListChefDishes(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	dishes, err := dbhelper.ListDishesByChef(claims.UserID, false)
	if err != nil {
		http.Error(w, "failed to list dishes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dishes)
}

// ListMenu shows the foodie the bound chef's on-shelf dishes, with the
// remaining bookable quantity for the requested date (default today).
func ListMenu(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	date := time.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		date, err = time.Parse("2006-01-02", d)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	var chefID uuid.UUID
	txErr := database.Tx(func(tx *sql.Tx) error {
		chefID, err = dbhelper.GetBoundChef(tx, claims.UserID)
		return err
	})
	if txErr == sql.ErrNoRows {
		http.Error(w, "please bind a chef first", http.StatusBadRequest)
		return
	} else if txErr != nil {
		http.Error(w, "failed to resolve chef", http.StatusInternalServerError)
		return
	}

	dishes, err := dbhelper.ListDishesByChef(chefID, true)
	if err != nil {
		http.Error(w, "failed to list dishes", http.StatusInternalServerError)
		return
	}

	type menuItem struct {
		models.Dish
		Available int `json:"available"`
	}

	menu := make([]menuItem, 0, len(dishes))
	for _, d := range dishes {
		available, err := dbhelper.GetAvailableQuantity(d.ID, date)
		if err != nil {
			http.Error(w, "failed to check availability", http.StatusInternalServerError)
			return
		}
		menu = append(menu, menuItem{Dish: d, Available: available})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"dishes": menu,
	})
}
