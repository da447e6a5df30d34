package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chefly/chefly/config"
	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/database/dbhelper"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
	"github.com/chefly/chefly/wxpay"
)

// CreateTip records a pending tip from the foodie to their bound chef,
// optionally referencing an order.
func CreateTip(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		Amount  float64    `json:"amount"`
		Message string     `json:"message"`
		OrderID *uuid.UUID `json:"order_id"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
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

	if req.OrderID != nil {
		order, err := dbhelper.GetOrderByID(*req.OrderID)
		if err == sql.ErrNoRows || (err == nil && order.FoodieID != claims.UserID) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		} else if err != nil {
			http.Error(w, "failed to fetch order", http.StatusInternalServerError)
			return
		}
	}

	tip := &models.Tip{
		FoodieID: claims.UserID,
		ChefID:   chefID,
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Message:  req.Message,
		Status:   models.TipPending,
	}
	if err := dbhelper.CreateTip(tip); err != nil {
		logrus.Printf("failed to create tip, error: %v", err)
		http.Error(w, "failed to create tip", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tip)
}

// PayTip creates the gateway payment for a pending tip. The TIP-prefixed
// merchant number is stored before the gateway call so the callback can
// find the row.
func PayTip(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tipID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid tip id", http.StatusBadRequest)
		return
	}

	tip, err := dbhelper.GetTipByID(tipID)
	if err == sql.ErrNoRows {
		http.Error(w, "tip not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, "failed to fetch tip", http.StatusInternalServerError)
		return
	}
	if tip.FoodieID != claims.UserID {
		http.Error(w, "tip not found", http.StatusNotFound)
		return
	}
	if tip.Status != models.TipPending {
		http.Error(w, "tip is not payable", http.StatusConflict)
		return
	}

	user, err := dbhelper.GetUserByID(claims.UserID)
	if err != nil {
		http.Error(w, "failed to fetch user", http.StatusInternalServerError)
		return
	}
	if user.OpenID == "" {
		http.Error(w, "wallet identity not linked", http.StatusBadRequest)
		return
	}

	tipOrderNo := "TIP" + strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
	if err := dbhelper.SetTipPaymentID(tip.ID, tipOrderNo); err != nil {
		http.Error(w, "failed to record payment reference", http.StatusInternalServerError)
		return
	}

	client := wxpay.NewClient(config.Wechat)
	prepayID, err := client.UnifiedOrder(
		tipOrderNo,
		toFee(tip.Amount),
		tipDescription(tip.Message),
		user.OpenID,
		config.Wechat.TipNotifyURL,
		clientIP(r),
	)
	if err != nil {
		logrus.Printf("unified order failed for tip %s, error: %v", tip.ID, err)
		http.Error(w, "payment gateway unavailable, please retry", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tip_id":         tip.ID,
		"amount":         tip.Amount,
		"payment_params": client.PaymentParams(prepayID),
	})
}

func tipDescription(message string) string {
	if message == "" {
		return "私厨打赏-感谢大厨"
	}
	return fmt.Sprintf("私厨打赏-%s", message)
}
