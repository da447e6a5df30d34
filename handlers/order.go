package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/database/dbhelper"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
)

const maxRemarksLength = 256

// CreateOrder validates the request, reserves daily inventory and persists
// the order with its item snapshots, all inside one transaction. A refused
// reservation aborts the transaction, so partial bookings never survive.
func CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type itemRequest struct {
		DishID   uuid.UUID `json:"dish_id"`
		Quantity int       `json:"quantity"`
	}
	type request struct {
		Items        []itemRequest `json:"items"`
		DeliveryTime time.Time     `json:"delivery_time"`
		AddressID    uuid.UUID     `json:"address_id"`
		Remarks      string        `json:"remarks"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		http.Error(w, "at least one item is required", http.StatusBadRequest)
		return
	}
	if req.DeliveryTime.Before(time.Now()) {
		http.Error(w, "delivery time must not be in the past", http.StatusBadRequest)
		return
	}
	if len(req.Remarks) > maxRemarksLength {
		http.Error(w, "remarks too long", http.StatusBadRequest)
		return
	}

	items := make([]dbhelper.ItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, dbhelper.ItemRequest{DishID: it.DishID, Quantity: it.Quantity})
	}

	order := &models.Order{
		FoodieID:     claims.UserID,
		Status:       models.StatusUnpaid,
		DeliveryTime: req.DeliveryTime,
		Remarks:      req.Remarks,
	}

	txErr := database.Tx(func(tx *sql.Tx) error {
		chefID, err := dbhelper.GetBoundChef(tx, claims.UserID)
		if err == sql.ErrNoRows {
			return errNotBound
		}
		if err != nil {
			return err
		}
		order.ChefID = chefID

		address, err := dbhelper.GetAddressForUser(tx, req.AddressID, claims.UserID)
		if err == sql.ErrNoRows {
			return errAddressNotFound
		}
		if err != nil {
			return err
		}
		order.AddressSnapshot = dbhelper.SnapshotAddress(address)

		total, priced, err := dbhelper.PriceOrderItems(tx, chefID, items)
		if err != nil {
			return err
		}
		order.TotalPrice = total

		// reserve every line; the atomic conditional update refuses the
		// whole transaction on the first line that would overbook
		for _, p := range priced {
			if err := dbhelper.ReserveDish(tx, p.Item.DishID, req.DeliveryTime, p.Item.Quantity, p.MaxQuantity); err != nil {
				return fmt.Errorf("dish %s: %w", p.Item.DishName, err)
			}
			order.Items = append(order.Items, p.Item)
		}

		orderNo, err := dbhelper.AllocateOrderNo(tx)
		if err != nil {
			return err
		}
		order.OrderNo = orderNo

		return dbhelper.CreateOrder(tx, order)
	})
	if txErr != nil {
		writeOrderError(w, txErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id":       order.ID,
		"order_no":       order.OrderNo,
		"total_price":    order.TotalPrice,
		"status":         order.Status,
		"payment_params": nil, // payment initiation is a separate call
	})
}

var (
	errNotBound        = errors.New("not bound to any chef")
	errAddressNotFound = errors.New("address not found or not yours")
)

func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotBound):
		http.Error(w, "please bind a chef first", http.StatusBadRequest)
	case errors.Is(err, errAddressNotFound):
		http.Error(w, "address not found or not yours", http.StatusNotFound)
	case errors.Is(err, dbhelper.ErrDishNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dbhelper.ErrDishOffShelf),
		errors.Is(err, dbhelper.ErrDishWrongChef),
		errors.Is(err, dbhelper.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, dbhelper.ErrInsufficientQuantity):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, errForbidden):
		http.Error(w, "you are not a party to this order", http.StatusForbidden)
	case errors.Is(err, errIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "order not found", http.StatusNotFound)
	default:
		logrus.Printf("order operation failed, error: %v", err)
		http.Error(w, "order operation failed", http.StatusInternalServerError)
	}
}

func ListOrders(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	status := models.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && status != "all" && !status.IsValid() {
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}
	if status == "all" {
		status = ""
	}
	page, pageSize := parsePaging(r)

	userColumn := "foodie_id"
	if claims.Role == models.RoleChef {
		userColumn = "chef_id"
	}

	orders, total, err := dbhelper.ListOrders(userColumn, claims.UserID, status, page, pageSize)
	if err != nil {
		http.Error(w, "failed to list orders", http.StatusInternalServerError)
		return
	}

	type listItem struct {
		ID         uuid.UUID          `json:"id"`
		OrderNo    string             `json:"order_no"`
		Status     models.OrderStatus `json:"status"`
		TotalPrice float64            `json:"total_price"`
		DeliveryTime time.Time        `json:"delivery_time"`
		CoverImage string             `json:"cover_image,omitempty"`
		ItemCount  int                `json:"item_count"`
		IsReviewed bool               `json:"is_reviewed"`
		CreatedAt  time.Time          `json:"created_at"`
	}

	listItems := make([]listItem, 0, len(orders))
	for _, o := range orders {
		items, err := dbhelper.GetOrderItems(database.Chefly, o.ID)
		if err != nil {
			http.Error(w, "failed to load order items", http.StatusInternalServerError)
			return
		}
		li := listItem{
			ID:           o.ID,
			OrderNo:      o.OrderNo,
			Status:       o.Status,
			TotalPrice:   o.TotalPrice,
			DeliveryTime: o.DeliveryTime,
			ItemCount:    len(items),
			IsReviewed:   o.IsReviewed,
			CreatedAt:    o.CreatedAt,
		}
		if len(items) > 0 {
			li.CoverImage = items[0].DishImage
		}
		listItems = append(listItems, li)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"orders":    listItems,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func GetOrderDetail(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	order, err := dbhelper.GetOrderByID(orderID)
	if err == sql.ErrNoRows {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, "failed to fetch order", http.StatusInternalServerError)
		return
	}

	// only the order's two parties may see it
	if order.FoodieID != claims.UserID && order.ChefID != claims.UserID {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}

	order.Items, err = dbhelper.GetOrderItems(database.Chefly, order.ID)
	if err != nil {
		http.Error(w, "failed to load order items", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

var (
	errForbidden         = errors.New("actor is not a party to the order")
	errIllegalTransition = errors.New("illegal status transition")
)

// applyTransition is the single guard every order action goes through:
// lock the row, check actor ownership, consult the transition table, write
// the new status. Extra work (inventory release, timestamps) runs via
// apply, still inside the locked transaction.
func applyTransition(orderID, actorID uuid.UUID, chefAction bool, target models.OrderStatus,
	apply func(tx *sql.Tx, order *models.Order) ([]models.Event, error)) (*models.Order, error) {

	var order *models.Order
	var events []models.Event

	txErr := database.Tx(func(tx *sql.Tx) error {
		var err error
		order, err = dbhelper.GetOrderForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		if chefAction && order.ChefID != actorID {
			return errForbidden
		}
		if !chefAction && order.FoodieID != actorID {
			return errForbidden
		}

		if !order.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", errIllegalTransition, order.Status, target)
		}
		order.Status = target

		events, err = apply(tx, order)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	if err := dbhelper.DispatchEvents(events); err != nil {
		logrus.WithError(err).Error("failed to dispatch order notifications")
	}
	return order, nil
}

func orderActionResponse(w http.ResponseWriter, order *models.Order, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
		"message":  message,
	})
}

func orderIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, *middlewares.Claims, bool) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, nil, false
	}
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return uuid.Nil, nil, false
	}
	return orderID, claims, true
}

func AcceptOrder(w http.ResponseWriter, r *http.Request) {
	orderID, claims, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := applyTransition(orderID, claims.UserID, true, models.StatusAccepted,
		func(tx *sql.Tx, order *models.Order) ([]models.Event, error) {
			if err := dbhelper.UpdateOrderStatus(tx, order.ID, order.Status); err != nil {
				return nil, err
			}
			return []models.Event{
				models.OrderEvent(order.FoodieID, models.NotifyOrderStatus, "订单已接受",
					fmt.Sprintf("大厨已接受您的订单 %s", order.OrderNo), order),
			}, nil
		})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	orderActionResponse(w, order, "order accepted")
}

func RejectOrder(w http.ResponseWriter, r *http.Request) {
	orderID, claims, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	type request struct {
		Reason string `json:"reason"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		http.Error(w, "reason is required", http.StatusBadRequest)
		return
	}

	order, err := applyTransition(orderID, claims.UserID, true, models.StatusCancelled,
		func(tx *sql.Tx, order *models.Order) ([]models.Event, error) {
			order.CancelReason = req.Reason
			if err := dbhelper.SetOrderCancelled(tx, order.ID, req.Reason); err != nil {
				return nil, err
			}
			items, err := dbhelper.GetOrderItems(tx, order.ID)
			if err != nil {
				return nil, err
			}
			if err := dbhelper.ReleaseOrderItems(tx, order, items); err != nil {
				return nil, err
			}
			return []models.Event{
				models.OrderEvent(order.FoodieID, models.NotifyOrderStatus, "订单已拒绝",
					fmt.Sprintf("大厨拒绝了您的订单 %s，原因: %s", order.OrderNo, req.Reason), order),
			}, nil
		})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	orderActionResponse(w, order, "order rejected")
}

func StartCooking(w http.ResponseWriter, r *http.Request) {
	orderID, claims, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := applyTransition(orderID, claims.UserID, true, models.StatusCooking,
		func(tx *sql.Tx, order *models.Order) ([]models.Event, error) {
			if err := dbhelper.UpdateOrderStatus(tx, order.ID, order.Status); err != nil {
				return nil, err
			}
			return []models.Event{
				models.OrderEvent(order.FoodieID, models.NotifyOrderStatus, "开始烹饪",
					fmt.Sprintf("大厨已开始为您的订单 %s 烹饪", order.OrderNo), order),
			}, nil
		})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	orderActionResponse(w, order, "cooking started")
}

func MarkDelivering(w http.ResponseWriter, r *http.Request) {
	orderID, claims, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := applyTransition(orderID, claims.UserID, true, models.StatusDelivering,
		func(tx *sql.Tx, order *models.Order) ([]models.Event, error) {
			if err := dbhelper.UpdateOrderStatus(tx, order.ID, order.Status); err != nil {
				return nil, err
			}
			return []models.Event{
				models.OrderEvent(order.FoodieID, models.NotifyOrderStatus, "配送中",
					fmt.Sprintf("您的订单 %s 已开始配送", order.OrderNo), order),
			}, nil
		})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	orderActionResponse(w, order, "order delivering")
}

func ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	orderID, claims, ok := orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := applyTransition(orderID, claims.UserID, false, models.StatusCompleted,
		func(tx *sql.Tx, order *models.Order) ([]models.Event, error) {
			now := time.Now()
			order.CompletedAt = &now
			if err := dbhelper.SetOrderCompleted(tx, order.ID, now); err != nil {
				return nil, err
			}
			// profile-stats collaborator: chef's lifetime order counter
			if err := dbhelper.IncrementChefOrderCount(tx, order.ChefID); err != nil {
				return nil, err
			}
			return []models.Event{
				models.OrderEvent(order.ChefID, models.NotifyOrderStatus, "订单已完成",
					fmt.Sprintf("订单 %s 已完成，吃货已确认收货", order.OrderNo), order),
			}, nil
		})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	orderActionResponse(w, order, "receipt confirmed")
}

// CancelOrder cancels from unpaid, pending or accepted; either party may
// do it. Inventory goes back in the same transaction as the status write.
func CancelOrder(w http.ResponseWriter, r *http.Request) {
	claims, err := middlewares.GetAuthenticatedUser(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	type request struct {
		Reason string `json:"reason"`
	}
	var req request
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var order *models.Order
	var events []models.Event

	txErr := database.Tx(func(tx *sql.Tx) error {
		order, err = dbhelper.GetOrderForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		byFoodie := order.FoodieID == claims.UserID
		byChef := order.ChefID == claims.UserID
		if !byFoodie && !byChef {
			return errForbidden
		}

		if !order.Status.CanTransitionTo(models.StatusCancelled) {
			return fmt.Errorf("%w: %s -> %s", errIllegalTransition, order.Status, models.StatusCancelled)
		}
		order.Status = models.StatusCancelled
		order.CancelReason = req.Reason

		if err := dbhelper.SetOrderCancelled(tx, order.ID, req.Reason); err != nil {
			return err
		}

		items, err := dbhelper.GetOrderItems(tx, order.ID)
		if err != nil {
			return err
		}
		if err := dbhelper.ReleaseOrderItems(tx, order, items); err != nil {
			return err
		}

		// notify the counterparty
		if byFoodie {
			events = []models.Event{
				models.OrderEvent(order.ChefID, models.NotifyOrderStatus, "订单已取消",
					fmt.Sprintf("订单 %s 已被吃货取消", order.OrderNo), order),
			}
		} else {
			reason := req.Reason
			if reason == "" {
				reason = "无"
			}
			events = []models.Event{
				models.OrderEvent(order.FoodieID, models.NotifyOrderStatus, "订单已取消",
					fmt.Sprintf("订单 %s 已被大厨取消，原因: %s", order.OrderNo, reason), order),
			}
		}
		return nil
	})
	if txErr != nil {
		writeOrderError(w, txErr)
		return
	}

	if err := dbhelper.DispatchEvents(events); err != nil {
		logrus.WithError(err).Error("failed to dispatch cancel notifications")
	}
	orderActionResponse(w, order, "order cancelled")
}

func parsePaging(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 50 {
		pageSize = 10
	}
	return page, pageSize
}
