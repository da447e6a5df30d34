package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/chefly/chefly/config"
	"github.com/chefly/chefly/database"
	"github.com/chefly/chefly/database/dbhelper"
	"github.com/chefly/chefly/middlewares"
	"github.com/chefly/chefly/models"
	"github.com/chefly/chefly/wxpay"
)

// webhook tallies, exposed on /health
var (
	notifyProcessed atomic.Int64
	notifyRejected  atomic.Int64
)

func NotifyStats() (processed, rejected int64) {
	return notifyProcessed.Load(), notifyRejected.Load()
}

// toFee converts a price in major units to the gateway's minor units.
func toFee(price float64) int {
	return int(price*100 + 0.5)
}

// PayOrder asks the gateway for a prepay handle for an unpaid order and
// returns the signed parameter bundle the client app invokes payment with.
// Nothing about the order changes here; it stays unpaid until the webhook
// confirms payment.
func PayOrder(w http.ResponseWriter, r *http.Request) {
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
	if order.FoodieID != claims.UserID {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if order.Status != models.StatusUnpaid {
		http.Error(w, "order is not payable", http.StatusConflict)
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

	client := wxpay.NewClient(config.Wechat)
	prepayID, err := client.UnifiedOrder(
		order.OrderNo,
		toFee(order.TotalPrice),
		fmt.Sprintf("私厨预订-订单%s", order.OrderNo),
		user.OpenID,
		config.Wechat.NotifyURL,
		clientIP(r),
	)
	if err != nil {
		logrus.Printf("unified order failed for %s, error: %v", order.OrderNo, err)
		http.Error(w, "payment gateway unavailable, please retry", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id":       order.ID,
		"order_no":       order.OrderNo,
		"total_price":    order.TotalPrice,
		"payment_params": client.PaymentParams(prepayID),
	})
}

// PaymentNotify is the gateway's at-least-once payment callback. Signature
// verification happens before any order lookup; an already-processed order
// acknowledges success without re-applying anything. The acknowledgement is
// a protocol-level answer: a failed payment still acks SUCCESS once the
// outcome has been durably recorded, to stop redelivery.
func PaymentNotify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	notify, err := wxpay.ParseNotify(body, config.Wechat.APIKey)
	if err != nil {
		handleNotifyParseError(w, err, "payment")
		return
	}

	var order *models.Order
	var events []models.Event
	alreadyProcessed := false

	txErr := database.Tx(func(tx *sql.Tx) error {
		var err error
		order, err = dbhelper.GetOrderByNoForUpdate(tx, notify.OutTradeNo)
		if err != nil {
			return err
		}

		// idempotency boundary: any status but unpaid means this event
		// was applied before (or the order moved on); ack and do nothing
		if order.Status != models.StatusUnpaid {
			alreadyProcessed = true
			return nil
		}

		if !notify.Succeeded {
			// payment failed: record the reason, order stays unpaid and
			// payable; the reservation stays intact
			logrus.Warnf("payment failed for order %s: %s", notify.OutTradeNo, notify.FailureReason)
			return dbhelper.SetOrderPaymentFailed(tx, order.ID, notify.FailureReason)
		}

		if err := dbhelper.MarkOrderPaid(tx, order.ID, notify.TransactionID); err != nil {
			return err
		}
		order.Status = models.StatusPending
		events = []models.Event{
			models.OrderEvent(order.ChefID, models.NotifyNewOrder, "新订单",
				fmt.Sprintf("您有一个新订单，订单号: %s", order.OrderNo), order),
		}
		return nil
	})
	if txErr == sql.ErrNoRows {
		logrus.Errorf("payment notify for unknown order: %s", notify.OutTradeNo)
		notifyRejected.Inc()
		writeAck(w, false, "order not found")
		return
	}
	if txErr != nil {
		logrus.WithError(txErr).Error("failed to process payment notify")
		writeAck(w, false, "processing failed")
		return
	}

	if alreadyProcessed {
		logrus.Printf("payment notify already processed: %s, status: %s", order.OrderNo, order.Status)
	}
	if err := dbhelper.DispatchEvents(events); err != nil {
		logrus.WithError(err).Error("failed to dispatch payment notifications")
	}

	notifyProcessed.Inc()
	writeAck(w, true, "")
}

// TipNotify reconciles tip payments with the same discipline as orders:
// locked row, pending-only application, protocol-level success ack.
func TipNotify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	notify, err := wxpay.ParseNotify(body, config.Wechat.APIKey)
	if err != nil {
		handleNotifyParseError(w, err, "tip")
		return
	}

	var tip *models.Tip
	var events []models.Event

	txErr := database.Tx(func(tx *sql.Tx) error {
		var err error
		tip, err = dbhelper.GetTipByPaymentIDForUpdate(tx, notify.OutTradeNo)
		if err != nil {
			return err
		}

		if tip.Status != models.TipPending {
			return nil
		}

		if !notify.Succeeded {
			logrus.Warnf("tip payment failed for %s: %s", notify.OutTradeNo, notify.FailureReason)
			return dbhelper.SetTipStatus(tx, tip.ID, models.TipFailed, "")
		}

		if err := dbhelper.SetTipStatus(tx, tip.ID, models.TipPaid, notify.TransactionID); err != nil {
			return err
		}
		events = []models.Event{{
			UserID:  tip.ChefID,
			Type:    models.NotifyTip,
			Title:   "收到打赏",
			Content: fmt.Sprintf("您收到一笔 ¥%.2f 的打赏", tip.Amount),
			Data: map[string]interface{}{
				"tip_id":  tip.ID.String(),
				"amount":  tip.Amount,
				"message": tip.Message,
			},
		}}
		return nil
	})
	if txErr == sql.ErrNoRows {
		logrus.Errorf("tip notify for unknown payment: %s", notify.OutTradeNo)
		notifyRejected.Inc()
		writeAck(w, false, "tip not found")
		return
	}
	if txErr != nil {
		logrus.WithError(txErr).Error("failed to process tip notify")
		writeAck(w, false, "processing failed")
		return
	}

	if err := dbhelper.DispatchEvents(events); err != nil {
		logrus.WithError(err).Error("failed to dispatch tip notifications")
	}

	notifyProcessed.Inc()
	writeAck(w, true, "")
}

func handleNotifyParseError(w http.ResponseWriter, err error, kind string) {
	notifyRejected.Inc()
	switch {
	case errors.Is(err, wxpay.ErrNotifyFailed):
		logrus.Warnf("%s notify reports top-level failure", kind)
		writeAck(w, false, "callback failed")
	case errors.Is(err, wxpay.ErrBadSignature):
		logrus.Errorf("%s notify signature verification failed", kind)
		writeAck(w, false, "signature mismatch")
	case errors.Is(err, wxpay.ErrMissingOrderNo):
		logrus.Errorf("%s notify missing order number", kind)
		writeAck(w, false, "missing order number")
	default:
		// malformed input is the one case answered with an HTTP error
		logrus.WithError(err).Errorf("%s notify malformed", kind)
		http.Error(w, "malformed payload", http.StatusBadRequest)
	}
}

func writeAck(w http.ResponseWriter, success bool, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(wxpay.AckXML(success, message))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "127.0.0.1"
	}
	return host
}
