package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{StatusUnpaid, StatusPending},
		{StatusUnpaid, StatusCancelled},
		{StatusPending, StatusAccepted},
		{StatusPending, StatusCancelled},
		{StatusAccepted, StatusCooking},
		{StatusAccepted, StatusCancelled},
		{StatusCooking, StatusDelivering},
		{StatusDelivering, StatusCompleted},
	}

	all := []OrderStatus{
		StatusUnpaid, StatusPending, StatusAccepted, StatusCooking,
		StatusDelivering, StatusCompleted, StatusCancelled,
	}

	isAllowed := func(from, to OrderStatus) bool {
		for _, a := range allowed {
			if a.from == from && a.to == to {
				return true
			}
		}
		return false
	}

	// every pair not in the table is rejected, including self transitions
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, isAllowed(from, to), from.CanTransitionTo(to),
				"%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())

	for _, s := range []OrderStatus{StatusUnpaid, StatusPending, StatusAccepted, StatusCooking, StatusDelivering} {
		assert.False(t, s.IsTerminal(), "%s", s)
	}
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusCooking.IsValid())
	assert.False(t, OrderStatus("paid").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}

func TestCancellableFromFirstThreeStatesOnly(t *testing.T) {
	cancellable := map[OrderStatus]bool{
		StatusUnpaid:   true,
		StatusPending:  true,
		StatusAccepted: true,
	}
	for _, s := range []OrderStatus{StatusUnpaid, StatusPending, StatusAccepted, StatusCooking, StatusDelivering, StatusCompleted, StatusCancelled} {
		assert.Equal(t, cancellable[s], s.CanTransitionTo(StatusCancelled), "%s", s)
	}
}

func TestAddressSnapshotRoundTrip(t *testing.T) {
	snap := AddressSnapshot{
		Name:     "张三",
		Phone:    "13800000000",
		Province: "浙江省",
		City:     "杭州市",
		District: "西湖区",
		Detail:   "文三路 100 号",
	}

	value, err := snap.Value()
	require.NoError(t, err)

	var restored AddressSnapshot
	require.NoError(t, restored.Scan(value))
	assert.Equal(t, snap, restored)
}

func TestAddressSnapshotJSONKeys(t *testing.T) {
	b, err := json.Marshal(AddressSnapshot{Name: "n", Phone: "p", Province: "pr", City: "c", District: "d", Detail: "de"})
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{"name", "phone", "province", "city", "district", "detail"} {
		assert.Contains(t, m, key)
	}
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{Price: 30.0, Quantity: 2}
	assert.InDelta(t, 60.0, item.Subtotal(), 1e-9)
}
