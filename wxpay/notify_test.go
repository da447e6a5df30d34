package wxpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notifyKey = "unit-test-api-key"

func signedNotify(t *testing.T, params map[string]string) []byte {
	t.Helper()
	params["sign"] = Sign(params, notifyKey)
	return EncodeXML(params)
}

func TestParseNotifySuccess(t *testing.T) {
	body := signedNotify(t, map[string]string{
		"return_code":    "SUCCESS",
		"result_code":    "SUCCESS",
		"out_trade_no":   "20240115123045123456abcd1234",
		"transaction_id": "4200001234202401150000000001",
	})

	n, err := ParseNotify(body, notifyKey)
	require.NoError(t, err)
	assert.True(t, n.Succeeded)
	assert.Equal(t, "20240115123045123456abcd1234", n.OutTradeNo)
	assert.Equal(t, "4200001234202401150000000001", n.TransactionID)
	assert.Empty(t, n.FailureReason)
}

func TestParseNotifyPaymentFailure(t *testing.T) {
	body := signedNotify(t, map[string]string{
		"return_code":  "SUCCESS",
		"result_code":  "FAIL",
		"out_trade_no": "20240115123045123456abcd1234",
		"err_code_des": "insufficient balance",
	})

	n, err := ParseNotify(body, notifyKey)
	require.NoError(t, err)
	assert.False(t, n.Succeeded)
	assert.Equal(t, "insufficient balance", n.FailureReason)
}

func TestParseNotifyTopLevelFailure(t *testing.T) {
	// top-level failure is rejected before signature verification ever runs
	body := EncodeXML(map[string]string{
		"return_code": "FAIL",
		"return_msg":  "gateway internal error",
	})

	_, err := ParseNotify(body, notifyKey)
	assert.ErrorIs(t, err, ErrNotifyFailed)
}

func TestParseNotifyTamperedField(t *testing.T) {
	params := map[string]string{
		"return_code":    "SUCCESS",
		"result_code":    "SUCCESS",
		"out_trade_no":   "20240115123045123456abcd1234",
		"transaction_id": "4200001234202401150000000001",
	}
	params["sign"] = Sign(params, notifyKey)

	for _, field := range []string{"result_code", "out_trade_no", "transaction_id"} {
		tampered := make(map[string]string, len(params))
		for k, v := range params {
			tampered[k] = v
		}
		tampered[field] = tampered[field] + "x"

		_, err := ParseNotify(EncodeXML(tampered), notifyKey)
		assert.ErrorIs(t, err, ErrBadSignature, "tampered field %s", field)
	}
}

func TestParseNotifyMissingOrderNo(t *testing.T) {
	body := signedNotify(t, map[string]string{
		"return_code": "SUCCESS",
		"result_code": "SUCCESS",
	})

	_, err := ParseNotify(body, notifyKey)
	assert.ErrorIs(t, err, ErrMissingOrderNo)
}

func TestParseNotifyMalformed(t *testing.T) {
	_, err := ParseNotify([]byte("<xml><broken"), notifyKey)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotifyFailed)
	assert.NotErrorIs(t, err, ErrBadSignature)
}

func TestAckXML(t *testing.T) {
	ok, err := DecodeXML(AckXML(true, ""))
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", ok["return_code"])
	assert.Equal(t, "OK", ok["return_msg"])

	fail, err := DecodeXML(AckXML(false, "signature mismatch"))
	require.NoError(t, err)
	assert.Equal(t, "FAIL", fail["return_code"])
	assert.Equal(t, "signature mismatch", fail["return_msg"])

	failDefault, err := DecodeXML(AckXML(false, ""))
	require.NoError(t, err)
	assert.Equal(t, "FAIL", failDefault["return_code"])
}
