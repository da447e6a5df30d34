package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chefly/chefly/wxpay"
)

func TestToFee(t *testing.T) {
	assert.Equal(t, 6000, toFee(60.0))
	assert.Equal(t, 1, toFee(0.01))
	// float representation of 19.99 must still land on 1999
	assert.Equal(t, 1999, toFee(19.99))
	assert.Equal(t, 10, toFee(0.1))
}

func TestWriteAck(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAck(rec, true, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))

	params, err := wxpay.DecodeXML(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", params["return_code"])

	rec = httptest.NewRecorder()
	writeAck(rec, false, "order not found")
	require.Equal(t, http.StatusOK, rec.Code)

	params, err = wxpay.DecodeXML(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "FAIL", params["return_code"])
	assert.Equal(t, "order not found", params["return_msg"])
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/payment/notify", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", clientIP(r))

	r.RemoteAddr = "garbage"
	assert.Equal(t, "127.0.0.1", clientIP(r))
}

func TestHandleNotifyParseErrorMalformed(t *testing.T) {
	// malformed payloads get an HTTP error, not an XML ack
	rec := httptest.NewRecorder()
	_, parseErr := wxpay.ParseNotify([]byte("<xml><broken"), "key")
	require.Error(t, parseErr)
	handleNotifyParseError(rec, parseErr, "payment")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNotifyParseErrorBadSignature(t *testing.T) {
	rec := httptest.NewRecorder()
	body := wxpay.EncodeXML(map[string]string{
		"return_code":  "SUCCESS",
		"result_code":  "SUCCESS",
		"out_trade_no": "20240115123045123456abcd1234",
		"sign":         "BOGUS",
	})
	_, parseErr := wxpay.ParseNotify(body, "key")
	require.ErrorIs(t, parseErr, wxpay.ErrBadSignature)

	handleNotifyParseError(rec, parseErr, "payment")
	require.Equal(t, http.StatusOK, rec.Code)

	params, err := wxpay.DecodeXML(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "FAIL", params["return_code"])
}
