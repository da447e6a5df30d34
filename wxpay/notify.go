package wxpay

import "errors"

var (
	// ErrNotifyFailed means the payload's own top-level flag reports
	// failure; no order may be touched.
	ErrNotifyFailed = errors.New("notify payload reports failure")
	// ErrBadSignature means the payload's signature does not match the
	// recomputed digest; no order lookup may happen after it.
	ErrBadSignature = errors.New("notify signature mismatch")
	// ErrMissingOrderNo means the payload carries no merchant order number.
	ErrMissingOrderNo = errors.New("notify payload missing order number")
)

// Notify is a verified payment callback.
type Notify struct {
	OutTradeNo    string
	TransactionID string
	// Succeeded is the business outcome; false leaves the target payable.
	Succeeded bool
	// FailureReason is set when Succeeded is false.
	FailureReason string
}

// ParseNotify decodes and verifies a callback body. Verification order is
// fixed: parse, check the top-level flag, then verify the signature, all
// before the merchant order number is even read, so a tampered payload can
// never cause an order lookup.
func ParseNotify(body []byte, apiKey string) (*Notify, error) {
	params, err := DecodeXML(body)
	if err != nil {
		return nil, err
	}

	if params["return_code"] != "SUCCESS" {
		return nil, ErrNotifyFailed
	}

	if !VerifySign(params, apiKey) {
		return nil, ErrBadSignature
	}

	outTradeNo := params["out_trade_no"]
	if outTradeNo == "" {
		return nil, ErrMissingOrderNo
	}

	n := &Notify{
		OutTradeNo:    outTradeNo,
		TransactionID: params["transaction_id"],
		Succeeded:     params["result_code"] == "SUCCESS",
	}
	if !n.Succeeded {
		n.FailureReason = params["err_code_des"]
		if n.FailureReason == "" {
			n.FailureReason = params["err_code"]
		}
	}
	return n, nil
}

// AckXML is the structured acknowledgement body the gateway expects back
// from the webhook, success or failure.
func AckXML(success bool, message string) []byte {
	if success {
		return EncodeXML(map[string]string{
			"return_code": "SUCCESS",
			"return_msg":  "OK",
		})
	}
	if message == "" {
		message = "FAIL"
	}
	return EncodeXML(map[string]string{
		"return_code": "FAIL",
		"return_msg":  message,
	})
}
