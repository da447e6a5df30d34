package wxpay

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chefly/chefly/config"
)

// ErrGateway marks a payment-provider failure (network, protocol or
// business refusal). It is retryable by the client at the business level;
// the caller must not mutate local order state when it is returned.
var ErrGateway = errors.New("payment gateway error")

const gatewayTimeout = 10 * time.Second

type Client struct {
	appID      string
	mchID      string
	apiKey     string
	gatewayURL string
	http       *http.Client
}

func NewClient(cfg config.WechatConfig) *Client {
	return &Client{
		appID:      cfg.AppID,
		mchID:      cfg.MchID,
		apiKey:     cfg.APIKey,
		gatewayURL: cfg.GatewayURL,
		http:       &http.Client{Timeout: gatewayTimeout},
	}
}

func nonceStr() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// UnifiedOrder asks the gateway to create a payment for outTradeNo.
// totalFee is in minor currency units. Returns the opaque prepay handle.
func (c *Client) UnifiedOrder(outTradeNo string, totalFee int, body, openID, notifyURL, clientIP string) (string, error) {
	params := map[string]string{
		"appid":            c.appID,
		"mch_id":           c.mchID,
		"nonce_str":        nonceStr(),
		"body":             body,
		"out_trade_no":     outTradeNo,
		"total_fee":        strconv.Itoa(totalFee),
		"spbill_create_ip": clientIP,
		"notify_url":       notifyURL,
		"trade_type":       "JSAPI",
		"openid":           openID,
	}
	params["sign"] = Sign(params, c.apiKey)

	resp, err := c.http.Post(c.gatewayURL, "application/xml", bytes.NewReader(EncodeXML(params)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrGateway, resp.StatusCode)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	result, err := DecodeXML(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if result["return_code"] != "SUCCESS" {
		logrus.Printf("unified order failed: %s", result["return_msg"])
		return "", fmt.Errorf("%w: %s", ErrGateway, result["return_msg"])
	}
	if result["result_code"] != "SUCCESS" {
		logrus.Printf("unified order business failure: %s", result["err_code_des"])
		return "", fmt.Errorf("%w: %s", ErrGateway, result["err_code_des"])
	}

	prepayID := result["prepay_id"]
	if prepayID == "" {
		return "", fmt.Errorf("%w: missing prepay_id", ErrGateway)
	}
	return prepayID, nil
}

// PaymentParams derives the signed bundle the client app passes to the
// wallet to invoke payment for a prepay handle. Same signing routine as
// the outbound request, different parameter set.
func (c *Client) PaymentParams(prepayID string) map[string]string {
	params := map[string]string{
		"appId":     c.appID,
		"timeStamp": strconv.FormatInt(time.Now().Unix(), 10),
		"nonceStr":  nonceStr(),
		"package":   "prepay_id=" + prepayID,
		"signType":  "MD5",
	}
	params["paySign"] = Sign(params, c.apiKey)
	return params
}
