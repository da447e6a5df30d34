package wxpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignKnownVector(t *testing.T) {
	params := map[string]string{
		"appid":        "wx8888",
		"mch_id":       "10000100",
		"nonce_str":    "ibuaiVcKdpRxkhJA",
		"body":         "test",
		"out_trade_no": "20240115123045",
		"total_fee":    "6000",
	}
	sign := Sign(params, "192006250b4c09247ec02edce69f6a2d")
	assert.Equal(t, "F6DCBDE423028F51099D1FD63AE69965", sign)
}

func TestSignSkipsEmptyValuesAndSignField(t *testing.T) {
	base := map[string]string{
		"appid":     "wx8888",
		"total_fee": "100",
	}
	withNoise := map[string]string{
		"appid":     "wx8888",
		"total_fee": "100",
		"openid":    "",
		"sign":      "SHOULDNOTMATTER",
	}
	assert.Equal(t, Sign(base, "key"), Sign(withNoise, "key"))
}

func TestSignDependsOnKey(t *testing.T) {
	params := map[string]string{"appid": "wx8888"}
	assert.NotEqual(t, Sign(params, "key1"), Sign(params, "key2"))
}

func TestVerifySign(t *testing.T) {
	params := map[string]string{
		"appid":        "wx8888",
		"out_trade_no": "20240115123045",
		"result_code":  "SUCCESS",
	}
	params["sign"] = Sign(params, "secret")
	require.True(t, VerifySign(params, "secret"))

	// any single altered field must break verification
	for k := range params {
		if k == "sign" {
			continue
		}
		tampered := make(map[string]string, len(params))
		for key, v := range params {
			tampered[key] = v
		}
		tampered[k] = tampered[k] + "x"
		assert.False(t, VerifySign(tampered, "secret"), "tampered field %s", k)
	}
}

func TestVerifySignMissingSign(t *testing.T) {
	assert.False(t, VerifySign(map[string]string{"appid": "wx8888"}, "secret"))
}
