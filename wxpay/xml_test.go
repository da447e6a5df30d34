package wxpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeXML(t *testing.T) {
	params := map[string]string{
		"return_code":  "SUCCESS",
		"out_trade_no": "20240115123045123456abcd1234",
		"total_fee":    "6000",
		"empty":        "",
	}

	decoded, err := DecodeXML(EncodeXML(params))
	require.NoError(t, err)

	assert.Equal(t, "SUCCESS", decoded["return_code"])
	assert.Equal(t, "20240115123045123456abcd1234", decoded["out_trade_no"])
	assert.Equal(t, "6000", decoded["total_fee"])
	// empty values are never emitted
	_, ok := decoded["empty"]
	assert.False(t, ok)
}

func TestDecodeXMLPlainValues(t *testing.T) {
	decoded, err := DecodeXML([]byte(`<xml><return_code>SUCCESS</return_code><total_fee>1</total_fee></xml>`))
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", decoded["return_code"])
	assert.Equal(t, "1", decoded["total_fee"])
}

func TestDecodeXMLMalformed(t *testing.T) {
	_, err := DecodeXML([]byte(`<xml><return_code>SUCCESS`))
	assert.Error(t, err)

	_, err = DecodeXML([]byte(`not xml at all`))
	assert.Error(t, err)

	_, err = DecodeXML([]byte(`<xml></xml>`))
	assert.Error(t, err)
}

func TestDecodeXMLRejectsNesting(t *testing.T) {
	_, err := DecodeXML([]byte(`<xml><a><b>1</b></a></xml>`))
	assert.Error(t, err)
}
