package wxpay

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
)

// Sign computes the gateway signature over params: non-empty values sorted
// by key, joined as key=value pairs with '&', with '&key=<secret>' appended,
// MD5-digested and rendered as uppercase hex. The "sign" key itself is
// never part of the signed material.
func Sign(params map[string]string, apiKey string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	raw := strings.Join(pairs, "&") + "&key=" + apiKey

	return strings.ToUpper(fmt.Sprintf("%x", md5.Sum([]byte(raw))))
}

// VerifySign recomputes the signature over every field except "sign" and
// compares it to the payload's own sign value.
func VerifySign(params map[string]string, apiKey string) bool {
	sign := params["sign"]
	if sign == "" {
		return false
	}
	return Sign(params, apiKey) == sign
}
