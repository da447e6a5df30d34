package wxpay

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
)

// EncodeXML renders params as the gateway's flat <xml> document, values
// wrapped in CDATA. Keys are emitted in sorted order so output is stable.
func EncodeXML(params map[string]string) []byte {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("<xml>")
	for _, k := range keys {
		buf.WriteString(fmt.Sprintf("<%s><![CDATA[%s]]></%s>", k, params[k], k))
	}
	buf.WriteString("</xml>")
	return buf.Bytes()
}

// DecodeXML parses the gateway's flat <xml> document into a map. Nested
// elements do not occur in this protocol and are rejected.
func DecodeXML(data []byte) (map[string]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	params := make(map[string]string)

	var key string
	var depth int
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed xml payload: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if depth > 2 {
				return nil, fmt.Errorf("malformed xml payload: nested element %q", t.Name.Local)
			}
			if depth == 2 {
				key = t.Name.Local
			}
		case xml.EndElement:
			depth--
			key = ""
		case xml.CharData:
			if depth == 2 && key != "" {
				params[key] += string(t)
			}
		}
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("malformed xml payload: no fields")
	}
	return params, nil
}
