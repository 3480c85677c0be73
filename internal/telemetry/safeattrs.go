package telemetry

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// denyKeys never become span attributes. Classifier inputs are user content
// and may carry credentials or personal data.
var denyKeys = []string{
	"url",
	"email",
	"message",
	"screenshot",
	"image",
	"text",
	"content",
	"authorization",
	"api_key",
	"token",
	"phone",
}

const maxStringAttr = 256

// SafeAttributes filters out unsafe keys/values and returns OTEL attributes.
func SafeAttributes(values map[string]interface{}) []attribute.KeyValue {
	if len(values) == 0 {
		return nil
	}
	var attrs []attribute.KeyValue
	for k, v := range values {
		lk := strings.ToLower(k)
		skip := false
		for _, bad := range denyKeys {
			if strings.Contains(lk, bad) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		switch val := v.(type) {
		case string:
			if len(val) > maxStringAttr {
				continue
			}
			attrs = append(attrs, attribute.String(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		}
	}
	return attrs
}
