package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
)

// record is the raw upstream row before field-name normalization. The office
// API spells the same field several ways depending on which screen wrote it,
// so every resource is decoded into a record first and mapped to its
// canonical type by the pick helpers below.
type record map[string]any

func (r record) str(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case json.Number:
			return val.String()
		case bool:
			return strconv.FormatBool(val)
		}
	}
	return ""
}

func (r record) num(keys ...string) float64 {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			return val
		case json.Number:
			if f, err := val.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func (r record) boolish(keys ...string) bool {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case bool:
			return val
		case string:
			s := strings.ToLower(strings.TrimSpace(val))
			if s == "true" || s == "1" || s == "yes" || s == "read" {
				return true
			}
			if s != "" {
				return false
			}
		case float64:
			return val != 0
		}
	}
	return false
}
