// Package datekey normalizes upstream date representations into the
// canonical YYYY-MM-DD form used as the join key across collections.
package datekey

import (
	"strings"
	"time"
)

// Layout is the canonical date layout for all join keys.
const Layout = "2006-01-02"

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	Layout,
	"02/01/2006",
}

// Normalize converts a heterogeneous date value into YYYY-MM-DD. The second
// return value reports whether the input carried a usable date; records
// without one cannot participate in date-keyed joins.
func Normalize(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if val.IsZero() {
			return "", false
		}
		return val.Format(Layout), true
	case *time.Time:
		if val == nil {
			return "", false
		}
		return Normalize(*val)
	case string:
		return normalizeString(val)
	default:
		return "", false
	}
}

func normalizeString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(Layout), true
		}
	}
	// Best effort: truncate an unrecognised datetime-ish string to its
	// leading date portion.
	if len(s) >= 10 {
		head := s[:10]
		if t, err := time.Parse(Layout, head); err == nil {
			return t.Format(Layout), true
		}
		return head, true
	}
	return s, true
}

// Join builds the composite row key. The date segment always comes first;
// Split relies on that ordering.
func Join(date, entityID string) string {
	return date + "_" + entityID
}

// Split decomposes a composite key into its date and entity segments. Keys
// without an entity segment return an empty entity id.
func Split(key string) (date, entityID string) {
	idx := strings.Index(key, "_")
	if idx < 0 {
		return key, ""
	}
	return key[:idx], key[idx+1:]
}
