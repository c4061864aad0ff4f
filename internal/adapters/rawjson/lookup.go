// Package rawjson resolves fields in loosely-shaped source payloads through
// alias registries, so one adapter tolerates the field-name drift between
// API versions and sample exports.
package rawjson

import (
	"strconv"
	"strings"
	"time"
)

// Aliases maps a canonical field name to the dot paths it may appear under.
type Aliases map[string][]string

// Lookup: safe nested lookup with dot paths on maps.
func Lookup(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// Str returns the trimmed string at path or "".
func Str(m map[string]any, path string) string {
	if s, ok := Lookup(m, path).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// First returns the first non-empty string for an alias set.
func (a Aliases) First(m map[string]any, key string) string {
	for _, p := range a[key] {
		if s := Str(m, p); s != "" {
			return s
		}
	}
	return ""
}

// Float reads a number from float64/int/json string (accepts "4,5").
func (a Aliases) Float(m map[string]any, key string) (float64, bool) {
	for _, p := range a[key] {
		if f, ok := AsFloat(Lookup(m, p)); ok {
			return f, true
		}
	}
	return 0, false
}

// Bool reads a bool, accepting "true"/"false" strings.
func (a Aliases) Bool(m map[string]any, key string) (bool, bool) {
	for _, p := range a[key] {
		switch v := Lookup(m, p).(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// Any returns the first present value for an alias set.
func (a Aliases) Any(m map[string]any, key string) any {
	for _, p := range a[key] {
		if v := Lookup(m, p); v != nil {
			return v
		}
	}
	return nil
}

// ID reads identifiers that may arrive as strings or numbers.
func (a Aliases) ID(m map[string]any, key string) string {
	for _, p := range a[key] {
		switch v := Lookup(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time accepts RFC3339-ish strings and unix seconds.
func (a Aliases) Time(m map[string]any, key string) (time.Time, bool) {
	for _, p := range a[key] {
		switch v := Lookup(m, p).(type) {
		case string:
			s := strings.TrimSpace(v)
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC(), true
				}
			}
		case float64:
			return time.Unix(int64(v), 0).UTC(), true
		case int64:
			return time.Unix(v, 0).UTC(), true
		case int:
			return time.Unix(int64(v), 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// Ptr returns nil for "".
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
