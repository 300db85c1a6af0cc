package bizobj

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DatetimeLayout is the canonical UTC form temporal values are written in.
const DatetimeLayout = "2006-01-02 15:04:05"

var temporalLayouts = []string{
	time.RFC3339Nano,
	DatetimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// coerce checks v against t and returns the value to store.
// Temporal inputs are normalized to a quote-stripped string.
func coerce(t Type, v any) (any, error) {
	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)
	case TypeNumber:
		if isNumber(v) {
			return v, nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)
	case TypeBoolean:
		if _, ok := v.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)
	case TypeObject:
		if isObject(v) {
			return v, nil
		}
		return nil, fmt.Errorf("expected object, got %T", v)
	case TypeJSON:
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s), nil
		}
		if isObject(v) {
			return v, nil
		}
		return nil, fmt.Errorf("expected JSON text or value, got %T", v)
	default:
		s, ok := temporalString(v)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %T", t, v)
		}
		if _, err := parseTemporal(s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// matches reports whether v already has the shape t expects.
func matches(t Type, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		return isNumber(v)
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		return isObject(v)
	case TypeJSON:
		_, ok := v.(string)
		return ok || isObject(v)
	default:
		_, ok := temporalString(v)
		return ok
	}
}

func isNumber(v any) bool {
	if _, ok := v.(json.Number); ok {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isObject(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	case reflect.Pointer:
		return !rv.IsNil() && rv.Elem().Kind() == reflect.Struct
	}
	return false
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func temporalString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.Trim(strings.TrimSpace(t), `"`), true
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), true
	case *time.Time:
		if t == nil {
			return "", false
		}
		return t.UTC().Format(time.RFC3339Nano), true
	}
	return "", false
}

var errBadTemporal = errors.New("not a recognizable date or time")

func parseTemporal(s string) (time.Time, error) {
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadTemporal
}

// toInt64 converts numeric values as they arrive from drivers or JSON.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// decodeColumn turns a driver representation into the value the property's
// setter expects. Values it does not recognize are passed through unchanged
// so the setter reports the mismatch.
func decodeColumn(p *Property, v any) any {
	switch p.Type {
	case TypeBoolean:
		switch t := v.(type) {
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b
			}
		case bool:
			return t
		default:
			if n, ok := toInt64(v); ok && (n == 0 || n == 1) {
				return n == 1
			}
		}
	case TypeNumber:
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	case TypeObject, TypeJSON:
		if s, ok := v.(string); ok {
			trimmed := strings.TrimSpace(s)
			if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
				var out any
				if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
					return out
				}
			}
		}
	}
	return v
}

// stringify renders a stored value as the plaintext handed to the encrypter or hasher.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
