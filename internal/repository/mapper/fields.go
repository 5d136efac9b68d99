package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// MalformedRowError reports a row that does not match the entity's shape.
type MalformedRowError struct {
	Entity string
	Field  string
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed %s row: field %q %s", e.Entity, e.Field, e.Reason)
}

// reader pulls typed fields out of a row. The first failure sticks and later
// calls become no-ops, so a mapper reads every field and checks err once.
type reader struct {
	entity string
	row    rowstore.Row
	err    error
}

func read(entity string, row rowstore.Row) *reader {
	r := &reader{entity: entity, row: row}
	if row == nil {
		r.err = &MalformedRowError{Entity: entity, Field: "*", Reason: "is nil"}
	}
	return r
}

func (r *reader) fail(field, reason string) {
	if r.err == nil {
		r.err = &MalformedRowError{Entity: r.entity, Field: field, Reason: reason}
	}
}

func (r *reader) value(field string, required bool) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.row[field]
	if !ok || v == nil {
		if required {
			r.fail(field, "is required")
		}
		return nil, false
	}
	return v, true
}

func (r *reader) str(field string) string {
	v, ok := r.value(field, true)
	if !ok {
		return ""
	}
	s, ok := asString(v)
	if !ok {
		r.fail(field, fmt.Sprintf("has type %T, want string", v))
	}
	return s
}

func (r *reader) optStr(field string) *string {
	v, ok := r.value(field, false)
	if !ok {
		return nil
	}
	s, ok := asString(v)
	if !ok {
		r.fail(field, fmt.Sprintf("has type %T, want string", v))
		return nil
	}
	return &s
}

func (r *reader) integer(field string) int {
	v, ok := r.value(field, true)
	if !ok {
		return 0
	}
	n, ok := asInt(v)
	if !ok {
		r.fail(field, fmt.Sprintf("has type %T, want integer", v))
	}
	return n
}

// count is a required integer that must not be negative.
func (r *reader) count(field string) int {
	n := r.integer(field)
	if n < 0 {
		r.fail(field, "must not be negative")
	}
	return n
}

// strs is a required list of strings. jsonb columns arrive as text, bytes or
// an already decoded slice depending on the driver.
func (r *reader) strs(field string) []string {
	v, ok := r.value(field, true)
	if !ok {
		return nil
	}

	var raw []byte
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		raw, _ = json.Marshal(t)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		r.fail(field, fmt.Sprintf("is not a list of strings: %v", err))
		return nil
	}
	return out
}

func (r *reader) optInt(field string) *int {
	v, ok := r.value(field, false)
	if !ok {
		return nil
	}
	n, ok := asInt(v)
	if !ok {
		r.fail(field, fmt.Sprintf("has type %T, want integer", v))
		return nil
	}
	return &n
}

func (r *reader) optFloat(field string) *float64 {
	v, ok := r.value(field, false)
	if !ok {
		return nil
	}
	f, ok := asFloat(v)
	if !ok {
		r.fail(field, fmt.Sprintf("has type %T, want number", v))
		return nil
	}
	return &f
}

func (r *reader) boolean(field string, fallback bool) bool {
	v, ok := r.value(field, false)
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(field, fmt.Sprintf("has type %T, want bool", v))
	}
	return b
}

func (r *reader) optBool(field string) *bool {
	v, ok := r.value(field, false)
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(field, fmt.Sprintf("has type %T, want bool", v))
		return nil
	}
	return &b
}

func (r *reader) time(field string) time.Time {
	v, ok := r.value(field, true)
	if !ok {
		return time.Time{}
	}
	t, ok := asTime(v)
	if !ok {
		r.fail(field, "is not an ISO-8601 timestamp")
	}
	return t
}

func (r *reader) optTime(field string) *time.Time {
	v, ok := r.value(field, false)
	if !ok {
		return nil
	}
	t, ok := asTime(v)
	if !ok {
		r.fail(field, "is not an ISO-8601 timestamp")
		return nil
	}
	return &t
}

// enum reads a required string and checks it with valid.
func (r *reader) enum(field string, valid func(string) bool) string {
	s := r.str(field)
	if r.err == nil && !valid(s) {
		r.fail(field, fmt.Sprintf("has unknown value %q", s))
	}
	return s
}

func (r *reader) one(field string) (rowstore.Row, bool) {
	v, ok := r.value(field, false)
	if !ok {
		return nil, false
	}
	switch sub := v.(type) {
	case rowstore.Row:
		return sub, true
	case map[string]any:
		return sub, true
	case []rowstore.Row:
		if len(sub) == 1 {
			return sub[0], true
		}
	}
	r.fail(field, fmt.Sprintf("has type %T, want embedded row", v))
	return nil, false
}

func (r *reader) many(field string) []rowstore.Row {
	v, ok := r.value(field, false)
	if !ok {
		return nil
	}
	switch sub := v.(type) {
	case []rowstore.Row:
		return sub
	case []map[string]any:
		rows := make([]rowstore.Row, len(sub))
		for i := range sub {
			rows[i] = sub[i]
		}
		return rows
	case []any:
		rows := make([]rowstore.Row, 0, len(sub))
		for _, item := range sub {
			m, ok := item.(map[string]any)
			if !ok {
				r.fail(field, fmt.Sprintf("contains %T, want embedded row", item))
				return nil
			}
			rows = append(rows, m)
		}
		return rows
	}
	r.fail(field, fmt.Sprintf("has type %T, want embedded rows", v))
	return nil
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case [16]byte:
		return uuid.UUID(s).String(), true
	case uuid.UUID:
		return s.String(), true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case float32:
		return asInt(float64(n))
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
