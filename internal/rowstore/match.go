package rowstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Matches evaluates filters against a row in memory. In-process stores and
// change-stream filters share it so both agree on comparison rules.
func Matches(row Row, filters []Filter) bool {
	for _, f := range filters {
		if !match(row[f.Column], f) {
			return false
		}
	}
	return true
}

func match(v any, f Filter) bool {
	switch f.Op {
	case OpEq:
		return Compare(v, f.Value) == 0
	case OpNeq:
		return Compare(v, f.Value) != 0
	case OpGt:
		return v != nil && Compare(v, f.Value) > 0
	case OpGte:
		return v != nil && Compare(v, f.Value) >= 0
	case OpLt:
		return v != nil && Compare(v, f.Value) < 0
	case OpLte:
		return v != nil && Compare(v, f.Value) <= 0
	case OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return false
		}
		for _, want := range values {
			if Compare(v, want) == 0 {
				return true
			}
		}
	}
	return false
}

// Compare orders two column values. Numbers compare numerically, times
// chronologically, everything else by string form. nil sorts first.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if fa, ok := Number(a); ok {
		if fb, ok := Number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}

	if ta, ok := instant(a); ok {
		if tb, ok := instant(b); ok {
			return ta.Compare(tb)
		}
	}

	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

// Number reads any numeric column value as float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func instant(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
