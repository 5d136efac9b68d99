package realtime

import (
	"fmt"
	"strings"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// ParseFilter reads the "column=op.value" form, e.g. "user_id=eq.42" or
// "status=in.(online,full)". An empty string means no filter.
func ParseFilter(s string) (*rowstore.Filter, error) {
	if s == "" {
		return nil, nil
	}

	column, rest, ok := strings.Cut(s, "=")
	if !ok || column == "" {
		return nil, fmt.Errorf("realtime: filter %q: want column=op.value", s)
	}
	op, value, ok := strings.Cut(rest, ".")
	if !ok {
		return nil, fmt.Errorf("realtime: filter %q: want op.value", s)
	}

	f := &rowstore.Filter{Column: column, Op: rowstore.Op(op)}
	switch f.Op {
	case rowstore.OpEq, rowstore.OpNeq, rowstore.OpGt, rowstore.OpGte, rowstore.OpLt, rowstore.OpLte:
		f.Value = value
	case rowstore.OpIn:
		inner := strings.TrimSuffix(strings.TrimPrefix(value, "("), ")")
		values := []any{}
		for _, v := range strings.Split(inner, ",") {
			values = append(values, strings.TrimSpace(v))
		}
		f.Value = values
	default:
		return nil, fmt.Errorf("realtime: filter %q: unknown operator %q", s, op)
	}
	return f, nil
}

// EqFilter renders the equality filter a per-user subscription uses.
func EqFilter(column, value string) string {
	return column + "=eq." + value
}

type matcher struct {
	spec   Spec
	filter *rowstore.Filter
}

func newMatcher(spec Spec) (matcher, error) {
	f, err := ParseFilter(spec.Filter)
	if err != nil {
		return matcher{}, err
	}
	if spec.Event == "" {
		spec.Event = EventAll
	}
	return matcher{spec: spec, filter: f}, nil
}

func (m matcher) matches(c Change) bool {
	if m.spec.Table != c.Table {
		return false
	}
	if m.spec.Event != EventAll && m.spec.Event != c.Event {
		return false
	}
	if m.filter == nil {
		return true
	}
	return rowstore.Matches(c.Row(), []rowstore.Filter{*m.filter})
}
