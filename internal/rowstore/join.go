package rowstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SelectFunc runs a plain single-table select. Backends pass their own.
type SelectFunc func(ctx context.Context, table string, q Query) ([]Row, error)

// Embed resolves j for every row with one extra select and stores the
// result under j.As. Unresolvable one-joins embed nil.
func Embed(ctx context.Context, rows []Row, j Join, sel SelectFunc) error {
	if len(rows) == 0 {
		return nil
	}

	parentKey := "id"
	childKey := j.ForeignKey
	if !j.Many {
		parentKey, childKey = j.ForeignKey, "id"
	}

	seen := map[string]bool{}
	keys := make([]any, 0, len(rows))
	for _, r := range rows {
		k := Key(r[parentKey])
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}

	var children []Row
	if len(keys) > 0 {
		var err error
		children, err = sel(ctx, j.Table, Query{Filters: []Filter{In(childKey, keys...)}})
		if err != nil {
			return fmt.Errorf("join %s -> %w", j.As, err)
		}
	}

	byKey := map[string][]Row{}
	for _, c := range children {
		k := Key(c[childKey])
		byKey[k] = append(byKey[k], c)
	}

	for _, r := range rows {
		matched := byKey[Key(r[parentKey])]
		if j.Many {
			if matched == nil {
				matched = []Row{}
			}
			r[j.As] = matched
			continue
		}
		if len(matched) == 0 {
			r[j.As] = nil
			continue
		}
		r[j.As] = matched[0]
	}
	return nil
}

// Key normalises an id-like value for map lookups. Null yields "".
func Key(v any) string {
	switch k := v.(type) {
	case nil:
		return ""
	case string:
		return k
	case []byte:
		return string(k)
	case [16]byte:
		return uuid.UUID(k).String()
	case uuid.UUID:
		return k.String()
	}
	return fmt.Sprint(v)
}
