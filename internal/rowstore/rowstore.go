// Package rowstore is the contract every durable backend satisfies: row-level
// select/insert/update over named tables with typed failure kinds.
package rowstore

import (
	"context"
)

// Table names.
const (
	TableSchools       = "schools"
	TableClasses       = "school_classes"
	TableDevices       = "ecobox_devices"
	TableProfiles      = "profiles"
	TableCredentials   = "credentials"
	TableAchievements  = "achievements"
	TableUserAchieve   = "user_achievements"
	TableChallenges    = "challenges"
	TableUserChallenge = "user_challenges"
	TableSubmissions   = "paper_submissions"
	TableNotifications = "notifications"
	TableEcoTips       = "eco_tips"
	TableQuiz          = "quiz_questions"
	TableSnapshots     = "leaderboard_snapshots"
)

// Row is one raw record with snake_case column names. Embedded joins are
// stored under the joined table's alias as Row or []Row.
type Row map[string]any

// Clone returns a shallow copy, deep enough for embedded joins.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		switch vv := v.(type) {
		case Row:
			out[k] = vv.Clone()
		case []Row:
			rows := make([]Row, len(vv))
			for i := range vv {
				rows[i] = vv[i].Clone()
			}
			out[k] = rows
		default:
			out[k] = v
		}
	}
	return out
}

type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func Gte(column string, value any) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Join embeds related rows under As.
//
// Many: child rows of Table whose ForeignKey equals the parent's "id".
// One:  the single row of Table whose "id" equals the parent's ForeignKey; nil when the key is null.
type Join struct {
	Table      string
	As         string
	ForeignKey string
	Many       bool
}

type Order struct {
	Column string
	Desc   bool
}

type Query struct {
	Filters []Filter
	Joins   []Join
	Order   []Order
	Limit   int
}

type Store interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, filters []Filter, patch Row) error
}
