// Package fixture is an in-memory Row Store for the explicit fixture mode.
// It enforces the same constraints as the Postgres schema, maintains the
// denormalised totals the database trigger would, and publishes every
// change to a Publisher.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

var ErrUnknownTable = errors.New("unknown table")

type Publisher interface {
	Publish(c realtime.Change)
}

type Store struct {
	mu     sync.RWMutex
	tables map[string][]rowstore.Row
	pub    Publisher
	now    func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store. pub may be nil.
func New(pub Publisher, opts ...Option) *Store {
	s := &Store{
		tables: map[string][]rowstore.Row{},
		pub:    pub,
		now:    time.Now,
	}
	for _, t := range knownTables {
		s.tables[t] = nil
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load appends rows as-is, without constraints, defaults or change events.
func (s *Store) Load(table string, rows ...rowstore.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
}

func (s *Store) Select(ctx context.Context, table string, q rowstore.Query) ([]rowstore.Row, error) {
	rows, err := s.selectRows(ctx, table, q)
	if err != nil {
		return nil, err
	}

	for _, j := range q.Joins {
		if err := rowstore.Embed(ctx, rows, j, s.selectRows); err != nil {
			return nil, fmt.Errorf("fixture.Select %s -> %w", table, err)
		}
	}
	return rows, nil
}

func (s *Store) selectRows(ctx context.Context, table string, q rowstore.Query) ([]rowstore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, rowstore.NewError(rowstore.ErrTransient, "select", table, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.tables[table]
	if !ok {
		return nil, &rowstore.Error{Op: "select", Table: table, Err: ErrUnknownTable}
	}

	out := make([]rowstore.Row, 0, len(stored))
	for _, r := range stored {
		if rowstore.Matches(r, q.Filters) {
			out = append(out, r.Clone())
		}
	}

	if len(q.Order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.Order {
				c := rowstore.Compare(out[i][o.Column], out[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

func (s *Store) Insert(ctx context.Context, table string, row rowstore.Row) (rowstore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, rowstore.NewError(rowstore.ErrTransient, "insert", table, err)
	}

	s.mu.Lock()
	stored, changes, err := s.insertLocked(table, row)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.publish(changes)
	return stored.Clone(), nil
}

func (s *Store) insertLocked(table string, row rowstore.Row) (rowstore.Row, []realtime.Change, error) {
	if _, ok := s.tables[table]; !ok {
		return nil, nil, &rowstore.Error{Op: "insert", Table: table, Err: ErrUnknownTable}
	}

	r := row.Clone()
	if rowstore.Key(r["id"]) == "" {
		r["id"] = uuid.NewString()
	}
	for col, v := range defaults(table, s.now()) {
		if r[col] == nil {
			r[col] = v
		}
	}

	if err := s.checkLocked(table, r); err != nil {
		return nil, nil, rowstore.NewError(rowstore.ErrConstraintViolation, "insert", table, err)
	}

	s.tables[table] = append(s.tables[table], r)
	changes := []realtime.Change{{Table: table, Event: realtime.EventInsert, New: r.Clone()}}

	if table == rowstore.TableSubmissions {
		changes = append(changes, s.applySubmissionLocked(r)...)
	}

	return r, changes, nil
}

// applySubmissionLocked mirrors the apply_paper_submission trigger.
func (s *Store) applySubmissionLocked(sub rowstore.Row) []realtime.Change {
	count := intOf(sub["papers_count"])

	profile, changed := s.bumpLocked(rowstore.TableProfiles, sub["user_id"], count, func(r rowstore.Row) {
		r["last_active"] = sub["submission_date"]
	})
	if profile == nil {
		return nil
	}

	changes := []realtime.Change{changed}
	if _, c := s.bumpLocked(rowstore.TableSchools, profile["school_id"], count, nil); c.Table != "" {
		changes = append(changes, c)
	}
	if _, c := s.bumpLocked(rowstore.TableClasses, profile["class_id"], count, nil); c.Table != "" {
		changes = append(changes, c)
	}
	return changes
}

func (s *Store) bumpLocked(table string, id any, by int, also func(rowstore.Row)) (rowstore.Row, realtime.Change) {
	key := rowstore.Key(id)
	if key == "" {
		return nil, realtime.Change{}
	}

	for _, r := range s.tables[table] {
		if rowstore.Key(r["id"]) != key {
			continue
		}
		old := r.Clone()
		r["total_papers"] = intOf(r["total_papers"]) + by
		r["updated_at"] = s.now()
		if also != nil {
			also(r)
		}
		return r, realtime.Change{Table: table, Event: realtime.EventUpdate, New: r.Clone(), Old: old}
	}
	return nil, realtime.Change{}
}

func (s *Store) Update(ctx context.Context, table string, filters []rowstore.Filter, patch rowstore.Row) error {
	if err := ctx.Err(); err != nil {
		return rowstore.NewError(rowstore.ErrTransient, "update", table, err)
	}
	if len(filters) == 0 {
		return rowstore.NewError(rowstore.ErrConstraintViolation, "update", table, errors.New("update without filters"))
	}

	s.mu.Lock()
	changes, err := s.updateLocked(table, filters, patch)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(changes)
	return nil
}

func (s *Store) updateLocked(table string, filters []rowstore.Filter, patch rowstore.Row) ([]realtime.Change, error) {
	stored, ok := s.tables[table]
	if !ok {
		return nil, &rowstore.Error{Op: "update", Table: table, Err: ErrUnknownTable}
	}

	var (
		idx     []int
		updated []rowstore.Row
	)
	for i, r := range stored {
		if !rowstore.Matches(r, filters) {
			continue
		}
		next := r.Clone()
		for col, v := range patch {
			next[col] = v
		}
		if err := s.checkRowLocked(table, next); err != nil {
			return nil, rowstore.NewError(rowstore.ErrConstraintViolation, "update", table, err)
		}
		idx = append(idx, i)
		updated = append(updated, next)
	}
	if len(idx) == 0 {
		return nil, rowstore.NewError(rowstore.ErrNotFound, "update", table, nil)
	}

	changes := make([]realtime.Change, 0, len(idx))
	for n, i := range idx {
		changes = append(changes, realtime.Change{Table: table, Event: realtime.EventUpdate, New: updated[n].Clone(), Old: stored[i]})
		stored[i] = updated[n]
	}
	return changes, nil
}

func (s *Store) publish(changes []realtime.Change) {
	if s.pub == nil {
		return
	}
	for _, c := range changes {
		s.pub.Publish(c)
	}
}

func intOf(v any) int {
	f, _ := rowstore.Number(v)
	return int(f)
}
