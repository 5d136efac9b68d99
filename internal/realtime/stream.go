// Package realtime turns table change events into cache invalidations.
package realtime

import (
	"errors"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

var (
	ErrUnknownHandle = errors.New("unknown subscription handle")
	ErrClosed        = errors.New("subscription closed")
)

type Event string

const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
	EventAll    Event = "*"
)

// Change is one row-level event from the store.
type Change struct {
	Table string       `json:"table"`
	Event Event        `json:"event"`
	New   rowstore.Row `json:"new,omitempty"`
	Old   rowstore.Row `json:"old,omitempty"`
}

// Row returns the row the event is about: New, or Old for deletes.
func (c Change) Row() rowstore.Row {
	if c.Event == EventDelete || c.New == nil {
		return c.Old
	}
	return c.New
}

// Spec names the table/event/filter tuple a subscription watches.
type Spec struct {
	Table  string
	Event  Event
	Filter string
}

func (s Spec) String() string {
	if s.Filter == "" {
		return fmt.Sprintf("%s:%s", s.Table, s.Event)
	}
	return fmt.Sprintf("%s:%s:%s", s.Table, s.Event, s.Filter)
}

type Handle uint64

type Handler func(Change)

// Stream is the change-stream transport. Handlers are called on the
// transport's goroutine and must return promptly.
type Stream interface {
	Subscribe(spec Spec, h Handler) (Handle, error)
	Unsubscribe(h Handle) error
}

// Reconnector is implemented by transports that can lose and regain their
// connection. fn runs after every reconnect.
type Reconnector interface {
	OnReconnect(fn func()) (cancel func())
}
