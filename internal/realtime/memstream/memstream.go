// Package memstream is an in-process change stream. The fixture store
// publishes into it; tests drive it directly.
package memstream

import (
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
)

type Stream struct {
	realtime.Registry
}

func New() *Stream {
	return &Stream{}
}

// Publish delivers c to every matching subscriber on the caller's goroutine.
func (s *Stream) Publish(c realtime.Change) {
	s.Dispatch(c)
}

// Reconnect simulates the transport dropping and regaining its connection.
func (s *Stream) Reconnect() {
	s.Reconnected()
}
