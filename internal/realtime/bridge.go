package realtime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Invalidator is the shared invalidation path. Mutations and realtime
// changes both end up here.
type Invalidator interface {
	InvalidateChange(c Change)
}

type InvalidatorFunc func(c Change)

func (f InvalidatorFunc) InvalidateChange(c Change) { f(c) }

type State int

const (
	Closed State = iota
	Subscribing
	Open
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Open:
		return "open"
	}
	return "closed"
}

// Bridge owns the subscriptions consumers open against a Stream.
type Bridge struct {
	stream Stream
	inv    Invalidator

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	unhook func()
}

func NewBridge(stream Stream, inv Invalidator) *Bridge {
	b := &Bridge{
		stream: stream,
		inv:    inv,
		subs:   map[*Subscription]struct{}{},
	}
	if rc, ok := stream.(Reconnector); ok {
		b.unhook = rc.OnReconnect(b.resubscribeAll)
	}
	return b
}

// Open subscribes to table/event with filter. onChange, when set, runs after
// the invalidation for each event, on the subscription's own goroutine.
func (b *Bridge) Open(table string, event Event, filter string, onChange func(Change)) (*Subscription, error) {
	s := &Subscription{
		bridge:   b,
		table:    table,
		event:    event,
		onChange: onChange,
		queue:    newQueue(),
	}

	s.mu.Lock()
	err := s.subscribeLocked(filter)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.process()

	return s, nil
}

// Close closes every subscription and detaches from the transport.
func (b *Bridge) Close() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	unhook := b.unhook
	b.unhook = nil
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	if unhook != nil {
		unhook()
	}
}

// Len is the number of subscriptions not yet closed.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bridge) resubscribeAll() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		if err := s.resubscribe(); err != nil {
			zap.L().Error("realtime: resubscribe after reconnect failed", zap.String("spec", s.spec().String()), zap.Error(err))
		}
	}
}

func (b *Bridge) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// Subscription is one consumer's watch on a table. Its filter is part of its
// identity: changing it goes through a full unsubscribe and resubscribe.
type Subscription struct {
	bridge   *Bridge
	table    string
	event    Event
	onChange func(Change)
	queue    *queue

	mu     sync.Mutex
	state  State
	filter string
	handle Handle

	// gen tags deliveries so events from a replaced handle are dropped.
	gen atomic.Uint64
}

// Status reports the state and, when open, the active filter.
func (s *Subscription) Status() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return s.state, ""
	}
	return s.state, s.filter
}

// Refilter replaces the filter, for example after the signed-in user changed.
// If the new subscribe fails the subscription ends up closed and released.
func (s *Subscription) Refilter(filter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return ErrClosed
	}
	if s.state == Open && s.filter == filter {
		return nil
	}
	if err := s.bridge.stream.Unsubscribe(s.handle); err != nil {
		zap.L().Warn("realtime: unsubscribe before refilter", zap.String("spec", s.specLocked().String()), zap.Error(err))
	}
	return s.subscribeLocked(filter)
}

// Close releases this subscription only. Closing twice is a no-op.
func (s *Subscription) Close() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	err := s.bridge.stream.Unsubscribe(s.handle)
	s.state = Closed
	s.gen.Add(1)
	s.mu.Unlock()

	s.queue.close()
	s.bridge.remove(s)

	if err != nil {
		return fmt.Errorf("s.bridge.stream.Unsubscribe -> %w", err)
	}
	return nil
}

func (s *Subscription) spec() Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specLocked()
}

func (s *Subscription) specLocked() Spec {
	return Spec{Table: s.table, Event: s.event, Filter: s.filter}
}

func (s *Subscription) subscribeLocked(filter string) error {
	s.state = Subscribing
	gen := s.gen.Add(1)

	h, err := s.bridge.stream.Subscribe(Spec{Table: s.table, Event: s.event, Filter: filter}, func(c Change) {
		s.queue.push(delivery{gen: gen, change: c})
	})
	if err != nil {
		// A subscription that cannot resubscribe is finished: nothing will
		// feed its queue again, so its worker and bridge slot go with it.
		s.state = Closed
		s.gen.Add(1)
		s.queue.close()
		s.bridge.remove(s)
		return fmt.Errorf("s.bridge.stream.Subscribe -> %w", err)
	}

	s.handle = h
	s.filter = filter
	s.state = Open
	return nil
}

func (s *Subscription) resubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Open {
		return nil
	}
	// The transport may already have forgotten the handle; either way it must not fire twice.
	_ = s.bridge.stream.Unsubscribe(s.handle)
	return s.subscribeLocked(s.filter)
}

func (s *Subscription) process() {
	for {
		d, ok := s.queue.pop()
		if !ok {
			return
		}
		if d.gen != s.gen.Load() {
			continue
		}
		s.apply(d.change)
	}
}

func (s *Subscription) apply(c Change) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("realtime: change handler panicked", zap.String("table", c.Table), zap.Any("panic", r))
		}
	}()

	s.bridge.inv.InvalidateChange(c)
	if s.onChange != nil {
		s.onChange(c)
	}
}

type delivery struct {
	gen    uint64
	change Change
}

// queue is an unbounded FIFO so transport callbacks never block.
type queue struct {
	mu     sync.Mutex
	items  []delivery
	closed bool
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(d delivery) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, d)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *queue) pop() (delivery, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			d := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return d, true
		}
		if q.closed {
			q.mu.Unlock()
			return delivery{}, false
		}
		q.mu.Unlock()
		<-q.signal
	}
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}
