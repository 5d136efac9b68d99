// Package query is the process-wide read cache. Every read goes through a
// Client, keyed by Key; mutations invalidate the keys they affect.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrUndefinedKey = errors.New("no fetcher defined for key")

// Fetcher loads the data for one key.
type Fetcher func(ctx context.Context) (any, error)

// Builder returns the fetcher for a key name and its param.
type Builder func(param string) Fetcher

// State is the read view handed to consumers.
type State struct {
	Data      any
	HasData   bool
	IsLoading bool
	IsError   bool
	Err       error
	UpdatedAt time.Time
}

type Client struct {
	retry        RetryPolicy
	fetchTimeout time.Duration
	now          func() time.Time

	mu        sync.Mutex
	policy    Policy
	builders  map[string]Builder
	entries   map[Key]*entry
	listeners map[int]func(Key)
	nextID    int

	inflight sync.WaitGroup
}

type entry struct {
	key         Key
	data        any
	hasData     bool
	err         error
	updatedAt   time.Time
	invalidated bool
	gen         uint64
	call        *call
	observers   map[int]*observer
}

// call is one fetch. gen is the entry's invalidation generation when it
// started; next is the follow-up started because the entry was invalidated
// while this call ran.
type call struct {
	done chan struct{}
	gen  uint64
	next *call
}

type observer struct {
	active atomic.Bool
	fn     func(State)
}

type Option func(*Client)

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) { c.fetchTimeout = d }
}

func NewClient(policy Policy, retry RetryPolicy, opts ...Option) *Client {
	c := &Client{
		retry:        retry,
		fetchTimeout: 10 * time.Second,
		now:          time.Now,
		policy:       policy,
		builders:     map[string]Builder{},
		entries:      map[Key]*entry{},
		listeners:    map[int]func(Key){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Define binds a key name to the builder of its fetchers.
func (c *Client) Define(name string, b Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[name] = b
}

// SetPolicy swaps the staleness table. Cached entries are judged against the new table on next read.
func (c *Client) SetPolicy(p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
}

// Fetch returns fresh cached data, or joins or starts the single in-flight
// fetch for key and waits for it. Cancelling ctx stops the wait only; the
// fetch runs to completion and still fills the cache. Fetch errors are
// reported in the State, the returned error covers ctx and undefined keys.
func (c *Client) Fetch(ctx context.Context, key Key) (State, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if c.freshLocked(e) {
		st := e.state()
		c.mu.Unlock()
		return st, nil
	}
	cl, err := c.startLocked(context.WithoutCancel(ctx), e)
	c.mu.Unlock()
	if err != nil {
		return State{}, err
	}

	for cl != nil {
		select {
		case <-cl.done:
		case <-ctx.Done():
			return c.Peek(key), ctx.Err()
		}
		c.mu.Lock()
		cl = cl.next
		c.mu.Unlock()
	}

	return c.Peek(key), nil
}

// Refetch marks key stale and fetches it.
func (c *Client) Refetch(ctx context.Context, key Key) (State, error) {
	c.mu.Lock()
	c.entryLocked(key).invalidated = true
	c.mu.Unlock()

	return c.Fetch(ctx, key)
}

// Peek returns the current view of key without fetching.
func (c *Client) Peek(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return State{}
	}
	return e.state()
}

// Invalidate marks each key stale. Keys that have been read before get their
// refetch started before Invalidate returns. A key with a fetch already in
// flight gets exactly one follow-up fetch once that call settles, however
// many invalidations arrive meanwhile, so data read before the invalidation
// is never stored as fresh.
func (c *Client) Invalidate(keys ...Key) {
	c.mu.Lock()
	for _, k := range keys {
		e, ok := c.entries[k]
		if !ok {
			continue
		}
		e.invalidated = true
		e.gen++
		if _, err := c.startLocked(context.Background(), e); err != nil {
			zap.L().Warn("query: refetch not started", zap.String("key", k.String()), zap.Error(err))
		}
	}
	listeners := c.listenersLocked()
	c.mu.Unlock()

	for _, k := range keys {
		for _, fn := range listeners {
			fn(k)
		}
	}
}

// InvalidateName invalidates every cached key with the given name.
func (c *Client) InvalidateName(name string) {
	c.mu.Lock()
	var keys []Key
	for k := range c.entries {
		if k.Name == name {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	if len(keys) == 0 {
		keys = []Key{NewKey(name)}
	}
	c.Invalidate(keys...)
}

// Mutate runs write under the retry policy. Only on success are the affected
// keys invalidated, and their refetches are in flight when Mutate returns.
func (c *Client) Mutate(ctx context.Context, write func(ctx context.Context) error, affected ...Key) error {
	_, err := c.retry.Do(ctx, func(ctx context.Context) (any, error) {
		return nil, write(ctx)
	})
	if err != nil {
		return err
	}

	c.Invalidate(affected...)
	return nil
}

// Subscribe registers fn to receive the state of key after every settled
// fetch. The returned func unsubscribes; after it returns fn is not called again
// for notifications that have not started yet.
func (c *Client) Subscribe(key Key, fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	e := c.entryLocked(key)
	c.nextID++
	id := c.nextID
	o := &observer{fn: fn}
	o.active.Store(true)
	e.observers[id] = o
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.active.Store(false)
			c.mu.Lock()
			if cur, ok := c.entries[key]; ok {
				delete(cur.observers, id)
			}
			c.mu.Unlock()
		})
	}
}

// OnInvalidate registers fn to be told about every invalidated key.
func (c *Client) OnInvalidate(fn func(Key)) (cancel func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Clear drops every cached entry. Fetches already in flight complete into
// the dropped entries and are discarded.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[Key]*entry{}
}

// InFlight reports whether key has a fetch outstanding.
func (c *Client) InFlight(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.call != nil
}

// Wait blocks until no fetch is in flight.
func (c *Client) Wait() {
	c.inflight.Wait()
}

func (c *Client) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key, observers: map[int]*observer{}}
		c.entries[key] = e
	}
	return e
}

func (c *Client) freshLocked(e *entry) bool {
	if !e.hasData || e.invalidated || e.err != nil {
		return false
	}
	return c.now().Sub(e.updatedAt) < c.policy.StaleTime(e.key.Name)
}

func (c *Client) listenersLocked() []func(Key) {
	out := make([]func(Key), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func (c *Client) startLocked(ctx context.Context, e *entry) (*call, error) {
	if e.call != nil {
		return e.call, nil
	}

	build, ok := c.builders[e.key.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedKey, e.key)
	}

	cl := &call{done: make(chan struct{}), gen: e.gen}
	e.call = cl
	c.inflight.Add(1)
	go c.run(ctx, e, cl, build(e.key.Param))

	return cl, nil
}

func (c *Client) run(ctx context.Context, e *entry, cl *call, fetch Fetcher) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	data, err := c.retry.Do(ctx, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})

	c.mu.Lock()
	e.call = nil
	if err != nil {
		e.err = err
		zap.L().Warn("query: fetch failed", zap.String("key", e.key.String()), zap.Bool("stale_data_kept", e.hasData), zap.Error(err))
	} else {
		e.data = data
		e.hasData = true
		e.err = nil
		e.invalidated = cl.gen != e.gen
		e.updatedAt = c.now()
	}
	if cl.gen != e.gen && c.entries[e.key] == e {
		next, err := c.startLocked(context.WithoutCancel(ctx), e)
		if err != nil {
			zap.L().Warn("query: follow-up refetch not started", zap.String("key", e.key.String()), zap.Error(err))
		}
		cl.next = next
	}
	st := e.state()
	observers := make([]*observer, 0, len(e.observers))
	for _, o := range e.observers {
		observers = append(observers, o)
	}
	close(cl.done)
	c.mu.Unlock()

	for _, o := range observers {
		if o.active.Load() {
			o.fn(st)
		}
	}
}

func (e *entry) state() State {
	st := State{
		Data:      e.data,
		HasData:   e.hasData,
		IsLoading: e.call != nil,
		IsError:   e.err != nil,
		Err:       e.err,
	}
	if e.hasData {
		st.UpdatedAt = e.updatedAt
	}
	return st
}
