package realtime

import "sync"

// Registry keeps the subscriptions of an in-process fan-out. Transports
// embed it and call Dispatch for every change they receive.
type Registry struct {
	mu        sync.Mutex
	next      Handle
	subs      map[Handle]registered
	reconnect map[int]func()
	nextHook  int
}

type registered struct {
	m matcher
	h Handler
}

func (r *Registry) Subscribe(spec Spec, h Handler) (Handle, error) {
	m, err := newMatcher(spec)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = map[Handle]registered{}
	}
	r.next++
	r.subs[r.next] = registered{m: m, h: h}
	return r.next, nil
}

func (r *Registry) Unsubscribe(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[h]; !ok {
		return ErrUnknownHandle
	}
	delete(r.subs, h)
	return nil
}

// Dispatch hands c to every matching handler.
func (r *Registry) Dispatch(c Change) {
	r.mu.Lock()
	handlers := make([]Handler, 0, len(r.subs))
	for _, s := range r.subs {
		if s.m.matches(c) {
			handlers = append(handlers, s.h)
		}
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(c)
	}
}

// Len is the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Registry) OnReconnect(fn func()) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reconnect == nil {
		r.reconnect = map[int]func(){}
	}
	r.nextHook++
	id := r.nextHook
	r.reconnect[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.reconnect, id)
	}
}

// Reconnected runs the reconnect hooks.
func (r *Registry) Reconnected() {
	r.mu.Lock()
	hooks := make([]func(), 0, len(r.reconnect))
	for _, fn := range r.reconnect {
		hooks = append(hooks, fn)
	}
	r.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
