package transport

import "sync"

// Registry is an ordered set of handlers keyed by subscription token.
// Dispatch runs over a snapshot, so handlers may add or remove entries
// while being called.
type Registry[T any] struct {
	mu       sync.Mutex
	next     uint64
	order    []uint64
	handlers map[uint64]func(T)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		handlers: make(map[uint64]func(T)),
	}
}

// Add registers h and returns a function that removes exactly this
// registration. Calling it more than once is a no-op.
func (r *Registry[T]) Add(h func(T)) (remove func()) {
	r.mu.Lock()
	r.next++
	token := r.next
	r.order = append(r.order, token)
	r.handlers[token] = h
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(token) })
	}
}

func (r *Registry[T]) remove(token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[token]; !ok {
		return
	}
	delete(r.handlers, token)
	for i, t := range r.order {
		if t == token {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Snapshot returns the handlers in registration order.
func (r *Registry[T]) Snapshot() []func(T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]func(T), 0, len(r.order))
	for _, token := range r.order {
		out = append(out, r.handlers[token])
	}
	return out
}

// Dispatch calls every registered handler with v, in registration order.
func (r *Registry[T]) Dispatch(v T) {
	for _, h := range r.Snapshot() {
		h(v)
	}
}
