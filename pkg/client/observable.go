package client

import "sync"

// observable holds a state value and notifies subscribers after every
// change. Listeners run synchronously on the goroutine that changed the
// state, outside the lock.
type observable[S any] struct {
	mu        sync.RWMutex
	state     S
	listeners map[int]func(S)
	nextID    int
}

func newObservable[S any](initial S) *observable[S] {
	return &observable[S]{state: initial, listeners: map[int]func(S){}}
}

func (o *observable[S]) get() S {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *observable[S]) update(fn func(*S)) {
	o.mu.Lock()
	fn(&o.state)
	s := o.state
	ls := make([]func(S), 0, len(o.listeners))
	for _, l := range o.listeners {
		ls = append(ls, l)
	}
	o.mu.Unlock()
	for _, l := range ls {
		l(s)
	}
}

func (o *observable[S]) subscribe(fn func(S)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.listeners, id)
			o.mu.Unlock()
		})
	}
}
