package connectivity

import "sync"

// Monitor reports remote reachability. Online returns the last known
// state; Subscribe registers a listener invoked on every state change
// until the returned cancel function is called. Listeners never fire for
// repeated observations of the same state.
type Monitor interface {
	Online() bool
	Subscribe(fn func(online bool)) (cancel func())
}

// fanout implements the change-only subscriber registry shared by the
// monitor implementations.
type fanout struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(bool)
}

func (f *fanout) subscribe(fn func(online bool)) func() {
	if fn == nil {
		return func() {}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[int]func(bool))
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fanout) notify(online bool) {
	f.mu.Lock()
	listeners := make([]func(bool), 0, len(f.subs))
	for _, fn := range f.subs {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(online)
	}
}
