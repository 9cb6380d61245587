package connectivity

import "sync"

// StaticMonitor is a manually driven Monitor for tests and fixed
// deployments. Set publishes change-only transitions like ProbeMonitor.
type StaticMonitor struct {
	fanout fanout

	mu     sync.Mutex
	online bool
}

// NewStaticMonitor returns a monitor seeded with the given state.
func NewStaticMonitor(online bool) *StaticMonitor {
	return &StaticMonitor{online: online}
}

// Online returns the current state.
func (m *StaticMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a change listener.
func (m *StaticMonitor) Subscribe(fn func(online bool)) (cancel func()) {
	return m.fanout.subscribe(fn)
}

// Set updates the state and notifies subscribers when it changed.
func (m *StaticMonitor) Set(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if changed {
		m.fanout.notify(online)
	}
}
