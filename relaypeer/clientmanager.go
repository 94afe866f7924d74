package relaypeer

import (
	"fmt"
	"sync"
)

// ClientManager owns the set of outbound relay-peer clients (C6), keyed by
// address, tracking which are connected, waiting to reconnect, or marked
// for permanent removal per spec §3.
type ClientManager struct {
	cfg *ClientConfig

	mu      sync.Mutex
	clients map[string]*Client
}

// NewClientManager returns an empty ClientManager.
func NewClientManager(cfg *ClientConfig) *ClientManager {
	return &ClientManager{cfg: cfg, clients: make(map[string]*Client)}
}

// Add begins connecting to a sibling relay node at addr (host only; the
// relay-protocol port is always 8336 per spec §6).
func (m *ClientManager) Add(host string) error {
	addr := fmt.Sprintf("%s:8336", host)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[host]; exists {
		return fmt.Errorf("relaypeer: %s already tracked", host)
	}
	m.clients[host] = NewClient(addr, m.cfg, func() {
		m.mu.Lock()
		delete(m.clients, host)
		m.mu.Unlock()
	})
	return nil
}

// MarkRemoved flags host's client for removal after its next disconnect.
func (m *ClientManager) MarkRemoved(host string) error {
	m.mu.Lock()
	c, ok := m.clients[host]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("relaypeer: %s not tracked", host)
	}
	c.MarkForRemoval()
	return nil
}

// ClientStatus is a point-in-time snapshot of one relay-peer client.
type ClientStatus struct {
	Addr      string
	Connected bool
}

// Statuses returns a ClientStatus for every tracked client, for the TUI.
func (m *ClientManager) Statuses() []ClientStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ClientStatus, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, ClientStatus{Addr: c.addr, Connected: c.conn != nil})
	}
	return out
}
