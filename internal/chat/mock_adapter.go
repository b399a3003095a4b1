package chat

import (
	"context"
	"sync"
)

// MockAdapter is an in-memory Adapter used by tests and local development.
// Inbound messages are injected with Inject; sent messages are recorded.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	inbound   chan InboundMessage
	sent      []OutboundMessage
	sendErr   error
}

// NewMockAdapter creates an unconnected mock adapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{inbound: make(chan InboundMessage, 16)}
}

func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *MockAdapter) Listen(ctx context.Context) (<-chan InboundMessage, error) {
	return m.inbound, nil
}

func (m *MockAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		m.connected = false
		close(m.inbound)
	}
	return nil
}

// Inject delivers an inbound message to listeners.
func (m *MockAdapter) Inject(msg InboundMessage) {
	m.inbound <- msg
}

// Sent returns a copy of the messages sent so far.
func (m *MockAdapter) Sent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// FailSends makes subsequent Send calls return err.
func (m *MockAdapter) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}
