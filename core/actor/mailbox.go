package actor

import "sync"

// mailbox is an unbounded FIFO. Pushing never blocks, so delivery from
// runtime callbacks cannot stall on a slow or paused receiver.
type mailbox struct {
	mu     sync.Mutex
	queue  []Envelope
	closed bool
	ready  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

// push appends e. It returns false once the mailbox is closed; the caller
// still owns e then.
func (m *mailbox) push(e Envelope) (depth int, ok bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, false
	}
	m.queue = append(m.queue, e)
	depth = len(m.queue)
	m.mu.Unlock()
	m.signal()
	return depth, true
}

func (m *mailbox) pop() (e Envelope, depth int, ok bool) {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return e, 0, false
	}
	e = m.queue[0]
	m.queue[0] = Envelope{}
	m.queue = m.queue[1:]
	depth = len(m.queue)
	m.mu.Unlock()
	if depth > 0 {
		m.signal()
	}
	return e, depth, true
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// close rejects further pushes and hands back whatever was still queued.
func (m *mailbox) close() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	rest := m.queue
	m.queue = nil
	return rest
}

func (m *mailbox) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}
