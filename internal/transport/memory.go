package transport

import "sync"

const memoryBuffer = 256

// memoryChannel is one end of an in-memory channel pair. Used by tests to run
// a host and guests inside a single process.
type memoryChannel struct {
	peerID string
	out    *memoryChannel // the other end

	mu      sync.Mutex
	inbox   chan []byte
	closed  chan struct{}
	closeMu sync.Once
	handler Handler
}

// Pair returns two connected channel ends. The first end sees hostPeerID as
// its remote peer, the second sees guestPeerID. Each end must be Bound before
// messages flow to its handler.
func Pair(hostPeerID, guestPeerID string) (hostEnd, guestEnd Channel) {
	a := &memoryChannel{peerID: guestPeerID, inbox: make(chan []byte, memoryBuffer), closed: make(chan struct{})}
	b := &memoryChannel{peerID: hostPeerID, inbox: make(chan []byte, memoryBuffer), closed: make(chan struct{})}
	a.out = b
	b.out = a
	return a, b
}

func (c *memoryChannel) PeerID() string { return c.peerID }

func (c *memoryChannel) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	case <-c.out.closed:
		return ErrChannelClosed
	default:
	}

	// Copy so the sender cannot mutate in-flight data.
	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case c.out.inbox <- buf:
		return nil
	default:
		// At-most-once: drop on a full buffer rather than block.
		return nil
	}
}

func (c *memoryChannel) Bind(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()

	go func() {
		for {
			select {
			case data := <-c.inbox:
				h.HandleMessage(c.peerID, data)
			case <-c.closed:
				// Drain what was already queued, then signal close.
				for {
					select {
					case data := <-c.inbox:
						h.HandleMessage(c.peerID, data)
					default:
						h.HandleClose(c.peerID)
						return
					}
				}
			}
		}
	}()
}

func (c *memoryChannel) Close() error {
	c.closeMu.Do(func() {
		close(c.closed)
		c.out.closeMu.Do(func() {
			close(c.out.closed)
		})
	})
	return nil
}
