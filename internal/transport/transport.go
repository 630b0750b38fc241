// Package transport abstracts the peer connection used by the replication
// coordinator: an ordered, at-most-once pipe of opaque messages between two
// named endpoints, plus close signaling. The coordinator is written purely
// against this interface so the real transport (websocket) is swappable for
// an in-memory pair in tests.
package transport

import "errors"

// ErrChannelClosed is returned by Send after a channel has closed.
var ErrChannelClosed = errors.New("transport: channel closed")

// Handler receives inbound traffic from one or more channels. Events for a
// single channel are delivered in order from a single goroutine.
type Handler interface {
	HandleMessage(peerID string, data []byte)
	HandleClose(peerID string)
}

// Channel is a logical connection to a single named peer.
type Channel interface {
	// PeerID identifies the remote endpoint.
	PeerID() string

	// Send queues an opaque message for delivery. Delivery is at-most-once:
	// a message may be dropped, but never duplicated or reordered.
	Send(data []byte) error

	// Bind attaches the handler and starts delivery. Must be called exactly
	// once before any traffic is expected.
	Bind(h Handler)

	// Close tears the channel down; the peer observes a close event.
	Close() error
}
