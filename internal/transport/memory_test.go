package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu       sync.Mutex
	messages [][]byte
	peers    []string
	closed   bool
	closedCh chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{closedCh: make(chan struct{})}
}

func (h *recordingHandler) HandleMessage(peerID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, data)
	h.peers = append(h.peers, peerID)
}

func (h *recordingHandler) HandleClose(peerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.closedCh)
	}
}

func (h *recordingHandler) waitMessages(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		if len(h.messages) >= n {
			out := make([][]byte, len(h.messages))
			copy(out, h.messages)
			h.mu.Unlock()
			return out
		}
		h.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages", n)
	return nil
}

func (h *recordingHandler) waitClose(t *testing.T) {
	t.Helper()
	select {
	case <-h.closedCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}
}

func TestPair_Delivery(t *testing.T) {
	hostEnd, guestEnd := Pair("host", "guest")

	hostHandler := newRecordingHandler()
	guestHandler := newRecordingHandler()
	hostEnd.Bind(hostHandler)
	guestEnd.Bind(guestHandler)

	require.NoError(t, hostEnd.Send([]byte("to guest")))
	require.NoError(t, guestEnd.Send([]byte("to host")))

	got := guestHandler.waitMessages(t, 1)
	assert.Equal(t, "to guest", string(got[0]))

	got = hostHandler.waitMessages(t, 1)
	assert.Equal(t, "to host", string(got[0]))
}

func TestPair_PeerIDs(t *testing.T) {
	hostEnd, guestEnd := Pair("host", "guest")
	assert.Equal(t, "guest", hostEnd.PeerID(), "host's end names the remote guest")
	assert.Equal(t, "host", guestEnd.PeerID(), "guest's end names the remote host")
}

func TestPair_Ordering(t *testing.T) {
	hostEnd, guestEnd := Pair("host", "guest")

	guestHandler := newRecordingHandler()
	guestEnd.Bind(guestHandler)

	want := []string{"one", "two", "three", "four"}
	for _, m := range want {
		require.NoError(t, hostEnd.Send([]byte(m)))
	}

	got := guestHandler.waitMessages(t, len(want))
	for i, m := range want {
		assert.Equal(t, m, string(got[i]))
	}
}

func TestPair_SendCopiesData(t *testing.T) {
	hostEnd, guestEnd := Pair("host", "guest")

	guestHandler := newRecordingHandler()
	guestEnd.Bind(guestHandler)

	buf := []byte("original")
	require.NoError(t, hostEnd.Send(buf))
	copy(buf, "mutated!")

	got := guestHandler.waitMessages(t, 1)
	assert.Equal(t, "original", string(got[0]))
}

func TestPair_Close(t *testing.T) {
	hostEnd, guestEnd := Pair("host", "guest")

	hostHandler := newRecordingHandler()
	guestHandler := newRecordingHandler()
	hostEnd.Bind(hostHandler)
	guestEnd.Bind(guestHandler)

	require.NoError(t, hostEnd.Close())

	// Both ends observe the close, and sends now fail.
	hostHandler.waitClose(t)
	guestHandler.waitClose(t)
	assert.ErrorIs(t, hostEnd.Send([]byte("x")), ErrChannelClosed)
	assert.ErrorIs(t, guestEnd.Send([]byte("x")), ErrChannelClosed)
}

func TestPair_CloseDrainsQueued(t *testing.T) {
	hostEnd, guestEnd := Pair("host", "guest")

	require.NoError(t, hostEnd.Send([]byte("queued before bind")))
	require.NoError(t, hostEnd.Close())

	guestHandler := newRecordingHandler()
	guestEnd.Bind(guestHandler)

	got := guestHandler.waitMessages(t, 1)
	assert.Equal(t, "queued before bind", string(got[0]))
	guestHandler.waitClose(t)
}
