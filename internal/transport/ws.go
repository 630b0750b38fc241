package transport

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

// wsChannel adapts a gorilla websocket connection to the Channel interface.
// The websocket-level ping/pong keepalive here is connection plumbing; the
// replication protocol's PING/PONG liveness runs above it as ordinary
// messages.
type wsChannel struct {
	peerID string
	conn   *websocket.Conn
	send   chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWSChannel wraps an established websocket connection as a channel to the
// given peer.
func NewWSChannel(conn *websocket.Conn, peerID string) Channel {
	return &wsChannel{
		peerID: peerID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

// DialWS connects to a websocket URL and returns the resulting channel.
func DialWS(url, peerID string) (Channel, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return NewWSChannel(conn, peerID), nil
}

func (c *wsChannel) PeerID() string { return c.peerID }

func (c *wsChannel) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		// At-most-once: drop rather than block the caller.
		return nil
	}
}

func (c *wsChannel) Bind(h Handler) {
	go c.writePump()
	go c.readPump(h)
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
	return nil
}

func (c *wsChannel) readPump(h Handler) {
	defer func() {
		c.Close()
		h.HandleClose(c.peerID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("transport: websocket error from %s: %v", c.peerID, err)
			}
			return
		}
		h.HandleMessage(c.peerID, data)
	}
}

func (c *wsChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
