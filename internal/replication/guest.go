package replication

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/engine"
	"github.com/dom/snake-draft-server/internal/transport"
)

// GuestEvents carries optional callbacks into the embedding application. All
// callbacks fire from the channel's delivery goroutine; keep them quick.
type GuestEvents struct {
	OnState        func(engine.State)
	OnParticipants func([]domain.Participant)
	OnTimer        func(seconds int)
	OnStart        func()
	OnOrderPreview func(order []string)
	OnError        func(message string)
	OnClosed       func()
}

// Guest is the non-authoritative side of a draft room. It mirrors the host's
// state wholesale, answers liveness pings, and turns local intent into
// requests the host may accept or reject. It never predicts: the mirror only
// changes when a host message arrives.
type Guest struct {
	ch     transport.Channel
	name   string
	events GuestEvents

	mu           sync.Mutex
	mirror       *engine.Engine
	participants []domain.Participant
	orderPreview []string
	closed       bool
}

// NewGuest wraps a channel to a room host. Join must be called to announce
// the guest before the host will count it as a participant.
func NewGuest(ch transport.Channel, name string, events GuestEvents) *Guest {
	g := &Guest{
		ch:     ch,
		name:   name,
		events: events,
		mirror: engine.New(),
	}
	ch.Bind(g)
	return g
}

// Join announces this guest to the host.
func (g *Guest) Join() error {
	return g.send(MessageTypeJoinRequest, JoinRequestPayload{Name: g.name})
}

// RequestPick asks the host to draft a player. The local mirror is not
// touched; the answering SYNC_STATE is the only confirmation.
func (g *Guest) RequestPick(playerID string) error {
	return g.send(MessageTypeRequestPick, RequestPickPayload{PlayerID: playerID})
}

// StartGame asks the host to assign teams and leave the lobby. Host-only;
// other senders get an ERROR back.
func (g *Guest) StartGame() error {
	return g.send(MessageTypeStartGame, nil)
}

// SetOrder commits a draft order. Host-only.
func (g *Guest) SetOrder(order []string) error {
	return g.send(MessageTypeSetOrder, SetOrderPayload{Order: order})
}

// SendOrderPreview shares an in-progress order arrangement. Host-only.
func (g *Guest) SendOrderPreview(order []string) error {
	return g.send(MessageTypeOrderPreview, OrderPreviewPayload{Order: order})
}

// RequestUndo asks the host to revert the last draft action. Host-only.
func (g *Guest) RequestUndo() error {
	return g.send(MessageTypeRequestUndo, nil)
}

// RequestSkip asks the host to forfeit the current turn. Host-only.
func (g *Guest) RequestSkip() error {
	return g.send(MessageTypeRequestSkip, nil)
}

// ReturnToLobby asks the host to reset the draft back to the lobby. Host-only.
func (g *Guest) ReturnToLobby() error {
	return g.send(MessageTypeReturnToLobby, nil)
}

// Leave tells the host this guest is going away, then closes the channel.
func (g *Guest) Leave() error {
	g.send(MessageTypeLeave, nil)
	return g.ch.Close()
}

// State returns a copy of the mirrored draft state.
func (g *Guest) State() engine.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mirror.State()
}

// Participants returns the last roster broadcast by the host.
func (g *Guest) Participants() []domain.Participant {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Participant, len(g.participants))
	copy(out, g.participants)
	return out
}

// OrderPreview returns the in-flight order being dragged on the host, if any.
func (g *Guest) OrderPreview() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.orderPreview))
	copy(out, g.orderPreview)
	return out
}

// Closed reports whether the room connection has ended.
func (g *Guest) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// HandleMessage implements transport.Handler.
func (g *Guest) HandleMessage(peerID string, data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		log.Printf("guest %s: bad message: %v", g.name, err)
		return
	}

	switch msg.Type {
	case MessageTypePing:
		g.send(MessageTypePong, nil)

	case MessageTypeSyncState:
		var p SyncStatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		g.mu.Lock()
		// Wholesale replacement: the incoming snapshot is the truth, local
		// state is discarded entirely. Re-applying the same snapshot is a
		// no-op, which makes SYNC_STATE safely idempotent.
		g.mirror.Restore(p.State)
		g.mu.Unlock()
		if g.events.OnState != nil {
			g.events.OnState(p.State)
		}

	case MessageTypeUpdateParticipants:
		var p UpdateParticipantsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		g.mu.Lock()
		g.participants = p.Participants
		g.mu.Unlock()
		if g.events.OnParticipants != nil {
			g.events.OnParticipants(p.Participants)
		}

	case MessageTypeSyncTimer:
		var p SyncTimerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		g.mu.Lock()
		g.mirror.SetTimeLeft(p.Seconds)
		g.mu.Unlock()
		if g.events.OnTimer != nil {
			g.events.OnTimer(p.Seconds)
		}

	case MessageTypeStartGame:
		g.mu.Lock()
		g.mirror.SetStep(domain.PhaseOrderSetting)
		g.mu.Unlock()
		if g.events.OnStart != nil {
			g.events.OnStart()
		}

	case MessageTypeOrderPreview:
		var p OrderPreviewPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		g.mu.Lock()
		g.orderPreview = p.Order
		g.mu.Unlock()
		if g.events.OnOrderPreview != nil {
			g.events.OnOrderPreview(p.Order)
		}

	case MessageTypeError:
		var p ErrorPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		log.Printf("guest %s: host error: %s", g.name, p.Message)
		if g.events.OnError != nil {
			g.events.OnError(p.Message)
		}

	case MessageTypeRoomClosed:
		g.teardown()

	default:
		log.Printf("guest %s: unknown message type %q", g.name, msg.Type)
	}
}

// HandleClose implements transport.Handler.
func (g *Guest) HandleClose(peerID string) {
	g.teardown()
}

func (g *Guest) teardown() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	g.ch.Close()
	if g.events.OnClosed != nil {
		g.events.OnClosed()
	}
}

func (g *Guest) send(msgType MessageType, payload interface{}) error {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return g.ch.Send(data)
}
