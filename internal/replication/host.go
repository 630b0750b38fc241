// Package replication implements the host-authoritative draft protocol: one
// host owns the engine state, up to four guests mirror it wholesale over peer
// channels, and disconnected owners fail over to AI control.
package replication

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dom/snake-draft-server/internal/bidder"
	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/engine"
	"github.com/dom/snake-draft-server/internal/repository"
	"github.com/dom/snake-draft-server/internal/transport"
)

// MaxParticipants caps the room at five members including the host.
const MaxParticipants = domain.TeamCount

// Config tunes the host's periodic work. Tests shrink the intervals; the
// defaults match the ruleset (1s cadence, 3s heartbeat timeout, ~1s AI think
// delay).
type Config struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	TickInterval      time.Duration
	AIPickDelay       time.Duration
}

// DefaultConfig returns the production cadence.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: time.Second,
		HeartbeatTimeout:  3 * time.Second,
		TickInterval:      time.Second,
		AIPickDelay:       time.Second,
	}
}

// Host runs the authoritative side of a draft room. All state mutations
// happen inside the single Run loop goroutine; channels deliver transport
// events, timer ticks, and scheduled AI picks into it.
type Host struct {
	roomID     uuid.UUID
	shortCode  string
	hostPeerID string

	cfg      Config
	eng      *engine.Engine
	sessions repository.DraftSessionRepository // optional, nil disables persistence

	participants []*domain.Participant
	channels     map[string]transport.Channel
	// names remembers every participant ever seen, so a failed-over team can
	// still display who it belonged to after the eviction.
	names map[string]string

	inbox chan hostEvent
	stop  chan struct{}
	done  chan struct{}

	aiTimer     *time.Timer
	aiPickIndex int

	onClosed func()
	rng      *rand.Rand
}

type hostEvent interface{ isHostEvent() }

type evAttach struct{ ch transport.Channel }
type evMessage struct {
	peerID string
	data   []byte
}
type evClose struct{ peerID string }
type evAIPick struct{ pickIndex int }
type evInspect struct{ reply chan HostView }

func (evAttach) isHostEvent()  {}
func (evMessage) isHostEvent() {}
func (evClose) isHostEvent()   {}
func (evAIPick) isHostEvent()  {}
func (evInspect) isHostEvent() {}

// HostView is a read-only snapshot of the host for tests and handlers.
type HostView struct {
	State        engine.State
	Participants []domain.Participant
}

// NewHost creates a room host. The hosting participant is registered
// immediately; their channel attaches when they connect. onClosed (optional)
// fires after the room has shut down.
func NewHost(roomID uuid.UUID, shortCode, hostPeerID, hostName string, eng *engine.Engine, sessions repository.DraftSessionRepository, cfg Config, onClosed func()) *Host {
	h := &Host{
		roomID:      roomID,
		shortCode:   shortCode,
		hostPeerID:  hostPeerID,
		cfg:         cfg,
		eng:         eng,
		sessions:    sessions,
		channels:    make(map[string]transport.Channel),
		names:       map[string]string{hostPeerID: hostName},
		inbox:       make(chan hostEvent, 64),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		aiPickIndex: -1,
		onClosed:    onClosed,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	h.participants = []*domain.Participant{{
		PeerID:        hostPeerID,
		Name:          hostName,
		IsConnected:   true,
		LastHeartbeat: time.Now(),
		IsHost:        true,
	}}
	return h
}

// RoomID returns the room's id.
func (h *Host) RoomID() uuid.UUID { return h.roomID }

// ShortCode returns the room's join code.
func (h *Host) ShortCode() string { return h.shortCode }

// Attach hands a connected peer channel to the host loop. The host binds
// itself as the channel's handler.
func (h *Host) Attach(ch transport.Channel) {
	ch.Bind(h)
	h.post(evAttach{ch: ch})
}

// HandleMessage implements transport.Handler.
func (h *Host) HandleMessage(peerID string, data []byte) {
	h.post(evMessage{peerID: peerID, data: data})
}

// HandleClose implements transport.Handler.
func (h *Host) HandleClose(peerID string) {
	h.post(evClose{peerID: peerID})
}

// Inspect returns a consistent snapshot of state and participants.
func (h *Host) Inspect() (HostView, bool) {
	reply := make(chan HostView, 1)
	select {
	case h.inbox <- evInspect{reply: reply}:
	case <-h.done:
		return HostView{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-h.done:
		return HostView{}, false
	}
}

// Stop shuts the room down, notifying guests with ROOM_CLOSED. It blocks
// until the loop has exited.
func (h *Host) Stop() {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.stop <- struct{}{}:
	case <-h.done:
		return
	}
	<-h.done
}

// Done is closed once the room has shut down.
func (h *Host) Done() <-chan struct{} { return h.done }

func (h *Host) post(ev hostEvent) {
	select {
	case h.inbox <- ev:
	case <-h.done:
	}
}

// Run executes the host event loop: transport events, the 1s heartbeat task,
// and the 1s draft-timer task, all serialized on one goroutine.
func (h *Host) Run() {
	heartbeat := time.NewTicker(h.cfg.HeartbeatInterval)
	draftTick := time.NewTicker(h.cfg.TickInterval)
	defer func() {
		heartbeat.Stop()
		draftTick.Stop()
		h.cancelAIPick()
		close(h.done)
		if h.onClosed != nil {
			h.onClosed()
		}
	}()

	for {
		select {
		case <-h.stop:
			h.closeRoom()
			return

		case ev := <-h.inbox:
			switch ev := ev.(type) {
			case evAttach:
				h.handleAttach(ev.ch)
			case evMessage:
				if h.handleMessage(ev.peerID, ev.data) {
					return
				}
			case evClose:
				if h.handleChannelClose(ev.peerID) {
					return
				}
			case evAIPick:
				h.handleAIPick(ev.pickIndex)
			case evInspect:
				ev.reply <- HostView{State: h.eng.State(), Participants: h.participantList()}
			}

		case <-heartbeat.C:
			h.heartbeatTick()

		case <-draftTick.C:
			h.draftTick()
		}
	}
}

func (h *Host) handleAttach(ch transport.Channel) {
	h.channels[ch.PeerID()] = ch

	// New connections receive the authoritative state before anything else.
	h.sendTo(ch.PeerID(), MessageTypeSyncState, SyncStatePayload{State: h.eng.State()})
}

// handleMessage dispatches one protocol message. It returns true when the
// room shut down as a result (host departure).
func (h *Host) handleMessage(peerID string, data []byte) bool {
	msg, err := DecodeMessage(data)
	if err != nil {
		log.Printf("room %s: bad message from %s: %v", h.shortCode, peerID, err)
		return false
	}

	switch msg.Type {
	case MessageTypeJoinRequest:
		var p JoinRequestPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return false
		}
		h.handleJoin(peerID, p.Name)

	case MessageTypePong:
		if part := h.findParticipant(peerID); part != nil {
			part.LastHeartbeat = time.Now()
		}

	case MessageTypeRequestPick:
		var p RequestPickPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return false
		}
		h.handleRequestPick(peerID, p.PlayerID)

	case MessageTypeLeave:
		if peerID == h.hostPeerID {
			h.closeRoom()
			return true
		}
		h.removeParticipant(peerID)

	case MessageTypeStartGame:
		if !h.requireHost(peerID) {
			return false
		}
		h.assignRolesAndStart()

	case MessageTypeSetOrder:
		if !h.requireHost(peerID) {
			return false
		}
		var p SetOrderPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return false
		}
		if err := h.eng.SetDraftOrder(p.Order); err != nil {
			h.sendError(peerID, err.Error())
			return false
		}
		h.stateChanged()

	case MessageTypeOrderPreview:
		if !h.requireHost(peerID) {
			return false
		}
		// Live drag preview, relayed as-is; nothing is committed until
		// SET_ORDER arrives.
		h.relay(msg, peerID)

	case MessageTypeRequestUndo:
		if !h.requireHost(peerID) {
			return false
		}
		if err := h.eng.Undo(); err != nil {
			h.sendError(peerID, err.Error())
			return false
		}
		h.stateChanged()

	case MessageTypeRequestSkip:
		if !h.requireHost(peerID) {
			return false
		}
		if err := h.eng.SkipTurn(); err != nil {
			h.sendError(peerID, err.Error())
			return false
		}
		h.stateChanged()

	case MessageTypeReturnToLobby:
		if !h.requireHost(peerID) {
			return false
		}
		h.eng.ResetDrafting()
		h.eng.SetStep(domain.PhaseLobby)
		h.stateChanged()

	default:
		log.Printf("room %s: unknown message type %q from %s", h.shortCode, msg.Type, peerID)
	}
	return false
}

func (h *Host) handleJoin(peerID, name string) {
	if part := h.findParticipant(peerID); part != nil {
		// Re-join over a fresh channel: refresh the record.
		part.Name = name
		part.IsConnected = true
		part.LastHeartbeat = time.Now()
		h.names[peerID] = name
		h.broadcastParticipants()
		return
	}

	if len(h.participants) >= MaxParticipants {
		h.sendError(peerID, domain.ErrRoomFull.Error())
		if ch, ok := h.channels[peerID]; ok {
			delete(h.channels, peerID)
			ch.Close()
		}
		return
	}

	h.participants = append(h.participants, &domain.Participant{
		PeerID:        peerID,
		Name:          name,
		IsConnected:   true,
		LastHeartbeat: time.Now(),
	})
	h.names[peerID] = name
	log.Printf("room %s: %s joined (%d/%d)", h.shortCode, name, len(h.participants), MaxParticipants)
	h.broadcastParticipants()
}

// handleRequestPick applies a guest's pick through the engine's own legality
// checks and answers with the authoritative state either way: a rejected pick
// simply echoes the unchanged state back.
func (h *Host) handleRequestPick(peerID, playerID string) {
	if err := h.eng.PickPlayer(playerID); err != nil {
		log.Printf("room %s: pick %s from %s rejected: %v", h.shortCode, playerID, peerID, err)
	}
	h.stateChanged()
}

func (h *Host) handleChannelClose(peerID string) bool {
	if _, ok := h.channels[peerID]; !ok {
		return false
	}
	if peerID == h.hostPeerID {
		h.closeRoom()
		return true
	}
	h.removeParticipant(peerID)
	return false
}

// heartbeatTick broadcasts PING and evicts guests whose last PONG is older
// than the timeout, failing their teams over to AI.
func (h *Host) heartbeatTick() {
	h.broadcast(MessageTypePing, nil)

	now := time.Now()
	var evicted []string
	for _, p := range h.participants {
		if p.IsHost {
			continue
		}
		if now.Sub(p.LastHeartbeat) > h.cfg.HeartbeatTimeout {
			evicted = append(evicted, p.PeerID)
		}
	}
	for _, peerID := range evicted {
		log.Printf("room %s: %s timed out", h.shortCode, peerID)
		h.removeParticipant(peerID)
	}
}

// draftTick advances the shared pick timer while a draft is running. Ticks
// broadcast the lightweight SYNC_TIMER; expiry forfeits the turn and syncs
// the full state.
func (h *Host) draftTick() {
	if h.eng.Step() != domain.PhaseDrafting || h.eng.IsComplete() {
		return
	}

	if left := h.eng.TimeLeft(); left > 0 {
		h.eng.SetTimeLeft(left - 1)
		h.broadcast(MessageTypeSyncTimer, SyncTimerPayload{Seconds: left - 1})
		return
	}

	if err := h.eng.SkipTurn(); err != nil {
		return
	}
	log.Printf("room %s: pick timer expired, turn skipped", h.shortCode)
	h.stateChanged()
}

// removeParticipant drops a guest, converts any team they controlled to AI
// ownership (keeping their name for the audit trail), and rebroadcasts.
func (h *Host) removeParticipant(peerID string) {
	part := h.findParticipant(peerID)
	if part == nil {
		return
	}

	kept := h.participants[:0]
	for _, p := range h.participants {
		if p.PeerID != peerID {
			kept = append(kept, p)
		}
	}
	h.participants = kept

	if ch, ok := h.channels[peerID]; ok {
		delete(h.channels, peerID)
		ch.Close()
	}

	h.broadcastParticipants()
	h.failover()
}

// failover converts every team whose owner is no longer an active participant
// to AI control. The draft keeps going without the disconnected human.
func (h *Host) failover() {
	active := make(map[string]bool, len(h.participants))
	for _, p := range h.participants {
		active[p.PeerID] = true
	}

	changed := false
	for _, team := range h.eng.State().Teams {
		if team.OwnerID == "" || team.OwnerID == domain.AIOwner || active[team.OwnerID] {
			continue
		}
		name := h.names[team.OwnerID]
		if name == "" {
			name = team.LeaderName
		}
		h.eng.SetTeamOwner(team.ID, domain.AIOwner, name)
		log.Printf("room %s: team %s failed over to AI (was %s)", h.shortCode, team.ID, name)
		changed = true
	}
	if changed {
		h.stateChanged()
	}
}

// assignRolesAndStart independently shuffles teams and participants and pairs
// them index-for-index; teams without a participant are AI-owned. Guests are
// then told to move forward via START_GAME.
func (h *Host) assignRolesAndStart() {
	state := h.eng.State()

	teamIDs := make([]string, len(state.Teams))
	for i, t := range state.Teams {
		teamIDs[i] = t.ID
	}
	h.rng.Shuffle(len(teamIDs), func(i, j int) {
		teamIDs[i], teamIDs[j] = teamIDs[j], teamIDs[i]
	})

	peers := make([]string, len(h.participants))
	for i, p := range h.participants {
		peers[i] = p.PeerID
	}
	h.rng.Shuffle(len(peers), func(i, j int) {
		peers[i], peers[j] = peers[j], peers[i]
	})

	for i, teamID := range teamIDs {
		if i < len(peers) {
			h.eng.SetTeamOwner(teamID, peers[i], "")
		} else {
			h.eng.SetTeamOwner(teamID, domain.AIOwner, "")
		}
	}

	h.eng.SetAIMode(true)
	h.eng.SetStep(domain.PhaseOrderSetting)
	h.stateChanged()
	h.broadcast(MessageTypeStartGame, nil)
}

// handleAIPick fires a previously scheduled AI pick. Preconditions are
// revalidated now, not at schedule time: the turn may have changed under the
// timer via an undo, a sync, or a human pick.
func (h *Host) handleAIPick(pickIndex int) {
	h.aiPickIndex = -1

	if h.eng.Step() != domain.PhaseDrafting || h.eng.CurrentPickIndex() != pickIndex {
		return
	}
	team, ok := h.eng.TeamOnClock()
	if !ok || team.OwnerID != domain.AIOwner {
		return
	}

	playerID, ok := bidder.SelectPick(h.eng.State())
	if !ok {
		return
	}
	if err := h.eng.PickPlayer(playerID); err != nil {
		log.Printf("room %s: AI pick %s rejected: %v", h.shortCode, playerID, err)
		return
	}
	log.Printf("room %s: AI drafted %s for team %s", h.shortCode, playerID, team.ID)
	h.stateChanged()
}

// scheduleAIPick arms the AI think-delay when an AI-owned team is on the
// clock. Any previously pending pick is cancelled first, so a pick-index
// change always disarms the stale schedule.
func (h *Host) scheduleAIPick() {
	h.cancelAIPick()

	if h.eng.Step() != domain.PhaseDrafting || h.eng.IsComplete() {
		return
	}
	team, ok := h.eng.TeamOnClock()
	if !ok || team.OwnerID != domain.AIOwner {
		return
	}

	pickIndex := h.eng.CurrentPickIndex()
	h.aiPickIndex = pickIndex
	h.aiTimer = time.AfterFunc(h.cfg.AIPickDelay, func() {
		h.post(evAIPick{pickIndex: pickIndex})
	})
}

func (h *Host) cancelAIPick() {
	if h.aiTimer != nil {
		h.aiTimer.Stop()
		h.aiTimer = nil
	}
	h.aiPickIndex = -1
}

// stateChanged broadcasts the authoritative state, persists it, and re-arms
// the AI schedule. Every mutation path funnels through here.
func (h *Host) stateChanged() {
	h.broadcast(MessageTypeSyncState, SyncStatePayload{State: h.eng.State()})
	h.persist()
	h.scheduleAIPick()
}

func (h *Host) closeRoom() {
	log.Printf("room %s: closing", h.shortCode)
	h.broadcast(MessageTypeRoomClosed, nil)
	for peerID, ch := range h.channels {
		delete(h.channels, peerID)
		ch.Close()
	}
	h.participants = nil
	h.persist()
}

// persist saves the serialized state best-effort; a room runs fine without a
// database.
func (h *Host) persist() {
	if h.sessions == nil {
		return
	}
	state := h.eng.State()
	raw, err := json.Marshal(state)
	if err != nil {
		log.Printf("room %s: marshal state: %v", h.shortCode, err)
		return
	}
	session := &domain.DraftSession{
		ID:        uuid.New(),
		RoomID:    h.roomID,
		Phase:     state.Step.String(),
		State:     datatypes.JSON(raw),
		UpdatedAt: time.Now(),
	}
	if err := h.sessions.Upsert(context.Background(), session); err != nil {
		log.Printf("room %s: persist session: %v", h.shortCode, err)
	}
}

func (h *Host) requireHost(peerID string) bool {
	if peerID == h.hostPeerID {
		return true
	}
	h.sendError(peerID, domain.ErrNotHost.Error())
	return false
}

func (h *Host) findParticipant(peerID string) *domain.Participant {
	for _, p := range h.participants {
		if p.PeerID == peerID {
			return p
		}
	}
	return nil
}

func (h *Host) participantList() []domain.Participant {
	out := make([]domain.Participant, len(h.participants))
	for i, p := range h.participants {
		out[i] = *p
	}
	return out
}

func (h *Host) broadcastParticipants() {
	h.broadcast(MessageTypeUpdateParticipants, UpdateParticipantsPayload{Participants: h.participantList()})
}

func (h *Host) broadcast(msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Printf("room %s: marshal %s: %v", h.shortCode, msgType, err)
		return
	}
	data, err := msg.Encode()
	if err != nil {
		return
	}
	for _, ch := range h.channels {
		ch.Send(data)
	}
}

func (h *Host) sendTo(peerID string, msgType MessageType, payload interface{}) {
	ch, ok := h.channels[peerID]
	if !ok {
		return
	}
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return
	}
	data, err := msg.Encode()
	if err != nil {
		return
	}
	ch.Send(data)
}

func (h *Host) sendError(peerID, message string) {
	h.sendTo(peerID, MessageTypeError, ErrorPayload{Message: message})
}

// relay forwards a message untouched to every channel except the sender's.
func (h *Host) relay(msg *Message, fromPeerID string) {
	data, err := msg.Encode()
	if err != nil {
		return
	}
	for peerID, ch := range h.channels {
		if peerID == fromPeerID {
			continue
		}
		ch.Send(data)
	}
}
