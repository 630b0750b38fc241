package replication

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/engine"
	"github.com/dom/snake-draft-server/internal/roster"
	"github.com/dom/snake-draft-server/internal/transport"
)

// quietConfig keeps the periodic work from interfering with tests that drive
// the protocol by hand.
func quietConfig() Config {
	return Config{
		HeartbeatInterval: 10 * time.Millisecond,
		HeartbeatTimeout:  time.Hour,
		TickInterval:      time.Hour,
		AIPickDelay:       time.Hour,
	}
}

func newTestHost(t *testing.T, cfg Config) *Host {
	t.Helper()

	pool := roster.Preset()
	eng := engine.New()
	eng.Load(pool.Teams, pool.Players, pool.PositionNames)
	eng.SetStep(domain.PhaseLobby)

	h := NewHost(uuid.New(), "ABC123", "host-peer", "Hana", eng, nil, cfg, nil)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func connect(t *testing.T, h *Host, peerID, name string, events GuestEvents) *Guest {
	t.Helper()

	serverEnd, clientEnd := transport.Pair("server", peerID)
	h.Attach(serverEnd)

	g := NewGuest(clientEnd, name, events)
	require.NoError(t, g.Join())
	return g
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func inspect(t *testing.T, h *Host) HostView {
	t.Helper()

	view, ok := h.Inspect()
	require.True(t, ok, "host already stopped")
	return view
}

func teamOwnedBy(t *testing.T, view HostView, ownerID string) domain.Team {
	t.Helper()

	for _, team := range view.State.Teams {
		if team.OwnerID == ownerID {
			return team
		}
	}
	t.Fatalf("no team owned by %s", ownerID)
	return domain.Team{}
}

func orderWithFirst(view HostView, firstTeamID string) []string {
	order := []string{firstTeamID}
	for _, team := range view.State.Teams {
		if team.ID != firstTeamID {
			order = append(order, team.ID)
		}
	}
	return order
}

func TestGuestJoinReceivesState(t *testing.T) {
	h := newTestHost(t, quietConfig())

	g := connect(t, h, "peer-1", "Gus", GuestEvents{})

	waitFor(t, time.Second, func() bool {
		return g.State().Step == domain.PhaseLobby
	}, "guest never received the authoritative state")

	state := g.State()
	assert.Len(t, state.Teams, domain.TeamCount)
	assert.Len(t, state.Players, domain.TotalPicks)
}

func TestParticipantsBroadcast(t *testing.T) {
	h := newTestHost(t, quietConfig())

	connect(t, h, "host-peer", "Hana", GuestEvents{})
	g := connect(t, h, "peer-1", "Gus", GuestEvents{})

	waitFor(t, time.Second, func() bool {
		return len(g.Participants()) == 2
	}, "guest never saw the full participant roster")

	var host, guest *domain.Participant
	participants := g.Participants()
	for i := range participants {
		switch participants[i].PeerID {
		case "host-peer":
			host = &participants[i]
		case "peer-1":
			guest = &participants[i]
		}
	}
	require.NotNil(t, host)
	require.NotNil(t, guest)
	assert.True(t, host.IsHost)
	assert.False(t, guest.IsHost)
	assert.Equal(t, "Hana", host.Name)
	assert.Equal(t, "Gus", guest.Name)
}

func TestRoomCapacity(t *testing.T) {
	h := newTestHost(t, quietConfig())

	connect(t, h, "host-peer", "Hana", GuestEvents{})
	for i := 1; i <= 4; i++ {
		connect(t, h, "peer-"+string(rune('0'+i)), "Guest", GuestEvents{})
	}
	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == MaxParticipants
	}, "room never filled")

	var gotError atomic.Bool
	var closed atomic.Bool
	extra := connect(t, h, "peer-extra", "TooMany", GuestEvents{
		OnError:  func(string) { gotError.Store(true) },
		OnClosed: func() { closed.Store(true) },
	})

	waitFor(t, time.Second, func() bool {
		return gotError.Load() && closed.Load() && extra.Closed()
	}, "sixth participant was not turned away")

	assert.Len(t, inspect(t, h).Participants, MaxParticipants)
}

func TestNonHostCommandRejected(t *testing.T) {
	h := newTestHost(t, quietConfig())

	connect(t, h, "host-peer", "Hana", GuestEvents{})

	var errMsg atomic.Value
	g := connect(t, h, "peer-1", "Gus", GuestEvents{
		OnError: func(msg string) { errMsg.Store(msg) },
	})

	require.NoError(t, g.StartGame())

	waitFor(t, time.Second, func() bool {
		return errMsg.Load() != nil
	}, "non-host START_GAME was not rejected")
	assert.Equal(t, domain.ErrNotHost.Error(), errMsg.Load())
	assert.Equal(t, domain.PhaseLobby, inspect(t, h).State.Step)
}

func TestStartGameAssignsTeams(t *testing.T) {
	h := newTestHost(t, quietConfig())

	var started atomic.Bool
	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	gus := connect(t, h, "peer-1", "Gus", GuestEvents{
		OnStart: func() { started.Store(true) },
	})

	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 2
	}, "participants never registered")

	require.NoError(t, hana.StartGame())

	waitFor(t, time.Second, func() bool {
		return started.Load() && gus.State().Step == domain.PhaseOrderSetting
	}, "guests never saw the game start")

	view := inspect(t, h)
	assert.Equal(t, domain.PhaseOrderSetting, view.State.Step)
	assert.True(t, view.State.IsAIMode)

	owners := map[string]int{}
	for _, team := range view.State.Teams {
		owners[team.OwnerID]++
		assert.Empty(t, team.DisconnectedOwnerName)
	}
	assert.Equal(t, 1, owners["host-peer"], "host owns exactly one team")
	assert.Equal(t, 1, owners["peer-1"], "guest owns exactly one team")
	assert.Equal(t, domain.TeamCount-2, owners[domain.AIOwner], "unmatched teams go to the AI")
}

func TestSetOrderAndPickReplication(t *testing.T) {
	h := newTestHost(t, quietConfig())

	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	var syncs atomic.Int32
	gus := connect(t, h, "peer-1", "Gus", GuestEvents{
		OnState: func(engine.State) { syncs.Add(1) },
	})

	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 2
	}, "participants never registered")
	require.NoError(t, hana.StartGame())
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.Step == domain.PhaseOrderSetting
	}, "game never started")

	// Put Gus's team first so his pick opens the draft.
	view := inspect(t, h)
	gusTeam := teamOwnedBy(t, view, "peer-1")
	require.NoError(t, hana.SetOrder(orderWithFirst(view, gusTeam.ID)))

	waitFor(t, time.Second, func() bool {
		return gus.State().Step == domain.PhaseDrafting
	}, "order commit never replicated")

	require.NoError(t, gus.RequestPick("player-0"))
	waitFor(t, time.Second, func() bool {
		p, ok := gus.State().PlayerByID("player-0")
		return ok && p.IsDrafted
	}, "pick never replicated")

	p, _ := inspect(t, h).State.PlayerByID("player-0")
	assert.Equal(t, gusTeam.ID, p.DraftedBy)

	// A duplicate request is rejected but still answered with the unchanged
	// authoritative state.
	before := syncs.Load()
	require.NoError(t, gus.RequestPick("player-0"))
	waitFor(t, time.Second, func() bool {
		return syncs.Load() > before
	}, "rejected pick was not answered with a state sync")
	assert.Equal(t, 1, gus.State().DraftedCount())
}

func TestOrderPreviewRelay(t *testing.T) {
	h := newTestHost(t, quietConfig())

	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	gus := connect(t, h, "peer-1", "Gus", GuestEvents{})

	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 2
	}, "participants never registered")

	preview := []string{"team-3", "team-1", "team-0", "team-2", "team-4"}
	require.NoError(t, hana.SendOrderPreview(preview))

	waitFor(t, time.Second, func() bool {
		got := gus.OrderPreview()
		return len(got) == len(preview) && got[0] == "team-3"
	}, "preview never relayed to guests")
	assert.Equal(t, preview, gus.OrderPreview())

	// Nothing was committed.
	assert.Equal(t, domain.PhaseLobby, inspect(t, h).State.Step)
}

func TestUndoAndSkip(t *testing.T) {
	h := newTestHost(t, quietConfig())

	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 1
	}, "host never registered")

	require.NoError(t, hana.StartGame())
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.Step == domain.PhaseOrderSetting
	}, "game never started")

	view := inspect(t, h)
	require.NoError(t, hana.SetOrder(orderWithFirst(view, view.State.Teams[0].ID)))
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.Step == domain.PhaseDrafting
	}, "order commit never applied")

	require.NoError(t, hana.RequestSkip())
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.CurrentPickIndex == 1
	}, "skip never applied")

	require.NoError(t, hana.RequestUndo())
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.CurrentPickIndex == 0
	}, "undo never applied")
	assert.Empty(t, inspect(t, h).State.DraftHistory)
}

func TestReturnToLobby(t *testing.T) {
	h := newTestHost(t, quietConfig())

	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 1
	}, "host never registered")

	require.NoError(t, hana.StartGame())
	view := inspect(t, h)
	require.NoError(t, hana.SetOrder(orderWithFirst(view, view.State.Teams[0].ID)))
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.Step == domain.PhaseDrafting
	}, "order commit never applied")
	require.NoError(t, hana.RequestSkip())

	require.NoError(t, hana.ReturnToLobby())
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.Step == domain.PhaseLobby
	}, "room never returned to the lobby")

	state := inspect(t, h).State
	assert.Equal(t, 0, state.CurrentPickIndex)
	assert.Equal(t, 0, state.DraftedCount())
	assert.Empty(t, state.DraftHistory)
	// Ownership survives for the rematch.
	teamOwnedBy(t, inspect(t, h), "host-peer")
}

type mutePeer struct{}

func (mutePeer) HandleMessage(string, []byte) {}
func (mutePeer) HandleClose(string)           {}

// joinSilently registers a participant that never answers PINGs.
func joinSilently(t *testing.T, h *Host, peerID, name string) {
	t.Helper()

	serverEnd, clientEnd := transport.Pair("server", peerID)
	h.Attach(serverEnd)
	clientEnd.Bind(mutePeer{})

	msg, err := NewMessage(MessageTypeJoinRequest, JoinRequestPayload{Name: name})
	require.NoError(t, err)
	data, err := msg.Encode()
	require.NoError(t, err)
	require.NoError(t, clientEnd.Send(data))
}

func TestHeartbeatEvictionAndFailover(t *testing.T) {
	cfg := quietConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	cfg.HeartbeatTimeout = 50 * time.Millisecond
	h := newTestHost(t, cfg)

	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	joinSilently(t, h, "mute-peer", "Mute")

	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 2
	}, "silent guest never joined")

	require.NoError(t, hana.StartGame())
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.Step == domain.PhaseOrderSetting
	}, "game never started")
	muteTeam := teamOwnedBy(t, inspect(t, h), "mute-peer")

	// The silent guest never PONGs and is evicted after the timeout; their
	// team fails over to the AI, remembering who it belonged to.
	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 1
	}, "silent guest was never evicted")

	waitFor(t, time.Second, func() bool {
		team, ok := inspect(t, h).State.TeamByID(muteTeam.ID)
		return ok && team.OwnerID == domain.AIOwner
	}, "evicted guest's team never failed over")

	team, ok := inspect(t, h).State.TeamByID(muteTeam.ID)
	require.True(t, ok)
	assert.Equal(t, "Mute", team.DisconnectedOwnerName)
}

func TestGuestLeaveFailsTeamOver(t *testing.T) {
	h := newTestHost(t, quietConfig())

	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	gus := connect(t, h, "peer-1", "Gus", GuestEvents{})

	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 2
	}, "participants never registered")
	require.NoError(t, hana.StartGame())
	waitFor(t, time.Second, func() bool {
		return inspect(t, h).State.Step == domain.PhaseOrderSetting
	}, "game never started")
	gusTeam := teamOwnedBy(t, inspect(t, h), "peer-1")

	gus.Leave()

	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 1
	}, "departed guest never removed")
	waitFor(t, time.Second, func() bool {
		team, ok := inspect(t, h).State.TeamByID(gusTeam.ID)
		return ok && team.OwnerID == domain.AIOwner && team.DisconnectedOwnerName == "Gus"
	}, "departed guest's team never failed over")
}

func TestHostLeaveClosesRoom(t *testing.T) {
	h := newTestHost(t, quietConfig())

	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	var closed atomic.Bool
	gus := connect(t, h, "peer-1", "Gus", GuestEvents{
		OnClosed: func() { closed.Store(true) },
	})

	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 2
	}, "participants never registered")

	hana.Leave()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("room did not shut down after the host left")
	}
	waitFor(t, time.Second, func() bool {
		return closed.Load() && gus.Closed()
	}, "guest never observed ROOM_CLOSED")
}

func TestTimerCountdownAndExpiry(t *testing.T) {
	cfg := quietConfig()
	cfg.TickInterval = 2 * time.Millisecond
	h := newTestHost(t, cfg)

	var ticks atomic.Int32
	hana := connect(t, h, "host-peer", "Hana", GuestEvents{
		OnTimer: func(int) { ticks.Add(1) },
	})
	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 1
	}, "host never registered")

	require.NoError(t, hana.StartGame())
	view := inspect(t, h)
	require.NoError(t, hana.SetOrder(orderWithFirst(view, view.State.Teams[0].ID)))

	waitFor(t, time.Second, func() bool {
		return ticks.Load() > 0
	}, "timer ticks never broadcast")

	// With nobody picking, the countdown expires and the turn is forfeited.
	waitFor(t, 2*time.Second, func() bool {
		return inspect(t, h).State.CurrentPickIndex > 0
	}, "expired timer never skipped the turn")
	assert.Equal(t, 0, inspect(t, h).State.DraftedCount())
}

func TestAIDraftCompletes(t *testing.T) {
	cfg := quietConfig()
	cfg.TickInterval = 2 * time.Millisecond
	cfg.AIPickDelay = time.Millisecond
	h := newTestHost(t, cfg)

	hana := connect(t, h, "host-peer", "Hana", GuestEvents{})
	waitFor(t, time.Second, func() bool {
		return len(inspect(t, h).Participants) == 1
	}, "host never registered")

	require.NoError(t, hana.StartGame())
	view := inspect(t, h)
	require.NoError(t, hana.SetOrder(orderWithFirst(view, view.State.Teams[0].ID)))

	// Four AI teams pick on their own; the host's idle turns expire via the
	// timer; degenerate positions auto-assign. The draft must finish.
	waitFor(t, 10*time.Second, func() bool {
		return inspect(t, h).State.IsComplete()
	}, "AI draft never completed")

	state := inspect(t, h).State
	assert.Equal(t, domain.TotalPicks, state.DraftedCount())
	for _, team := range state.Teams {
		assert.True(t, team.RosterFull(), "team %s roster incomplete", team.ID)
	}
}
