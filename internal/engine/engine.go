// Package engine implements the snake-draft state machine: turn order,
// pick legality, forced auto-assignment, undo history, and resets. All
// mutating operations either commit a complete new state or return an error
// leaving the state untouched.
//
// The engine is not goroutine-safe. The replication coordinator (or any other
// caller) is expected to serialize access from a single goroutine.
package engine

import (
	"github.com/dom/snake-draft-server/internal/domain"
)

// Engine owns the authoritative draft state.
type Engine struct {
	state State
}

// New returns an engine in the initial HOME state.
func New() *Engine {
	return &Engine{state: NewState()}
}

// NewFromState returns an engine seeded with a previously serialized state.
func NewFromState(s State) *Engine {
	return &Engine{state: s.Clone()}
}

// State returns a deep copy of the current state, safe to serialize or hand
// to another goroutine.
func (e *Engine) State() State {
	return e.state.Clone()
}

// Restore replaces the entire state wholesale, as required by SYNC_STATE.
// It never merges.
func (e *Engine) Restore(s State) {
	e.state = s.Clone()
}

// Load installs a validated roster: the five teams, the twenty players, and
// the four position names. Draft bookkeeping is reset.
func (e *Engine) Load(teams []domain.Team, players []domain.Player, positionNames []string) {
	e.state.Teams = domain.CloneTeams(teams)
	e.state.Players = domain.ClonePlayers(players)
	e.state.PositionNames = make([]string, len(positionNames))
	copy(e.state.PositionNames, positionNames)
	e.state.CurrentRound = 1
	e.state.CurrentPickIndex = 0
	e.state.DraftHistory = []domain.Snapshot{}
	e.state.TimeLeft = domain.DefaultPickTimer
}

// SetDraftOrder assigns each team's draft-order index from its position in
// order and enters the DRAFTING step. The order must be an exact permutation
// of the current team ids; anything else is rejected outright.
func (e *Engine) SetDraftOrder(order []string) error {
	if len(order) != len(e.state.Teams) {
		return domain.ErrInvalidOrder
	}
	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := rank[id]; dup {
			return domain.ErrInvalidOrder
		}
		rank[id] = i
	}
	for _, t := range e.state.Teams {
		if _, ok := rank[t.ID]; !ok {
			return domain.ErrInvalidOrder
		}
	}

	for i := range e.state.Teams {
		e.state.Teams[i].DraftOrderIndex = rank[e.state.Teams[i].ID]
	}
	e.state.Step = domain.PhaseDrafting
	e.state.CurrentRound = 1
	e.state.CurrentPickIndex = 0
	e.state.DraftHistory = []domain.Snapshot{}
	e.state.TimeLeft = domain.DefaultPickTimer
	return nil
}

// PickPlayer drafts the given player to the team on the clock. On success the
// pre-mutation state is pushed onto the history, the player is marked drafted,
// the roster slot filled, any degenerate position auto-assigned, and the turn
// advanced past teams whose rosters are already full.
func (e *Engine) PickPlayer(playerID string) error {
	s := &e.state

	if s.CurrentPickIndex >= domain.TotalPicks {
		return domain.ErrDraftComplete
	}

	teamIdx := e.teamIndexByRank(domain.RankOnClock(s.CurrentPickIndex))
	if teamIdx < 0 {
		return domain.ErrNoTeamOnClock
	}

	playerIdx := e.playerIndexByID(playerID)
	if playerIdx < 0 {
		return domain.ErrPlayerNotFound
	}
	if s.Players[playerIdx].IsDrafted {
		return domain.ErrPlayerDrafted
	}

	position := s.Players[playerIdx].Position
	if s.Teams[teamIdx].HasPosition(position) {
		return domain.ErrPositionFilled
	}

	e.pushSnapshot()

	// 1. Pick
	s.Players[playerIdx].IsDrafted = true
	s.Players[playerIdx].DraftedBy = s.Teams[teamIdx].ID
	s.Teams[teamIdx].Roster[position] = playerID

	// 2. Forced auto-assignment: drafting the 4th player of a position leaves
	// exactly one undrafted player and exactly one team lacking that position.
	e.autoAssign(position)

	// 3. Advance turn, skipping full rosters.
	e.advanceTurn()
	return nil
}

// SkipTurn forfeits the current pick: same snapshot and turn-advancement as a
// pick, with no roster mutation. Used for timeouts.
func (e *Engine) SkipTurn() error {
	s := &e.state

	if s.CurrentPickIndex >= domain.TotalPicks {
		return domain.ErrDraftComplete
	}
	if e.teamIndexByRank(domain.RankOnClock(s.CurrentPickIndex)) < 0 {
		return domain.ErrNoTeamOnClock
	}

	e.pushSnapshot()
	e.advanceTurn()
	return nil
}

// Undo pops the most recent snapshot and restores teams, players, round, and
// pick index from it exactly. The timer is always reset to the default: an
// undo resumes an interrupted turn, it does not resume the old countdown.
func (e *Engine) Undo() error {
	s := &e.state
	if len(s.DraftHistory) == 0 {
		return domain.ErrNothingToUndo
	}

	last := s.DraftHistory[len(s.DraftHistory)-1]
	s.DraftHistory = s.DraftHistory[:len(s.DraftHistory)-1]

	s.Teams = domain.CloneTeams(last.Teams)
	s.Players = domain.ClonePlayers(last.Players)
	s.CurrentRound = last.CurrentRound
	s.CurrentPickIndex = last.CurrentPickIndex
	s.TimeLeft = domain.DefaultPickTimer
	return nil
}

// ResetDrafting clears every drafted flag, owner-of-record, and roster and
// rewinds the draft bookkeeping, but preserves team identities, draft-order
// ranks, and team ownership. Used to return a room to its lobby for a rematch.
func (e *Engine) ResetDrafting() {
	s := &e.state
	for i := range s.Players {
		s.Players[i].IsDrafted = false
		s.Players[i].DraftedBy = ""
	}
	for i := range s.Teams {
		s.Teams[i].Roster = make(map[string]string)
	}
	s.CurrentRound = 1
	s.CurrentPickIndex = 0
	s.DraftHistory = []domain.Snapshot{}
	s.TimeLeft = domain.DefaultPickTimer
}

// ResetOrder clears all draft-order ranks back to unassigned.
func (e *Engine) ResetOrder() {
	for i := range e.state.Teams {
		e.state.Teams[i].DraftOrderIndex = domain.UnassignedOrder
	}
}

// ResetAll returns the engine to the initial HOME state.
func (e *Engine) ResetAll() {
	e.state = NewState()
}

// SetStep moves the session to another top-level step. Step transitions are a
// UI/coordinator decision; the engine only records them.
func (e *Engine) SetStep(p domain.Phase) { e.state.Step = p }

// SetAIMode flags whether AI-controlled teams participate.
func (e *Engine) SetAIMode(on bool) { e.state.IsAIMode = on }

// SetUserTeamID records which team the local user controls in solo mode.
func (e *Engine) SetUserTeamID(id string) { e.state.UserTeamID = id }

// SetCustomMode flags a custom (uploaded) roster session.
func (e *Engine) SetCustomMode(on bool) { e.state.IsCustomMode = on }

// SetTimeLeft sets the shared pick countdown in seconds.
func (e *Engine) SetTimeLeft(seconds int) { e.state.TimeLeft = seconds }

// TimeLeft returns the shared pick countdown in seconds.
func (e *Engine) TimeLeft() int { return e.state.TimeLeft }

// Step returns the current top-level step.
func (e *Engine) Step() domain.Phase { return e.state.Step }

// CurrentPickIndex returns the global index of the next pick.
func (e *Engine) CurrentPickIndex() int { return e.state.CurrentPickIndex }

// TeamOnClock returns the team legal to act at the current pick index.
func (e *Engine) TeamOnClock() (domain.Team, bool) { return e.state.TeamOnClock() }

// IsComplete reports whether all players have been drafted.
func (e *Engine) IsComplete() bool { return e.state.IsComplete() }

// SetTeamOwner assigns a controlling owner to a team, retaining the previous
// owner's display name when handing a disconnected human's team to the AI.
func (e *Engine) SetTeamOwner(teamID, ownerID, disconnectedName string) {
	for i := range e.state.Teams {
		if e.state.Teams[i].ID == teamID {
			e.state.Teams[i].OwnerID = ownerID
			e.state.Teams[i].DisconnectedOwnerName = disconnectedName
			return
		}
	}
}

func (e *Engine) pushSnapshot() {
	s := &e.state
	s.DraftHistory = append(s.DraftHistory, domain.Snapshot{
		Teams:            domain.CloneTeams(s.Teams),
		Players:          domain.ClonePlayers(s.Players),
		CurrentRound:     s.CurrentRound,
		CurrentPickIndex: s.CurrentPickIndex,
	})
}

// autoAssign drafts the final undrafted player of a position to the unique
// team still lacking it, once the position's 4th player has been taken.
func (e *Engine) autoAssign(position string) {
	s := &e.state

	drafted := 0
	lastIdx := -1
	for i, p := range s.Players {
		if p.Position != position {
			continue
		}
		if p.IsDrafted {
			drafted++
		} else {
			lastIdx = i
		}
	}
	if drafted != domain.PlayersPerPosition-1 || lastIdx < 0 {
		return
	}

	for i := range s.Teams {
		if !s.Teams[i].HasPosition(position) {
			s.Players[lastIdx].IsDrafted = true
			s.Players[lastIdx].DraftedBy = s.Teams[i].ID
			s.Teams[i].Roster[position] = s.Players[lastIdx].ID
			return
		}
	}
}

// advanceTurn moves to the next pick index, skipping any index whose
// on-the-clock team already has a full roster, then resets the timer.
func (e *Engine) advanceTurn() {
	s := &e.state

	next := s.CurrentPickIndex + 1
	for next < domain.TotalPicks {
		idx := e.teamIndexByRank(domain.RankOnClock(next))
		if idx >= 0 && s.Teams[idx].RosterFull() {
			next++
			continue
		}
		break
	}

	s.CurrentPickIndex = next
	s.CurrentRound = domain.RoundOf(next)
	s.TimeLeft = domain.DefaultPickTimer
}

func (e *Engine) teamIndexByRank(rank int) int {
	for i, t := range e.state.Teams {
		if t.DraftOrderIndex == rank {
			return i
		}
	}
	return -1
}

func (e *Engine) playerIndexByID(id string) int {
	for i, p := range e.state.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
