package engine

import (
	"github.com/dom/snake-draft-server/internal/domain"
)

// State is the full serializable draft state. It is both the persisted shape
// and the SYNC_STATE wire payload: a receiver replaces its entire local state
// with it wholesale, so it must round-trip through JSON without loss.
type State struct {
	Step             domain.Phase      `json:"step"`
	Teams            []domain.Team     `json:"teams"`
	Players          []domain.Player   `json:"players"`
	PositionNames    []string          `json:"positionNames"`
	CurrentRound     int               `json:"currentRound"`
	CurrentPickIndex int               `json:"currentPickIndex"`
	DraftHistory     []domain.Snapshot `json:"draftHistory"`
	IsAIMode         bool              `json:"isAIMode"`
	UserTeamID       string            `json:"userTeamId,omitempty"`
	IsCustomMode     bool              `json:"isCustomMode"`
	TimeLeft         int               `json:"timeLeft"`
}

// NewState returns the initial pre-session state.
func NewState() State {
	return State{
		Step:             domain.PhaseHome,
		Teams:            []domain.Team{},
		Players:          []domain.Player{},
		PositionNames:    []string{},
		CurrentRound:     1,
		CurrentPickIndex: 0,
		DraftHistory:     []domain.Snapshot{},
		TimeLeft:         domain.DefaultPickTimer,
	}
}

// Clone returns an independent deep copy: no slice or map is shared between
// the copy and the original.
func (s State) Clone() State {
	c := s
	c.Teams = domain.CloneTeams(s.Teams)
	c.Players = domain.ClonePlayers(s.Players)
	c.PositionNames = make([]string, len(s.PositionNames))
	copy(c.PositionNames, s.PositionNames)
	c.DraftHistory = make([]domain.Snapshot, len(s.DraftHistory))
	for i, snap := range s.DraftHistory {
		c.DraftHistory[i] = snap.Clone()
	}
	return c
}

// DraftedCount returns the number of drafted players.
func (s State) DraftedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.IsDrafted {
			n++
		}
	}
	return n
}

// IsComplete reports whether every player has been drafted. Completion is
// derived from the players, not cached, so it stays correct across undo.
func (s State) IsComplete() bool {
	return s.DraftedCount() >= domain.TotalPicks
}

// TeamOnClock returns the team whose draft-order index is on the clock at the
// current pick index, or false if the order has not been set or the draft is
// over.
func (s State) TeamOnClock() (domain.Team, bool) {
	if s.CurrentPickIndex >= domain.TotalPicks {
		return domain.Team{}, false
	}
	rank := domain.RankOnClock(s.CurrentPickIndex)
	for _, t := range s.Teams {
		if t.DraftOrderIndex == rank {
			return t.Clone(), true
		}
	}
	return domain.Team{}, false
}

// TeamByID returns the team with the given id.
func (s State) TeamByID(id string) (domain.Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Team{}, false
}

// PlayerByID returns the player with the given id.
func (s State) PlayerByID(id string) (domain.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Player{}, false
}

// UndraftedByPosition returns the undrafted players in a position, in pool
// order.
func (s State) UndraftedByPosition(position string) []domain.Player {
	var out []domain.Player
	for _, p := range s.Players {
		if p.Position == position && !p.IsDrafted {
			out = append(out, p)
		}
	}
	return out
}
