package domain

// Fixed constants of the ruleset: 5 teams draft 20 players across 4 positions
// in a snake order. These are not configuration; the engine's turn math and
// the auto-assignment rule both assume them.
const (
	TeamCount          = 5
	PositionCount      = 4
	PlayersPerPosition = 5
	TotalPicks         = TeamCount * PositionCount
	TotalRounds        = TotalPicks / TeamCount

	// DefaultPickTimer is the per-pick countdown in seconds.
	DefaultPickTimer = 30

	// AIOwner is the sentinel owner id for a team controlled by the AI bidder.
	AIOwner = "AI"

	// UnassignedOrder is a team's draft-order index before the order is set.
	UnassignedOrder = -1
)

// Player is a draftable player in the pool.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  string `json:"position"`
	Score     int    `json:"score"`
	Tier      string `json:"tier,omitempty"`
	IsDrafted bool   `json:"isDrafted"`
	DraftedBy string `json:"draftedBy,omitempty"` // team id, empty until drafted
}

// Team is one of the five drafting teams. Roster maps position name to the
// drafted player's id; a position is either absent or filled by exactly one
// player.
type Team struct {
	ID                    string            `json:"id"`
	LeaderName            string            `json:"leaderName"`
	Roster                map[string]string `json:"roster"`
	DraftOrderIndex       int               `json:"draftOrderIndex"`
	OwnerID               string            `json:"ownerId,omitempty"` // peer id, "AI", or empty
	DisconnectedOwnerName string            `json:"disconnectedOwnerName,omitempty"`
}

// RosterFull reports whether the team has drafted a player for every position.
func (t *Team) RosterFull() bool {
	return len(t.Roster) >= PositionCount
}

// HasPosition reports whether the team already drafted the given position.
func (t *Team) HasPosition(position string) bool {
	_, ok := t.Roster[position]
	return ok
}

// Clone returns an independent deep copy of the team.
func (t Team) Clone() Team {
	c := t
	c.Roster = make(map[string]string, len(t.Roster))
	for pos, playerID := range t.Roster {
		c.Roster[pos] = playerID
	}
	return c
}

// Snapshot is a full pre-mutation copy of the draft state, pushed before
// every applied pick or skip so the action can be undone.
type Snapshot struct {
	Teams            []Team   `json:"teams"`
	Players          []Player `json:"players"`
	CurrentRound     int      `json:"currentRound"`
	CurrentPickIndex int      `json:"currentPickIndex"`
}

// Clone returns an independent deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Teams:            CloneTeams(s.Teams),
		Players:          ClonePlayers(s.Players),
		CurrentRound:     s.CurrentRound,
		CurrentPickIndex: s.CurrentPickIndex,
	}
}

// CloneTeams deep-copies a team slice.
func CloneTeams(teams []Team) []Team {
	out := make([]Team, len(teams))
	for i, t := range teams {
		out[i] = t.Clone()
	}
	return out
}

// ClonePlayers copies a player slice. Player has no reference fields, so a
// value copy is a deep copy.
func ClonePlayers(players []Player) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	return out
}
