// Package bidder selects picks for AI-controlled teams. It only reads engine
// state; the selected pick is applied through the engine's normal PickPlayer
// path so every legality check still holds.
package bidder

import (
	"sort"

	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/engine"
)

// Scoring weights for the urgency-weighted best-score heuristic.
const (
	urgencyBase   = 10.0
	dropoffWeight = 0.8
	ratingWeight  = 1.0
)

// SelectPick returns the id of the player the AI should draft for the team
// currently on the clock. It is a safe no-op (ok=false) when the draft is
// over, the on-clock team is not AI-controlled, or the team needs nothing.
func SelectPick(s engine.State) (playerID string, ok bool) {
	if s.CurrentPickIndex >= domain.TotalPicks {
		return "", false
	}
	team, onClock := s.TeamOnClock()
	if !onClock || team.OwnerID != domain.AIOwner {
		return "", false
	}

	needed := neededPositions(s, team)
	if len(needed) == 0 {
		return "", false
	}

	urgency := make(map[string]float64, len(needed))
	for _, pos := range needed {
		if positionThreatened(s, team, pos) {
			urgency[pos] = urgencyBase + dropoffWeight*scoreDropoff(s, pos)
		}
	}

	// Highest final score wins; ties go to the earliest player in pool order,
	// which keeps the AI deterministic.
	best := -1
	bestScore := 0.0
	for i, p := range s.Players {
		if p.IsDrafted || !urgencyApplies(needed, p.Position) {
			continue
		}
		final := float64(p.Score)*ratingWeight + urgency[p.Position]
		if best < 0 || final > bestScore {
			best = i
			bestScore = final
		}
	}
	if best < 0 {
		return "", false
	}
	return s.Players[best].ID, true
}

// neededPositions lists the positions the team still lacks, in the session's
// position order.
func neededPositions(s engine.State, team domain.Team) []string {
	var out []string
	for _, pos := range s.PositionNames {
		if !team.HasPosition(pos) {
			out = append(out, pos)
		}
	}
	return out
}

func urgencyApplies(needed []string, position string) bool {
	for _, pos := range needed {
		if pos == position {
			return true
		}
	}
	return false
}

// nextPickIndexFor returns the first pick index after the current one at which
// the team is back on the clock, or TotalPicks if it never is.
func nextPickIndexFor(s engine.State, team domain.Team) int {
	for i := s.CurrentPickIndex + 1; i < domain.TotalPicks; i++ {
		if domain.RankOnClock(i) == team.DraftOrderIndex {
			return i
		}
	}
	return domain.TotalPicks
}

// positionThreatened reports whether a rival picking strictly between now and
// the team's next turn still lacks the position, i.e. could take the best
// remaining player before the team acts again.
func positionThreatened(s engine.State, team domain.Team, position string) bool {
	next := nextPickIndexFor(s, team)
	for i := s.CurrentPickIndex + 1; i < next; i++ {
		rank := domain.RankOnClock(i)
		for _, rival := range s.Teams {
			if rival.DraftOrderIndex == rank && rival.ID != team.ID && !rival.HasPosition(position) {
				return true
			}
		}
	}
	return false
}

// scoreDropoff returns the score gap between the best and second-best
// undrafted players in a position (0 if fewer than two remain).
func scoreDropoff(s engine.State, position string) float64 {
	remaining := s.UndraftedByPosition(position)
	if len(remaining) < 2 {
		return 0
	}
	scores := make([]int, len(remaining))
	for i, p := range remaining {
		scores[i] = p.Score
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))
	return float64(scores[0] - scores[1])
}
