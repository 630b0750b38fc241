// Package roster turns tabular input into a validated draft roster. The
// engine receives either a complete roster (5 leaders, 4 positions, 20
// players) or nothing; malformed input is rejected, never partially applied.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/dom/snake-draft-server/internal/domain"
)

var (
	ErrLeaderCount   = errors.New("roster: header must name exactly 5 team leaders")
	ErrPositionCount = errors.New("roster: input must cover exactly 4 positions")
	ErrPlayerCount   = errors.New("roster: input must contain exactly 20 players")
)

// Roster is the validated output handed to the engine.
type Roster struct {
	Teams         []domain.Team
	Players       []domain.Player
	PositionNames []string
}

// ParseCSV parses a roster from CSV input. The first row is
// `,(leader1..leader5)`; each subsequent valid row is a position name followed
// by exactly 5 player names. Rows with a blank position or the wrong player
// count are skipped; the remainder must still add up to a complete roster.
func ParseCSV(input string) (*Roster, error) {
	r := csv.NewReader(strings.NewReader(input))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("roster: parse csv: %w", err)
	}
	if len(records) < domain.PositionCount+1 {
		return nil, ErrPositionCount
	}

	leaders := trimRow(records[0][1:])
	if len(leaders) != domain.TeamCount {
		return nil, ErrLeaderCount
	}

	teams := buildTeams(leaders)

	var players []domain.Player
	var positionNames []string
	playerIndex := 0

	for _, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		posName := strings.TrimSpace(row[0])
		if posName == "" {
			continue
		}
		names := trimRow(row[1:])
		if len(names) != domain.PlayersPerPosition {
			continue
		}
		positionNames = append(positionNames, posName)
		for _, name := range names {
			players = append(players, domain.Player{
				ID:       fmt.Sprintf("player-%d", playerIndex),
				Name:     name,
				Position: posName,
			})
			playerIndex++
		}
	}

	if len(positionNames) != domain.PositionCount {
		return nil, ErrPositionCount
	}
	if len(players) != domain.TotalPicks {
		return nil, ErrPlayerCount
	}

	return &Roster{Teams: teams, Players: players, PositionNames: positionNames}, nil
}

func trimRow(fields []string) []string {
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func buildTeams(leaders []string) []domain.Team {
	teams := make([]domain.Team, len(leaders))
	for i, name := range leaders {
		teams[i] = domain.Team{
			ID:              fmt.Sprintf("team-%d", i),
			LeaderName:      name,
			Roster:          make(map[string]string),
			DraftOrderIndex: domain.UnassignedOrder,
		}
	}
	return teams
}
