package roster

import (
	"fmt"

	"github.com/dom/snake-draft-server/internal/domain"
)

var presetLeaders = []string{"Ashen", "Briar", "Corvo", "Dusk", "Ember"}

type presetPlayer struct {
	name     string
	position string
	score    int
	tier     string
}

// presetPool is the built-in scored pool used for quick-start and AI sessions:
// 4 positions, 5 players each.
var presetPool = []presetPlayer{
	// TOP
	{"Bastion", "TOP", 95, "S"},
	{"Rampart", "TOP", 88, "A"},
	{"Palisade", "TOP", 78, "B"},
	{"Bulwark", "TOP", 74, "B"},
	{"Redoubt", "TOP", 65, "C"},
	// MID
	{"Meridian", "MID", 99, "S"},
	{"Zenith", "MID", 94, "S"},
	{"Apex", "MID", 85, "A"},
	{"Axiom", "MID", 77, "B"},
	{"Cipher", "MID", 60, "C"},
	// BOT
	{"Longshot", "BOT", 89, "A"},
	{"Truestrike", "BOT", 79, "B"},
	{"Quiver", "BOT", 79, "B"},
	{"Fletcher", "BOT", 79, "B"},
	{"Volley", "BOT", 79, "B"},
	// SUP
	{"Warden", "SUP", 92, "S"},
	{"Aegis", "SUP", 87, "A"},
	{"Bolster", "SUP", 75, "B"},
	{"Lumen", "SUP", 72, "B"},
	{"Haven", "SUP", 68, "C"},
}

// Preset returns the built-in roster.
func Preset() *Roster {
	teams := buildTeams(presetLeaders)

	players := make([]domain.Player, len(presetPool))
	positionNames := make([]string, 0, domain.PositionCount)
	seen := make(map[string]bool)

	for i, p := range presetPool {
		players[i] = domain.Player{
			ID:       fmt.Sprintf("player-%d", i),
			Name:     p.name,
			Position: p.position,
			Score:    p.score,
			Tier:     p.tier,
		}
		if !seen[p.position] {
			seen[p.position] = true
			positionNames = append(positionNames, p.position)
		}
	}

	return &Roster{Teams: teams, Players: players, PositionNames: positionNames}
}
