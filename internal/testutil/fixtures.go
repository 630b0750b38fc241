package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/engine"
	"github.com/dom/snake-draft-server/internal/roster"
)

// PresetEngine returns an engine loaded with the preset roster, sitting in
// the lobby.
func PresetEngine(t *testing.T) *engine.Engine {
	t.Helper()

	pool := roster.Preset()
	eng := engine.New()
	eng.Load(pool.Teams, pool.Players, pool.PositionNames)
	eng.SetStep(domain.PhaseLobby)
	return eng
}

// DraftingEngine returns a preset engine with the draft order set to the
// teams' natural order (team-0 first) and the drafting step entered.
func DraftingEngine(t *testing.T) *engine.Engine {
	t.Helper()

	eng := PresetEngine(t)
	if err := eng.SetDraftOrder(TeamIDs(eng)); err != nil {
		t.Fatalf("failed to set draft order: %v", err)
	}
	return eng
}

// TeamIDs returns the engine's team ids in pool order.
func TeamIDs(eng *engine.Engine) []string {
	state := eng.State()
	ids := make([]string, len(state.Teams))
	for i, team := range state.Teams {
		ids[i] = team.ID
	}
	return ids
}

// FirstUndrafted returns the id of the first undrafted player in the given
// position, failing the test when the position is exhausted.
func FirstUndrafted(t *testing.T, eng *engine.Engine, position string) string {
	t.Helper()

	pool := eng.State().UndraftedByPosition(position)
	if len(pool) == 0 {
		t.Fatalf("no undrafted players left in position %s", position)
	}
	return pool[0].ID
}

// LegalPick returns the id of a player the team on the clock may legally
// draft right now.
func LegalPick(t *testing.T, eng *engine.Engine) string {
	t.Helper()

	state := eng.State()
	team, ok := state.TeamOnClock()
	if !ok {
		t.Fatal("no team on the clock")
	}
	for _, position := range state.PositionNames {
		if team.HasPosition(position) {
			continue
		}
		if pool := state.UndraftedByPosition(position); len(pool) > 0 {
			return pool[0].ID
		}
	}
	t.Fatal("no legal pick available")
	return ""
}

// RoomBuilder creates persisted room records with a builder pattern
type RoomBuilder struct {
	hostName string
	status   domain.RoomStatus
}

// NewRoomBuilder creates a new RoomBuilder with default values
func NewRoomBuilder() *RoomBuilder {
	return &RoomBuilder{
		hostName: "testhost",
		status:   domain.RoomStatusOpen,
	}
}

// WithHostName sets the hosting participant's display name
func (b *RoomBuilder) WithHostName(name string) *RoomBuilder {
	b.hostName = name
	return b
}

// WithStatus sets the room status
func (b *RoomBuilder) WithStatus(status domain.RoomStatus) *RoomBuilder {
	b.status = status
	return b
}

// Build creates the room in the database
func (b *RoomBuilder) Build(t *testing.T, db *gorm.DB) *domain.Room {
	t.Helper()

	room := &domain.Room{
		ID:        uuid.New(),
		ShortCode: uuid.New().String()[:6],
		HostName:  b.hostName,
		Status:    b.status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := db.Create(room).Error; err != nil {
		t.Fatalf("failed to create room: %v", err)
	}

	return room
}
