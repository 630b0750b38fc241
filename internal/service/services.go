package service

import (
	"github.com/dom/snake-draft-server/internal/config"
	"github.com/dom/snake-draft-server/internal/replication"
	"github.com/dom/snake-draft-server/internal/repository"
)

type Services struct {
	Room *RoomService
}

// NewServices wires the service layer. repos may be nil when running without
// a database.
func NewServices(hub *replication.Hub, repos *repository.Repositories, cfg *config.Config) *Services {
	var roomRepo repository.RoomRepository
	if repos != nil {
		roomRepo = repos.Room
	}
	return &Services{
		Room: NewRoomService(hub, roomRepo, cfg),
	}
}
