package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/dom/snake-draft-server/internal/domain"
)

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	GetByShortCode(ctx context.Context, code string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	ListByStatus(ctx context.Context, status domain.RoomStatus, limit, offset int) ([]*domain.Room, error)
}

type DraftSessionRepository interface {
	// Upsert writes the session keyed by room id, replacing any previous
	// state for that room.
	Upsert(ctx context.Context, session *domain.DraftSession) error
	GetByRoomID(ctx context.Context, roomID uuid.UUID) (*domain.DraftSession, error)
	DeleteByRoomID(ctx context.Context, roomID uuid.UUID) error
}

type Repositories struct {
	Room         RoomRepository
	DraftSession DraftSessionRepository
}
