package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dom/snake-draft-server/internal/domain"
)

type draftSessionRepository struct {
	db *gorm.DB
}

func NewDraftSessionRepository(db *gorm.DB) *draftSessionRepository {
	return &draftSessionRepository{db: db}
}

func (r *draftSessionRepository) Upsert(ctx context.Context, session *domain.DraftSession) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phase", "state", "updated_at"}),
	}).Create(session).Error
}

func (r *draftSessionRepository) GetByRoomID(ctx context.Context, roomID uuid.UUID) (*domain.DraftSession, error) {
	var session domain.DraftSession
	err := r.db.WithContext(ctx).First(&session, "room_id = ?", roomID).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *draftSessionRepository) DeleteByRoomID(ctx context.Context, roomID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.DraftSession{}, "room_id = ?", roomID).Error
}
