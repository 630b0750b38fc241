package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RoomStatus tracks the lifecycle of a persisted room record.
type RoomStatus string

const (
	RoomStatusOpen       RoomStatus = "open"
	RoomStatusInProgress RoomStatus = "in_progress"
	RoomStatusClosed     RoomStatus = "closed"
)

// Room is the persisted record of a draft room.
type Room struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	ShortCode string     `json:"shortCode" gorm:"uniqueIndex;not null"`
	HostName  string     `json:"hostName" gorm:"not null"`
	Status    RoomStatus `json:"status" gorm:"not null;default:'open'"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// DraftSession is the persisted authoritative draft state of a room. State
// holds the full serialized engine state (the same payload carried by
// SYNC_STATE), so a session round-trips loss-free through the database.
type DraftSession struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	RoomID    uuid.UUID      `json:"roomId" gorm:"type:uuid;uniqueIndex;not null"`
	Phase     string         `json:"phase" gorm:"not null"`
	State     datatypes.JSON `json:"state" gorm:"type:jsonb"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
