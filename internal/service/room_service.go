// Package service holds the application services between the HTTP layer and
// the room coordinators.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dom/snake-draft-server/internal/config"
	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/engine"
	"github.com/dom/snake-draft-server/internal/replication"
	"github.com/dom/snake-draft-server/internal/repository"
	"github.com/dom/snake-draft-server/internal/roster"
)

// RoomService creates rooms, issues join tokens, and resolves rooms for the
// websocket upgrade. Room records are persisted when a repository is present;
// the live coordinators always run in the hub regardless.
type RoomService struct {
	hub      *replication.Hub
	roomRepo repository.RoomRepository // optional
	cfg      *config.Config
}

func NewRoomService(hub *replication.Hub, roomRepo repository.RoomRepository, cfg *config.Config) *RoomService {
	return &RoomService{
		hub:      hub,
		roomRepo: roomRepo,
		cfg:      cfg,
	}
}

// RoomTicket is what a participant needs to connect: the room, their assigned
// peer id, and the signed token the websocket endpoint accepts.
type RoomTicket struct {
	Room   *domain.Room
	PeerID string
	Token  string
	IsHost bool
}

type CreateRoomInput struct {
	HostName string
	// CSV holds an optional custom roster upload. Empty means the preset pool.
	CSV string
}

// CreateRoom provisions a room: roster into a fresh engine, a live host
// coordinator in the hub, an optional database record, and the creator's
// ticket.
func (s *RoomService) CreateRoom(ctx context.Context, input CreateRoomInput) (*RoomTicket, error) {
	pool := roster.Preset()
	custom := false
	if input.CSV != "" {
		parsed, err := roster.ParseCSV(input.CSV)
		if err != nil {
			return nil, err
		}
		pool = parsed
		custom = true
	}

	eng := engine.New()
	eng.Load(pool.Teams, pool.Players, pool.PositionNames)
	eng.SetCustomMode(custom)
	eng.SetStep(domain.PhaseLobby)

	room := &domain.Room{
		ID:        uuid.New(),
		ShortCode: generateShortCode(),
		HostName:  input.HostName,
		Status:    domain.RoomStatusOpen,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if s.roomRepo != nil {
		if err := s.roomRepo.Create(ctx, room); err != nil {
			return nil, err
		}
	}

	hostPeerID := uuid.New().String()
	host := s.hub.CreateRoom(room.ID, room.ShortCode, hostPeerID, input.HostName, eng)
	go func() {
		<-host.Done()
		s.MarkClosed(context.Background(), room.ID)
	}()

	token, err := s.generateRoomToken(room.ID, hostPeerID, input.HostName, true)
	if err != nil {
		return nil, err
	}
	return &RoomTicket{Room: room, PeerID: hostPeerID, Token: token, IsHost: true}, nil
}

// JoinRoom issues a guest ticket for an existing room. Capacity is enforced
// by the host coordinator at JOIN_REQUEST time, not here: a ticket is an
// invitation to try, the host has the final word.
func (s *RoomService) JoinRoom(ctx context.Context, idOrCode, name string) (*RoomTicket, error) {
	host := s.hub.GetRoom(normalizeCode(idOrCode))
	if host == nil {
		// The coordinator may be gone while the record lingers; tell a closed
		// room apart from one that never existed.
		if room, err := s.findRecord(ctx, idOrCode); err == nil && room.Status == domain.RoomStatusClosed {
			return nil, domain.ErrRoomClosed
		}
		return nil, domain.ErrRoomNotFound
	}

	room, err := s.lookupRoom(ctx, host)
	if err != nil {
		return nil, err
	}

	peerID := uuid.New().String()
	token, err := s.generateRoomToken(host.RoomID(), peerID, name, false)
	if err != nil {
		return nil, err
	}
	return &RoomTicket{Room: room, PeerID: peerID, Token: token, IsHost: false}, nil
}

// GetRoom resolves a room by UUID or short code. Rooms whose coordinator has
// shut down remain queryable through their persisted record.
func (s *RoomService) GetRoom(ctx context.Context, idOrCode string) (*domain.Room, error) {
	host := s.hub.GetRoom(normalizeCode(idOrCode))
	if host == nil {
		return s.findRecord(ctx, idOrCode)
	}
	return s.lookupRoom(ctx, host)
}

// LiveRoom returns the running coordinator for a room.
func (s *RoomService) LiveRoom(idOrCode string) (*replication.Host, error) {
	host := s.hub.GetRoom(normalizeCode(idOrCode))
	if host == nil {
		return nil, domain.ErrRoomNotFound
	}
	return host, nil
}

// MarkClosed records a room's shutdown in the database, best-effort.
func (s *RoomService) MarkClosed(ctx context.Context, roomID uuid.UUID) {
	if s.roomRepo == nil {
		return
	}
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return
	}
	room.Status = domain.RoomStatusClosed
	room.UpdatedAt = time.Now()
	if err := s.roomRepo.Update(ctx, room); err != nil {
		log.Printf("room %s: mark closed: %v", roomID, err)
	}
}

// RoomClaims is the payload of a room join token.
type RoomClaims struct {
	RoomID uuid.UUID
	PeerID string
	Name   string
	IsHost bool
}

// ValidateToken parses and verifies a room token.
func (s *RoomService) ValidateToken(tokenString string) (*RoomClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	roomID, err := uuid.Parse(stringClaim(claims, "room"))
	if err != nil {
		return nil, errors.New("invalid token")
	}
	peerID := stringClaim(claims, "sub")
	if peerID == "" {
		return nil, errors.New("invalid token")
	}
	isHost, _ := claims["host"].(bool)

	return &RoomClaims{
		RoomID: roomID,
		PeerID: peerID,
		Name:   stringClaim(claims, "name"),
		IsHost: isHost,
	}, nil
}

func (s *RoomService) generateRoomToken(roomID uuid.UUID, peerID, name string, isHost bool) (string, error) {
	claims := jwt.MapClaims{
		"sub":  peerID,
		"room": roomID.String(),
		"name": name,
		"host": isHost,
		"exp":  time.Now().Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// findRecord resolves a persisted room by UUID or short code. Any repository
// miss surfaces as ErrRoomNotFound.
func (s *RoomService) findRecord(ctx context.Context, idOrCode string) (*domain.Room, error) {
	if s.roomRepo == nil {
		return nil, domain.ErrRoomNotFound
	}

	var room *domain.Room
	var err error
	if id, perr := uuid.Parse(idOrCode); perr == nil {
		room, err = s.roomRepo.GetByID(ctx, id)
	} else {
		room, err = s.roomRepo.GetByShortCode(ctx, normalizeCode(idOrCode))
	}
	if err != nil {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// lookupRoom prefers the database record; without one the live coordinator's
// identity is enough to answer.
func (s *RoomService) lookupRoom(ctx context.Context, host *replication.Host) (*domain.Room, error) {
	if s.roomRepo != nil {
		if room, err := s.roomRepo.GetByID(ctx, host.RoomID()); err == nil {
			return room, nil
		}
	}
	return &domain.Room{
		ID:        host.RoomID(),
		ShortCode: host.ShortCode(),
		Status:    domain.RoomStatusOpen,
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

func normalizeCode(idOrCode string) string {
	if _, err := uuid.Parse(idOrCode); err == nil {
		return idOrCode
	}
	return strings.ToUpper(idOrCode)
}

func generateShortCode() string {
	bytes := make([]byte, 3)
	rand.Read(bytes)
	return strings.ToUpper(hex.EncodeToString(bytes))
}
