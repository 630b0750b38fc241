package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/roster"
	"github.com/dom/snake-draft-server/internal/service"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

type CreateRoomRequest struct {
	HostName string `json:"hostName"`
	// CSV optionally carries a custom roster; empty uses the preset pool.
	CSV string `json:"csv,omitempty"`
}

type JoinRoomRequest struct {
	Name string `json:"name"`
}

type RoomResponse struct {
	ID        string `json:"id"`
	ShortCode string `json:"shortCode"`
	Status    string `json:"status"`
}

type TicketResponse struct {
	Room         RoomResponse `json:"room"`
	PeerID       string       `json:"peerId"`
	Token        string       `json:"token"`
	IsHost       bool         `json:"isHost"`
	WebsocketURL string       `json:"websocketUrl"`
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.HostName == "" {
		http.Error(w, "hostName is required", http.StatusBadRequest)
		return
	}

	ticket, err := h.roomService.CreateRoom(r.Context(), service.CreateRoomInput{
		HostName: req.HostName,
		CSV:      req.CSV,
	})
	if err != nil {
		if isRosterError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create room", http.StatusInternalServerError)
		return
	}

	writeTicket(w, ticket)
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	idOrCode := chi.URLParam(r, "idOrCode")

	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	ticket, err := h.roomService.JoinRoom(r.Context(), idOrCode, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrRoomClosed) {
			http.Error(w, "Room is closed", http.StatusGone)
			return
		}
		http.Error(w, "Failed to join room", http.StatusInternalServerError)
		return
	}

	writeTicket(w, ticket)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	idOrCode := chi.URLParam(r, "idOrCode")

	room, err := h.roomService.GetRoom(r.Context(), idOrCode)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RoomResponse{
		ID:        room.ID.String(),
		ShortCode: room.ShortCode,
		Status:    string(room.Status),
	})
}

func writeTicket(w http.ResponseWriter, ticket *service.RoomTicket) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TicketResponse{
		Room: RoomResponse{
			ID:        ticket.Room.ID.String(),
			ShortCode: ticket.Room.ShortCode,
			Status:    string(ticket.Room.Status),
		},
		PeerID:       ticket.PeerID,
		Token:        ticket.Token,
		IsHost:       ticket.IsHost,
		WebsocketURL: "/api/v1/ws?token=" + ticket.Token,
	})
}

func isRosterError(err error) bool {
	return errors.Is(err, roster.ErrLeaderCount) ||
		errors.Is(err, roster.ErrPositionCount) ||
		errors.Is(err, roster.ErrPlayerCount)
}
