package handlers

import (
	"log"
	"net/http"

	ws "github.com/gorilla/websocket"

	"github.com/dom/snake-draft-server/internal/service"
	"github.com/dom/snake-draft-server/internal/transport"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

type WebSocketHandler struct {
	roomService *service.RoomService
}

func NewWebSocketHandler(roomService *service.RoomService) *WebSocketHandler {
	return &WebSocketHandler{roomService: roomService}
}

// Handle upgrades a ticketed participant onto their room's coordinator. The
// token binds the connection to one room and one peer id; the coordinator
// takes over from the first frame.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.roomService.ValidateToken(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	host, err := h.roomService.LiveRoom(claims.RoomID.String())
	if err != nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	host.Attach(transport.NewWSChannel(conn, claims.PeerID))
}
