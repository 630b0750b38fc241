package replication

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dom/snake-draft-server/internal/engine"
	"github.com/dom/snake-draft-server/internal/repository"
)

// Hub owns every live room host, indexed by both room id and short code.
type Hub struct {
	cfg      Config
	sessions repository.DraftSessionRepository

	mu      sync.RWMutex
	rooms   map[string]*Host
	stopped bool
}

// NewHub creates an empty registry. sessions may be nil to run without
// persistence.
func NewHub(cfg Config, sessions repository.DraftSessionRepository) *Hub {
	return &Hub{
		cfg:      cfg,
		sessions: sessions,
		rooms:    make(map[string]*Host),
	}
}

// CreateRoom builds a host for a new room, registers it under both id and
// short code, and starts its loop.
func (h *Hub) CreateRoom(roomID uuid.UUID, shortCode, hostPeerID, hostName string, eng *engine.Engine) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}

	host := NewHost(roomID, shortCode, hostPeerID, hostName, eng, h.sessions, h.cfg, func() {
		h.remove(roomID, shortCode)
	})
	h.rooms[roomID.String()] = host
	h.rooms[shortCode] = host
	go host.Run()

	log.Printf("hub: created room %s (code %s)", roomID, shortCode)
	return host
}

// GetRoom resolves a room by id or short code.
func (h *Hub) GetRoom(idOrCode string) *Host {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[idOrCode]
}

func (h *Hub) remove(roomID uuid.UUID, shortCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID.String())
	delete(h.rooms, shortCode)
}

// Stop shuts every room down and blocks until their loops have exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true

	unique := make(map[*Host]bool)
	for _, host := range h.rooms {
		unique[host] = true
	}
	h.rooms = make(map[string]*Host)
	h.mu.Unlock()

	for host := range unique {
		host.Stop()
	}
}
