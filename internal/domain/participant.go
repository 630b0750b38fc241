package domain

import "time"

// Participant is a connection-scoped room member. It is owned by the
// replication coordinator and never persisted beyond the session.
type Participant struct {
	PeerID        string    `json:"peerId"`
	Name          string    `json:"name"`
	IsConnected   bool      `json:"isConnected"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	IsHost        bool      `json:"isHost"`
}
