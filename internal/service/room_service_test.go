package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/snake-draft-server/internal/config"
	"github.com/dom/snake-draft-server/internal/domain"
	"github.com/dom/snake-draft-server/internal/replication"
)

func newTestService(t *testing.T) *RoomService {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
	}
	hub := replication.NewHub(replication.Config{
		HeartbeatInterval: time.Hour,
		HeartbeatTimeout:  time.Hour,
		TickInterval:      time.Hour,
		AIPickDelay:       time.Hour,
	}, nil)
	t.Cleanup(hub.Stop)

	return NewRoomService(hub, nil, cfg)
}

func TestCreateRoom_IssuesHostTicket(t *testing.T) {
	svc := newTestService(t)

	ticket, err := svc.CreateRoom(context.Background(), CreateRoomInput{HostName: "Hana"})
	require.NoError(t, err)

	assert.True(t, ticket.IsHost)
	assert.NotEmpty(t, ticket.PeerID)
	assert.Len(t, ticket.Room.ShortCode, 6)
	assert.Equal(t, ticket.Room.ShortCode, strings.ToUpper(ticket.Room.ShortCode))

	// The live coordinator is reachable by id and by code.
	byID, err := svc.LiveRoom(ticket.Room.ID.String())
	require.NoError(t, err)
	byCode, err := svc.LiveRoom(ticket.Room.ShortCode)
	require.NoError(t, err)
	assert.Same(t, byID, byCode)
}

func TestCreateRoom_RejectsBadCSV(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		HostName: "Hana",
		CSV:      "only,one,malformed,row",
	})
	assert.Error(t, err)
}

func TestJoinRoom_CaseInsensitiveCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	host, err := svc.CreateRoom(ctx, CreateRoomInput{HostName: "Hana"})
	require.NoError(t, err)

	guest, err := svc.JoinRoom(ctx, strings.ToLower(host.Room.ShortCode), "Gus")
	require.NoError(t, err)
	assert.Equal(t, host.Room.ID, guest.Room.ID)
	assert.False(t, guest.IsHost)
	assert.NotEqual(t, host.PeerID, guest.PeerID)
}

func TestJoinRoom_UnknownRoom(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.JoinRoom(context.Background(), "NOPE99", "Gus")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestValidateToken_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	ticket, err := svc.CreateRoom(context.Background(), CreateRoomInput{HostName: "Hana"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ticket.Token)
	require.NoError(t, err)
	assert.Equal(t, ticket.Room.ID, claims.RoomID)
	assert.Equal(t, ticket.PeerID, claims.PeerID)
	assert.Equal(t, "Hana", claims.Name)
	assert.True(t, claims.IsHost)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	svc := newTestService(t)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "peer",
		"room": "00000000-0000-0000-0000-000000000000",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := forged.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
