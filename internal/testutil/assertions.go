package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/snake-draft-server/internal/engine"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	// Error responses are plain text in this API
	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// AssertDraftedBy verifies a player is drafted to the given team
func AssertDraftedBy(t *testing.T, state engine.State, playerID, teamID string) {
	t.Helper()

	player, ok := state.PlayerByID(playerID)
	require.True(t, ok, "player %s not found", playerID)
	assert.True(t, player.IsDrafted, "player %s should be drafted", playerID)
	assert.Equal(t, teamID, player.DraftedBy, "player %s drafted by wrong team", playerID)

	team, ok := state.TeamByID(teamID)
	require.True(t, ok, "team %s not found", teamID)
	assert.Equal(t, playerID, team.Roster[player.Position], "team %s roster slot mismatch", teamID)
}

// AssertUndrafted verifies a player has not been drafted
func AssertUndrafted(t *testing.T, state engine.State, playerID string) {
	t.Helper()

	player, ok := state.PlayerByID(playerID)
	require.True(t, ok, "player %s not found", playerID)
	assert.False(t, player.IsDrafted, "player %s should not be drafted", playerID)
	assert.Empty(t, player.DraftedBy, "player %s should have no drafting team", playerID)
}

// AssertOnClock verifies which team may act at the current pick index
func AssertOnClock(t *testing.T, state engine.State, teamID string) {
	t.Helper()

	team, ok := state.TeamOnClock()
	require.True(t, ok, "expected a team on the clock")
	assert.Equal(t, teamID, team.ID, "wrong team on the clock")
}

// AssertStatesEqual verifies two draft states are structurally identical
func AssertStatesEqual(t *testing.T, expected, actual engine.State, msgAndArgs ...interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	require.NoError(t, err)
	actualJSON, err := json.Marshal(actual)
	require.NoError(t, err)
	assert.JSONEq(t, string(expectedJSON), string(actualJSON), msgAndArgs...)
}
