package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamom/ogdrop/internal/scenario"
)

func dialScenarioSocket(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.server.Router())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scenario"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestScenarioSocket_StreamsRebuilds(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := dialScenarioSocket(t, env)

	require.NoError(t, conn.WriteJSON(ScenarioRequest{Session: scenario.DefaultSession()}))

	var reply socketEnvelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "scenario", reply.Type)
	require.NotNil(t, reply.Context)
	assert.Equal(t, "15|4|100000|10|[20 30 40]|[3 4 5]", reply.Context.Signature)
	assert.Len(t, reply.Context.Cards, 2)

	// Dragging a control sends new numbers down the same connection.
	session := scenario.DefaultSession()
	session.TierPct = 5
	require.NoError(t, conn.WriteJSON(ScenarioRequest{Session: session}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "scenario", reply.Type)
	require.NotNil(t, reply.Context)
	assert.Equal(t, "15|4|100000|5|[20 30 40]|[3 4 5]", reply.Context.Signature)
}

func TestScenarioSocket_ReportsBuildErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := dialScenarioSocket(t, env)

	require.NoError(t, conn.WriteJSON(ScenarioRequest{
		Session: scenario.SessionContext{PrimaryCohort: "Atlantis"},
	}))

	var reply socketEnvelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Error, "Atlantis")
	assert.Nil(t, reply.Context)

	// One bad request does not poison the connection.
	require.NoError(t, conn.WriteJSON(ScenarioRequest{Session: scenario.DefaultSession()}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "scenario", reply.Type)
}
