package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smatrader/src/executors"
	"smatrader/src/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) executors.Status {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var status executors.Status
	require.NoError(t, json.Unmarshal(data, &status))
	return status
}

func TestStatusStreamPushesChanges(t *testing.T) {
	engine := &mockController{}
	engine.setStatus(executors.Status{Position: model.PositionFlat, Positions: []string{}, Symbol: "BTCUSDT"})

	stream := NewStatusStream(engine, 10*time.Millisecond)
	srv := httptest.NewServer(stream)
	defer srv.Close()
	defer stream.Close()

	conn := dialStream(t, srv)

	first := readStatus(t, conn)
	assert.Equal(t, model.PositionFlat, first.Position)
	assert.False(t, first.Active)

	engine.setStatus(executors.Status{Position: model.PositionLong, Positions: []string{"LONG"}, EntryPrice: 11, Symbol: "BTCUSDT"})
	second := readStatus(t, conn)
	assert.Equal(t, model.PositionLong, second.Position)
	assert.Equal(t, 11.0, second.EntryPrice)
}

func TestStatusStreamCloseEndsClients(t *testing.T) {
	engine := &mockController{}
	stream := NewStatusStream(engine, 10*time.Millisecond)
	srv := httptest.NewServer(stream)
	defer srv.Close()

	conn := dialStream(t, srv)
	readStatus(t, conn)

	stream.Close()
	stream.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
