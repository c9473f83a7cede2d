package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkovardin/fleetwatch/internal/testutil"
)

type wsEnvelope struct {
	ID         string         `json:"id"`
	Event      string         `json:"event"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload"`
}

func dialWS(t *testing.T, url string, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(url, "http", "ws", 1) + "/api/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "websocket dial should succeed")
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	// Registration runs right after the handshake, give it a moment before
	// triggering broadcasts
	time.Sleep(100 * time.Millisecond)

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var envelope wsEnvelope
	require.NoError(t, conn.ReadJSON(&envelope), "expected a pushed event")
	return envelope
}

func Test_WebsocketGateway(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("rejects missing or bad token", func(t *testing.T) {
		withServer(pg, t, func(url string) {
			wsURL := strings.Replace(url, "http", "ws", 1) + "/api/ws"

			_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			_ = resp.Body.Close()

			_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token=garbage", nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			_ = resp.Body.Close()
		})
	})

	t.Run("owner events arrive without explicit join", func(t *testing.T) {
		withServer(pg, t, func(url string) {
			token := registerOwner(t, url)["accessToken"].(string)
			conn := dialWS(t, url, token)

			status, body := doJSON(t, http.MethodPost, url+"/api/fleets", token, `{"name": "north"}`)
			require.Equal(t, http.StatusCreated, status)
			fleetID := decodeJSON(t, body)["id"].(string)

			envelope := readEnvelope(t, conn)

			assert.Equal(t, "FleetCreated", envelope.Event)
			assert.NotEmpty(t, envelope.ID, "envelope should carry an event id for dedup")
			assert.Equal(t, fleetID, envelope.Payload["fleetId"])
			assert.Equal(t, "north", envelope.Payload["name"])
		})
	})

	t.Run("joined fleet group receives vehicle events twice", func(t *testing.T) {
		withServer(pg, t, func(url string) {
			token := registerOwner(t, url)["accessToken"].(string)
			conn := dialWS(t, url, token)

			status, body := doJSON(t, http.MethodPost, url+"/api/fleets", token, `{"name": "north"}`)
			require.Equal(t, http.StatusCreated, status)
			fleetID := decodeJSON(t, body)["id"].(string)

			// Drain the FleetCreated event from the owner group
			_ = readEnvelope(t, conn)

			require.NoError(t, conn.WriteJSON(map[string]string{"action": "join", "group": "fleet-" + fleetID}))
			time.Sleep(100 * time.Millisecond)

			status, _ = doJSON(t, http.MethodPost, url+"/api/fleets/"+fleetID+"/vehicles", token,
				`{"registration": "B-FW 1001", "model": "Volvo FH16"}`)
			require.Equal(t, http.StatusCreated, status)

			// Dual-group send: one copy via the fleet group, one via the owner
			// group, same envelope id on both
			first := readEnvelope(t, conn)
			second := readEnvelope(t, conn)

			assert.Equal(t, "VehicleCreated", first.Event)
			assert.Equal(t, "VehicleCreated", second.Event)
			assert.Equal(t, first.ID, second.ID, "both copies carry the same envelope id")
		})
	})

	t.Run("leave stops fleet events", func(t *testing.T) {
		withServer(pg, t, func(url string) {
			token := registerOwner(t, url)["accessToken"].(string)
			conn := dialWS(t, url, token)

			status, body := doJSON(t, http.MethodPost, url+"/api/fleets", token, `{"name": "north"}`)
			require.Equal(t, http.StatusCreated, status)
			fleetID := decodeJSON(t, body)["id"].(string)
			_ = readEnvelope(t, conn)

			require.NoError(t, conn.WriteJSON(map[string]string{"action": "join", "group": "fleet-" + fleetID}))
			require.NoError(t, conn.WriteJSON(map[string]string{"action": "leave", "group": "fleet-" + fleetID}))
			time.Sleep(100 * time.Millisecond)

			status, _ = doJSON(t, http.MethodPost, url+"/api/fleets/"+fleetID+"/vehicles", token,
				`{"registration": "B-FW 1001", "model": "Volvo FH16"}`)
			require.Equal(t, http.StatusCreated, status)

			// Only the owner group copy arrives
			first := readEnvelope(t, conn)
			assert.Equal(t, "VehicleCreated", first.Event)

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
			var extra wsEnvelope
			err := conn.ReadJSON(&extra)
			assert.Error(t, err, "no second copy should arrive after leaving the fleet group")
		})
	})

	t.Run("other tenants receive nothing", func(t *testing.T) {
		withServer(pg, t, func(url string) {
			token := registerOwner(t, url)["accessToken"].(string)

			otherBody := strings.Replace(registerBody, "boss@acme.example", "other@cargo.example", 1)
			resp, raw := postJSON(t, url+"/api/auth/register", otherBody)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			otherToken := decodeJSON(t, raw)["accessToken"].(string)

			otherConn := dialWS(t, url, otherToken)

			status, _ := doJSON(t, http.MethodPost, url+"/api/fleets", token, `{"name": "north"}`)
			require.Equal(t, http.StatusCreated, status)

			require.NoError(t, otherConn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
			var envelope wsEnvelope
			err := otherConn.ReadJSON(&envelope)
			assert.Error(t, err, "events must stay inside the owner group")
		})
	})
}
