package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mkovardin/fleetwatch/internal/handlers/middleware"
	"github.com/mkovardin/fleetwatch/internal/logger"
	"github.com/mkovardin/fleetwatch/internal/realtime"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

type connectionHub interface {
	Register(c *realtime.Client)
	Unregister(c *realtime.Client)
	Join(c *realtime.Client, group string)
	Leave(c *realtime.Client, group string)
}

// subscribeMessage is the only message clients send after connecting
type subscribeMessage struct {
	Action string `json:"action"`
	Group  string `json:"group"`
}

func handleWebsocket(authService authService, hub connectionHub, logger logger.Logger) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Browser websocket clients can't set headers, so the token may also
		// come in the query string
		token, ok := middleware.BearerToken(r)
		if !ok {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		principal, err := authService.Authenticate(r.Context(), token)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := realtime.NewClient(principal)
		hub.Register(client)
		logger.Info("websocket connected", "client", client.ID, "user", principal.UserID)

		go writePump(conn, client, logger)
		readPump(conn, client, hub, logger)
	})
}

// writePump owns all writes to the socket. conn.WriteJSON is not safe for
// concurrent use, so events and pings are serialized here.
func writePump(conn *websocket.Conn, client *realtime.Client, logger logger.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case envelope := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(envelope); err != nil {
				logger.Debug("websocket write failed", "client", client.ID, "err", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-client.Done():
			_ = conn.Close()
			return
		}
	}
}

// readPump handles join and leave requests until the peer goes away
func readPump(conn *websocket.Conn, client *realtime.Client, hub connectionHub, logger logger.Logger) {
	defer func() {
		hub.Unregister(client)
		_ = conn.Close()
		logger.Info("websocket disconnected", "client", client.ID)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg subscribeMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", "client", client.ID, "err", err)
			}
			return
		}

		if !validGroup(msg.Group) {
			continue
		}

		switch msg.Action {
		case "join":
			hub.Join(client, msg.Group)
		case "leave":
			hub.Leave(client, msg.Group)
		}
	}
}

// validGroup accepts only well-formed group keys so clients can't subscribe
// to arbitrary strings
func validGroup(group string) bool {
	for _, prefix := range []string{"owner-", "fleet-", "vehicle-"} {
		if id, found := strings.CutPrefix(group, prefix); found {
			_, err := uuid.Parse(id)
			return err == nil
		}
	}
	return false
}
