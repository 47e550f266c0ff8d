package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/minerva-brain/backend/internal/status"
)

// WebSocket message types for the status stream
const (
	// Client -> Server messages
	MsgTypePing      = "ping"
	MsgTypeStatusGet = "status:get"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeStatus    = "status"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope for all status stream messages
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse carries an error to the client
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StatusWSHandler pushes status snapshots to connected displays and
// dashboards. A snapshot is sent on connect, on request, and whenever
// Broadcast is called after a data change.
type StatusWSHandler struct {
	aggregator *status.Aggregator
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]*sync.Mutex
	clientsMu  sync.RWMutex
}

// NewStatusWSHandler creates a new status stream handler
func NewStatusWSHandler(agg *status.Aggregator) *StatusWSHandler {
	return &StatusWSHandler{
		aggregator: agg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Displays and dashboards connect from anywhere on the LAN
				return true
			},
			ReadBufferSize:  8 * 1024,
			WriteBufferSize: 8 * 1024,
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWebSocket upgrades the connection and serves the status stream
func (wsh *StatusWSHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	writeMu := &sync.Mutex{}
	wsh.clientsMu.Lock()
	wsh.clients[ws] = writeMu
	wsh.clientsMu.Unlock()

	defer func() {
		wsh.clientsMu.Lock()
		delete(wsh.clients, ws)
		wsh.clientsMu.Unlock()
		ws.Close()
		fmt.Println("[WebSocket] Status client disconnected")
	}()

	fmt.Println("[WebSocket] Status client connected")

	wsh.send(ws, writeMu, WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})
	wsh.sendStatus(ws, writeMu)

	// Main message loop
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.send(ws, writeMu, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeStatusGet:
			wsh.sendStatus(ws, writeMu)
		default:
			wsh.sendError(ws, writeMu, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
	return nil
}

// Broadcast pushes a fresh snapshot to every connected client. Called by
// the background loops after occurrences or service states change.
func (wsh *StatusWSHandler) Broadcast() {
	wsh.clientsMu.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(wsh.clients))
	for ws, mu := range wsh.clients {
		clients[ws] = mu
	}
	wsh.clientsMu.RUnlock()

	if len(clients) == 0 {
		return
	}

	for ws, mu := range clients {
		wsh.sendStatus(ws, mu)
	}
}

// ClientCount returns the number of connected clients.
func (wsh *StatusWSHandler) ClientCount() int {
	wsh.clientsMu.RLock()
	defer wsh.clientsMu.RUnlock()
	return len(wsh.clients)
}

func (wsh *StatusWSHandler) sendStatus(ws *websocket.Conn, mu *sync.Mutex) {
	st, err := wsh.aggregator.BuildToday(time.Now())
	if err != nil {
		wsh.sendError(ws, mu, "Failed to build status: "+err.Error(), "STATUS_ERROR")
		return
	}
	wsh.send(ws, mu, WSMessage{
		Type:      MsgTypeStatus,
		Payload:   mustJSON(st),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (wsh *StatusWSHandler) send(ws *websocket.Conn, mu *sync.Mutex, msg WSMessage) {
	mu.Lock()
	defer mu.Unlock()
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (wsh *StatusWSHandler) sendError(ws *websocket.Conn, mu *sync.Mutex, message, code string) {
	wsh.send(ws, mu, WSMessage{
		Type:      MsgTypeError,
		Payload:   mustJSON(WSErrorResponse{Type: MsgTypeError, Message: message, Code: code}),
		Timestamp: time.Now().UnixMilli(),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
