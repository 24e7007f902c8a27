package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
)

const (
	writeWait      = 10 * time.Second
	statusInterval = 5 * time.Second
	broadcastDepth = 256
)

// wsClient is one browser tab; turns are delivered to every tab of a session
type wsClient struct {
	conn    *websocket.Conn
	session string
}

type sessionMessage struct {
	session string
	data    []byte
}

// WebSocketHub relays chat messages from browsers to the dispatcher and
// fans the resulting turns out to the session's open tabs. Only the run
// loop writes to connections.
type WebSocketHub struct {
	clients    map[*wsClient]bool
	broadcast  chan sessionMessage
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	closeOnce  sync.Once
	mutex      sync.RWMutex
	backend    interfaces.ChatBackend
	history    interfaces.ChatHistory
	logger     arbor.ILogger
	statusTick time.Duration
}

// inboundMessage is what the page sends over the socket
type inboundMessage struct {
	Message string `json:"message"`
}

func NewWebSocketHub(backend interfaces.ChatBackend, history interfaces.ChatHistory, logger arbor.ILogger) *WebSocketHub {
	hub := newWebSocketHub(backend, history, logger, broadcastDepth, statusInterval)
	go hub.run()
	return hub
}

func newWebSocketHub(backend interfaces.ChatBackend, history interfaces.ChatHistory, logger arbor.ILogger, depth int, tick time.Duration) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan sessionMessage, depth),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		backend:    backend,
		history:    history,
		logger:     logger,
		statusTick: tick,
	}
}

func (h *WebSocketHub) run() {
	ticker := time.NewTicker(h.statusTick)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				client.conn.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.logger.Debug().Str("session", client.session).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.conn.Close()
			}
			h.mutex.Unlock()
			h.logger.Debug().Str("session", client.session).Msg("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.deliver(message)

		case <-ticker.C:
			if data, err := statusMessage("online"); err == nil {
				h.deliver(sessionMessage{data: data})
			}
		}
	}
}

// deliver writes to the matching clients outside the lock. Each write is
// bounded by writeWait; a client that fails is dropped.
func (h *WebSocketHub) deliver(message sessionMessage) {
	h.mutex.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		if message.session == "" || client.session == message.session {
			targets = append(targets, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, message.data); err != nil {
			h.logger.Warn().Err(err).Str("session", client.session).Msg("Failed to send WebSocket message")
			h.mutex.Lock()
			delete(h.clients, client)
			h.mutex.Unlock()
			client.conn.Close()
		}
	}
}

func statusMessage(status string) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":      "status",
		"status":    status,
		"timestamp": time.Now().Unix(),
	})
}

// SendStatus broadcasts a status to one session, or to everyone when session is empty
func (h *WebSocketHub) SendStatus(session, status string) {
	data, err := statusMessage(status)
	if err != nil {
		return
	}
	h.enqueue(sessionMessage{session: session, data: data})
}

// SendTurn broadcasts a chat turn to the tabs of its session
func (h *WebSocketHub) SendTurn(turn *models.ChatTurn) {
	h.send(turn.Session, map[string]interface{}{
		"type":      "turn",
		"data":      turn,
		"timestamp": time.Now().Unix(),
	})
}

func (h *WebSocketHub) send(session string, msg map[string]interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.enqueue(sessionMessage{session: session, data: data})
}

func (h *WebSocketHub) enqueue(message sessionMessage) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Exchange records the user's message, asks the dispatcher, and records the
// answer or the error text. It returns the agent's turn.
func (h *WebSocketHub) Exchange(ctx context.Context, session, message string) (*models.ChatTurn, error) {
	userTurn, err := h.history.Append(session, models.SenderUser, message)
	if err != nil {
		return nil, err
	}
	h.SendTurn(userTurn)
	h.SendStatus(session, "thinking")

	answer, err := h.backend.Send(ctx, message)
	if err != nil {
		h.logger.Warn().Err(err).Str("session", session).Msg("Dispatcher call failed")
		answer = "Error: " + err.Error()
	}

	agentTurn, err := h.history.Append(session, models.SenderAgent, answer)
	if err != nil {
		return nil, err
	}
	h.SendTurn(agentTurn)
	h.SendStatus(session, "online")

	return agentTurn, nil
}

// Close disconnects every client and stops the run loop
func (h *WebSocketHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades the connection and processes one message at a time
func (h *WebSocketHub) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		http.Error(w, "missing session", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, session: session}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- client:
			case <-h.done:
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var in inboundMessage
			if err := json.Unmarshal(data, &in); err != nil || strings.TrimSpace(in.Message) == "" {
				continue
			}

			if _, err := h.Exchange(context.Background(), session, in.Message); err != nil {
				h.logger.Error().Err(err).Str("session", session).Msg("Failed to record chat turn")
			}
		}
	}()
}
