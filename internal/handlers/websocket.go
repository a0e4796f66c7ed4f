package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"fatigue-detector/internal/models"
	"fatigue-detector/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	MsgWelcome   = "WELCOME"
	MsgPing      = "PING"
	MsgPong      = "PONG"
	MsgFrame     = "FRAME"
	MsgDetection = "DETECTION"
	MsgReset     = "RESET"
	MsgResetOK   = "RESET_OK"
	MsgError     = "ERROR"

	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	writeWait  = 10 * time.Second
)

type WebSocketMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsClient struct {
	conn     *websocket.Conn
	clientID string
	send     chan WebSocketMessage

	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsClient) enqueue(msg WebSocketMessage) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub tracks live WebSocket clients. Each client classifies frames on the
// session named in the frame, or on a session named after the client.
type Hub struct {
	service   *services.DetectionService
	upgrader  websocket.Upgrader
	readLimit int64
	logger    *logrus.Entry

	mu      sync.RWMutex
	clients map[string]*wsClient
}

func NewHub(service *services.DetectionService, maxMessage int64, logger *logrus.Logger) *Hub {
	return &Hub{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		readLimit: maxMessage,
		logger:    logger.WithField("component", "websocket"),
		clients:   make(map[string]*wsClient),
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := &wsClient{
		conn:     conn,
		clientID: clientID,
		send:     make(chan WebSocketMessage, 256),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if old, ok := h.clients[clientID]; ok {
		old.close()
	}
	h.clients[clientID] = client
	h.mu.Unlock()

	metrics := h.service.Metrics()
	metrics.IncrementWebSocketConnections()
	h.logger.WithField("client_id", clientID).Info("client connected")

	defer func() {
		h.mu.Lock()
		if h.clients[clientID] == client {
			delete(h.clients, clientID)
		}
		h.mu.Unlock()
		metrics.DecrementWebSocketConnections()
		client.close()
		h.logger.WithField("client_id", clientID).Info("client disconnected")
	}()

	go h.writePump(client)

	client.enqueue(WebSocketMessage{
		Type:      MsgWelcome,
		ClientID:  clientID,
		Timestamp: time.Now().Unix(),
		Payload: map[string]interface{}{
			"message": "Connected to Fatigue Detection Server",
			"version": services.Version,
		},
	})

	h.readPump(r.Context(), client)
}

func (h *Hub) readPump(ctx context.Context, client *wsClient) {
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	metrics := h.service.Metrics()
	for {
		var msg inboundMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				metrics.IncrementWebSocketErrors()
				h.logger.WithError(err).WithField("client_id", client.clientID).Warn("read failed")
			}
			return
		}
		metrics.IncrementWebSocketMessages()
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		if !client.enqueue(h.handleMessage(ctx, client.clientID, msg)) {
			h.logger.WithField("client_id", client.clientID).Warn("send buffer full, reply dropped")
		}
	}
}

func (h *Hub) handleMessage(ctx context.Context, clientID string, msg inboundMessage) WebSocketMessage {
	reply := WebSocketMessage{ClientID: clientID, Timestamp: time.Now().Unix()}

	switch msg.Type {
	case MsgPing:
		reply.Type = MsgPong
		return reply

	case MsgFrame:
		var frame models.LandmarkFrame
		if err := json.Unmarshal(msg.Payload, &frame); err != nil {
			return errorReply(reply, "invalid frame payload")
		}
		if frame.SessionID == "" {
			frame.SessionID = clientID
		}
		result, err := h.service.Detect(ctx, &frame)
		if err != nil {
			return errorReply(reply, err.Error())
		}
		reply.Type = MsgDetection
		reply.Payload = result
		return reply

	case MsgReset:
		var req struct {
			SessionID string `json:"session_id"`
		}
		if len(msg.Payload) > 0 {
			_ = json.Unmarshal(msg.Payload, &req)
		}
		if req.SessionID == "" {
			req.SessionID = clientID
		}
		if err := h.service.Reset(req.SessionID); err != nil {
			return errorReply(reply, err.Error())
		}
		reply.Type = MsgResetOK
		reply.Payload = map[string]string{"session_id": req.SessionID}
		return reply
	}

	h.logger.WithField("type", msg.Type).Debug("unknown message type")
	return errorReply(reply, "unknown message type: "+msg.Type)
}

func errorReply(reply WebSocketMessage, msg string) WebSocketMessage {
	reply.Type = MsgError
	reply.Payload = map[string]string{"error": msg}
	return reply
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.close()
	}()

	for {
		select {
		case msg := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.done:
			return
		}
	}
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.close()
		h.logger.WithField("client_id", id).Debug("connection closed")
	}
	h.clients = make(map[string]*wsClient)
}
