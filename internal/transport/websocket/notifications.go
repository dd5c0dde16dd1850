package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"docbook/internal/domain"
	"docbook/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64

	// clients only send keepalive pings
	maxMessageSize = 4096
)

const (
	MessageAppointmentStatus = "appointment.status"
	MessagePing              = "ping"
	MessagePong              = "pong"
)

// Message is the envelope of every frame pushed to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// TokenParser validates access tokens passed in the connection query.
type TokenParser interface {
	ParseToken(ctx context.Context, token string) (int64, domain.UserRole, error)
}

// TokenParserFunc adapts a function to TokenParser.
type TokenParserFunc func(ctx context.Context, token string) (int64, domain.UserRole, error)

func (f TokenParserFunc) ParseToken(ctx context.Context, token string) (int64, domain.UserRole, error) {
	return f(ctx, token)
}

type Client struct {
	UserID int64
	Role   domain.UserRole
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *NotificationHub
}

type delivery struct {
	userIDs []int64
	payload []byte
}

// NotificationHub keeps the open connections of every user and pushes
// appointment events to the patient and the doctor involved. A user may
// have several connections, one per open tab or device.
type NotificationHub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}

	auth     TokenParser
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mutex sync.RWMutex
}

func NewNotificationHub(auth TokenParser, allowedOrigins []string, m *metrics.Metrics, logger *zap.Logger) *NotificationHub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &NotificationHub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		auth:       auth,
		metrics:    m,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (h *NotificationHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for userID, conns := range h.clients {
				for client := range conns {
					close(client.Send)
					h.metrics.WSDisconnected()
				}
				delete(h.clients, userID)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]struct{})
			}
			h.clients[client.UserID][client] = struct{}{}
			h.mutex.Unlock()
			h.metrics.WSConnected()
			h.logger.Info("клиент подключен",
				zap.Int64("userId", client.UserID),
				zap.String("role", string(client.Role)))

		case client := <-h.unregister:
			h.mutex.Lock()
			if conns, ok := h.clients[client.UserID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.Send)
					h.metrics.WSDisconnected()
				}
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mutex.Unlock()
			h.logger.Info("клиент отключен", zap.Int64("userId", client.UserID))

		case d := <-h.deliver:
			h.mutex.RLock()
			for _, userID := range d.userIDs {
				for client := range h.clients[userID] {
					h.sendToClient(client, d.payload)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// sendToClient must be called with the mutex held.
func (h *NotificationHub) sendToClient(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		// the write pump is stuck, the connection will be dropped by its deadline
		h.logger.Warn("очередь клиента переполнена", zap.Int64("userId", client.UserID))
	}
}

// NotifyAppointment pushes a status event to the patient and the doctor.
// It never blocks the caller for long: events are dropped when the hub has
// stopped or its queue is full.
func (h *NotificationHub) NotifyAppointment(event domain.AppointmentEvent) {
	payload, err := json.Marshal(Message{
		Type:      MessageAppointmentStatus,
		Data:      event,
		Timestamp: event.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("ошибка сериализации события", zap.Error(err))
		return
	}

	d := delivery{payload: payload, userIDs: []int64{event.PatientID}}
	if event.DoctorUserID != event.PatientID {
		d.userIDs = append(d.userIDs, event.DoctorUserID)
	}

	select {
	case h.deliver <- d:
	case <-h.done:
	default:
		h.logger.Warn("очередь уведомлений переполнена", zap.Int64("appointmentId", event.AppointmentID))
	}
}

func (h *NotificationHub) IsUserConnected(userID int64) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients[userID]) > 0
}

// HandleWebSocket authenticates with the access token from the "token" query
// parameter, since browsers cannot set headers on websocket requests.
func (h *NotificationHub) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "требуется токен"})
		return
	}

	userID, role, err := h.auth.ParseToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Info("отклонено websocket подключение", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ошибка установки websocket соединения", zap.Error(err))
		return
	}

	client := &Client{
		UserID: userID,
		Role:   role,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Hub:    h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("ошибка websocket", zap.Int64("userId", c.UserID), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != MessagePing {
			continue
		}

		pong, _ := json.Marshal(Message{Type: MessagePong, Timestamp: time.Now().UTC().Format(time.RFC3339)})

		c.Hub.mutex.RLock()
		if _, ok := c.Hub.clients[c.UserID][c]; ok {
			c.Hub.sendToClient(c, pong)
		}
		c.Hub.mutex.RUnlock()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Warn("ошибка записи в websocket",
					zap.Int64("userId", c.UserID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
