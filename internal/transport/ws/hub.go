package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
)

// Subscriber is the cross-instance event feed for one user, usually backed by
// a redis channel.
type Subscriber interface {
	Subscribe(ctx context.Context, userID int64) (<-chan []byte, func() error, error)
}

type client struct {
	id     string
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub keeps the live connections of this instance and fans user events out to
// them. A user may hold several connections (phone plus browser); the first
// one opens the user's subscription, the last one closing tears it down.
type Hub struct {
	subscriber Subscriber
	log        *zap.Logger
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[int64]map[string]*client
	cancels map[int64]context.CancelFunc
}

func NewHub(subscriber Subscriber, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		subscriber: subscriber,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[int64]map[string]*client),
		cancels: make(map[int64]context.CancelFunc),
	}
}

// Handle upgrades an authenticated request to a websocket and serves it until
// the peer goes away.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		userID: identity.UserID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}

	h.register(c)
	h.log.Info("websocket connected",
		zap.Int64("user_id", c.userID),
		zap.String("conn_id", c.id))

	go h.writePump(c)
	h.readPump(c)
}

// Send delivers a payload to every local connection of the user. A connection
// that cannot keep up is dropped rather than blocking the rest.
func (h *Hub) Send(userID int64, payload []byte) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.clients[userID]))
	for _, c := range h.clients[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("websocket send buffer full, dropping connection",
				zap.Int64("user_id", c.userID),
				zap.String("conn_id", c.id))
			h.unregister(c)
		}
	}
}

// ConnectedUsers reports how many distinct users hold at least one connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[string]*client)
	}
	h.clients[c.userID][c.id] = c

	if h.subscriber != nil {
		if _, subscribed := h.cancels[c.userID]; !subscribed {
			ctx, cancel := context.WithCancel(context.Background())
			h.cancels[c.userID] = cancel
			go h.subscribeLoop(ctx, c.userID)
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if ok {
		if _, exists := conns[c.id]; exists {
			delete(conns, c.id)
			close(c.send)
		}
		if len(conns) == 0 {
			delete(h.clients, c.userID)
			if cancel, subscribed := h.cancels[c.userID]; subscribed {
				cancel()
				delete(h.cancels, c.userID)
			}
		}
	}
	h.mu.Unlock()

	_ = c.conn.Close()
}

func (h *Hub) subscribeLoop(ctx context.Context, userID int64) {
	events, closeSub, err := h.subscriber.Subscribe(ctx, userID)
	if err != nil {
		h.log.Warn("websocket subscription failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	defer func() { _ = closeSub() }()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			h.Send(userID, payload)
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
