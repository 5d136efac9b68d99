package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/response"
	"github.com/ecobox-ge/ecobox-api/internal/api/middleware"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

// Message types exchanged on the realtime socket.
const (
	MessageInvalidate   = "invalidate"
	MessageNotification = "notification"
	MessageStatus       = "status"
	MessageAuth         = "auth"
	MessageError        = "error"
)

type Message struct {
	Type   string           `json:"type"`
	Key    string           `json:"key,omitempty"`
	Token  string           `json:"token,omitempty"`
	State  string           `json:"state,omitempty"`
	UserID string           `json:"userId,omitempty"`
	Change *realtime.Change `json:"change,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// userScoped keys only go to the user named in their param.
var userScoped = map[string]bool{
	query.KeyUserAchievements:  true,
	query.KeyUserChallenges:    true,
	query.KeyUserNotifications: true,
	query.KeyUserProfile:       true,
}

type InvalidationSource interface {
	OnInvalidate(fn func(query.Key)) (cancel func())
}

type Client struct {
	conn *websocket.Conn

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	mu       sync.Mutex
	identity domain.Identity
	sub      *realtime.Subscription
}

// deliver queues msg without blocking. It reports false when the buffer is
// full; a closed client swallows msg.
func (c *Client) deliver(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) userID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity.UserID
}

// RealtimeHub pushes cache invalidations and the client's own notification
// changes to websocket clients.
type RealtimeHub struct {
	bridge   *realtime.Bridge
	sessions middleware.SessionVerifier
	upgrader websocket.Upgrader

	clients    map[*Client]struct{}
	broadcast  chan query.Key
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewRealtimeHub(bridge *realtime.Bridge, sessions middleware.SessionVerifier, allowedOrigins []string) *RealtimeHub {
	h := &RealtimeHub{
		bridge:     bridge,
		sessions:   sessions,
		clients:    map[*Client]struct{}{},
		broadcast:  make(chan query.Key, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Forward relays every invalidation of src to the connected clients. It
// never blocks the caller; when the hub falls behind keys are dropped.
func (h *RealtimeHub) Forward(src InvalidationSource) (cancel func()) {
	return src.OnInvalidate(func(k query.Key) {
		select {
		case h.broadcast <- k:
		default:
			zap.L().Warn("realtime hub is behind, dropping invalidation", zap.String("key", k.String()))
		}
	})
}

// Run serves registrations and broadcasts until ctx is done.
func (h *RealtimeHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
		case k := <-h.broadcast:
			msg, _ := json.Marshal(Message{Type: MessageInvalidate, Key: k.String()})
			for c := range h.clients {
				if userScoped[k.Name] && k.Param != c.userID() {
					continue
				}
				if !c.deliver(msg) {
					h.drop(c)
				}
			}
		}
	}
}

func (h *RealtimeHub) drop(c *Client) {
	delete(h.clients, c)
	c.closeSend()
	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()
	if sub != nil {
		_ = sub.Close()
	}
}

// HandleWebSocket godoc
// @Summary      Open the realtime socket
// @Description  Streams {"type":"invalidate","key":...} for every cache key that changed and {"type":"notification"} for the signed in user's notifications. Send {"type":"auth","token":...} to switch users without reconnecting.
// @Tags         realtime
// @Param        token   query   string  false  "bearer token, for clients that cannot set headers"
// @Success      101     {string}  string  "Switching Protocols"
// @Failure      401     {object}  response.Err
// @Router       /realtime [get]
// @Security     BearerAuth
func (h *RealtimeHub) HandleWebSocket(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(domain.ErrSessionExpired))
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: identity,
	}

	sub, err := h.bridge.Open(rowstore.TableNotifications, realtime.EventAll, realtime.EqFilter("user_id", identity.UserID), func(change realtime.Change) {
		c.push(Message{Type: MessageNotification, Change: &change})
	})
	if err != nil {
		zap.L().Error("notification subscription failed", zap.String("user_id", identity.UserID), zap.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"))
		_ = conn.Close()
		return
	}
	c.sub = sub

	select {
	case h.register <- c:
	case <-h.done:
		_ = sub.Close()
		_ = conn.Close()
		return
	}

	c.pushStatus()

	go c.writePump()
	go c.readPump(h)
}

// push never blocks; a client that cannot keep up misses messages until the
// hub drops it on the next broadcast.
func (c *Client) push(m Message) {
	msg, err := json.Marshal(m)
	if err != nil {
		return
	}
	c.deliver(msg)
}

func (c *Client) pushStatus() {
	c.mu.Lock()
	state, _ := c.sub.Status()
	uid := c.identity.UserID
	c.mu.Unlock()
	c.push(Message{Type: MessageStatus, State: state.String(), UserID: uid})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *Client) readPump(h *RealtimeHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("websocket closed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.push(Message{Type: MessageError, Error: "malformed message"})
			continue
		}

		switch msg.Type {
		case MessageAuth:
			c.switchUser(h, msg.Token)
		case MessageStatus:
			c.pushStatus()
		default:
			c.push(Message{Type: MessageError, Error: "unknown message type"})
		}
	}
}

// switchUser moves the notification subscription to the user behind token.
func (c *Client) switchUser(h *RealtimeHub, token string) {
	identity, ok := h.sessions.CurrentSession(token)
	if !ok {
		c.push(Message{Type: MessageError, Error: domain.ErrSessionExpired.Error()})
		return
	}

	c.mu.Lock()
	err := c.sub.Refilter(realtime.EqFilter("user_id", identity.UserID))
	if err == nil {
		c.identity = identity
	}
	c.mu.Unlock()

	if err != nil {
		zap.L().Warn("notification refilter failed", zap.String("user_id", identity.UserID), zap.Error(err))
		c.push(Message{Type: MessageError, Error: "could not switch user"})
		return
	}
	c.pushStatus()
}
