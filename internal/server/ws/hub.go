package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// Topic name helpers. Quote pushes are keyed by session ID, state pushes
// by market address.
func sessionTopic(id string) string     { return "session:" + id }
func marketTopic(address string) string { return "market:" + address }

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool // subscribed topics
	mu   sync.RWMutex
}

// subscribeMsg is the JSON message a client sends to manage its topic
// subscriptions.
//
//	{"action":"subscribe","sessions":["<id>"],"markets":["<address>"]}
type subscribeMsg struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Sessions []string `json:"sessions"`
	Markets  []string `json:"markets"`
}

// frame is the envelope of every message pushed to clients.
type frame struct {
	Type    string `json:"type"` // "quote", "market_state", "status"
	Payload any    `json:"payload"`
}

// Hub manages the set of connected WebSocket clients and pushes quote
// and market-state frames to the clients subscribed to them. It is the
// delivery side of the live repricing loop: the quote service hands it
// every asynchronous quote change and every merged state snapshot.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	logger     *slog.Logger
	mode       string
	startedAt  time.Time
}

// broadcastMsg carries a serialized frame along with its topic so the
// hub routes it only to subscribed clients.
type broadcastMsg struct {
	topic string
	data  []byte
}

// Config captures runtime metadata reported in hub status frames sent to
// clients on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// NewHub creates a WebSocket hub.
func NewHub(logger *slog.Logger, cfg Config) *Hub {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
		mode:       mode,
		startedAt:  startedAt,
	}
}

// BroadcastQuote pushes a fresh quote to every client subscribed to its
// session. Safe to call from any goroutine; drops the frame when the hub
// is saturated rather than blocking the pricing path.
func (h *Hub) BroadcastQuote(sessionID string, q domain.Quote) {
	h.publish(sessionTopic(sessionID), frame{Type: "quote", Payload: q})
}

// BroadcastState pushes a merged market state snapshot to every client
// subscribed to the market.
func (h *Hub) BroadcastState(address string, state domain.MarketState) {
	h.publish(marketTopic(address), frame{
		Type: "market_state",
		Payload: map[string]any{
			"market":      address,
			"supply_yes":  state.SupplyYes,
			"supply_no":   state.SupplyNo,
			"supply_draw": state.SupplyDraw,
			"reserve":     state.Reserve,
		},
	})
}

func (h *Hub) publish(topic string, f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("ws: marshal frame failed",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case h.broadcast <- broadcastMsg{topic: topic, data: data}:
	default:
		h.logger.Warn("ws: broadcast queue full, dropping frame",
			slog.String("topic", topic),
		)
	}
}

// Run starts the hub's main event loop. It handles client registration,
// unregistration, and frame routing; it exits when the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.topic) {
					select {
					case c.send <- msg.data:
					default:
						// Client's send buffer is full; drop the frame.
						h.logger.Warn("ws: dropping frame for slow client")
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and
// registers the client with the hub. Initial subscriptions can be passed
// as ?session=<id>&market=<address> query parameters.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}

	q := r.URL.Query()
	for _, id := range q["session"] {
		c.subs[sessionTopic(id)] = true
	}
	for _, addr := range q["market"] {
		c.subs[marketTopic(addr)] = true
	}

	h.register <- c
	c.sendInitialStatus()

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump reads messages from the WebSocket connection. The only
// inbound traffic is subscription management.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if jsonErr := json.Unmarshal(message, &sub); jsonErr == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

// handleSubscription processes subscribe/unsubscribe requests from the client.
func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var topics []string
	for _, id := range msg.Sessions {
		topics = append(topics, sessionTopic(id))
	}
	for _, addr := range msg.Markets {
		topics = append(topics, marketTopic(addr))
	}

	switch msg.Action {
	case "subscribe":
		for _, t := range topics {
			c.subs[t] = true
		}
	case "unsubscribe":
		for _, t := range topics {
			delete(c.subs, t)
		}
	}
}

// sendInitialStatus pushes a small status frame so clients can mark the
// connection healthy before any quote traffic flows.
func (c *client) sendInitialStatus() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(frame{
		Type: "status",
		Payload: map[string]any{
			"mode":           c.hub.mode,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// isSubscribed checks whether the client is subscribed to the given topic.
func (c *client) isSubscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[topic]
}

// writePump pumps frames from the hub to the WebSocket connection and
// sends periodic ping frames for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
