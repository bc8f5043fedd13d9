package obyte

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// wsCommand is a subscription command sent to the hub.
type wsCommand struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Address string `json:"address,omitempty"`
}

// wsMessage is an inbound hub frame carrying an AA state-var diff.
type wsMessage struct {
	Subject string    `json:"subject"`
	Address string    `json:"address"`
	Diff    StateVars `json:"diff"`
}

// StateSubscriber follows one market AA over the hub websocket. It keeps
// the full state-var map and applies incoming diffs on top, handing each
// merged snapshot to the registered handlers. Diffs for any address
// other than the currently tracked one are ignored, so a late frame from
// a previously tracked market can never leak into the current snapshot.
type StateSubscriber struct {
	wsURL  string
	source *Client

	mu      sync.RWMutex
	conn    *websocket.Conn
	closed  bool
	address string
	vars    StateVars

	handlerMu sync.RWMutex
	handlers  []domain.StateHandler

	// done is closed when the subscriber is shut down.
	done chan struct{}
}

// NewStateSubscriber creates a subscriber that uses source to load the
// base state-var snapshot each time tracking starts or the connection is
// re-established.
func NewStateSubscriber(wsURL string, source *Client) *StateSubscriber {
	return &StateSubscriber{
		wsURL:  wsURL,
		source: source,
		done:   make(chan struct{}),
	}
}

// Connect establishes the websocket connection to the hub.
func (s *StateSubscriber) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("obyte/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("obyte/ws: connect: %w", err)
	}

	s.conn = conn

	// Set up pong handler for keep-alive.
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go s.readLoop()
	go s.pingLoop()

	// Restore tracking after reconnect: refetch the base snapshot since
	// diffs were missed while disconnected.
	if s.address != "" {
		if err := s.trackLocked(ctx, s.address); err != nil {
			return fmt.Errorf("obyte/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Track switches the subscriber to the given market AA. The previous
// subscription, if any, is dropped; its in-flight diffs no longer apply.
func (s *StateSubscriber) Track(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("obyte/ws: not connected")
	}

	if s.address != "" && s.address != address {
		unsub := wsCommand{Type: "unsubscribe", Subject: "aa_state", Address: s.address}
		if err := s.sendCommand(unsub); err != nil {
			return fmt.Errorf("obyte/ws: unsubscribe %s: %w", s.address, err)
		}
	}

	return s.trackLocked(ctx, address)
}

// trackLocked loads the base snapshot and subscribes. Caller holds s.mu.
func (s *StateSubscriber) trackLocked(ctx context.Context, address string) error {
	vars, err := s.source.StateVars(ctx, address)
	if err != nil {
		return fmt.Errorf("obyte/ws: base snapshot %s: %w", address, err)
	}

	cmd := wsCommand{Type: "subscribe", Subject: "aa_state", Address: address}
	if err := s.sendCommand(cmd); err != nil {
		return fmt.Errorf("obyte/ws: subscribe %s: %w", address, err)
	}

	s.address = address
	s.vars = vars
	return nil
}

// OnState registers a handler called with every merged state snapshot of
// the tracked market.
func (s *StateSubscriber) OnState(handler domain.StateHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Close shuts down the connection and stops the read loop.
func (s *StateSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	close(s.done)

	if s.conn != nil {
		_ = s.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return s.conn.Close()
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// sendCommand sends a JSON command to the hub. Caller must hold s.mu.
func (s *StateSubscriber) sendCommand(cmd wsCommand) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *StateSubscriber) readLoop() {
	defer func() {
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}

			s.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		s.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep the websocket alive.
func (s *StateSubscriber) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()

			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage merges an AA state diff into the tracked snapshot and
// dispatches the result. Frames for other addresses are dropped.
func (s *StateSubscriber) handleMessage(raw []byte) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return // Silently drop unparseable messages.
	}
	if msg.Subject != "aa_state_changed" {
		return
	}

	s.mu.Lock()
	if msg.Address != s.address {
		s.mu.Unlock()
		return
	}
	s.vars = s.vars.Merge(msg.Diff)
	address, state := s.address, s.vars.ToDomainState()
	s.mu.Unlock()

	s.handlerMu.RLock()
	handlers := s.handlers
	s.handlerMu.RUnlock()

	for _, h := range handlers {
		h(address, state)
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the subscriber is closed.
func (s *StateSubscriber) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-s.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := s.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
