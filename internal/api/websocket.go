package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openhomelab/webthingd/internal/infrastructure/config"
	"github.com/openhomelab/webthingd/internal/infrastructure/logging"
	"github.com/openhomelab/webthingd/internal/thing"
)

// sendBufferSize is the per-connection outbound queue depth. A subscriber
// that falls this far behind is disconnected rather than allowed to stall
// the producer.
const sendBufferSize = 64

// writeWait is the deadline applied to each outbound frame.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local-network device API; cross-origin browser pages are expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// isWebSocketRequest reports whether the request asks for a protocol upgrade.
func isWebSocketRequest(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// Hub tracks every live push connection so shutdown can close them all.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes a connection. Safe to call more than once.
func (h *Hub) Unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// closeAll tears down every connection.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// wsClient is one push-channel connection bound to a single thing. It
// implements thing.Subscriber: Send queues without blocking and gives up on
// the connection when the queue is full.
type wsClient struct {
	hub    *Hub
	thing  *thing.Thing
	conn   *websocket.Conn
	logger *logging.Logger

	send      chan []byte
	closeOnce sync.Once
}

// Send implements thing.Subscriber. It never blocks: a full queue means the
// peer is not draining, so the connection is closed instead.
func (c *wsClient) Send(data []byte) {
	defer func() {
		// Send may race with close; a send on the closed channel is
		// swallowed here rather than crashing the broadcaster.
		recover() //nolint:errcheck
	}()
	select {
	case c.send <- data:
	default:
		c.logger.Warn("push channel backed up, dropping connection",
			"thing", c.thing.ID(),
			"remote", c.conn.RemoteAddr().String(),
		)
		c.close()
	}
}

// close unsubscribes and tears the connection down. Idempotent.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		c.thing.Unsubscribe(c)
		c.hub.Unregister(c)
		close(c.send)
		//nolint:errcheck
		c.conn.Close()
	})
}

// handleSubscribe upgrades the request into a push channel for the thing.
func (s *Server) handleSubscribe(t *thing.Thing, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "thing", t.ID(), "error", err)
		return
	}

	c := &wsClient{
		hub:    s.hub,
		thing:  t,
		conn:   conn,
		logger: s.logger,
		send:   make(chan []byte, sendBufferSize),
	}

	s.hub.Register(c)
	t.Subscribe(c)

	s.logger.Debug("push channel opened",
		"thing", t.ID(),
		"remote", conn.RemoteAddr().String(),
	)

	go c.writePump(time.Duration(s.wsCfg.PingInterval) * time.Second)
	go c.readPump(int64(s.wsCfg.MaxMessageSize), time.Duration(s.wsCfg.PongTimeout)*time.Second)
}

// readPump consumes inbound messages until the connection drops. Inbound
// messages mirror the REST operations: setProperty, requestAction, addEvent.
func (c *wsClient) readPump(maxMessageSize int64, pongTimeout time.Duration) {
	defer c.close()

	if maxMessageSize > 0 {
		c.conn.SetReadLimit(maxMessageSize)
	}
	deadline := func() error {
		if pongTimeout <= 0 {
			return nil
		}
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout * 6))
	}
	//nolint:errcheck
	deadline()
	c.conn.SetPongHandler(func(string) error { return deadline() })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("push channel read error", "thing", c.thing.ID(), "error", err)
			}
			return
		}
		c.handleInbound(raw)
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with periodic pings.
func (c *wsClient) writePump(pingInterval time.Duration) {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			//nolint:errcheck
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint:errcheck
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// inboundMessage is the envelope clients send over the push channel.
type inboundMessage struct {
	MessageType string          `json:"messageType"`
	Data        json.RawMessage `json:"data"`
}

// handleInbound dispatches one client message. Failures are reported back
// over the channel as error messages; the connection stays open.
func (c *wsClient) handleInbound(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("400 Bad Request", "Parsing request failed")
		return
	}

	switch msg.MessageType {
	case "setProperty":
		c.inboundSetProperty(msg.Data)
	case "requestAction":
		c.inboundRequestAction(msg.Data)
	case "addEvent":
		c.inboundAddEvent(msg.Data)
	default:
		c.sendError("400 Bad Request", "Unknown messageType: "+msg.MessageType)
	}
}

// inboundSetProperty applies {"name": value} writes.
func (c *wsClient) inboundSetProperty(data json.RawMessage) {
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		c.sendError("400 Bad Request", "Parsing request failed")
		return
	}
	for name, v := range props {
		if err := c.thing.SetProperty(name, v); err != nil {
			c.sendError("400 Bad Request", err.Error())
		}
	}
}

// inboundRequestAction schedules actions from {"name": {"input": ...}}.
func (c *wsClient) inboundRequestAction(data json.RawMessage) {
	var actions map[string]struct {
		Input any `json:"input"`
	}
	if err := json.Unmarshal(data, &actions); err != nil {
		c.sendError("400 Bad Request", "Parsing request failed")
		return
	}
	for name, req := range actions {
		if _, err := c.thing.RequestAction(name, req.Input); err != nil {
			c.sendError("400 Bad Request", err.Error())
		}
	}
}

// inboundAddEvent emits events from {"name": data}.
func (c *wsClient) inboundAddEvent(data json.RawMessage) {
	var events map[string]any
	if err := json.Unmarshal(data, &events); err != nil {
		c.sendError("400 Bad Request", "Parsing request failed")
		return
	}
	for name, payload := range events {
		if err := c.thing.AddEvent(name, payload); err != nil {
			c.sendError("400 Bad Request", err.Error())
		}
	}
}

// sendError pushes an error message back to this client only.
func (c *wsClient) sendError(status, message string) {
	data, err := json.Marshal(thing.Message{
		MessageType: thing.MessageError,
		Data: map[string]any{
			"status":  status,
			"message": message,
		},
	})
	if err != nil {
		return
	}
	c.Send(data)
}
