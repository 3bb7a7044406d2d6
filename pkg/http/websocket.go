package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 60 * time.Second
)

// ProgressMessage is one stage update for a running analysis.
type ProgressMessage struct {
	AnalysisID string    `json:"analysis_id"`
	Stage      string    `json:"stage"`
	Percent    int       `json:"percent"`
	Timestamp  time.Time `json:"timestamp"`
}

// Client represents a connected WebSocket subscriber
type Client struct {
	hub        *ProgressHub
	conn       *websocket.Conn
	send       chan []byte
	logger     *logrus.Logger
	analysisID string
}

// ProgressHub fans analysis progress out to WebSocket clients. A client may
// subscribe to a single analysis ID or receive every update.
type ProgressHub struct {
	logger      *logrus.Logger
	clients     map[*Client]bool
	subscribers map[string]map[*Client]bool
	broadcast   chan *ProgressMessage
	register    chan *Client
	unregister  chan *Client
	running     bool
	mutex       sync.RWMutex
}

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all connections
		return true
	},
}

// NewProgressHub creates a hub; call Run to start it.
func NewProgressHub(logger *logrus.Logger) *ProgressHub {
	return &ProgressHub{
		logger:      logger,
		clients:     make(map[*Client]bool),
		subscribers: make(map[string]map[*Client]bool),
		broadcast:   make(chan *ProgressMessage, 64),
		register:    make(chan *Client, 8),
		unregister:  make(chan *Client, 8),
	}
}

// Run processes subscriptions and broadcasts until ctx is canceled
func (h *ProgressHub) Run(ctx context.Context) {
	h.logger.Info("Starting progress WebSocket hub")
	h.setRunning(true)
	defer h.setRunning(false)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Shutting down progress WebSocket hub")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			if client.analysisID != "" {
				if _, exists := h.subscribers[client.analysisID]; !exists {
					h.subscribers[client.analysisID] = make(map[*Client]bool)
				}
				h.subscribers[client.analysisID][client] = true
			}
			h.mutex.Unlock()
			h.logger.WithField("analysis_id", client.analysisID).Debug("Progress client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			h.removeClient(client)
			h.mutex.Unlock()
			h.logger.Debug("Progress client disconnected")

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal progress message")
				continue
			}

			h.mutex.Lock()
			if subscribers, exists := h.subscribers[message.AnalysisID]; exists {
				for client := range subscribers {
					select {
					case client.send <- data:
					default:
						h.removeClient(client)
					}
				}
			}
			for client := range h.clients {
				// Clients subscribed to a specific analysis already got it.
				if client.analysisID != "" {
					continue
				}
				select {
				case client.send <- data:
				default:
					h.removeClient(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// removeClient drops a client from both maps and closes its send channel.
// Callers must hold the mutex.
func (h *ProgressHub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	if client.analysisID != "" {
		if subscribers, exists := h.subscribers[client.analysisID]; exists {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.subscribers, client.analysisID)
			}
		}
	}
}

// BroadcastProgress queues one update for delivery. It never blocks the
// analysis; updates are dropped when the hub is stopped or saturated.
func (h *ProgressHub) BroadcastProgress(message *ProgressMessage) {
	if message == nil || !h.IsRunning() {
		return
	}
	select {
	case h.broadcast <- message:
	default:
	}
}

// ServeWs upgrades the connection and subscribes it to progress updates. An
// analysis_id query parameter narrows the subscription to one analysis.
func (h *ProgressHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if !h.IsRunning() {
		http.Error(w, "progress hub not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, 64),
		logger:     h.logger,
		analysisID: r.URL.Query().Get("analysis_id"),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// IsRunning returns true if the hub is processing events
func (h *ProgressHub) IsRunning() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.running
}

// ClientCount returns the number of connected clients
func (h *ProgressHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *ProgressHub) setRunning(running bool) {
	h.mutex.Lock()
	h.running = running
	h.mutex.Unlock()
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
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
				// The hub closed the channel
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

// readPump discards client frames and unregisters on disconnect
func (c *Client) readPump() {
	defer func() {
		if c.hub.IsRunning() {
			c.hub.unregister <- c
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
