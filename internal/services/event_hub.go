package services

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventHub fans payment lifecycle events out to connected websocket
// clients. A nil hub is valid and drops everything.
type EventHub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *logrus.Logger
}

// NewEventHub creates a new EventHub
func NewEventHub(logger *logrus.Logger) *EventHub {
	return &EventHub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// hubMessage is the wire envelope for pushed events.
type hubMessage struct {
	Subject string      `json:"subject"`
	Payload interface{} `json:"payload"`
}

// Register adds a connection to the broadcast set.
func (h *EventHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
	h.logger.WithField("clients", len(h.conns)).Debug("Websocket client connected")
}

// Unregister removes and closes a connection.
func (h *EventHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	conn.Close()
}

// Broadcast writes an event to every connected client. Connections
// that fail to accept the write are dropped; a slow or dead client
// must not block payment resolution.
func (h *EventHub) Broadcast(subject string, payload interface{}) {
	if h == nil {
		return
	}
	msg := hubMessage{Subject: subject, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.WithError(err).Debug("Dropping websocket client")
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
