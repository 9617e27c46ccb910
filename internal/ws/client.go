package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/piyushgupta53/termbridge/internal/types"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Outbound buffer; a client that cannot drain this is dropped
	sendBufferSize = 256
)

// Client represents one WebSocket connection to the gateway
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	id         string
	remoteAddr string

	send      chan *types.Message
	closeOnce sync.Once
}

// NewClient creates a gateway client for an upgraded connection
func NewClient(conn *websocket.Conn, hub *Hub, clientID string) *Client {
	return &Client{
		conn:       conn,
		hub:        hub,
		id:         clientID,
		remoteAddr: conn.RemoteAddr().String(),
		send:       make(chan *types.Message, sendBufferSize),
	}
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// Send queues a message for delivery. A client whose buffer is full is
// considered stuck and its connection is dropped.
func (c *Client) Send(msg *types.Message) {
	select {
	case c.send <- msg:
	default:
		logrus.WithFields(logrus.Fields{
			"connection_id": c.id,
			"remote_addr":   c.remoteAddr,
		}).Warn("Client send buffer full, dropping connection")
		c.conn.Close()
	}
}

// Close shuts the outbound channel down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// readPump pumps messages from the WebSocket connection into the hub. The
// pump exiting, for whatever reason, is what signals the disconnect.
func (c *Client) readPump() {
	defer func() {
		c.hub.OnDisconnect(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	logrus.WithFields(logrus.Fields{
		"connection_id": c.id,
		"remote_addr":   c.remoteAddr,
	}).Info("Starting WebSocket read pump")

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("connection_id", c.id).Error("WebSocket connection error")
			}
			return
		}

		msg, err := types.FromJSON(messageData)
		if err != nil {
			logrus.WithError(err).WithField("connection_id", c.id).Warn("Failed to parse gateway message")
			continue
		}

		if !msg.IsClientMessage() {
			logrus.WithFields(logrus.Fields{
				"connection_id": c.id,
				"message_type":  msg.Type,
			}).Warn("Dropping message of non-client type")
			continue
		}

		c.hub.OnMessage(c.id, msg)
	}
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
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the connection
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			messageData, err := msg.ToJSON()
			if err != nil {
				logrus.WithError(err).WithField("connection_id", c.id).Error("Failed to marshal message")
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, messageData); err != nil {
				logrus.WithError(err).WithField("connection_id", c.id).Debug("Failed to write WebSocket message")
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
