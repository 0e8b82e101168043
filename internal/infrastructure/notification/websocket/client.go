package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/observability-core/internal/logging"
)

const (
	// Deadline for write operations
	writeWait = 10 * time.Second

	// How long to wait for a pong from the client
	pongWait = 60 * time.Second

	// Ping interval, must be shorter than pongWait
	pingPeriod = 54 * time.Second

	// Maximum inbound message size
	maxMessageSize = 512
)

const clientComponent = "websocket-client"

// Client is one connected WebSocket peer.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	send   chan Message
	logger *logging.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, logger *logging.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, 256),
		logger: logger,
	}
}

// ReadPump consumes inbound frames (mostly pongs) until the connection
// drops. Runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Error("WebSocket close error",
				logging.Context{Component: clientComponent}, nil, err)
		}
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error",
			logging.Context{Component: clientComponent}, nil, err)
		return
	}
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error",
					logging.Context{Component: clientComponent}, nil, err)
			}
			break
		}
	}
}

// WritePump ships queued messages and periodic pings to the client. Runs in
// its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Error("WebSocket close error",
				logging.Context{Component: clientComponent}, nil, err)
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error",
					logging.Context{Component: clientComponent}, nil, err)
				return
			}
			if !ok {
				// Hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Error("WebSocket close message error",
						logging.Context{Component: clientComponent}, nil, err)
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("WebSocket write error",
					logging.Context{Component: clientComponent}, nil, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error",
					logging.Context{Component: clientComponent}, nil, err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
