package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be less than pongWait

	// Profile subscribers only receive; inbound frames are control traffic
	maxMessageSize = 512

	sendBufferSize = 64
)

var _ Subscriber = (*Client)(nil)

// ErrSendBufferFull is returned when a client does not drain its queue fast enough
var ErrSendBufferFull = errors.New("client send buffer full")

// Client is one subscriber connection of a profile
type Client struct {
	id        string
	profileID int64
	conn      *websocket.Conn
	hub       *Hub

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client for a connection opened by profileID
func NewClient(conn *websocket.Conn, profileID int64, hub *Hub) *Client {
	return &Client{
		id:        uuid.New().String(),
		profileID: profileID,
		conn:      conn,
		hub:       hub,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() string {
	return c.id
}

// ProfileID returns the ID of the profile that opened the connection
func (c *Client) ProfileID() int64 {
	return c.profileID
}

// Send queues a message without blocking
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops the pumps and closes the connection. It is idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// IsClosed reports whether Close has been called
func (c *Client) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Run registers the client with its hub and starts the read and write pumps
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// readPump keeps the read deadline fresh and detects disconnects
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Int64("profile_id", c.profileID).
					Msg("WebSocket unexpected close")
			}
			return
		}
	}
}

// writePump delivers queued events and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Int64("profile_id", c.profileID).
					Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
