package collab

import (
	"sync"
	"time"

	"github.com/codraft/codraft/pkg/logger"
	"github.com/gorilla/websocket"
)

// Client is one websocket connection with its authenticated identity. A single
// connection may join several document sessions over its lifetime.
type Client struct {
	ID       string
	Username string

	conn *websocket.Conn
	hub  *Hub

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newClient(id, username string, conn *websocket.Conn, hub *Hub, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		ID:       id,
		Username: username,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, sendBuffer),
		closed:   make(chan struct{}),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// trySend queues a frame without blocking. A full buffer means the peer is
// slow or dead; the frame is dropped and the caller decides whether to evict.
func (c *Client) trySend(b []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// ReadPump pulls frames off the websocket and feeds them to the hub
// dispatcher. It owns the connection's read side and triggers unregistration
// on any read failure, including normal closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warnf("websocket read error (client %s): %v", c.ID, err)
			}
			break
		}
		c.hub.Dispatch(c, message)
	}
}

// WritePump drains the send buffer onto the websocket and keeps the
// connection alive with pings. One writer goroutine per connection means a
// slow peer never blocks anyone else's send path.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
