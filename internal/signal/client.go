package signal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrNoEndpoints is returned when every resolved endpoint fails to connect,
// or the resolved list was empty to begin with.
var ErrNoEndpoints = errors.New("no signaling endpoint reachable")

// Client manages the websocket connection to a rendezvous server.
type Client struct {
	conn     *websocket.Conn
	incoming chan *Message
	outgoing chan *Message
	done     chan struct{}
	closed   bool
}

// NewClient creates a signaling client. Connect must be called before use.
func NewClient() *Client {
	return &Client{
		incoming: make(chan *Message, 32),
		outgoing: make(chan *Message, 32),
		done:     make(chan struct{}, 1),
	}
}

// Connect tries each endpoint in order and keeps the first that answers.
func (c *Client) Connect(endpoints []string) error {
	var lastErr error
	for _, endpoint := range endpoints {
		conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
		if err != nil {
			slog.Debug("signaling endpoint failed", "endpoint", endpoint, "err", err)
			lastErr = err
			continue
		}

		c.conn = conn
		c.conn.SetReadLimit(maxMessageSize)
		c.conn.SetPongHandler(func(string) error {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		go c.readPump()
		go c.writePump()
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrNoEndpoints, lastErr)
	}
	return ErrNoEndpoints
}

// readPump reads messages from the websocket connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		c.incoming <- &msg
	}
}

// writePump writes messages to the websocket connection and sends periodic
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues a message for the server.
func (c *Client) Send(msg *Message) {
	select {
	case c.outgoing <- msg:
	case <-c.done:
	}
}

// Join announces this peer to the room.
func (c *Client) Join(roomID, peerID string) {
	c.Send(&Message{Type: MessageTypeJoinRoom, RoomID: roomID, PeerID: peerID})
}

// Incoming returns the channel of server messages. It is closed when the
// connection drops or Close is called.
func (c *Client) Incoming() <-chan *Message {
	return c.incoming
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
