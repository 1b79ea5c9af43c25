package hub

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnYiFan117/chat-room/internal/room"
	"github.com/AnYiFan117/chat-room/internal/signal"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP payloads fit easily.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection (one peer).
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Send is the buffered outbound queue drained by WritePump. The hub
	// closes it when the client unregisters.
	Send chan *signal.Message

	roomID room.ID
	peerID string
}

func (c *Client) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// send queues a message without ever blocking the hub loop: a client whose
// queue is full is too far behind to be useful and loses the message.
func (c *Client) send(msg *signal.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("dropping message for slow client", "remote", c.remoteAddr())
	}
}

func (c *Client) sendError(text string) {
	c.send(&signal.Message{
		Type:    signal.MessageTypeError,
		Payload: signal.ErrorPayload{Error: text},
	})
}

// ReadPump pumps messages from the websocket connection to the hub. Run it
// in a per-connection goroutine; it is the connection's only reader.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg signal.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "remote", c.remoteAddr(), "err", err)
			}
			break
		}

		c.hub.inbound <- &inbound{msg: &msg, client: c}
	}
}

// WritePump pumps messages from the hub to the websocket connection. Run it
// in a per-connection goroutine; it is the connection's only writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				slog.Debug("websocket write error", "remote", c.remoteAddr(), "err", err)
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
