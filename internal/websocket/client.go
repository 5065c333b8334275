package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ai-mail-workspace-be/pkg/chatstream"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	sendBuffer   = 256
	pendingChats = 8
)

var errClientClosed = errors.New("websocket client closed")

type clientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string

	// Buffered channel of outbound frames.
	send chan []byte
	// Chat requests waiting for the chat worker, in arrival order.
	chats chan json.RawMessage

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		send:   make(chan []byte, sendBuffer),
		chats:  make(chan json.RawMessage, pendingChats),
		done:   make(chan struct{}),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue never blocks; false means the frame was dropped.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Send implements chatstream.Sender. It waits for buffer space so a chat
// stream is never silently truncated.
func (c *Client) Send(ctx context.Context, ev chatstream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch routes one inbound frame. Anything but a chat_request is answered
// with an invalid-event error.
func (c *Client) dispatch(ctx context.Context, raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != chatstream.ClientChatRequest {
		_ = c.Send(ctx, chatstream.InvalidClientEvent())
		return
	}
	select {
	case c.chats <- frame.Payload:
	case <-c.done:
	case <-ctx.Done():
	}
}

// chatWorker runs queued chat requests one at a time.
func (c *Client) chatWorker(ctx context.Context, session *chatstream.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case payload := <-c.chats:
			session.HandleChatRequest(ctx, c.UserID, payload)
		}
	}
}

// readPump pumps messages from the websocket connection to the chat worker.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.close()
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			return
		}
		c.dispatch(ctx, message)
	}
}

// writePump pumps frames from the send buffer to the websocket connection,
// one text message per frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
