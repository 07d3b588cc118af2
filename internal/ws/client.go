package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 16
	sendBuffer     = 256
)

// Client is one WebSocket connection's server-side half: the socket,
// its outbound queue and the identity it announced on join. It
// implements game.Connection so the registry can push to it without
// knowing about websockets.
type Client struct {
	relay *Relay
	conn  *websocket.Conn
	send  chan []byte

	mu     sync.Mutex
	userID string
	roomID string
	closed bool
}

func newClient(relay *Relay, conn *websocket.Conn) *Client {
	return &Client{
		relay: relay,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
	}
}

// Deliver queues an envelope without blocking. A slow or broken socket
// just drops the frame; it must never stall the sender's request.
func (c *Client) Deliver(event string, data interface{}) bool {
	raw, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("[WS] marshal %s failed: %v", event, err)
		return false
	}
	return c.deliverRaw(raw)
}

func (c *Client) deliverRaw(raw []byte) bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	select {
	case c.send <- raw:
		return true
	default:
		log.Printf("[WS] send buffer full for %s, dropping frame", c.describe())
		return false
	}
}

// Close shuts the socket down; the read pump's exit runs the leave
// path.
func (c *Client) Close() {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()
	if already {
		return
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.conn.Close()
}

// Open reports whether the socket is still usable.
func (c *Client) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Client) session() (userID, roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.roomID
}

func (c *Client) setSession(userID, roomID string) {
	c.mu.Lock()
	c.userID = userID
	c.roomID = roomID
	c.mu.Unlock()
}

func (c *Client) describe() string {
	userID, roomID := c.session()
	if userID == "" {
		return c.conn.RemoteAddr().String()
	}
	return userID + "@" + roomID
}

// readPump runs the connection's receive loop: parse the envelope,
// dispatch through the middleware chain, repeat until the socket dies.
// Connection lifecycle: Connected -> Joined(room) -> any number of
// strike/turn cycles -> Closed.
func (c *Client) readPump() {
	defer func() {
		c.relay.dropClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for %s: %v", c.describe(), err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			// Protocol error: logged and dropped, no reply.
			log.Printf("[WS] unparseable envelope from %s", c.describe())
			continue
		}
		c.relay.dispatch(c, env)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings.
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for %s: %v", c.describe(), err)
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
