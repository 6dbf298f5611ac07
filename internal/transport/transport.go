// Package transport manages the single websocket connection to the board
// event channel: connect/disconnect lifecycle, room membership, and named
// event emission/subscription.
package transport

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Inbound event names.
const (
	EventReceiveMessage      = "receiveMessage"
	EventMessageEdited       = "messageEdited"
	EventMessageDeleted      = "messageDeleted"
	EventUserTyping          = "userTyping"
	EventUserJoined          = "userJoined"
	EventUserLeft            = "userLeft"
	EventUserPresenceChanged = "userPresenceChanged"
)

// Outbound event names.
const (
	EventJoinBoard  = "joinBoard"
	EventLeaveBoard = "leaveBoard"
	EventTyping     = "typing"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// frame is the wire envelope: every socket message is a named event with a
// raw JSON payload.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the raw payload of one inbound event. Handlers run on
// the read pump goroutine, so events are delivered strictly in arrival
// order; a handler must not block.
type Handler func(data json.RawMessage)

// Client is a connection-oriented client for the board event channel. It
// holds at most one joined board room at a time: joining a new board
// always leaves the previous one first. Clients are created with NewClient
// and owned by their creator; there is no process-wide instance.
type Client struct {
	url   string
	token string

	mu        sync.Mutex
	conn      *websocket.Conn
	send      chan frame
	done      chan struct{}
	joined    string
	handlers  map[string]Handler
	onConnect func()
	onError   func(error)
}

// NewClient creates a disconnected client for the given websocket URL. The
// token, when non-empty, is sent as a bearer Authorization header on dial.
func NewClient(url, token string) *Client {
	return &Client{
		url:      url,
		token:    token,
		handlers: make(map[string]Handler),
	}
}

// OnConnect registers a callback invoked after each successful connect.
// Callers use it to (re)join their board, since joins issued while
// disconnected are dropped.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

// OnError registers a callback for connection failures surfaced by the
// read pump. The client does not reconnect on its own.
func (c *Client) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// On registers the handler for an event name. Exactly one handler is
// active per event: re-subscribing replaces, it does not stack.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

// Off removes the handler for an event name.
func (c *Client) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

// Connect dials the event channel and starts the read and write pumps.
// Connecting an already-connected client is a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(c.url, header)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.conn = conn
	c.send = make(chan frame, sendBuffer)
	c.done = make(chan struct{})
	onConnect := c.onConnect
	c.mu.Unlock()

	go c.writePump(conn, c.send, c.done)
	go c.readPump(conn)

	if onConnect != nil {
		onConnect()
	}
	return nil
}

// Disconnect leaves the current room, if any, and closes the connection.
// Safe to call on an already-disconnected client.
func (c *Client) Disconnect() {
	c.LeaveBoard()

	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.send = nil
	c.done = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}
	// The write pump flushes, completes the close handshake and closes
	// the connection on its way out.
	close(done)
}

// JoinBoard joins the room for a board channel, leaving the previously
// joined one first. When the client is not connected the join is simply
// not sent; the caller retries from its OnConnect callback.
func (c *Client) JoinBoard(channelID string) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return
	}
	if c.joined == channelID {
		c.mu.Unlock()
		return
	}
	previous := c.joined
	c.joined = channelID
	send := c.send
	c.mu.Unlock()

	if previous != "" {
		c.enqueue(send, EventLeaveBoard, roomPayload{ChannelID: previous})
	}
	c.enqueue(send, EventJoinBoard, roomPayload{ChannelID: channelID})
}

// LeaveBoard leaves the currently joined room. No-op when not joined.
func (c *Client) LeaveBoard() {
	c.mu.Lock()
	if c.conn == nil || c.joined == "" {
		c.mu.Unlock()
		return
	}
	previous := c.joined
	c.joined = ""
	send := c.send
	c.mu.Unlock()

	c.enqueue(send, EventLeaveBoard, roomPayload{ChannelID: previous})
}

// Joined returns the currently joined channel, empty when none.
func (c *Client) Joined() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

// Emit sends a named event with a JSON payload. Dropped silently when the
// client is not connected: outbound signals on this path (typing) are
// real-time-only and carry no delivery guarantee.
func (c *Client) Emit(event string, payload any) {
	c.mu.Lock()
	send := c.send
	connected := c.conn != nil
	c.mu.Unlock()
	if !connected {
		return
	}
	c.enqueue(send, event, payload)
}

type roomPayload struct {
	ChannelID string `json:"channelId"`
}

func (c *Client) enqueue(send chan frame, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("transport: encode %s payload: %v", event, err)
		return
	}
	select {
	case send <- frame{Event: event, Data: data}:
	default:
		log.Printf("transport: send buffer full, dropping %s", event)
	}
}

// readPump reads frames until the connection fails, dispatching each to
// the registered handler on this goroutine.
func (c *Client) readPump(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		current := c.conn == conn
		if current {
			c.conn = nil
			c.joined = ""
			if c.done != nil {
				close(c.done)
			}
			c.send = nil
			c.done = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			onError := c.onError
			current := c.conn == conn
			c.mu.Unlock()
			if current && onError != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				onError(err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			log.Printf("transport: bad frame: %v", err)
			continue
		}

		c.mu.Lock()
		handler := c.handlers[f.Event]
		c.mu.Unlock()
		if handler != nil {
			handler(f.Data)
		}
	}
}

// writePump serializes outbound frames and keeps the connection alive
// with pings.
func (c *Client) writePump(conn *websocket.Conn, send chan frame, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case f := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(f)
			if err != nil {
				log.Printf("transport: encode frame: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-done:
			// Flush whatever is queued (a leaveBoard, typically) before
			// the close handshake.
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			for {
				select {
				case f := <-send:
					if data, err := json.Marshal(f); err == nil {
						conn.WriteMessage(websocket.TextMessage, data)
					}
					continue
				default:
				}
				break
			}
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
