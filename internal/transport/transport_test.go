package transport_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardchat/client/internal/transport"
)

type testFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wsServer is a minimal event-channel server: it records every frame the
// client sends and can push frames back.
type wsServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	frames   []testFrame
	dials    int
	auth     string
	conn     *websocket.Conn
	connOnce sync.WaitGroup
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{}
	s.connOnce.Add(1)
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.dials++
		first := s.dials == 1
		s.auth = r.Header.Get("Authorization")
		s.conn = conn
		s.mu.Unlock()
		if first {
			s.connOnce.Done()
		}
		for {
			var f testFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			s.mu.Lock()
			s.frames = append(s.frames, f)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// push sends a frame to the connected client.
func (s *wsServer) push(t *testing.T, event, data string) {
	t.Helper()
	s.connOnce.Wait()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NoError(t, conn.WriteJSON(testFrame{Event: event, Data: json.RawMessage(data)}))
}

func (s *wsServer) received() []testFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]testFrame(nil), s.frames...)
}

func (s *wsServer) waitForFrames(t *testing.T, n int) []testFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frames := s.received()
		if len(frames) >= n {
			return frames
		}
		time.Sleep(5 * time.Millisecond)
	}
	frames := s.received()
	require.Len(t, frames, n)
	return frames
}

func (s *wsServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func TestClient_ConnectIsIdempotent(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "token-123")
	defer client.Disconnect()

	require.NoError(t, client.Connect())
	require.NoError(t, client.Connect())

	server.connOnce.Wait()
	assert.Equal(t, 1, server.dialCount(), "second Connect must be a no-op")

	server.mu.Lock()
	auth := server.auth
	server.mu.Unlock()
	assert.Equal(t, "Bearer token-123", auth)
}

func TestClient_JoinBoardSendsRoomEvents(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "")
	defer client.Disconnect()
	require.NoError(t, client.Connect())

	client.JoinBoard("b1")
	frames := server.waitForFrames(t, 1)
	assert.Equal(t, transport.EventJoinBoard, frames[0].Event)
	assert.JSONEq(t, `{"channelId": "b1"}`, string(frames[0].Data))
	assert.Equal(t, "b1", client.Joined())

	// Joining the same board again sends nothing.
	client.JoinBoard("b1")

	// Joining another board leaves the first one before joining.
	client.JoinBoard("b2")
	frames = server.waitForFrames(t, 3)
	assert.Equal(t, transport.EventLeaveBoard, frames[1].Event)
	assert.JSONEq(t, `{"channelId": "b1"}`, string(frames[1].Data))
	assert.Equal(t, transport.EventJoinBoard, frames[2].Event)
	assert.JSONEq(t, `{"channelId": "b2"}`, string(frames[2].Data))
	assert.Equal(t, "b2", client.Joined())
}

func TestClient_JoinWhileDisconnectedIsDropped(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "")

	client.JoinBoard("b1")

	assert.Empty(t, client.Joined(), "join without a connection is not queued")
	assert.Equal(t, 0, server.dialCount())
}

func TestClient_LeaveBoardIsNoopWhenNotJoined(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "")
	defer client.Disconnect()
	require.NoError(t, client.Connect())

	client.LeaveBoard()
	client.Emit(transport.EventTyping, map[string]bool{"isTyping": true})

	frames := server.waitForFrames(t, 1)
	assert.Equal(t, transport.EventTyping, frames[0].Event, "no leaveBoard frame was sent")
}

func TestClient_DispatchesToRegisteredHandler(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "")
	defer client.Disconnect()

	got := make(chan string, 4)
	client.On(transport.EventReceiveMessage, func(data json.RawMessage) {
		got <- string(data)
	})
	require.NoError(t, client.Connect())

	server.push(t, transport.EventReceiveMessage, `{"id": "m1"}`)

	select {
	case data := <-got:
		assert.JSONEq(t, `{"id": "m1"}`, data)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestClient_ResubscribeReplacesHandler(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "")
	defer client.Disconnect()

	first := make(chan struct{}, 4)
	second := make(chan struct{}, 4)
	client.On(transport.EventUserTyping, func(json.RawMessage) { first <- struct{}{} })
	client.On(transport.EventUserTyping, func(json.RawMessage) { second <- struct{}{} })
	require.NoError(t, client.Connect())

	server.push(t, transport.EventUserTyping, `{}`)

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement handler was not invoked")
	}
	select {
	case <-first:
		t.Fatal("replaced handler must not fire")
	default:
	}
}

func TestClient_OffRemovesHandler(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "")
	defer client.Disconnect()

	got := make(chan struct{}, 4)
	client.On(transport.EventUserTyping, func(json.RawMessage) { got <- struct{}{} })
	client.Off(transport.EventUserTyping)
	require.NoError(t, client.Connect())

	server.push(t, transport.EventUserTyping, `{}`)
	// Push a second, handled event to be sure the first was processed.
	client.On(transport.EventUserJoined, func(json.RawMessage) { got <- struct{}{} })
	server.push(t, transport.EventUserJoined, `{}`)

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("sentinel handler was not invoked")
	}
	assert.Empty(t, got, "removed handler must not fire")
}

func TestClient_DisconnectLeavesRoomFirst(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "")
	require.NoError(t, client.Connect())
	client.JoinBoard("b1")
	server.waitForFrames(t, 1)

	client.Disconnect()

	frames := server.waitForFrames(t, 2)
	assert.Equal(t, transport.EventLeaveBoard, frames[1].Event)
	assert.Empty(t, client.Joined())

	// Disconnecting again is safe.
	client.Disconnect()
}

func TestClient_EmitWhileDisconnectedIsDropped(t *testing.T) {
	server := newWSServer(t)
	client := transport.NewClient(server.url(), "")

	client.Emit(transport.EventTyping, map[string]bool{"isTyping": true})

	assert.Equal(t, 0, server.dialCount())
}
