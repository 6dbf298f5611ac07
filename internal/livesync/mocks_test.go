package livesync_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"boardchat/client/internal/rest"
	"boardchat/client/internal/transport"
)

// MockAPI is a testify mock of the livesync.API surface.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) FetchMessages(ctx context.Context, channelID string, page, limit int) (rest.PageResponse, error) {
	args := m.Called(channelID, page, limit)
	return args.Get(0).(rest.PageResponse), args.Error(1)
}

func (m *MockAPI) SendMessage(ctx context.Context, channelID, text, replyToID string, mentions []string) (json.RawMessage, error) {
	args := m.Called(channelID, text, replyToID, mentions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockAPI) EditMessage(ctx context.Context, channelID, messageID, text string) (json.RawMessage, error) {
	args := m.Called(channelID, messageID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockAPI) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	args := m.Called(channelID, messageID)
	return args.Error(0)
}

// emittedEvent is one outbound event recorded by the fake transport.
type emittedEvent struct {
	event   string
	payload any
}

// fakeTransport is an in-memory stand-in for the websocket client. Tests
// deliver inbound events by calling the registered handlers directly,
// which also mirrors the real single-goroutine dispatch.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	joined    string
	joins     []string
	leaves    []string
	emitted   []emittedEvent
	handlers  map[string]transport.Handler
	onConnect func()
	onError   func(error)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]transport.Handler)}
}

func (f *fakeTransport) Connect() error {
	f.mu.Lock()
	already := f.connected
	f.connected = true
	onConnect := f.onConnect
	f.mu.Unlock()
	if !already && onConnect != nil {
		onConnect()
	}
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.LeaveBoard()
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeTransport) JoinBoard(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected || f.joined == channelID {
		return
	}
	if f.joined != "" {
		f.leaves = append(f.leaves, f.joined)
	}
	f.joined = channelID
	f.joins = append(f.joins, channelID)
}

func (f *fakeTransport) LeaveBoard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected || f.joined == "" {
		return
	}
	f.leaves = append(f.leaves, f.joined)
	f.joined = ""
}

func (f *fakeTransport) Emit(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return
	}
	f.emitted = append(f.emitted, emittedEvent{event: event, payload: payload})
}

func (f *fakeTransport) On(event string, h transport.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = h
}

func (f *fakeTransport) Off(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, event)
}

func (f *fakeTransport) OnConnect(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onConnect = fn
}

func (f *fakeTransport) OnError(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onError = fn
}

// deliver feeds one inbound event through the registered handler.
func (f *fakeTransport) deliver(event, payload string) {
	f.mu.Lock()
	h := f.handlers[event]
	f.mu.Unlock()
	if h != nil {
		h(json.RawMessage(payload))
	}
}

func (f *fakeTransport) emittedEvents() []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emittedEvent(nil), f.emitted...)
}

func (f *fakeTransport) joinedBoards() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.joins...)
}

func (f *fakeTransport) leftBoards() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.leaves...)
}
