package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"boardchat/client/internal/cache"
	"boardchat/client/internal/config"
	"boardchat/client/internal/models"
	"boardchat/client/internal/rest"
	"boardchat/client/internal/transport"
	"boardchat/client/internal/wire"
)

// Transport is the event-channel surface the session consumes. Satisfied
// by *transport.Client; tests substitute their own.
type Transport interface {
	Connect() error
	Disconnect()
	JoinBoard(channelID string)
	LeaveBoard()
	Emit(event string, payload any)
	On(event string, h transport.Handler)
	Off(event string)
	OnConnect(fn func())
	OnError(fn func(error))
}

// API is the message CRUD surface the session consumes. Satisfied by
// *rest.Client.
type API interface {
	FetchMessages(ctx context.Context, channelID string, page, limit int) (rest.PageResponse, error)
	SendMessage(ctx context.Context, channelID, text, replyToID string, mentions []string) (json.RawMessage, error)
	EditMessage(ctx context.Context, channelID, messageID, text string) (json.RawMessage, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// Options configures a session.
type Options struct {
	Transport Transport
	API       API
	// LocalID is the local participant's ID, used for self-echo
	// suppression and for filtering own typing events.
	LocalID string
	// PageLimit is the page size for the initial fetch. Defaults to
	// config.DefaultPageLimit.
	PageLimit int
	// OnUpdate, when set, is invoked after every accepted mutation of the
	// message page or the presence state.
	OnUpdate func()
	// OnError, when set, receives transport connection errors. The
	// session does not reconnect on its own.
	OnError func(error)
}

// Session owns one channel's live synchronization: it seeds the message
// page over REST, binds the socket events through the wire normalizer
// into the reconciler, and tracks presence. At most one channel is
// synchronized at a time; joining a new channel tears the previous one
// down first.
type Session struct {
	transport Transport
	api       API
	store     *cache.Store
	rec       *Reconciler
	presence  *TypingTracker
	emitter   *TypingEmitter
	localID   string
	limit     int
	onUpdate  func()

	mu        sync.Mutex
	channelID string
	key       cache.Key
}

type typingSignal struct {
	IsTyping bool `json:"isTyping"`
}

// New creates a session and registers its event handlers on the
// transport. The caller still has to Connect the transport and join a
// channel.
func New(opts Options) *Session {
	limit := opts.PageLimit
	if limit <= 0 {
		limit = config.DefaultPageLimit
	}
	store := cache.NewStore()
	s := &Session{
		transport: opts.Transport,
		api:       opts.API,
		store:     store,
		rec:       NewReconciler(store, opts.LocalID),
		presence:  NewTypingTracker(opts.LocalID),
		localID:   opts.LocalID,
		limit:     limit,
		onUpdate:  opts.OnUpdate,
	}
	s.emitter = NewTypingEmitter(config.TypingIdleWindow, func(typing bool) {
		s.transport.Emit(transport.EventTyping, typingSignal{IsTyping: typing})
	})

	t := s.transport
	t.On(transport.EventReceiveMessage, s.handleReceive)
	t.On(transport.EventMessageEdited, s.handleEdited)
	t.On(transport.EventMessageDeleted, s.handleDeleted)
	t.On(transport.EventUserTyping, s.handleTyping)
	t.On(transport.EventUserJoined, s.handleJoined)
	t.On(transport.EventUserLeft, s.handleLeft)
	t.On(transport.EventUserPresenceChanged, s.handlePresence)
	t.OnConnect(s.handleConnect)
	if opts.OnError != nil {
		t.OnError(opts.OnError)
	}
	return s
}

// Connect dials the event channel. Once connected, the currently joined
// channel (if any) is rejoined from the connect callback.
func (s *Session) Connect() error {
	return s.transport.Connect()
}

// JoinChannel seeds the channel's first message page over REST and joins
// its room. Any previously joined channel is left first. When the fetch
// fails nothing is joined and the store is untouched.
func (s *Session) JoinChannel(ctx context.Context, channelID string) error {
	resp, err := s.api.FetchMessages(ctx, channelID, 1, s.limit)
	if err != nil {
		return fmt.Errorf("livesync: fetch messages: %w", err)
	}

	page := models.MessagePage{
		Messages:   make([]models.Message, 0, len(resp.Messages)),
		Pagination: resp.Pagination,
	}
	for _, raw := range resp.Messages {
		msg, err := wire.ParseMessage(raw)
		if err != nil {
			log.Printf("livesync: drop message from page fetch: %v", err)
			continue
		}
		page.Messages = append(page.Messages, msg)
	}
	if page.Pagination.Limit <= 0 {
		page.Pagination.Limit = s.limit
	}
	if page.Pagination.Page <= 0 {
		page.Pagination.Page = 1
	}
	page.Pagination.TotalPages = totalPages(page.Pagination.Total, page.Pagination.Limit)

	s.mu.Lock()
	previous := s.channelID
	previousKey := s.key
	s.channelID = channelID
	s.key = cache.PageKey(channelID, 1, s.limit)
	key := s.key
	s.mu.Unlock()

	if previous != "" && previous != channelID {
		s.emitter.Stop()
		s.presence.Reset()
		s.store.Drop(previousKey)
	}

	s.store.Put(key, page)
	s.transport.JoinBoard(channelID)
	s.notify()
	return nil
}

// LeaveChannel is the unconditional cleanup on navigation away: stop the
// local typing signal, leave the room, discard presence state and the
// cached page. Safe to call when no channel is joined.
func (s *Session) LeaveChannel() {
	s.mu.Lock()
	channelID := s.channelID
	key := s.key
	s.channelID = ""
	s.key = cache.Key{}
	s.mu.Unlock()

	if channelID == "" {
		return
	}
	s.emitter.Stop()
	s.transport.LeaveBoard()
	s.presence.Reset()
	s.store.Drop(key)
	s.notify()
}

// Close leaves the channel, removes the session's handlers and closes the
// connection.
func (s *Session) Close() {
	s.LeaveChannel()
	for _, event := range []string{
		transport.EventReceiveMessage,
		transport.EventMessageEdited,
		transport.EventMessageDeleted,
		transport.EventUserTyping,
		transport.EventUserJoined,
		transport.EventUserLeft,
		transport.EventUserPresenceChanged,
	} {
		s.transport.Off(event)
	}
	s.transport.Disconnect()
}

// SendMessage creates a message via REST and applies it locally as the
// authoritative insert. The echoed socket event is suppressed by the
// reconciler. Sending also stops the local typing signal immediately.
func (s *Session) SendMessage(ctx context.Context, text, replyToID string, mentions []string) (models.Message, error) {
	s.mu.Lock()
	channelID := s.channelID
	key := s.key
	s.mu.Unlock()
	if channelID == "" {
		return models.Message{}, fmt.Errorf("livesync: no channel joined")
	}

	s.emitter.Stop()

	raw, err := s.api.SendMessage(ctx, channelID, text, replyToID, mentions)
	if err != nil {
		return models.Message{}, err
	}
	msg, err := wire.ParseMessage(raw)
	if err != nil {
		return models.Message{}, fmt.Errorf("livesync: bad send response: %w", err)
	}
	s.rec.Insert(key, msg, OriginLocal)
	s.notify()
	return msg, nil
}

// EditMessage updates a message via REST, then applies the confirmed edit
// locally.
func (s *Session) EditMessage(ctx context.Context, messageID, text string) (models.Message, error) {
	s.mu.Lock()
	channelID := s.channelID
	key := s.key
	s.mu.Unlock()
	if channelID == "" {
		return models.Message{}, fmt.Errorf("livesync: no channel joined")
	}

	raw, err := s.api.EditMessage(ctx, channelID, messageID, text)
	if err != nil {
		return models.Message{}, err
	}
	msg, err := wire.ParseMessage(raw)
	if err != nil {
		return models.Message{}, fmt.Errorf("livesync: bad edit response: %w", err)
	}
	var editedAt time.Time
	if msg.EditedAt != nil {
		editedAt = *msg.EditedAt
	}
	s.rec.Edit(key, msg.ID, msg.Text, editedAt)
	s.notify()
	return msg, nil
}

// DeleteMessage removes a message via REST, then removes it locally.
func (s *Session) DeleteMessage(ctx context.Context, messageID string) error {
	s.mu.Lock()
	channelID := s.channelID
	key := s.key
	s.mu.Unlock()
	if channelID == "" {
		return fmt.Errorf("livesync: no channel joined")
	}

	if err := s.api.DeleteMessage(ctx, channelID, messageID); err != nil {
		return err
	}
	s.rec.Delete(key, messageID)
	s.notify()
	return nil
}

// Keystroke signals local composing activity; the emitter debounces the
// outbound typing events.
func (s *Session) Keystroke() {
	s.mu.Lock()
	joined := s.channelID != ""
	s.mu.Unlock()
	if joined {
		s.emitter.Keystroke()
	}
}

// Page returns the reconciled message page for the joined channel.
func (s *Session) Page() (models.MessagePage, bool) {
	s.mu.Lock()
	key := s.key
	joined := s.channelID != ""
	s.mu.Unlock()
	if !joined {
		return models.MessagePage{}, false
	}
	return s.store.Get(key)
}

// TypingUsers returns the remote participants currently typing.
func (s *Session) TypingUsers() []models.TypingUser {
	return s.presence.Typing()
}

// OnlineUsers returns the IDs of remote participants present in the
// channel.
func (s *Session) OnlineUsers() []string {
	return s.presence.Online()
}

func (s *Session) notify() {
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

func (s *Session) currentKey() (cache.Key, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.channelID
}

func (s *Session) handleConnect() {
	s.mu.Lock()
	channelID := s.channelID
	s.mu.Unlock()
	if channelID != "" {
		s.transport.JoinBoard(channelID)
	}
}

func (s *Session) handleReceive(data json.RawMessage) {
	msg, err := wire.ParseMessage(data)
	if err != nil {
		log.Printf("livesync: drop receiveMessage: %v", err)
		return
	}
	key, channelID := s.currentKey()
	if msg.ChannelID != "" && msg.ChannelID != channelID {
		return
	}
	s.rec.Insert(key, msg, OriginRemote)
	s.notify()
}

func (s *Session) handleEdited(data json.RawMessage) {
	msg, err := wire.ParseMessage(data)
	if err != nil {
		log.Printf("livesync: drop messageEdited: %v", err)
		return
	}
	key, channelID := s.currentKey()
	if msg.ChannelID != "" && msg.ChannelID != channelID {
		return
	}
	var editedAt time.Time
	if msg.EditedAt != nil {
		editedAt = *msg.EditedAt
	}
	s.rec.Edit(key, msg.ID, msg.Text, editedAt)
	s.notify()
}

func (s *Session) handleDeleted(data json.RawMessage) {
	ev, err := wire.ParseDeleted(data)
	if err != nil {
		log.Printf("livesync: drop messageDeleted: %v", err)
		return
	}
	key, channelID := s.currentKey()
	if ev.ChannelID != "" && ev.ChannelID != channelID {
		return
	}
	s.rec.Delete(key, ev.ID)
	s.notify()
}

func (s *Session) handleTyping(data json.RawMessage) {
	user, typing, err := wire.ParseTyping(data)
	if err != nil {
		log.Printf("livesync: drop userTyping: %v", err)
		return
	}
	s.presence.SetTyping(user, typing)
	s.notify()
}

func (s *Session) handleJoined(data json.RawMessage) {
	ev, err := wire.ParsePresence(data)
	if err != nil {
		log.Printf("livesync: drop userJoined: %v", err)
		return
	}
	s.presence.SetOnline(ev.UserID, ev.Username, true)
	s.notify()
}

func (s *Session) handleLeft(data json.RawMessage) {
	ev, err := wire.ParsePresence(data)
	if err != nil {
		log.Printf("livesync: drop userLeft: %v", err)
		return
	}
	s.presence.SetOnline(ev.UserID, ev.Username, false)
	s.notify()
}

func (s *Session) handlePresence(data json.RawMessage) {
	ev, err := wire.ParsePresence(data)
	if err != nil {
		log.Printf("livesync: drop userPresenceChanged: %v", err)
		return
	}
	s.presence.SetOnline(ev.UserID, ev.Username, ev.Status == wire.StatusOnline)
	s.notify()
}
