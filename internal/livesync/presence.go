package livesync

import (
	"sort"
	"sync"
	"time"

	"boardchat/client/internal/models"
)

// TypingTracker holds the ephemeral presence state for the currently
// joined channel: who is typing and who is online. It is driven entirely
// by inbound events, with no polling and no timer for remote
// participants; a remote entry stays until a stop or leave event clears
// it. Events about the local participant are ignored.
type TypingTracker struct {
	mu      sync.Mutex
	localID string
	typing  map[string]models.TypingUser
	online  map[string]string
}

// NewTypingTracker creates a tracker that filters out the local
// participant's own events.
func NewTypingTracker(localID string) *TypingTracker {
	return &TypingTracker{
		localID: localID,
		typing:  make(map[string]models.TypingUser),
		online:  make(map[string]string),
	}
}

// SetTyping applies a remote typing event. Add is idempotent, not a
// counter: two starts from the same participant leave one entry. A stop
// for an absent participant is a no-op.
func (t *TypingTracker) SetTyping(user models.TypingUser, typing bool) {
	if user.ID == "" || user.ID == t.localID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if typing {
		t.typing[user.ID] = user
	} else {
		delete(t.typing, user.ID)
	}
}

// Typing returns the current typing set, ordered by name for stable
// display.
func (t *TypingTracker) Typing() []models.TypingUser {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := make([]models.TypingUser, 0, len(t.typing))
	for _, u := range t.typing {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users
}

// SetOnline records a participant as present in the channel. A departure
// also clears any stale typing entry for that participant.
func (t *TypingTracker) SetOnline(userID, username string, online bool) {
	if userID == "" || userID == t.localID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if online {
		t.online[userID] = username
	} else {
		delete(t.online, userID)
		delete(t.typing, userID)
	}
}

// Online returns the IDs of participants currently present, sorted.
func (t *TypingTracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.online))
	for id := range t.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset discards all presence state. Called when leaving a channel;
// nothing here persists.
func (t *TypingTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.typing = make(map[string]models.TypingUser)
	t.online = make(map[string]string)
}

// TypingEmitter debounces the local participant's outbound typing signal.
// The first keystroke emits a start immediately and arms an idle timer;
// each further keystroke rearms it; expiry emits a stop. Sending a message
// emits the stop immediately and cancels the timer.
type TypingEmitter struct {
	mu     sync.Mutex
	idle   time.Duration
	emit   func(typing bool)
	timer  *time.Timer
	active bool
}

// NewTypingEmitter creates an emitter with the given idle window. emit is
// called with true on start and false on stop.
func NewTypingEmitter(idle time.Duration, emit func(typing bool)) *TypingEmitter {
	return &TypingEmitter{idle: idle, emit: emit}
}

// Keystroke signals composing activity.
func (e *TypingEmitter) Keystroke() {
	e.mu.Lock()
	if !e.active {
		e.active = true
		e.mu.Unlock()
		e.emit(true)
		e.mu.Lock()
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.idle, e.expire)
	e.mu.Unlock()
}

// Stop emits the stop immediately, if a start is outstanding, and cancels
// the idle timer. Called on send and on channel leave.
func (e *TypingEmitter) Stop() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	wasActive := e.active
	e.active = false
	e.mu.Unlock()
	if wasActive {
		e.emit(false)
	}
}

func (e *TypingEmitter) expire() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	e.timer = nil
	e.mu.Unlock()
	e.emit(false)
}
