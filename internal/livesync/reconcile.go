// Package livesync keeps a cached, paginated message list consistent with
// REST-confirmed local mutations and the live socket event stream.
package livesync

import (
	"time"

	"boardchat/client/internal/cache"
	"boardchat/client/internal/models"
)

// Origin says which path an insert arrived on. The self-echo check only
// applies to the real-time path: the local optimistic insert from the REST
// call is authoritative, and the echoed socket event would duplicate it.
type Origin int

const (
	// OriginLocal is a REST-confirmed mutation by the local participant.
	OriginLocal Origin = iota
	// OriginRemote is a socket-delivered event from the event channel.
	OriginRemote
)

// Reconciler applies normalized message events to cached pages. Every
// operation is idempotent and degrades to a no-op on unknown targets; no
// operation ever panics or creates a page as a side effect. It is the only
// writer of the store once a page has been seeded.
type Reconciler struct {
	store   *cache.Store
	localID string
}

// NewReconciler creates a reconciler writing through the given store on
// behalf of the local participant.
func NewReconciler(store *cache.Store, localID string) *Reconciler {
	return &Reconciler{store: store, localID: localID}
}

// Insert appends a new message to the page under key. A remote-origin
// insert whose sender is the local participant is discarded: it is the
// echo of a send already applied through the local path. An insert whose
// ID is already present is discarded too.
func (r *Reconciler) Insert(key cache.Key, msg models.Message, origin Origin) {
	if origin == OriginRemote && msg.SenderID == r.localID {
		return
	}
	r.store.Mutate(key, func(page models.MessagePage) models.MessagePage {
		return insertMessage(page, msg)
	})
}

// Edit replaces the text of the message with the given ID, marking it
// edited. Position is unchanged; edits never reorder. A zero editedAt is
// stamped with the current time. Unknown IDs are a no-op: edit events for
// messages outside the loaded page are ignored.
func (r *Reconciler) Edit(key cache.Key, id, text string, editedAt time.Time) {
	if editedAt.IsZero() {
		editedAt = time.Now()
	}
	r.store.Mutate(key, func(page models.MessagePage) models.MessagePage {
		return editMessage(page, id, text, editedAt)
	})
}

// Delete removes the message with the given ID. Hard removal, not a
// tombstone; unknown IDs are a no-op.
func (r *Reconciler) Delete(key cache.Key, id string) {
	r.store.Mutate(key, func(page models.MessagePage) models.MessagePage {
		return deleteMessage(page, id)
	})
}

func insertMessage(page models.MessagePage, msg models.Message) models.MessagePage {
	for _, m := range page.Messages {
		if m.ID == msg.ID {
			return page
		}
	}
	messages := make([]models.Message, 0, len(page.Messages)+1)
	messages = append(messages, page.Messages...)
	messages = append(messages, msg)
	page.Messages = messages
	page.Pagination.Total++
	page.Pagination.TotalPages = totalPages(page.Pagination.Total, page.Pagination.Limit)
	return page
}

func editMessage(page models.MessagePage, id, text string, editedAt time.Time) models.MessagePage {
	index := -1
	for i, m := range page.Messages {
		if m.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return page
	}
	messages := make([]models.Message, len(page.Messages))
	copy(messages, page.Messages)
	messages[index].Text = text
	messages[index].IsEdited = true
	messages[index].EditedAt = &editedAt
	page.Messages = messages
	return page
}

func deleteMessage(page models.MessagePage, id string) models.MessagePage {
	index := -1
	for i, m := range page.Messages {
		if m.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return page
	}
	messages := make([]models.Message, 0, len(page.Messages)-1)
	messages = append(messages, page.Messages[:index]...)
	messages = append(messages, page.Messages[index+1:]...)
	page.Messages = messages
	if page.Pagination.Total > 0 {
		page.Pagination.Total--
	}
	page.Pagination.TotalPages = totalPages(page.Pagination.Total, page.Pagination.Limit)
	return page
}

// totalPages is ceil(total/limit), with a zero guard for pages seeded
// before any pagination metadata arrived.
func totalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
