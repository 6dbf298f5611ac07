package cache

import (
	"sync"

	"boardchat/client/internal/models"
)

// Key addresses one cached message page. The same key construction must be
// used by readers and by the reconciler's writes; a mismatch would make
// reconciliation silently miss the page, so the key is a comparable struct
// built only through PageKey.
type Key struct {
	ChannelID string
	Page      int
	Limit     int
}

// PageKey builds the cache key for a channel's message page.
func PageKey(channelID string, page, limit int) Key {
	return Key{ChannelID: channelID, Page: page, Limit: limit}
}

// Store holds the canonical per-channel message pages. It is a plain
// in-memory store with no network access; the reconciler is its only
// writer once a page has been seeded.
type Store struct {
	mu    sync.RWMutex
	pages map[Key]models.MessagePage
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{pages: make(map[Key]models.MessagePage)}
}

// Get returns the page for key, if present.
func (s *Store) Get(key Key) (models.MessagePage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[key]
	return page, ok
}

// Put replaces the page for key wholesale. Used after a fresh fetch.
func (s *Store) Put(key Key, page models.MessagePage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[key] = page
}

// Mutate applies fn to the existing page under key and stores the result.
// If no page exists the mutation is a no-op and Mutate reports false:
// there is nothing to reconcile into, and no page is created as a side
// effect.
func (s *Store) Mutate(key Key, fn func(models.MessagePage) models.MessagePage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[key]
	if !ok {
		return false
	}
	s.pages[key] = fn(page)
	return true
}

// Drop discards the page for key. Called when the channel is no longer
// observed; the store keeps nothing beyond the process's cache lifetime.
func (s *Store) Drop(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, key)
}
