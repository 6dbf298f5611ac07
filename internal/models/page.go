package models

// Pagination mirrors the counters the list endpoint returns. Total is a
// best-effort count maintained locally on insert/remove; it is not
// re-derived from the server on every change.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// MessagePage is the cached, paginated slice of a channel's messages.
// Messages keep insertion order: the REST page load order first, then
// appended real-time arrivals. Within a page every message ID is unique.
type MessagePage struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

// TypingUser is one entry of a channel's ephemeral typing set.
type TypingUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
