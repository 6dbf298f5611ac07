package wire

import (
	"encoding/json"

	"boardchat/client/internal/models"
)

// TypingEvent is the inbound userTyping payload.
type TypingEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// ParseTyping validates a userTyping payload. Rejected when no user ID is
// present.
func ParseTyping(data []byte) (models.TypingUser, bool, error) {
	var raw TypingEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.TypingUser{}, false, ErrMalformed
	}
	if raw.UserID == "" {
		return models.TypingUser{}, false, ErrMissingSender
	}
	return models.TypingUser{ID: raw.UserID, Name: raw.Username}, raw.IsTyping, nil
}

// DeletedEvent is the inbound messageDeleted payload. Deletes travel as a
// bare reference, not a full message.
type DeletedEvent struct {
	ID        string `json:"id"`
	ChannelID string `json:"channelId"`
}

// ParseDeleted validates a messageDeleted payload.
func ParseDeleted(data []byte) (DeletedEvent, error) {
	var raw DeletedEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return DeletedEvent{}, ErrMalformed
	}
	if raw.ID == "" {
		return DeletedEvent{}, ErrMissingID
	}
	return raw, nil
}

// PresenceEvent covers userJoined, userLeft and userPresenceChanged. The
// Status field is only set on userPresenceChanged.
type PresenceEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// Presence status values the server emits.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ParsePresence validates a presence payload.
func ParsePresence(data []byte) (PresenceEvent, error) {
	var raw PresenceEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return PresenceEvent{}, ErrMalformed
	}
	if raw.UserID == "" {
		return PresenceEvent{}, ErrMissingSender
	}
	return raw, nil
}
