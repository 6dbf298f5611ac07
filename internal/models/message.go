package models

import "time"

// Sender identifies the authoring participant of a message, with the
// display name split into its two parts as the rendering layer expects.
type Sender struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ReplyRef is a single-level reference to another message in the same
// channel. The referenced message's summary is denormalized here for
// display; it is not a thread tree.
type ReplyRef struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SenderName string `json:"senderName"`
}

// Message is one chat entry in a board channel. The ID is stable across
// transports: the same message carries the same ID whether it arrived via
// a REST response or a socket event.
type Message struct {
	ID               string     `json:"id"`
	Text             string     `json:"text"`
	SenderID         string     `json:"senderId"`
	ChannelID        string     `json:"channelId"`
	Sender           Sender     `json:"sender"`
	ReplyTo          *ReplyRef  `json:"replyTo,omitempty"`
	MentionedUserIDs []string   `json:"mentionedUserIds,omitempty"`
	IsEdited         bool       `json:"isEdited"`
	EditedAt         *time.Time `json:"editedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}
