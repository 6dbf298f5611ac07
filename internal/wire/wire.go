// Package wire validates and shapes raw inbound payloads before they touch
// any stateful component. Socket frames and REST responses carry slightly
// different message shapes; both are funneled through ParseMessage so the
// rest of the client only ever sees a well-formed models.Message.
package wire

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"boardchat/client/internal/models"
)

var (
	// ErrMalformed means the payload was not valid JSON for the expected shape.
	ErrMalformed = errors.New("wire: malformed payload")
	// ErrMissingID means the payload carried no message ID.
	ErrMissingID = errors.New("wire: missing message id")
	// ErrMissingSender means the payload carried no sender ID.
	ErrMissingSender = errors.New("wire: missing sender id")
)

// wireSender is the nested sender object REST responses carry.
type wireSender struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// wireReply is the nested reply summary, present only when the message is
// a reply.
type wireReply struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SenderName string `json:"senderName"`
}

// wireMessage accepts both payload shapes: REST responses nest a sender
// object, socket events carry a flat senderId plus a combined senderName.
type wireMessage struct {
	ID               string      `json:"id"`
	Text             string      `json:"text"`
	SenderID         string      `json:"senderId"`
	ChannelID        string      `json:"channelId"`
	Sender           *wireSender `json:"sender"`
	SenderName       string      `json:"senderName"`
	ReplyTo          *wireReply  `json:"replyTo"`
	MentionedUserIDs []string    `json:"mentionedUserIds"`
	IsEdited         bool        `json:"isEdited"`
	EditedAt         string      `json:"editedAt"`
	CreatedAt        string      `json:"createdAt"`
}

// ParseMessage converts a raw payload into a Message. It rejects payloads
// with a missing id or sender id; callers on the event path drop rejected
// payloads silently (with a diagnostic log line), they never surface them
// as user-visible errors.
func ParseMessage(data []byte) (models.Message, error) {
	var raw wireMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Message{}, ErrMalformed
	}

	senderID := raw.SenderID
	if senderID == "" && raw.Sender != nil {
		senderID = raw.Sender.ID
	}
	if raw.ID == "" {
		return models.Message{}, ErrMissingID
	}
	if senderID == "" {
		return models.Message{}, ErrMissingSender
	}

	msg := models.Message{
		ID:               raw.ID,
		Text:             raw.Text,
		SenderID:         senderID,
		ChannelID:        raw.ChannelID,
		MentionedUserIDs: raw.MentionedUserIDs,
		IsEdited:         raw.IsEdited,
		CreatedAt:        parseTime(raw.CreatedAt),
	}

	if raw.Sender != nil {
		msg.Sender = models.Sender{
			ID:        raw.Sender.ID,
			FirstName: raw.Sender.FirstName,
			LastName:  raw.Sender.LastName,
		}
	}
	if msg.Sender.ID == "" {
		msg.Sender.ID = senderID
	}
	if msg.Sender.FirstName == "" && raw.SenderName != "" {
		msg.Sender.FirstName, msg.Sender.LastName = SplitDisplayName(raw.SenderName)
	}

	if raw.EditedAt != "" {
		t := parseTime(raw.EditedAt)
		if !t.IsZero() {
			msg.EditedAt = &t
		}
	}
	if raw.ReplyTo != nil && raw.ReplyTo.ID != "" {
		msg.ReplyTo = &models.ReplyRef{
			ID:         raw.ReplyTo.ID,
			Text:       raw.ReplyTo.Text,
			SenderName: raw.ReplyTo.SenderName,
		}
	}

	return msg, nil
}

// SplitDisplayName splits a combined display name at the first whitespace
// boundary; all remaining words become the surname. This is lossy for
// multi-word first names and is not reversible. That asymmetry matches the
// upstream display semantics and is kept as-is.
func SplitDisplayName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
