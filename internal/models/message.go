package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MaxRoomMessages is the number of most recent messages kept per room.
const MaxRoomMessages = 100

const (
	AnonymousSenderID   = "anonymous"
	AnonymousSenderName = "Anonymous"
)

var (
	ErrInvalidType     = errors.New("invalid message type")
	ErrInvalidMetadata = errors.New("invalid metadata")
)

// MessageType is the kind of chat event a message carries.
type MessageType string

const (
	TypeText          MessageType = "text"
	TypeXRPTransfer   MessageType = "xrp_transfer"
	TypeTokenTransfer MessageType = "token_transfer"
	TypeImage         MessageType = "image"
	TypeSystem        MessageType = "system"
)

// ParseMessageType validates a type string. An empty string means text.
func ParseMessageType(s string) (MessageType, error) {
	if s == "" {
		return TypeText, nil
	}
	t := MessageType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeXRPTransfer, TypeTokenTransfer, TypeImage, TypeSystem:
		return true
	}
	return false
}

// IsTransfer reports whether t moves value on the ledger.
func (t MessageType) IsTransfer() bool {
	return t == TypeXRPTransfer || t == TypeTokenTransfer
}

// Sender is a snapshot of the author taken when the message was posted.
// Later profile changes never rewrite it.
type Sender struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	XRPAddress string `json:"xrpAddress,omitempty"`
	IsOnline   bool   `json:"isOnline"`
}

// Message represents a chat message in a room's history.
type Message struct {
	ID        string      `json:"id"` // ULID
	RoomID    string      `json:"roomId"`
	SenderID  string      `json:"senderId"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Metadata  Metadata    `json:"metadata"`
	Timestamp time.Time   `json:"timestamp"`
	IsRead    bool        `json:"isRead"`
	Sender    Sender      `json:"sender"`
}

// MarshalJSON always emits metadata as an object.
func (m Message) MarshalJSON() ([]byte, error) {
	type messageAlias Message

	md := m.Metadata
	if md == nil {
		md = NewMetadata(m.Type)
	}

	return json.Marshal(struct {
		messageAlias
		Metadata Metadata `json:"metadata"`
	}{
		messageAlias: messageAlias(m),
		Metadata:     md,
	})
}

// UnmarshalJSON decodes metadata into the variant selected by type.
func (m *Message) UnmarshalJSON(data []byte) error {
	type messageAlias Message

	aux := struct {
		*messageAlias
		Metadata json.RawMessage `json:"metadata"`
	}{
		messageAlias: (*messageAlias)(m),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	md, err := DecodeMetadata(m.Type, aux.Metadata)
	if err != nil {
		return err
	}
	m.Metadata = md
	return nil
}

// TrimHistory keeps the newest max messages, dropping from the front.
// It returns the trimmed slice and how many messages were evicted.
func TrimHistory(msgs []Message, max int) ([]Message, int) {
	if max <= 0 || len(msgs) <= max {
		return msgs, 0
	}
	evicted := len(msgs) - max
	return msgs[evicted:], evicted
}
