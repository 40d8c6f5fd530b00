package models

import (
	"strings"
	"time"
)

const DefaultRoomColor = "#0d6efd"

type Room struct {
	ID           string   `json:"_id"`
	Name         string   `json:"Room_name"`
	Background   string   `json:"room_bg,omitempty"`
	IsPrivate    bool     `json:"is_private,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// Background is either a solid color or an image URL, never both.
type Background struct {
	Color    string
	ImageURL string
}

// BackgroundSpec interprets room_bg: values starting with "http" or "/"
// are image URLs, anything else is a color.
func (r Room) BackgroundSpec() Background {
	bg := strings.TrimSpace(r.Background)
	switch {
	case bg == "":
		return Background{Color: DefaultRoomColor}
	case strings.HasPrefix(bg, "http"), strings.HasPrefix(bg, "/"):
		return Background{ImageURL: bg}
	default:
		return Background{Color: bg}
	}
}

type MessageType string

const (
	MessageTypeText  MessageType = "Text"
	MessageTypeImage MessageType = "Image"
)

type Message struct {
	ID           string      `json:"_id"`
	RoomID       string      `json:"Room_id,omitempty"`
	SenderID     string      `json:"Sender_id"`
	SenderName   string      `json:"Sender_name,omitempty"`
	SenderAvatar string      `json:"Sender_avatar,omitempty"`
	Content      string      `json:"Content"`
	Type         MessageType `json:"Type,omitempty"`
	Timestamp    time.Time   `json:"Timestamp"`
	Edited       bool        `json:"Edited,omitempty"`
}

// Kind returns the message type, treating a missing or unknown type as
// text. The comparison ignores case.
func (m Message) Kind() MessageType {
	if strings.EqualFold(string(m.Type), string(MessageTypeImage)) {
		return MessageTypeImage
	}
	return MessageTypeText
}

func (m Message) IsImage() bool {
	return m.Kind() == MessageTypeImage
}

type Profile struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// User is a directory entry used when creating private rooms.
type User struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}
