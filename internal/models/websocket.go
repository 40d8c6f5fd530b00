package models

import (
	"encoding/json"
	"time"
)

type EventType string

// Inbound events pushed by the relay.
const (
	EventRoomList       EventType = "room_list"
	EventRoomCreated    EventType = "room_created"
	EventRoomUpdated    EventType = "room_updated"
	EventRoomDeleted    EventType = "room_deleted"
	EventChatHistory    EventType = "chat_history"
	EventReceiveMsg     EventType = "receive_msg"
	EventMessageUpdated EventType = "message_updated"
	EventMessageDeleted EventType = "message_deleted"
	EventAvatarUpdated  EventType = "avatar_updated"
	EventNameUpdated    EventType = "name_updated"
	EventMyProfile      EventType = "my_profile"
	EventUserList       EventType = "user_list"
	EventUserFound      EventType = "user_found"
	EventUserNotFound   EventType = "user_not_found"
	EventConnectError   EventType = "connect_error"
	EventUnauthorized   EventType = "unauthorized"
)

// Outbound intents.
const (
	EventGetRooms         EventType = "get_rooms"
	EventGetUsers         EventType = "get_users"
	EventGetProfile       EventType = "get_profile"
	EventJoinRoom         EventType = "join_room"
	EventCreateRoom       EventType = "create_room"
	EventUpdateRoom       EventType = "update_room"
	EventDeleteRoom       EventType = "delete_room"
	EventSendMsg          EventType = "send_msg"
	EventUpdateMessage    EventType = "update_message"
	EventDeleteMessage    EventType = "delete_message"
	EventUpdateName       EventType = "update_name"
	EventFindUserByEmail  EventType = "find_user_by_email"
	EventCreateDirectRoom EventType = "create_direct_room"
)

// Envelope is one JSON text frame on the websocket, in either direction.
type Envelope struct {
	Event     EventType       `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	ID        string          `json:"id,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

func NewEnvelope(event EventType, payload any) (Envelope, error) {
	env := Envelope{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = data
	return env, nil
}

type CreateRoomRequest struct {
	RoomName     string `json:"roomName"`
	IsPrivate    bool   `json:"isPrivate,omitempty"`
	TargetUserID string `json:"targetUserId,omitempty"`
}

type UpdateRoomRequest struct {
	RoomID        string `json:"roomId"`
	NewName       string `json:"newName"`
	NewBackground string `json:"newBackground,omitempty"`
}

type DeleteRoomRequest struct {
	RoomID string `json:"roomId"`
}

type SendMessageRequest struct {
	RoomID  string      `json:"roomId"`
	Message string      `json:"message"`
	Type    MessageType `json:"type,omitempty"`
}

type UpdateMessageRequest struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
	RoomID     string `json:"roomId"`
}

type DeleteMessageRequest struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}

type UpdateNameRequest struct {
	Name string `json:"name"`
}

type FindUserRequest struct {
	Email string `json:"email"`
}

type CreateDirectRoomRequest struct {
	TargetUserID string `json:"targetUserId"`
}

// RoomDeletedEvent carries the id of a removed room.
type RoomDeletedEvent struct {
	RoomID string `json:"roomId"`
}

// ChatHistoryEvent is the object form of chat_history. The relay may also
// send a bare message array.
type ChatHistoryEvent struct {
	RoomID   string    `json:"roomId"`
	Messages []Message `json:"messages"`
}

type MessageDeletedEvent struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId,omitempty"`
}

type AvatarUpdatedEvent struct {
	UserID string `json:"userId"`
	Avatar string `json:"avatar"`
}

type NameUpdatedEvent struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type UserNotFoundEvent struct {
	Email string `json:"email"`
}

type ConnectErrorEvent struct {
	Message string `json:"message"`
}
