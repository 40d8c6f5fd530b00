package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"chat-client/internal/api"
	"chat-client/internal/auth"
	"chat-client/internal/models"
	"chat-client/internal/store"
	"chat-client/internal/websocket"
	"chat-client/pkg/logger"
)

var (
	ErrNoActiveRoom     = errors.New("no active room")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrRoomNameRequired = errors.New("room name is required")
	ErrNameRequired     = errors.New("name is required")
	ErrUnknownRoom      = errors.New("unknown room")
	ErrUnknownMessage   = errors.New("message is not in the current transcript")
)

// Connection is the part of websocket.Manager intents need.
type Connection interface {
	State() websocket.State
	Session() *auth.Session
	Emit(event models.EventType, payload any) error
	ForceLogout(reason string)
}

// ProfileAPI is the REST surface used by uploads and name changes.
type ProfileAPI interface {
	UpdateName(ctx context.Context, token, name string) error
	UploadAvatar(ctx context.Context, token, filename string, r io.Reader) (string, error)
	UploadRoomBackground(ctx context.Context, token, roomID, filename string, r io.Reader) (string, error)
	UploadMessageImage(ctx context.Context, token, roomID, filename string, r io.Reader) (string, error)
}

// AvatarStore remembers the current user's avatar across restarts.
type AvatarStore interface {
	SaveAvatar(ctx context.Context, avatar string) error
}

// ChatService turns user intents into local state changes and relay
// emits. Every intent requires a live connection; nothing is queued.
type ChatService struct {
	conn  Connection
	api   ProfileAPI
	state   *store.State
	avatars AvatarStore
	log     *logger.Logger
}

func NewChatService(conn Connection, profileAPI ProfileAPI, state *store.State, avatars AvatarStore, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.GlobalLogger
	}
	return &ChatService{
		conn:    conn,
		api:     profileAPI,
		state:   state,
		avatars: avatars,
		log:     log.With("chat"),
	}
}

// JoinRoom makes roomID the active room and asks the relay for its history.
func (s *ChatService) JoinRoom(roomID string) error {
	if roomID == "" {
		return ErrUnknownRoom
	}
	if err := s.ready(); err != nil {
		return err
	}
	s.state.SetActiveRoom(roomID)
	return s.conn.Emit(models.EventJoinRoom, roomID)
}

func (s *ChatService) RefreshRooms() error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.conn.Emit(models.EventGetRooms, nil)
}

func (s *ChatService) SendMessage(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if err := s.ready(); err != nil {
		return err
	}
	roomID := s.state.ActiveRoomID()
	if roomID == "" {
		return ErrNoActiveRoom
	}
	return s.conn.Emit(models.EventSendMsg, models.SendMessageRequest{RoomID: roomID, Message: content})
}

func (s *ChatService) EditMessage(messageID, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if err := s.ready(); err != nil {
		return err
	}
	roomID, err := s.loadedMessageRoom(messageID)
	if err != nil {
		return err
	}
	return s.conn.Emit(models.EventUpdateMessage, models.UpdateMessageRequest{
		MessageID:  messageID,
		NewContent: content,
		RoomID:     roomID,
	})
}

func (s *ChatService) DeleteMessage(messageID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	roomID, err := s.loadedMessageRoom(messageID)
	if err != nil {
		return err
	}
	return s.conn.Emit(models.EventDeleteMessage, models.DeleteMessageRequest{MessageID: messageID, RoomID: roomID})
}

// loadedMessageRoom returns the active room if messageID is part of its
// transcript.
func (s *ChatService) loadedMessageRoom(messageID string) (string, error) {
	roomID := s.state.ActiveRoomID()
	if roomID == "" {
		return "", ErrNoActiveRoom
	}
	var known bool
	s.state.Read(func() { _, known = s.state.Messages.Get(messageID) })
	if !known {
		return "", ErrUnknownMessage
	}
	return roomID, nil
}

func (s *ChatService) CreateRoom(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrRoomNameRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	return s.conn.Emit(models.EventCreateRoom, models.CreateRoomRequest{RoomName: name})
}

// CreatePrivateRoom creates a room shared only with targetUserID.
func (s *ChatService) CreatePrivateRoom(name, targetUserID string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrRoomNameRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	return s.conn.Emit(models.EventCreateRoom, models.CreateRoomRequest{
		RoomName:     name,
		IsPrivate:    true,
		TargetUserID: targetUserID,
	})
}

func (s *ChatService) RenameRoom(roomID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrRoomNameRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	return s.conn.Emit(models.EventUpdateRoom, models.UpdateRoomRequest{RoomID: roomID, NewName: name})
}

func (s *ChatService) DeleteRoom(roomID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.conn.Emit(models.EventDeleteRoom, models.DeleteRoomRequest{RoomID: roomID})
}

func (s *ChatService) RefreshUsers() error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.conn.Emit(models.EventGetUsers, nil)
}

func (s *ChatService) FindUserByEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if err := s.ready(); err != nil {
		return err
	}
	return s.conn.Emit(models.EventFindUserByEmail, models.FindUserRequest{Email: email})
}

func (s *ChatService) CreateDirectRoom(targetUserID string) error {
	if targetUserID == "" {
		return fmt.Errorf("target user is required")
	}
	if err := s.ready(); err != nil {
		return err
	}
	return s.conn.Emit(models.EventCreateDirectRoom, models.CreateDirectRoomRequest{TargetUserID: targetUserID})
}

// UpdateName shows name at once as a tentative value, persists it over
// REST, then tells the relay. Any failure reverts to the confirmed name.
func (s *ChatService) UpdateName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	token, err := s.token()
	if err != nil {
		return err
	}

	s.state.Mutate(func() { s.state.Profiles.SetTentativeName(name) })
	revert := func() {
		s.state.Mutate(func() { s.state.Profiles.ClearTentativeName() })
	}

	if err := s.api.UpdateName(ctx, token, name); err != nil {
		revert()
		return s.apiError("update name", err)
	}
	if err := s.conn.Emit(models.EventUpdateName, models.UpdateNameRequest{Name: name}); err != nil {
		revert()
		return err
	}
	return nil
}

// SendImage uploads an image and posts it to the room that was active
// when the call was made, even if the user has switched rooms since.
func (s *ChatService) SendImage(ctx context.Context, filename string, r io.Reader) error {
	roomID := s.state.ActiveRoomID()
	if roomID == "" {
		return ErrNoActiveRoom
	}
	token, err := s.token()
	if err != nil {
		return err
	}

	url, err := s.api.UploadMessageImage(ctx, token, roomID, filename, r)
	if err != nil {
		return s.apiError("upload image", err)
	}
	return s.conn.Emit(models.EventSendMsg, models.SendMessageRequest{
		RoomID:  roomID,
		Message: url,
		Type:    models.MessageTypeImage,
	})
}

// UploadAvatar replaces the current user's avatar and remembers it
// locally.
func (s *ChatService) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	token, err := s.token()
	if err != nil {
		return "", err
	}

	url, err := s.api.UploadAvatar(ctx, token, filename, r)
	if err != nil {
		return "", s.apiError("upload avatar", err)
	}

	s.state.Mutate(func() {
		me := s.state.Profiles.SetMe(models.Profile{Avatar: url})
		s.state.Messages.ApplyProfile(me.UserID, "", url)
	})
	if s.avatars != nil {
		if err := s.avatars.SaveAvatar(ctx, url); err != nil {
			s.log.Error("Failed to persist avatar: %v", err)
		}
	}
	return url, nil
}

// UploadRoomBackground sets an image background on roomID.
func (s *ChatService) UploadRoomBackground(ctx context.Context, roomID, filename string, r io.Reader) (string, error) {
	var room models.Room
	var known bool
	s.state.Read(func() { room, known = s.state.Rooms.Get(roomID) })
	if !known {
		return "", ErrUnknownRoom
	}
	token, err := s.token()
	if err != nil {
		return "", err
	}

	url, err := s.api.UploadRoomBackground(ctx, token, roomID, filename, r)
	if err != nil {
		return "", s.apiError("upload room background", err)
	}
	err = s.conn.Emit(models.EventUpdateRoom, models.UpdateRoomRequest{
		RoomID:        roomID,
		NewName:       room.Name,
		NewBackground: url,
	})
	return url, err
}

func (s *ChatService) ready() error {
	if s.conn.State() != websocket.StateConnected {
		return websocket.ErrNotConnected
	}
	return nil
}

// token returns the bearer credential for REST calls, which share the
// connection gate with relay intents.
func (s *ChatService) token() (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	session := s.conn.Session()
	if session == nil {
		return "", websocket.ErrNotConnected
	}
	return session.Token, nil
}

// apiError forces a logout when the REST API rejected the credential.
func (s *ChatService) apiError(op string, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		s.conn.ForceLogout(op + ": " + err.Error())
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
