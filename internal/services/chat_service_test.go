package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"chat-client/internal/api"
	"chat-client/internal/auth"
	"chat-client/internal/database"
	"chat-client/internal/models"
	"chat-client/internal/store"
	"chat-client/internal/websocket"
	"chat-client/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	event   models.EventType
	payload any
}

type fakeConn struct {
	state   websocket.State
	session *auth.Session
	emits   []emitted
	logouts []string
}

func (f *fakeConn) State() websocket.State  { return f.state }
func (f *fakeConn) Session() *auth.Session { return f.session }

func (f *fakeConn) Emit(event models.EventType, payload any) error {
	if f.state != websocket.StateConnected {
		return websocket.ErrNotConnected
	}
	f.emits = append(f.emits, emitted{event, payload})
	return nil
}

func (f *fakeConn) ForceLogout(reason string) {
	f.logouts = append(f.logouts, reason)
	f.state = websocket.StateUnauthorized
}

type fakeAPI struct {
	err       error
	url       string
	names     []string
	uploadFor []string
	onUpload  func()
}

func (f *fakeAPI) UpdateName(_ context.Context, _, name string) error {
	f.names = append(f.names, name)
	return f.err
}

func (f *fakeAPI) UploadAvatar(_ context.Context, _, _ string, r io.Reader) (string, error) {
	io.Copy(io.Discard, r)
	return f.url, f.err
}

func (f *fakeAPI) UploadRoomBackground(_ context.Context, _, roomID, _ string, _ io.Reader) (string, error) {
	f.uploadFor = append(f.uploadFor, roomID)
	return f.url, f.err
}

func (f *fakeAPI) UploadMessageImage(_ context.Context, _, roomID, _ string, _ io.Reader) (string, error) {
	f.uploadFor = append(f.uploadFor, roomID)
	if f.onUpload != nil {
		f.onUpload()
	}
	return f.url, f.err
}

type fixture struct {
	svc   *ChatService
	conn  *fakeConn
	api   *fakeAPI
	state *store.State
	slots *database.MemoryStore
}

func newFixture() *fixture {
	f := &fixture{
		conn: &fakeConn{
			state:   websocket.StateConnected,
			session: &auth.Session{UserID: "u1", Token: "tok"},
		},
		api:   &fakeAPI{url: "/uploads/x.png"},
		state: store.NewState(),
		slots: database.NewMemoryStore(),
	}
	f.state.Mutate(func() { f.state.Profiles.SetSelf("u1") })
	f.svc = NewChatService(f.conn, f.api, f.state, database.NewCredentials(f.slots), logger.Nop())
	return f
}

func TestJoinRoom(t *testing.T) {
	f := newFixture()
	f.state.Mutate(func() { f.state.Rooms.MarkUnread("r1") })

	require.NoError(t, f.svc.JoinRoom("r1"))

	snap := f.state.Snapshot()
	assert.Equal(t, "r1", snap.ActiveRoomID)
	assert.False(t, snap.Unread["r1"])
	assert.Equal(t, []emitted{{models.EventJoinRoom, "r1"}}, f.conn.emits)
}

func TestIntentsAreRejectedWhileOffline(t *testing.T) {
	f := newFixture()
	f.state.SetActiveRoom("r1")
	f.conn.state = websocket.StateDisconnected

	assert.ErrorIs(t, f.svc.JoinRoom("r2"), websocket.ErrNotConnected)
	assert.ErrorIs(t, f.svc.SendMessage("hi"), websocket.ErrNotConnected)
	assert.ErrorIs(t, f.svc.CreateRoom("x"), websocket.ErrNotConnected)
	assert.ErrorIs(t, f.svc.UpdateName(context.Background(), "Bea"), websocket.ErrNotConnected)

	assert.Equal(t, "r1", f.state.ActiveRoomID())
	assert.Empty(t, f.conn.emits)
	assert.Empty(t, f.api.names)
	assert.Empty(t, f.state.Snapshot().Me.Name)
}

func TestSendMessage(t *testing.T) {
	f := newFixture()

	assert.ErrorIs(t, f.svc.SendMessage("hi"), ErrNoActiveRoom)
	assert.ErrorIs(t, f.svc.SendMessage("   "), ErrEmptyMessage)

	f.state.SetActiveRoom("r1")
	require.NoError(t, f.svc.SendMessage("hi"))

	require.Len(t, f.conn.emits, 1)
	assert.Equal(t, models.EventSendMsg, f.conn.emits[0].event)
	assert.Equal(t, models.SendMessageRequest{RoomID: "r1", Message: "hi"}, f.conn.emits[0].payload)
}

func TestRoomIntents(t *testing.T) {
	f := newFixture()

	assert.ErrorIs(t, f.svc.CreateRoom(" "), ErrRoomNameRequired)
	require.NoError(t, f.svc.CreateRoom(" Lounge "))
	require.NoError(t, f.svc.CreatePrivateRoom("Pair", "u2"))
	require.NoError(t, f.svc.RenameRoom("r1", "Renamed"))
	require.NoError(t, f.svc.DeleteRoom("r1"))
	require.NoError(t, f.svc.CreateDirectRoom("u3"))

	assert.Equal(t, []emitted{
		{models.EventCreateRoom, models.CreateRoomRequest{RoomName: "Lounge"}},
		{models.EventCreateRoom, models.CreateRoomRequest{RoomName: "Pair", IsPrivate: true, TargetUserID: "u2"}},
		{models.EventUpdateRoom, models.UpdateRoomRequest{RoomID: "r1", NewName: "Renamed"}},
		{models.EventDeleteRoom, models.DeleteRoomRequest{RoomID: "r1"}},
		{models.EventCreateDirectRoom, models.CreateDirectRoomRequest{TargetUserID: "u3"}},
	}, f.conn.emits)
}

func TestMessageIntents(t *testing.T) {
	f := newFixture()
	f.state.SetActiveRoom("r1")
	f.state.Mutate(func() {
		f.state.Messages.ReplaceHistory("r1", []models.Message{{ID: "m1", RoomID: "r1"}, {ID: "m2", RoomID: "r1"}})
	})

	require.NoError(t, f.svc.EditMessage("m1", "fixed"))
	require.NoError(t, f.svc.DeleteMessage("m2"))

	assert.Equal(t, []emitted{
		{models.EventUpdateMessage, models.UpdateMessageRequest{MessageID: "m1", NewContent: "fixed", RoomID: "r1"}},
		{models.EventDeleteMessage, models.DeleteMessageRequest{MessageID: "m2", RoomID: "r1"}},
	}, f.conn.emits)
}

func TestMessageIntentsNeedLoadedMessage(t *testing.T) {
	f := newFixture()

	assert.ErrorIs(t, f.svc.DeleteMessage("m1"), ErrNoActiveRoom)

	f.state.SetActiveRoom("r1")
	f.state.Mutate(func() {
		f.state.Messages.ReplaceHistory("r1", []models.Message{{ID: "m1", RoomID: "r1"}})
	})

	assert.ErrorIs(t, f.svc.EditMessage("m9", "fixed"), ErrUnknownMessage)
	assert.ErrorIs(t, f.svc.DeleteMessage("m9"), ErrUnknownMessage)
	assert.Empty(t, f.conn.emits)
}

func TestDirectoryIntents(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.RefreshUsers())
	require.NoError(t, f.svc.FindUserByEmail(" b@example.com "))
	assert.Error(t, f.svc.FindUserByEmail(""))

	assert.Equal(t, []emitted{
		{models.EventGetUsers, nil},
		{models.EventFindUserByEmail, models.FindUserRequest{Email: "b@example.com"}},
	}, f.conn.emits)
}

func TestUpdateNameIsTentativeUntilConfirmed(t *testing.T) {
	f := newFixture()
	f.state.Mutate(func() { f.state.Profiles.SetMe(models.Profile{Name: "An"}) })

	require.NoError(t, f.svc.UpdateName(context.Background(), "Annie"))

	assert.Equal(t, "Annie", f.state.Snapshot().Me.Name)
	assert.Equal(t, []string{"Annie"}, f.api.names)
	assert.Equal(t, []emitted{{models.EventUpdateName, models.UpdateNameRequest{Name: "Annie"}}}, f.conn.emits)
}

func TestUpdateNameRevertsOnFailure(t *testing.T) {
	f := newFixture()
	f.state.Mutate(func() { f.state.Profiles.SetMe(models.Profile{Name: "An"}) })
	f.api.err = &api.StatusError{Code: 500, Body: "boom"}

	err := f.svc.UpdateName(context.Background(), "Annie")

	require.Error(t, err)
	assert.Equal(t, "An", f.state.Snapshot().Me.Name)
	assert.Empty(t, f.conn.emits)
	assert.Empty(t, f.conn.logouts)
}

func TestRESTUnauthorizedForcesLogout(t *testing.T) {
	f := newFixture()
	f.api.err = api.ErrUnauthorized

	err := f.svc.UpdateName(context.Background(), "Annie")

	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Len(t, f.conn.logouts, 1)
}

func TestSendImageUsesRoomAtIssuance(t *testing.T) {
	f := newFixture()
	f.state.SetActiveRoom("r1")
	f.api.onUpload = func() { f.state.SetActiveRoom("r2") }

	require.NoError(t, f.svc.SendImage(context.Background(), "cat.png", strings.NewReader("png")))

	assert.Equal(t, []string{"r1"}, f.api.uploadFor)
	require.Len(t, f.conn.emits, 1)
	assert.Equal(t, models.SendMessageRequest{
		RoomID:  "r1",
		Message: "/uploads/x.png",
		Type:    models.MessageTypeImage,
	}, f.conn.emits[0].payload)

	data, err := json.Marshal(f.conn.emits[0].payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"roomId":"r1","message":"/uploads/x.png","type":"Image"}`, string(data))
}

func TestSendImageWithoutActiveRoom(t *testing.T) {
	f := newFixture()

	assert.ErrorIs(t, f.svc.SendImage(context.Background(), "cat.png", strings.NewReader("png")), ErrNoActiveRoom)
	assert.Empty(t, f.api.uploadFor)
}

func TestUploadAvatar(t *testing.T) {
	f := newFixture()
	f.state.SetActiveRoom("r1")
	f.state.Mutate(func() {
		f.state.Messages.ReplaceHistory("r1", []models.Message{{ID: "m1", SenderID: "u1"}, {ID: "m2", SenderID: "u2"}})
	})

	url, err := f.svc.UploadAvatar(context.Background(), "me.png", strings.NewReader("png"))

	require.NoError(t, err)
	assert.Equal(t, "/uploads/x.png", url)
	snap := f.state.Snapshot()
	assert.Equal(t, url, snap.Me.Avatar)
	assert.Equal(t, url, snap.Messages[0].SenderAvatar)
	assert.Empty(t, snap.Messages[1].SenderAvatar)

	stored, err := f.slots.Get(context.Background(), database.SlotAvatar)
	require.NoError(t, err)
	assert.Equal(t, url, stored)
}

func TestUploadRoomBackground(t *testing.T) {
	f := newFixture()
	f.state.Mutate(func() { f.state.Rooms.Replace([]models.Room{{ID: "r1", Name: "General"}}) })

	_, err := f.svc.UploadRoomBackground(context.Background(), "r9", "bg.png", strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrUnknownRoom)

	url, err := f.svc.UploadRoomBackground(context.Background(), "r1", "bg.png", strings.NewReader("png"))
	require.NoError(t, err)

	assert.Equal(t, []emitted{{models.EventUpdateRoom, models.UpdateRoomRequest{
		RoomID:        "r1",
		NewName:       "General",
		NewBackground: url,
	}}}, f.conn.emits)
}

func TestUploadFailureIsWrapped(t *testing.T) {
	f := newFixture()
	f.api.err = errors.New("disk full")

	_, err := f.svc.UploadAvatar(context.Background(), "me.png", strings.NewReader("png"))

	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, f.state.Snapshot().Me.Avatar)
}
