package handlers

import (
	"encoding/json"
	"fmt"

	"chat-client/internal/models"
	"chat-client/internal/store"
	"chat-client/pkg/logger"
)

type HandlerFunc func(data json.RawMessage) error

// Dispatcher binds inbound relay events to store mutations. The handler
// table is built once; handlers consult the live active room held by
// store.State when they run.
type Dispatcher struct {
	state    *store.State
	handlers map[models.EventType]HandlerFunc
	log      *logger.Logger

	onOwnAvatar func(avatar string)
}

type Option func(*Dispatcher)

// WithAvatarSink receives the current user's avatar URL whenever it
// changes. It runs under the store lock and must not block.
func WithAvatarSink(fn func(avatar string)) Option {
	return func(d *Dispatcher) { d.onOwnAvatar = fn }
}

func WithLogger(l *logger.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func NewDispatcher(state *store.State, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		state:       state,
		log:         logger.GlobalLogger.With("dispatcher"),
		onOwnAvatar: func(string) {},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.handlers = map[models.EventType]HandlerFunc{
		models.EventRoomList:       d.handleRoomList,
		models.EventRoomCreated:    d.handleRoomCreated,
		models.EventRoomUpdated:    d.handleRoomUpdated,
		models.EventRoomDeleted:    d.handleRoomDeleted,
		models.EventChatHistory:    d.handleChatHistory,
		models.EventReceiveMsg:     d.handleReceiveMessage,
		models.EventMessageUpdated: d.handleMessageUpdated,
		models.EventMessageDeleted: d.handleMessageDeleted,
		models.EventAvatarUpdated:  d.handleAvatarUpdated,
		models.EventNameUpdated:    d.handleNameUpdated,
		models.EventMyProfile:      d.handleMyProfile,
		models.EventUserList:       d.handleUserList,
		models.EventUserFound:      d.handleUserFound,
		models.EventUserNotFound:   d.handleUserNotFound,
	}
	return d
}

// Dispatch applies one event. Unknown events are ignored; a payload that
// does not decode leaves the store untouched and is returned as an error.
// A relay rejection of the credential returns an error wrapping
// auth.ErrInvalidCredential.
func (d *Dispatcher) Dispatch(env models.Envelope) error {
	if env.Event == models.EventConnectError || env.Event == models.EventUnauthorized {
		return d.handleAuthRejection(env.Event, env.Data)
	}

	handler, ok := d.handlers[env.Event]
	if !ok {
		d.log.Debug("Ignoring unknown event %q", env.Event)
		return nil
	}

	var err error
	d.state.Mutate(func() {
		err = handler(env.Data)
	})
	if err != nil {
		return fmt.Errorf("malformed %s event: %w", env.Event, err)
	}
	return nil
}
