// Package client wires the session, connection, dispatcher, stores and
// intents of one signed-in chat client.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chat-client/internal/api"
	"chat-client/internal/auth"
	"chat-client/internal/config"
	"chat-client/internal/database"
	"chat-client/internal/handlers"
	"chat-client/internal/models"
	"chat-client/internal/services"
	"chat-client/internal/store"
	"chat-client/internal/websocket"
	"chat-client/pkg/logger"
)

type Options struct {
	Config *config.Config
	Slots  database.SlotStore
	// Transport and API default to the gorilla client and the REST client
	// built from Config.
	Transport websocket.Transport
	API       *api.Client
	Logger    *logger.Logger
	Now       func() time.Time
}

type Client struct {
	State *store.State
	Chat  *services.ChatService

	cfg        *config.Config
	log        *logger.Logger
	creds      *database.Credentials
	auth       *auth.Service
	conn       *websocket.Manager
	dispatcher *handlers.Dispatcher
	location   *time.Location

	// slotMu orders avatar writes against the credential wipe in teardown.
	slotMu sync.Mutex
}

func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.GlobalLogger
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	slots := opts.Slots
	if slots == nil {
		slots = database.NewMemoryStore()
	}

	restAPI := opts.API
	if restAPI == nil {
		restAPI = api.NewClient(api.Config{BaseURL: cfg.Server.APIURL, Timeout: cfg.Server.HTTPTimeout})
	}
	transport := opts.Transport
	if transport == nil {
		transport = websocket.NewClient(cfg.Server, log)
	}

	c := &Client{
		State:    store.NewState(),
		cfg:      cfg,
		log:      log.With("client"),
		creds:    database.NewCredentials(slots),
		location: cfg.Display.Location(),
	}
	c.auth = auth.NewService(restAPI, c.creds)

	c.dispatcher = handlers.NewDispatcher(c.State,
		handlers.WithLogger(log.With("dispatcher")),
		handlers.WithAvatarSink(c.rememberAvatar),
	)
	c.conn = websocket.NewManager(websocket.ManagerConfig{
		Transport:  transport,
		Dispatcher: c.dispatcher,
		Teardown:   c.teardown,
		Logger:     log,
		Now:        opts.Now,
	})
	c.Chat = services.NewChatService(c.conn, restAPI, c.State, liveAvatar{c}, log)
	return c
}

// Start resumes a persisted session. auth.ErrNoCredential and the
// invalid/expired errors mean the user has to log in.
func (c *Client) Start(ctx context.Context) error {
	session, err := c.auth.Restore(ctx)
	if err != nil {
		return err
	}
	return c.open(ctx, session)
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	session, err := c.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return c.open(ctx, session)
}

func (c *Client) Signup(ctx context.Context, name, email, password string) error {
	return c.auth.Signup(ctx, name, email, password)
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.auth.RequestPasswordReset(ctx, email)
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return c.auth.ResetPassword(ctx, resetToken, newPassword)
}

// Logout closes the connection and discards the session.
func (c *Client) Logout() {
	c.conn.Close()
}

// Close disconnects without discarding the persisted credential.
func (c *Client) Close() {
	c.conn.Shutdown()
}

// Run processes connection signals until ctx is done.
func (c *Client) Run(ctx context.Context) {
	c.conn.Run(ctx)
}

func (c *Client) Snapshot() store.Snapshot {
	return c.State.Snapshot()
}

func (c *Client) ConnectionState() websocket.State {
	return c.conn.State()
}

func (c *Client) OnStateChange(fn func(from, to websocket.State)) {
	c.conn.OnStateChange(fn)
}

// DaySeparators reports, for each message of the snapshot, whether a day
// separator goes above it in the configured display zone.
func (c *Client) DaySeparators(messages []models.Message) []bool {
	return store.Separators(messages, c.location)
}

func (c *Client) Location() *time.Location {
	return c.location
}

func (c *Client) open(ctx context.Context, session *auth.Session) error {
	avatar, err := c.creds.Avatar(ctx)
	if err != nil {
		c.log.Warn("Failed to load stored avatar: %v", err)
	}
	c.State.Mutate(func() {
		c.State.Profiles.SetSelf(session.UserID)
		c.State.Profiles.Update(models.Profile{UserID: session.UserID, Name: session.Username, Avatar: avatar})
	})

	if err := c.conn.Open(ctx, session); err != nil {
		if errors.Is(err, websocket.ErrSessionExpired) {
			c.teardown(true)
		}
		return fmt.Errorf("failed to open connection: %w", err)
	}
	return nil
}

func (c *Client) teardown(forced bool) {
	c.State.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.slotMu.Lock()
	err := c.creds.Clear(ctx)
	c.slotMu.Unlock()
	if err != nil {
		c.log.Error("Failed to clear stored credential: %v", err)
	}
	if forced {
		c.log.Warn("Session ended by the relay")
	} else {
		c.log.Info("Logged out")
	}
}

// rememberAvatar persists the user's avatar off the dispatch path. The
// write is dropped if the session it arrived on has ended by then.
func (c *Client) rememberAvatar(avatar string) {
	session := c.conn.Session()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.saveAvatar(ctx, session, avatar); err != nil {
			c.log.Error("Failed to persist avatar: %v", err)
		}
	}()
}

// saveAvatar writes the avatar slot only while session is still the live
// one. Holding slotMu across the check and the write keeps a concurrent
// teardown from clearing the slots in between.
func (c *Client) saveAvatar(ctx context.Context, session *auth.Session, avatar string) error {
	c.slotMu.Lock()
	defer c.slotMu.Unlock()
	if session == nil || c.conn.Session() != session {
		c.log.Debug("Not persisting avatar for an ended session")
		return nil
	}
	return c.creds.SaveAvatar(ctx, avatar)
}

// liveAvatar is the avatar store handed to intents: writes land only while
// a session is open.
type liveAvatar struct{ c *Client }

func (a liveAvatar) SaveAvatar(ctx context.Context, avatar string) error {
	return a.c.saveAvatar(ctx, a.c.conn.Session(), avatar)
}
