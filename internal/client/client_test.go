package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chat-client/internal/api"
	"chat-client/internal/auth"
	"chat-client/internal/config"
	"chat-client/internal/database"
	"chat-client/internal/models"
	"chat-client/internal/websocket"
	"chat-client/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu       sync.Mutex
	connects []string
	sent     []models.EventType
	signals  chan websocket.Signal
}

func (f *fakeTransport) Connect(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, token)
	return nil
}

func (f *fakeTransport) Send(env models.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env.Event)
	return nil
}

func (f *fakeTransport) Signals() <-chan websocket.Signal { return f.signals }
func (f *fakeTransport) Close() error                     { return nil }

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects)
}

func token(t *testing.T, expires time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId":   "u1",
		"username": "an",
		"exp":      expires.Unix(),
	}).SignedString([]byte("relay-secret"))
	require.NoError(t, err)
	return tok
}

type harness struct {
	client    *Client
	transport *fakeTransport
	slots     *database.MemoryStore
}

func newHarness(t *testing.T, rest http.HandlerFunc) *harness {
	t.Helper()
	return newHarnessWithSlots(t, rest, nil)
}

// newHarnessWithSlots lets wrap interpose on the slot store the client
// sees; h.slots stays the underlying store.
func newHarnessWithSlots(t *testing.T, rest http.HandlerFunc, wrap func(*database.MemoryStore) database.SlotStore) *harness {
	t.Helper()
	if rest == nil {
		rest = func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }
	}
	srv := httptest.NewServer(rest)
	t.Cleanup(srv.Close)

	h := &harness{
		transport: &fakeTransport{signals: make(chan websocket.Signal, 16)},
		slots:     database.NewMemoryStore(),
	}
	var slots database.SlotStore = h.slots
	if wrap != nil {
		slots = wrap(h.slots)
	}
	h.client = New(Options{
		Config:    &config.Config{Display: config.DisplayConfig{TimeZone: "UTC"}},
		Slots:     slots,
		Transport: h.transport,
		API:       api.NewClient(api.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}),
		Logger:    logger.Nop(),
	})
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.client.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func (h *harness) push(t *testing.T, event models.EventType, payload any) {
	t.Helper()
	env, err := models.NewEnvelope(event, payload)
	require.NoError(t, err)
	h.transport.signals <- websocket.Signal{Kind: websocket.SignalEvent, Event: env}
}

func TestStartWithoutCredential(t *testing.T) {
	h := newHarness(t, nil)

	err := h.client.Start(context.Background())

	assert.ErrorIs(t, err, auth.ErrNoCredential)
	assert.Equal(t, websocket.StateIdle, h.client.ConnectionState())
	assert.Zero(t, h.transport.connectCount())
}

func TestStartWithExpiredCredentialClearsStorage(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.slots.Set(ctx, database.SlotToken, token(t, time.Now().Add(-time.Minute))))
	require.NoError(t, h.slots.Set(ctx, database.SlotAvatar, "/a.png"))

	err := h.client.Start(ctx)

	assert.ErrorIs(t, err, auth.ErrExpiredCredential)
	assert.Zero(t, h.transport.connectCount())
	_, err = h.slots.Get(ctx, database.SlotToken)
	assert.ErrorIs(t, err, database.ErrSlotEmpty)
	_, err = h.slots.Get(ctx, database.SlotAvatar)
	assert.ErrorIs(t, err, database.ErrSlotEmpty)
}

func TestStartResumesStoredSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tok := token(t, time.Now().Add(time.Hour))
	require.NoError(t, h.slots.Set(ctx, database.SlotToken, tok))
	require.NoError(t, h.slots.Set(ctx, database.SlotAvatar, "/a.png"))

	require.NoError(t, h.client.Start(ctx))

	assert.Equal(t, websocket.StateConnecting, h.client.ConnectionState())
	assert.Equal(t, []string{tok}, h.transport.connects)
	me := h.client.Snapshot().Me
	assert.Equal(t, models.Profile{UserID: "u1", Name: "an", Avatar: "/a.png"}, me)
}

func TestLoginPersistsCredentialAndConnects(t *testing.T) {
	tok := token(t, time.Now().Add(time.Hour))
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": tok, "username": "an", "userId": "u1"})
	})
	ctx := context.Background()

	require.NoError(t, h.client.Login(ctx, "an@example.com", "pw"))

	stored, err := h.slots.Get(ctx, database.SlotToken)
	require.NoError(t, err)
	assert.Equal(t, tok, stored)
	assert.Equal(t, 1, h.transport.connectCount())
}

func TestRelayRejectionLogsOut(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.slots.Set(ctx, database.SlotToken, token(t, time.Now().Add(time.Hour))))
	require.NoError(t, h.client.Start(ctx))
	h.run(t)

	h.transport.signals <- websocket.Signal{Kind: websocket.SignalConnected}
	h.push(t, models.EventRoomList, []models.Room{{ID: "r1"}})
	assert.Eventually(t, func() bool {
		return len(h.client.Snapshot().Rooms) == 1
	}, time.Second, 5*time.Millisecond)

	h.transport.signals <- websocket.Signal{Kind: websocket.SignalEvent, Event: models.Envelope{
		Event: models.EventConnectError,
		Data:  json.RawMessage(`{"message":"Unauthorized"}`),
	}}

	assert.Eventually(t, func() bool {
		_, err := h.slots.Get(ctx, database.SlotToken)
		return err == database.ErrSlotEmpty && len(h.client.Snapshot().Rooms) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, websocket.StateUnauthorized, h.client.ConnectionState())
}

func TestOwnAvatarIsRemembered(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.slots.Set(ctx, database.SlotToken, token(t, time.Now().Add(time.Hour))))
	require.NoError(t, h.client.Start(ctx))
	h.run(t)

	h.transport.signals <- websocket.Signal{Kind: websocket.SignalConnected}
	h.push(t, models.EventMyProfile, models.Profile{UserID: "u1", Name: "An", Avatar: "/me.png"})

	assert.Eventually(t, func() bool {
		avatar, err := h.slots.Get(ctx, database.SlotAvatar)
		return err == nil && avatar == "/me.png"
	}, time.Second, 5*time.Millisecond)
}

func TestLogoutClearsEverything(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.slots.Set(ctx, database.SlotToken, token(t, time.Now().Add(time.Hour))))
	require.NoError(t, h.client.Start(ctx))

	h.client.Logout()

	assert.Equal(t, websocket.StateIdle, h.client.ConnectionState())
	assert.Equal(t, models.Profile{}, h.client.Snapshot().Me)
	_, err := h.slots.Get(ctx, database.SlotToken)
	assert.ErrorIs(t, err, database.ErrSlotEmpty)
}

func TestCloseKeepsStoredCredential(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	tok := token(t, time.Now().Add(time.Hour))
	require.NoError(t, h.slots.Set(ctx, database.SlotToken, tok))
	require.NoError(t, h.client.Start(ctx))

	h.client.Close()

	assert.Equal(t, websocket.StateIdle, h.client.ConnectionState())
	stored, err := h.slots.Get(ctx, database.SlotToken)
	require.NoError(t, err)
	assert.Equal(t, tok, stored)
}

// gatedAvatarSlots holds the first avatar write until release is closed.
type gatedAvatarSlots struct {
	*database.MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
	done    chan struct{}
}

func (g *gatedAvatarSlots) Set(ctx context.Context, slot, value string) error {
	if slot != database.SlotAvatar {
		return g.MemoryStore.Set(ctx, slot, value)
	}
	gated := false
	g.once.Do(func() { gated = true })
	if !gated {
		return g.MemoryStore.Set(ctx, slot, value)
	}
	close(g.entered)
	<-g.release
	defer close(g.done)
	return g.MemoryStore.Set(ctx, slot, value)
}

func TestForcedLogoutWinsOverPendingAvatarWrite(t *testing.T) {
	gate := &gatedAvatarSlots{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		done:    make(chan struct{}),
	}
	h := newHarnessWithSlots(t, nil, func(m *database.MemoryStore) database.SlotStore {
		gate.MemoryStore = m
		return gate
	})
	ctx := context.Background()
	require.NoError(t, h.slots.Set(ctx, database.SlotToken, token(t, time.Now().Add(time.Hour))))
	require.NoError(t, h.client.Start(ctx))
	h.run(t)

	h.transport.signals <- websocket.Signal{Kind: websocket.SignalConnected}
	h.push(t, models.EventMyProfile, models.Profile{UserID: "u1", Name: "An", Avatar: "/me.png"})
	<-gate.entered

	h.push(t, models.EventConnectError, models.ConnectErrorEvent{Message: "Unauthorized"})
	assert.Eventually(t, func() bool {
		return h.client.ConnectionState() == websocket.StateUnauthorized
	}, time.Second, 5*time.Millisecond)

	close(gate.release)
	<-gate.done

	assert.Eventually(t, func() bool {
		_, err := h.slots.Get(ctx, database.SlotToken)
		return err == database.ErrSlotEmpty
	}, time.Second, 5*time.Millisecond)
	_, err := h.slots.Get(ctx, database.SlotAvatar)
	assert.ErrorIs(t, err, database.ErrSlotEmpty)
}

func TestAvatarFromEndedSessionIsNotPersisted(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.slots.Set(ctx, database.SlotToken, token(t, time.Now().Add(time.Hour))))
	require.NoError(t, h.client.Start(ctx))
	session := h.client.conn.Session()
	require.NotNil(t, session)

	h.client.Logout()

	require.NoError(t, h.client.saveAvatar(ctx, session, "/me.png"))
	_, err := h.slots.Get(ctx, database.SlotAvatar)
	assert.ErrorIs(t, err, database.ErrSlotEmpty)
}
