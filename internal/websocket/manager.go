package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chat-client/internal/auth"
	"chat-client/internal/models"
	"chat-client/pkg/logger"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateUnauthorized State = "unauthorized"
	StateDisconnected State = "disconnected"
)

var (
	ErrSessionExpired = errors.New("session is missing or expired")
	ErrAlreadyOpen    = errors.New("connection already open")
)

// EventDispatcher receives relay events while the connection is up. An
// error wrapping auth.ErrInvalidCredential means the relay rejected the
// session; any other error is only logged.
type EventDispatcher interface {
	Dispatch(env models.Envelope) error
}

type ManagerConfig struct {
	Transport  Transport
	Dispatcher EventDispatcher
	// Teardown discards all per-session state. forced is true when the
	// relay or the REST API rejected the credential.
	Teardown func(forced bool)
	Logger   *logger.Logger
	Now      func() time.Time
}

// Manager owns the connection lifecycle: it opens the transport for a
// valid session, reacts to transport signals, and gates outbound intents
// on the connected state.
type Manager struct {
	transport  Transport
	dispatcher EventDispatcher
	teardown   func(forced bool)
	log        *logger.Logger
	now        func() time.Time

	// dispatchMu is held while an event is applied and while the manager
	// leaves a connected session, so teardown never interleaves with a
	// handler.
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	session   *auth.Session
	listeners []func(from, to State)
}

func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		transport:  cfg.Transport,
		dispatcher: cfg.Dispatcher,
		teardown:   cfg.Teardown,
		log:        cfg.Logger,
		now:        cfg.Now,
		state:      StateIdle,
	}
	if m.teardown == nil {
		m.teardown = func(bool) {}
	}
	if m.log == nil {
		m.log = logger.GlobalLogger
	}
	m.log = m.log.With("connection")
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session returns the session the connection was opened with, or nil.
func (m *Manager) Session() *auth.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// OnStateChange registers fn to be called after every transition.
func (m *Manager) OnStateChange(fn func(from, to State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Open starts connecting with session. An invalid or expired session is
// refused and the manager stays idle.
func (m *Manager) Open(ctx context.Context, session *auth.Session) error {
	if !auth.IsValid(session, m.now()) {
		m.log.Info("Not connecting: %v", ErrSessionExpired)
		return ErrSessionExpired
	}

	m.mu.Lock()
	if m.state != StateIdle && m.state != StateUnauthorized {
		m.mu.Unlock()
		return ErrAlreadyOpen
	}
	from := m.state
	m.state = StateConnecting
	m.session = session
	m.mu.Unlock()
	m.notify(from, StateConnecting)

	if err := m.transport.Connect(ctx, session.Token); err != nil {
		m.mu.Lock()
		m.state = StateIdle
		m.session = nil
		m.mu.Unlock()
		m.notify(StateConnecting, StateIdle)
		return fmt.Errorf("failed to start transport: %w", err)
	}

	m.log.Info("Connecting as %s", session.UserID)
	return nil
}

// Run consumes transport signals until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	signals := m.transport.Signals()
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			m.HandleSignal(sig)
		}
	}
}

// HandleSignal applies one transport signal.
func (m *Manager) HandleSignal(sig Signal) {
	switch sig.Kind {
	case SignalConnected:
		m.handleConnected()

	case SignalDisconnected:
		m.mu.Lock()
		if m.state != StateConnected {
			m.mu.Unlock()
			return
		}
		m.state = StateDisconnected
		m.mu.Unlock()
		m.log.Warn("Disconnected, waiting for reconnect")
		m.notify(StateConnected, StateDisconnected)

	case SignalUnauthorized:
		reason := "unauthorized"
		if sig.Err != nil {
			reason = sig.Err.Error()
		}
		m.ForceLogout(reason)

	case SignalEvent:
		m.dispatch(sig.Event)
	}
}

func (m *Manager) dispatch(env models.Envelope) {
	if m.dispatcher == nil {
		return
	}

	m.dispatchMu.Lock()
	if state := m.State(); state != StateConnected {
		m.dispatchMu.Unlock()
		m.log.Debug("Dropping %s received while %s", env.Event, state)
		return
	}
	err := m.dispatcher.Dispatch(env)
	m.dispatchMu.Unlock()

	switch {
	case errors.Is(err, auth.ErrInvalidCredential):
		m.ForceLogout(err.Error())
	case err != nil:
		m.log.Debug("Event %s not applied: %v", env.Event, err)
	}
}

func (m *Manager) handleConnected() {
	m.mu.Lock()
	from := m.state
	if from != StateConnecting && from != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateConnected
	m.mu.Unlock()
	m.notify(from, StateConnected)

	if err := m.send(models.EventGetRooms, nil); err != nil {
		m.log.Warn("Failed to request rooms: %v", err)
	}
	if from == StateConnecting {
		if err := m.send(models.EventGetProfile, nil); err != nil {
			m.log.Warn("Failed to request profile: %v", err)
		}
		m.log.Info("Connected")
		return
	}
	m.log.Info("Reconnected")
}

// Emit sends an intent to the relay. While not connected the intent is
// dropped and ErrNotConnected returned; nothing is queued for later.
func (m *Manager) Emit(event models.EventType, payload any) error {
	if state := m.State(); state != StateConnected {
		m.log.Debug("Dropping %s while %s", event, state)
		return ErrNotConnected
	}
	return m.send(event, payload)
}

func (m *Manager) send(event models.EventType, payload any) error {
	env, err := models.NewEnvelope(event, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}
	env.ID = uuid.NewString()
	return m.transport.Send(env)
}

// ForceLogout handles a rejected credential: the connection is closed and
// every piece of session state is discarded.
func (m *Manager) ForceLogout(reason string) {
	m.dispatchMu.Lock()
	m.mu.Lock()
	from := m.state
	switch from {
	case StateConnecting, StateConnected, StateDisconnected:
	default:
		m.mu.Unlock()
		m.dispatchMu.Unlock()
		return
	}
	m.state = StateUnauthorized
	m.session = nil
	m.mu.Unlock()
	m.dispatchMu.Unlock()

	m.log.Warn("Forced logout: %s", reason)
	if err := m.transport.Close(); err != nil {
		m.log.Error("Error closing transport: %v", err)
	}
	m.teardown(true)
	m.notify(from, StateUnauthorized)
}

// Close ends the session voluntarily and returns to idle.
func (m *Manager) Close() {
	from := m.leave()

	if err := m.transport.Close(); err != nil {
		m.log.Error("Error closing transport: %v", err)
	}
	m.teardown(false)
	if from != StateIdle {
		m.notify(from, StateIdle)
	}
}

// Shutdown closes the connection on process exit. Unlike Close it keeps
// the persisted session for the next start.
func (m *Manager) Shutdown() {
	from := m.leave()

	if err := m.transport.Close(); err != nil {
		m.log.Error("Error closing transport: %v", err)
	}
	if from != StateIdle {
		m.notify(from, StateIdle)
	}
}

// leave drops the session and returns to idle. Once it returns no further
// event reaches the dispatcher.
func (m *Manager) leave() State {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.state
	m.state = StateIdle
	m.session = nil
	return from
}

func (m *Manager) notify(from, to State) {
	m.mu.RLock()
	listeners := append([]func(from, to State){}, m.listeners...)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(from, to)
	}
}
