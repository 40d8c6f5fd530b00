package websocket

import (
	"context"
	"errors"

	"chat-client/internal/models"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrSendBufferFull = errors.New("send buffer full")
	ErrAlreadyRunning = errors.New("transport already running")
	ErrUnauthorized   = errors.New("relay rejected credential")
)

type SignalKind int

const (
	SignalConnected SignalKind = iota
	SignalDisconnected
	SignalUnauthorized
	SignalEvent
)

func (k SignalKind) String() string {
	switch k {
	case SignalConnected:
		return "connected"
	case SignalDisconnected:
		return "disconnected"
	case SignalUnauthorized:
		return "unauthorized"
	case SignalEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Signal is one notification from the transport to the Manager.
type Signal struct {
	Kind  SignalKind
	Event models.Envelope
	Err   error
}

// Transport is the persistent connection to the relay. Connect returns as
// soon as the connection loop is started; progress is reported on Signals.
type Transport interface {
	Connect(ctx context.Context, token string) error
	Send(env models.Envelope) error
	Signals() <-chan Signal
	Close() error
}
