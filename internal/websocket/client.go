package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"chat-client/internal/config"
	"chat-client/internal/models"
	"chat-client/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

// Client is the gorilla/websocket Transport. It keeps one connection to
// the relay alive, reconnecting with exponential backoff until Close or
// until the relay refuses the credential.
type Client struct {
	url    string
	cfg    config.ServerConfig
	dialer *websocket.Dialer
	log    *logger.Logger

	signals chan Signal

	mu     sync.Mutex
	cancel context.CancelFunc
	send   chan models.Envelope
	wg     sync.WaitGroup
}

func NewClient(cfg config.ServerConfig, log *logger.Logger) *Client {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 54 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectMaxDelay < cfg.ReconnectDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectDelay
	}
	if log == nil {
		log = logger.GlobalLogger
	}

	return &Client{
		url: cfg.WebSocketURL,
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		log:     log.With("transport"),
		signals: make(chan Signal, 64),
	}
}

func (c *Client) Signals() <-chan Signal {
	return c.signals
}

func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(runCtx, token)
	return nil
}

// Send queues env on the live connection. Nothing is queued while the
// connection is down.
func (c *Client) Send(env models.Envelope) error {
	c.mu.Lock()
	send := c.send
	c.mu.Unlock()

	if send == nil {
		return ErrNotConnected
	}
	select {
	case send <- env:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the connection loop and waits for it to exit. Signals still
// buffered from the stopped loop are discarded. The Client can be
// connected again afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	c.wg.Wait()

	for {
		select {
		case <-c.signals:
		default:
			return nil
		}
	}
}

func (c *Client) run(ctx context.Context, token string) {
	defer c.wg.Done()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.ReconnectDelay
	b.MaxInterval = c.cfg.ReconnectMaxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		conn, err := c.dial(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrUnauthorized) {
				c.log.Warn("Handshake rejected: %v", err)
				c.emit(ctx, Signal{Kind: SignalUnauthorized, Err: err})
				return
			}
			delay := b.NextBackOff()
			c.log.Warn("Dial failed, retrying in %s: %v", delay, err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		b.Reset()
		c.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}

		c.emit(ctx, Signal{Kind: SignalDisconnected})
		if !sleep(ctx, b.NextBackOff()) {
			return
		}
	}
}

func (c *Client) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// serve runs one connection until it drops or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	connID := uuid.NewString()
	log := c.log.WithStr("conn", connID)

	send := make(chan models.Envelope, sendBufferSize)
	done := make(chan struct{})

	c.mu.Lock()
	c.send = send
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		c.mu.Lock()
		c.send = nil
		c.mu.Unlock()
		close(done)
		conn.Close()
	}()

	log.Info("Connected to %s", c.url)
	c.emit(ctx, Signal{Kind: SignalConnected})

	go c.writePump(conn, send, done, log)
	c.readPump(ctx, conn, log)
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn, log *logger.Logger) {
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Connection lost: %v", err)
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			log.Debug("Skipping undecodable frame: %v", err)
			continue
		}
		c.emit(ctx, Signal{Kind: SignalEvent, Event: env})
	}
}

func (c *Client) writePump(conn *websocket.Conn, send <-chan models.Envelope, done <-chan struct{}, log *logger.Logger) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case env := <-send:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := conn.WriteJSON(env); err != nil {
				log.Error("Write error: %v", err)
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) emit(ctx context.Context, sig Signal) {
	select {
	case c.signals <- sig:
	case <-ctx.Done():
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
