// Package websocket implements the realtime transport over websockets.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/realtime"
)

// SessionHeader carries the client session id on the handshake.
const SessionHeader = "X-Packlaunch-Session"

const defaultHandshakeTimeout = 10 * time.Second

// DialerConfig is the configuration for the websocket dialer.
type DialerConfig struct {
	// URL is the websocket endpoint (ws:// or wss://).
	URL string
	// SessionID identifies this client on the server, generated if empty.
	SessionID string
	// Header is sent on every handshake.
	Header           http.Header
	HandshakeTimeout time.Duration
	Logger           log.Logger
}

func (c *DialerConfig) defaults() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	if c.Header == nil {
		c.Header = http.Header{}
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "realtime.WebsocketDialer"})
	return nil
}

// Dialer opens websocket connections, it implements realtime.Dialer.
type Dialer struct {
	url       string
	sessionID string
	header    http.Header
	dialer    *websocket.Dialer
	logger    log.Logger
}

var _ realtime.Dialer = &Dialer{}

// NewDialer creates a new websocket dialer.
func NewDialer(cfg DialerConfig) (*Dialer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	header := cfg.Header.Clone()
	header.Set(SessionHeader, cfg.SessionID)

	return &Dialer{
		url:       cfg.URL,
		sessionID: cfg.SessionID,
		header:    header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: cfg.Logger,
	}, nil
}

// SessionID returns the client session id sent to the server.
func (d *Dialer) SessionID() string { return d.sessionID }

// Dial opens a new websocket connection.
func (d *Dialer) Dial(ctx context.Context) (realtime.Conn, error) {
	ws, resp, err := d.dialer.DialContext(ctx, d.url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("could not dial %s (status %d): %w", d.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("could not dial %s: %w", d.url, err)
	}

	d.logger.Debugf("dialed %s", d.url)
	return NewConn(ws, d.logger), nil
}

// Conn adapts a websocket connection to realtime.Conn.
type Conn struct {
	ws      *websocket.Conn
	logger  log.Logger
	writeMu sync.Mutex
	close   sync.Once
}

var _ realtime.Conn = &Conn{}

// NewConn wraps a websocket connection.
func NewConn(ws *websocket.Conn, logger log.Logger) *Conn {
	if logger == nil {
		logger = log.Noop
	}
	return &Conn{ws: ws, logger: logger}
}

// ReadMessage reads the next JSON envelope. Frames that are not an envelope are
// skipped, only transport errors are returned. Cancelling ctx does not interrupt
// the read, the connection must be closed for that.
func (c *Conn) ReadMessage(ctx context.Context) (model.Envelope, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return model.Envelope{}, err
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warningf("discarding malformed frame: %s", err)
			continue
		}
		if env.Type == "" {
			c.logger.Debugf("discarding frame without message type")
			continue
		}
		return env, nil
	}
}

// WriteMessage writes a JSON envelope.
func (c *Conn) WriteMessage(ctx context.Context, env model.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
		defer func() { _ = c.ws.SetWriteDeadline(time.Time{}) }()
	}
	return c.ws.WriteJSON(env)
}

// Close closes the connection, it is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.close.Do(func() {
		// WriteControl is safe to use concurrently with the other writers.
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}
