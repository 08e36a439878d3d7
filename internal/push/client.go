package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/logging"
)

const (
	// SocketPath is the host's raw websocket endpoint
	SocketPath = "/sockjs/websocket"

	// DefaultReconnectDelay is the initial delay before reconnecting
	DefaultReconnectDelay = 1 * time.Second

	// DefaultMaxReconnectDelay caps the reconnect backoff
	DefaultMaxReconnectDelay = 30 * time.Second

	// DefaultStableAfter is how long a silent connection must last before
	// the reconnect backoff resets
	DefaultStableAfter = 30 * time.Second

	// DefaultHandshakeTimeout bounds the websocket handshake
	DefaultHandshakeTimeout = 10 * time.Second
)

// errReauth ends a connection whose session the host no longer accepts
var errReauth = errors.New("host requested re-authentication")

// SessionSource produces the session used to authenticate the socket.
// *hostapi.Client satisfies it.
type SessionSource interface {
	Login(ctx context.Context) (*hostapi.Session, error)
}

// ConnectionStatus describes the push channel connection
type ConnectionStatus struct {
	Connected    bool
	Reconnecting bool
	LastError    string
	LastMessage  time.Time
}

// Client keeps a websocket connection to the host open and dispatches
// plugin messages to subscribers. Handlers run one at a time on the
// reader goroutine, so messages are delivered in arrival order.
type Client struct {
	// URL is the websocket endpoint (ws://host/sockjs/websocket)
	URL string

	// Header is sent with the handshake
	Header http.Header

	// Dialer opens the websocket
	Dialer *websocket.Dialer

	// ReconnectDelay is the initial delay before reconnecting
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential reconnect backoff
	MaxReconnectDelay time.Duration

	// StableAfter resets the backoff for connections that delivered nothing
	StableAfter time.Duration

	sessions SessionSource

	mu       sync.Mutex
	handlers []Handler
	status   ConnectionStatus
}

// SocketURL converts a host base URL into its websocket endpoint
func SocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid host URL %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + SocketPath
	return u.String(), nil
}

// NewClient creates a push client for the host at baseURL
func NewClient(baseURL, apiKey string, sessions SessionSource) (*Client, error) {
	wsURL, err := SocketURL(baseURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if apiKey != "" {
		header.Set(hostapi.APIKeyHeader, apiKey)
	}

	return &Client{
		URL:               wsURL,
		Header:            header,
		Dialer:            &websocket.Dialer{HandshakeTimeout: DefaultHandshakeTimeout},
		ReconnectDelay:    DefaultReconnectDelay,
		MaxReconnectDelay: DefaultMaxReconnectDelay,
		StableAfter:       DefaultStableAfter,
		sessions:          sessions,
	}, nil
}

// Subscribe adds a handler for plugin messages. Handlers must not block.
func (c *Client) Subscribe(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Run connects and reads until ctx is done, reconnecting with
// exponential backoff whenever the connection fails or drops. The delay
// only resets after a connection delivered a message or stayed up for
// StableAfter.
func (c *Client) Run(ctx context.Context) error {
	delay := c.ReconnectDelay

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.setDisconnected(err)
			logging.Warn("Push channel connection failed",
				zap.String("url", c.URL),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			)
		} else {
			connectedAt := time.Now()
			delivered, err := c.readLoop(ctx, conn)
			if ctx.Err() != nil {
				c.setDisconnected(nil)
				return nil
			}
			c.setDisconnected(err)
			logging.LogConnection(c.URL, "disconnected")

			if delivered || time.Since(connectedAt) >= c.StableAfter {
				delay = c.ReconnectDelay
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.MaxReconnectDelay {
			delay = c.MaxReconnectDelay
		}
	}
}

// connect logs in, dials the socket and authenticates it
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	session, err := c.sessions.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	conn, _, err := c.Dialer.DialContext(ctx, c.URL, c.Header)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if err := conn.WriteJSON(map[string]string{"auth": session.AuthToken()}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("auth failed: %w", err)
	}

	c.mu.Lock()
	c.status.Connected = true
	c.status.Reconnecting = false
	c.status.LastError = ""
	c.mu.Unlock()

	logging.LogConnection(c.URL, "connected")
	return conn, nil
}

// readLoop dispatches frames until the connection fails or ctx is done.
// delivered reports whether any plugin message was dispatched.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) (delivered bool, err error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()
	defer func() { _ = conn.Close() }()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("Push channel read error", zap.Error(err))
			}
			return delivered, err
		}

		f, err := decodeFrame(data)
		if err != nil {
			logging.Debug("Ignoring undecodable push frame", zap.Error(err))
			continue
		}
		if f.ReauthRequired != nil {
			return delivered, errReauth
		}

		msg, ok, _ := f.message()
		if !ok {
			continue
		}

		c.mu.Lock()
		c.status.LastMessage = time.Now()
		handlers := append([]Handler(nil), c.handlers...)
		c.mu.Unlock()

		logging.LogPushMessage(msg.Plugin, msg.Type, msg.Payload)
		for _, h := range handlers {
			h(msg)
		}
		delivered = true
	}
}

func (c *Client) setDisconnected(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Connected = false
	c.status.Reconnecting = err != nil
	if err != nil {
		c.status.LastError = err.Error()
	}
}
