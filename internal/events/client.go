package events

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is a connection to the realtime endpoint of a kanban server.
// It keeps track of joined boards and re-joins them after a reconnect.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	log    logrus.FieldLogger

	mu     sync.Mutex // protects conn, boards and closed
	conn   *websocket.Conn
	boards map[int]bool
	closed bool

	writeMu sync.Mutex // one concurrent writer per connection

	// Reconnection configuration
	maxRetries  int
	baseDelay   time.Duration
	readTimeout time.Duration

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithLogger sets the logger used for connection diagnostics
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.log = l }
}

// WithRetry sets the reconnect attempts and the initial backoff delay
func WithRetry(maxRetries int, baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// WithReadTimeout sets how long the client waits for any frame (the server
// pings periodically) before treating the connection as dead
func WithReadTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.readTimeout = d }
}

// NewClient creates a new client for serverURL but does not connect.
// serverURL is the HTTP base URL of the server; token is the bearer credential.
func NewClient(serverURL, token string, opts ...ClientOption) (*Client, error) {
	wsURL, err := WebsocketURL(serverURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		url:         wsURL,
		header:      header,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:         logrus.StandardLogger(),
		boards:      make(map[int]bool),
		maxRetries:  5,
		baseDelay:   1 * time.Second,
		readTimeout: 90 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WebsocketURL converts an http(s) base URL into the ws(s) URL of the
// realtime endpoint
func WebsocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme", serverURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Connect dials the server and re-joins every board joined so far.
func (c *Client) Connect(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return ClassifyConnectError(err, resp)
	}

	c.mu.Lock()
	c.conn = conn
	boards := make([]int, 0, len(c.boards))
	for id := range c.boards {
		boards = append(boards, id)
	}
	c.mu.Unlock()

	for _, id := range boards {
		if err := c.write(Message{Version: ProtocolVersion, Type: MsgJoin, BoardID: id}); err != nil {
			return fmt.Errorf("failed to re-join board %d: %w", id, err)
		}
	}
	return nil
}

// Join subscribes to a board's channel. The board is remembered and
// re-joined after reconnects.
func (c *Client) Join(boardID int) error {
	c.mu.Lock()
	c.boards[boardID] = true
	c.mu.Unlock()
	return c.write(Message{Version: ProtocolVersion, Type: MsgJoin, BoardID: boardID})
}

// Leave unsubscribes from a board's channel
func (c *Client) Leave(boardID int) error {
	c.mu.Lock()
	delete(c.boards, boardID)
	c.mu.Unlock()
	return c.write(Message{Version: ProtocolVersion, Type: MsgLeave, BoardID: boardID})
}

func (c *Client) write(msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected to server")
	}

	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	// Set a short write deadline to detect dead connections
	if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Listen starts reading events from the server.
// It returns a channel that receives events and handles reconnection automatically;
// after a successful reconnect one EventResync is delivered per joined board.
// The channel is closed when ctx is done, the client is closed or reconnection fails.
func (c *Client) Listen(ctx context.Context) (<-chan Event, error) {
	c.mu.Lock()
	connected := c.conn != nil
	c.mu.Unlock()
	if !connected {
		return nil, fmt.Errorf("not connected to server")
	}

	eventChan := make(chan Event, 64)
	go c.listenLoop(ctx, eventChan)
	return eventChan, nil
}

func (c *Client) listenLoop(ctx context.Context, eventChan chan Event) {
	defer close(eventChan)

	for {
		err := c.readEvents(ctx, eventChan)
		if ctx.Err() != nil || c.isClosed() {
			return
		}
		c.log.WithError(err).Warn("connection lost, reconnecting")

		if !c.reconnect(ctx) {
			c.log.Errorf("failed to reconnect after %d attempts, giving up", c.maxRetries)
			return
		}
		c.log.Info("reconnected to server")

		for _, id := range c.joinedBoards() {
			select {
			case eventChan <- Event{Type: EventResync, BoardID: id, Timestamp: time.Now().UTC()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// readEvents reads frames until the connection fails
func (c *Client) readEvents(ctx context.Context, eventChan chan Event) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("connection closed")
	}

	for {
		// the server pings well inside this window
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			c.log.WithError(err).Debug("dropping undecodable frame")
			continue
		}

		switch msg.Type {
		case MsgEvent:
			if msg.Event == nil {
				continue
			}
			select {
			case eventChan <- *msg.Event:
			case <-ctx.Done():
				return ctx.Err()
			}

		case MsgPing:
			if err := c.write(Message{Version: ProtocolVersion, Type: MsgPong}); err != nil {
				c.log.WithError(err).Debug("failed to send pong")
			}

		case MsgError:
			c.log.WithField("board_id", msg.BoardID).Warnf("server error: %s", msg.Error)

		case MsgJoined, MsgLeft:
			c.log.WithFields(logrus.Fields{"type": msg.Type, "board_id": msg.BoardID}).Debug("subscription changed")
		}
	}
}

// reconnect attempts to reconnect with exponential backoff.
// It tries up to maxRetries times, doubling the delay each time.
func (c *Client) reconnect(ctx context.Context) bool {
	delay := c.baseDelay

	for i := 0; i < c.maxRetries; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-c.ctx.Done():
			return false
		case <-time.After(delay):
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()

			err := c.Connect(ctx)
			if err == nil {
				return true
			}
			c.log.WithError(err).Debugf("reconnection attempt %d/%d failed, retrying in %v", i+1, c.maxRetries, delay)
			delay *= 2 // 1s, 2s, 4s, 8s, 16s
		}
	}

	return false
}

func (c *Client) joinedBoards() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.boards))
	for id := range c.boards {
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the connection and stops all goroutines.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()

	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}
