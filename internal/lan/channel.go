package lan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/dns"
	"github.com/BioHazard786/SpaceLink/cli/internal/link"
	"github.com/BioHazard786/SpaceLink/cli/internal/signaling"
	"github.com/gorilla/websocket"
)

const (
	// Path is the host's local network control endpoint.
	Path = "/ws"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// ErrSendBufferFull is returned when commands are produced faster than the
// connection drains them.
var ErrSendBufferFull = errors.New("lan channel send buffer full")

// Reply is the host's answer to each executed command.
type Reply struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the host executed the command.
func (r Reply) OK() bool {
	return r.Status != "error"
}

// Channel is a control channel over the host's WebSocket endpoint. Senders
// writing to it should encode with Encode.
type Channel struct {
	conn     *websocket.Conn
	logger   *slog.Logger
	outgoing chan []byte
	replies  chan Reply
	done     chan struct{}

	mu        sync.Mutex
	state     link.ChannelState
	onClose   func()
	closeOnce sync.Once
}

// URL derives the WebSocket endpoint from a server address.
func URL(server string) (string, error) {
	base, err := signaling.BaseURL(server)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(base + Path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// Dial opens the control endpoint of server.
func Dial(ctx context.Context, server string, logger *slog.Logger) (*Channel, error) {
	endpoint, err := URL(server)
	if err != nil {
		return nil, link.NewError("dial lan", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = dns.DialContext

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, link.Cause("dial lan", link.ErrTransportSetupFailed, err)
	}

	c := &Channel{
		conn:     conn,
		logger:   logger.With("module", "lan", "url", endpoint),
		outgoing: make(chan []byte, sendBuffer),
		replies:  make(chan Reply, sendBuffer),
		done:     make(chan struct{}),
		state:    link.ChannelStateOpen,
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	c.logger.Debug("lan channel open")
	return c, nil
}

func (c *Channel) Label() string { return "lan" }

func (c *Channel) ReadyState() link.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send queues data for the write pump.
func (c *Channel) Send(data []byte) error {
	if c.ReadyState() != link.ChannelStateOpen {
		return link.ErrChannelNotReady
	}
	select {
	case c.outgoing <- data:
		return nil
	case <-c.done:
		return link.ErrChannelNotReady
	default:
		return ErrSendBufferFull
	}
}

// OnOpen runs fn immediately; a dialed channel is already open.
func (c *Channel) OnOpen(fn func()) {
	if c.ReadyState() == link.ChannelStateOpen {
		go fn()
	}
}

func (c *Channel) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// Replies delivers the host's per-command replies. It is closed when the
// connection ends.
func (c *Channel) Replies() <-chan Reply {
	return c.replies
}

// Close sends a close frame and releases the connection.
func (c *Channel) Close() error {
	c.shutdown()
	return nil
}

func (c *Channel) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = link.ChannelStateClosed
		fn := c.onClose
		c.mu.Unlock()

		close(c.done)
		if fn != nil {
			fn()
		}
	})
}

func (c *Channel) readPump() {
	defer func() {
		c.shutdown()
		c.conn.Close()
		close(c.replies)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("lan channel read failed", "error", err)
			}
			return
		}

		var reply Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			c.logger.Debug("ignoring non-reply message", "error", err)
			continue
		}
		if !reply.OK() {
			c.logger.Warn("host rejected command", "message", reply.Message)
		}

		select {
		case c.replies <- reply:
		default:
			c.logger.Debug("reply dropped, nobody is reading")
		}
	}
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("lan channel write failed", "error", err)
				c.shutdown()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}

		case <-c.done:
			c.drain()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain flushes commands queued before Close.
func (c *Channel) drain() {
	for {
		select {
		case data := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Flush waits until the write pump has taken every queued command.
func (c *Channel) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for len(c.outgoing) > 0 {
		select {
		case <-c.done:
			return link.ErrTransportDisconnected
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// AwaitReply waits for the next reply from the host.
func (c *Channel) AwaitReply(ctx context.Context) (Reply, error) {
	select {
	case reply, ok := <-c.replies:
		if !ok {
			return Reply{}, link.WrapError("await reply", link.ErrTransportDisconnected, "connection closed")
		}
		return reply, nil
	case <-ctx.Done():
		return Reply{}, fmt.Errorf("await reply: %w", ctx.Err())
	}
}
