package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/conduit-lang/dispatch/internal/web/auth"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 64
)

// ErrClientClosed is returned by Send after the connection has closed
var ErrClientClosed = errors.New("websocket client closed")

// ErrSendBufferFull is returned by Send when the peer is not reading
var ErrSendBufferFull = errors.New("websocket send buffer full")

// Client is one upgraded connection. Frames are handled one at a time in
// arrival order; replies are queued and written by WritePump.
type Client struct {
	ID string

	conn    *websocket.Conn
	handler *Handler
	claims  *auth.Claims
	send    chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	connectedAt time.Time
}

func newClient(ctx context.Context, id string, conn *websocket.Conn, h *Handler, claims *auth.Claims) *Client {
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		ID:          id,
		conn:        conn,
		handler:     h,
		claims:      claims,
		send:        make(chan []byte, sendBuffer),
		ctx:         ctx,
		cancel:      cancel,
		connectedAt: time.Now(),
	}
}

// ReadPump reads frames until the connection fails or the client closes,
// handing each one to the handler.
func (c *Client) ReadPump() {
	defer func() {
		c.handler.hub.remove(c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.handler.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.handler.logger.Warn("websocket read failed",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
			}
			return
		}

		reply := c.handler.handle(c.ctx, c, message)
		if err := c.Send(reply); err != nil {
			c.handler.logger.Warn("websocket reply dropped",
				zap.String("client_id", c.ID),
				zap.String("id", reply.ID),
				zap.Error(err),
			)
			if errors.Is(err, ErrClientClosed) {
				return
			}
		}
	}
}

// WritePump writes queued replies and keepalive pings until the client
// closes, then sends a close frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Send queues a reply without blocking
func (c *Client) Send(reply *Reply) error {
	data, err := encodeReply(reply)
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops both pumps; WritePump sends the close frame
func (c *Client) Close() {
	c.closeOnce.Do(c.cancel)
}

// ConnectionDuration returns how long the client has been connected
func (c *Client) ConnectionDuration() time.Duration {
	return time.Since(c.connectedAt)
}
