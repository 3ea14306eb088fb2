package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxInboundMessage = 4096

// Client is one subscriber of the config stream. The stream is
// server-to-client only; inbound frames other than control frames are discarded.
type Client struct {
	id           string
	ws           *websocket.Conn
	logger       *zap.Logger
	writeTimeout time.Duration
	readTimeout  time.Duration
	onClose      func(*Client)

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, conn *websocket.Conn, buffer int, writeTimeout, readTimeout time.Duration, logger *zap.Logger, onClose func(*Client)) *Client {
	return &Client{
		id:           id,
		ws:           conn,
		logger:       logger,
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
		onClose:      onClose,
		send:         make(chan []byte, buffer),
	}
}

// ID returns the subscriber identifier used in logs.
func (c *Client) ID() string {
	return c.id
}

// Start runs the write pump in the background and the read pump until the peer goes away.
func (c *Client) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	}()

	c.ws.SetReadLimit(maxInboundMessage)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.logger.Debug("stream subscriber read closed", zap.String("client_id", c.id), zap.Error(err))
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	defer c.ws.Close()

	for {
		select {
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("stream write failed", zap.String("client_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

// Send enqueues msg without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *Client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Ping sends a ping control frame. Safe to call concurrently with the write pump.
func (c *Client) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

// close stops the write pump after it drains queued messages.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
