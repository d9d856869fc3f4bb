package wstransport

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport"
)

// Client is a satellite's link to the coordinator hub.
type Client struct {
	tag  string
	conn *websocket.Conn
	log  logger.Logger
}

// Dial connects to the hub at rawURL as the satellite tagged tag.
func Dial(ctx context.Context, rawURL, tag string, log logger.Logger) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse coordinator url: %w", err)
	}
	q := u.Query()
	q.Set(TagParam, tag)
	u.RawQuery = q.Encode()

	c, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", rawURL, err)
	}
	c.SetReadLimit(readLimit)

	log.Info(ctx, "connected to coordinator", "url", rawURL, "tag", tag)
	return &Client{tag: tag, conn: c, log: log}, nil
}

// Tag returns the tag this client announced.
func (c *Client) Tag() string { return c.tag }

// Send writes msg to the coordinator.
func (c *Client) Send(ctx context.Context, msg transport.Message) error {
	return wsjson.Write(ctx, c.conn, msg)
}

// Serve hands inbound messages to h until the connection closes or ctx
// ends. A normal or going-away closure returns nil.
func (c *Client) Serve(ctx context.Context, h transport.Handler) error {
	for {
		var msg transport.Message
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			if isClosure(err) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read from coordinator: %w", err)
		}
		h.HandleMessage(ctx, msg, c)
	}
}

// Close performs a normal websocket closure.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "satellite closing")
}

var _ transport.Sender = (*Client)(nil)
