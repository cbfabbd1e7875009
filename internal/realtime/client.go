package realtime

import (
	"context"

	"floorboard/internal/floorgateway"
)

// Client is the assembled change-feed consumer: an SSE transport feeding a
// local cache, supervised by a Conn. NewClient does the wiring; callers run
// it and read floor state from the cache.
type Client struct {
	cache *Cache
	sse   *SSEClient
	conn  *Conn
}

func NewClient(baseURL, restaurantID string, cfg Config) *Client {
	cache := NewCache()
	sse := NewSSEClient(baseURL, restaurantID, cache)
	conn := NewConn(sse, cfg)
	sse.OnHeartbeat = conn.MarkEvent
	sse.OnDown = conn.MarkDown
	return &Client{cache: cache, sse: sse, conn: conn}
}

// Run supervises the connection until ctx ends, then closes the stream.
func (c *Client) Run(ctx context.Context) {
	c.conn.Run(ctx)
	c.sse.Close()
}

// Connect attempts every subscription once, synchronously. Run retries on
// its own; Connect is for callers that want the first attempt's error.
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Connect(ctx)
}

// Cache exposes the merged floor state and the resume cursor.
func (c *Client) Cache() *Cache {
	return c.cache
}

func (c *Client) Status() Status {
	return c.conn.Status()
}

func (c *Client) OnStateChange(fn func(Status)) {
	c.conn.OnStateChange(fn)
}

// OnEvent registers the callback fired after each accepted merge.
func (c *Client) OnEvent(fn func(floorgateway.ChangeEvent)) {
	c.sse.OnEvent = fn
}

// NetworkOnline forwards the browser's online signal to the supervisor.
func (c *Client) NetworkOnline() {
	c.conn.NetworkOnline()
}
