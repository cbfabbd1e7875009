package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"floorboard/internal/floorgateway"

	"github.com/rs/zerolog/log"
)

// SSEClient consumes a restaurant's change feed and implements Transport.
// Every logical channel rides the one underlying stream; the server
// interleaves booking and table events, and the client fans them into the
// cache by entity. Resume position is the cache's cursor, sent as
// Last-Event-ID.
type SSEClient struct {
	baseURL      string
	restaurantID string
	httpClient   *http.Client
	cache        *Cache

	// OnEvent fires after an accepted merge; OnHeartbeat on every frame
	// including pings; OnDown when the stream drops, taking every
	// registered channel with it. NewClient wires these to the Conn.
	OnEvent     func(floorgateway.ChangeEvent)
	OnHeartbeat func()
	OnDown      func(err error)

	mu       sync.Mutex
	cancel   context.CancelFunc
	channels map[string]struct{}
}

func NewSSEClient(baseURL, restaurantID string, cache *Cache) *SSEClient {
	return &SSEClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		restaurantID: restaurantID,
		httpClient:   &http.Client{},
		cache:        cache,
		channels:     map[string]struct{}{},
	}
}

// Subscribe registers the logical channel and opens the stream if it is not
// already running; later channels piggyback on the open stream. The
// connection error is synchronous; read failures after that surface through
// OnDown, which reports every registered channel lost.
func (c *SSEClient) Subscribe(ctx context.Context, channel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel] = struct{}{}
	if c.cancel != nil {
		return nil
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(streamCtx,
		http.MethodGet, c.baseURL+"/api/restaurants/"+c.restaurantID+"/events", nil)
	if err != nil {
		cancel()
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if v := c.cache.Version(); v > 0 {
		req.Header.Set("Last-Event-ID", fmt.Sprintf("%d", v))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("event stream status %d", resp.StatusCode)
	}

	c.cancel = cancel
	go c.readLoop(resp)
	return nil
}

// Ping checks server liveness out of band; the heartbeat watchdog calls it
// when the stream has gone quiet.
func (c *SSEClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz status %d", resp.StatusCode)
	}
	return nil
}

// Channels lists the logical channels registered on the stream, sorted.
func (c *SSEClient) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Close tears the stream down. The next Subscribe reopens it from the
// cache's cursor.
func (c *SSEClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *SSEClient) readLoop(resp *http.Response) {
	defer resp.Body.Close()
	rd := bufio.NewReader(resp.Body)
	for {
		name, data, err := readFrame(rd)
		if err != nil {
			c.mu.Lock()
			c.cancel = nil
			c.mu.Unlock()
			if c.OnDown != nil {
				c.OnDown(err)
			}
			return
		}
		if c.OnHeartbeat != nil {
			c.OnHeartbeat()
		}
		if name != "change" {
			continue
		}
		var ev floorgateway.ChangeEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			log.Warn().Err(err).Msg("bad change frame")
			continue
		}
		if c.cache.Apply(ev) && c.OnEvent != nil {
			c.OnEvent(ev)
		}
	}
}

// readFrame reads one SSE event: lines until the blank separator. Only the
// event name and data payload matter; the id line duplicates the version
// already inside the payload.
func readFrame(rd *bufio.Reader) (name, data string, err error) {
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if name != "" || data != "" {
				return name, data, nil
			}
			continue
		}
		if strings.HasPrefix(line, "event: ") {
			name = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}
