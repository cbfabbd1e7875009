package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDegraded     State = "degraded"
)

// Transport opens the logical subscription channels and answers liveness
// probes. The SSE client implements it in production; tests script it.
type Transport interface {
	Subscribe(ctx context.Context, channel string) error
	Ping(ctx context.Context) error
}

type Config struct {
	Channels        []string
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	HeartbeatWindow time.Duration
}

func (c Config) backoffBase() time.Duration {
	if c.BackoffBase <= 0 {
		return time.Second
	}
	return c.BackoffBase
}

func (c Config) backoffCap() time.Duration {
	if c.BackoffCap <= 0 {
		return 30 * time.Second
	}
	return c.BackoffCap
}

func (c Config) heartbeatWindow() time.Duration {
	if c.HeartbeatWindow <= 0 {
		return 60 * time.Second
	}
	return c.HeartbeatWindow
}

// Status is the connection health snapshot the dashboard renders.
type Status struct {
	State             State     `json:"state"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	LastConnected     time.Time `json:"last_connected"`
	LastError         string    `json:"last_error,omitempty"`
	ActiveSubs        int       `json:"active_subscriptions"`
	TotalSubs         int       `json:"total_subscriptions"`
}

// Conn tracks one client's connection to the change feed: state machine,
// capped exponential backoff, heartbeat staleness, and per-subscription
// health. It never blocks callers; reconnects run in the background loop.
type Conn struct {
	transport Transport
	cfg       Config

	mu        sync.Mutex
	state     State
	attempts  int
	lastConn  time.Time
	lastErr   error
	active    map[string]bool
	lastEvent time.Time
	handlers  []func(Status)

	wake chan struct{}
	now  func() time.Time
}

func NewConn(t Transport, cfg Config) *Conn {
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{"bookings", "tables"}
	}
	return &Conn{
		transport: t,
		cfg:       cfg,
		state:     StateDisconnected,
		active:    map[string]bool{},
		wake:      make(chan struct{}, 1),
		now:       time.Now,
	}
}

// Connect attempts every logical subscription once. All channels up means
// connected with the attempt counter reset; a partial result is degraded; a
// total failure stays disconnected and burns one backoff attempt.
func (c *Conn) Connect(ctx context.Context) error {
	c.setState(StateConnecting, nil)

	var firstErr error
	got := 0
	for _, ch := range c.cfg.Channels {
		err := c.transport.Subscribe(ctx, ch)
		c.mu.Lock()
		c.active[ch] = err == nil
		c.mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		got++
	}

	c.mu.Lock()
	switch {
	case got == len(c.cfg.Channels):
		c.state = StateConnected
		c.attempts = 0
		c.lastConn = c.now()
		c.lastErr = nil
		c.lastEvent = c.now()
	case got > 0:
		c.state = StateDegraded
		c.attempts++
		c.lastErr = firstErr
	default:
		c.state = StateDisconnected
		c.attempts++
		c.lastErr = firstErr
	}
	st := c.statusLocked()
	c.mu.Unlock()
	c.notify(st)
	return firstErr
}

// NextRetryDelay is the capped exponential backoff for the current attempt
// count: base, 2x, 4x, ... up to the cap.
func (c *Conn) NextRetryDelay() time.Duration {
	c.mu.Lock()
	attempts := c.attempts
	c.mu.Unlock()
	return backoffDelay(c.cfg.backoffBase(), c.cfg.backoffCap(), attempts)
}

func backoffDelay(base, cap time.Duration, attempt int) time.Duration {
	if attempt <= 1 {
		return base
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

// Reconnect requests an immediate attempt, superseding any pending backoff
// timer. Safe from any goroutine, never blocks.
func (c *Conn) Reconnect() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// NetworkOnline is the offline-to-online fast path: skip the backoff timer
// and try now.
func (c *Conn) NetworkOnline() {
	log.Debug().Msg("network online, forcing reconnect")
	c.Reconnect()
}

// MarkEvent records feed activity. Every change event and server ping counts
// as a heartbeat.
func (c *Conn) MarkEvent() {
	c.mu.Lock()
	c.lastEvent = c.now()
	c.mu.Unlock()
}

// MarkChannelDown flags one subscription lost and degrades the connection.
// The background loop picks up the reconnect.
func (c *Conn) MarkChannelDown(channel string, err error) {
	c.mu.Lock()
	c.active[channel] = false
	if c.state == StateConnected {
		c.state = StateDegraded
	}
	c.attempts++
	c.lastErr = err
	st := c.statusLocked()
	c.mu.Unlock()
	c.notify(st)
	c.Reconnect()
}

// MarkDown flags the whole connection lost: every subscription down, one
// backoff attempt burned. The transport calls it when the shared stream
// drops.
func (c *Conn) MarkDown(err error) {
	c.mu.Lock()
	for ch := range c.active {
		c.active[ch] = false
	}
	c.state = StateDisconnected
	c.attempts++
	c.lastErr = err
	st := c.statusLocked()
	c.mu.Unlock()
	c.notify(st)
	c.Reconnect()
}

// CheckHealth probes a connection that has been silent past the heartbeat
// window. A dead socket is demoted to degraded instead of being trusted.
func (c *Conn) CheckHealth(ctx context.Context) {
	c.mu.Lock()
	quiet := c.state == StateConnected && c.now().Sub(c.lastEvent) > c.cfg.heartbeatWindow()
	c.mu.Unlock()
	if !quiet {
		return
	}
	if err := c.transport.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("heartbeat ping failed, demoting connection")
		c.mu.Lock()
		c.state = StateDegraded
		c.attempts++
		c.lastErr = err
		st := c.statusLocked()
		c.mu.Unlock()
		c.notify(st)
		c.Reconnect()
		return
	}
	c.MarkEvent()
}

// Run drives reconnection until ctx ends: connect, then wait out the backoff
// delay, a manual wake, or the heartbeat check interval, whichever comes
// first.
func (c *Conn) Run(ctx context.Context) {
	healthTick := time.NewTicker(c.cfg.heartbeatWindow() / 2)
	defer healthTick.Stop()

	for {
		c.mu.Lock()
		healthy := c.state == StateConnected
		c.mu.Unlock()

		if !healthy {
			_ = c.Connect(ctx)
			c.mu.Lock()
			healthy = c.state == StateConnected
			c.mu.Unlock()
		}

		var retry <-chan time.Time
		var timer *time.Timer
		if !healthy {
			timer = time.NewTimer(c.NextRetryDelay())
			retry = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-c.wake:
		case <-retry:
		case <-healthTick.C:
			c.CheckHealth(ctx)
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Conn) OnStateChange(fn func(Status)) {
	c.mu.Lock()
	c.handlers = append(c.handlers, fn)
	c.mu.Unlock()
}

func (c *Conn) statusLocked() Status {
	st := Status{
		State:             c.state,
		ReconnectAttempts: c.attempts,
		LastConnected:     c.lastConn,
		TotalSubs:         len(c.cfg.Channels),
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	for _, up := range c.active {
		if up {
			st.ActiveSubs++
		}
	}
	return st
}

func (c *Conn) setState(s State, err error) {
	c.mu.Lock()
	c.state = s
	if err != nil {
		c.lastErr = err
	}
	st := c.statusLocked()
	c.mu.Unlock()
	c.notify(st)
}

func (c *Conn) notify(st Status) {
	c.mu.Lock()
	handlers := make([]func(Status), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()
	for _, fn := range handlers {
		fn(st)
	}
}
