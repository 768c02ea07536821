// Package realtime keeps a STOMP-over-WebSocket connection open and fans
// incoming messages out to per-destination handlers.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

const (
	TaskUpdates   = "/user/queue/task-updates"
	Notifications = "/user/queue/notifications"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Dialer opens the byte stream STOMP runs over.
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// WebSocketDialer dials url (ws:// or wss://) with the given Origin.
func WebSocketDialer(url, origin string) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		cfg, err := websocket.NewConfig(url, origin)
		if err != nil {
			return nil, fmt.Errorf("websocket config: %w", err)
		}
		return cfg.DialContext(ctx)
	}
}

// Handler receives the raw body of one message.
type Handler func(body []byte)

type Options struct {
	Dial Dialer
	// Token returns the bearer token sent with CONNECT; empty sends none.
	Token          func() string
	ReconnectDelay time.Duration
	// Heartbeat is offered in both directions; zero means 4s, negative disables it.
	Heartbeat    time.Duration
	Destinations []string
}

func (o *Options) fill() {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 5 * time.Second
	}
	if o.Heartbeat < 0 {
		o.Heartbeat = 0
	} else if o.Heartbeat == 0 {
		o.Heartbeat = 4 * time.Second
	}
	if len(o.Destinations) == 0 {
		o.Destinations = []string{TaskUpdates, Notifications}
	}
	if o.Token == nil {
		o.Token = func() string { return "" }
	}
}

type Client struct {
	logger *zap.Logger
	opts   Options

	mu        sync.Mutex
	state     State
	handlers  map[string]map[int]Handler
	listeners map[int]func(State)
	nextID    int
}

func New(logger *zap.Logger, opts Options) *Client {
	opts.fill()
	return &Client{
		logger:    logger,
		opts:      opts,
		handlers:  make(map[string]map[int]Handler),
		listeners: make(map[int]func(State)),
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Handle registers h for messages on destination.
func (c *Client) Handle(destination string, h Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	set, ok := c.handlers[destination]
	if !ok {
		set = make(map[int]Handler)
		c.handlers[destination] = set
	}
	set[id] = h
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers[destination], id)
		c.mu.Unlock()
	}
}

// OnStateChange registers fn for every state transition.
func (c *Client) OnStateChange(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Run connects and reconnects until ctx is done. Every failure, whether a
// dial error, a rejected CONNECT or a dropped connection, is followed by
// the same fixed delay.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		c.setState(Disconnected)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("push connection lost, retrying",
			zap.Error(err),
			zap.Duration("delay", c.opts.ReconnectDelay),
		)

		t := time.NewTimer(c.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	c.setState(Connecting)

	rwc, err := c.opts.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.Host("/"),
		stomp.ConnOpt.HeartBeat(c.opts.Heartbeat, c.opts.Heartbeat),
	}
	if token := c.opts.Token(); token != "" {
		opts = append(opts, stomp.ConnOpt.Header("Authorization", "Bearer "+token))
	}

	// Closing the stream is the only way to abort a CONNECT in progress.
	stop := context.AfterFunc(ctx, func() { rwc.Close() })
	conn, err := stomp.Connect(rwc, opts...)
	stop()
	if err != nil {
		rwc.Close()
		return fmt.Errorf("stomp connect: %w", err)
	}
	if err := ctx.Err(); err != nil {
		rwc.Close()
		return err
	}

	errc := make(chan error, len(c.opts.Destinations))
	for _, dest := range c.opts.Destinations {
		sub, err := conn.Subscribe(dest, stomp.AckAuto)
		if err != nil {
			conn.MustDisconnect()
			rwc.Close()
			return fmt.Errorf("subscribe %s: %w", dest, err)
		}
		go c.consume(dest, sub, errc)
	}

	c.setState(Connected)
	c.logger.Info("push connected", zap.Strings("destinations", c.opts.Destinations))

	select {
	case err = <-errc:
		conn.MustDisconnect()
	case <-ctx.Done():
		err = ctx.Err()
		c.disconnect(conn)
	}
	rwc.Close()
	return err
}

func (c *Client) consume(dest string, sub *stomp.Subscription, errc chan<- error) {
	for msg := range sub.C {
		if msg.Err != nil {
			errc <- msg.Err
			return
		}
		c.dispatch(dest, msg.Body)
	}
	errc <- errors.New("subscription closed: " + dest)
}

// disconnect says goodbye politely but does not wait long for the receipt.
// The caller closes the stream afterwards either way.
func (c *Client) disconnect(conn *stomp.Conn) {
	done := make(chan struct{})
	go func() {
		_ = conn.Disconnect()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		c.logger.Debug("push disconnect receipt timed out")
	}
}

func (c *Client) dispatch(dest string, body []byte) {
	c.mu.Lock()
	hs := make([]Handler, 0, len(c.handlers[dest]))
	for _, h := range c.handlers[dest] {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	for _, h := range hs {
		c.call(dest, h, body)
	}
}

func (c *Client) call(dest string, h Handler, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("push handler panicked", zap.String("destination", dest), zap.Any("panic", r))
		}
	}()
	h(body)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	ls := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		ls = append(ls, fn)
	}
	c.mu.Unlock()

	for _, fn := range ls {
		fn(s)
	}
}
