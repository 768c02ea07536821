// Package notify delivers short user-facing messages (toasts).
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

type Message struct {
	Level Level
	Text  string
	At    time.Time
}

type Notifier interface {
	Info(text string)
	Error(text string)
}

// Log writes notifications to a zap logger. The CLI uses it when there is no
// screen to show toasts on.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Info(text string)  { l.logger.Info(text) }
func (l *Log) Error(text string) { l.logger.Error(text) }

// Channel buffers notifications for a consumer such as the TUI. When the
// buffer is full the oldest message is dropped.
type Channel struct {
	mu  sync.Mutex
	ch  chan Message
	now func() time.Time
}

func NewChannel(size int) *Channel {
	if size <= 0 {
		size = 16
	}
	return &Channel{ch: make(chan Message, size), now: time.Now}
}

func (c *Channel) Info(text string)  { c.push(LevelInfo, text) }
func (c *Channel) Error(text string) { c.push(LevelError, text) }

// C is the receive side.
func (c *Channel) C() <-chan Message { return c.ch }

func (c *Channel) push(level Level, text string) {
	m := Message{Level: level, Text: text, At: c.now()}
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		select {
		case c.ch <- m:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) Info(text string)  { r.add(LevelInfo, text) }
func (r *Recorder) Error(text string) { r.add(LevelError, text) }

func (r *Recorder) add(level Level, text string) {
	r.mu.Lock()
	r.Messages = append(r.Messages, Message{Level: level, Text: text, At: time.Now()})
	r.mu.Unlock()
}

// Count returns how many messages of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.Messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Last returns the most recent message, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}
