// Package push is a small STOMP 1.2 endpoint over WebSocket that delivers
// per-user queue messages such as /user/queue/task-updates.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

const (
	TaskUpdates   = "/user/queue/task-updates"
	Notifications = "/user/queue/notifications"
)

var ErrUnauthorized = errors.New("push: unauthorized")

// Authenticator resolves the bearer token sent in the CONNECT frame.
type Authenticator func(ctx context.Context, token string) (userID int64, err error)

type Hub struct {
	logger       *zap.Logger
	auth         Authenticator
	heartbeat    time.Duration
	connectLimit time.Duration

	mu       sync.Mutex
	sessions map[int64]map[*session]struct{}
}

// NewHub returns a hub that offers heartbeat in both directions. Zero
// disables heart-beating.
func NewHub(logger *zap.Logger, auth Authenticator, heartbeat time.Duration) *Hub {
	return &Hub{
		logger:       logger,
		auth:         auth,
		heartbeat:    heartbeat,
		connectLimit: 10 * time.Second,
		sessions:     make(map[int64]map[*session]struct{}),
	}
}

// Handler is the WebSocket endpoint. Origins are not checked.
func (h *Hub) Handler() http.Handler {
	return websocket.Server{Handler: h.serve}
}

// Publish sends body to every session of userID subscribed to destination
// and returns how many sessions got it.
func (h *Hub) Publish(userID int64, destination string, body []byte) int {
	h.mu.Lock()
	targets := make([]*session, 0, len(h.sessions[userID]))
	for s := range h.sessions[userID] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	sent := 0
	for _, s := range targets {
		ok, err := s.deliver(destination, body)
		if err != nil {
			h.logger.Warn("push delivery failed", zap.Int64("user_id", userID), zap.Error(err))
			s.close()
			continue
		}
		if ok {
			sent++
		}
	}
	return sent
}

func (h *Hub) PublishJSON(userID int64, destination string, v any) (int, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("push: encode %s: %w", destination, err)
	}
	return h.Publish(userID, destination, body), nil
}

// Connected reports how many sessions userID currently holds.
func (h *Hub) Connected(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[userID])
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[s.userID]
	if !ok {
		set = make(map[*session]struct{})
		h.sessions[s.userID] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.sessions[s.userID]
	delete(set, s)
	if len(set) == 0 {
		delete(h.sessions, s.userID)
	}
}

func (h *Hub) serve(ws *websocket.Conn) {
	defer ws.Close()
	r := frame.NewReader(ws)
	s := &session{conn: ws, w: frame.NewWriter(ws), subs: make(map[string]string), done: make(chan struct{})}

	_ = ws.SetReadDeadline(time.Now().Add(h.connectLimit))
	f, err := readFrame(r)
	if err != nil {
		h.logger.Debug("push connect read failed", zap.Error(err))
		return
	}
	if f.Command != frame.CONNECT && f.Command != frame.STOMP {
		s.fail("expected CONNECT, got " + f.Command)
		return
	}

	userID, err := h.auth(ws.Request().Context(), bearer(f.Header))
	if err != nil {
		h.logger.Info("push connect rejected", zap.Error(err))
		s.fail("unauthorized")
		return
	}
	s.userID = userID

	sendEvery, readEvery := h.negotiate(f.Header.Get(frame.HeartBeat))
	hb := strconv.FormatInt(h.heartbeat.Milliseconds(), 10)
	if err := s.write(frame.New(frame.CONNECTED,
		frame.Version, "1.2",
		frame.HeartBeat, hb+","+hb,
		frame.Server, "todo-sync",
		"user-name", strconv.FormatInt(userID, 10),
	)); err != nil {
		return
	}

	h.register(s)
	defer h.unregister(s)
	defer s.close()
	h.logger.Debug("push session opened", zap.Int64("user_id", userID))

	if sendEvery > 0 {
		go s.heartbeat(sendEvery / 2)
	}

	for {
		if readEvery > 0 {
			_ = ws.SetReadDeadline(time.Now().Add(2 * readEvery))
		} else {
			_ = ws.SetReadDeadline(time.Time{})
		}
		f, err := r.Read()
		if err != nil {
			h.logger.Debug("push session closed", zap.Int64("user_id", userID), zap.Error(err))
			return
		}
		if f == nil {
			continue
		}

		switch f.Command {
		case frame.SUBSCRIBE:
			s.subscribe(f.Header.Get(frame.Destination), f.Header.Get(frame.Id))
		case frame.UNSUBSCRIBE:
			s.unsubscribe(f.Header.Get(frame.Id))
		case frame.DISCONNECT:
			if id := f.Header.Get(frame.Receipt); id != "" {
				_ = s.write(frame.New(frame.RECEIPT, frame.ReceiptId, id))
			}
			return
		case frame.SEND, frame.ACK, frame.NACK:
			h.logger.Debug("push frame ignored", zap.String("command", f.Command))
		default:
			s.fail("unsupported command " + f.Command)
			return
		}
	}
}

// negotiate returns how often the server must send and how often it expects
// to hear from the client, per the STOMP heart-beat rules.
func (h *Hub) negotiate(header string) (send, read time.Duration) {
	if h.heartbeat <= 0 || header == "" {
		return 0, 0
	}
	cx, cy, err := frame.ParseHeartBeat(header)
	if err != nil {
		return 0, 0
	}
	if cy > 0 {
		send = max(h.heartbeat, cy)
	}
	if cx > 0 {
		read = max(h.heartbeat, cx)
	}
	return send, read
}

func readFrame(r *frame.Reader) (*frame.Frame, error) {
	for {
		f, err := r.Read()
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
}

// bearer takes the token from an Authorization header, falling back to passcode.
func bearer(h *frame.Header) string {
	if v := h.Get("Authorization"); v != "" {
		return strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
	}
	return h.Get(frame.Passcode)
}

type session struct {
	userID int64
	conn   *websocket.Conn

	wmu sync.Mutex
	w   *frame.Writer

	smu  sync.Mutex
	subs map[string]string // destination -> subscription id

	once sync.Once
	done chan struct{}
}

func (s *session) write(f *frame.Frame) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.w.Write(f)
}

func (s *session) fail(msg string) {
	_ = s.write(frame.New(frame.ERROR, frame.Message, msg))
}

func (s *session) subscribe(dest, id string) {
	if dest == "" {
		return
	}
	s.smu.Lock()
	s.subs[dest] = id
	s.smu.Unlock()
}

func (s *session) unsubscribe(id string) {
	s.smu.Lock()
	defer s.smu.Unlock()
	for dest, sid := range s.subs {
		if sid == id {
			delete(s.subs, dest)
		}
	}
}

func (s *session) deliver(dest string, body []byte) (bool, error) {
	s.smu.Lock()
	id, ok := s.subs[dest]
	s.smu.Unlock()
	if !ok {
		return false, nil
	}
	f := frame.New(frame.MESSAGE,
		frame.Destination, dest,
		frame.Subscription, id,
		frame.MessageId, uuid.NewString(),
		frame.ContentType, "application/json",
		frame.ContentLength, strconv.Itoa(len(body)),
	)
	f.Body = body
	if err := s.write(f); err != nil {
		return false, err
	}
	return true, nil
}

func (s *session) heartbeat(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			if err := s.write(nil); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
