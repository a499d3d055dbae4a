package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/monitoring"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	// DefaultBuffer is the number of events queued per connection
	DefaultBuffer = 256
)

// Message is a frame sent by a client
type Message struct {
	Type    string   `json:"type"`
	Modules []string `json:"modules,omitempty"`
	Kinds   []string `json:"kinds,omitempty"`
}

// Outbound is a frame sent to a client
type Outbound struct {
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Event     *registry.Event `json:"event,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Handler manages WebSocket connections
type Handler struct {
	registry *registry.Registry
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
	buffer   int
}

// Option configures a Handler
type Option func(*Handler)

// WithMetrics counts connections and frames
func WithMetrics(m *monitoring.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithBuffer sets the per-connection event queue length
func WithBuffer(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithCheckOrigin overrides the origin check of the upgrade
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewHandler creates a new WebSocket handler
func NewHandler(reg *registry.Registry, opts ...Option) *Handler {
	h := &Handler{
		registry: reg,
		logger:   zap.NewNop(),
		buffer:   DefaultBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// filter selects the events a connection wants. Empty sets match everything.
type filter struct {
	modules map[string]bool
	kinds   map[registry.EventKind]bool
}

func newFilter(msg Message) filter {
	f := filter{}
	if len(msg.Modules) > 0 {
		f.modules = make(map[string]bool, len(msg.Modules))
		for _, m := range msg.Modules {
			f.modules[m] = true
		}
	}
	if len(msg.Kinds) > 0 {
		f.kinds = make(map[registry.EventKind]bool, len(msg.Kinds))
		for _, k := range msg.Kinds {
			f.kinds[registry.EventKind(k)] = true
		}
	}
	return f
}

func (f filter) match(e registry.Event) bool {
	if f.modules != nil && !f.modules[e.Module] {
		return false
	}
	if f.kinds != nil && !f.kinds[e.Kind] {
		return false
	}
	return true
}

type session struct {
	h    *Handler
	conn *websocket.Conn
	out  chan Outbound
	done chan struct{}

	mu     sync.RWMutex
	filter filter

	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// enqueue never blocks. A full queue drops the connection.
func (s *session) enqueue(msg Outbound) {
	select {
	case <-s.done:
	case s.out <- msg:
	default:
		s.h.logger.Warn("websocket client too slow, disconnecting",
			zap.String("remote", s.conn.RemoteAddr().String()),
		)
		s.close()
	}
}

func (s *session) onEvent(e registry.Event) {
	s.mu.RLock()
	ok := s.filter.match(e)
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.enqueue(Outbound{Type: "event", Event: &e, Timestamp: e.At.Unix()})
}

// HandleConnection upgrades the request and streams events until the
// client disconnects
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		h:    h,
		conn: conn,
		out:  make(chan Outbound, h.buffer),
		done: make(chan struct{}),
	}

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	unsubscribe := h.registry.Subscribe(s.onEvent)
	defer unsubscribe()

	s.enqueue(Outbound{
		Type:      "system",
		Message:   "connected to module registry",
		Timestamp: time.Now().Unix(),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(s)
	}()

	h.readLoop(s)
	s.close()
	wg.Wait()
	conn.Close()
}

func (h *Handler) readLoop(s *session) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		h.record("in", msg.Type)

		switch msg.Type {
		case "subscribe":
			s.mu.Lock()
			s.filter = newFilter(msg)
			s.mu.Unlock()
			s.enqueue(Outbound{Type: "subscribed", Timestamp: time.Now().Unix()})
		case "ping":
			s.enqueue(Outbound{Type: "pong", Timestamp: time.Now().Unix()})
		default:
			s.enqueue(Outbound{Type: "error", Message: "unknown message type", Timestamp: time.Now().Unix()})
		}

		select {
		case <-s.done:
			return
		default:
		}
	}
}

func (h *Handler) writeLoop(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			// Unblock the reader when the writer gives up first.
			_ = s.conn.SetReadDeadline(time.Now())
			return
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("websocket write error", zap.Error(err))
				s.close()
				continue
			}
			h.record("out", msg.Type)
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.close()
			}
		}
	}
}

func (h *Handler) record(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
