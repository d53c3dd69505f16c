// Package fieldsim is a stand-in field server. It accepts display
// websockets, serves sponsor slides and pushes scripted events.
package fieldsim

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/okian/fielddisplay/internal/domain/model"
	"github.com/okian/fielddisplay/internal/sponsor"
	"github.com/okian/fielddisplay/pkg/logger"
)

// Default connection settings.
const (
	defaultChannelPath = "/api/displays/audience/websocket"
	writeWait          = 10 * time.Second
	pongWait           = 20 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 1 << 16
	sendBuffer         = 64
)

// display is one connected display socket.
type display struct {
	conn      *websocket.Conn
	query     string
	send      chan []byte
	closeOnce sync.Once
}

func (d *display) close() {
	d.closeOnce.Do(func() { close(d.send) })
}

// Server is the fake field server.
type Server struct {
	channelPath string
	slides      []sponsor.Slide
	greeting    []model.Envelope
	upgrader    websocket.Upgrader

	mu       sync.RWMutex
	displays map[*display]struct{}
	received []model.Envelope
	joined   chan struct{}
	closed   bool

	logger logger.Logger
}

// New creates a server with no displays connected.
func New(opts ...Option) *Server {
	s := &Server{
		channelPath: defaultChannelPath,
		slides:      []sponsor.Slide{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		displays: make(map[*display]struct{}),
		joined:   make(chan struct{}, 1),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(s.channelPath, s.serveDisplay).Methods(http.MethodGet)
	r.HandleFunc("/api/sponsor_slides", s.serveSlides).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.serveEvent).Methods(http.MethodPost)
	r.HandleFunc("/displays/{name}", s.servePage).Methods(http.MethodGet)
	return r
}

func (s *Server) serveDisplay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "upgrade failed", logger.Error(err))
		return
	}

	d := &display{conn: conn, query: r.URL.RawQuery, send: make(chan []byte, sendBuffer)}
	go s.writePump(d)

	s.mu.Lock()
	if s.closed {
		d.close()
		s.mu.Unlock()
		return
	}
	s.displays[d] = struct{}{}
	count := len(s.displays)
	greeted := s.greet(d)
	s.mu.Unlock()

	select {
	case s.joined <- struct{}{}:
	default:
	}
	s.logger.Info(r.Context(), "display connected",
		logger.String("query", d.query),
		logger.Int("displays", count),
		logger.Int("greeting", greeted),
	)

	go s.readPump(d)
}

// greet queues the greeting for a new display without blocking and
// returns how many frames were queued. Callers hold s.mu so no broadcast
// can overtake the greeting.
func (s *Server) greet(d *display) int {
	n := 0
	for _, env := range s.greeting {
		frame, err := env.Encode()
		if err != nil {
			continue
		}
		select {
		case d.send <- frame:
			n++
		default:
			return n
		}
	}
	return n
}

func (s *Server) readPump(d *display) {
	defer s.remove(d)

	d.conn.SetReadLimit(maxMessageSize)
	_ = d.conn.SetReadDeadline(time.Now().Add(pongWait))
	d.conn.SetPongHandler(func(string) error {
		return d.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := d.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn(context.Background(), "display read failed", logger.Error(err))
			}
			return
		}
		env, err := model.Decode(frame)
		if err != nil {
			s.logger.Warn(context.Background(), "bad frame from display", logger.Error(err))
			continue
		}
		s.mu.Lock()
		s.received = append(s.received, env)
		s.mu.Unlock()
		s.logger.Info(context.Background(), "display message",
			logger.String("type", env.Type),
			logger.String("data", string(env.Data)),
		)
	}
}

func (s *Server) writePump(d *display) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = d.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-d.send:
			_ = d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = d.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := d.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := d.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) remove(d *display) {
	s.mu.Lock()
	_, ok := s.displays[d]
	delete(s.displays, d)
	count := len(s.displays)
	d.close()
	s.mu.Unlock()

	if ok {
		s.logger.Info(context.Background(), "display disconnected", logger.Int("displays", count))
	}
}

// Broadcast sends one {type, data} message to every connected display and
// returns how many it was queued for. A display whose buffer is full is
// disconnected.
func (s *Server) Broadcast(msgType string, data any) (int, error) {
	env, err := model.NewEnvelope(msgType, data)
	if err != nil {
		return 0, err
	}
	frame, err := env.Encode()
	if err != nil {
		return 0, err
	}

	// Sends happen under the read lock; send channels are only closed
	// under the write lock.
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, ErrClosed
	}
	sent := 0
	var slow []*display
	for d := range s.displays {
		select {
		case d.send <- frame:
			sent++
		default:
			slow = append(slow, d)
		}
	}
	s.mu.RUnlock()

	for _, d := range slow {
		s.logger.Warn(context.Background(), "display too slow, dropping it", logger.String("query", d.query))
		s.remove(d)
	}
	return sent, nil
}

// Displays returns the number of connected displays.
func (s *Server) Displays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.displays)
}

// Queries returns the query string each connected display dialed with.
func (s *Server) Queries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.displays))
	for d := range s.displays {
		out = append(out, d.query)
	}
	return out
}

// Received returns every message displays have sent, in arrival order.
func (s *Server) Received() []model.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Envelope, len(s.received))
	copy(out, s.received)
	return out
}

// WaitForDisplays blocks until at least n displays are connected.
func (s *Server) WaitForDisplays(ctx context.Context, n int) error {
	for {
		if s.Displays() >= n {
			return nil
		}
		select {
		case <-s.joined:
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Drop severs every display connection without a close handshake, as a
// field server crash would.
func (s *Server) Drop() {
	s.mu.RLock()
	for d := range s.displays {
		_ = d.conn.UnderlyingConn().Close()
	}
	s.mu.RUnlock()
}

// Close disconnects every display and refuses new ones.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for d := range s.displays {
		d.close()
	}
	s.displays = make(map[*display]struct{})
}

func (s *Server) serveSlides(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.slides)
}

func (s *Server) serveEvent(w http.ResponseWriter, r *http.Request) {
	var env model.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&env); err != nil || env.Type == "" {
		http.Error(w, "expected {\"type\": ..., \"data\": ...}", http.StatusBadRequest)
		return
	}
	var data any
	if !env.IsNull() {
		data = env.Data
	}
	n, err := s.Broadcast(env.Type, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]int{"displays": n})
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("display " + mux.Vars(r)["name"] + "\n"))
}
