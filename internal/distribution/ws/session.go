package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/distribution"
	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

const (
	// writeTimeout is the deadline for a single write to an observer.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often ping frames are sent. Must be less
	// than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin checks belong at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Session is one live telemetry stream for a connected observer. It owns its
// broker subscriptions for a single AUV and retires them exactly once on
// disconnect, however the disconnect is detected.
type Session struct {
	id     string
	auvID  string
	broker *distribution.Broker
	conn   *websocket.Conn
	logger *log.Logger

	subs    []*distribution.Subscription
	control chan []byte
	done    chan struct{}

	closeOnce sync.Once
}

// NewSession subscribes the observer to both stream kinds of the AUV.
func NewSession(broker *distribution.Broker, conn *websocket.Conn, auvID string, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{
		id:      uuid.NewString(),
		auvID:   auvID,
		broker:  broker,
		conn:    conn,
		logger:  logger,
		control: make(chan []byte, 4),
		done:    make(chan struct{}),
	}
	s.subs = []*distribution.Subscription{
		broker.Subscribe(distribution.Topic{AUVID: auvID, Kind: telemetry.StreamVehicleState}),
		broker.Subscribe(distribution.Topic{AUVID: auvID, Kind: telemetry.StreamEnvironmental}),
	}
	return s
}

// Run pumps broker deliveries to the observer until the connection closes.
// It blocks; the caller owns the HTTP handler goroutine.
func (s *Session) Run() {
	go s.readPump()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.Close()

	for {
		select {
		case evt, ok := <-s.subs[0].C():
			if !ok {
				return
			}
			if !s.send(evt) {
				return
			}
		case evt, ok := <-s.subs[1].C():
			if !ok {
				return
			}
			if !s.send(evt) {
				return
			}
		case msg := <-s.control:
			// Reserved for subscription-scope changes; currently ignored.
			_ = msg
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// Close retires the session: unsubscribes all topics and closes the
// connection. Safe to call concurrently with Run; it runs exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for _, sub := range s.subs {
			s.broker.Unsubscribe(sub)
		}
		_ = s.conn.Close()
		s.logger.Printf("telemetry stream: session %s for %s closed", s.id, s.auvID)
	})
}

func (s *Session) send(evt distribution.Event) bool {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.Printf("telemetry stream: encode event: %v", err)
		return true
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return false
	}
	return true
}

// readPump consumes observer frames to surface control messages and detect
// disconnect. A read error of any kind ends the session.
func (s *Session) readPump() {
	defer close(s.done)
	s.conn.SetReadLimit(1024)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case s.control <- msg:
		default:
		}
	}
}

// SessionObserver is told when sessions start and end; used for gauges.
type SessionObserver interface {
	SessionStarted()
	SessionEnded()
}

// StreamHandler upgrades GET /api/v1/telemetry/ws/{auv_id} to a websocket
// and serves a session for that AUV.
type StreamHandler struct {
	broker   *distribution.Broker
	logger   *log.Logger
	observer SessionObserver
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(broker *distribution.Broker, logger *log.Logger, observer SessionObserver) *StreamHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &StreamHandler{broker: broker, logger: logger, observer: observer}
}

// ServeHTTP handles the websocket upgrade.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	auvID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/telemetry/ws/"), "/")
	if auvID == "" {
		http.Error(w, "auv_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	session := NewSession(h.broker, conn, auvID, h.logger)
	if h.observer != nil {
		h.observer.SessionStarted()
		defer h.observer.SessionEnded()
	}
	session.Run()
}
