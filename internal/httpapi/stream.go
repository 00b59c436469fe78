package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/toastq/internal/event"
	"github.com/jmylchreest/toastq/internal/model"
)

// Stream message types.
const (
	MessageState = "state" // server -> client: full state
	MessageShown = "shown" // server -> client: id of a toast raised by an event
	MessageError = "error" // server -> client: event rejected
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 64 << 10
)

// StreamMessage is the JSON frame sent on /api/v1/stream.
type StreamMessage struct {
	Type   string        `json:"type"`
	Toasts []model.Toast `json:"toasts,omitempty"`
	ID     string        `json:"id,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type streamer struct {
	svc     Service
	logger  *slog.Logger
	origins []string
	closing <-chan struct{}
}

// serve handles GET /api/v1/stream. The client receives the current state
// and then every change; text frames it sends are dispatched as events.
func (s *streamer) serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Only the latest state matters; a slow client skips intermediate ones.
	updates := make(chan []model.Toast, 1)
	unsubscribe, err := s.svc.Subscribe(r.Context(), func(toasts []model.Toast) {
		select {
		case <-updates:
		default:
		}
		updates <- toasts
	})
	if err != nil {
		s.logger.Warn("stream subscribe failed", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "daemon unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer unsubscribe()

	replies := make(chan StreamMessage, 8)
	go s.readLoop(ctx, cancel, conn, replies)

	s.logger.Debug("stream client connected", "remote_addr", r.RemoteAddr)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var msg StreamMessage
		select {
		case <-ctx.Done():
			s.logger.Debug("stream client disconnected", "remote_addr", r.RemoteAddr)
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon stopping"),
				time.Now().Add(writeWait))
			return
		case toasts := <-updates:
			msg = StreamMessage{Type: MessageState, Toasts: toasts}
		case msg = <-replies:
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("stream write failed", "error", err)
			return
		}
	}
}

// readLoop dispatches incoming event envelopes until the connection fails.
func (s *streamer) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, replies chan<- StreamMessage) {
	defer cancel()

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		reply := StreamMessage{Type: MessageShown}
		id, err := event.Dispatch(ctx, s.svc, data)
		if err != nil {
			reply = StreamMessage{Type: MessageError, Error: err.Error()}
		} else {
			reply.ID = id
		}

		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

// checkOrigin allows requests without an Origin header and those matching
// an allowed origin pattern ("*" wildcards, as for CORS).
func (s *streamer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return originAllowed(origin, s.origins)
}

func originAllowed(origin string, patterns []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	normalized := u.Scheme + "://" + u.Host
	for _, p := range patterns {
		if p == "*" || p == normalized {
			return true
		}
		if ok, _ := path.Match(p, normalized); ok {
			return true
		}
	}
	return false
}
