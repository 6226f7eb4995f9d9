// Package webchat serves the agent over a websocket for browser chat widgets.
package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/wolfman30/calendar-booking-agent/internal/agent"
	"github.com/wolfman30/calendar-booking-agent/internal/session"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

const (
	frameMessage = "message"
	framePing    = "ping"
	frameSession = "session"
	frameHistory = "history"
	frameReply   = "reply"
	framePong    = "pong"
	frameError   = "error"

	historyLimit = 50
	maxFrameSize = 16 << 10
	errorText    = "Sorry, something went wrong. Please try again."
	slowDownText = "You're sending messages too quickly. Please wait a moment and try again."
)

// Handler manages websocket chat connections.
type Handler struct {
	service agent.Service
	logger  *logging.Logger

	// Per-connection budget for message frames. The upgrade request is
	// limited by the router; frames after it are limited here.
	frameRate  rate.Limit
	frameBurst int

	mu    sync.RWMutex
	conns map[string]int // session id -> open connections
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what the widget receives. Reply frames carry the
// full chat response inline.
type OutboundMessage struct {
	Type      string           `json:"type"` // "session", "history", "reply", "pong", "error"
	Text      string           `json:"text,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
	*agent.ChatResponse
}

// HistoryMessage is one prior turn replayed on connect.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Option configures a Handler.
type Option func(*Handler)

// WithFrameLimit caps message frames per connection at rps with the given
// burst. rps <= 0 leaves frames unlimited.
func WithFrameLimit(rps float64, burst int) Option {
	return func(h *Handler) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.frameRate = rate.Limit(rps)
		h.frameBurst = burst
	}
}

func NewHandler(service agent.Service, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		service:   service,
		logger:    logger,
		frameRate: rate.Inf,
		conns:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades GET /ws/chat?session=<id> and runs one turn per
// inbound message frame.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		conn.MaxPayloadBytes = maxFrameSize
		h.serveWS(r.Context(), conn, r.URL.Query().Get("session"))
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	h.track(sessionID, 1)
	defer h.track(sessionID, -1)

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: frameSession, SessionID: sessionID})
	if history := h.history(ctx, sessionID); len(history) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: frameHistory, SessionID: sessionID, Messages: history})
	}

	limiter := rate.NewLimiter(h.frameRate, h.frameBurst)
	h.logger.Info("webchat: connection opened", "session_id", sessionID)
	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case framePing:
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: framePong})
		case frameMessage:
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			out := OutboundMessage{Type: frameError, SessionID: sessionID, Text: slowDownText}
			if limiter.Allow() {
				out = h.turn(ctx, sessionID, msg.Text)
			} else {
				h.logger.Warn("webchat: frame rate exceeded", "session_id", sessionID)
			}
			if err := websocket.JSON.Send(conn, out); err != nil {
				h.logger.Debug("webchat: send failed", "session_id", sessionID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) turn(ctx context.Context, sessionID, text string) OutboundMessage {
	resp, err := h.service.ProcessMessage(ctx, sessionID, text)
	if err != nil {
		h.logger.Error("webchat: failed to process message", "error", err, "session_id", sessionID)
		return OutboundMessage{Type: frameError, SessionID: sessionID, Text: errorText}
	}
	return replyFrame(resp)
}

func (h *Handler) history(ctx context.Context, sessionID string) []HistoryMessage {
	sess, err := h.service.Session(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		h.logger.Warn("webchat: failed to load history", "error", err, "session_id", sessionID)
		return nil
	}
	return historyFrom(sess, historyLimit)
}

func (h *Handler) track(sessionID string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[sessionID] += delta
	if h.conns[sessionID] <= 0 {
		delete(h.conns, sessionID)
	}
}

// Connections reports how many sockets are open across all sessions.
func (h *Handler) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, n := range h.conns {
		total += n
	}
	return total
}
