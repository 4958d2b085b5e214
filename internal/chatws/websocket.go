// Package chatws carries chat turns over a websocket.
package chatws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/loanbot/internal/api"
	"github.com/ashureev/loanbot/internal/domain"
	"github.com/ashureev/loanbot/internal/identity"
)

// Frame types.
const (
	TypeMessage = "message"
	TypeReset   = "reset"
	TypeState   = "state"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeReply   = "reply"
	TypeError   = "error"
)

const writeTimeout = 10 * time.Second

// Chat is the conversation surface the websocket drives. *api.ChatHandler
// implements it.
type Chat interface {
	Turn(ctx context.Context, key, utterance string) (api.TurnResponse, error)
	Allow(ctx context.Context) bool
	Snapshot(key string) domain.Session
	ResetKey(key string)
}

// InFrame is a client to server frame.
type InFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// OutFrame is a server to client frame. Reply fields are inlined for
// TypeReply frames.
type OutFrame struct {
	Type string `json:"type"`
	*domain.Reply
	State *domain.Session `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Handler upgrades requests to websocket chat sessions.
type Handler struct {
	chat           Chat
	allowedOrigins []string
	isDev          bool
}

// NewHandler creates a Handler.
func NewHandler(chat Chat, allowedOrigins []string, isDev bool) *Handler {
	return &Handler{chat: chat, allowedOrigins: allowedOrigins, isDev: isDev}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := identity.SessionKey(r.Context())
	slog.Info("Chat websocket connection request", "session_key", key, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept websocket", "error", err, "session_key", key)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_key", key)
		}
	}()

	h.readLoop(r.Context(), ws, key)
	slog.Info("Chat websocket ended", "session_key", key)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	slog.Warn("Websocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, key string) {
	for {
		var in InFrame
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("Websocket closed by client", "session_key", key)
			} else {
				slog.Warn("Websocket read error", "error", err, "session_key", key)
			}
			return
		}

		out := h.dispatch(ctx, key, in)
		if err := h.write(ctx, ws, out); err != nil {
			slog.Debug("Websocket write error", "error", err, "session_key", key)
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, key string, in InFrame) OutFrame {
	switch in.Type {
	case TypeMessage:
		if !h.chat.Allow(ctx) {
			return OutFrame{Type: TypeError, Error: "rate_limited"}
		}
		resp, err := h.chat.Turn(ctx, key, in.Content)
		if err != nil {
			return OutFrame{Type: TypeError, Error: "turn_failed"}
		}
		return OutFrame{Type: TypeReply, Reply: &resp.Reply, State: &resp.State}
	case TypeReset:
		h.chat.ResetKey(key)
		state := h.chat.Snapshot(key)
		return OutFrame{Type: TypeReset, State: &state}
	case TypeState:
		state := h.chat.Snapshot(key)
		return OutFrame{Type: TypeState, State: &state}
	case TypePing:
		return OutFrame{Type: TypePong}
	default:
		return OutFrame{Type: TypeError, Error: "unknown_frame_type"}
	}
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, out OutFrame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, out)
}
