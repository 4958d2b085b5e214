package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/loanbot/internal/domain"
	"github.com/ashureev/loanbot/internal/identity"
	"github.com/ashureev/loanbot/internal/observability"
	"github.com/ashureev/loanbot/internal/sessions"
)

const (
	msgTurnFailed   = "I apologize, but I encountered a technical issue. Please try again."
	msgResetOK      = "Agent reset successfully"
	msgRateLimited  = "Too many messages. Please wait a moment and try again."
	defaultMaxBody  = 64 << 10
	defaultDeadline = 15 * time.Second
)

// ChatConfig tunes a ChatHandler.
type ChatConfig struct {
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	CSATURL        string
	// ExposeOTP leaves the issued code in state snapshots.
	ExposeOTP bool
}

// ChatHandler serves the conversational API on top of a session store.
type ChatHandler struct {
	store   *sessions.Store
	limiter *RateLimiter
	cfg     ChatConfig
	log     *slog.Logger
}

// NewChatHandler creates a ChatHandler. limiter may be nil to disable throttling.
func NewChatHandler(store *sessions.Store, limiter *RateLimiter, cfg ChatConfig, logger *slog.Logger) *ChatHandler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultDeadline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{store: store, limiter: limiter, cfg: cfg, log: logger}
}

// RegisterRoutes mounts the chat routes. The un-prefixed aliases match what
// older frontends post to.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	for _, prefix := range []string{"/api", ""} {
		r.Post(prefix+"/chat", h.Chat)
		r.Post(prefix+"/select-account", h.SelectAccount)
		r.Post(prefix+"/reset", h.Reset)
	}
	r.Get("/api/state", h.State)
	r.Get("/api/config", h.Config)
}

type chatRequest struct {
	Message *string `json:"message"`
}

type selectRequest struct {
	AccountID string `json:"accountId"`
}

// TurnResponse is a reply with the session snapshot taken right after it.
type TurnResponse struct {
	domain.Reply
	State domain.Session `json:"state"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Message == nil {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	h.turn(w, r, *req.Message)
}

// SelectAccount handles POST /api/select-account by feeding the id to the
// conversation as if it had been typed.
func (h *ChatHandler) SelectAccount(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		Error(w, http.StatusBadRequest, "accountId is required")
		return
	}
	h.turn(w, r, req.AccountID)
}

// Reset handles POST /api/reset.
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	key := identity.SessionKey(r.Context())
	h.ResetKey(key)
	h.log.Info("Conversation reset", "session_key", key)
	JSON(w, http.StatusOK, map[string]string{"message": msgResetOK})
}

// State handles GET /api/state. Unknown conversations report a fresh session.
func (h *ChatHandler) State(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]domain.Session{"state": h.Snapshot(identity.SessionKey(r.Context()))})
}

// Config handles GET /api/config.
func (h *ChatHandler) Config(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"csatUrl":   h.cfg.CSATURL,
		"exposeOtp": h.cfg.ExposeOTP,
	})
}

// Turn runs one utterance through the caller's conversation. It is shared
// with the websocket transport.
func (h *ChatHandler) Turn(ctx context.Context, key, utterance string) (resp TurnResponse, err error) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout)
	defer cancel()

	h.store.Do(key, func(c sessions.Conversation) {
		defer func() {
			if p := recover(); p != nil {
				err = errTurnPanicked
				h.log.Error("Conversation turn panicked", "session_key", key, "panic", p)
			}
		}()
		reply := c.ProcessMessage(ctx, utterance)
		resp = TurnResponse{Reply: reply, State: h.redact(c.State())}
	})
	if err != nil {
		return TurnResponse{}, err
	}

	observability.TurnsTotal.WithLabelValues(string(resp.Action)).Inc()
	h.log.Debug("Conversation turn",
		"session_key", key,
		"action", resp.Action,
		"step", resp.NextStep,
	)
	return resp, nil
}

// Allow applies the rate limiter to the caller's browser session.
func (h *ChatHandler) Allow(ctx context.Context) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(identity.SessionIDFromContext(ctx))
}

// Snapshot returns the redacted state for key, or a fresh session.
func (h *ChatHandler) Snapshot(key string) domain.Session {
	state := domain.NewSession()
	h.store.View(key, func(c sessions.Conversation) { state = c.State() })
	return h.redact(state)
}

// ResetKey resets the conversation for key if it exists.
func (h *ChatHandler) ResetKey(key string) {
	h.store.View(key, func(c sessions.Conversation) { c.Reset() })
}

var errTurnPanicked = errors.New("conversation turn panicked")

func (h *ChatHandler) turn(w http.ResponseWriter, r *http.Request, utterance string) {
	if !h.Allow(r.Context()) {
		Error(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}
	resp, err := h.Turn(r.Context(), identity.SessionKey(r.Context()), utterance)
	if err != nil {
		JSON(w, http.StatusInternalServerError, map[string]string{"message": msgTurnFailed})
		return
	}
	JSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *ChatHandler) redact(s domain.Session) domain.Session {
	if !h.cfg.ExposeOTP {
		s.IssuedOTP = ""
	}
	return s
}
