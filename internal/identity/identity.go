// Package identity assigns every browser a signed session id and scopes
// conversations within it.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ashureev/loanbot/internal/sessions"
)

const (
	CookieName                 = "loanbot_sid"
	ConversationHeaderName     = "X-Loanbot-Conversation"
	ConversationQueryParam     = "conversation"
	DefaultConversationIDValue = "default"
	cookieMaxAge               = 30 * 24 * time.Hour
	tokenIssuer                = "loanbot"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	conversationIDKey
)

var conversationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid session token")

// SessionIDFromContext extracts the browser session id from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// ConversationIDFromContext extracts the conversation id from the request context.
func ConversationIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(conversationIDKey).(string); ok {
		return v
	}
	return DefaultConversationIDValue
}

// SessionKey is the store key of the conversation the request belongs to.
func SessionKey(ctx context.Context) string {
	return SessionIDFromContext(ctx) + ":" + ConversationIDFromContext(ctx)
}

// WithSession returns a context carrying the given ids. Used by transports
// that establish identity outside Middleware, and by tests.
func WithSession(ctx context.Context, sessionID, conversationID string) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, conversationIDKey, sanitizeConversationID(conversationID))
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a Signer. An empty secret is replaced by a random one,
// which invalidates all cookies on restart.
func NewSigner(secret string) (*Signer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		slog.Warn("No session secret configured, using an ephemeral one")
	}
	return &Signer{secret: key, ttl: cookieMaxAge, now: time.Now}, nil
}

// Issue returns a signed token for sessionID.
func (s *Signer) Issue(sessionID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Verify checks a token and returns the session id it carries.
func (s *Signer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: subject is not a session id", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func sanitizeConversationID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !conversationIDPattern.MatchString(id) {
		return DefaultConversationIDValue
	}
	return id
}

func conversationIDFromRequest(r *http.Request) string {
	id := r.Header.Get(ConversationHeaderName)
	if id == "" {
		id = r.URL.Query().Get(ConversationQueryParam)
	}
	return sanitizeConversationID(id)
}

func (s *Signer) getOrCreateSessionID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	sid := ""
	if c, err := r.Cookie(CookieName); err == nil {
		if v, err := s.Verify(c.Value); err == nil {
			sid = v
		}
	}
	if sid == "" {
		sid = sessions.NewKey()
	}

	// Re-issue on every request so active visitors keep a sliding expiry.
	token, err := s.Issue(sid)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		Expires:  s.now().Add(s.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
	return sid, nil
}

// Middleware injects the browser session id and the per-request conversation id.
func Middleware(s *Signer, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, err := s.getOrCreateSessionID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish session"}`, http.StatusInternalServerError)
				return
			}
			ctx := WithSession(r.Context(), sid, conversationIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
