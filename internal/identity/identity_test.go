package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	s := newTestSigner(t)
	sid := "0192f1a0-0000-7000-8000-000000000001"
	token, err := s.Issue(sid)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != sid {
		t.Errorf("sid = %q, want %q", got, sid)
	}
}

func TestVerifyRejects(t *testing.T) {
	s := newTestSigner(t)
	sid := "0192f1a0-0000-7000-8000-000000000001"
	token, _ := s.Issue(sid)

	other, _ := NewSigner(strings.Repeat("x", 32))
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret accepted: %v", err)
	}

	expired := newTestSigner(t)
	expired.now = func() time.Time { return time.Now().Add(-60 * 24 * time.Hour) }
	old, _ := expired.Issue(sid)
	if _, err := s.Verify(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: sid})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := s.Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unsigned token accepted: %v", err)
	}

	bad, _ := s.Issue("not-a-uuid")
	if _, err := s.Verify(bad); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("non-uuid subject accepted: %v", err)
	}
}

func TestMiddlewareAssignsAndKeepsSession(t *testing.T) {
	s := newTestSigner(t)
	var seen []string
	h := Middleware(s, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, SessionKey(r.Context()))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.AddCookie(cookies[0])
	req.Header.Set(ConversationHeaderName, "tab-2")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(seen) != 2 {
		t.Fatalf("handler ran %d times", len(seen))
	}
	sid := strings.TrimSuffix(seen[0], ":"+DefaultConversationIDValue)
	if sid == seen[0] || sid == "" {
		t.Fatalf("first key = %q", seen[0])
	}
	if id, err := uuid.Parse(sid); err != nil || id.Version() != 7 {
		t.Errorf("session id %q is not a v7 uuid: %v", sid, err)
	}
	if seen[1] != sid+":tab-2" {
		t.Errorf("second key = %q, want same session with tab-2", seen[1])
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	s := newTestSigner(t)
	var key string
	h := Middleware(s, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = SessionKey(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if strings.HasPrefix(key, "forged") {
		t.Errorf("forged cookie used: %q", key)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || !c[0].Secure {
		t.Errorf("production cookie should be Secure: %+v", c)
	}
}

func TestSanitizeConversationID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", DefaultConversationIDValue},
		{"  tab-1 ", "tab-1"},
		{"has space", DefaultConversationIDValue},
		{strings.Repeat("a", 129), DefaultConversationIDValue},
		{"a.b:c_d-e", "a.b:c_d-e"},
	}
	for _, tt := range tests {
		if got := sanitizeConversationID(tt.in); got != tt.want {
			t.Errorf("sanitizeConversationID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	if SessionIDFromContext(ctx) != "" || ConversationIDFromContext(ctx) != DefaultConversationIDValue {
		t.Error("unexpected defaults")
	}
}
