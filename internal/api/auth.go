package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionCookie = "chatdesk_session"
	sessionTTL    = 12 * time.Hour
)

// sessions tracks admin session tokens issued by /admin/login.
type sessions struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func newSessions(ttl time.Duration) *sessions {
	return &sessions{tokens: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// issue mints a token and drops every expired one.
func (s *sessions) issue() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for t, exp := range s.tokens {
		if now.After(exp) {
			delete(s.tokens, t)
		}
	}
	token := uuid.New().String()
	expires := now.Add(s.ttl)
	s.tokens[token] = expires
	return token, expires
}

func (s *sessions) valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.now().After(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// require rejects requests without a live session cookie.
func (s *sessions) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || !s.valid(c.Value) {
			httpError(w, http.StatusUnauthorized, "authentication_error", "admin login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleLogin answers 204 with a session cookie on the right password and
// 401 otherwise.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if s.deps.AdminPassword == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.deps.AdminPassword)) != 1 {
		s.logger.Info("admin login refused", "remote", r.RemoteAddr)
		httpError(w, http.StatusUnauthorized, "authentication_error", "wrong password")
		return
	}

	token, expires := s.sessions.issue()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
