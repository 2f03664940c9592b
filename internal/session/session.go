// Package session keeps one prediction form per visitor, keyed by cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/form"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
)

// CookieName is the cookie carrying the session id
const CookieName = "session_id"

// Session is one visitor's state
type Session struct {
	ID        string
	Form      *form.Form
	CreatedAt time.Time

	expiresAt time.Time // guarded by Store.mu
}

// Store is an in-memory session table with sliding expiry
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	secure   bool
	now      func() time.Time
	observe  func(active int)
}

// Option configures a Store
type Option func(*Store)

// WithSecureCookies marks the cookie Secure (HTTPS deployments)
func WithSecureCookies(secure bool) Option {
	return func(s *Store) { s.secure = secure }
}

// WithObserver is called with the session count whenever it changes
func WithObserver(fn func(active int)) Option {
	return func(s *Store) { s.observe = fn }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store whose sessions expire ttl after their last request
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ctxKey struct{}

// FromContext returns the session attached by Middleware
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(ctxKey{}).(*Session)
	return sess
}

// Middleware attaches the visitor's session to the request context, starting
// a new one when the cookie is missing, unknown or expired.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(CookieName); err == nil {
			id = cookie.Value
		}

		sess, created := s.touch(id)
		if created {
			logger.Debug("Session started", "path", r.URL.Path)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(s.ttl.Seconds()),
		})

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

// touch returns the live session for id, extending its expiry, or a new one
func (s *Store) touch(id string) (*Session, bool) {
	now := s.now()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && now.Before(sess.expiresAt) {
		sess.expiresAt = now.Add(s.ttl)
		s.mu.Unlock()
		return sess, false
	}
	if ok {
		delete(s.sessions, id)
	}

	sess = &Session{
		ID:        generateSessionID(),
		Form:      form.New(),
		CreatedAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.sessions[sess.ID] = sess
	active := len(s.sessions)
	s.mu.Unlock()

	s.notify(active)
	return sess, true
}

// Len returns the number of sessions held, expired ones included until pruned
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune drops expired sessions and returns how many were removed
func (s *Store) Prune() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.notify(active)
	}
	return removed
}

// RunPruner prunes every interval until ctx is done
func (s *Store) RunPruner(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				logger.Info("Pruned expired sessions", "removed", n, "active", s.Len())
			}
		}
	}
}

func (s *Store) notify(active int) {
	if s.observe != nil {
		s.observe(active)
	}
}

// generateSessionID generates a random session ID
func generateSessionID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
