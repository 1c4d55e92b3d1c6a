package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	token   string
	user    string
	expires time.Time
}

// Sessions tracks the one active login. Starting a new session ends the
// previous one.
type Sessions struct {
	mu      sync.Mutex
	current *session
	ttl     time.Duration
	now     func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, now: time.Now}
}

// Start opens a session for user and returns its token.
func (s *Sessions) Start(user string) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &session{token: token, user: user, expires: s.now().Add(s.ttl)}
	return token
}

// Lookup returns the user owning token while the session is live.
func (s *Sessions) Lookup(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.token != token {
		return "", false
	}
	if !s.now().Before(s.current.expires) {
		s.current = nil
		return "", false
	}
	return s.current.user, true
}

// End closes the session identified by token, if it is the active one.
func (s *Sessions) End(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.token == token {
		s.current = nil
	}
}

func (s *Sessions) TTL() time.Duration {
	return s.ttl
}
