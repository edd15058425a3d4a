package model

import "time"

// Session is the client-held record of admin authentication state.
// A Session with an empty Token is anonymous.
type Session struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a session issued at now that lives for ttl
func NewSession(token string, now time.Time, ttl time.Duration) Session {
	return Session{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsAnonymous returns true if no token is held
func (s Session) IsAnonymous() bool {
	return s.Token == ""
}

// IsExpired returns true if a token is held and now is at or past its expiry
func (s Session) IsExpired(now time.Time) bool {
	return !s.IsAnonymous() && !now.Before(s.ExpiresAt)
}

// Valid returns true if the session grants access at now
func (s Session) Valid(now time.Time) bool {
	return !s.IsAnonymous() && now.Before(s.ExpiresAt)
}

// Remaining returns the time left before expiry, zero for anonymous or expired sessions
func (s Session) Remaining(now time.Time) time.Duration {
	if !s.Valid(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
