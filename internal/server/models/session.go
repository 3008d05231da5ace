package models

import "time"

// SessionUser is the snapshot of a session owner's public attributes.
type SessionUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Login    string `json:"login"`
	Avatar   string `json:"avatar"`
	Email    string `json:"email"`
	CanLogin bool   `json:"canLogin"`
	IsAdmin  bool   `json:"isAdmin"`
	Builtin  bool   `json:"builtin"`
}

// Session is a row of core_sessions joined with its owner. Now is the
// store's clock at the time the row was read and is the reference for all
// expiry decisions.
type Session struct {
	ID          string
	Login       string
	AccessToken string
	IssuedAt    time.Time
	ValidUntil  time.Time
	Now         time.Time
	User        SessionUser
}

// Expired reports whether the session is no longer valid at s.Now.
func (s *Session) Expired() bool {
	return !s.ValidUntil.After(s.Now)
}

// Remaining is the validity left at s.Now; it is negative once expired.
func (s *Session) Remaining() time.Duration {
	return s.ValidUntil.Sub(s.Now)
}
