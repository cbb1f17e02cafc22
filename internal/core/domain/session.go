package domain

import "time"

// SessionState reports whether a user is currently authenticated.
// Absence of a session is a valid, stable value, not an error.
type SessionState struct {
	Present bool
	UserID  string
}

// Anonymous is the canonical absent-session state.
func Anonymous() SessionState {
	return SessionState{}
}

// Session is the persisted credential set issued by the identity provider.
// It survives restarts so the app can resume a signed-in state without
// asking the user to authenticate again.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// State collapses the session into the presence/identity pair consumed by
// the bootstrap machine.
func (s Session) State() SessionState {
	if s.UserID == "" || s.AccessToken == "" {
		return Anonymous()
	}
	return SessionState{Present: true, UserID: s.UserID}
}

// Expired reports whether the access token is past its expiry at the
// supplied moment. A zero expiry is treated as expired so a malformed
// persisted session is refreshed rather than trusted.
func (s Session) Expired(at time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return true
	}
	return !s.ExpiresAt.After(at)
}

// TokenPair carries tokens extracted from a verification deep link,
// pending exchange for a full session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
