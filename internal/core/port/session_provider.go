package port

import (
	"context"

	"github.com/AyushNetTech/GymTrack/internal/core/domain"
)

// SessionProvider wraps the external identity service. Token issuance,
// refresh scheduling, and credential validation belong to the provider;
// the app only consumes the resulting session states.
type SessionProvider interface {
	// CurrentSession resolves the session once. An absent session is a
	// successful result, never an error.
	CurrentSession(ctx context.Context) (domain.SessionState, error)
	// Subscribe registers fn for every session transition and returns an
	// unsubscribe function. Implementations emit at most once per actual
	// transition; identical consecutive states are suppressed.
	Subscribe(fn func(domain.SessionState)) (unsubscribe func())
	// ExchangeTokens adopts a token pair delivered by a verification deep
	// link. On success the resulting session is announced through
	// Subscribe, not returned here.
	ExchangeTokens(ctx context.Context, tokens domain.TokenPair) error
	// SignOut revokes the session upstream on a best-effort basis and
	// always clears the locally persisted session.
	SignOut(ctx context.Context) error
}
