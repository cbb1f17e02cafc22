package domain

// LinkKind classifies an incoming deep link URL.
type LinkKind string

const (
	// LinkNone marks a URL the app does not handle specially.
	LinkNone LinkKind = "none"
	// LinkResetPassword marks a password-recovery link.
	LinkResetPassword LinkKind = "reset_password"
	// LinkAuthCallback marks an email-verification callback link.
	LinkAuthCallback LinkKind = "auth_callback"
)

// Link is a classified deep link. Produced once per received URL and
// consumed immediately by the bootstrap machine; never persisted.
type Link struct {
	Kind   LinkKind
	RawURL string
	// Tokens is populated for auth callbacks when the URL carried a
	// usable access/refresh pair. Nil is a valid outcome.
	Tokens *TokenPair
}
