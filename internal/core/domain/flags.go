package domain

// Durable flag keys persisted in the local key-value store. Each holds
// the literal string "true" when set and is absent otherwise, matching
// the storage contract the mobile client established.
const (
	// FlagIntroCompleted records that the user has seen the intro carousel.
	FlagIntroCompleted = "INTRO_COMPLETED"
	// FlagAuthStarted records that an email-verification signup flow was
	// initiated and has not yet been resolved.
	FlagAuthStarted = "AUTH_STARTED"
	// FlagShowVerifyDialog schedules the verification-success dialog for
	// the next opportunity, across restarts.
	FlagShowVerifyDialog = "SHOW_VERIFY_DIALOG"
	// FlagProfileCompleted caches the backend profile-existence answer for
	// the signed-in user.
	FlagProfileCompleted = "PROFILE_COMPLETED"
	// KeySession holds the serialized session for restart resume. Unlike
	// the flags above it stores a JSON document, not "true".
	KeySession = "SESSION"
)

// FlagTrue is the stored representation of a set flag.
const FlagTrue = "true"
