package port

import "context"

// ProfileRepository answers whether a user has completed their profile.
// Existence is the only question the bootstrap flow needs.
type ProfileRepository interface {
	Exists(ctx context.Context, userID string) (bool, error)
}
