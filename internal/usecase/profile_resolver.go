package usecase

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/AyushNetTech/GymTrack/internal/core/domain"
	"github.com/AyushNetTech/GymTrack/internal/core/port"
)

// ProfileResolver answers "has this user completed their profile",
// backed by the profiles table and cached in the durable flag store.
// Resolution never fails: a lookup error falls back to the cached flag,
// and a cache miss resolves to incomplete. Re-running profile setup is
// the safe direction; admitting an incomplete profile to Home is not.
type ProfileResolver struct {
	profiles     port.ProfileRepository
	flags        port.FlagStore
	logger       *zap.Logger
	retryMaxWait time.Duration
}

// NewProfileResolver constructs a ProfileResolver.
func NewProfileResolver(profiles port.ProfileRepository, flags port.FlagStore, log *zap.Logger) *ProfileResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileResolver{
		profiles:     profiles,
		flags:        flags,
		logger:       log,
		retryMaxWait: 3 * time.Second,
	}
}

// WithRetryMaxWait bounds how long transient lookup failures are retried
// before falling back to the cache.
func (r *ProfileResolver) WithRetryMaxWait(maxWait time.Duration) *ProfileResolver {
	if maxWait > 0 {
		r.retryMaxWait = maxWait
	}
	return r
}

// Resolve determines profile completeness for userID and refreshes the
// durable cache with the backend answer.
func (r *ProfileResolver) Resolve(ctx context.Context, userID string) bool {
	var exists bool
	operation := func() error {
		found, err := r.profiles.Exists(ctx, userID)
		if err != nil {
			return err
		}
		exists = found
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = r.retryMaxWait
	if err := backoff.Retry(operation, backoff.WithContext(eb, ctx)); err != nil {
		r.logger.Warn("profile lookup failed, falling back to cached flag",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return r.cached(ctx)
	}

	r.refreshCache(ctx, exists)
	return exists
}

// MarkCompleted records profile completion optimistically, with no
// backend re-query. Called when the profile-setup flow finishes.
func (r *ProfileResolver) MarkCompleted(ctx context.Context) {
	if err := r.flags.Set(ctx, domain.FlagProfileCompleted, domain.FlagTrue); err != nil {
		r.logger.Warn("failed to cache profile completion", zap.Error(err))
	}
}

// Invalidate drops the cached answer. Called on sign-out so a later
// account on the same device cannot inherit it.
func (r *ProfileResolver) Invalidate(ctx context.Context) {
	if err := r.flags.Remove(ctx, domain.FlagProfileCompleted); err != nil {
		r.logger.Warn("failed to invalidate profile cache", zap.Error(err))
	}
}

func (r *ProfileResolver) cached(ctx context.Context) bool {
	value, ok, err := r.flags.Get(ctx, domain.FlagProfileCompleted)
	if err != nil {
		r.logger.Warn("profile cache read failed, treating as incomplete", zap.Error(err))
		return false
	}
	return ok && value == domain.FlagTrue
}

func (r *ProfileResolver) refreshCache(ctx context.Context, exists bool) {
	if exists {
		if err := r.flags.Set(ctx, domain.FlagProfileCompleted, domain.FlagTrue); err != nil {
			r.logger.Warn("failed to refresh profile cache", zap.Error(err))
		}
		return
	}
	if err := r.flags.Remove(ctx, domain.FlagProfileCompleted); err != nil {
		r.logger.Warn("failed to clear profile cache", zap.Error(err))
	}
}
