package port

import "context"

// FlagStore persists small key-value entries across process restarts.
// Each write is individually durable; no transactional guarantee holds
// across keys. SetMany writes its entries in one round trip so markers
// that belong together usually land together, but readers must still
// treat every key as independent.
type FlagStore interface {
	// Get returns the stored value and whether the key was present.
	// Absence is not an error.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, entries map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}
