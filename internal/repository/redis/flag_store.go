package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	red "github.com/redis/go-redis/v9"
)

const defaultFlagPrefix = "gymtrack:flags"

// FlagStore persists the app's durable bootstrap flags in Redis. Keys are
// namespaced by an install identifier so one instance can back several
// device installs without leaking markers between them.
type FlagStore struct {
	client *red.Client
	prefix string
}

// NewFlagStore constructs a Redis-backed flag store scoped to installID.
func NewFlagStore(client *red.Client, keyPrefix, installID string) *FlagStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultFlagPrefix
	}
	install := strings.TrimSpace(installID)
	if install != "" {
		prefix = fmt.Sprintf("%s:%s", prefix, install)
	}

	return &FlagStore{client: client, prefix: prefix}
}

// Get returns the stored value and whether the key was present. A cache
// miss is not an error.
func (s *FlagStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get flag %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a single flag. Flags have no expiry; they live until
// explicitly removed.
func (s *FlagStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set flag %s: %w", key, err)
	}
	return nil
}

// SetMany writes the supplied entries in a single round trip. Markers
// that are set together usually land together, but callers must still
// read each key independently.
func (s *FlagStore) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	pairs := make([]any, 0, len(entries)*2)
	for key, value := range entries {
		pairs = append(pairs, s.key(key), value)
	}

	if err := s.client.MSet(ctx, pairs...).Err(); err != nil {
		return fmt.Errorf("redis set flags: %w", err)
	}
	return nil
}

// Remove deletes the supplied keys. Removing an absent key is a no-op.
func (s *FlagStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.key(key))
	}

	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis remove flags: %w", err)
	}
	return nil
}

func (s *FlagStore) key(name string) string {
	return fmt.Sprintf("%s:%s", s.prefix, name)
}
