package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/AyushNetTech/GymTrack/internal/core/domain"
	"github.com/AyushNetTech/GymTrack/internal/infra/config"
)

type memFlagStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemFlagStore() *memFlagStore {
	return &memFlagStore{data: make(map[string]string)}
}

func (s *memFlagStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *memFlagStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memFlagStore) SetMany(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range entries {
		s.data[key] = value
	}
	return nil
}

func (s *memFlagStore) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *memFlagStore) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

func persistSession(t *testing.T, store *memFlagStore, session domain.Session) {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	if err := store.Set(context.Background(), domain.KeySession, string(raw)); err != nil {
		t.Fatalf("persist session: %v", err)
	}
}

func signedAccessToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestClient(t *testing.T, baseURL string, store *memFlagStore) *Client {
	t.Helper()
	return NewClient(config.IdentitySettings{
		BaseURL:        baseURL,
		APIKey:         "anon-key",
		RequestTimeout: 2 * time.Second,
		RetryMaxWait:   200 * time.Millisecond,
	}, store, zap.NewNop())
}

func TestCurrentSession_NoPersistedSession(t *testing.T) {
	store := newMemFlagStore()
	client := newTestClient(t, "http://identity.invalid", store)

	state, err := client.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("absent session must not be an error, got: %v", err)
	}
	if state.Present {
		t.Fatalf("expected anonymous state, got %+v", state)
	}
}

func TestCurrentSession_ValidPersistedSession(t *testing.T) {
	store := newMemFlagStore()
	persistSession(t, store, domain.Session{
		AccessToken:  "at",
		RefreshToken: "rt",
		UserID:       "user-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	client := newTestClient(t, "http://identity.invalid", store)

	state, err := client.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}
	if !state.Present || state.UserID != "user-1" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestCurrentSession_RefreshesExpiredSession(t *testing.T) {
	var gotRefreshToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.URL.Query().Get("grant_type") != "refresh_token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotRefreshToken = body["refresh_token"]

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-at",
			"refresh_token": "new-rt",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1"},
		})
	}))
	defer server.Close()

	store := newMemFlagStore()
	persistSession(t, store, domain.Session{
		AccessToken:  "stale-at",
		RefreshToken: "stale-rt",
		UserID:       "user-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	client := newTestClient(t, server.URL, store)

	state, err := client.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}
	if !state.Present || state.UserID != "user-1" {
		t.Fatalf("unexpected state %+v", state)
	}
	if gotRefreshToken != "stale-rt" {
		t.Fatalf("expected refresh with stale-rt, got %q", gotRefreshToken)
	}

	var persisted domain.Session
	raw := store.snapshot()[domain.KeySession]
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatalf("unmarshal persisted session: %v", err)
	}
	if persisted.AccessToken != "new-at" || persisted.RefreshToken != "new-rt" {
		t.Fatalf("refreshed session not persisted: %+v", persisted)
	}
}

func TestCurrentSession_RefreshRejectionBehavesAsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := newMemFlagStore()
	persistSession(t, store, domain.Session{
		AccessToken:  "stale-at",
		RefreshToken: "dead-rt",
		UserID:       "user-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	client := newTestClient(t, server.URL, store)

	state, err := client.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("refresh failure must resolve, not error: %v", err)
	}
	if state.Present {
		t.Fatalf("expected anonymous state after rejected refresh, got %+v", state)
	}
}

func TestExchangeTokens_AdoptsSessionAndAnnouncesOnce(t *testing.T) {
	store := newMemFlagStore()
	client := newTestClient(t, "http://identity.invalid", store)

	var (
		mu     sync.Mutex
		states []domain.SessionState
	)
	unsubscribe := client.Subscribe(func(s domain.SessionState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	defer unsubscribe()

	access := signedAccessToken(t, "user-7", time.Now().Add(time.Hour))
	tokens := domain.TokenPair{AccessToken: access, RefreshToken: "rt-7"}

	if err := client.ExchangeTokens(context.Background(), tokens); err != nil {
		t.Fatalf("ExchangeTokens returned error: %v", err)
	}
	// Adopting the same pair again is the same state and must not re-emit.
	if err := client.ExchangeTokens(context.Background(), tokens); err != nil {
		t.Fatalf("second ExchangeTokens returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 1 {
		t.Fatalf("expected exactly one emission, got %d: %+v", len(states), states)
	}
	if !states[0].Present || states[0].UserID != "user-7" {
		t.Fatalf("unexpected emitted state %+v", states[0])
	}

	if _, ok := store.snapshot()[domain.KeySession]; !ok {
		t.Fatalf("exchanged session must be persisted")
	}
}

func TestExchangeTokens_RejectsIncompletePair(t *testing.T) {
	client := newTestClient(t, "http://identity.invalid", newMemFlagStore())

	if err := client.ExchangeTokens(context.Background(), domain.TokenPair{AccessToken: "only"}); err == nil {
		t.Fatalf("expected error for missing refresh token")
	}
	if err := client.ExchangeTokens(context.Background(), domain.TokenPair{AccessToken: "not-a-jwt", RefreshToken: "rt"}); err == nil {
		t.Fatalf("expected error for malformed access token")
	}
}

func TestSignOut_ClearsSessionAndNotifies(t *testing.T) {
	var loggedOut bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/logout" {
			loggedOut = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := newMemFlagStore()
	persistSession(t, store, domain.Session{
		AccessToken:  "at",
		RefreshToken: "rt",
		UserID:       "user-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	client := newTestClient(t, server.URL, store)

	if _, err := client.CurrentSession(context.Background()); err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}

	var last domain.SessionState
	unsubscribe := client.Subscribe(func(s domain.SessionState) { last = s })
	defer unsubscribe()

	if err := client.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}

	if !loggedOut {
		t.Fatalf("expected upstream logout call")
	}
	if last.Present {
		t.Fatalf("expected anonymous emission after sign out, got %+v", last)
	}
	if _, ok := store.snapshot()[domain.KeySession]; ok {
		t.Fatalf("persisted session must be cleared on sign out")
	}
}
