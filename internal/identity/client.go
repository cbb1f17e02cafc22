// Package identity adapts the hosted identity service the app delegates
// authentication to. The service owns credentials, token issuance, and
// refresh scheduling; this client only materializes session states and
// announces their transitions.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/AyushNetTech/GymTrack/internal/core/domain"
	"github.com/AyushNetTech/GymTrack/internal/core/port"
	"github.com/AyushNetTech/GymTrack/internal/infra/config"
	"github.com/AyushNetTech/GymTrack/internal/infra/logger"
)

// expirySkew refreshes sessions slightly before their nominal expiry so
// a token does not lapse mid-request.
const expirySkew = 30 * time.Second

// Client implements port.SessionProvider against a GoTrue-style REST API.
// The session survives restarts through the durable flag store, the same
// way the mobile client persisted it in device storage.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	flags        port.FlagStore
	logger       *zap.Logger
	retryMaxWait time.Duration

	mu        sync.Mutex
	current   domain.SessionState
	announced bool
	subs      map[int]func(domain.SessionState)
	nextSubID int
}

var _ port.SessionProvider = (*Client)(nil)

// NewClient constructs an identity client.
func NewClient(cfg config.IdentitySettings, flags port.FlagStore, log *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retryMaxWait := cfg.RetryMaxWait
	if retryMaxWait <= 0 {
		retryMaxWait = 4 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		flags:        flags,
		logger:       log,
		retryMaxWait: retryMaxWait,
		subs:         make(map[int]func(domain.SessionState)),
	}
}

// CurrentSession resolves the session once: load the persisted session,
// refresh it when stale, and fall back to anonymous on any failure.
// An absent session is a successful result.
func (c *Client) CurrentSession(ctx context.Context) (domain.SessionState, error) {
	session, ok := c.loadPersisted(ctx)
	if !ok {
		return c.announce(domain.Anonymous()), nil
	}

	if !session.Expired(time.Now().Add(expirySkew)) {
		return c.announce(session.State()), nil
	}

	refreshed, err := c.refresh(ctx, session.RefreshToken)
	if err != nil {
		c.logger.Warn("session refresh failed, treating as signed out", zap.Error(err))
		return c.announce(domain.Anonymous()), nil
	}

	c.persist(ctx, refreshed)
	return c.announce(refreshed.State()), nil
}

// Subscribe registers fn for session transitions. Identical consecutive
// states are suppressed so callers see at most one emission per actual
// transition.
func (c *Client) Subscribe(fn func(domain.SessionState)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// ExchangeTokens adopts the token pair carried by a verification deep
// link. The user identity comes from the access token's sub claim;
// signature verification stays with the identity service that minted it.
func (c *Client) ExchangeTokens(ctx context.Context, tokens domain.TokenPair) error {
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return fmt.Errorf("token pair is incomplete")
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokens.AccessToken, &claims); err != nil {
		return fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return fmt.Errorf("access token carries no subject")
	}

	session := domain.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserID:       claims.Subject,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	// An expired callback token still identifies the user; refresh it
	// right away instead of adopting a dead credential.
	if session.Expired(time.Now().Add(expirySkew)) {
		refreshed, err := c.refresh(ctx, session.RefreshToken)
		if err != nil {
			return fmt.Errorf("refresh exchanged tokens: %w", err)
		}
		session = refreshed
	}

	c.persist(ctx, session)
	c.announce(session.State())

	c.logger.Info("adopted session from verification link",
		zap.String("user_id", session.UserID),
		zap.String("access_token", logger.MaskToken(session.AccessToken)),
	)
	return nil
}

// SignOut revokes the session upstream on a best-effort basis and always
// clears the persisted session. The absent-session state is announced
// even when the upstream call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if session, ok := c.loadPersisted(ctx); ok {
		if err := c.revoke(ctx, session.AccessToken); err != nil {
			c.logger.Warn("upstream logout failed", zap.Error(err))
		}
	}

	if err := c.flags.Remove(ctx, domain.KeySession); err != nil {
		c.logger.Warn("failed to clear persisted session", zap.Error(err))
	}

	c.announce(domain.Anonymous())
	return nil
}

// announce publishes a state transition to subscribers, suppressing
// duplicates, and returns the state for convenience.
func (c *Client) announce(state domain.SessionState) domain.SessionState {
	c.mu.Lock()
	if c.announced && state == c.current {
		c.mu.Unlock()
		return state
	}
	c.current = state
	c.announced = true
	fns := make([]func(domain.SessionState), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
	return state
}

func (c *Client) loadPersisted(ctx context.Context) (domain.Session, bool) {
	raw, ok, err := c.flags.Get(ctx, domain.KeySession)
	if err != nil {
		c.logger.Warn("failed to read persisted session", zap.Error(err))
		return domain.Session{}, false
	}
	if !ok {
		return domain.Session{}, false
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		c.logger.Warn("discarding unreadable persisted session", zap.Error(err))
		return domain.Session{}, false
	}
	if !session.State().Present {
		return domain.Session{}, false
	}
	return session, true
}

func (c *Client) persist(ctx context.Context, session domain.Session) {
	raw, err := json.Marshal(session)
	if err != nil {
		c.logger.Warn("failed to encode session", zap.Error(err))
		return
	}
	if err := c.flags.Set(ctx, domain.KeySession, string(raw)); err != nil {
		// Losing persistence degrades the next cold start, never this one.
		c.logger.Warn("failed to persist session", zap.Error(err))
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// refresh exchanges a refresh token for a fresh session. Transient
// failures are retried with exponential backoff; a rejected token is
// permanent and fails immediately.
func (c *Client) refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	if refreshToken == "" {
		return domain.Session{}, fmt.Errorf("refresh token is empty")
	}

	var resp tokenResponse
	operation := func() error {
		body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
		if err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/token?grant_type=refresh_token", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("apikey", c.apiKey)
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode >= 500 {
			return fmt.Errorf("identity service returned %d", res.StatusCode)
		}
		if res.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("refresh token rejected with status %d", res.StatusCode))
		}

		if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
			return backoff.Permanent(fmt.Errorf("decode token response: %w", err))
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = c.retryMaxWait
	if err := backoff.Retry(operation, backoff.WithContext(eb, ctx)); err != nil {
		return domain.Session{}, err
	}

	if resp.AccessToken == "" || resp.User.ID == "" {
		return domain.Session{}, fmt.Errorf("token response is incomplete")
	}

	session := domain.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if session.RefreshToken == "" {
		session.RefreshToken = refreshToken
	}
	return session, nil
}

func (c *Client) revoke(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode >= 400 && res.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("logout returned %d", res.StatusCode)
	}
	return nil
}
