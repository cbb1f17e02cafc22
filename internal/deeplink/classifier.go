// Package deeplink classifies URLs the OS hands to the app in place of a
// browser: password-recovery links and email-verification callbacks.
package deeplink

import (
	"net/url"
	"strings"

	"github.com/AyushNetTech/GymTrack/internal/core/domain"
)

const (
	resetPathMarker    = "reset-password"
	callbackPathMarker = "auth/callback"

	accessTokenParam  = "access_token"
	refreshTokenParam = "refresh_token"
)

// Classify maps a raw URL to a domain.Link. Reset-password classification
// takes priority over auth-callback: password recovery must never be
// swallowed by the verification path, even for a URL that degenerately
// matches both markers. Unrecognized or empty URLs classify as LinkNone;
// classification never fails.
func Classify(rawURL string) domain.Link {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return domain.Link{Kind: domain.LinkNone, RawURL: rawURL}
	}

	if strings.Contains(trimmed, resetPathMarker) {
		// Token extraction for the reset path belongs to the reset flow
		// itself; the raw URL is carried forward unmodified.
		return domain.Link{Kind: domain.LinkResetPassword, RawURL: rawURL}
	}

	if strings.Contains(trimmed, callbackPathMarker) {
		return domain.Link{
			Kind:   domain.LinkAuthCallback,
			RawURL: rawURL,
			Tokens: extractTokens(trimmed),
		}
	}

	return domain.Link{Kind: domain.LinkNone, RawURL: rawURL}
}

// extractTokens pulls the access/refresh pair from the URL fragment
// first, then from the query string if the fragment yielded nothing.
// A missing pair is a valid outcome and yields nil.
func extractTokens(rawURL string) *domain.TokenPair {
	fragment, query := splitComponents(rawURL)

	if pair := parsePair(fragment); pair != nil {
		return pair
	}
	return parsePair(query)
}

// splitComponents returns the fragment and query portions of the URL.
// Custom schemes the standard parser rejects fall back to plain string
// slicing so a malformed link still yields whatever it carries.
func splitComponents(rawURL string) (fragment, query string) {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Fragment, u.RawQuery
	}

	rest := rawURL
	if i := strings.Index(rest, "#"); i >= 0 {
		fragment = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.Index(rest, "?"); i >= 0 {
		query = rest[i+1:]
	}
	return fragment, query
}

func parsePair(component string) *domain.TokenPair {
	if component == "" {
		return nil
	}

	values, err := url.ParseQuery(component)
	if err != nil {
		return nil
	}

	access := values.Get(accessTokenParam)
	refresh := values.Get(refreshTokenParam)
	if access == "" || refresh == "" {
		return nil
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}
}
