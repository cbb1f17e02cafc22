package domain

import (
	"testing"
	"time"
)

func ready(session SessionState) Snapshot {
	return Snapshot{
		LinkingResolved: true,
		FlagsLoaded:     true,
		SessionResolved: true,
		ProfileResolved: session.Present,
		Session:         session,
	}
}

func TestResolveRoute_DecisionTable(t *testing.T) {
	signedIn := SessionState{Present: true, UserID: "user-1"}

	cases := []struct {
		name string
		snap Snapshot
		want Route
	}{
		{
			name: "booting renders loading",
			snap: Snapshot{},
			want: RouteLoading,
		},
		{
			name: "pending reset wins over boot",
			snap: Snapshot{PendingReset: true},
			want: RouteResetPassword,
		},
		{
			name: "pending reset wins over home",
			snap: func() Snapshot {
				s := ready(signedIn)
				s.ProfileCompleted = true
				s.PendingReset = true
				return s
			}(),
			want: RouteResetPassword,
		},
		{
			name: "signed out first run shows intro",
			snap: ready(Anonymous()),
			want: RouteIntro,
		},
		{
			name: "intro completed routes to auth",
			snap: func() Snapshot {
				s := ready(Anonymous())
				s.IntroCompleted = true
				return s
			}(),
			want: RouteAuth,
		},
		{
			name: "verification arrival suppresses intro",
			snap: func() Snapshot {
				s := ready(Anonymous())
				s.OpenedFromVerification = true
				return s
			}(),
			want: RouteAuth,
		},
		{
			name: "signed in without profile goes to setup",
			snap: ready(signedIn),
			want: RouteProfileSetup,
		},
		{
			name: "signed in with profile goes home",
			snap: func() Snapshot {
				s := ready(signedIn)
				s.ProfileCompleted = true
				return s
			}(),
			want: RouteHome,
		},
		{
			name: "profile unresolved keeps loading even when signed in",
			snap: func() Snapshot {
				s := ready(signedIn)
				s.ProfileResolved = false
				s.ProfileCompleted = true
				return s
			}(),
			want: RouteLoading,
		},
		{
			name: "profile resolution does not gate signed out state",
			snap: func() Snapshot {
				s := ready(Anonymous())
				s.IntroCompleted = true
				s.ProfileResolved = false
				return s
			}(),
			want: RouteAuth,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveRoute(tc.snap); got != tc.want {
				t.Fatalf("ResolveRoute = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSnapshot_Booting(t *testing.T) {
	signedIn := SessionState{Present: true, UserID: "user-1"}

	if !(Snapshot{}).Booting() {
		t.Fatalf("zero snapshot should be booting")
	}

	s := ready(Anonymous())
	if s.Booting() {
		t.Fatalf("resolved anonymous snapshot should not be booting")
	}

	s = ready(signedIn)
	s.ProfileResolved = false
	if !s.Booting() {
		t.Fatalf("signed-in snapshot without resolved profile should be booting")
	}
}

func TestSession_StateAndExpiry(t *testing.T) {
	at := time.Now().UTC()

	var empty Session
	if empty.State().Present {
		t.Fatalf("empty session must map to anonymous state")
	}
	if !empty.Expired(at) {
		t.Fatalf("zero expiry must count as expired")
	}

	s := Session{AccessToken: "at", RefreshToken: "rt", UserID: "user-1", ExpiresAt: at.Add(time.Hour)}
	state := s.State()
	if !state.Present || state.UserID != "user-1" {
		t.Fatalf("unexpected state %+v", state)
	}
	if s.Expired(at) {
		t.Fatalf("future expiry must not count as expired")
	}
	if !s.Expired(at.Add(2 * time.Hour)) {
		t.Fatalf("past expiry must count as expired")
	}
}
