package domain

// Route is the single top-level destination the UI shell should render.
type Route string

const (
	RouteLoading       Route = "loading"
	RouteIntro         Route = "intro"
	RouteAuth          Route = "auth"
	RouteResetPassword Route = "reset_password"
	RouteProfileSetup  Route = "profile_setup"
	RouteHome          Route = "home"
)

// Snapshot is the consistent view of bootstrap state a route is derived
// from. It is a value copy; the machine owns the live state.
type Snapshot struct {
	// Readiness flags. All must hold before any non-Loading route is
	// rendered for the current session state.
	LinkingResolved bool
	FlagsLoaded     bool
	SessionResolved bool
	// ProfileResolved is only meaningful while a session is present. It is
	// forced back to false whenever the session disappears or the user id
	// changes, so a stale answer can never leak across accounts.
	ProfileResolved bool

	Session SessionState

	IntroCompleted bool
	// OpenedFromVerification mirrors the durable AUTH_STARTED marker. A
	// signed-out user who arrived via an email link is mid-flow and should
	// land on Auth, not be shown the intro again.
	OpenedFromVerification bool
	ProfileCompleted       bool

	// PendingReset is set while a classified reset-password link has not
	// been handled yet.
	PendingReset bool
}

// Booting reports whether the machine is still gathering its initial
// signals. ProfileResolved only gates when a session is present.
func (s Snapshot) Booting() bool {
	if !s.LinkingResolved || !s.FlagsLoaded || !s.SessionResolved {
		return true
	}
	return s.Session.Present && !s.ProfileResolved
}

// ResolveRoute maps a snapshot to the one route to render. Evaluated
// top to bottom, first match wins. A pending reset-password link wins
// over everything, including boot: a user recovering a lost password may
// not have a usable session, so nothing may gate that path.
func ResolveRoute(s Snapshot) Route {
	if s.PendingReset {
		return RouteResetPassword
	}
	if s.Booting() {
		return RouteLoading
	}
	if !s.Session.Present {
		if !s.IntroCompleted && !s.OpenedFromVerification {
			return RouteIntro
		}
		return RouteAuth
	}
	if !s.ProfileCompleted {
		return RouteProfileSetup
	}
	return RouteHome
}
