package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AyushNetTech/GymTrack/internal/core/domain"
	"github.com/AyushNetTech/GymTrack/internal/core/port"
	"github.com/AyushNetTech/GymTrack/internal/deeplink"
	"github.com/AyushNetTech/GymTrack/internal/infra/telemetry"
)

const defaultCallTimeout = 6 * time.Second

// RouteState is the resolved view the UI shell consumes: one top-level
// route, the verification-dialog overlay bit, and enough context for the
// destination screen to render its own messaging.
type RouteState struct {
	Route            domain.Route
	ShowVerifyDialog bool
	PendingResetURL  string
	Session          domain.SessionState
}

type eventKind int

const (
	evFlagsLoaded eventKind = iota
	evSession
	evInitialLink
	evLiveLink
	evProfileResolved
	evCallbackProcessed
	evProfileSetupFinished
	evVerifyDialogDismissed
	evSignOut
	evResetLinkHandled
)

type event struct {
	kind eventKind

	// evFlagsLoaded
	introCompleted   bool
	authStarted      bool
	showVerifyDialog bool

	// evSession
	session domain.SessionState

	// evInitialLink / evLiveLink
	link domain.Link

	// evProfileResolved
	userID           string
	profileCompleted bool
}

// BootstrapMachine reconciles four independently-resolving startup
// signals (durable flags, session, profile completeness, deep link) into
// a single resolved route. All state mutation happens on one event-loop
// goroutine; I/O runs elsewhere and reports back as events, so every
// interleaving of the initial lookups converges on the same route.
type BootstrapMachine struct {
	flags    port.FlagStore
	sessions port.SessionProvider
	profiles *ProfileResolver
	logger   *zap.Logger
	metrics  *telemetry.Metrics

	callTimeout time.Duration

	ctx         context.Context
	events      chan event
	unsubscribe func()
	loopDone    chan struct{}

	// Owned by the loop goroutine after Start.
	snap            domain.Snapshot
	pendingResetURL string
	verifyDialog    bool

	mu        sync.RWMutex
	published RouteState
	observers []func(RouteState)
}

// NewBootstrapMachine constructs the machine. Start must be called
// before any event method.
func NewBootstrapMachine(flags port.FlagStore, sessions port.SessionProvider, profiles *ProfileResolver, log *zap.Logger) *BootstrapMachine {
	if log == nil {
		log = zap.NewNop()
	}
	return &BootstrapMachine{
		flags:       flags,
		sessions:    sessions,
		profiles:    profiles,
		logger:      log,
		callTimeout: defaultCallTimeout,
		events:      make(chan event, 64),
		loopDone:    make(chan struct{}),
		published:   RouteState{Route: domain.RouteLoading},
	}
}

// WithMetrics attaches Prometheus instrumentation.
func (m *BootstrapMachine) WithMetrics(metrics *telemetry.Metrics) *BootstrapMachine {
	m.metrics = metrics
	return m
}

// WithCallTimeout bounds every external lookup the machine issues.
func (m *BootstrapMachine) WithCallTimeout(timeout time.Duration) *BootstrapMachine {
	if timeout > 0 {
		m.callTimeout = timeout
	}
	return m
}

// Start subscribes to session changes, launches the event loop, and
// fires the three concurrent startup lookups: durable flags, current
// session, and the cold-start deep link. Each resolution arrives as an
// event; their order does not matter.
func (m *BootstrapMachine) Start(ctx context.Context, initialURL string) {
	m.ctx = ctx

	m.unsubscribe = m.sessions.Subscribe(func(state domain.SessionState) {
		m.post(event{kind: evSession, session: state})
	})

	go m.loop(ctx)

	go m.loadFlags(ctx)
	go m.lookupSession(ctx)
	go func() {
		m.post(event{kind: evInitialLink, link: deeplink.Classify(initialURL)})
	}()
}

// Stop detaches from the session stream and waits for the loop to drain.
// The context passed to Start must be cancelled first.
func (m *BootstrapMachine) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.ctx != nil {
		<-m.loopDone
	}
}

// State returns the last published route state.
func (m *BootstrapMachine) State() RouteState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.published
}

// SubscribeRoutes registers fn for every published route-state change
// and returns an unsubscribe function. The current state is not
// replayed; call State for it.
func (m *BootstrapMachine) SubscribeRoutes(fn func(RouteState)) func() {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	index := len(m.observers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.observers[index] = nil
		m.mu.Unlock()
	}
}

// HandleLink delivers a deep link received while running.
func (m *BootstrapMachine) HandleLink(rawURL string) {
	m.post(event{kind: evLiveLink, link: deeplink.Classify(rawURL)})
}

// ProfileSetupFinished signals that the profile-setup flow completed.
// Completion is applied optimistically; no backend re-query happens.
func (m *BootstrapMachine) ProfileSetupFinished() {
	m.post(event{kind: evProfileSetupFinished})
}

// DismissVerifyDialog acknowledges the verification-success dialog and
// clears its durable markers.
func (m *BootstrapMachine) DismissVerifyDialog() {
	m.post(event{kind: evVerifyDialogDismissed})
}

// SignOut ends the session and clears every durable marker that could
// mis-route a different user on the same device.
func (m *BootstrapMachine) SignOut() {
	m.post(event{kind: evSignOut})
}

// ResetLinkHandled signals that the reset-password flow consumed its
// link, releasing the route pre-emption.
func (m *BootstrapMachine) ResetLinkHandled() {
	m.post(event{kind: evResetLinkHandled})
}

func (m *BootstrapMachine) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.ctx.Done():
	}
}

func (m *BootstrapMachine) loop(ctx context.Context) {
	defer close(m.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.handle(ctx, ev)
			m.publish()
		}
	}
}

func (m *BootstrapMachine) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evFlagsLoaded:
		m.snap.FlagsLoaded = true
		m.snap.IntroCompleted = ev.introCompleted
		if ev.authStarted {
			m.snap.OpenedFromVerification = true
		}
		if ev.showVerifyDialog {
			m.verifyDialog = true
		}

	case evSession:
		prev := m.snap.Session
		m.snap.Session = ev.session
		m.snap.SessionResolved = true

		switch {
		case prev.Present && !ev.session.Present:
			// Session-scoped derived state dies with the session, in the
			// same event turn, before any reader can observe it.
			m.snap.ProfileResolved = false
			m.snap.ProfileCompleted = false
			m.snap.OpenedFromVerification = false
			m.verifyDialog = false
		case ev.session.Present && ev.session.UserID != prev.UserID:
			m.snap.ProfileResolved = false
			m.snap.ProfileCompleted = false
			m.startProfileResolution(ctx, ev.session.UserID)
		}

	case evInitialLink:
		m.snap.LinkingResolved = true
		m.handleClassifiedLink(ctx, ev.link)

	case evLiveLink:
		m.handleClassifiedLink(ctx, ev.link)

	case evProfileResolved:
		if !m.snap.Session.Present || m.snap.Session.UserID != ev.userID {
			m.logger.Debug("discarding stale profile result", zap.String("user_id", ev.userID))
			m.metrics.StaleProfileResultDiscarded()
			return
		}
		m.snap.ProfileCompleted = ev.profileCompleted
		m.snap.ProfileResolved = true

	case evCallbackProcessed:
		m.verifyDialog = true

	case evProfileSetupFinished:
		m.snap.ProfileCompleted = true
		m.snap.ProfileResolved = true
		go func() {
			cctx, cancel := m.callContext(ctx)
			defer cancel()
			m.profiles.MarkCompleted(cctx)
		}()

	case evVerifyDialogDismissed:
		m.verifyDialog = false
		m.snap.OpenedFromVerification = false
		go func() {
			cctx, cancel := m.callContext(ctx)
			defer cancel()
			if err := m.flags.Remove(cctx, domain.FlagShowVerifyDialog, domain.FlagAuthStarted); err != nil {
				m.logger.Warn("failed to clear verification markers", zap.Error(err))
			}
		}()

	case evSignOut:
		go func() {
			cctx, cancel := m.callContext(ctx)
			defer cancel()
			if err := m.flags.Remove(cctx, domain.FlagAuthStarted, domain.FlagShowVerifyDialog); err != nil {
				m.logger.Warn("failed to clear sign-out residue", zap.Error(err))
			}
			m.profiles.Invalidate(cctx)
			// The absent-session state arrives through the subscription.
			if err := m.sessions.SignOut(cctx); err != nil {
				m.logger.Warn("sign out failed", zap.Error(err))
			}
		}()

	case evResetLinkHandled:
		m.pendingResetURL = ""
	}
}

func (m *BootstrapMachine) handleClassifiedLink(ctx context.Context, link domain.Link) {
	if link.Kind != domain.LinkNone {
		m.metrics.LinkReceived(string(link.Kind))
	}

	switch link.Kind {
	case domain.LinkResetPassword:
		// Pre-empts every other decision: a user recovering a password may
		// not have a usable session.
		m.pendingResetURL = link.RawURL
		m.logger.Info("password reset link received")

	case domain.LinkAuthCallback:
		m.snap.OpenedFromVerification = true
		go m.processAuthCallback(ctx, link)
	}
}

// processAuthCallback runs outside the loop: mark the flow started,
// delegate the token exchange, then schedule the acknowledgment dialog
// regardless of the exchange outcome. The dialog acknowledges that a
// verification link was processed; exchange failures surface through the
// identity service's own error channel on the auth screen.
func (m *BootstrapMachine) processAuthCallback(ctx context.Context, link domain.Link) {
	cctx, cancel := m.callContext(ctx)
	defer cancel()

	if err := m.flags.Set(cctx, domain.FlagAuthStarted, domain.FlagTrue); err != nil {
		m.logger.Warn("failed to persist auth-started marker", zap.Error(err))
	}

	if link.Tokens != nil {
		if err := m.sessions.ExchangeTokens(cctx, *link.Tokens); err != nil {
			m.logger.Warn("verification token exchange failed", zap.Error(err))
		}
	} else {
		m.logger.Info("verification link carried no tokens")
	}

	if err := m.flags.Set(cctx, domain.FlagShowVerifyDialog, domain.FlagTrue); err != nil {
		m.logger.Warn("failed to persist verify-dialog marker", zap.Error(err))
	}

	m.post(event{kind: evCallbackProcessed})
}

func (m *BootstrapMachine) startProfileResolution(ctx context.Context, userID string) {
	go func() {
		cctx, cancel := m.callContext(ctx)
		defer cancel()
		completed := m.profiles.Resolve(cctx, userID)
		m.post(event{kind: evProfileResolved, userID: userID, profileCompleted: completed})
	}()
}

func (m *BootstrapMachine) loadFlags(ctx context.Context) {
	cctx, cancel := m.callContext(ctx)
	defer cancel()

	ev := event{kind: evFlagsLoaded}
	ev.introCompleted = m.flagSet(cctx, domain.FlagIntroCompleted)
	ev.authStarted = m.flagSet(cctx, domain.FlagAuthStarted)
	ev.showVerifyDialog = m.flagSet(cctx, domain.FlagShowVerifyDialog)
	m.post(ev)
}

func (m *BootstrapMachine) flagSet(ctx context.Context, key string) bool {
	value, ok, err := m.flags.Get(ctx, key)
	if err != nil {
		m.logger.Warn("flag read failed, treating as unset",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}
	return ok && value == domain.FlagTrue
}

func (m *BootstrapMachine) lookupSession(ctx context.Context) {
	cctx, cancel := m.callContext(ctx)
	defer cancel()

	state, err := m.sessions.CurrentSession(cctx)
	if err != nil {
		m.logger.Warn("session lookup failed, treating as signed out", zap.Error(err))
		state = domain.Anonymous()
	}
	m.post(event{kind: evSession, session: state})
}

func (m *BootstrapMachine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.callTimeout)
}

// publish recomputes the route from the current snapshot and notifies
// observers when it changed. The route is always derived, never stored.
func (m *BootstrapMachine) publish() {
	snap := m.snap
	snap.PendingReset = m.pendingResetURL != ""

	state := RouteState{
		Route:           domain.ResolveRoute(snap),
		PendingResetURL: m.pendingResetURL,
		Session:         snap.Session,
	}
	// The dialog is an overlay on a settled route, not a route. It waits
	// out boot and never covers the reset flow.
	if m.verifyDialog && !snap.Booting() && state.Route != domain.RouteResetPassword {
		state.ShowVerifyDialog = true
	}

	m.mu.Lock()
	changed := state != m.published
	m.published = state
	observers := make([]func(RouteState), 0, len(m.observers))
	for _, fn := range m.observers {
		if fn != nil {
			observers = append(observers, fn)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.metrics.RouteChanged(string(state.Route))
	m.logger.Info("route resolved",
		zap.String("route", string(state.Route)),
		zap.Bool("verify_dialog", state.ShowVerifyDialog),
		zap.Bool("signed_in", state.Session.Present),
	)

	for _, fn := range observers {
		fn(state)
	}
}
