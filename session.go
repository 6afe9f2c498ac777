package auth

import (
	"context"
	"sync"
	"time"
)

// SessionState is the lifecycle state of the client session.
type SessionState string

const (
	// StateUninitialized means restore has not run yet. Guards treat it
	// like loading and render the wait view instead of redirecting.
	StateUninitialized SessionState = "uninitialized"
	StateLoading       SessionState = "loading"
	StateAuthenticated SessionState = "authenticated"
	// StateUnauthenticated is a settled "no session", distinct from
	// "not yet known".
	StateUnauthenticated SessionState = "unauthenticated"
)

// SessionTransition is passed to commit hooks.
type SessionTransition struct {
	From SessionState
	To   SessionState
	User *User
}

// SessionHook runs around a state commit. A before hook returning an error
// aborts the commit; after hook errors are logged and dropped.
type SessionHook func(ctx context.Context, st SessionTransition) error

// SessionOption customizes Manager construction.
type SessionOption func(*Manager)

// WithSessionLogger overrides the default logger.
func WithSessionLogger(logger Logger) SessionOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithSessionActivitySink sets the ActivitySink used to publish session events.
func WithSessionActivitySink(sink ActivitySink) SessionOption {
	return func(m *Manager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithTokenValidator enables eager token validation during Start. Without a
// validator a stored token is trusted until the backend rejects it.
func WithTokenValidator(validator TokenValidator) SessionOption {
	return func(m *Manager) {
		m.tokenValidator = validator
	}
}

// WithStrictOrdering rejects commits built against a superseded session
// snapshot with ErrStaleCommand. The default keeps last-write-wins.
func WithStrictOrdering() SessionOption {
	return func(m *Manager) {
		m.strictOrdering = true
	}
}

// WithBeforeCommitHook adds a hook executed before a state commit.
func WithBeforeCommitHook(h SessionHook) SessionOption {
	return func(m *Manager) {
		if h != nil {
			m.beforeHooks = append(m.beforeHooks, h)
		}
	}
}

// WithAfterCommitHook adds a hook executed after a state commit succeeds.
func WithAfterCommitHook(h SessionHook) SessionOption {
	return func(m *Manager) {
		if h != nil {
			m.afterHooks = append(m.afterHooks, h)
		}
	}
}

// Manager owns the session state machine. All mutations run through an
// ordered command path: each begins by entering loading, then commits to a
// settled state, and a failed or panicking mutation always settles back, so
// the session can never be stuck loading.
type Manager struct {
	mu             sync.Mutex
	state          SessionState
	user           *User
	seq            uint64
	store          Store
	gateway        Gateway
	transitions    map[SessionState]map[SessionState]struct{}
	now            func() time.Time
	activitySink   ActivitySink
	logger         Logger
	tokenValidator TokenValidator
	strictOrdering bool
	beforeHooks    []SessionHook
	afterHooks     []SessionHook
}

var _ Session = (*Manager)(nil)

// NewManager creates a session manager in the uninitialized state. Call
// Start to restore any persisted session before using the accessors.
func NewManager(store Store, gateway Gateway, opts ...SessionOption) *Manager {
	m := &Manager{
		state:   StateUninitialized,
		store:   store,
		gateway: gateway,
		transitions: map[SessionState]map[SessionState]struct{}{
			StateUninitialized: {
				StateLoading: {},
			},
			StateLoading: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
			},
			StateAuthenticated: {
				StateLoading:         {},
				StateAuthenticated:   {},
				StateUnauthenticated: {},
			},
			StateUnauthenticated: {
				StateLoading:       {},
				StateAuthenticated: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// sessionCommand captures the snapshot a mutation was built against.
type sessionCommand struct {
	seq  uint64
	prev SessionState
	done bool
}

func (m *Manager) canTransition(from, to SessionState) bool {
	if from == to {
		return true
	}
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// begin moves the session into loading and hands back the command token the
// mutation must commit with.
func (m *Manager) begin() (*sessionCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canTransition(m.state, StateLoading) {
		return nil, invalidTransitionError(string(m.state), string(StateLoading))
	}

	m.seq++
	cmd := &sessionCommand{seq: m.seq, prev: m.state}
	m.state = StateLoading
	return cmd, nil
}

// settle restores the pre-mutation state when a command never committed.
// Deferred by every mutation so a panic or early return cannot leave the
// session loading.
func (m *Manager) settle(cmd *sessionCommand) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cmd.done {
		return
	}
	cmd.done = true
	if m.state == StateLoading && m.seq == cmd.seq {
		m.state = cmd.prev
	}
}

// commit settles the command into a final state. Under strict ordering a
// command superseded by a newer mutation is rejected.
func (m *Manager) commit(ctx context.Context, cmd *sessionCommand, to SessionState, user *User) error {
	m.mu.Lock()
	if cmd.done {
		m.mu.Unlock()
		return staleCommandError()
	}
	if m.seq != cmd.seq {
		cmd.done = true
		m.mu.Unlock()
		if m.strictOrdering {
			return staleCommandError()
		}
		return nil
	}

	st := SessionTransition{From: cmd.prev, To: to, User: user}
	m.mu.Unlock()

	for _, hook := range m.beforeHooks {
		if err := hook(ctx, st); err != nil {
			m.settle(cmd)
			return err
		}
	}

	m.mu.Lock()
	cmd.done = true
	m.state = to
	m.user = user
	m.mu.Unlock()

	for _, hook := range m.afterHooks {
		if err := hook(ctx, st); err != nil {
			m.logger.Warn("session after-commit hook: %v", err)
		}
	}

	return nil
}

// Start restores a persisted session, if any. A parsable stored user settles
// the session authenticated; a missing or unreadable user settles it
// unauthenticated. A stored token is not required: externally authenticated
// logins persist a user without one. With a TokenValidator configured a
// stored token is verified first and a rejected token clears the session.
func (m *Manager) Start(ctx context.Context) error {
	cmd, err := m.begin()
	if err != nil {
		return err
	}
	defer m.settle(cmd)

	token, hasToken := m.store.Token(ctx)
	user, err := m.store.GetCurrentUser(ctx)
	if err != nil {
		return err
	}

	if user == nil {
		return m.commit(ctx, cmd, StateUnauthenticated, nil)
	}

	if hasToken && m.tokenValidator != nil {
		if _, err := m.tokenValidator.Validate(ctx, token); err != nil {
			m.logger.Warn("stored token rejected, clearing session: %v", err)
			if err := m.store.Logout(ctx); err != nil {
				m.logger.Error("clearing rejected session: %v", err)
			}
			return m.commit(ctx, cmd, StateUnauthenticated, nil)
		}
	}

	if err := m.commit(ctx, cmd, StateAuthenticated, user); err != nil {
		return err
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSessionRestored,
		UserID:    user.ID,
		FromState: cmd.prev,
		ToState:   StateAuthenticated,
	})

	return nil
}

func (m *Manager) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	cmd, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer m.settle(cmd)

	result, err := m.gateway.Login(ctx, email, password, rememberMe)
	if err != nil {
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			FromState: cmd.prev,
			ToState:   cmd.prev,
			Metadata:  map[string]any{"email": email},
		})
		return nil, err
	}

	if err := m.commit(ctx, cmd, StateAuthenticated, result.User); err != nil {
		return nil, err
	}

	var userID int64
	if result.User != nil {
		userID = result.User.ID
	}
	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    userID,
		FromState: cmd.prev,
		ToState:   StateAuthenticated,
	})

	return result, nil
}

// Register creates an account. Success never authenticates: the new user
// still has to verify their email and log in, so the session settles back to
// its prior state.
func (m *Manager) Register(ctx context.Context, reg Registration) (*RegisterResult, error) {
	cmd, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer m.settle(cmd)

	result, err := m.gateway.Register(ctx, reg)
	if err != nil {
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventRegisterFailure,
			FromState: cmd.prev,
			ToState:   cmd.prev,
			Metadata:  map[string]any{"email": reg.Email},
		})
		return nil, err
	}

	if err := m.commit(ctx, cmd, cmd.prev, m.userSnapshot()); err != nil {
		return nil, err
	}

	var userID int64
	if result.User != nil {
		userID = result.User.ID
	}
	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegisterSuccess,
		UserID:    userID,
		FromState: cmd.prev,
		ToState:   cmd.prev,
		Metadata:  map[string]any{"emailSent": result.EmailSent},
	})

	return result, nil
}

// Logout clears the persisted session and settles unauthenticated. It is
// synchronous and idempotent: by the time it returns, accessors already
// report the logged-out session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	prev := m.state
	prevUser := m.user
	m.seq++
	m.state = StateUnauthenticated
	m.user = nil
	m.mu.Unlock()

	if err := m.gateway.Logout(ctx); err != nil {
		m.logger.Error("clearing persisted session: %v", err)
		return err
	}

	var userID int64
	if prevUser != nil {
		userID = prevUser.ID
	}
	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    userID,
		FromState: prev,
		ToState:   StateUnauthenticated,
	})

	return nil
}

// SetUserFromOAuth reconciles an externally authenticated user into the
// session. An empty role defaults to USER before persistence so admin checks
// stay well-defined.
func (m *Manager) SetUserFromOAuth(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, invalidTransitionError(string(m.State()), string(StateAuthenticated))
	}

	normalized := *user
	role, _ := ParseRole(normalized.Role)
	normalized.Role = role

	if err := m.store.SetUser(ctx, &normalized); err != nil {
		return nil, err
	}

	m.mu.Lock()
	prev := m.state
	m.seq++
	m.state = StateAuthenticated
	m.user = &normalized
	m.mu.Unlock()

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventOAuthLogin,
		UserID:    normalized.ID,
		FromState: prev,
		ToState:   StateAuthenticated,
	})

	return &normalized, nil
}

func (m *Manager) userSnapshot() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// User returns the current session user, nil when not authenticated.
func (m *Manager) User() *User {
	return m.userSnapshot()
}

// State returns the current session state.
func (m *Manager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Loading reports whether the session outcome is still unknown. It covers
// both the pre-Start and in-flight states so guards can hold rendering.
func (m *Manager) Loading() bool {
	state := m.State()
	return state == StateUninitialized || state == StateLoading
}

// IsAuthenticated is true only in the settled authenticated state.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// IsAdmin requires an authenticated session with the ADMIN role.
func (m *Manager) IsAdmin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated && m.user.IsAdmin()
}

// HasRole checks the authenticated user's role case-insensitively.
func (m *Manager) HasRole(role string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated && m.user.HasRole(role)
}

func (m *Manager) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}

	sink := normalizeActivitySink(m.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("session activity sink error: %v", err)
	}
}
