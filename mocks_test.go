package auth_test

import (
	"context"
	"sync"

	auth "github.com/webfolio/go-portfolio-auth"
)

// stubGateway lets each test script the gateway responses.
type stubGateway struct {
	loginFn    func(ctx context.Context, email, password string, rememberMe bool) (*auth.LoginResult, error)
	registerFn func(ctx context.Context, reg auth.Registration) (*auth.RegisterResult, error)
	logoutFn   func(ctx context.Context) error

	loginCalls    int
	registerCalls int
	logoutCalls   int
}

func (s *stubGateway) Login(ctx context.Context, email, password string, rememberMe bool) (*auth.LoginResult, error) {
	s.loginCalls++
	if s.loginFn != nil {
		return s.loginFn(ctx, email, password, rememberMe)
	}
	return &auth.LoginResult{}, nil
}

func (s *stubGateway) Register(ctx context.Context, reg auth.Registration) (*auth.RegisterResult, error) {
	s.registerCalls++
	if s.registerFn != nil {
		return s.registerFn(ctx, reg)
	}
	return &auth.RegisterResult{}, nil
}

func (s *stubGateway) ForgotPassword(ctx context.Context, email string) (*auth.MessageResult, error) {
	return &auth.MessageResult{}, nil
}

func (s *stubGateway) ResetPassword(ctx context.Context, token, newPassword string) (*auth.MessageResult, error) {
	return &auth.MessageResult{}, nil
}

func (s *stubGateway) ResendVerification(ctx context.Context, email string) (*auth.MessageResult, error) {
	return &auth.MessageResult{}, nil
}

func (s *stubGateway) VerifyEmail(ctx context.Context, token string) (*auth.MessageResult, error) {
	return &auth.MessageResult{}, nil
}

func (s *stubGateway) Logout(ctx context.Context) error {
	s.logoutCalls++
	if s.logoutFn != nil {
		return s.logoutFn(ctx)
	}
	return nil
}

// recordSink collects activity events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordSink) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordSink) Events() []auth.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEvent, len(r.events))
	copy(out, r.events)
	return out
}

// stubSession gives guards and controllers a fully controllable session.
type stubSession struct {
	user    *auth.User
	state   auth.SessionState
	loading bool

	loginResult *auth.LoginResult
	loginErr    error
	logoutErr   error
}

func (s *stubSession) User() *auth.User         { return s.user }
func (s *stubSession) State() auth.SessionState { return s.state }
func (s *stubSession) Loading() bool            { return s.loading }

func (s *stubSession) IsAuthenticated() bool {
	return s.state == auth.StateAuthenticated
}

func (s *stubSession) IsAdmin() bool {
	return s.IsAuthenticated() && s.user.IsAdmin()
}

func (s *stubSession) HasRole(role string) bool {
	return s.IsAuthenticated() && s.user.HasRole(role)
}

func (s *stubSession) Login(ctx context.Context, email, password string, rememberMe bool) (*auth.LoginResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	s.state = auth.StateAuthenticated
	if s.loginResult != nil {
		s.user = s.loginResult.User
		return s.loginResult, nil
	}
	return &auth.LoginResult{}, nil
}

func (s *stubSession) Register(ctx context.Context, reg auth.Registration) (*auth.RegisterResult, error) {
	return &auth.RegisterResult{}, nil
}

func (s *stubSession) Logout(ctx context.Context) error {
	s.state = auth.StateUnauthenticated
	s.user = nil
	return s.logoutErr
}

func (s *stubSession) SetUserFromOAuth(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.state = auth.StateAuthenticated
	s.user = user
	return user, nil
}

// testConfig is a fixed Config for guard and controller tests.
type testConfig struct{}

func (testConfig) GetBaseURL() string      { return "http://localhost:8080" }
func (testConfig) GetLoginRoute() string   { return "/login" }
func (testConfig) GetHomeRoute() string    { return "/" }
func (testConfig) GetProfileRoute() string { return "/profile" }
func (testConfig) GetLoadingView() string  { return "loading" }
func (testConfig) GetJWKSEndpoint() string { return "" }
