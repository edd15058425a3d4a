package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/apitest"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/existflow/blogdesk/internal/notify"
	"github.com/existflow/blogdesk/internal/session"
)

type fixture struct {
	srv    *apitest.Server
	api    *api.Client
	store  *session.Store
	auth   *Client
	notice *notify.Recorder
}

func newFixture(t *testing.T, srvOpts []apitest.Option, opts ...Option) *fixture {
	t.Helper()
	srv := apitest.New(t, srvOpts...)

	store, err := session.Open(context.Background(), session.NewMemoryKV())
	if err != nil {
		t.Fatalf("session.Open() error: %v", err)
	}
	apiClient, err := api.New(srv.URL(), api.WithTokenSource(TokenSource(store)), api.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("api.New() error: %v", err)
	}

	rec := &notify.Recorder{}
	c := New(apiClient, store, append([]Option{WithNotifier(rec)}, opts...)...)
	t.Cleanup(c.Close)
	return &fixture{srv: srv, api: apiClient, store: store, auth: c, notice: rec}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoginSuccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, nil, WithClock(func() time.Time { return now }), WithTTL(48*time.Hour))

	if err := f.auth.Login(context.Background(), apitest.DefaultSecret); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	sess := f.store.Get()
	if sess.IsAnonymous() {
		t.Fatal("expected a session after login")
	}
	if want := now.Add(48 * time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, want)
	}
	if !f.auth.Armed() {
		t.Error("expiry timer not armed")
	}
	if !f.notice.Has(notify.KindSuccess, "Login successful, Welcome Admin!") {
		t.Errorf("notices = %+v", f.notice.Notices())
	}
	if f.srv.Sessions() != 1 {
		t.Errorf("server sessions = %d, want 1", f.srv.Sessions())
	}
}

func TestLoginInvalidKeyLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t, nil)

	err := f.auth.Login(context.Background(), "wrong")
	if !api.IsAuth(err) {
		t.Fatalf("Login() error = %v, want AuthError", err)
	}
	if got := api.Message(err, ""); got != "Invalid Admin Key" {
		t.Errorf("Message() = %q", got)
	}
	if !f.store.Get().IsAnonymous() {
		t.Error("store changed after failed login")
	}
	if f.auth.Armed() {
		t.Error("timer armed after failed login")
	}
	if !f.notice.Has(notify.KindError, "Invalid Admin Key") {
		t.Errorf("notices = %+v", f.notice.Notices())
	}
}

func TestLoginEmptyKeyNeverCallsServer(t *testing.T) {
	f := newFixture(t, nil)

	err := f.auth.Login(context.Background(), "   ")
	if !api.IsValidation(err) {
		t.Fatalf("Login() error = %v, want ValidationError", err)
	}
	if n := f.srv.Calls(http.MethodPost, "/admin/verify"); n != 0 {
		t.Errorf("verify called %d times", n)
	}
}

func TestLoginServerUnreachable(t *testing.T) {
	store, _ := session.Open(context.Background(), session.NewMemoryKV())
	apiClient, err := api.New("http://127.0.0.1:1/api/v1", api.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("api.New() error: %v", err)
	}
	c := New(apiClient, store)

	err = c.Login(context.Background(), "anything")
	if !api.IsAuth(err) || !api.IsNetwork(err) {
		t.Fatalf("Login() error = %v, want AuthError wrapping NetworkError", err)
	}
	if !store.Get().IsAnonymous() {
		t.Error("store changed after failed login")
	}
}

func TestLoginFallsBackToCookie(t *testing.T) {
	f := newFixture(t, []apitest.Option{apitest.OmitToken()})

	if err := f.auth.Login(context.Background(), apitest.DefaultSecret); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	token := f.store.Get().Token
	if token == "" || token == CookieSession {
		t.Fatalf("token = %q, want the cookie value", token)
	}
	if token != f.api.SessionCookie() {
		t.Errorf("token = %q, cookie = %q", token, f.api.SessionCookie())
	}

	// the stored session must authenticate admin calls
	if err := f.api.Do(context.Background(), api.Request{Method: http.MethodGet, Path: "/admin/stats", Credentialed: true}, nil); err != nil {
		t.Errorf("credentialed call failed: %v", err)
	}
}

func TestLoginFallsBackToMarker(t *testing.T) {
	f := newFixture(t, []apitest.Option{apitest.OmitToken(), apitest.WithCookieName("other")})

	if err := f.auth.Login(context.Background(), apitest.DefaultSecret); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if got := f.store.Get().Token; got != CookieSession {
		t.Errorf("token = %q, want %q", got, CookieSession)
	}
	if got := TokenSource(f.store)(); got != "" {
		t.Errorf("TokenSource() = %q, want empty for cookie sessions", got)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.auth.Login(ctx, apitest.DefaultSecret); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	f.auth.Logout(ctx, false)

	if !f.store.Get().IsAnonymous() {
		t.Error("session kept after logout")
	}
	if f.auth.Armed() {
		t.Error("timer still armed after logout")
	}
	if f.srv.Sessions() != 0 {
		t.Errorf("server sessions = %d, want 0", f.srv.Sessions())
	}
	if f.api.SessionCookie() != "" {
		t.Error("cookie kept after logout")
	}
	if last, _ := f.notice.Last(); last.Message != "Logged out successfully" {
		t.Errorf("last notice = %+v", last)
	}
}

func TestLogoutSurvivesServerFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.auth.Login(ctx, apitest.DefaultSecret); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	f.srv.Fail(http.MethodGet, "/admin/logout", http.StatusInternalServerError, "boom")

	f.auth.Logout(ctx, true)

	if !f.store.Get().IsAnonymous() {
		t.Error("session kept after failed server logout")
	}
	if f.srv.Calls(http.MethodGet, "/admin/logout") != 1 {
		t.Error("server logout not attempted")
	}
	for _, n := range f.notice.Notices() {
		if n.Message == "Logged out successfully" {
			t.Error("silent logout produced a notice")
		}
	}
}

func TestExpiryTimerLogsOut(t *testing.T) {
	f := newFixture(t, nil, WithTTL(50*time.Millisecond))

	if err := f.auth.Login(context.Background(), apitest.DefaultSecret); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	waitFor(t, func() bool { return f.store.Get().IsAnonymous() })
	waitFor(t, func() bool { return f.notice.Has(notify.KindSuccess, "Logged out successfully") })
}

func TestRelogReplacesTimer(t *testing.T) {
	f := newFixture(t, nil, WithTTL(80*time.Millisecond))
	ctx := context.Background()

	if err := f.auth.Login(ctx, apitest.DefaultSecret); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	f.auth.Logout(ctx, true)
	f.auth.ttl = time.Hour
	if err := f.auth.Login(ctx, apitest.DefaultSecret); err != nil {
		t.Fatalf("second Login() error: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if f.store.Get().IsAnonymous() {
		t.Error("stale timer from the first login ended the second session")
	}
}

func TestResume(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		sess      *model.Session
		wantAnon  bool
		wantArmed bool
	}{
		{"anonymous", nil, true, false},
		{"valid", &model.Session{Token: "t", IssuedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)}, false, true},
		{"expired", &model.Session{Token: "t", IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}, true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			if tc.sess != nil {
				if err := f.store.Set(*tc.sess); err != nil {
					t.Fatalf("Set() error: %v", err)
				}
			}

			got := f.auth.Resume(context.Background())
			if got.IsAnonymous() != tc.wantAnon {
				t.Errorf("Resume() anonymous = %v, want %v", got.IsAnonymous(), tc.wantAnon)
			}
			if f.auth.Armed() != tc.wantArmed {
				t.Errorf("Armed() = %v, want %v", f.auth.Armed(), tc.wantArmed)
			}
		})
	}
}
