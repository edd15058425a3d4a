// Package auth logs the admin in and out against the site API and keeps the
// session store in step. A successful login arms a one-shot timer that logs
// out at the session's expiry; this runs alongside the expiry watchdog.
package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/config"
	"github.com/existflow/blogdesk/internal/logger"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/existflow/blogdesk/internal/notify"
	"github.com/existflow/blogdesk/internal/session"
)

// CookieSession is stored as the token when the server authenticates by cookie alone
const CookieSession = "cookie-session"

const (
	msgLoginOK    = "Login successful, Welcome Admin!"
	msgLogoutOK   = "Logged out successfully"
	msgInvalidKey = "Invalid Admin Key"
)

type verifyRequest struct {
	SecretKey string `json:"secretKey"`
}

type verifyResponse struct {
	Token string `json:"token"`
}

// Client is the admin auth client
type Client struct {
	api    *api.Client
	store  *session.Store
	ttl    time.Duration
	now    func() time.Time
	notify notify.Notifier
	log    *logger.Logger

	mu       sync.Mutex
	timer    *time.Timer
	timerGen uint64
}

// Option configures a Client
type Option func(*Client)

// WithTTL sets the session lifetime
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithNotifier sets where login and logout notices go
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notify = n }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates an auth client writing into store
func New(apiClient *api.Client, store *session.Store, opts ...Option) *Client {
	c := &Client{
		api:    apiClient,
		store:  store,
		ttl:    config.DefaultTokenTTL,
		now:    time.Now,
		notify: notify.Nop{},
		log:    logger.Named("auth"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the current session
func (c *Client) Session() model.Session {
	return c.store.Get()
}

// TTL returns the configured session lifetime
func (c *Client) TTL() time.Duration {
	return c.ttl
}

// Login verifies secretKey with the server and starts a session of the configured TTL.
// On any failure the store is left untouched and an *api.AuthError (or an
// *api.ValidationError for an empty key) is returned.
func (c *Client) Login(ctx context.Context, secretKey string) error {
	if strings.TrimSpace(secretKey) == "" {
		return api.Missing("secret key")
	}

	var resp verifyResponse
	err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/admin/verify",
		JSON:   verifyRequest{SecretKey: secretKey},
	}, &resp)
	if err != nil {
		msg := api.Message(err, msgInvalidKey)
		if api.IsNotFound(err) {
			msg = msgInvalidKey
		}
		c.log.Warn("Login rejected", logger.F("reason", msg))
		c.notify.Error(msg)
		return &api.AuthError{Message: msg, Err: err}
	}

	token := resp.Token
	if token == "" {
		token = c.api.SessionCookie()
	}
	if token == "" {
		token = CookieSession
	}

	sess := model.NewSession(token, c.now(), c.ttl)
	if err := c.store.Set(sess); err != nil {
		c.log.Error("Failed to store session", logger.Err(err))
		c.notify.Error("Could not save the session")
		return &api.AuthError{Message: "could not save the session", Err: err}
	}

	c.arm(sess)
	c.log.Info("Admin logged in",
		logger.Secret("token", token),
		logger.F("expires_at", sess.ExpiresAt.Format(time.RFC3339)))
	c.notify.Success(msgLoginOK)
	return nil
}

// Logout ends the session. The server call is best-effort; the local session is
// always cleared. silent suppresses the success notice.
func (c *Client) Logout(ctx context.Context, silent bool) {
	c.disarm()

	err := c.api.Do(ctx, api.Request{
		Method:       http.MethodGet,
		Path:         "/admin/logout",
		Credentialed: true,
	}, nil)
	if err != nil {
		c.log.Warn("Server logout failed, clearing local session anyway", logger.Err(err))
	}

	if err := c.store.Clear(); err != nil {
		c.log.Error("Failed to remove persisted session", logger.Err(err))
	}
	c.api.ClearCookies()

	c.log.Info("Admin logged out", logger.F("silent", silent))
	if !silent {
		c.notify.Success(msgLogoutOK)
	}
}

// Resume picks up a session restored from local storage: a valid one gets its
// expiry timer armed, an expired one is logged out silently.
func (c *Client) Resume(ctx context.Context) model.Session {
	sess := c.store.Get()
	switch {
	case sess.IsAnonymous():
	case sess.IsExpired(c.now()):
		c.log.Info("Restored session already expired")
		c.Logout(ctx, true)
	default:
		c.arm(sess)
	}
	return c.store.Get()
}

// Close stops the expiry timer without touching the session
func (c *Client) Close() {
	c.disarm()
}

// arm replaces any pending expiry timer with one firing at sess.ExpiresAt
func (c *Client) arm(sess model.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen

	delay := sess.ExpiresAt.Sub(c.now())
	if delay < 0 {
		delay = 0
	}
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		current := gen == c.timerGen
		c.mu.Unlock()
		if !current {
			return
		}
		c.log.Info("Session lifetime reached, logging out")
		c.Logout(context.Background(), false)
	})
}

func (c *Client) disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

// Armed reports whether an expiry timer is pending
func (c *Client) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// TokenSource feeds the stored token to credentialed API requests. Cookie-only
// sessions send nothing and rely on the cookie jar.
func TokenSource(store *session.Store) api.TokenSource {
	return func() string {
		token := store.Get().Token
		if token == CookieSession {
			return ""
		}
		return token
	}
}
