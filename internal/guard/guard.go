// Package guard decides whether a navigation may render its view. It is a pure
// predicate over the current session and makes no network calls.
package guard

import (
	"net/url"
	"time"

	"github.com/existflow/blogdesk/internal/model"
)

// SessionSource yields the current session
type SessionSource interface {
	Get() model.Session
}

// Decision is the outcome of a navigation check
type Decision struct {
	Route      Route
	Params     map[string]string
	Allowed    bool
	RedirectTo string
}

// Guard gates protected routes on a valid session
type Guard struct {
	sessions SessionSource
	now      func() time.Time
	routes   []Route
}

// Option configures a Guard
type Option func(*Guard)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithRoutes replaces the route table
func WithRoutes(routes []Route) Option {
	return func(g *Guard) { g.routes = routes }
}

// New creates a Guard reading sessions from s
func New(s SessionSource, opts ...Option) *Guard {
	g := &Guard{sessions: s, now: time.Now, routes: Routes}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve finds the route for path. Query strings and fragments are ignored.
func (g *Guard) Resolve(path string) (Route, map[string]string) {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	for _, r := range g.routes {
		if params, ok := match(r.Pattern, path); ok {
			return r, params
		}
	}
	return NotFound, nil
}

// Check evaluates a navigation to path against the session as it is right now
func (g *Guard) Check(path string) Decision {
	route, params := g.Resolve(path)
	d := Decision{Route: route, Params: params, Allowed: true}
	if route.Protected && !g.sessions.Get().Valid(g.now()) {
		d.Allowed = false
		d.RedirectTo = LoginPath
	}
	return d
}

// Allowed is shorthand for Check(path).Allowed
func (g *Guard) Allowed(path string) bool {
	return g.Check(path).Allowed
}
