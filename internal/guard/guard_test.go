package guard

import (
	"testing"
	"time"

	"github.com/existflow/blogdesk/internal/model"
)

type fixedSession struct{ s model.Session }

func (f *fixedSession) Get() model.Session { return f.s }

func TestResolve(t *testing.T) {
	g := New(&fixedSession{})

	tests := []struct {
		path   string
		name   string
		params map[string]string
	}{
		{"/", "home", nil},
		{"/blog", "blog", nil},
		{"/blog/abc123", "blog-post", map[string]string{"id": "abc123"}},
		{"/blog/abc123?ref=home", "blog-post", map[string]string{"id": "abc123"}},
		{"/admin", "admin-login", nil},
		{"/admin/", "admin-login", nil},
		{"/admin/dashboard", "admin-dashboard", nil},
		{"/nope", "not-found", nil},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			route, params := g.Resolve(tc.path)
			if route.Name != tc.name {
				t.Errorf("route = %s, want %s", route.Name, tc.name)
			}
			for k, v := range tc.params {
				if params[k] != v {
					t.Errorf("param %s = %q, want %q", k, params[k], v)
				}
			}
		})
	}
}

func TestCheckProtectedRoutes(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	valid := model.NewSession("tok", now.Add(-time.Minute), time.Hour)
	expired := model.NewSession("tok", now.Add(-2*time.Hour), time.Hour)

	tests := []struct {
		name    string
		session model.Session
		path    string
		allowed bool
	}{
		{"anonymous dashboard", model.Session{}, "/admin/dashboard", false},
		{"anonymous blog admin", model.Session{}, "/admin/blog-post", false},
		{"anonymous public", model.Session{}, "/blog", true},
		{"anonymous login", model.Session{}, "/admin", true},
		{"valid dashboard", valid, "/admin/dashboard", true},
		{"expired token still present", expired, "/admin/dashboard", false},
		{"unknown path", model.Session{}, "/admin/secret-stuff", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := New(&fixedSession{tc.session}, WithClock(func() time.Time { return now }))
			d := g.Check(tc.path)
			if d.Allowed != tc.allowed {
				t.Fatalf("Allowed = %v, want %v", d.Allowed, tc.allowed)
			}
			if !d.Allowed && d.RedirectTo != LoginPath {
				t.Errorf("RedirectTo = %q, want %q", d.RedirectTo, LoginPath)
			}
			if d.Allowed && d.RedirectTo != "" {
				t.Errorf("allowed decision carries redirect %q", d.RedirectTo)
			}
		})
	}
}

func TestCheckIsNotCached(t *testing.T) {
	now := time.Now()
	src := &fixedSession{model.NewSession("tok", now, time.Hour)}
	g := New(src, WithClock(func() time.Time { return now }))

	if !g.Allowed("/admin/dashboard") {
		t.Fatal("valid session should be allowed")
	}
	src.s = model.Session{}
	if g.Allowed("/admin/dashboard") {
		t.Fatal("cleared session must be re-evaluated and denied")
	}
}
