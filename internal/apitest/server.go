// Package apitest runs an in-process stand-in for the site API so the client
// packages can be tested end to end over real HTTP.
package apitest

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/existflow/blogdesk/internal/model"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

// Prefix is the path every route is mounted under
const Prefix = "/api/v1"

// DefaultSecret is the admin key accepted unless WithSecret says otherwise
const DefaultSecret = "letmein"

type fault struct {
	status  int
	message string
}

// Server is a fake site API
type Server struct {
	echo *echo.Echo
	srv  *httptest.Server

	mu         sync.Mutex
	secretHash []byte
	cookieName string
	omitToken  bool
	now        func() time.Time
	tokens     map[string]bool
	posts      []model.BlogPost
	faults     map[string]fault
	calls      map[string]int
}

// Option configures a Server
type Option func(*Server)

// WithSecret sets the accepted admin key
func WithSecret(secret string) Option {
	return func(s *Server) {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		s.secretHash = hash
	}
}

// OmitToken makes a successful verify answer without a token in the body; the
// session then travels only in the cookie
func OmitToken() Option {
	return func(s *Server) { s.omitToken = true }
}

// WithCookieName sets the session cookie name
func WithCookieName(name string) Option {
	return func(s *Server) { s.cookieName = name }
}

// WithClock replaces time.Now for post timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New starts a Server that is shut down when the test ends
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		cookieName: "admin-token",
		now:        time.Now,
		tokens:     make(map[string]bool),
		faults:     make(map[string]fault),
		calls:      make(map[string]int),
	}
	WithSecret(DefaultSecret)(s)
	for _, opt := range opts {
		opt(s)
	}

	s.setupEcho()
	s.srv = httptest.NewServer(s.echo)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(io.Discard)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.track)

	api := e.Group(Prefix)
	api.POST("/admin/verify", s.handleVerify)
	api.GET("/admin/logout", s.handleLogout)
	api.GET("/blog/get-all-blogs", s.handleList)
	api.GET("/blog/:id", s.handleGet)

	protected := api.Group("")
	protected.Use(s.requireAdmin)
	protected.GET("/admin/stats", s.handleStats)
	protected.POST("/blog/add-blog", s.handleCreate)
	protected.PUT("/blog/:id", s.handleUpdate)
	protected.DELETE("/blog/:id", s.handleDelete)

	s.echo = e
}

// URL returns the API base URL, ready for api.New
func (s *Server) URL() string {
	return s.srv.URL + Prefix
}

// Seed replaces the stored posts; the first post is the newest
func (s *Server) Seed(posts ...model.BlogPost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]model.BlogPost(nil), posts...)
}

// Posts returns a copy of the stored posts
func (s *Server) Posts() []model.BlogPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BlogPost(nil), s.posts...)
}

// Fail makes every request to method and route (e.g. "/blog/:id") answer with
// status and message until Recover is called
func (s *Server) Fail(method, route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+route] = fault{status: status, message: message}
}

// Recover removes every injected failure
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]fault)
}

// Calls returns how many requests reached method and route
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+route]
}

// Sessions returns how many admin tokens are live
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Revoke invalidates every admin token, as a server restart would
func (s *Server) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]bool)
}

// track counts calls per route and applies injected failures
func (s *Server) track(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + strings.TrimPrefix(c.Path(), Prefix)

		s.mu.Lock()
		s.calls[key]++
		f, failing := s.faults[key]
		s.mu.Unlock()

		if failing {
			return fail(c, f.status, f.message)
		}
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		if token == "" {
			if ck, err := c.Cookie(s.cookieName); err == nil {
				token = ck.Value
			}
		}

		s.mu.Lock()
		ok := token != "" && s.tokens[token]
		s.mu.Unlock()

		if !ok {
			return fail(c, http.StatusUnauthorized, "Not authorized as admin")
		}
		return next(c)
	}
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{"success": false, "message": message})
}

func ok(c echo.Context, body map[string]any) error {
	body["success"] = true
	return c.JSON(http.StatusOK, body)
}

type verifyRequest struct {
	SecretKey string `json:"secretKey"`
}

func (s *Server) handleVerify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if bcrypt.CompareHashAndPassword(s.secretHash, []byte(req.SecretKey)) != nil {
		return fail(c, http.StatusUnauthorized, "Invalid Admin Key")
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = true
	omit := s.omitToken
	s.mu.Unlock()

	c.SetCookie(&http.Cookie{Name: s.cookieName, Value: token, Path: "/", HttpOnly: true})

	body := map[string]any{"message": "Admin verified"}
	if !omit {
		body["token"] = token
	}
	return ok(c, body)
}

func (s *Server) handleLogout(c echo.Context) error {
	token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	if ck, err := c.Cookie(s.cookieName); err == nil && token == "" {
		token = ck.Value
	}

	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()

	c.SetCookie(&http.Cookie{Name: s.cookieName, Value: "", Path: "/", MaxAge: -1})
	return ok(c, map[string]any{"message": "Logged out"})
}

func (s *Server) handleList(c echo.Context) error {
	return ok(c, map[string]any{"blogs": s.Posts()})
}

func (s *Server) handleGet(c echo.Context) error {
	post, found := s.find(c.Param("id"))
	if !found {
		return fail(c, http.StatusNotFound, "Blog not found")
	}
	return ok(c, map[string]any{"blog": post})
}

func (s *Server) handleCreate(c echo.Context) error {
	title, content := c.FormValue("title"), c.FormValue("content")
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return fail(c, http.StatusBadRequest, "Title and content are required")
	}
	photo, err := s.photo(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid upload")
	}
	if photo == nil {
		return fail(c, http.StatusBadRequest, "Please upload at least one image")
	}

	now := s.now()
	post := model.BlogPost{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Photos:    []model.Image{*photo},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.posts = append([]model.BlogPost{post}, s.posts...)
	s.mu.Unlock()

	return ok(c, map[string]any{"blog": post})
}

func (s *Server) handleUpdate(c echo.Context) error {
	id := c.Param("id")
	photo, err := s.photo(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid upload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID != id {
			continue
		}
		if v := c.FormValue("title"); v != "" {
			s.posts[i].Title = v
		}
		if v := c.FormValue("content"); v != "" {
			s.posts[i].Content = v
		}
		if photo != nil {
			s.posts[i].Photos = []model.Image{*photo}
		}
		s.posts[i].UpdatedAt = s.now()
		return ok(c, map[string]any{"blog": s.posts[i]})
	}
	return fail(c, http.StatusNotFound, "Blog not found")
}

func (s *Server) handleDelete(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return ok(c, map[string]any{"message": "Blog deleted"})
		}
	}
	return fail(c, http.StatusNotFound, "Blog not found")
}

func (s *Server) handleStats(c echo.Context) error {
	posts := s.Posts()
	recent := posts
	if len(recent) > 5 {
		recent = recent[:5]
	}

	// one bucket per day for the last week, oldest first
	now := s.now()
	chart := make([]map[string]any, 7)
	for i := range chart {
		day := now.AddDate(0, 0, -(6 - i))
		count := 0
		for _, p := range posts {
			if sameDay(p.CreatedAt, day) {
				count++
			}
		}
		chart[i] = map[string]any{"date": day.Format("2006-01-02"), "value": count}
	}

	activity := make([]model.Activity, 0, len(recent))
	for _, p := range recent {
		activity = append(activity, model.Activity{Message: "Post published: " + p.Title, CreatedAt: p.CreatedAt})
	}
	sort.SliceStable(activity, func(i, j int) bool { return activity[i].CreatedAt.After(activity[j].CreatedAt) })

	return ok(c, map[string]any{"stats": map[string]any{
		"blogCount":     len(posts),
		"commentsCount": 0,
		"viewsChart":    chart,
		"recentPosts":   recent,
		"activity":      activity,
	}})
}

func (s *Server) find(id string) (model.BlogPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return model.BlogPost{}, false
}

// photo returns the uploaded image as a stored Image, nil when none was sent
func (s *Server) photo(c echo.Context) (*model.Image, error) {
	fh, err := c.FormFile("photos")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return &model.Image{URL: "https://img.example.test/" + id + "/" + fh.Filename, PublicID: id}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
