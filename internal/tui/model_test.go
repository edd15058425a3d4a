package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/guard"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/existflow/blogdesk/internal/workflow"
)

type fakeAuth struct {
	mu     sync.Mutex
	sess   model.Session
	secret string
}

func (f *fakeAuth) Get() model.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess
}

func (f *fakeAuth) Session() model.Session { return f.Get() }

func (f *fakeAuth) Login(_ context.Context, key string) error {
	if key != f.secret {
		return &api.AuthError{Message: "Invalid Admin Key"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = model.NewSession("tok", time.Now(), time.Hour)
	return nil
}

func (f *fakeAuth) Logout(context.Context, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = model.Session{}
}

func (f *fakeAuth) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = model.Session{}
}

type fakeWatcher struct {
	running bool
	starts  int
}

func (w *fakeWatcher) Start() {
	if !w.running {
		w.starts++
	}
	w.running = true
}
func (w *fakeWatcher) Stop()         { w.running = false }
func (w *fakeWatcher) Running() bool { return w.running }

type fakeRepo struct {
	mu    sync.Mutex
	posts []model.BlogPost
}

func (r *fakeRepo) List(context.Context) ([]model.BlogPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.BlogPost(nil), r.posts...), nil
}

func (r *fakeRepo) Create(_ context.Context, title, content string, _ *model.ImageUpload) (*model.BlogPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := model.BlogPost{ID: "new", Title: title, Content: content}
	r.posts = append([]model.BlogPost{p}, r.posts...)
	return &p, nil
}

func (r *fakeRepo) Update(_ context.Context, id, title, content string, _ *model.ImageUpload) (*model.BlogPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts[i].Title, r.posts[i].Content = title, content
			return &r.posts[i], nil
		}
	}
	return nil, &api.NotFoundError{Resource: "blog", ID: id}
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			return nil
		}
	}
	return &api.NotFoundError{Resource: "blog", ID: id}
}

type fakeStats struct{ stats *model.Stats }

func (f fakeStats) Stats(context.Context) (*model.Stats, error) {
	if f.stats == nil {
		return nil, errors.New("no stats")
	}
	return f.stats, nil
}

type harness struct {
	auth    *fakeAuth
	watcher *fakeWatcher
	repo    *fakeRepo
}

func newTestModel(loggedIn bool) (Model, *harness) {
	h := &harness{
		auth:    &fakeAuth{secret: "letmein"},
		watcher: &fakeWatcher{},
		repo: &fakeRepo{posts: []model.BlogPost{
			{ID: "p1", Title: "Go tips"},
			{ID: "p2", Title: "Rust notes"},
			{ID: "p3", Title: "Going places"},
		}},
	}
	if loggedIn {
		h.auth.sess = model.NewSession("tok", time.Now(), time.Hour)
	}
	m := NewModel(Deps{
		Auth:          h.auth,
		Guard:         guard.New(h.auth),
		Watchdog:      h.watcher,
		Posts:         h.repo,
		Stats:         fakeStats{stats: &model.Stats{BlogCount: 3, ViewsChart: []model.ChartPoint{1, 2, 3}}},
		ConfirmDelete: true,
		Timeout:       time.Second,
	})
	m.width = 100
	m.height = 30
	return m, h
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and feeds its message back into the model
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestStartsOnLoginWhenAnonymous(t *testing.T) {
	m, h := newTestModel(false)
	if m.Screen() != ScreenLogin || m.Path() != guard.LoginPath {
		t.Errorf("screen = %d path = %q, want login", m.Screen(), m.Path())
	}
	if h.watcher.Running() {
		t.Error("watchdog running on the login screen")
	}
}

func TestStartsOnDashboardWithSession(t *testing.T) {
	m, h := newTestModel(true)
	if m.Screen() != ScreenDashboard {
		t.Errorf("screen = %d, want dashboard", m.Screen())
	}
	if !h.watcher.Running() {
		t.Error("watchdog not started for the admin view")
	}
}

func TestLoginFlow(t *testing.T) {
	m, h := newTestModel(false)

	m, _ = press(t, m, "letmein")
	m, cmd := press(t, m, "enter")
	m = run(t, m, cmd)

	if m.Screen() != ScreenDashboard {
		t.Fatalf("screen = %d after login, want dashboard", m.Screen())
	}
	if !h.watcher.Running() {
		t.Error("watchdog not started after login")
	}
}

func TestLoginWrongKey(t *testing.T) {
	m, _ := newTestModel(false)

	m, _ = press(t, m, "nope")
	m, cmd := press(t, m, "enter")
	m = run(t, m, cmd)

	if m.Screen() != ScreenLogin {
		t.Errorf("screen = %d, want login", m.Screen())
	}
	if m.Message() != "Invalid Admin Key" {
		t.Errorf("message = %q", m.Message())
	}
}

func TestLoginEmptyKeyDoesNothing(t *testing.T) {
	m, _ := newTestModel(false)

	m, cmd := press(t, m, "enter")
	if cmd != nil {
		t.Error("empty key produced a login command")
	}
	if m.Message() == "" {
		t.Error("expected a prompt message")
	}
}

func TestAnonymousCannotReachBlog(t *testing.T) {
	m, _ := newTestModel(false)
	// keys on the login screen go to the key input, so navigate directly
	next, _ := m.enterBlog()
	m = next.(Model)
	if m.Screen() != ScreenLogin {
		t.Errorf("screen = %d, want login", m.Screen())
	}
	if m.Workflow() != nil {
		t.Error("workflow created without a session")
	}
}

func TestExpiryUnmountsAdminView(t *testing.T) {
	m, h := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)
	wf := m.Workflow()

	h.auth.expire()
	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(Model)

	if m.Screen() != ScreenLogin {
		t.Fatalf("screen = %d after expiry, want login", m.Screen())
	}
	if h.watcher.Running() {
		t.Error("watchdog still running on the login screen")
	}
	if err := wf.OpenCreate(); !errors.Is(err, workflow.ErrClosed) {
		t.Errorf("blog workflow still open after unmount: %v", err)
	}
}

func TestBlogSearch(t *testing.T) {
	m, _ := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)

	if len(m.visible()) != 3 {
		t.Fatalf("visible = %d posts, want 3", len(m.visible()))
	}

	m, _ = press(t, m, "/")
	if m.mode != ModeSearch {
		t.Fatalf("mode = %d, want search", m.mode)
	}
	m, _ = press(t, m, "go")
	if got := m.visible(); len(got) != 2 {
		t.Errorf("visible = %+v, want the two Go posts", got)
	}

	m, _ = press(t, m, "esc")
	if len(m.visible()) != 3 {
		t.Error("esc did not clear the search")
	}
}

func TestBlogCreate(t *testing.T) {
	m, h := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)

	m, _ = press(t, m, "a")
	if m.mode != ModeForm {
		t.Fatalf("mode = %d, want form", m.mode)
	}
	m.titleInput.SetValue("Hello")
	m.contentInput.SetValue("World")

	// no image: stays in the form without reaching the repository
	m, cmd = press(t, m, "ctrl+s")
	m = run(t, m, cmd)
	if m.mode != ModeForm {
		t.Errorf("mode = %d after invalid submit, want form", m.mode)
	}
	if len(h.repo.posts) != 3 {
		t.Error("invalid post reached the repository")
	}
}

func TestBlogEdit(t *testing.T) {
	m, h := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)

	m, _ = press(t, m, "j")
	m, _ = press(t, m, "e")
	if m.mode != ModeForm || m.titleInput.Value() != "Rust notes" {
		t.Fatalf("mode = %d title = %q", m.mode, m.titleInput.Value())
	}
	m.titleInput.SetValue("Rust notes, revised")

	m, cmd = press(t, m, "ctrl+s")
	m = run(t, m, cmd)
	if m.mode != ModeNormal {
		t.Errorf("mode = %d after save, want normal", m.mode)
	}
	if h.repo.posts[1].Title != "Rust notes, revised" {
		t.Errorf("repo post = %+v", h.repo.posts[1])
	}
	if got := m.visible()[1].Title; got != "Rust notes, revised" {
		t.Errorf("list not refreshed: %q", got)
	}
}

func TestBlogFormCancel(t *testing.T) {
	m, _ := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)

	m, _ = press(t, m, "a")
	m, _ = press(t, m, "esc")
	if m.mode != ModeNormal {
		t.Errorf("mode = %d, want normal", m.mode)
	}
	if m.Workflow().State() != workflow.Browsing {
		t.Errorf("workflow state = %v", m.Workflow().State())
	}
}

func TestBlogDeleteConfirm(t *testing.T) {
	m, h := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)

	m, _ = press(t, m, "d")
	if m.mode != ModeConfirmDelete {
		t.Fatalf("mode = %d, want confirm", m.mode)
	}
	m, cmd = press(t, m, "y")
	m = run(t, m, cmd)

	if len(h.repo.posts) != 2 || h.repo.posts[0].ID != "p2" {
		t.Errorf("repo posts = %+v", h.repo.posts)
	}
	if len(m.visible()) != 2 {
		t.Errorf("visible = %d, want 2", len(m.visible()))
	}
}

func TestBlogDeleteDeclined(t *testing.T) {
	m, h := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)

	m, _ = press(t, m, "d")
	m, cmd = press(t, m, "n")
	if cmd != nil {
		t.Error("declined delete produced a command")
	}
	if m.mode != ModeNormal || len(h.repo.posts) != 3 {
		t.Errorf("mode = %d posts = %d", m.mode, len(h.repo.posts))
	}
}

func TestDashboardLoadsStats(t *testing.T) {
	m, _ := newTestModel(true)
	m, cmd := press(t, m, "r")
	m = run(t, m, cmd)

	if m.stats == nil || m.stats.BlogCount != 3 {
		t.Fatalf("stats = %+v", m.stats)
	}
	if view := m.View(); view == "" {
		t.Error("empty view")
	}
}

func TestLogout(t *testing.T) {
	m, h := newTestModel(true)

	m, cmd := press(t, m, "L")
	if h.watcher.Running() {
		t.Error("watchdog still running after logout key")
	}
	m = run(t, m, cmd)
	if m.Screen() != ScreenLogin {
		t.Errorf("screen = %d, want login", m.Screen())
	}
}

func TestRenderChart(t *testing.T) {
	now := time.Date(2026, 6, 7, 12, 0, 0, 0, time.UTC) // Sunday
	out := renderChart([]model.ChartPoint{4, 2}, now, 10)

	lines := 0
	for _, r := range out {
		if r == '\n' {
			lines++
		}
	}
	if lines != 7 {
		t.Errorf("chart has %d lines, want 7", lines)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer title", 8, "a lon..."},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tc := range tests {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestBlogJumpToBottom(t *testing.T) {
	m, _ := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)

	m, _ = press(t, m, "G")
	if m.cursor != 2 {
		t.Errorf("cursor = %d after G, want 2", m.cursor)
	}
	m, _ = press(t, m, "k")
	if m.cursor != 1 {
		t.Errorf("cursor = %d after k, want 1", m.cursor)
	}
}

func TestFormFieldCycling(t *testing.T) {
	m, _ := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)
	m, _ = press(t, m, "a")

	m, _ = press(t, m, "tab")
	if m.focus != fieldContent {
		t.Errorf("focus = %d after tab, want content", m.focus)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(Model)
	if m.focus != fieldImage {
		t.Errorf("focus = %d after two shift+tabs, want image", m.focus)
	}
}

func TestSubmitWithoutOpenFormReportsIt(t *testing.T) {
	m, h := newTestModel(true)
	m, cmd := press(t, m, "2")
	m = run(t, m, cmd)

	m, _ = press(t, m, "e")
	m.titleInput.SetValue("Changed")
	// the form was closed underneath the screen
	if err := m.Workflow().Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	m, cmd = press(t, m, "ctrl+s")
	if cmd != nil {
		t.Error("submit without an open form produced a command")
	}
	if m.Message() != workflow.ErrNotComposing.Error() {
		t.Errorf("message = %q", m.Message())
	}
	if m.mode != ModeNormal {
		t.Errorf("mode = %d, want normal", m.mode)
	}
	if h.repo.posts[0].Title != "Go tips" {
		t.Error("post changed without an open form")
	}
}
