package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/existflow/blogdesk/internal/guard"
	"github.com/existflow/blogdesk/internal/logger"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/existflow/blogdesk/internal/notify"
	"github.com/existflow/blogdesk/internal/workflow"
)

// Screen is the view currently mounted
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenDashboard
	ScreenBlog
	ScreenUsers
)

// Mode is the input mode of the blog screen
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeForm
	ModeConfirmDelete
	ModeHelp
)

// form field focus order
const (
	fieldTitle = iota
	fieldContent
	fieldImage
	fieldCount
)

// Authenticator logs the admin in and out
type Authenticator interface {
	Login(ctx context.Context, secretKey string) error
	Logout(ctx context.Context, silent bool)
	Session() model.Session
}

// Watcher is the session expiry watchdog
type Watcher interface {
	Start()
	Stop()
	Running() bool
}

// StatsSource loads the dashboard aggregates
type StatsSource interface {
	Stats(ctx context.Context) (*model.Stats, error)
}

// Deps are the components the TUI drives
type Deps struct {
	Auth          Authenticator
	Guard         *guard.Guard
	Watchdog      Watcher
	Posts         workflow.Repository
	Stats         StatsSource
	Notifier      notify.Notifier
	Notices       <-chan notify.Notice
	ConfirmDelete bool
	Timeout       time.Duration
}

// Model is the main TUI model
type Model struct {
	deps Deps
	log  *logger.Logger

	// UI state
	width  int
	height int
	screen Screen
	path   string
	mode   Mode
	cursor int

	// Login
	keyInput  textinput.Model
	loggingIn bool

	// Dashboard
	stats        *model.Stats
	statsLoading bool

	// Blog
	wf           *workflow.Workflow
	searchInput  textinput.Model
	titleInput   textinput.Model
	contentInput textarea.Model
	imageInput   textinput.Model
	focus        int
	pendingID    string
	busy         bool

	message string
	isError bool
}

// NewModel creates the TUI and mounts the admin dashboard, or the login screen
// when the session does not allow it
func NewModel(deps Deps) Model {
	logger.Info("Initializing TUI model")

	if deps.Timeout == 0 {
		deps.Timeout = 30 * time.Second
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}

	key := textinput.New()
	key.Placeholder = "Admin secret key"
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'
	key.CharLimit = 256
	key.Width = 40

	search := textinput.New()
	search.Placeholder = "Search by title..."
	search.CharLimit = 128
	search.Width = 40

	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 256
	title.Width = 60

	content := textarea.New()
	content.Placeholder = "Write the post..."
	content.SetWidth(60)
	content.SetHeight(8)
	content.CharLimit = 0

	image := textinput.New()
	image.Placeholder = "Path to cover image"
	image.CharLimit = 1024
	image.Width = 60

	m := Model{
		deps:         deps,
		log:          logger.Named("tui"),
		keyInput:     key,
		searchInput:  search,
		titleInput:   title,
		contentInput: content,
		imageInput:   image,
	}
	m.mount(guard.LoginPath + "/dashboard")
	return m
}

// Screen returns the mounted screen
func (m Model) Screen() Screen {
	return m.screen
}

// Path returns the route of the mounted screen
func (m Model) Path() string {
	return m.path
}

// Message returns the status line text
func (m Model) Message() string {
	return m.message
}

// mount runs path through the route guard and switches to its screen. Anything
// refused lands on the login screen. The watchdog runs exactly while an admin
// screen is mounted.
func (m *Model) mount(path string) {
	d := m.deps.Guard.Check(path)
	if !d.Allowed {
		m.log.Debug("Navigation refused", logger.F("path", path), logger.F("redirect", d.RedirectTo))
		path = d.RedirectTo
		d = m.deps.Guard.Check(path)
	}

	screen := ScreenLogin
	switch d.Route.Name {
	case "admin-dashboard":
		screen = ScreenDashboard
	case "admin-blog":
		screen = ScreenBlog
	case "admin-users":
		screen = ScreenUsers
	}

	// a valid session never sees the login screen
	if screen == ScreenLogin && m.deps.Guard.Allowed(guard.LoginPath+"/dashboard") {
		screen = ScreenDashboard
		path = guard.LoginPath + "/dashboard"
	}

	// the blog workflow lives exactly as long as the blog screen is mounted
	if screen != ScreenBlog && m.wf != nil {
		m.wf.Close()
		m.wf = nil
	}
	if screen == ScreenBlog && m.wf == nil {
		m.wf = workflow.New(m.deps.Posts, workflow.WithNotifier(m.deps.Notifier))
		m.searchInput.SetValue("")
	}

	m.screen = screen
	m.path = path
	m.mode = ModeNormal
	m.cursor = 0
	m.busy = false
	m.pendingID = ""

	if screen == ScreenLogin {
		m.deps.Watchdog.Stop()
		m.keyInput.SetValue("")
		m.keyInput.Focus()
		m.stats = nil
		return
	}
	m.keyInput.Blur()
	m.deps.Watchdog.Start()
}

// Workflow returns the blog workflow, nil unless the blog screen is mounted
func (m Model) Workflow() *workflow.Workflow {
	return m.wf
}

// visible returns the posts shown in the blog list
func (m Model) visible() []model.BlogPost {
	if m.wf == nil {
		return nil
	}
	return m.wf.Visible()
}

func (m Model) currentPost() (model.BlogPost, bool) {
	posts := m.visible()
	if m.cursor < 0 || m.cursor >= len(posts) {
		return model.BlogPost{}, false
	}
	return posts[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setMessage(msg string, isError bool) {
	m.message = msg
	m.isError = isError
}
