package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/guard"
	"github.com/existflow/blogdesk/internal/logger"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/existflow/blogdesk/internal/notify"
	"github.com/existflow/blogdesk/internal/workflow"
)

// tickMsg is sent every second; the mounted route is re-checked on each tick
type tickMsg time.Time

// noticeMsg carries a notification from the core components
type noticeMsg notify.Notice

type loginDoneMsg struct{ err error }

type logoutDoneMsg struct{}

type statsLoadedMsg struct {
	stats *model.Stats
	err   error
}

type postsLoadedMsg struct{ err error }

type submitDoneMsg struct{ err error }

type deleteDoneMsg struct{ err error }

// Init starts the clock, the notice listener and the first load of the mounted screen
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitForNotice(), m.loadScreen())
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForNotice listens for notices
func (m Model) waitForNotice() tea.Cmd {
	if m.deps.Notices == nil {
		return nil
	}
	ch := m.deps.Notices
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

// loadScreen fetches whatever the mounted screen shows
func (m Model) loadScreen() tea.Cmd {
	switch m.screen {
	case ScreenDashboard:
		return m.loadStats()
	case ScreenBlog:
		return m.loadPosts()
	}
	return nil
}

func (m Model) loadStats() tea.Cmd {
	src, timeout := m.deps.Stats, m.deps.Timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		stats, err := src.Stats(ctx)
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func (m Model) loadPosts() tea.Cmd {
	wf, timeout := m.wf, m.deps.Timeout
	if wf == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return postsLoadedMsg{err: wf.Load(ctx)}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.recheck()
		return m, tickCmd()

	case noticeMsg:
		m.setMessage(msg.Message, msg.Kind == notify.KindError)
		m.recheck()
		return m, m.waitForNotice()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loginDoneMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.setMessage(api.Message(msg.err, "Invalid Admin Key"), true)
			m.keyInput.SetValue("")
			return m, nil
		}
		return m.navigate(guard.LoginPath + "/dashboard")

	case logoutDoneMsg:
		return m.navigate(guard.LoginPath)

	case statsLoadedMsg:
		m.statsLoading = false
		if msg.err != nil {
			m.setMessage(api.Message(msg.err, "Failed to load dashboard"), true)
			m.recheck()
			return m, nil
		}
		m.stats = msg.stats
		return m, nil

	case postsLoadedMsg:
		m.clampCursor()
		m.recheck()
		return m, nil

	case submitDoneMsg:
		m.busy = false
		if msg.err == nil {
			m.mode = ModeNormal
			m.resetForm()
			m.clampCursor()
		}
		m.recheck()
		return m, nil

	case deleteDoneMsg:
		m.busy = false
		m.pendingID = ""
		m.mode = ModeNormal
		m.clampCursor()
		m.recheck()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.screen == ScreenLogin {
			return m.updateLogin(msg)
		}
		switch m.mode {
		case ModeSearch:
			return m.updateSearch(msg)
		case ModeForm:
			return m.updateForm(msg)
		case ModeConfirmDelete:
			return m.updateConfirm(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// recheck runs the mounted route through the guard again, so an expired or
// cleared session unmounts the admin screens
func (m *Model) recheck() {
	if m.screen == ScreenLogin || m.deps.Guard.Allowed(m.path) {
		return
	}
	m.log.Info("Session no longer valid, leaving admin view", logger.F("path", m.path))
	m.mount(m.path)
	if m.message == "" {
		m.setMessage("Please log in", true)
	}
}

// navigate mounts path and loads its data
func (m Model) navigate(path string) (tea.Model, tea.Cmd) {
	m.mount(path)
	if m.screen == ScreenDashboard {
		m.statsLoading = true
	}
	return m, m.loadScreen()
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		return m, tea.Quit

	case key.Matches(msg, keys.Enter):
		if m.loggingIn {
			return m, nil
		}
		secret := m.keyInput.Value()
		if strings.TrimSpace(secret) == "" {
			m.setMessage("Please enter the admin key", true)
			return m, nil
		}
		m.loggingIn = true
		m.setMessage("Verifying...", false)
		auth, timeout := m.deps.Auth, m.deps.Timeout
		return m, func() tea.Msg {
			ctx, cancel := withTimeout(timeout)
			defer cancel()
			return loginDoneMsg{err: auth.Login(ctx, secret)}
		}
	}

	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

// handleNormalKeys handles key presses on the admin screens outside of any input
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Dashboard):
		return m.navigate(guard.LoginPath + "/dashboard")

	case key.Matches(msg, keys.Blog):
		return m.enterBlog()

	case key.Matches(msg, keys.Users):
		return m.navigate(guard.LoginPath + "/users-management")

	case key.Matches(msg, keys.Logout):
		auth, timeout := m.deps.Auth, m.deps.Timeout
		m.deps.Watchdog.Stop()
		return m, func() tea.Msg {
			ctx, cancel := withTimeout(timeout)
			defer cancel()
			auth.Logout(ctx, false)
			return logoutDoneMsg{}
		}

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp
		return m, nil

	case key.Matches(msg, keys.Refresh):
		if m.screen == ScreenDashboard {
			m.statsLoading = true
		}
		return m, m.loadScreen()
	}

	if m.screen != ScreenBlog {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Bottom):
		m.cursor = len(m.visible()) - 1
		m.clampCursor()

	case key.Matches(msg, keys.Search):
		m.mode = ModeSearch
		m.searchInput.SetValue(m.wf.View().SearchTerm)
		m.searchInput.Focus()
		m.searchInput.CursorEnd()
		return m, textinput.Blink

	case key.Matches(msg, keys.Escape):
		if m.wf.View().SearchTerm != "" {
			m.wf.SetSearch("")
			m.clampCursor()
			m.setMessage("Search cleared", false)
		}

	case key.Matches(msg, keys.Add):
		return m.startForm(nil)

	case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
		if post, ok := m.currentPost(); ok {
			return m.startForm(&post)
		}

	case key.Matches(msg, keys.Delete):
		post, ok := m.currentPost()
		if !ok || m.busy {
			return m, nil
		}
		m.pendingID = post.ID
		if m.deps.ConfirmDelete {
			m.mode = ModeConfirmDelete
			return m, nil
		}
		return m.deletePending()
	}

	return m, nil
}

// enterBlog mounts the blog section with a fresh workflow session
func (m Model) enterBlog() (tea.Model, tea.Cmd) {
	m.mount(guard.LoginPath + "/blog-post")
	if m.screen != ScreenBlog {
		return m, nil
	}
	return m, m.loadPosts()
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.wf.SetSearch("")
		m.searchInput.Blur()
		m.clampCursor()
		return m, nil

	case key.Matches(msg, keys.Enter):
		m.mode = ModeNormal
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	// filter as the user types
	m.wf.SetSearch(m.searchInput.Value())
	m.cursor = 0
	return m, cmd
}

func (m Model) startForm(post *model.BlogPost) (tea.Model, tea.Cmd) {
	var err error
	if post == nil {
		err = m.wf.OpenCreate()
	} else {
		err = m.wf.OpenEdit(*post)
	}
	if err != nil {
		m.setMessage(err.Error(), true)
		return m, nil
	}

	f := m.wf.Form()
	m.mode = ModeForm
	m.titleInput.SetValue(f.Title)
	m.contentInput.SetValue(f.Content)
	m.imageInput.SetValue("")
	m.setFocus(fieldTitle)
	return m, textinput.Blink
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Escape):
		if err := m.wf.Cancel(); err != nil && !errors.Is(err, workflow.ErrNotComposing) {
			m.setMessage(err.Error(), true)
			return m, nil
		}
		m.mode = ModeNormal
		m.resetForm()
		return m, nil

	case key.Matches(msg, keys.Tab):
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil

	case key.Matches(msg, keys.ShiftTab):
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil

	case key.Matches(msg, keys.Save):
		return m.submit()
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldTitle:
		m.titleInput, cmd = m.titleInput.Update(msg)
	case fieldContent:
		m.contentInput, cmd = m.contentInput.Update(msg)
	case fieldImage:
		m.imageInput, cmd = m.imageInput.Update(msg)
	}
	return m, cmd
}

// submit copies the form fields into the workflow and sends it
func (m Model) submit() (tea.Model, tea.Cmd) {
	wf := m.wf
	if wf == nil {
		m.mode = ModeNormal
		return m, nil
	}

	var image *model.ImageUpload
	if path := strings.TrimSpace(m.imageInput.Value()); path != "" {
		img, err := model.LoadImage(path)
		if err != nil {
			m.setMessage(err.Error(), true)
			return m, nil
		}
		image = img
	}

	for _, err := range []error{
		wf.SetTitle(m.titleInput.Value()),
		wf.SetContent(m.contentInput.Value()),
		wf.SetImage(image),
	} {
		if err != nil {
			m.setMessage(err.Error(), true)
			if errors.Is(err, workflow.ErrNotComposing) || errors.Is(err, workflow.ErrClosed) {
				m.mode = ModeNormal
				m.resetForm()
			}
			return m, nil
		}
	}

	m.busy = true
	m.setMessage("Saving...", false)
	timeout := m.deps.Timeout
	return m, func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return submitDoneMsg{err: wf.Submit(ctx)}
	}
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Confirm) {
		return m.deletePending()
	}
	m.mode = ModeNormal
	m.pendingID = ""
	m.setMessage("Delete cancelled", false)
	return m, nil
}

func (m Model) deletePending() (tea.Model, tea.Cmd) {
	id := m.pendingID
	if id == "" {
		m.mode = ModeNormal
		return m, nil
	}
	m.busy = true
	m.setMessage(fmt.Sprintf("Deleting %s...", id), false)
	wf, timeout := m.wf, m.deps.Timeout
	return m, func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return deleteDoneMsg{err: wf.Delete(ctx, id)}
	}
}

func (m *Model) setFocus(field int) {
	m.focus = field
	m.titleInput.Blur()
	m.contentInput.Blur()
	m.imageInput.Blur()
	switch field {
	case fieldTitle:
		m.titleInput.Focus()
	case fieldContent:
		m.contentInput.Focus()
	case fieldImage:
		m.imageInput.Focus()
	}
}

func (m *Model) resetForm() {
	m.titleInput.SetValue("")
	m.contentInput.SetValue("")
	m.imageInput.SetValue("")
	m.titleInput.Blur()
	m.contentInput.Blur()
	m.imageInput.Blur()
	m.focus = fieldTitle
}
