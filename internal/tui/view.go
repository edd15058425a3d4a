package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/existflow/blogdesk/internal/workflow"
)

const sidebarWidth = 22

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	statusBar := m.renderStatusBar()

	if m.screen == ScreenLogin {
		login := lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, m.renderLogin())
		return lipgloss.JoinVertical(lipgloss.Left, login, statusBar)
	}

	var main string
	switch m.screen {
	case ScreenDashboard:
		main = m.renderDashboard()
	case ScreenBlog:
		main = m.renderBlog()
	case ScreenUsers:
		main = m.renderUsers()
	}
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)

	switch m.mode {
	case ModeForm:
		mainContent = m.overlay(m.renderForm())
	case ModeConfirmDelete:
		mainContent = m.overlay(m.renderConfirm())
	case ModeHelp:
		mainContent = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, statusBar)
}

func (m Model) overlay(modal string) string {
	return lipgloss.Place(
		m.width, m.height-2,
		lipgloss.Center, lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func (m Model) renderLogin() string {
	content := lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("Admin Login") + "\n\n"
	content += LabelStyle.Render("Secret key") + "\n"
	content += m.keyInput.View() + "\n\n"
	if m.loggingIn {
		content += HelpStyle.Render("Verifying...")
	} else {
		content += HelpStyle.Render("Enter:login  Esc:quit")
	}
	return ModalStyle.Width(50).Render(content)
}

func (m Model) renderSidebar() string {
	var s string

	s += lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("BlogDesk") + "\n"
	s += HelpStyle.Render(time.Now().Format("15:04:05")) + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render("─────────────────") + "\n\n"

	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Blog Posts", ScreenBlog},
		{"3", "Users", ScreenUsers},
	}
	for _, it := range items {
		cursor := "  "
		style := NavItemStyle
		if it.screen == m.screen {
			cursor = "❯ "
			style = NavItemSelectedStyle
		}
		s += style.Render(fmt.Sprintf("%s%s %s", cursor, it.key, it.label)) + "\n"
	}

	s += "\n" + lipgloss.NewStyle().Foreground(Border).Render("─────────────────") + "\n"
	if remaining := m.deps.Auth.Session().Remaining(time.Now()); remaining > 0 {
		s += HelpStyle.Render("session " + formatRemaining(remaining)) + "\n"
	}
	s += HelpStyle.Render("L logout")

	return SidebarStyle.Width(sidebarWidth).Height(m.height - 2).Render(s)
}

func (m Model) renderDashboard() string {
	width := m.width - sidebarWidth - 2
	var s string

	s += lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("Dashboard") + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width-4, 0))) + "\n\n"

	if m.stats == nil {
		if m.statsLoading {
			s += HelpStyle.Render("Loading stats...")
		} else {
			s += HelpStyle.Render("No stats yet. Press 'r' to refresh.")
		}
		return ContentStyle.Width(width).Height(m.height - 2).Render(s)
	}

	st := m.stats
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Posts", st.BlogCount),
		card("Comments", st.CommentsCount),
		card("Views (7d)", st.TotalViews()),
	)
	s += cards + "\n\n"

	s += lipgloss.NewStyle().Bold(true).Render("Views, last 7 days") + "\n"
	s += renderChart(st.ViewsChart, time.Now(), 30) + "\n"

	s += lipgloss.NewStyle().Bold(true).Render("Recent posts") + "\n"
	if len(st.RecentPosts) == 0 {
		s += HelpStyle.Render("  No posts yet.") + "\n"
	}
	for _, p := range st.RecentPosts {
		s += fmt.Sprintf("  %s  %s\n", HelpStyle.Render(formatDate(p.CreatedAt)), truncate(p.Title, max(width-20, 10)))
	}

	if len(st.Activity) > 0 {
		s += "\n" + lipgloss.NewStyle().Bold(true).Render("Activity") + "\n"
		for _, a := range st.Activity {
			s += fmt.Sprintf("  %s  %s\n", HelpStyle.Render(formatDate(a.CreatedAt)), truncate(a.Message, max(width-20, 10)))
		}
	}

	return ContentStyle.Width(width).Height(m.height - 2).Render(s)
}

func card(label string, value int) string {
	return CardStyle.Render(LabelStyle.Render(label) + "\n" + CardValueStyle.Render(fmt.Sprint(value)))
}

// renderChart draws one bar per day for the last 7 days. The chart's last
// point is today.
func renderChart(points []model.ChartPoint, now time.Time, width int) string {
	const days = 7
	values := make([]int, days)
	offset := days - len(points)
	for i, p := range points {
		if j := offset + i; j >= 0 {
			values[j] = int(p)
		}
	}

	peak := 0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}

	var s string
	for i, label := range model.LastDays(now, days) {
		s += fmt.Sprintf("  %s %s %d\n", label, BarStyle.Render(fmt.Sprintf("%-*s", width, bar(values[i], peak, width))), values[i])
	}
	return s
}

func (m Model) renderBlog() string {
	width := m.width - sidebarWidth - 2
	var s string

	var view model.PostListView
	if m.wf != nil {
		view = m.wf.View()
	}
	posts := view.Visible()

	header := fmt.Sprintf("Blog Posts (%d)", len(view.Items))
	if view.SearchTerm != "" {
		header = fmt.Sprintf("Blog Posts (%d of %d matching %q)", len(posts), len(view.Items), view.SearchTerm)
	}
	s += lipgloss.NewStyle().Bold(true).Foreground(Primary).Render(header) + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width-4, 0))) + "\n"

	if m.mode == ModeSearch {
		s += "/" + m.searchInput.View() + "\n"
	}
	s += "\n"

	switch {
	case view.IsLoading && len(view.Items) == 0:
		s += HelpStyle.Render("  Loading posts...")
	case len(view.Items) == 0:
		s += HelpStyle.Render("  No posts. Press 'a' to add one.")
	case len(posts) == 0:
		s += HelpStyle.Render("  No posts match the search.")
	}

	titleWidth := max(width-30, 10)
	for i, p := range posts {
		cursor := "  "
		style := PostItemStyle
		if i == m.cursor {
			cursor = "❯ "
			style = PostItemSelectedStyle
		}
		photo := " "
		if p.Cover() != "" {
			photo = "▣"
		}
		line := fmt.Sprintf("%s%s %-*s %s", cursor, photo, titleWidth, truncate(p.Title, titleWidth), formatDate(p.CreatedAt))
		s += style.Render(line) + "\n"
	}

	if post, ok := m.currentPost(); ok && m.mode == ModeNormal {
		s += "\n" + HelpStyle.Render(truncate(post.Excerpt(200), max(width-6, 10))) + "\n"
	}

	return ContentStyle.Width(width).Height(m.height - 2).Render(s)
}

func (m Model) renderUsers() string {
	width := m.width - sidebarWidth - 2
	s := lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("Users") + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width-4, 0))) + "\n\n"
	s += HelpStyle.Render("  User management is not available from the terminal.")
	return ContentStyle.Width(width).Height(m.height - 2).Render(s)
}

func (m Model) renderForm() string {
	title, imageHelp := "New Post", "required"
	if m.wf != nil && m.wf.Form().Mode == workflow.ModeEdit {
		title, imageHelp = "Edit Post", "leave empty to keep the current image"
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += LabelStyle.Render("Title") + "\n" + m.titleInput.View() + "\n\n"
	content += LabelStyle.Render("Content") + "\n" + m.contentInput.View() + "\n\n"
	content += LabelStyle.Render("Image ("+imageHelp+")") + "\n" + m.imageInput.View() + "\n\n"
	if m.busy {
		content += HelpStyle.Render("Saving...")
	} else {
		content += HelpStyle.Render("Tab:next field  Ctrl+S:save  Esc:cancel")
	}
	return ModalStyle.Render(content)
}

func (m Model) renderConfirm() string {
	name := m.pendingID
	if m.wf != nil {
		if p, ok := m.wf.View().Find(m.pendingID); ok {
			name = p.Title
		}
	}
	content := lipgloss.NewStyle().Bold(true).Foreground(Danger).Render("Delete post?") + "\n\n"
	content += truncate(name, 50) + "\n\n"
	content += HelpStyle.Render("y:delete  any other key:cancel")
	return DangerModalStyle.Render(content)
}

func (m Model) renderStatusBar() string {
	help := "1:dashboard  2:posts  r:refresh  ?:help  q:quit  L:logout"
	switch {
	case m.screen == ScreenLogin:
		help = "Enter the admin key to continue"
	case m.mode == ModeSearch:
		help = "type to filter  Enter:keep  Esc:clear"
	case m.screen == ScreenBlog:
		help = "/:search  a:add  e:edit  d:del  r:refresh  ?:help  q:quit"
	}

	if m.message != "" {
		if m.isError {
			help = ErrorStyle.Render(m.message)
		} else {
			help = SuccessStyle.Render(m.message)
		}
	}

	return StatusBarStyle.Width(m.width).Render(help)
}

func (m Model) renderHelp() string {
	help := `
╭─── Keyboard Shortcuts ───╮
│                          │
│  Navigation              │
│  ──────────              │
│  1      Dashboard        │
│  2      Blog posts       │
│  j/↓    Move down        │
│  k/↑    Move up          │
│  G      Go to bottom     │
│                          │
│  Posts                   │
│  ─────                   │
│  /       Search titles   │
│  a       Add post        │
│  e/Enter Edit post       │
│  d       Delete post     │
│  r       Refresh         │
│                          │
│  Other                   │
│  ─────                   │
│  ?       Toggle help     │
│  L       Logout          │
│  q       Quit            │
│                          │
╰──────────────────────────╯

     Press any key to close
`
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, help)
}

func formatRemaining(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd left", int(d.Hours())/24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh left", int(d.Hours()))
	default:
		return fmt.Sprintf("%dm left", int(d.Minutes()))
	}
}
