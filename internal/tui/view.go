package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/council-session/internal"
)

const sidebarWidth = 34

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	memberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	chairmanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))

	sidebarStyle = lipgloss.NewStyle().
			Width(sidebarWidth).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color("238"))
)

type sidebarRow struct {
	folder  *internal.Folder
	session internal.SessionSummary
	count   int
}

// rebuildSidebar groups the catalog by folder. Pinned sessions come first
// within each group and collapsed folders hide their sessions.
func (m *Model) rebuildSidebar() {
	cat := m.ctrl.Catalog()
	sessions := cat.Sessions()
	byFolder := make(map[string][]internal.SessionSummary)
	var unfiled []internal.SessionSummary
	for _, s := range sessions {
		if s.FolderID != nil && cat.FolderName(s.FolderID) != "" {
			byFolder[*s.FolderID] = append(byFolder[*s.FolderID], s)
			continue
		}
		unfiled = append(unfiled, s)
	}

	var rows []sidebarRow
	addSessions := func(list []internal.SessionSummary) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].IsPinned && !list[j].IsPinned })
		for _, s := range list {
			rows = append(rows, sidebarRow{session: s})
		}
	}

	folders := cat.Folders()
	sort.SliceStable(folders, func(i, j int) bool { return folders[i].Position < folders[j].Position })
	for i := range folders {
		f := folders[i]
		rows = append(rows, sidebarRow{folder: &f, count: len(byFolder[f.ID])})
		if !m.ctrl.FolderCollapsed(f.ID) {
			addSessions(byFolder[f.ID])
		}
	}
	addSessions(unfiled)

	m.rows = rows
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selected() (sidebarRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return sidebarRow{}, false
	}
	return m.rows[m.cursor], true
}

// View renders the screen
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	body := m.timeline.View()
	if m.state.SidebarOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), body)
	}
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter send • tab sessions • ctrl+n new • ctrl+t mode • ctrl+g incognito • esc quit"))
	return b.String()
}

func (m *Model) header() string {
	title := "New conversation"
	if m.state.SessionID != "" {
		title = m.state.SessionID
		if s, ok := m.ctrl.Catalog().Find(m.state.SessionID); ok {
			title = s.DisplayTitle()
		}
	}
	tags := []string{string(m.state.Mode)}
	if m.state.Incognito {
		tags = append(tags, "incognito")
	}
	return headerStyle.Render(fmt.Sprintf("Council • %s", title)) + " " + mutedStyle.Render(strings.Join(tags, " · "))
}

func (m *Model) statusLine() string {
	switch {
	case m.state.SessionLoading:
		return m.spinner.View() + " Loading conversation..."
	case m.state.LoadFailed:
		return errorStyle.Render(m.state.LoadError)
	case m.state.Loading:
		status := m.state.Status
		if status == "" {
			status = "Working"
		}
		return m.spinner.View() + " " + status + "..."
	case m.notice != "":
		return mutedStyle.Render(m.notice)
	}
	return ""
}

func (m *Model) sidebarView() string {
	var b strings.Builder
	b.WriteString(userStyle.Render("Sessions"))
	b.WriteString("\n")
	if len(m.rows) == 0 {
		b.WriteString(mutedStyle.Render("No conversations yet"))
	}
	for i, row := range m.rows {
		var line string
		if row.folder != nil {
			marker := "▾"
			if m.ctrl.FolderCollapsed(row.folder.ID) {
				marker = "▸"
			}
			line = fmt.Sprintf("%s %s (%d)", marker, row.folder.Name, row.count)
		} else {
			pin := " "
			if row.session.IsPinned {
				pin = "*"
			}
			indent := ""
			if row.session.FolderID != nil {
				indent = "  "
			}
			line = fmt.Sprintf("%s%s %s", indent, pin, row.session.DisplayTitle())
		}
		line = truncate(line, sidebarWidth-2)
		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case row.session.ID == m.state.SessionID && row.folder == nil:
			line = userStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return sidebarStyle.Height(m.timeline.Height).Render(b.String())
}

// renderTranscript draws messages in order, one block per entry
func renderTranscript(s internal.State, width int) string {
	if len(s.Messages) == 0 {
		if s.Incognito {
			return mutedStyle.Render("Incognito: this conversation will not be saved.")
		}
		return mutedStyle.Render("Ask a question to start a conversation.")
	}

	wrap := lipgloss.NewStyle().Width(width)
	var blocks []string
	for _, msg := range s.Messages {
		blocks = append(blocks, wrap.Render(renderMessage(msg)))
	}
	return strings.Join(blocks, "\n\n")
}

func renderMessage(msg internal.DisplayMessage) string {
	switch msg.Kind {
	case internal.KindUser:
		return userStyle.Render("You") + "\n" + msg.Content
	case internal.KindSystem:
		return systemStyle.Render(msg.Content)
	case internal.KindCouncil:
		head := memberStyle.Render(msg.ModelName) + latency(msg.LatencyMs)
		if d := msg.Disagreement; d != nil && d.HasDisagreement {
			head += " " + errorStyle.Render(fmt.Sprintf("disputed (mean rank %.1f)", d.MeanRank))
		}
		return head + "\n" + msg.Content
	case internal.KindChat:
		head := memberStyle.Render(msg.ModelName)
		if msg.ReplyTo != "" {
			head += mutedStyle.Render(" → " + msg.ReplyTo)
		}
		return head + latency(msg.LatencyMs) + "\n" + msg.Content
	case internal.KindVoting:
		return systemStyle.Render(msg.Content)
	case internal.KindChairman:
		return chairmanStyle.Render("Chairman") + "\n" + msg.Content
	case internal.KindError:
		label := "Error"
		if msg.ModelName != "" {
			label = msg.ModelName + " failed"
		}
		return errorStyle.Render(label + ": " + msg.Content)
	}
	return msg.Content
}

func latency(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return mutedStyle.Render(fmt.Sprintf(" %.1fs", float64(ms)/1000))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
