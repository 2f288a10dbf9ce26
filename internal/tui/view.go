package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aurelio-labs/aiversity/internal/domain"
)

const (
	headerHeight = 1
	footerHeight = 3
	panelWidth   = 40
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	body := m.viewport.View()
	if m.panel == panelEdit {
		body = agentStyle.Render("Editing "+m.browser.FullPath(m.editing)) +
			mutedStyle.Render("  ctrl+s save, esc discard") + "\n" + m.editor.View()
	} else if side := m.sidePanel(); side != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, side)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		body,
		m.footer(),
	)
}

func (m Model) header() string {
	title := headerStyle.Render("aiversity")

	var state string
	switch m.snap.State {
	case domain.Connected:
		state = connectedStyle.Render("● connected")
	case domain.Connecting:
		state = connectingStyle.Render("◌ connecting")
	default:
		if m.snap.Reconnecting {
			state = disconnectedStyle.Render("○ disconnected, retrying")
		} else {
			state = disconnectedStyle.Render("○ disconnected")
		}
	}

	who := ""
	if m.snap.UserID != "" {
		who = mutedStyle.Render(" " + m.snap.UserID)
	}
	return title + " " + state + who
}

func (m Model) footer() string {
	var lines []string
	if m.snap.Waiting {
		lines = append(lines, m.spinner.View()+mutedStyle.Render(" agent is typing..."))
	} else {
		lines = append(lines, "")
	}
	lines = append(lines, m.input.View())
	switch {
	case m.status == "":
		lines = append(lines, "")
	case m.statusErr:
		lines = append(lines, errorStyle.Render(m.status))
	default:
		lines = append(lines, mutedStyle.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func (m Model) sidePanel() string {
	var title, content string
	switch m.panel {
	case panelActions:
		title, content = "Agent actions", renderActions(m.snap.Actions)
	case panelFolder:
		title, content = "/"+m.browser.Current(), renderFolder(m.folder, m.isFresh)
	case panelFile:
		title, content = m.fileName, m.fileBody
	case panelHelp:
		title, content = "Commands", helpText
	default:
		return ""
	}

	height := m.viewport.Height - 2
	lines := strings.Split(content, "\n")
	if height > 0 && len(lines) > height-1 {
		lines = lines[:max(height-1, 0)]
	}
	return panelStyle.Width(panelWidth - 2).Height(max(height, 1)).
		Render(agentStyle.Render(title) + "\n" + strings.Join(lines, "\n"))
}

func renderActions(actions []domain.ActionFrame) string {
	if len(actions) == 0 {
		return mutedStyle.Render("No actions yet")
	}
	start := max(len(actions)-maxActions, 0)
	var b strings.Builder
	for _, a := range actions[start:] {
		d := domain.DescribeAction(a)
		fmt.Fprintf(&b, "%s %s\n", d.Icon, d.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderFolder lists items; fresh ones are marked as recently changed.
func renderFolder(items []domain.FolderItem, fresh func(string) bool) string {
	if len(items) == 0 {
		return mutedStyle.Render("Empty folder")
	}
	var b strings.Builder
	for _, item := range items {
		var line string
		if item.IsFolder() {
			line = folderStyle.Render("▸ " + item.Name + "/")
		} else {
			line = "  " + item.Name
		}
		if fresh(item.Name) {
			line += freshStyle.Render(" ✦ new")
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderTranscript() string {
	if len(m.snap.Transcript) == 0 {
		return mutedStyle.Render("Say hello to start the conversation.")
	}
	width := max(m.viewport.Width-2, 10)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, e := range m.snap.Transcript {
		label := agentStyle.Render("Agent")
		if e.IsUser {
			label = userStyle.Render("You")
		}
		text := e.Text
		if !e.IsUser && (text == domain.SubmitErrorText || text == domain.NoResponseText) {
			text = errorStyle.Render(text)
		}
		b.WriteString(label + "\n" + wrap.Render(text) + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// layout sizes the transcript around the header, footer and side panel.
func (m *Model) layout() {
	w := m.width
	if m.panel != panelNone && m.panel != panelEdit {
		w -= panelWidth
	}
	m.viewport.Width = max(w, 20)
	m.viewport.Height = max(m.height-headerHeight-footerHeight, 3)
	m.editor.SetWidth(max(m.width-2, 20))
	m.editor.SetHeight(max(m.viewport.Height-1, 1))
	m.input.Width = max(m.width-4, 10)
	m.refreshTranscript()
}
