package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aurelio-labs/aiversity/internal/domain"
	"github.com/aurelio-labs/aiversity/internal/session"
)

const fileServiceTimeout = 10 * time.Second

type folderMsg struct {
	items []domain.FolderItem
	err   error
}

type fileMsg struct {
	name    string
	content string
	edit    bool
	err     error
}

type fileSavedMsg struct {
	name string
	err  error
}

type fileActionMsg struct {
	action string
	path   string
	err    error
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		m.refreshTranscript()
		return m, m.updates.wait()

	case folderMsg:
		if msg.err != nil {
			m.setError("Failed to list folder: " + msg.err.Error())
			return m, nil
		}
		m.folder = msg.items
		m.setPanel(panelFolder)
		return m, nil

	case fileMsg:
		if msg.err != nil {
			m.setError("Failed to read " + msg.name + ": " + msg.err.Error())
			return m, nil
		}
		if msg.edit {
			m.startEditing(msg.name, msg.content)
			return m, nil
		}
		m.fileName, m.fileBody = msg.name, msg.content
		m.setPanel(panelFile)
		return m, nil

	case fileSavedMsg:
		if msg.err != nil {
			m.setError("Failed to save " + msg.name + ": " + msg.err.Error())
			return m, nil
		}
		m.stopEditing()
		m.setStatus("Saved " + m.browser.FullPath(msg.name))
		return m, m.listFolder()

	case fileActionMsg:
		if msg.err != nil {
			m.setError("File " + msg.action + " failed: " + msg.err.Error())
			return m, nil
		}
		note := "File " + msg.action + ": " + msg.path
		if err := m.chat.Note(note); err != nil {
			m.setError(err.Error())
		} else {
			m.setStatus(note)
		}
		return m, m.listFolder()

	case fileChangeMsg:
		next := waitChange(m.watcher)
		if m.panel != panelFolder || m.browser == nil {
			return m, next
		}
		m.fresh = append(append([]string(nil), m.fresh...), msg.File)
		name := msg.File
		unfresh := tea.Tick(freshFor, func(time.Time) tea.Msg { return unfreshMsg{name: name} })
		return m, tea.Batch(next, m.listFolder(), unfresh)

	case unfreshMsg:
		fresh := make([]string, 0, len(m.fresh))
		for _, n := range m.fresh {
			if n != msg.name {
				fresh = append(fresh, n)
			}
		}
		m.fresh = fresh
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Cursor blinks and mouse scrolling.
	var vpCmd, inCmd, edCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	if m.panel == panelEdit {
		m.editor, edCmd = m.editor.Update(msg)
	} else {
		m.input, inCmd = m.input.Update(msg)
	}
	return m, tea.Batch(vpCmd, inCmd, edCmd)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.panel == panelEdit {
		return m.handleEditorKey(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		m.setPanel(panelNone)
		return m, nil
	case tea.KeyEnter:
		line := m.input.Value()
		m.input.Reset()
		return m.submit(line)
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit routes a line either to a slash command or to the chat backend.
func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	if cmd, ok := parseCommand(line); ok {
		return m.runCommand(cmd)
	}
	if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "//") {
		line = trimmed[1:]
	}
	if err := m.chat.Send(line); err != nil {
		m.setError(err.Error())
	}
	return m, nil
}

// handleEditorKey sends keys to the file editor. ctrl+s saves, esc discards.
func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		m.setStatus("Discarded changes to " + m.editing)
		m.stopEditing()
		return m, m.listFolder()
	case tea.KeyCtrlS:
		return m, m.saveFile(m.editing, m.editor.Value())
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) startEditing(name, content string) {
	m.editing = name
	m.editor.SetValue(content)
	m.input.Blur()
	_ = m.editor.Focus()
	m.setPanel(panelEdit)
}

// stopEditing closes the editor and returns to the folder listing.
func (m *Model) stopEditing() {
	m.editing = ""
	m.editor.Blur()
	m.editor.Reset()
	_ = m.input.Focus()
	m.setPanel(panelFolder)
}

func (m Model) listFolder() tea.Cmd {
	browser := m.browser
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fileServiceTimeout)
		defer cancel()
		items, err := browser.List(ctx)
		return folderMsg{items: items, err: err}
	}
}

func (m Model) readFile(name string, edit bool) tea.Cmd {
	browser := m.browser
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fileServiceTimeout)
		defer cancel()
		content, err := browser.Read(ctx, name)
		return fileMsg{name: name, content: content, edit: edit, err: err}
	}
}

func (m Model) saveFile(name, content string) tea.Cmd {
	browser := m.browser
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fileServiceTimeout)
		defer cancel()
		return fileSavedMsg{name: name, err: browser.Save(ctx, name, content)}
	}
}

func (m Model) fileAction(action string, item domain.FolderItem) tea.Cmd {
	browser := m.browser
	userID := m.snap.UserID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fileServiceTimeout)
		defer cancel()
		err := browser.Act(ctx, action, item, userID)
		return fileActionMsg{action: action, path: browser.FullPath(item.Name), err: err}
	}
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(s string) {
	m.status, m.statusErr = s, true
}
