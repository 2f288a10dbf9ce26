package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aurelio-labs/aiversity/internal/domain"
	"github.com/aurelio-labs/aiversity/internal/files"
	"github.com/aurelio-labs/aiversity/internal/session"
)

// maxActions bounds the action panel; older entries scroll off.
const maxActions = 8

// freshFor is how long an added or removed entry stays highlighted.
const freshFor = 3 * time.Second

// Chat is the part of a session the UI drives.
type Chat interface {
	Send(text string) error
	Clear() error
	Note(text string) error
}

type panel int

const (
	panelNone panel = iota
	panelActions
	panelFolder
	panelFile
	panelEdit
	panelHelp
)

type Model struct {
	chat    Chat
	browser *files.Browser
	updates *Updates
	watcher *files.Watcher

	snap session.Snapshot

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	editor   textarea.Model

	width  int
	height int

	panel     panel
	folder    []domain.FolderItem
	fileName  string
	fileBody  string
	editing   string
	fresh     []string
	status    string
	statusErr bool
	quitting  bool
}

type Option func(*Model)

// WithFolderUpdates follows w while the folder panel is open and refreshes
// the listing when entries are added or removed.
func WithFolderUpdates(w *files.Watcher) Option {
	return func(m *Model) { m.watcher = w }
}

// New builds the UI. browser may be nil, which disables the folder commands.
func New(chat Chat, browser *files.Browser, updates *Updates, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message or /help"
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ed := textarea.New()
	ed.MaxHeight = 0
	ed.Placeholder = "Empty file"

	m := Model{
		chat:     chat,
		browser:  browser,
		updates:  updates,
		viewport: vp,
		input:    ti,
		spinner:  sp,
		editor:   ed,
		width:    80,
		height:   24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, m.updates.wait()}
	if m.watcher != nil {
		cmds = append(cmds, waitChange(m.watcher))
	}
	return tea.Batch(cmds...)
}

type fileChangeMsg domain.FileChange

type unfreshMsg struct{ name string }

func waitChange(w *files.Watcher) tea.Cmd {
	return func() tea.Msg {
		return fileChangeMsg(<-w.Changes())
	}
}

// setPanel switches the side panel. The folder update stream is followed
// only while the folder panel is showing.
func (m *Model) setPanel(p panel) {
	m.panel = p
	if m.watcher != nil {
		if p == panelFolder {
			m.watcher.Start()
		} else {
			m.watcher.Stop()
		}
	}
	m.layout()
}

func (m Model) isFresh(name string) bool {
	for _, n := range m.fresh {
		if n == name {
			return true
		}
	}
	return false
}
