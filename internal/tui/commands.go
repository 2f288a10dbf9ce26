package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aurelio-labs/aiversity/internal/domain"
	"github.com/aurelio-labs/aiversity/internal/files"
)

type command struct {
	name string
	arg  string
}

// parseCommand recognizes "/name [arg]". A line starting with "//" is a chat
// message with the first slash stripped.
func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || strings.HasPrefix(line, "//") {
		return command{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

var helpText = strings.Join([]string{
	"/clear          clear the transcript and action log",
	"/actions        toggle the agent action panel",
	"/ls             list the current workspace folder",
	"/cd <folder>    enter a folder (.. goes up)",
	"/cat <file>     show a file",
	"/edit <file>    edit a file (ctrl+s saves, esc discards)",
	"/rm <entry>     delete a file or folder",
	"/quit           leave",
	"esc closes the side panel, pgup/pgdown scroll",
}, "\n")

func (m Model) runCommand(cmd command) (tea.Model, tea.Cmd) {
	switch cmd.name {
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit

	case "help":
		m.setPanel(panelHelp)
		return m, nil

	case "clear":
		if err := m.chat.Clear(); err != nil {
			m.setError(err.Error())
		}
		return m, nil

	case "actions":
		if m.panel == panelActions {
			m.setPanel(panelNone)
		} else {
			m.setPanel(panelActions)
		}
		return m, nil
	}

	switch cmd.name {
	case "ls", "cd", "cat", "edit", "rm":
		if m.browser == nil {
			m.setError("The folder view is not configured")
			return m, nil
		}
	}

	switch cmd.name {
	case "ls":
		return m, m.listFolder()

	case "cd":
		if cmd.arg == "" {
			for m.browser.Current() != "" {
				m.browser.Up()
			}
			return m, m.listFolder()
		}
		if err := m.browser.Enter(cmd.arg); err != nil {
			m.setError(err.Error())
			return m, nil
		}
		return m, m.listFolder()

	case "cat":
		if cmd.arg == "" {
			m.setError("usage: /cat <file>")
			return m, nil
		}
		return m, m.readFile(cmd.arg, false)

	case "edit":
		if cmd.arg == "" {
			m.setError("usage: /edit <file>")
			return m, nil
		}
		if m.lookup(cmd.arg).IsFolder() {
			m.setError(cmd.arg + " is a folder")
			return m, nil
		}
		return m, m.readFile(cmd.arg, true)

	case "rm":
		if cmd.arg == "" || cmd.arg == files.Parent {
			m.setError("usage: /rm <entry>")
			return m, nil
		}
		return m, m.fileAction("delete", m.lookup(cmd.arg))
	}

	m.setError("Unknown command /" + cmd.name + ", try /help")
	return m, nil
}

// lookup finds name in the last listing; unknown names are assumed files.
func (m Model) lookup(name string) domain.FolderItem {
	for _, item := range m.folder {
		if item.Name == name {
			return item
		}
	}
	return domain.FolderItem{Name: name, Type: domain.ItemFile}
}
