package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aurelio-labs/aiversity/internal/session"
)

// Updates carries session snapshots into the bubbletea loop. Publish never
// blocks; a reader that falls behind only sees the latest snapshot.
type Updates struct {
	ch chan session.Snapshot
}

func NewUpdates() *Updates {
	return &Updates{ch: make(chan session.Snapshot, 1)}
}

// Publish is meant for session.WithOnUpdate.
func (u *Updates) Publish(snap session.Snapshot) {
	for {
		select {
		case u.ch <- snap:
			return
		default:
		}
		select {
		case <-u.ch:
		default:
		}
	}
}

type snapshotMsg session.Snapshot

func (u *Updates) wait() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-u.ch)
	}
}
