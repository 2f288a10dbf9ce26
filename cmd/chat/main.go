package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/aurelio-labs/aiversity/internal/adapter/backend"
	wsadapter "github.com/aurelio-labs/aiversity/internal/adapter/websocket"
	"github.com/aurelio-labs/aiversity/internal/files"
	"github.com/aurelio-labs/aiversity/internal/platform/config"
	"github.com/aurelio-labs/aiversity/internal/platform/logging"
	"github.com/aurelio-labs/aiversity/internal/session"
	"github.com/aurelio-labs/aiversity/internal/tui"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The terminal belongs to the UI; logs go to a rotating file.
	logFile := logging.NewFileWriter(cfg.LogFile)
	defer func() { _ = logFile.Close() }()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat, logFile)

	clock := clockwork.NewRealClock()
	backendClient := backend.NewClient(cfg.ChatBackendURL, cfg.SubmitTimeout)
	updates := tui.NewUpdates()

	sess := session.New(session.Config{
		SubscriberURL:  cfg.SubscriberURL,
		UserID:         cfg.UserID,
		ReconnectDelay: cfg.ReconnectDelay,
		IdleTimeout:    cfg.IdleTimeout,
		SubmitTimeout:  cfg.SubmitTimeout,
	}, clock, wsadapter.NewDialer(), backendClient, session.WithOnUpdate(updates.Publish))

	var browser *files.Browser
	var opts []tui.Option
	if cfg.WorkspaceRoot != "" {
		browser = files.NewBrowser(cfg.WorkspaceRoot, backendClient)
		if cfg.FolderUpdatesURL != "" {
			watcher := files.NewWatcher(cfg.FolderUpdatesURL, wsadapter.NewDialer(), clock, cfg.ReconnectDelay)
			defer watcher.Stop()
			opts = append(opts, tui.WithFolderUpdates(watcher))
		}
	}

	slog.Info("Chat client starting", "backend", cfg.ChatBackendURL, "subscriber_url", cfg.SubscriberURL)
	sess.Start()

	_, runErr := tea.NewProgram(tui.New(sess, browser, updates, opts...), tea.WithAltScreen()).Run()
	sess.Close()

	if runErr != nil {
		slog.Error("Chat UI failed", "error", runErr)
		fmt.Fprintf(os.Stderr, "chat: %v\n", runErr)
		os.Exit(1)
	}
}
