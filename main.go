package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"sage/internal/app"
	"sage/internal/config"
	"sage/internal/messages"
	"sage/internal/mock"
	"sage/sdk/chat"
)

func main() {
	cliApp := &cli.App{
		Name:  "sage",
		Usage: "Terminal client for the Sage answer service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Backend base URL",
				EnvVars: []string{"SAGE_BACKEND_URL"},
			},
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "Run the mock backend instead of the TUI",
			},
			&cli.IntFlag{
				Name:  "mock-port",
				Value: 8000,
				Usage: "Port for the mock backend",
			},
			&cli.BoolFlag{
				Name:  "resume",
				Usage: "Resume the most recent session",
			},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("mock") {
		server := mock.NewServer(c.Int("mock-port"))
		return server.Start()
	}

	prefs, err := config.LoadPreferences()
	if err != nil {
		prefs = &config.Preferences{ResumePreference: config.DefaultResumePreference}
	}

	url := c.String("backend")
	if url == "" {
		url = prefs.BackendURL
	}
	if url == "" {
		url = "http://localhost:8000"
	}

	logger := chat.NewLoggerFromEnv()
	client := chat.NewClient(url, chat.WithLogger(logger))

	shared := &app.SharedState{}
	store := chat.NewStore(client,
		chat.WithStoreLogger(logger),
		chat.WithOnChange(func() {
			if p := shared.GetProgram(); p != nil {
				p.Send(messages.StoreChangedMsg{})
			}
		}),
	)

	model := app.New(store, shared)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	model.SetProgram(p)

	if resumable := resumeTarget(c, prefs); resumable != nil {
		go func() {
			sess := chat.Session{ID: resumable.SessionID, Title: resumable.Title}
			err := store.LoadSession(context.Background(), sess)
			p.Send(messages.SessionResumedMsg{Err: err})
		}()
	}

	if _, err := p.Run(); err != nil {
		return err
	}

	rememberSession(store)
	return nil
}

// resumeTarget decides whether to reload a previous session at startup.
func resumeTarget(c *cli.Context, prefs *config.Preferences) *config.LastSessionInfo {
	last, err := config.GetResumableSession()
	if err != nil || last == nil {
		return nil
	}
	if c.Bool("resume") || prefs.ResumePreference == config.ResumeAlwaysContinue {
		return last
	}
	return nil
}

// rememberSession persists the active session so the next start can
// offer to resume it.
func rememberSession(store *chat.Store) {
	sess := store.Session()
	if sess == nil {
		config.ClearLastSession()
		return
	}
	config.UpdateLastSession(config.LastSessionInfo{
		SessionID:    sess.ID,
		Title:        sess.Title,
		LastActive:   time.Now().UTC(),
		MessageCount: len(store.Messages()),
	})
}
