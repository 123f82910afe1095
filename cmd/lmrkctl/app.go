package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmrk/lmrkctl/pkg/api"
	"github.com/lmrk/lmrkctl/pkg/config"
	"github.com/lmrk/lmrkctl/pkg/session"
	"github.com/lmrk/lmrkctl/pkg/tokenstore"
)

// app wires the config, token store, backend client, and session
// manager together for the command handlers.
type app struct {
	cfg       config.Config
	client    *api.Client
	manager   *session.Manager
	scheduler *session.Scheduler
	logger    *slog.Logger
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lmrkctl", "config.yaml")
}

func (a *app) init(configPath string, verbose bool) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	store := tokenstore.NewFileStore(cfg.TokenFile)
	client, err := api.New(api.Config{
		BaseURL: cfg.BaseURL,
		Store:   store,
		Timeout: cfg.RequestTimeout,
		Logger:  a.logger,
	})
	if err != nil {
		return fmt.Errorf("creating backend client: %w", err)
	}
	a.client = client
	a.manager = session.NewManager(client, store, a.logger)

	// Follows the session: starts on login, stops on logout. One-shot
	// commands exit before the first tick; long-running ones keep the
	// token fresh.
	a.scheduler = session.NewScheduler(a.manager, cfg.RefreshInterval, a.logger)

	// The transport broadcasts these when it has to end or restrict
	// the session mid-call; surface them the way the dashboard's route
	// guard and toasts did.
	client.Signals().Notify(func(s api.Signal) {
		switch s.Kind {
		case api.SignalLogout:
			fmt.Fprintln(os.Stderr, "Session expired. Run `lmrkctl login` to sign in again.")
		case api.SignalForbidden:
			msg := s.Message
			if msg == "" {
				msg = "You do not have permission to perform this action"
			}
			fmt.Fprintln(os.Stderr, "Forbidden: "+msg)
		}
	})

	return nil
}

// requireSession bootstraps the stored session and refuses to proceed
// when it does not resolve to an authenticated state. The guard every
// protected command runs behind.
func (a *app) requireSession(ctx context.Context) error {
	a.manager.Bootstrap(ctx)
	st := a.manager.State()
	if !st.Authenticated {
		return fmt.Errorf("not logged in; run `lmrkctl login`")
	}
	return nil
}
