// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cli implements ochatctl, the operator tool that works directly on
// the record store.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/olegiv/ochat-go/internal/cache"
	"github.com/olegiv/ochat-go/internal/config"
	"github.com/olegiv/ochat-go/internal/logging"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/service"
	"github.com/olegiv/ochat-go/internal/store"
	"github.com/olegiv/ochat-go/internal/version"
)

// DefaultActor is the name operator actions are recorded under.
const DefaultActor = "ochatctl"

// Env is what the commands operate on.
type Env struct {
	Identity *service.IdentityService
	Messages *service.MessageService
	Events   *service.EventService
	View     *service.ChatView
	// Close releases the store and the cache. It may be nil.
	Close func()
}

// Opener opens the record store for one command.
type Opener func(ctx context.Context) (*Env, error)

// NewEnv builds the services over gw and cm.
func NewEnv(gw store.Gateway, cm *cache.Manager) *Env {
	identity := service.NewIdentityService(gw, cm)
	messages := service.NewMessageService(gw, cm)
	return &Env{
		Identity: identity,
		Messages: messages,
		Events:   service.NewEventService(gw),
		View:     service.NewChatView(identity, messages),
	}
}

// StoreOpener opens the SQLite record store named by cfg. Writes also
// invalidate the cache, which reaches a running server only when both use
// the same Redis.
func StoreOpener(cfg *config.StoreConfig) Opener {
	return func(ctx context.Context) (*Env, error) {
		if cfg.UseMemoryStore() {
			return nil, fmt.Errorf("the memory store lives inside the server process; set OCHAT_STORE=%s", config.StoreSQLite)
		}
		if _, err := os.Stat(cfg.DBPath); err != nil {
			return nil, fmt.Errorf("opening %s: %w", filepath.Clean(cfg.DBPath), err)
		}

		db, err := store.NewDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		gw := store.NewSheetGateway(db)

		// Operator actions are audited like the server's.
		slog.SetDefault(slog.New(logging.NewEventLogHandler(slog.Default().Handler(), gw)))

		backend, info := cache.NewCache(cache.CacheConfig{
			RedisURL:        cfg.RedisURL,
			Prefix:          cfg.CachePrefix,
			DefaultTTL:      cfg.MessagesTTL,
			MaxSize:         cfg.CacheMaxSize,
			CleanupInterval: time.Minute,
		})
		cm := cache.NewManager(backend, info, cfg.MessagesTTL, cfg.RosterTTL)

		env := NewEnv(gw, cm)
		env.Close = func() {
			_ = cm.Close()
			_ = db.Close()
		}
		return env, nil
	}
}

type rootOptions struct {
	actor   string
	verbose bool
}

// NewRootCmd builds the ochatctl command tree.
func NewRootCmd(open Opener) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ochatctl",
		Short:         "oChat operator tool",
		Long:          "Manage users, bans and messages of an oChat record store.",
		Version:       version.Current().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&opts.actor, "as", DefaultActor, "name recorded as the moderator")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	// withEnv opens the store around fn.
	withEnv := func(fn func(cmd *cobra.Command, args []string, env *Env) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, err := open(cmd.Context())
			if err != nil {
				return err
			}
			if env.Close != nil {
				defer env.Close()
			}
			return fn(cmd, args, env)
		}
	}
	actor := func() model.Session { return model.SystemSession(opts.actor) }

	root.AddCommand(
		newUsersCmd(withEnv),
		newBanCmd(withEnv, actor),
		newUnbanCmd(withEnv, actor),
		newMessagesCmd(withEnv, actor),
		newEventsCmd(withEnv),
		newTailCmd(withEnv, actor),
	)
	return root
}

type envRunner func(fn func(cmd *cobra.Command, args []string, env *Env) error) func(*cobra.Command, []string) error

// renderTable prints a table to w.
func renderTable(w io.Writer, headers []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := table.Row{}
	for _, h := range headers {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	t.SetCaption("%d rows", len(rows))

	t.Render()
}
