// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/render"
)

// contentWidth bounds message content in tables.
const contentWidth = 60

func newMessagesCmd(withEnv envRunner, actor func() model.Session) *cobra.Command {
	messagesCmd := &cobra.Command{
		Use:   "messages",
		Short: "Inspect and clear the message log",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest messages",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, env *Env) error {
			msgs, err := env.Messages.ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(msgs) > limit {
				msgs = msgs[len(msgs)-limit:]
			}
			rows := make([][]any, 0, len(msgs))
			for _, m := range msgs {
				rows = append(rows, messageRow(m))
			}
			renderTable(cmd.OutOrStdout(), []string{"Time (UTC)", "Author", "Role", "Content"}, rows)
			return nil
		}),
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 50, "show at most this many messages (0 for all)")

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every message",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, env *Env) error {
			if !yes {
				return errors.New("refusing to clear the message log without --yes")
			}
			n, err := env.Messages.ClearAll(cmd.Context(), actor())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d messages\n", n)
			return nil
		}),
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every message")

	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete messages older than an age",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, env *Env) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			n, err := env.Messages.PruneOlderThan(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d messages\n", n)
			return nil
		}),
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 0, "age cutoff, e.g. 720h")

	messagesCmd.AddCommand(listCmd, clearCmd, pruneCmd)
	return messagesCmd
}

func messageRow(m model.Message) []any {
	ts := render.NotAvailable
	if !m.Timestamp.IsZero() {
		ts = model.FormatTimestamp(m.Timestamp)
	}
	author := m.Username
	if author == "" {
		author = render.UnknownAuthor
	}
	content := m.Content
	if content == "" {
		content = render.NoContent
	}
	return []any{ts, author, render.RoleLabel(m.Role), truncate(content, contentWidth)}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newEventsCmd(withEnv envRunner) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the audit log",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest audit events",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, env *Env) error {
			events, err := env.Events.ListEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]any, 0, len(events))
			for _, e := range events {
				rows = append(rows, []any{
					e.CreatedAt.UTC().Format(time.RFC3339), e.Level, e.Category, e.Message, e.Username,
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Time", "Level", "Category", "Message", "User"}, rows)
			return nil
		}),
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 50, "show at most this many events (0 for all)")

	eventsCmd.AddCommand(listCmd)
	return eventsCmd
}
