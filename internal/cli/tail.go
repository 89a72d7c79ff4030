// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/poller"
	"github.com/olegiv/ochat-go/internal/render"
	"github.com/olegiv/ochat-go/internal/service"
)

var errTailDone = errors.New("tail done")

func newTailCmd(withEnv envRunner, actor func() model.Session) *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the message log",
		Long:  "Print the message log, then keep polling and print messages as they arrive.",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, env *Env) error {
			t := &tailer{w: cmd.OutOrStdout(), once: once}
			loop := poller.NewLoop(env.View, actor(), interval, t.render)
			err := loop.Run(cmd.Context())
			if errors.Is(err, errTailDone) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "polling period")
	cmd.Flags().BoolVar(&once, "once", false, "print the current log and exit")
	return cmd
}

// tailer prints the messages a snapshot adds to the ones already printed.
// last is the most recently printed message; when it is no longer at
// position seen-1 the log was cleared in between and printing restarts.
type tailer struct {
	w    io.Writer
	once bool
	seen int
	last model.Message
}

func (t *tailer) render(_ context.Context, snap poller.Snapshot) error {
	for _, e := range snap.Errors {
		_, _ = fmt.Fprintf(t.w, "-- %s --\n", e)
		if e == service.MessagesUnavailable {
			// Nothing to compare against; try again next tick.
			return t.done()
		}
	}

	msgs := snap.Messages
	if t.seen > 0 && (len(msgs) < t.seen || !sameMessage(msgs[t.seen-1], t.last)) {
		_, _ = fmt.Fprintln(t.w, "-- log cleared --")
		t.seen = 0
	}
	for _, m := range msgs[t.seen:] {
		_, _ = fmt.Fprintln(t.w, formatLine(m))
	}
	t.seen = len(msgs)
	if t.seen > 0 {
		t.last = msgs[t.seen-1]
	}
	return t.done()
}

func (t *tailer) done() error {
	if t.once {
		return errTailDone
	}
	return nil
}

func sameMessage(a, b model.Message) bool {
	return a.Username == b.Username && a.Content == b.Content && a.Timestamp.Equal(b.Timestamp)
}

func formatLine(m model.Message) string {
	ts := render.NotAvailable
	if !m.Timestamp.IsZero() {
		ts = model.FormatTimestamp(m.Timestamp)
	}
	author := m.Username
	if author == "" {
		author = render.UnknownAuthor
	}
	if m.Role.IsAdmin() {
		author += " [" + render.RoleLabel(m.Role) + "]"
	}
	return fmt.Sprintf("%s  %s: %s", ts, author, m.Content)
}
