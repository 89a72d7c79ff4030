// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ochat-go/internal/config"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/poller"
	"github.com/olegiv/ochat-go/internal/store"
	"github.com/olegiv/ochat-go/internal/testutil"
)

// testEnv shares one memory store across command invocations.
type testEnv struct {
	gw  *store.MemoryGateway
	env *Env
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gw := store.NewMemoryGateway()
	return &testEnv{gw: gw, env: NewEnv(gw, testutil.TestCacheManager(t))}
}

func (e *testEnv) open(context.Context) (*Env, error) {
	return e.env, nil
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return execute(t, e.open, stdin, args...)
}

func execute(t *testing.T, open Opener, stdin string, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	root := NewRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUsers_AddAndList(t *testing.T) {
	e := newTestEnv(t)

	out, err := e.run(t, "", "users", "add", "root", "--admin", "--password", "rootpw")
	require.NoError(t, err)
	assert.Contains(t, out, "created root (Admin)")

	_, err = e.run(t, "alicepw\n", "users", "add", "alice")
	require.NoError(t, err)

	role, err := e.env.Identity.Authenticate(context.Background(), "alice", "alicepw")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)

	out, err = e.run(t, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "root")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "2 rows")
}

func TestUsers_AddDuplicate(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run(t, "", "users", "add", "alice", "--password", "pw")
	require.NoError(t, err)
	_, err = e.run(t, "", "users", "add", "alice", "--password", "other")
	assert.Error(t, err)
}

func TestUsers_AddNeedsPassword(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run(t, "", "users", "add", "alice")
	assert.Error(t, err)
}

func TestBanAndUnban(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.env.Identity.Register(ctx, "alice", "pw"))

	out, err := e.run(t, "", "ban", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "banned alice")

	banned, err := e.env.Identity.IsBanned(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, banned)

	out, err = e.run(t, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "banned")

	out, err = e.run(t, "", "unban", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "unbanned alice")

	out, err = e.run(t, "", "unban", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "alice was not banned")
}

func TestBan_OwnActorRefused(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run(t, "", "ban", "ops", "--as", "ops")
	assert.Error(t, err)
}

func TestMessages_ListAndClear(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := model.NewSession("alice", model.RoleUser)
	for _, c := range []string{"one", "two", "three"} {
		_, err := e.env.Messages.Append(ctx, alice, c)
		require.NoError(t, err)
	}

	out, err := e.run(t, "", "messages", "list", "--limit", "2")
	require.NoError(t, err)
	assert.NotContains(t, out, "one")
	assert.Contains(t, out, "two")
	assert.Contains(t, out, "three")

	_, err = e.run(t, "", "messages", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err = e.run(t, "", "messages", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared 3 messages")

	msgs, err := e.env.Messages.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessages_Prune(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, e.gw.AppendRow(ctx, store.TableMessages,
		store.Row{"alice", "user", "old", model.FormatTimestamp(old)}))
	_, err := e.env.Messages.Append(ctx, model.NewSession("alice", model.RoleUser), "fresh")
	require.NoError(t, err)

	_, err = e.run(t, "", "messages", "prune")
	assert.Error(t, err)

	out, err := e.run(t, "", "messages", "prune", "--older-than", "24h")
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 1 messages")

	msgs, err := e.env.Messages.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "fresh", msgs[0].Content)
}

func TestEvents_List(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.env.Events.LogWarning(ctx, model.EventCategoryModeration, "user banned", "root", nil))

	out, err := e.run(t, "", "events", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "user banned")
	assert.Contains(t, out, model.EventCategoryModeration)
}

func TestTail_Once(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, err := e.env.Messages.Append(ctx, model.NewSession("root", model.RoleAdmin), "hello")
	require.NoError(t, err)
	_, err = e.env.Messages.Append(ctx, model.NewSession("alice", model.RoleUser), "hi")
	require.NoError(t, err)

	out, err := e.run(t, "", "tail", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "root [Admin]: hello")
	assert.Contains(t, out, "alice: hi")
}

func TestTailer_PrintsOnlyNewMessages(t *testing.T) {
	var out bytes.Buffer
	tl := &tailer{w: &out}
	msg := func(c string) model.Message { return model.Message{Username: "alice", Content: c} }

	require.NoError(t, tl.render(context.Background(), snapshotOf(msg("a"))))
	require.NoError(t, tl.render(context.Background(), snapshotOf(msg("a"), msg("b"))))
	assert.Equal(t, 1, strings.Count(out.String(), ": a"))
	assert.Equal(t, 1, strings.Count(out.String(), ": b"))

	require.NoError(t, tl.render(context.Background(), snapshotOf()))
	assert.Contains(t, out.String(), "-- log cleared --")
	assert.Equal(t, 0, tl.seen)
}

func TestTailer_ClearFollowedByMoreMessages(t *testing.T) {
	var out bytes.Buffer
	tl := &tailer{w: &out}
	msg := func(c string) model.Message { return model.Message{Username: "bob", Content: c} }

	require.NoError(t, tl.render(context.Background(), snapshotOf(msg("a"), msg("b"), msg("c"))))
	out.Reset()

	// Cleared and refilled past the old length between two polls.
	require.NoError(t, tl.render(context.Background(), snapshotOf(msg("w"), msg("x"), msg("y"), msg("z"))))
	printed := out.String()
	assert.Contains(t, printed, "-- log cleared --")
	for _, c := range []string{"w", "x", "y", "z"} {
		assert.Contains(t, printed, "bob: "+c)
	}
	assert.Equal(t, 4, tl.seen)

	out.Reset()
	require.NoError(t, tl.render(context.Background(), snapshotOf(msg("w"), msg("x"), msg("y"), msg("z"), msg("n"))))
	assert.Equal(t, "N/A  bob: n\n", out.String())
}

func snapshotOf(msgs ...model.Message) poller.Snapshot {
	return poller.Snapshot{Messages: msgs}
}

func sqliteConfig(path string) *config.StoreConfig {
	return &config.StoreConfig{
		Store:        config.StoreSQLite,
		DBPath:       path,
		CachePrefix:  "ochat:",
		CacheMaxSize: 100,
		MessagesTTL:  time.Minute,
		RosterTTL:    time.Minute,
	}
}

func TestStoreOpener_SQLite(t *testing.T) {
	open := StoreOpener(sqliteConfig(testutil.TestDBPath(t)))

	_, err := execute(t, open, "", "users", "add", "alice", "--password", "pw")
	require.NoError(t, err)
	_, err = execute(t, open, "", "ban", "alice")
	require.NoError(t, err)

	out, err := execute(t, open, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "banned")

	// Moderation warnings reach the audit log through the event handler.
	out, err = execute(t, open, "", "events", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "user banned")
	assert.Contains(t, out, model.EventCategoryModeration)
}

func TestStoreOpener_Refusals(t *testing.T) {
	_, err := StoreOpener(&config.StoreConfig{Store: config.StoreMemory})(context.Background())
	assert.Error(t, err)

	_, err = StoreOpener(sqliteConfig(filepath.Join(t.TempDir(), "missing.db")))(context.Background())
	assert.Error(t, err)
}
