package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ochat-go/internal/model"
)

func TestChatView_Snapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")
	alice := model.NewSession("alice", model.RoleUser)
	_, err := env.messages.Append(ctx, alice, "hi")
	require.NoError(t, err)

	snap := env.view.Snapshot(ctx, alice)

	assert.False(t, snap.Degraded())
	assert.Equal(t, alice, snap.Viewer)
	require.Len(t, snap.Roster, 1)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "hi", snap.Messages[0].Content)
}

func TestChatView_DegradedSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")
	_, err := env.messages.Append(ctx, model.NewSession("alice", model.RoleUser), "hi")
	require.NoError(t, err)

	env.gw.setFailReads(true)
	snap := env.view.Snapshot(ctx, model.NewSession("alice", model.RoleUser))

	assert.True(t, snap.Degraded())
	assert.Empty(t, snap.Roster)
	assert.Empty(t, snap.Messages, "failed reads must not fall back to stale data")
	assert.Equal(t, []string{RosterUnavailable, MessagesUnavailable}, snap.Errors)
}
