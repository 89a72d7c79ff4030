package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/ochat-go/internal/cache"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/store"
)

var (
	admin   = model.NewSession("root", model.RoleAdmin)
	errDown = errors.New("backend down")
)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyGateway wraps a gateway and fails chosen operations on demand.
type flakyGateway struct {
	store.Gateway

	mu         sync.Mutex
	failReads  bool
	failWrites bool
	reads      int
}

func (g *flakyGateway) setFailReads(v bool) {
	g.mu.Lock()
	g.failReads = v
	g.mu.Unlock()
}

func (g *flakyGateway) setFailWrites(v bool) {
	g.mu.Lock()
	g.failWrites = v
	g.mu.Unlock()
}

func (g *flakyGateway) readCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reads
}

func (g *flakyGateway) readErr(table store.Table) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reads++
	if g.failReads {
		return errors.Join(store.ErrUnavailable, errDown)
	}
	return nil
}

func (g *flakyGateway) writeErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWrites {
		return errors.Join(store.ErrUnavailable, errDown)
	}
	return nil
}

func (g *flakyGateway) ReadAllRows(ctx context.Context, table store.Table) ([]store.Row, error) {
	if err := g.readErr(table); err != nil {
		return nil, err
	}
	return g.Gateway.ReadAllRows(ctx, table)
}

func (g *flakyGateway) ReadAllRecords(ctx context.Context, table store.Table) ([]store.Record, error) {
	if err := g.readErr(table); err != nil {
		return nil, err
	}
	return g.Gateway.ReadAllRecords(ctx, table)
}

func (g *flakyGateway) AppendRow(ctx context.Context, table store.Table, row store.Row) error {
	if err := g.writeErr(); err != nil {
		return err
	}
	return g.Gateway.AppendRow(ctx, table, row)
}

func (g *flakyGateway) DeleteRows(ctx context.Context, table store.Table, start, end int) error {
	if err := g.writeErr(); err != nil {
		return err
	}
	return g.Gateway.DeleteRows(ctx, table, start, end)
}

type testEnv struct {
	gw       *flakyGateway
	clock    *testClock
	cache    *cache.Manager
	identity *IdentityService
	messages *MessageService
	events   *EventService
	view     *ChatView
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newTestClock()
	gw := &flakyGateway{Gateway: store.NewMemoryGateway()}
	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute, Now: clock.Now})
	mgr := cache.NewManager(backend, cache.Info{}, 60*time.Second, 5*time.Minute)
	t.Cleanup(func() { _ = mgr.Close() })

	identity := NewIdentityService(gw, mgr)
	messages := NewMessageService(gw, mgr)
	messages.now = clock.Now
	events := NewEventService(gw)
	events.now = clock.Now

	return &testEnv{
		gw:       gw,
		clock:    clock,
		cache:    mgr,
		identity: identity,
		messages: messages,
		events:   events,
		view:     NewChatView(identity, messages),
	}
}

func (e *testEnv) register(t *testing.T, username, password string) {
	t.Helper()
	if err := e.identity.Register(context.Background(), username, password); err != nil {
		t.Fatalf("Register(%q): %v", username, err)
	}
}

func (e *testEnv) ban(t *testing.T, by model.Session, username string) bool {
	t.Helper()
	added, err := e.identity.Ban(context.Background(), by, username)
	if err != nil {
		t.Fatalf("Ban(%q): %v", username, err)
	}
	return added
}

func (e *testEnv) rowCount(t *testing.T, table store.Table) int {
	t.Helper()
	rows, err := e.gw.Gateway.ReadAllRows(context.Background(), table)
	if err != nil {
		t.Fatalf("ReadAllRows: %v", err)
	}
	return len(rows) - 1
}
