// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ochat-go/internal/cache"
	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/poller"
	"github.com/olegiv/ochat-go/internal/render"
	"github.com/olegiv/ochat-go/internal/scheduler"
	"github.com/olegiv/ochat-go/internal/service"
	"github.com/olegiv/ochat-go/internal/session"
	"github.com/olegiv/ochat-go/internal/store"
	"github.com/olegiv/ochat-go/web"
)

type testEnv struct {
	gw       *store.MemoryGateway
	identity *service.IdentityService
	messages *service.MessageService
	events   *service.EventService
	hub      *poller.Hub
	chat     *ChatHandler
	jobs     *stubJobs
	srv      *httptest.Server
}

type stubJobs struct {
	ran []string
	err error
}

func (s *stubJobs) List() []scheduler.JobInfo {
	return []scheduler.JobInfo{{Name: "prune", Description: "Prune old messages", Schedule: "@every 5m"}}
}

func (s *stubJobs) TriggerNow(name string) error {
	s.ran = append(s.ran, name)
	return s.err
}

// newTestEnv wires the web handlers over a memory store the same way the
// server does, with root (admin) and alice (user) registered.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	gw := store.NewMemoryGateway()
	cm := cache.NewMemoryManager(time.Minute, time.Minute)
	identity := service.NewIdentityService(gw, cm)
	messages := service.NewMessageService(gw, cm)
	events := service.NewEventService(gw)
	view := service.NewChatView(identity, messages)
	hub := poller.NewHub()
	jobs := &stubJobs{}

	require.NoError(t, identity.RegisterWithRole(ctx, "root", "rootpw", model.RoleAdmin))
	require.NoError(t, identity.Register(ctx, "alice", "alicepw"))

	sm := session.NewMemory(true)
	renderer, err := render.New(render.Config{TemplatesFS: web.Templates(), SessionManager: sm, IsDev: true})
	require.NoError(t, err)

	authH := NewAuthHandler(identity, events, renderer, sm, nil)
	chatH := NewChatHandler(view, messages, hub, renderer, time.Hour)
	adminH := NewAdminHandler(identity, messages, events, jobs, hub, renderer)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadSession(sm))
	r.Use(middleware.EjectBanned(sm, identity))

	r.Get(RouteLogin, authH.LoginForm)
	r.Post(RouteLogin, authH.Login)
	r.Post(RouteSignup, authH.Signup)
	r.Post(RouteLogout, authH.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get(RouteRoot, chatH.Page)
		r.Post(RouteMessages, chatH.Send)
		r.Get(RouteStream, chatH.Stream)
	})

	r.Route(RouteAdmin, func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post(RouteAdminBan, adminH.Ban)
		r.Post(RouteAdminUnban, adminH.Unban)
		r.Post(RouteAdminClear, adminH.ClearMessages)
		r.Get(RouteAdminJobs, adminH.Jobs)
		r.Post(RouteAdminJobRun, adminH.RunJob)
		r.Get(RouteAdminEvents, adminH.Events)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(chatH.Close)

	return &testEnv{
		gw:       gw,
		identity: identity,
		messages: messages,
		events:   events,
		hub:      hub,
		chat:     chatH,
		jobs:     jobs,
		srv:      srv,
	}
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (e *testEnv) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: e.srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	resp, err := b.client.Post(b.base+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp
}

// login posts the login form and requires a redirect to the chat.
func (b *browser) login(username, password string) {
	b.t.Helper()
	resp := b.post(RouteLogin, url.Values{"username": {username}, "password": {password}})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(b.t, RouteRoot, resp.Header.Get("Location"))
}
