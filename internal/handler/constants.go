// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route patterns for chi router registration.
const (
	RouteRoot     = "/"
	RouteLogin    = "/login"
	RouteSignup   = "/signup"
	RouteLogout   = "/logout"
	RouteMessages = "/messages"
	RouteStream   = "/chat/stream"

	// Admin routes, mounted under RouteAdmin.
	RouteAdmin       = "/admin"
	RouteAdminBan    = "/users/{username}/ban"
	RouteAdminUnban  = "/users/{username}/unban"
	RouteAdminClear  = "/messages/clear"
	RouteAdminJobs   = "/jobs"
	RouteAdminJobRun = "/jobs/{name}/run"
	RouteAdminEvents = "/events"
)

// Redirect targets.
const (
	redirectLogin     = RouteLogin
	redirectChat      = RouteRoot
	redirectAdminJobs = RouteAdmin + RouteAdminJobs
)

// Page templates.
const (
	templateChat     = "pages/chat"
	templateLogin    = "pages/login"
	templateJobs     = "pages/jobs"
	templateEvents   = "pages/events"
	blockChatBody    = "chat_body"
	flashTypeError   = "error"
	flashTypeSuccess = "success"
	flashTypeInfo    = "info"
)

const (
	eventsPageLimit = 200
)
