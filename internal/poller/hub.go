// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package poller

import "sync"

// Hub tracks the running loops of each user so a user's own write can
// refresh that user's views at once. It never notifies other users.
type Hub struct {
	mu    sync.Mutex
	loops map[string]map[*Loop]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{loops: make(map[string]map[*Loop]struct{})}
}

// Register adds l under its viewer's username. The returned func removes it.
func (h *Hub) Register(l *Loop) func() {
	username := l.viewer.Username

	h.mu.Lock()
	set, ok := h.loops[username]
	if !ok {
		set = make(map[*Loop]struct{})
		h.loops[username] = set
	}
	set[l] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(set, l)
		if cur, ok := h.loops[username]; ok && len(cur) == 0 {
			delete(h.loops, username)
		}
	}
}

// Refresh forces an immediate re-render of every loop owned by username.
func (h *Hub) Refresh(username string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for l := range h.loops[username] {
		l.Refresh()
	}
}

// Count returns the number of registered loops.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.loops {
		n += len(set)
	}
	return n
}
