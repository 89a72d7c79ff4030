// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package web holds the embedded page templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templates embed.FS

//go:embed all:static/dist
var static embed.FS

// Templates returns the page templates rooted at templates.
func Templates() fs.FS {
	return mustSub(templates, "templates")
}

// Static returns the static assets rooted at static/dist.
func Static() fs.FS {
	return mustSub(static, "static/dist")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
