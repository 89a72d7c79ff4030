// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render turns chat state into HTML pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/session"
)

const baseLayout = "layouts/base.html"

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	isDev          bool
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	IsDev          bool
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		isDev:          cfg.IsDev,
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}

	return r, nil
}

// parseTemplates parses every page under pages/ together with the base
// layout and all partials. Pages are named "pages/<file>" without extension.
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := templateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}
	pages, err := templateFiles(templatesFS, "pages")
	if err != nil {
		return fmt.Errorf("getting pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page templates found")
	}

	for _, tmplPath := range pages {
		name := "pages/" + strings.TrimSuffix(path.Base(tmplPath), ".html")

		files := append([]string{baseLayout}, partials...)
		files = append(files, tmplPath)

		tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}

	return nil
}

// templateFiles returns all .html files in a directory.
func templateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return NotAvailable
			}
			return model.FormatTimestamp(t)
		},
		"roleLabel": RoleLabel,
		"truncate": func(s string, length int) string {
			runes := []rune(s)
			if len(runes) <= length {
				return s
			}
			return string(runes[:length]) + "..."
		},
	}
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title   string
	Session model.Session
	Data    any

	Flash     string
	FlashType string

	// RefreshSeconds, when positive, makes the page reload itself for
	// clients without JavaScript.
	RefreshSeconds int
	CurrentYear    int
}

// Render renders a page with the given data.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()
	if r.sessionManager != nil && data.Flash == "" {
		if flash := session.PopFlash(req.Context(), r.sessionManager); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessionManager.PopString(req.Context(), "flash_type")
			if data.FlashType == "" {
				data.FlashType = "info"
			}
		}
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// Fragment executes the named block of page into w. It is used to push
// partial updates over a stream.
func (r *Renderer) Fragment(w io.Writer, page, block string, data any) error {
	tmpl, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("template %s not found", page)
	}
	if err := tmpl.ExecuteTemplate(w, block, data); err != nil {
		return fmt.Errorf("executing %s in %s: %w", block, page, err)
	}
	return nil
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		session.Flash(req.Context(), r.sessionManager, message)
		r.sessionManager.Put(req.Context(), "flash_type", flashType)
	}
}
