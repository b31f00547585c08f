// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package templates

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wolftrace/wolftrace/pkg/validation"
	"github.com/wolftrace/wolftrace/services/wolftrace/graph"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// reloadDebounce coalesces bursts of file events into one reload.
const reloadDebounce = 200 * time.Millisecond

// Registry holds built-in and user templates.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Watch reloads under the write lock.
type Registry struct {
	mu      sync.RWMutex
	dir     string
	builtin map[string]*Template
	user    map[string]*Template
	logger  *slog.Logger
}

// NewRegistry loads the built-in templates and, when dir is non-empty, the
// user templates found there. A missing dir is not an error.
//
// Outputs:
//
//	*Registry - The loaded registry.
//	error - Non-nil only if a built-in template is malformed.
func NewRegistry(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		dir:     dir,
		builtin: make(map[string]*Template),
		user:    make(map[string]*Template),
		logger:  logger.With("component", "templates"),
	}

	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read built-in templates: %w", err)
	}
	for _, entry := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read built-in template %s: %w", entry.Name(), err)
		}
		t, err := Parse(data, stem(entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("built-in template %s: %w", entry.Name(), err)
		}
		t.Builtin = true
		r.builtin[t.ID] = t
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the user template directory, or "" if none is configured.
func (r *Registry) Dir() string { return r.dir }

// List returns summaries of all templates sorted by id.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.builtin)+len(r.user))
	for _, t := range r.builtin {
		out = append(out, t.Summary())
	}
	for id, t := range r.user {
		if _, shadowed := r.builtin[id]; shadowed {
			continue
		}
		out = append(out, t.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the template with the given id. Built-ins take precedence.
func (r *Registry) Get(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.builtin[id]; ok {
		return t, nil
	}
	if t, ok := r.user[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
}

// Apply renders the template with the given id.
func (r *Registry) Apply(id string, vars map[string]string) (graph.Snapshot, error) {
	t, err := r.Get(id)
	if err != nil {
		return graph.Snapshot{}, err
	}
	return t.Render(vars)
}

// Save validates and stores a user template, writing it to the template
// directory when one is configured. An empty id is derived from the name.
// Built-in ids cannot be overwritten.
func (r *Registry) Save(t Template) (*Template, error) {
	if t.ID == "" {
		id, err := validation.Slugify(t.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		t.ID = id
	}
	t.Builtin = false
	if err := t.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builtin[t.ID]; ok {
		return nil, fmt.Errorf("%w: %q is a built-in template", ErrInvalidTemplate, t.ID)
	}
	if r.dir != "" {
		if err := r.writeFile(&t); err != nil {
			return nil, err
		}
	}
	saved := t
	r.user[t.ID] = &saved
	r.logger.Info("template saved", slog.String("id", t.ID), slog.Int("nodes", len(t.Nodes)))
	return &saved, nil
}

// Delete removes a user template and its file.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builtin[id]; ok {
		return fmt.Errorf("%w: %q is a built-in template", ErrInvalidTemplate, id)
	}
	if _, ok := r.user[id]; !ok {
		return fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	if r.dir != "" {
		err := os.Remove(filepath.Join(r.dir, id+".yaml"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove template file: %w", err)
		}
	}
	delete(r.user, id)
	return nil
}

// Reload re-reads the user template directory. Files that fail to parse are
// logged and skipped.
func (r *Registry) Reload() error {
	if r.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		r.mu.Lock()
		r.user = make(map[string]*Template)
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read template directory: %w", err)
	}

	loaded := make(map[string]*Template)
	for _, entry := range entries {
		if entry.IsDir() || !isTemplateFile(entry.Name()) {
			continue
		}
		file := filepath.Join(r.dir, entry.Name())
		data, err := os.ReadFile(file)
		if err != nil {
			r.logger.Warn("skipping unreadable template", slog.String("file", file), slog.String("error", err.Error()))
			continue
		}
		t, err := Parse(data, stem(entry.Name()))
		if err != nil {
			r.logger.Warn("skipping invalid template", slog.String("file", file), slog.String("error", err.Error()))
			continue
		}
		loaded[t.ID] = t
	}

	r.mu.Lock()
	r.user = loaded
	r.mu.Unlock()
	r.logger.Debug("templates reloaded", slog.Int("user_templates", len(loaded)))
	return nil
}

// Watch reloads the user templates whenever a YAML file in the directory
// changes. It returns once the watcher is running; the watch ends when ctx
// is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	if r.dir == "" {
		return fmt.Errorf("no template directory configured")
	}
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isTemplateFile(event.Name) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if err := r.Reload(); err != nil {
					r.logger.Error("template reload failed", slog.String("error", err.Error()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("template watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}

func (r *Registry) writeFile(t *Template) error {
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	final := filepath.Join(r.dir, t.ID+".yaml")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

func isTemplateFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
