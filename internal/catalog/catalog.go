// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"github.com/specialistvlad/manimgraph/internal/diag"
	"github.com/specialistvlad/manimgraph/internal/fsutil"
)

//go:embed manifests/*.hcl
var builtinManifests embed.FS

// Hook computes the text of a {{derived.name}} placeholder.
type Hook func(HookContext) (string, error)

// HookContext is what a derived hook may ask about the node being lowered.
// Values returned by Connected and ConnectedFamily are already resolved
// variable references.
type HookContext interface {
	Kind() *Kind
	NodeID() string
	Var() string
	Mobject() string
	Param(name string) string
	Params() Params
	Connected(handle string) (string, bool)
	ConnectedFamily(prefix string) []string
	OutputUsed(handle string) bool
}

// Module is the interface Go extensions implement to register hooks.
type Module interface {
	Register(c *Catalog)
}

// Catalog holds every known kind and derived hook for one application instance.
type Catalog struct {
	kinds map[string]*Kind
	order []string
	hooks map[string]Hook
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		kinds: make(map[string]*Kind),
		hooks: make(map[string]Hook),
	}
}

// Default builds the catalog from the embedded manifests, the built-in hooks
// and any extra modules, then runs the parity check.
func Default(ctx context.Context, modules ...Module) (*Catalog, error) {
	c := New()
	BuiltinHooks{}.Register(c)
	for _, m := range modules {
		m.Register(c)
	}
	if err := c.loadFS(ctx, builtinManifests, "manifests"); err != nil {
		return nil, err
	}
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// RegisterHook registers a derived hook by name.
func (c *Catalog) RegisterHook(name string, hook Hook) {
	if _, exists := c.hooks[name]; exists {
		panic(fmt.Sprintf("derived hook with name '%s' already registered", name))
	}
	slog.Debug("Registering derived hook.", "name", name)
	c.hooks[name] = hook
}

// AddKind adds a kind, replacing any earlier definition with the same name.
func (c *Catalog) AddKind(ctx context.Context, k *Kind) {
	if prev, exists := c.kinds[k.Name]; exists {
		ctxlog.FromContext(ctx).Warn("Kind definition overrides an earlier one.",
			"kind", k.Name, "previous", sourceOf(prev), "current", sourceOf(k))
	} else {
		c.order = append(c.order, k.Name)
	}
	c.kinds[k.Name] = k
}

func sourceOf(k *Kind) string {
	if k.FSInformation == nil {
		return ""
	}
	return k.FSInformation.FilePath
}

// Kind returns the named kind.
func (c *Catalog) Kind(name string) (*Kind, bool) {
	k, ok := c.kinds[name]
	return k, ok
}

// Lookup returns the named kind or a *diag.NotFoundError.
func (c *Catalog) Lookup(name string) (*Kind, error) {
	if k, ok := c.kinds[name]; ok {
		return k, nil
	}
	return nil, &diag.NotFoundError{What: "kind", Name: name}
}

// Hook returns the named derived hook.
func (c *Catalog) Hook(name string) (Hook, bool) {
	h, ok := c.hooks[name]
	return h, ok
}

// Kinds returns every kind in the order it was first added.
func (c *Catalog) Kinds() []*Kind {
	out := make([]*Kind, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.kinds[name])
	}
	return out
}

// LoadSource parses manifest source and adds its kinds.
func (c *Catalog) LoadSource(ctx context.Context, src []byte, filename string) error {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return c.addFile(ctx, file, filename)
}

// LoadFile parses one manifest file from disk.
func (c *Catalog) LoadFile(ctx context.Context, filePath string) error {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", filePath, err)
	}
	return c.LoadSource(ctx, src, filePath)
}

// LoadDir loads every .hcl manifest under dir. Later definitions override
// earlier ones.
func (c *Catalog) LoadDir(ctx context.Context, dir string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Catalog loading manifests from directory...", "path", dir)

	filePaths, err := fsutil.FindFiles(dir, ".hcl")
	if err != nil {
		logger.Error("Failed to walk manifest directory", "path", dir, "error", err)
		return err
	}
	if len(filePaths) == 0 {
		logger.Warn("No .hcl manifest files found in path", "path", dir)
		return nil
	}

	for _, filePath := range filePaths {
		if err := c.LoadFile(ctx, filePath); err != nil {
			return err
		}
	}
	logger.Info("Catalog manifests loaded.", "path", dir, "files", len(filePaths), "kinds", len(c.kinds))
	return nil
}

func (c *Catalog) loadFS(ctx context.Context, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to list embedded manifests: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".hcl") {
			continue
		}
		filePath := path.Join(dir, entry.Name())
		src, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return fmt.Errorf("failed to read embedded manifest %s: %w", filePath, err)
		}
		if err := c.LoadSource(ctx, src, filePath); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Debug("Built-in manifests loaded.", "kinds", len(c.kinds))
	return nil
}

func (c *Catalog) addFile(ctx context.Context, file *hcl.File, filename string) error {
	kinds, diags := ParseManifest(ctx, file, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to process kind definitions in %s: %w", filename, diags)
	}
	for _, k := range kinds {
		c.AddKind(ctx, k)
	}
	return nil
}

// Validate performs the parity check between manifests and Go hooks: every
// {{derived.name}} placeholder must name a registered hook.
func (c *Catalog) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string
	used := make(map[string]bool)

	for _, k := range c.Kinds() {
		for _, t := range k.templates() {
			for _, name := range t.Names(SegDerived) {
				used[name] = true
				if _, ok := c.hooks[name]; !ok {
					errs = append(errs, fmt.Sprintf("kind '%s': template references derived hook '%s', which no module registers", k.Name, name))
				}
			}
		}
	}

	unused := make([]string, 0)
	for name := range c.hooks {
		if !used[name] {
			unused = append(unused, name)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		logger.Debug("Registered derived hooks not referenced by any kind.", "hooks", unused)
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Catalog validation successful.", "kinds", len(c.kinds), "hooks", len(c.hooks))
	return nil
}

func (k *Kind) templates() []*Template {
	var out []*Template
	for _, t := range []*Template{k.Template, k.InstantTemplate, k.AssemblyTemplate, k.AfterPlay} {
		if t != nil {
			out = append(out, t)
		}
	}
	for _, v := range k.Variants {
		out = append(out, v.Template)
	}
	return out
}
