package app

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/manimgraph/internal/codegen"
)

// watch compiles once, then recompiles whenever the graph file or a
// manifest under the catalog directory changes. Compile failures are
// logged and the loop keeps going; it returns when ctx is cancelled.
func (a *App) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	graphPath, err := filepath.Abs(a.config.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to resolve graph path: %w", err)
	}
	// Editors often replace files instead of writing them, so the directory
	// is watched rather than the file.
	if err := watcher.Add(filepath.Dir(graphPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(graphPath), err)
	}

	var catalogDir string
	if a.config.CatalogPath != "" {
		if catalogDir, err = filepath.Abs(a.config.CatalogPath); err != nil {
			return fmt.Errorf("failed to resolve catalog path: %w", err)
		}
		if err := addRecursive(watcher, catalogDir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", catalogDir, err)
		}
	}

	a.recompile(ctx, false)
	a.logger.Info("Watching for changes.", "graph", graphPath, "catalog", catalogDir)

	var (
		timer          *time.Timer
		fire           <-chan time.Time
		catalogChanged bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Watch stopped.")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			path, _ := filepath.Abs(ev.Name)
			switch {
			case path == graphPath:
			case catalogDir != "" && isManifest(path, catalogDir):
				catalogChanged = true
			default:
				continue
			}
			a.logger.Debug("Change detected.", "path", path, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(a.config.Debounce)
			} else {
				timer.Reset(a.config.Debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("File watcher error.", "error", err)

		case <-fire:
			fire = nil
			a.recompile(ctx, catalogChanged)
			catalogChanged = false
		}
	}
}

// recompile runs one watch iteration. A catalog that fails to reload keeps
// the previous one in use.
func (a *App) recompile(ctx context.Context, reloadCatalog bool) {
	if reloadCatalog {
		cat, err := loadCatalog(ctx, a.config.CatalogPath, a.modules)
		if err != nil {
			a.logger.Error("Catalog reload failed, keeping the previous catalog.", "error", err)
		} else {
			a.catalog = cat
			a.gen = codegen.New(cat)
			a.logger.Info("Catalog reloaded.", "kinds", len(cat.Kinds()))
		}
	}

	if err := a.once(ctx); err != nil {
		a.logger.Error("Compile failed.", "error", err)
		return
	}
	a.logger.Info("Compiled.", "graph", a.config.GraphPath)
}

func isManifest(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), ".hcl")
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}
