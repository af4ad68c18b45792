package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/manimgraph/internal/codegen"
	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"github.com/specialistvlad/manimgraph/internal/graph"
	"github.com/specialistvlad/manimgraph/internal/render"
)

// Run executes the main application logic based on the app's configuration.
// In watch mode it keeps recompiling until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	if a.config.Watch {
		return a.watch(ctx)
	}
	return a.once(ctx)
}

// Compile loads the configured graph and generates its program.
func (a *App) Compile(ctx context.Context) (*codegen.Program, error) {
	g, err := graph.Load(ctx, a.config.GraphPath)
	if err != nil {
		return nil, err
	}
	prog, err := a.gen.Generate(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", a.config.GraphPath, err)
	}
	return prog, nil
}

// once compiles, writes and optionally renders the graph a single time.
func (a *App) once(ctx context.Context) error {
	prog, err := a.Compile(ctx)
	if err != nil {
		return err
	}
	if err := a.writeProgram(prog); err != nil {
		return err
	}
	if !a.config.Render {
		return nil
	}

	art, err := a.render(ctx, prog)
	if err != nil {
		return err
	}
	a.logger.Info("Video rendered.", "path", art.Path, "job", art.JobID)
	return nil
}

func (a *App) writeProgram(prog *codegen.Program) error {
	out := a.config.OutPath
	if out == "" || out == "-" {
		if _, err := fmt.Fprint(a.outW, prog.Text); err != nil {
			return fmt.Errorf("failed to write program: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(prog.Text), 0o644); err != nil {
		return fmt.Errorf("failed to write program: %w", err)
	}
	a.logger.Info("Program written.", "path", out, "nodes", len(prog.Order))
	return nil
}

// render runs the renderer, streaming progress to the log and, when
// configured, to the progress server.
func (a *App) render(ctx context.Context, prog *codegen.Program) (*render.Artifact, error) {
	sink := render.Tee{render.LogSink{}}
	if a.config.ProgressURL != "" {
		socket, err := render.DialSocket(ctx, render.SocketOptions{URL: a.config.ProgressURL})
		if err != nil {
			a.logger.Warn("Progress server unavailable, logging progress only.", "url", a.config.ProgressURL, "error", err)
		} else {
			defer socket.Close()
			sink = append(sink, socket)
		}
	}

	opts := render.Options{Quality: render.Quality(a.config.Quality), FPS: a.config.FPS}
	art, err := a.renderer.Render(ctx, prog, opts, sink)
	if err != nil {
		var rerr *render.RenderError
		if errors.As(err, &rerr) && rerr.NodeID != "" {
			a.logger.Error("Render failed at node.", "node", rerr.NodeID)
		}
		return nil, err
	}
	return art, nil
}
