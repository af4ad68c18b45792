package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/specialistvlad/manimgraph/internal/codegen"
	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// DefaultBinary is the renderer executable looked up on PATH.
const DefaultBinary = "manim"

// ErrRender is the sentinel every *RenderError matches.
var ErrRender = errors.New("render failed")

// RenderError reports a failed render. Program is the source that was
// rendered; NodeID names the node whose variable the tool's error output
// mentions, when there is one.
type RenderError struct {
	Message string
	Program string
	NodeID  string
	Err     error
}

func (e *RenderError) Error() string { return e.Message }
func (e *RenderError) Node() string  { return e.NodeID }

func (e *RenderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRender}
	}
	return []error{ErrRender, e.Err}
}

// Artifact is the outcome of a successful render.
type Artifact struct {
	JobID string
	// Path is the rendered video.
	Path string
}

// Renderer runs the manim tool in a work directory.
type Renderer struct {
	binary  string
	workDir string
}

// NewRenderer returns a renderer invoking binary, or DefaultBinary when it
// is empty, with workDir as the scratch and media directory.
func NewRenderer(binary, workDir string) *Renderer {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Renderer{binary: binary, workDir: workDir}
}

// Render writes prog to a scratch script, renders its scene and returns the
// produced video. The scratch script is removed afterwards; the media tree
// is left for the caller. Cancelling ctx kills the tool.
func (r *Renderer) Render(ctx context.Context, prog *codegen.Program, opts Options, sink Sink) (*Artifact, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = LogSink{}
	}

	jobID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("job", jobID)
	fail := func(msg string, err error, nodeID string) error {
		sink.Send(ctx, Event{JobID: jobID, Stage: StageFailed, Message: msg})
		return &RenderError{Message: msg, Program: prog.Text, NodeID: nodeID, Err: err}
	}

	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return nil, fail(fmt.Sprintf("Rendering failed: %v", err), err, "")
	}
	stem := "scene_" + strings.ReplaceAll(jobID, "-", "")
	script := filepath.Join(r.workDir, stem+".py")
	if err := os.WriteFile(script, []byte(prog.Text), 0o600); err != nil {
		return nil, fail(fmt.Sprintf("Rendering failed: %v", err), err, "")
	}
	defer func() {
		if err := os.Remove(script); err != nil {
			logger.Debug("Failed to remove scratch script.", "path", script, "error", err)
		}
	}()

	sink.Send(ctx, Event{JobID: jobID, Stage: StageStarted, Message: "Starting render..."})
	args := opts.args(script, codegen.SceneClass)
	logger.Debug("Starting renderer.", "binary", r.binary, "args", args)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = r.workDir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fail(fmt.Sprintf("Rendering failed: %v", err), err, "")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fail(fmt.Sprintf("Rendering failed: %v", err), err, "")
	}
	if err := cmd.Start(); err != nil {
		return nil, fail(fmt.Sprintf("Rendering failed: %v", err), err, "")
	}

	var errOut strings.Builder
	progress := func(line string) {
		sink.Send(ctx, Event{JobID: jobID, Stage: StageOutput, Message: line})
	}
	g := new(errgroup.Group)
	g.Go(func() error { return forward(stdout, progress) })
	g.Go(func() error {
		return forward(stderr, func(line string) {
			errOut.WriteString(line)
			errOut.WriteByte('\n')
			progress(line)
		})
	})
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, fail("Rendering cancelled", ctx.Err(), "")
	}
	if waitErr != nil {
		text := errOut.String()
		return nil, fail("Manim rendering failed:\n"+text, waitErr, prog.NodeForError(text))
	}
	if drainErr != nil {
		return nil, fail(fmt.Sprintf("Rendering failed: %v", drainErr), drainErr, "")
	}

	video, err := findVideo(filepath.Join(r.workDir, "media", "videos", stem))
	if err != nil {
		return nil, fail("Output video file not found", err, "")
	}

	logger.Info("Render finished.", "path", video)
	sink.Send(ctx, Event{JobID: jobID, Stage: StageCompleted, Message: video})
	return &Artifact{JobID: jobID, Path: video}, nil
}

// forward passes every non-blank line of rd to fn.
func forward(rd io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}
	return scanner.Err()
}

// findVideo returns the first mp4 under dir in lexical walk order.
func findVideo(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".mp4") {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no .mp4 under %s", dir)
	}
	return found, nil
}
