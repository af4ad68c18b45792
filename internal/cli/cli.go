package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/manimgraph/internal/app"
	"github.com/specialistvlad/manimgraph/internal/render"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("manimgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
manimgraph - Compile node graphs into Manim scenes.

Usage:
  manimgraph [options] GRAPH_PATH

Arguments:
  GRAPH_PATH
    Path to a .json, .yaml, .yml or .hcl graph document.

Options:
`)
		flagSet.PrintDefaults()
	}

	outFlag := flagSet.String("out", "", "Write the generated program to this file instead of stdout.")
	oFlag := flagSet.String("o", "", "Write the generated program to this file (shorthand).")
	catalogFlag := flagSet.String("catalog", "", "Directory of extra kind manifests (.hcl) loaded over the built-ins.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	renderFlag := flagSet.Bool("render", false, "Render the program to a video with manim.")
	qualityFlag := flagSet.String("quality", string(render.Quality1080p), "Render quality. Options: 480p, 720p, 1080p, 1440p, 2160p.")
	fpsFlag := flagSet.Int("fps", 30, "Render frame rate (15-60).")
	progressFlag := flagSet.String("progress-url", "", "socket.io server to stream render progress to.")
	workDirFlag := flagSet.String("work-dir", filepath.Join(os.TempDir(), "manimgraph"), "Scratch and media directory for renders.")
	manimFlag := flagSet.String("manim", render.DefaultBinary, "The manim executable.")
	watchFlag := flagSet.Bool("watch", false, "Recompile whenever the graph or catalog changes.")
	debounceFlag := flagSet.Duration("debounce", app.DefaultDebounce, "How long to wait for changes to settle in watch mode.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected one graph path, got %d", flagSet.NArg())}
	}
	slog.Debug("Graph path determined.", "path", path)

	if path == "" {
		slog.Debug("No graph path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	out := *outFlag
	if out == "" {
		out = *oFlag
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GraphPath:   path,
		OutPath:     out,
		CatalogPath: *catalogFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		Render:      *renderFlag,
		Quality:     strings.ToLower(*qualityFlag),
		FPS:         *fpsFlag,
		ProgressURL: *progressFlag,
		WorkDir:     *workDirFlag,
		ManimBinary: *manimFlag,
		Watch:       *watchFlag,
		Debounce:    *debounceFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
