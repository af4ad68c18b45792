package render

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Quality is an output resolution preset.
type Quality string

const (
	Quality480p  Quality = "480p"
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	Quality1440p Quality = "1440p"
	Quality2160p Quality = "2160p"
)

// Qualities lists the accepted presets, lowest first.
var Qualities = []Quality{Quality480p, Quality720p, Quality1080p, Quality1440p, Quality2160p}

var validate = validator.New()

// Options controls one render.
type Options struct {
	Quality Quality `validate:"oneof=480p 720p 1080p 1440p 2160p"`
	FPS     int     `validate:"min=15,max=60"`
}

// DefaultOptions is the export preset.
func DefaultOptions() Options {
	return Options{Quality: Quality1080p, FPS: 30}
}

// PreviewOptions is the fast, low quality preset.
func PreviewOptions() Options {
	return Options{Quality: Quality480p, FPS: 15}
}

// Validate checks the options against the supported presets.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid render options: %w", err)
	}
	return nil
}

// QualityFlag maps the preset to the manim quality flag. Presets above
// 1080p render at the tool's high quality.
func (o Options) QualityFlag() string {
	switch o.Quality {
	case Quality480p:
		return "-ql"
	case Quality720p:
		return "-qm"
	case Quality1080p, Quality1440p, Quality2160p:
		return "-qh"
	}
	return "-qm"
}

// args is the manim command line for one script.
func (o Options) args(script, scene string) []string {
	return []string{
		"render",
		script,
		scene,
		o.QualityFlag(),
		"--format=mp4",
		"--frame_rate=" + strconv.Itoa(o.FPS),
		"--disable_caching",
	}
}
