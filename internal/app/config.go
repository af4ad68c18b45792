package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 200 * time.Millisecond

var validate = validator.New()

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath   string `validate:"required"`
	OutPath     string // "" or "-" writes the program to the app's output
	CatalogPath string // extra kind manifests, loaded over the built-ins

	LogFormat string `validate:"oneof=text json"`
	LogLevel  string `validate:"oneof=debug info warn error"`

	Render      bool
	Quality     string `validate:"oneof=480p 720p 1080p 1440p 2160p"`
	FPS         int    `validate:"min=15,max=60"`
	ProgressURL string `validate:"omitempty,url"`
	WorkDir     string `validate:"required_if=Render true"`
	ManimBinary string

	Watch    bool
	Debounce time.Duration
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return &cfg, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", fe.Field(), fmt.Sprint(fe.Value()))
	case "required_if":
		return fmt.Sprintf("%s is required when rendering", fe.Field())
	}
	return fmt.Sprintf("%s failed the '%s' check", fe.Field(), fe.Tag())
}
