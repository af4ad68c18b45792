package render

import (
	"context"

	"github.com/specialistvlad/manimgraph/internal/ctxlog"
)

// Stage is the phase of a render a progress event reports.
type Stage string

const (
	StageStarted   Stage = "started"
	StageOutput    Stage = "output"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// Event is one progress report.
type Event struct {
	JobID   string `json:"job_id"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Sink receives progress events. Send may be called from several goroutines
// at once and must not block for long.
type Sink interface {
	Send(ctx context.Context, ev Event)
}

// LogSink writes progress to the context logger.
type LogSink struct{}

func (LogSink) Send(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx).With("job", ev.JobID)
	switch ev.Stage {
	case StageOutput:
		logger.Debug("Renderer output.", "line", ev.Message)
	case StageFailed:
		logger.Warn("Render failed.", "message", ev.Message)
	default:
		logger.Info("Render progress.", "stage", string(ev.Stage), "message", ev.Message)
	}
}

// Tee fans every event out to each sink in turn.
type Tee []Sink

func (t Tee) Send(ctx context.Context, ev Event) {
	for _, s := range t {
		if s != nil {
			s.Send(ctx, ev)
		}
	}
}
