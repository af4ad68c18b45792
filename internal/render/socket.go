package render

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ProgressEvent is the socket.io event name progress is emitted under.
const ProgressEvent = "render:progress"

// SocketOptions configures the connection to a progress server.
type SocketOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	// Timeout bounds the initial connection. Zero means 10s.
	Timeout time.Duration
}

// SocketSink streams progress events to a socket.io server.
type SocketSink struct {
	io *socket.Socket
}

// DialSocket connects to the progress server and returns a sink that emits
// on the connection. The caller must Close it.
func DialSocket(ctx context.Context, opts SocketOptions) (*SocketSink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("progress URL must be absolute: %s", opts.URL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to progress server.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	logger.Debug("Connecting to progress server.")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketSink{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

func (s *SocketSink) Send(ctx context.Context, ev Event) {
	payload := map[string]any{
		"job_id":  ev.JobID,
		"stage":   string(ev.Stage),
		"message": ev.Message,
	}
	ctxlog.FromContext(ctx).Debug("Emitting progress event.", "event", ProgressEvent, "job", ev.JobID)
	s.io.Emit(ProgressEvent, payload)
}

// Close disconnects from the progress server.
func (s *SocketSink) Close() error {
	s.io.Disconnect()
	return nil
}
