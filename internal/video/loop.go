package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Compositor draws the overlay on a copy of the frame
type Compositor interface {
	Compose(frame Frame) (*image.RGBA, error)
}

// Sink accepts one composited frame at a time
type Sink interface {
	Show(img *image.RGBA) error
}

// LoopStats are the counters of the video loop
type LoopStats struct {
	Frames  uint64 // Frames delivered to the sink
	Dropped uint64 // Frames dropped by the compositor or rejected by the sink
}

// WithLoopLogger sets the logger for the video loop
func WithLoopLogger(logger *slog.Logger) func(*Loop) {
	return func(l *Loop) {
		l.logger = logger.With(slog.String("unit", l.name))
	}
}

// WithName overrides the unit name of the loop
func WithName(name string) func(*Loop) {
	return func(l *Loop) {
		l.name = name
	}
}

// Loop pulls frames from a source, composes them and hands them to the sink.
// Compositing runs synchronously on the loop goroutine.
type Loop struct {
	name       string
	source     Source
	compositor Compositor
	sink       Sink
	logger     *slog.Logger

	running  atomic.Bool
	stopping atomic.Bool

	closeOnce sync.Once
	closeErr  error

	frames  atomic.Uint64
	dropped atomic.Uint64
}

// NewLoop creates the video loop
func NewLoop(source Source, compositor Compositor, sink Sink, options ...func(*Loop)) *Loop {
	l := Loop{
		name:       "video",
		source:     source,
		compositor: compositor,
		sink:       sink,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// Name returns the unit name
func (l *Loop) Name() string {
	return l.name
}

// Open acquires the capture
func (l *Loop) Open(ctx context.Context) error {
	if err := l.source.Open(ctx); err != nil {
		return fmt.Errorf("opening %s capture: %w", l.name, err)
	}
	return nil
}

// Run processes frames until the stream ends or the loop is stopped. The end
// of the stream is a normal exit.
func (l *Loop) Run(ctx context.Context) error {
	if l.running.Swap(true) {
		return fmt.Errorf("%s loop is already running", l.name)
	}
	defer l.running.Store(false)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.Wake()
		case <-done:
		}
	}()

	for {
		if ctx.Err() != nil || l.stopping.Load() {
			return nil
		}

		frame, err := l.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || l.stopping.Load() || errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				l.logger.Warn("no frame received, video stream ended", slog.Uint64("frames", l.frames.Load()))
				return nil
			}
			return fmt.Errorf("reading %s frame: %w", l.name, err)
		}

		out, err := l.compositor.Compose(frame)
		if err != nil {
			l.dropped.Add(1)
			l.logger.Warn(fmt.Sprintf("composing frame: %s", err.Error()), slog.Uint64("seq", frame.Seq))
			continue
		}

		if err = l.sink.Show(out); err != nil {
			l.dropped.Add(1)
			l.logger.Warn(fmt.Sprintf("frame rejected by display: %s", err.Error()), slog.Uint64("seq", frame.Seq))
			continue
		}

		l.frames.Add(1)
	}
}

// Wake asks the loop to stop and interrupts a pending frame read
func (l *Loop) Wake() {
	l.stopping.Store(true)
	l.source.Interrupt()
}

// Close releases the capture exactly once
func (l *Loop) Close() error {
	l.closeOnce.Do(func() {
		l.stopping.Store(true)
		l.closeErr = l.source.Close()
	})

	return l.closeErr
}

// IsRunning reports whether the loop is active
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Stats returns the loop counters
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Frames:  l.frames.Load(),
		Dropped: l.dropped.Load(),
	}
}

// Counters reports the loop counters
func (l *Loop) Counters() map[string]uint64 {
	return map[string]uint64{
		"frames":  l.frames.Load(),
		"dropped": l.dropped.Load(),
	}
}
