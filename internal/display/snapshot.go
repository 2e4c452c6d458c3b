package display

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// WithSnapshotLogger sets the logger for the snapshot sink
func WithSnapshotLogger(logger *slog.Logger) func(*SnapshotSink) {
	return func(s *SnapshotSink) {
		s.logger = logger.With(slog.String("sink", "snapshot"))
	}
}

// SnapshotSink keeps the latest composited frame in an image file, updated
// every Nth frame. The file is replaced atomically so readers never see a
// partial image.
type SnapshotSink struct {
	path   string
	format ImageFormat
	every  uint64
	logger *slog.Logger

	mu      sync.Mutex
	count   uint64
	written uint64
}

// NewSnapshotSink creates a sink writing to path
func NewSnapshotSink(path string, format ImageFormat, every int, options ...func(*SnapshotSink)) (*SnapshotSink, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if _, ok := validImageFormats[format]; !ok {
		return nil, fmt.Errorf("invalid image format: %s", format)
	}
	if every <= 0 {
		every = 1
	}

	s := SnapshotSink{
		path:   path,
		format: format,
		every:  uint64(every),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Start checks that the target directory exists
func (s *SnapshotSink) Start(context.Context) error {
	dir := filepath.Dir(s.path)

	stat, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("snapshot directory '%s': %w", dir, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("invalid snapshot directory '%s'", dir)
	}

	return nil
}

// Show saves the frame when it is due
func (s *SnapshotSink) Show(img *image.RGBA) error {
	if err := checkFrame(img); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if (s.count-1)%s.every != 0 {
		return nil
	}

	if err := s.write(img); err != nil {
		return err
	}

	s.written++
	return nil
}

// Stop is a no-op, the last snapshot stays on disk
func (s *SnapshotSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("snapshots stopped", slog.Uint64("written", s.written))
	return nil
}

// Written returns the number of snapshots saved
func (s *SnapshotSink) Written() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *SnapshotSink) write(img *image.RGBA) error {
	f, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	tmp := f.Name()

	if err = encode(f, img, s.format); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	return nil
}
