package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Source produces decoded frames from the external capture
type Source interface {
	// Open acquires the capture. A failure here is fatal to the video loop only.
	Open(ctx context.Context) error

	// Next blocks until the next frame is available. It returns io.EOF when
	// the stream has ended or stalled for good.
	Next(ctx context.Context) (Frame, error)

	// Interrupt unblocks a pending Next.
	Interrupt()

	// Close releases the capture. It is safe to call more than once and on a
	// source that was never opened.
	Close() error
}

// FFmpegConfig describes the capture subprocess
type FFmpegConfig struct {
	URL       string         // Input URL, e.g. udp://0.0.0.0:5000
	Width     int            // Output frame width, ffmpeg scales to it
	Height    int            // Output frame height
	Binary    string         // ffmpeg binary name or path
	InputArgs map[string]any // Extra input options, e.g. {"fflags": "nobuffer"}
}

// WithSourceLogger sets the logger for the ffmpeg source
func WithSourceLogger(logger *slog.Logger) func(*FFmpegSource) {
	return func(s *FFmpegSource) {
		s.logger = logger.With(slog.String("capture", "ffmpeg"))
	}
}

// FFmpegSource decodes the video stream with an ffmpeg subprocess that writes
// raw RGB24 frames to its stdout.
type FFmpegSource struct {
	config FFmpegConfig
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	reader *RawReader
	stderr sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewFFmpegSource validates config and creates a source
func NewFFmpegSource(config FFmpegConfig, options ...func(*FFmpegSource)) (*FFmpegSource, error) {
	if config.URL == "" {
		return nil, NewConfigError("video url is required")
	}
	if config.Width <= 0 || config.Height <= 0 {
		return nil, NewConfigError(fmt.Sprintf("invalid frame size %dx%d", config.Width, config.Height))
	}
	if config.Binary == "" {
		config.Binary = "ffmpeg"
	}

	s := FFmpegSource{
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Args returns the ffmpeg command line arguments
func (s *FFmpegSource) Args() []string {
	return s.stream().GetArgs()
}

func (s *FFmpegSource) stream() *ffmpeg.Stream {
	input := ffmpeg.KwArgs{"loglevel": "error"}
	for k, v := range s.config.InputArgs {
		input[k] = v
	}

	return ffmpeg.Input(s.config.URL, input).
		Output("pipe:", ffmpeg.KwArgs{
			"format":  "rawvideo",
			"pix_fmt": "rgb24",
			"s":       fmt.Sprintf("%dx%d", s.config.Width, s.config.Height),
		})
}

// Open starts the ffmpeg subprocess
func (s *FFmpegSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil
	}

	binPath, err := FindRuntime(s.config.Binary)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)

	stream := s.stream()
	stream.Context = ctx
	cmd := stream.Compile()
	cmd.Path = binPath
	cmd.Err = nil // Compile looks up "ffmpeg" on PATH, the resolved binary replaces it

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("%w: creating stdout pipe: %w", ErrCaptureUnavailable, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("%w: creating stderr pipe: %w", ErrCaptureUnavailable, err)
	}

	reader, err := NewRawReader(bufio.NewReaderSize(stdout, s.config.Width*s.config.Height*bytesPerPixel), s.config.Width, s.config.Height)
	if err != nil {
		cancel()
		return err
	}

	if err = cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: starting %s: %w", ErrCaptureUnavailable, s.config.Binary, err)
	}

	s.stderr.Add(1)
	go s.handleStderr(stderr)

	s.cmd = cmd
	s.cancel = cancel
	s.reader = reader

	s.logger.Info("capture started", slog.String("url", s.config.URL), slog.Int("pid", cmd.Process.Pid))
	return nil
}

// Next reads the next frame from the subprocess
func (s *FFmpegSource) Next(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	reader := s.reader
	s.mu.Unlock()

	if reader == nil {
		return Frame{}, fmt.Errorf("%w: capture is not open", ErrCaptureUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	frame, err := reader.Next()
	if err != nil && (errors.Is(err, fs.ErrClosed) || errors.Is(err, io.EOF)) {
		return Frame{}, io.EOF
	}
	return frame, err
}

// Interrupt terminates the subprocess, which closes its stdout and unblocks Next
func (s *FFmpegSource) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
}

// Close terminates the subprocess and reaps it
func (s *FFmpegSource) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.cmd == nil {
			return
		}

		s.cancel()
		s.stderr.Wait()

		if err := s.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("waiting for %s: %w", s.config.Binary, err)
			}
		}

		s.logger.Info("capture stopped")
	})

	return s.closeErr
}

// handleStderr logs ffmpeg diagnostics
func (s *FFmpegSource) handleStderr(stderr io.Reader) {
	defer s.stderr.Done()

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		s.logger.Debug(fmt.Sprintf("%s >> %s", s.config.Binary, line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, fs.ErrClosed) {
		s.logger.Warn(fmt.Sprintf("reading %s stderr: %s", s.config.Binary, err.Error()))
	}
}
