package video

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"
)

// ReaderSource reads raw RGB24 frames from an already open stream, such as
// the standard input of a process fed by an external decoder.
type ReaderSource struct {
	rc     io.ReadCloser
	reader *RawReader

	closeOnce sync.Once
	closeErr  error
}

// NewReaderSource creates a source of width x height frames read from rc
func NewReaderSource(rc io.ReadCloser, width, height int) (*ReaderSource, error) {
	reader, err := NewRawReader(rc, width, height)
	if err != nil {
		return nil, err
	}

	return &ReaderSource{rc: rc, reader: reader}, nil
}

// Open is a no-op, the stream is open already
func (s *ReaderSource) Open(context.Context) error {
	return nil
}

// Next reads the next frame
func (s *ReaderSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	frame, err := s.reader.Next()
	if err != nil && errors.Is(err, fs.ErrClosed) {
		return Frame{}, io.EOF
	}
	return frame, err
}

// Interrupt closes the stream to unblock a pending read
func (s *ReaderSource) Interrupt() {
	_ = s.Close()
}

// Close closes the stream
func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.rc.Close()
	})

	return s.closeErr
}
