package display

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
)

// PipeSink writes frames as packed RGB24 to a stream, for example to the
// standard input of "ffplay -f rawvideo -pixel_format rgb24 -video_size WxH -".
type PipeSink struct {
	w      io.Writer
	width  int
	height int
	buf    []byte

	mu sync.Mutex
}

// NewPipeSink creates a sink for width x height frames
func NewPipeSink(w io.Writer, width, height int) *PipeSink {
	return &PipeSink{
		w:      w,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*3),
	}
}

// Start is a no-op
func (s *PipeSink) Start(context.Context) error {
	return nil
}

// Show writes one frame. Frames of a different size are rejected with ErrMalformedFrame.
func (s *PipeSink) Show(img *image.RGBA) error {
	if err := checkFrame(img); err != nil {
		return err
	}

	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("%w: got %dx%d, expected %dx%d", ErrMalformedFrame, b.Dx(), b.Dy(), s.width, s.height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	PackRGB24(s.buf, img)
	if _, err := s.w.Write(s.buf); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Stop closes the stream when it is closable
func (s *PipeSink) Stop() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// PackRGB24 packs img into dst, which must hold width*height*3 bytes
func PackRGB24(dst []byte, img *image.RGBA) {
	b := img.Bounds()
	w := b.Dx()

	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		out := dst[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			out[x*3+0] = row[x*4+0]
			out[x*3+1] = row[x*4+1]
			out[x*3+2] = row[x*4+2]
		}
	}
}
