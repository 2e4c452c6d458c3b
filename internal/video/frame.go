// Package video adapts the external video capture into a sequence of frames
// and drives the per-frame compositing loop.
package video

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"
)

// bytesPerPixel of packed RGB24
const bytesPerPixel = 3

// Frame is one decoded video frame
type Frame struct {
	Seq       uint64      // Sequence number, starting at 1
	Timestamp time.Time   // Time the frame was read
	Image     *image.RGBA // Opaque raster
}

// RawReader reads fixed-size packed RGB24 frames from a byte stream
type RawReader struct {
	r      io.Reader
	width  int
	height int
	buf    []byte
	seq    uint64
}

// NewRawReader creates a reader of width x height RGB24 frames
func NewRawReader(r io.Reader, width, height int) (*RawReader, error) {
	if width <= 0 || height <= 0 {
		return nil, NewConfigError(fmt.Sprintf("invalid frame size %dx%d", width, height))
	}

	return &RawReader{
		r:      r,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*bytesPerPixel),
	}, nil
}

// Next reads the next frame. It returns io.EOF when the stream ends, including
// when it ends in the middle of a frame.
func (rr *RawReader) Next() (Frame, error) {
	if _, err := io.ReadFull(rr.r, rr.buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}

	rr.seq++
	return Frame{
		Seq:       rr.seq,
		Timestamp: time.Now(),
		Image:     DecodeRGB24(rr.buf, rr.width, rr.height),
	}, nil
}

// DecodeRGB24 converts a packed RGB24 buffer into a new opaque RGBA image
func DecodeRGB24(p []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		src := p[y*width*bytesPerPixel : (y+1)*width*bytesPerPixel]
		dst := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}

	return img
}
