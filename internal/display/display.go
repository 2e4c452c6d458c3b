// Package display delivers composited frames to a viewer.
package display

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	// DefaultJPEGQuality is the encoder quality of streamed and saved frames
	DefaultJPEGQuality = 80
)

type ImageFormat string

// ErrMalformedFrame is returned when a frame does not match what the sink accepts
var ErrMalformedFrame = errors.New("malformed frame")

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

// Sink presents composited frames. Show is called from a single goroutine.
type Sink interface {
	Start(ctx context.Context) error
	Show(img *image.RGBA) error
	Stop() error
}

// ParseImageFormat validates an image format name
func ParseImageFormat(name string) (ImageFormat, error) {
	if _, ok := validImageFormats[ImageFormat(name)]; !ok {
		return "", fmt.Errorf("invalid image format: %s", name)
	}
	return ImageFormat(name), nil
}

func encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImageJPEG:
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: DefaultJPEGQuality}); err != nil {
			return fmt.Errorf("encoding JPEG: %w", err)
		}
	default:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encoding PNG: %w", err)
		}
	}

	return nil
}

func checkFrame(img *image.RGBA) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("%w: empty image", ErrMalformedFrame)
	}
	return nil
}
