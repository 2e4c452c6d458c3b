package hud

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/fogleman/gg"

	"github.com/roman-kulish/ground-station/internal/telemetry"
	"github.com/roman-kulish/ground-station/internal/video"
)

const (
	DefaultMaxTextLength = 110

	lineWidth    = 2.0
	markerRadius = 4.0
)

// Config holds the overlay settings
type Config struct {
	Theme         ColorTheme // Overlay colours
	Flip          bool       // Rotate frames by 180° for an inverted camera mount
	FontSize      float64    // Text size in points
	MaxTextLength int        // Position text is truncated to this many characters
	Status        bool       // Draw the frame counter in the top-left corner
}

// DefaultConfig returns the classic console settings
func DefaultConfig() Config {
	return Config{
		Theme:         ClassicTheme,
		Flip:          true,
		FontSize:      DefaultFontSize,
		MaxTextLength: DefaultMaxTextLength,
	}
}

// Compositor draws the overlay for the current telemetry snapshot onto a
// copy of each frame. The input frame is never modified.
type Compositor struct {
	provider  telemetry.Provider
	config    Config
	palette   Palette
	annotator *Annotator
}

// NewCompositor creates a compositor reading from provider
func NewCompositor(provider telemetry.Provider, config Config) (*Compositor, error) {
	if config.MaxTextLength <= 0 {
		config.MaxTextLength = DefaultMaxTextLength
	}

	annotator, err := NewAnnotator(config.FontSize)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}

	return &Compositor{
		provider:  provider,
		config:    config,
		palette:   GetPalette(config.Theme),
		annotator: annotator,
	}, nil
}

// Compose returns the composited copy of frame
func (c *Compositor) Compose(frame video.Frame) (*image.RGBA, error) {
	if frame.Image == nil {
		return nil, fmt.Errorf("frame %d has no image", frame.Seq)
	}

	var src image.Image = frame.Image
	if c.config.Flip {
		src = imaging.Rotate180(src)
	}

	snap := c.provider.Snapshot()

	dc := gg.NewContextForImage(src)
	w, h := dc.Width(), dc.Height()

	dc.SetColor(c.palette.Horizon)

	// out of range attitude leaves only the marker
	if line := Horizon(w, h, snap.Roll, snap.Pitch); line.Finite() {
		dc.SetLineWidth(lineWidth)
		dc.DrawLine(line.X1, line.Y1, line.X2, line.Y2)
		dc.Stroke()
	}

	dc.DrawCircle(float64(w)/2, float64(h)/2, markerRadius)
	dc.Fill()

	out, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("unexpected canvas type %T", dc.Image())
	}

	if snap.Position != "" {
		text := c.annotator.Fit(snap.Position, c.config.MaxTextLength, w-2*textMargin)
		if err := c.annotator.DrawBottomLeft(out, text, c.palette.Text); err != nil {
			return nil, fmt.Errorf("drawing position: %w", err)
		}
	}

	if c.config.Status {
		status := fmt.Sprintf("frame %s", humanize.Comma(int64(frame.Seq)))
		if err := c.annotator.DrawTopLeft(out, status, c.palette.Text); err != nil {
			return nil, fmt.Errorf("drawing status: %w", err)
		}
	}

	return out, nil
}

// Close releases the font resources
func (c *Compositor) Close() error {
	return c.annotator.Close()
}
