package hud

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	dpi             = 72.0
	DefaultFontSize = 16.0

	// textMargin is the distance of the text from the left frame edge
	textMargin = 10

	// textBaselineOffset is the distance of the text baseline from the bottom frame edge
	textBaselineOffset = 20
)

// Annotator draws text onto frames
type Annotator struct {
	mu       sync.Mutex
	context  *freetype.Context
	fontFace font.Face
	fontSize float64
}

// NewAnnotator creates an annotator using the Go regular font
func NewAnnotator(fontSize float64) (*Annotator, error) {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingFull)

	return &Annotator{
		context: ctx,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		}),
		fontSize: fontSize,
	}, nil
}

// Close releases the font face
func (a *Annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

// Fit truncates s to at most maxRunes characters and then drops trailing
// characters until it fits within width pixels.
func (a *Annotator) Fit(s string, maxRunes, width int) string {
	runes := []rune(s)
	if maxRunes > 0 && len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	limit := fixed.I(width)
	for len(runes) > 0 && font.MeasureString(a.fontFace, string(runes)) > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

// DrawBottomLeft draws s with its baseline near the bottom-left corner
func (a *Annotator) DrawBottomLeft(img *image.RGBA, s string, c color.Color) error {
	h := img.Bounds().Dy()
	return a.draw(img, s, c, freetype.Pt(img.Bounds().Min.X+textMargin, img.Bounds().Min.Y+h-textBaselineOffset))
}

// DrawTopLeft draws s in the top-left corner
func (a *Annotator) DrawTopLeft(img *image.RGBA, s string, c color.Color) error {
	top := img.Bounds().Min.Y + textMargin + int(a.fontSize)
	return a.draw(img, s, c, freetype.Pt(img.Bounds().Min.X+textMargin, top))
}

func (a *Annotator) draw(img *image.RGBA, s string, c color.Color, pt fixed.Point26_6) error {
	if s == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)
	a.context.SetSrc(image.NewUniform(c))

	if _, err := a.context.DrawString(s, pt); err != nil {
		return fmt.Errorf("drawing text: %w", err)
	}
	return nil
}
