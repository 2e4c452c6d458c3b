package hud

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	ClassicTheme ColorTheme = "classic"
	AmberTheme   ColorTheme = "amber"
	MonoTheme    ColorTheme = "mono"
)

type ColorTheme string

// Palette holds the overlay colours
type Palette struct {
	Horizon color.RGBA // Horizon line and centre marker
	Text    color.RGBA // Position and status text
}

var validThemes = map[ColorTheme]struct{}{
	ClassicTheme: {},
	AmberTheme:   {},
	MonoTheme:    {},
}

// ParseTheme validates a theme name
func ParseTheme(name string) (ColorTheme, error) {
	if name == "" {
		return ClassicTheme, nil
	}
	if _, ok := validThemes[ColorTheme(name)]; !ok {
		return "", fmt.Errorf("invalid hud theme: %s", name)
	}
	return ColorTheme(name), nil
}

// GetPalette returns the colours of a theme, unknown themes fall back to classic
func GetPalette(theme ColorTheme) Palette {
	switch theme {
	case AmberTheme:
		return Palette{
			Horizon: rgba(colorful.Hsv(38, 1, 1)),
			Text:    rgba(colorful.Hsv(45, 0.8, 1)),
		}

	case MonoTheme:
		return Palette{
			Horizon: color.RGBA{R: 255, G: 255, B: 255, A: 255},
			Text:    color.RGBA{R: 255, G: 255, B: 255, A: 255},
		}

	default: // green horizon, yellow text
		return Palette{
			Horizon: color.RGBA{G: 255, A: 255},
			Text:    color.RGBA{R: 255, G: 255, A: 255},
		}
	}
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
