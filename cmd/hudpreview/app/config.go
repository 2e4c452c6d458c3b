package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/roman-kulish/ground-station/internal/display"
	"github.com/roman-kulish/ground-station/internal/hud"
)

type Config struct {
	InputFile  string
	OutputFile string
	Format     display.ImageFormat
	Width      int
	Height     int
	Roll       float64
	Pitch      float64
	Sentence   string // NMEA sentence shown as position text
	Text       string // Position text used as is
	Theme      hud.ColorTheme
	NoFlip     bool
	Status     bool
}

func NewConfig() *Config {
	return &Config{
		Format: display.ImagePNG,
		Width:  640,
		Height: 480,
		Theme:  hud.ClassicTheme,
	}
}

// ParseFlags reads the configuration from command line arguments
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat, theme string
	fs.StringVar(&c.InputFile, "i", "", "Path to a background image, a blank frame is used when omitted")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file without extension")
	fs.StringVar(&imageFormat, "f", string(display.ImagePNG), "Output image format. [png, jpeg]")
	fs.IntVar(&c.Width, "w", c.Width, "Frame width")
	fs.IntVar(&c.Height, "h", c.Height, "Frame height")
	fs.Float64Var(&c.Roll, "roll", 0, "Relative roll in degrees")
	fs.Float64Var(&c.Pitch, "pitch", 0, "Relative pitch in degrees")
	fs.StringVar(&c.Sentence, "nmea", "", "NMEA sentence to describe as position text")
	fs.StringVar(&c.Text, "text", "", "Position text, ignored when -nmea is set")
	fs.StringVar(&theme, "theme", string(hud.ClassicTheme), "Overlay colour theme. [classic, amber, mono]")
	fs.BoolVar(&c.NoFlip, "no-flip", false, "Do not rotate the frame by 180 degrees")
	fs.BoolVar(&c.Status, "status", false, "Draw the frame counter")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	var err error
	if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if c.Width <= 0 || c.Height <= 0 {
		err = fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	} else if c.Format, err = display.ParseImageFormat(imageFormat); err == nil {
		c.Theme, err = hud.ParseTheme(theme)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
