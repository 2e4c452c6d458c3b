package hud

import (
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/roman-kulish/ground-station/internal/telemetry"
	"github.com/roman-kulish/ground-station/internal/video"
)

const epsilon = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestHorizon_Level(t *testing.T) {
	l := Horizon(640, 480, 0, 0)

	if !near(l.Y1, 240) || !near(l.Y2, 240) {
		t.Errorf("expected horizontal line through y=240, got %+v", l)
	}
	if !near(l.X1, 0) || !near(l.X2, 640) {
		t.Errorf("expected line spanning the frame width, got %+v", l)
	}
}

func TestHorizon_RollNinetyIsVertical(t *testing.T) {
	l := Horizon(640, 480, 90, 0)

	if math.Abs(l.X1-l.X2) > 1e-6 {
		t.Errorf("expected vertical line, got %+v", l)
	}
	if !near(math.Abs(l.Y2-l.Y1), 640) {
		t.Errorf("expected length max(w,h), got %+v", l)
	}
}

func TestHorizon_PitchShiftsCentre(t *testing.T) {
	l := Horizon(640, 480, 0, 180/math.Pi)

	// one radian of pitch moves the centre by h/4
	if !near(l.CY, 240+120) {
		t.Errorf("expected centre y 360, got %v", l.CY)
	}

	// no clamp
	far := Horizon(640, 480, 0, 3600)
	if far.CY < 480 {
		t.Errorf("expected unclamped centre outside the frame, got %v", far.CY)
	}
}

func TestHorizon_SymmetricAboutCentre(t *testing.T) {
	for _, roll := range []float64{-720, -135, -30, 0, 12.5, 45, 90, 181, 1000} {
		for _, pitch := range []float64{-90, -10, 0, 3.3, 45, 400} {
			for _, size := range [][2]int{{640, 480}, {480, 640}, {1, 1}} {
				l := Horizon(size[0], size[1], roll, pitch)

				if math.Abs((l.X1+l.X2)/2-l.CX) > 1e-6 || math.Abs((l.Y1+l.Y2)/2-l.CY) > 1e-6 {
					t.Errorf("roll %v pitch %v size %v: endpoints not symmetric about centre: %+v", roll, pitch, size, l)
				}
			}
		}
	}
}

type fixedProvider telemetry.Snapshot

func (p fixedProvider) Snapshot() telemetry.Snapshot { return telemetry.Snapshot(p) }

func grayFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 50, 50, 50, 255
	}
	return img
}

func TestCompositor_DoesNotModifyInput(t *testing.T) {
	frame := grayFrame(64, 48)
	before := append([]byte(nil), frame.Pix...)

	c, err := NewCompositor(fixedProvider{Roll: 20, Pitch: 5, Position: "GPS: lat 1.00000"}, DefaultConfig())
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}
	defer c.Close()

	out, err := c.Compose(video.Frame{Seq: 1, Image: frame})
	if err != nil {
		t.Fatalf("composing: %v", err)
	}

	if string(before) != string(frame.Pix) {
		t.Errorf("input frame was modified")
	}
	if out == frame {
		t.Errorf("expected a copy, got the input image")
	}
	if out.Bounds() != frame.Bounds() {
		t.Errorf("unexpected bounds %v", out.Bounds())
	}
}

func TestCompositor_DrawsLevelHorizonAndMarker(t *testing.T) {
	config := DefaultConfig()
	config.Flip = false

	c, err := NewCompositor(fixedProvider{}, config)
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}
	defer c.Close()

	out, err := c.Compose(video.Frame{Seq: 1, Image: grayFrame(64, 48)})
	if err != nil {
		t.Fatalf("composing: %v", err)
	}

	isGreen := func(c color.RGBA) bool { return c.G > 200 && c.R < 100 && c.B < 100 }

	for _, x := range []int{2, 20, 60} {
		if px := out.RGBAAt(x, 23); !isGreen(px) {
			t.Errorf("expected horizon at (%d, 23), got %v", x, px)
		}
	}
	if px := out.RGBAAt(32, 5); isGreen(px) {
		t.Errorf("unexpected horizon pixel far from the line: %v", px)
	}
}

func TestCompositor_SkipsHorizonForInfiniteAttitude(t *testing.T) {
	config := DefaultConfig()
	config.Flip = false

	c, err := NewCompositor(fixedProvider{Roll: math.Inf(1), Pitch: math.NaN()}, config)
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}
	defer c.Close()

	out, err := c.Compose(video.Frame{Seq: 1, Image: grayFrame(64, 48)})
	if err != nil {
		t.Fatalf("composing: %v", err)
	}

	isGreen := func(c color.RGBA) bool { return c.G > 200 && c.R < 100 && c.B < 100 }
	if px := out.RGBAAt(2, 23); isGreen(px) {
		t.Errorf("expected no horizon line, got %v", px)
	}
	if px := out.RGBAAt(32, 24); !isGreen(px) {
		t.Errorf("expected centre marker, got %v", px)
	}
}

func TestCompositor_FlipsFrame(t *testing.T) {
	frame := grayFrame(64, 48)
	frame.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})

	c, err := NewCompositor(fixedProvider{}, DefaultConfig())
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}
	defer c.Close()

	out, err := c.Compose(video.Frame{Seq: 1, Image: frame})
	if err != nil {
		t.Fatalf("composing: %v", err)
	}

	if px := out.RGBAAt(63, 47); px != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("expected flipped red pixel in the opposite corner, got %v", px)
	}
	if px := out.RGBAAt(0, 0); px.R == 255 {
		t.Errorf("expected source corner to be overwritten by the flip, got %v", px)
	}
}

func TestCompositor_DrawsPositionText(t *testing.T) {
	config := DefaultConfig()
	config.Flip = false

	c, err := NewCompositor(fixedProvider{Position: "GPS: lat 37.12345, lon -122.54321"}, config)
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}
	defer c.Close()

	out, err := c.Compose(video.Frame{Seq: 1, Image: grayFrame(320, 120)})
	if err != nil {
		t.Fatalf("composing: %v", err)
	}

	yellow := 0
	for y := 80; y < 120; y++ {
		for x := 0; x < 320; x++ {
			px := out.RGBAAt(x, y)
			if px.R > 200 && px.G > 200 && px.B < 100 {
				yellow++
			}
		}
	}
	if yellow == 0 {
		t.Errorf("expected position text near the bottom of the frame")
	}
}

func TestCompositor_RejectsEmptyFrame(t *testing.T) {
	c, err := NewCompositor(fixedProvider{}, DefaultConfig())
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}
	defer c.Close()

	if _, err = c.Compose(video.Frame{Seq: 7}); err == nil {
		t.Errorf("expected error for frame without image")
	}
}

func TestAnnotator_Fit(t *testing.T) {
	a, err := NewAnnotator(DefaultFontSize)
	if err != nil {
		t.Fatalf("creating annotator: %v", err)
	}
	defer a.Close()

	long := strings.Repeat("a", 200)
	if got := a.Fit(long, 110, 1<<20); len(got) != 110 {
		t.Errorf("expected 110 characters, got %d", len(got))
	}

	narrow := a.Fit(long, 110, 100)
	if len(narrow) == 0 || len(narrow) >= 110 {
		t.Errorf("expected text trimmed to frame width, got %d characters", len(narrow))
	}

	if got := a.Fit("short", 110, 1000); got != "short" {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestParseTheme(t *testing.T) {
	for _, name := range []string{"", "classic", "amber", "mono"} {
		if _, err := ParseTheme(name); err != nil {
			t.Errorf("theme %q: %v", name, err)
		}
	}
	if _, err := ParseTheme("neon"); err == nil {
		t.Errorf("expected error for unknown theme")
	}

	if p := GetPalette(ClassicTheme); p.Horizon != (color.RGBA{G: 255, A: 255}) || p.Text != (color.RGBA{R: 255, G: 255, A: 255}) {
		t.Errorf("unexpected classic palette %+v", p)
	}
}
