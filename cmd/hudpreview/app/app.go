package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/roman-kulish/ground-station/internal/display"
	"github.com/roman-kulish/ground-station/internal/hud"
	"github.com/roman-kulish/ground-station/internal/position"
	"github.com/roman-kulish/ground-station/internal/telemetry"
	"github.com/roman-kulish/ground-station/internal/video"
)

var backgroundColor = color.RGBA{R: 40, G: 60, B: 90, A: 255}

// staticTelemetry is a fixed snapshot
type staticTelemetry telemetry.Snapshot

func (t staticTelemetry) Snapshot() telemetry.Snapshot {
	return telemetry.Snapshot(t)
}

// Run renders one overlay frame into the output file
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	frame, err := loadFrame(config)
	if err != nil {
		return err
	}

	text := config.Text
	if config.Sentence != "" {
		text = position.Describe(position.Parse(config.Sentence))
	}

	compositor, err := hud.NewCompositor(staticTelemetry{Roll: config.Roll, Pitch: config.Pitch, Position: text}, hud.Config{
		Theme:         config.Theme,
		Flip:          !config.NoFlip,
		FontSize:      hud.DefaultFontSize,
		MaxTextLength: hud.DefaultMaxTextLength,
		Status:        config.Status,
	})
	if err != nil {
		return fmt.Errorf("creating compositor: %w", err)
	}
	defer compositor.Close()

	sink, err := display.NewSnapshotSink(config.OutputFile, config.Format, 1, display.WithSnapshotLogger(logger))
	if err != nil {
		return err
	}
	if err = sink.Start(ctx); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sink.Stop())
	}()

	logger.Info("rendering overlay",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", frame.Bounds().Dx()),
			slog.Int("height", frame.Bounds().Dy()),
		),
		slog.String("position", text))

	out, err := compositor.Compose(video.Frame{Seq: 1, Image: frame})
	if err != nil {
		return fmt.Errorf("composing frame: %w", err)
	}

	return sink.Show(out)
}

// loadFrame decodes the background image scaled to the frame size, or
// returns a blank frame
func loadFrame(config *Config) (*image.RGBA, error) {
	frame := image.NewRGBA(image.Rect(0, 0, config.Width, config.Height))

	if config.InputFile == "" {
		draw.Draw(frame, frame.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)
		return frame, nil
	}

	src, err := imaging.Open(config.InputFile, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("opening background image: %w", err)
	}

	scaled := imaging.Fill(src, config.Width, config.Height, imaging.Center, imaging.Lanczos)
	draw.Draw(frame, frame.Bounds(), scaled, image.Point{}, draw.Src)

	return frame, nil
}
