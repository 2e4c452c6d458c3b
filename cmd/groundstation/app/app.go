package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/roman-kulish/ground-station/internal/display"
	"github.com/roman-kulish/ground-station/internal/hud"
	"github.com/roman-kulish/ground-station/internal/ingest"
	"github.com/roman-kulish/ground-station/internal/station"
	"github.com/roman-kulish/ground-station/internal/storage"
	"github.com/roman-kulish/ground-station/internal/telemetry"
	"github.com/roman-kulish/ground-station/internal/video"
)

// Run wires the units of a session and runs them until ctx is cancelled
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store := telemetry.NewStore()

	units := createListeners(&config.Network, store, logger)

	options := []func(*station.Orchestrator){
		station.WithLogger(logger),
		station.WithShutdownTimeout(config.Settings.ShutdownTimeout),
		station.WithDuration(config.Settings.Duration),
	}

	if config.Video.Enabled {
		compositor, err := hud.NewCompositor(store, hud.Config{
			Theme:         hud.ColorTheme(config.HUD.Theme),
			Flip:          config.HUD.Flip,
			FontSize:      config.HUD.FontSize,
			MaxTextLength: config.HUD.MaxTextLength,
			Status:        config.HUD.Status,
		})
		if err != nil {
			return fmt.Errorf("creating compositor: %w", err)
		}
		defer compositor.Close()

		sink, err := createDisplay(&config.Display, &config.Video, logger)
		if err != nil {
			return fmt.Errorf("creating display: %w", err)
		}

		source, err := createSource(&config.Video, logger)
		if err != nil {
			return fmt.Errorf("creating video source: %w", err)
		}

		units = append(units, video.NewLoop(source, compositor, sink, video.WithLoopLogger(logger)))
		options = append(options, station.WithDisplay(sink))
	}

	if config.Storage.Journal != "" {
		journal := storage.NewSqliteJournal(config.Storage.Journal)
		defer func() {
			if err := journal.Close(); err != nil {
				logger.Warn(fmt.Sprintf("closing journal: %s", err.Error()))
			}
		}()

		options = append(options, station.WithJournal(journal, config))
	}

	o := station.NewOrchestrator(units, options...)
	if err := o.Run(ctx); err != nil {
		return fmt.Errorf("running session: %w", err)
	}

	return nil
}

func createListeners(config *NetworkConfig, store *telemetry.Store, logger *slog.Logger) []station.Unit {
	listenerOptions := []func(*ingest.Listener){
		ingest.WithLogger(logger),
		ingest.WithPacketSize(config.PacketSize),
		ingest.WithReceiveBuffer(config.ReceiveBuffer),
	}

	attitudeHandler := ingest.NewAttitudeHandler(store, logger.With(slog.String("unit", "attitude")))
	positionHandler := ingest.NewPositionHandler(store, logger.With(slog.String("unit", "position")))

	return []station.Unit{
		ingest.NewListener("attitude", endpoint(config.BindAddress, config.AttitudePort), attitudeHandler, listenerOptions...),
		ingest.NewListener("position", endpoint(config.BindAddress, config.PositionPort), positionHandler, listenerOptions...),
	}
}

func createSource(config *VideoConfig, logger *slog.Logger) (video.Source, error) {
	if config.URL == StdinURL {
		return video.NewReaderSource(os.Stdin, config.Width, config.Height)
	}

	return video.NewFFmpegSource(video.FFmpegConfig{
		URL:       config.URL,
		Width:     config.Width,
		Height:    config.Height,
		Binary:    config.FFmpeg,
		InputArgs: config.InputArgs,
	}, video.WithSourceLogger(logger))
}

// displaySink is a display that is also the video loop's frame sink
type displaySink interface {
	video.Sink
	station.Display
}

func createDisplay(config *DisplayConfig, videoConfig *VideoConfig, logger *slog.Logger) (displaySink, error) {
	switch config.Type {
	case DisplayWebSocket:
		return display.NewWebSocketSink(config.Listen, display.WithWebSocketLogger(logger)), nil

	case DisplaySnapshot:
		format, err := display.ParseImageFormat(strings.ToLower(config.Format))
		if err != nil {
			return nil, err
		}
		return display.NewSnapshotSink(config.Path, format, config.Every, display.WithSnapshotLogger(logger))

	case DisplayPipe:
		return display.NewPipeSink(os.Stdout, videoConfig.Width, videoConfig.Height), nil

	default:
		return nil, fmt.Errorf("unknown display type '%s'", config.Type)
	}
}

func endpoint(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
