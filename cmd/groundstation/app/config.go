package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/a8m/envsubst"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/ground-station/internal/display"
	"github.com/roman-kulish/ground-station/internal/hud"
	"github.com/roman-kulish/ground-station/internal/ingest"
)

const (
	DisplayWebSocket DisplayType = "websocket"
	DisplaySnapshot  DisplayType = "snapshot"
	DisplayPipe      DisplayType = "pipe"
)

type DisplayType string

// StdinURL reads raw RGB24 frames from the standard input instead of running ffmpeg
const StdinURL = "-"

var validDisplayTypes = map[DisplayType]struct{}{
	DisplayWebSocket: {},
	DisplaySnapshot:  {},
	DisplayPipe:      {},
}

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings" json:"settings"`
	Network  NetworkConfig `yaml:"network" json:"network"`
	Video    VideoConfig   `yaml:"video" json:"video"`
	HUD      HUDConfig     `yaml:"hud" json:"hud"`
	Display  DisplayConfig `yaml:"display" json:"display"`
	Storage  StorageConfig `yaml:"storage" json:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel        string        `yaml:"logLevel" json:"logLevel"`
	LogFile         string        `yaml:"logFile" json:"logFile,omitempty"`
	Duration        time.Duration `yaml:"duration" json:"duration"`               // Stop after this long, zero runs until interrupted
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"` // Bound on waiting for the units to stop
}

// NetworkConfig represents the telemetry endpoints
type NetworkConfig struct {
	BindAddress   string `yaml:"bindAddress" json:"bindAddress"`
	PositionPort  int    `yaml:"positionPort" json:"positionPort"`
	AttitudePort  int    `yaml:"attitudePort" json:"attitudePort"`
	ReceiveBuffer int    `yaml:"receiveBuffer" json:"receiveBuffer"`
	PacketSize    int    `yaml:"packetSize" json:"packetSize"`
}

// VideoConfig represents the video capture settings
type VideoConfig struct {
	Enabled   bool           `yaml:"enabled" json:"enabled"`
	URL       string         `yaml:"url" json:"url"`
	Width     int            `yaml:"width" json:"width"`
	Height    int            `yaml:"height" json:"height"`
	FFmpeg    string         `yaml:"ffmpeg" json:"ffmpeg"`
	InputArgs map[string]any `yaml:"inputArgs" json:"inputArgs,omitempty"`
}

// HUDConfig represents the overlay settings
type HUDConfig struct {
	Theme         string  `yaml:"theme" json:"theme"`
	Flip          bool    `yaml:"flip" json:"flip"`
	FontSize      float64 `yaml:"fontSize" json:"fontSize"`
	MaxTextLength int     `yaml:"maxTextLength" json:"maxTextLength"`
	Status        bool    `yaml:"status" json:"status"`
}

// DisplayConfig represents the display sink settings
type DisplayConfig struct {
	Type   DisplayType `yaml:"type" json:"type"`
	Listen string      `yaml:"listen" json:"listen,omitempty"` // websocket
	Path   string      `yaml:"path" json:"path,omitempty"`     // snapshot
	Format string      `yaml:"format" json:"format,omitempty"` // snapshot
	Every  int         `yaml:"every" json:"every,omitempty"`   // snapshot
}

// StorageConfig represents the session journal settings
type StorageConfig struct {
	Journal string `yaml:"journal" json:"journal,omitempty"` // Sqlite file, empty disables the journal
}

// NewConfig returns the default configuration
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:        "info",
			ShutdownTimeout: 5 * time.Second,
		},
		Network: NetworkConfig{
			BindAddress:   "0.0.0.0",
			PositionPort:  5001,
			AttitudePort:  5002,
			ReceiveBuffer: ingest.DefaultReceiveBuffer,
			PacketSize:    ingest.DefaultPacketSize,
		},
		Video: VideoConfig{
			Enabled: true,
			URL:     "udp://0.0.0.0:5000",
			Width:   640,
			Height:  480,
			FFmpeg:  "ffmpeg",
		},
		HUD: HUDConfig{
			Theme:         string(hud.ClassicTheme),
			Flip:          true,
			FontSize:      hud.DefaultFontSize,
			MaxTextLength: hud.DefaultMaxTextLength,
		},
		Display: DisplayConfig{
			Type:   DisplayWebSocket,
			Listen: "127.0.0.1:8080",
			Format: string(display.ImageJPEG),
			Every:  1,
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults. Environment
// variables referenced as $VAR or ${VAR} are expanded before decoding.
func LoadConfig(path string) (*Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return ParseConfig(buf)
}

// ParseConfig decodes YAML over the defaults and validates the result
func ParseConfig(buf []byte) (*Config, error) {
	c := NewConfig()

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLogLevel(c.Settings.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Settings.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must not be negative"))
	}
	if c.Settings.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive"))
	}

	n := c.Network
	for name, port := range map[string]int{"position": n.PositionPort, "attitude": n.AttitudePort} {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("invalid %s port: %d", name, port))
		}
	}
	if n.PositionPort != 0 && n.PositionPort == n.AttitudePort {
		errs = append(errs, fmt.Errorf("position and attitude ports must differ: %d", n.PositionPort))
	}
	if n.PacketSize <= 0 {
		errs = append(errs, fmt.Errorf("packet size must be positive"))
	}
	if n.ReceiveBuffer < 0 {
		errs = append(errs, fmt.Errorf("receive buffer must not be negative"))
	}

	if c.Video.Enabled {
		if c.Video.URL == "" {
			errs = append(errs, fmt.Errorf("video url is required"))
		}
		if c.Video.Width <= 0 || c.Video.Height <= 0 {
			errs = append(errs, fmt.Errorf("invalid video size %dx%d", c.Video.Width, c.Video.Height))
		}
	}

	if _, err := hud.ParseTheme(c.HUD.Theme); err != nil {
		errs = append(errs, err)
	}
	if c.HUD.MaxTextLength <= 0 {
		errs = append(errs, fmt.Errorf("max text length must be positive"))
	}
	if c.HUD.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("font size must be positive"))
	}

	if _, ok := validDisplayTypes[c.Display.Type]; !ok {
		errs = append(errs, fmt.Errorf("invalid display type: %s", c.Display.Type))
	}
	switch c.Display.Type {
	case DisplayWebSocket:
		if c.Display.Listen == "" {
			errs = append(errs, fmt.Errorf("display listen address is required"))
		}
	case DisplaySnapshot:
		if c.Display.Path == "" {
			errs = append(errs, fmt.Errorf("display path is required"))
		}
		if _, err := display.ParseImageFormat(strings.ToLower(c.Display.Format)); err != nil {
			errs = append(errs, err)
		}
	case DisplayPipe:
		if c.Video.URL == StdinURL {
			errs = append(errs, fmt.Errorf("pipe display cannot be used with video from standard input"))
		}
	}

	return errors.Join(errs...)
}

// ParseLogLevel converts a level name to a slog level
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, fmt.Errorf("invalid log level: %s", name)
	}
	return level, nil
}
