package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roman-kulish/ground-station/cmd/groundstation/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := app.NewLogger(os.Stderr, &logLevel)

	var configPath, levelName string
	var duration time.Duration
	flag.StringVar(&configPath, "c", "", "Path to the configuration file, defaults are used when omitted")
	flag.StringVar(&levelName, "log-level", "", "Override the log level [debug, info, warn, error]")
	flag.DurationVar(&duration, "duration", 0, "Stop after the given duration, e.g. 30s")
	flag.Parse()

	config := app.NewConfig()
	if configPath != "" {
		var err error
		if config, err = app.LoadConfig(configPath); err != nil {
			logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
			os.Exit(1)
		}
	}

	if levelName != "" {
		config.Settings.LogLevel = levelName
	}
	if duration > 0 {
		config.Settings.Duration = duration
	}
	if err := config.Validate(); err != nil {
		logger.Error(fmt.Sprintf("invalid configuration: %s", err.Error()))
		os.Exit(1)
	}

	level, _ := app.ParseLogLevel(config.Settings.LogLevel)
	logLevel.Set(level)

	// frames go to stdout with the pipe display, logs never do
	var console io.Writer = os.Stdout
	if config.Display.Type == app.DisplayPipe {
		console = os.Stderr
	}

	out, logFile := app.NewLogWriter(console, config.Settings.LogFile)
	defer logFile.Close()
	logger = app.NewLogger(out, &logLevel)
	app.RedirectStdLog(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		_ = logFile.Close()
		os.Exit(1)
	}
}
