// Command litterbox watches a camera for motion inside a litter box zone and
// records each visit.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/litterbox/capture"
	"github.com/nvr-ai/litterbox/config"
	"github.com/nvr-ai/litterbox/events"
	"github.com/nvr-ai/litterbox/images"
	"github.com/nvr-ai/litterbox/monitor"
	"github.com/nvr-ai/litterbox/overlay"
	"github.com/nvr-ai/litterbox/profiler"
	"github.com/pkg/errors"
)

const (
	demoFrames = 300
	demoSize   = 100
)

// options holds the command line. Flags override the config file.
type options struct {
	configPath string
	videoPath  string
	framesDir  string
	demo       string
	logLevel   string
	noPreview  bool
	stdin      bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", config.DefaultPath, "Path to the YAML configuration (created with defaults if missing)")
	flag.StringVar(&o.videoPath, "video", "", "Read frames from a video file instead of the camera")
	flag.StringVar(&o.framesDir, "frames", "", "Replay a directory of frame-N images instead of the camera")
	flag.StringVar(&o.demo, "demo", "", "Run on synthetic frames: inside or outside")
	flag.StringVar(&o.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	flag.BoolVar(&o.noPreview, "no-preview", false, "Disable the preview windows")
	flag.BoolVar(&o.stdin, "stdin", true, "Accept q/quit and r/reset commands on standard input")
	flag.Parse()
	return o
}

func main() {
	os.Exit(run(parseFlags()))
}

// run returns the process exit code: 0 after a graceful stop, 1 when the
// monitor could not be started.
func run(o options) int {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.videoPath != "" {
		cfg.Camera.VideoPath = o.videoPath
	}
	if o.noPreview {
		cfg.Camera.ShowPreview = false
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		return 1
	}
	slog.SetDefault(logger)

	source, err := openSource(o, cfg, logger)
	if err != nil {
		logger.Error("cannot open frame source", "error", err)
		return 1
	}
	defer source.Close()

	sink, err := openEvents(cfg.Events)
	if err != nil {
		logger.Error("cannot open event log", "error", err)
		return 1
	}
	defer sink.Close()

	var snapshots monitor.Snapshotter
	if cfg.Events.SnapshotDir != "" {
		w, err := events.NewSnapshotWriter(cfg.Events.SnapshotDir, uint(cfg.Events.SnapshotWidth),
			events.SnapshotFormat(cfg.Events.SnapshotFormat))
		if err != nil {
			logger.Error("cannot prepare snapshot directory", "error", err)
			return 1
		}
		snapshots = w
	}

	detector := images.NewMotionSegmenter(cfg.Detection.Segmenter())
	defer detector.Close()

	display := overlay.NewDisplay(cfg.Camera.ShowPreview, cfg.Debug.ShowMaskWindow)
	defer display.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var commands <-chan monitor.Command
	if o.stdin {
		commands = monitor.ReadCommands(ctx, os.Stdin)
	}

	printBanner(cfg, source, display.Enabled())

	m := monitor.New(monitor.Options{
		Source:         source,
		Detector:       detector,
		MinContourArea: cfg.Detection.MinContourArea,
		Zone:           cfg.LitterBox,
		Display:        display,
		Events:         sink,
		Snapshots:      snapshots,
		Profiler: profiler.New(profiler.Options{
			ReportInterval: cfg.Logging.ReportInterval,
			Logger:         logger,
		}),
		Commands: commands,
		Logger:   logger,
	})
	defer m.Close()

	if err := m.Run(ctx); err != nil {
		logger.Error("monitor failed to start", "error", err)
		return 1
	}

	fmt.Printf("Monitoring stopped after %d frames\n", m.Frames())
	return 0
}

func setupLogger(c config.LoggingConfig) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch c.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}

// openSource picks the frame source: synthetic demo, frame directory, video
// file or camera, in that order of precedence.
func openSource(o options, cfg *config.Config, logger *slog.Logger) (capture.Source, error) {
	deviceOpts := capture.DeviceOptions{Retries: cfg.Camera.ReadRetries, Logger: logger}

	var (
		source capture.Source
		err    error
	)
	switch {
	case o.demo != "":
		source, err = demoSource(o.demo)
	case o.framesDir != "":
		var dir *capture.Directory
		if dir, err = capture.OpenDirectory(o.framesDir); err == nil {
			source = dir
		}
	case cfg.Camera.VideoPath != "":
		var dev *capture.Device
		if dev, err = capture.OpenFile(cfg.Camera.VideoPath, deviceOpts); err == nil {
			source = dev
		}
	default:
		var dev *capture.Device
		if dev, err = capture.OpenDevice(cfg.Camera.DeviceID, deviceOpts); err == nil {
			source = dev
		}
	}
	return source, err
}

// demoSource shows a white square for a few frames, inside or outside the
// default zone.
func demoSource(kind string) (capture.Source, error) {
	var square image.Rectangle
	switch kind {
	case "inside":
		square = image.Rect(40, 55, 60, 75)
	case "outside":
		square = image.Rect(0, 0, 20, 20)
	default:
		return nil, errors.Errorf("unknown demo %q (want inside or outside)", kind)
	}
	return capture.NewSynthetic(demoSize, demoSize, demoFrames, capture.SquareBetween(square, 100, 200)), nil
}

// openEvents combines every configured event sink.
func openEvents(c config.EventsConfig) (events.Multi, error) {
	var sinks events.Multi
	if c.LogPath != "" {
		sinks = append(sinks, events.NewFileLogger(c.LogPath))
	}
	if c.DatabasePath != "" {
		db, err := events.OpenSQLite(c.DatabasePath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, db)
	}
	return sinks, nil
}

func printBanner(cfg *config.Config, source capture.Source, preview bool) {
	lb := cfg.LitterBox
	fmt.Printf("=====================================\n")
	fmt.Printf("Litter box monitor\n")
	fmt.Printf("  Source: %s\n", source)
	fmt.Printf("  Zone: (%.2f,%.2f)-(%.2f,%.2f) of the frame\n", lb.X1Percent, lb.Y1Percent, lb.X2Percent, lb.Y2Percent)
	fmt.Printf("  Minimum contour area: %.0f\n", cfg.Detection.MinContourArea)
	fmt.Printf("  Minimum visit: %s\n", lb.MinUsageTime)
	if cfg.Events.LogPath != "" {
		fmt.Printf("  Event log: %s\n", cfg.Events.LogPath)
	}
	if cfg.Events.DatabasePath != "" {
		fmt.Printf("  Event database: %s\n", cfg.Events.DatabasePath)
	}
	if preview {
		fmt.Printf("  Preview: press q to quit, r to reset the background\n")
	} else {
		fmt.Printf("  Headless: type q or r on stdin, or send SIGINT to stop\n")
	}
	fmt.Printf("=====================================\n\n")
}
