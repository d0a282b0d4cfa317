// Package config - typed configuration for the litter box monitor.
//
// The configuration is read once at startup from a YAML file. When the file
// does not exist a default configuration is synthesized and written back so
// subsequent runs reuse (and can hand-edit) it.
//
// Layout:
//
//	camera:
//	  device_id: 0
//	  show_preview: true
//	detection:
//	  history: 500
//	  dist_threshold: 400
//	  ...
//	litter_box:
//	  x1_percent: 0.3
//	  ...
package config

import (
	"bytes"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nvr-ai/litterbox/images"
	"github.com/nvr-ai/litterbox/zone"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "config.yaml"

var (
	// ErrInvalidZone is returned when the litter box fractions do not describe a
	// non-empty rectangle inside the frame.
	ErrInvalidZone = errors.New("invalid litter box zone")
	// ErrInvalidDetection is returned when a detection parameter is out of range.
	ErrInvalidDetection = errors.New("invalid detection parameters")
	// ErrInvalidCamera is returned when a camera parameter is out of range.
	ErrInvalidCamera = errors.New("invalid camera parameters")
	// ErrInvalidEvents is returned when an events parameter is out of range.
	ErrInvalidEvents = errors.New("invalid events parameters")
	// ErrInvalidLogging is returned for an unknown log level or format.
	ErrInvalidLogging = errors.New("invalid logging parameters")
)

// Config is the complete monitor configuration.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Detection DetectionConfig `yaml:"detection"`
	LitterBox LitterBoxConfig `yaml:"litter_box"`
	Debug     DebugConfig     `yaml:"debug"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CameraConfig selects the frame source and the preview window.
type CameraConfig struct {
	// DeviceID is the video capture device index.
	DeviceID int `yaml:"device_id"`
	// VideoPath, when set, replaces the device with a video file.
	VideoPath string `yaml:"video_path,omitempty"`
	// ShowPreview opens a window with the annotated frames.
	ShowPreview bool `yaml:"show_preview"`
	// ReadRetries is how many consecutive failed reads are tolerated before
	// the stream is treated as ended.
	ReadRetries int `yaml:"read_retries"`
}

// DetectionConfig parameterizes background subtraction and mask cleanup.
type DetectionConfig struct {
	// History is the number of recent frames the background model learns from.
	History int `yaml:"history"`
	// DistThreshold is the squared distance threshold of the KNN model.
	DistThreshold float64 `yaml:"dist_threshold"`
	// DetectShadows marks shadow pixels separately in the mask.
	DetectShadows bool `yaml:"detect_shadows"`
	// MinContourArea is the exclusive lower bound on region area.
	MinContourArea float64 `yaml:"min_contour_area"`
	// KernelSize is the diameter of the elliptical structuring element.
	KernelSize int `yaml:"kernel_size"`
	// DilationIterations is the number of dilation passes after opening.
	DilationIterations int `yaml:"dilation_iterations"`
	// WarmupFrames is how many frames after start or reset are used only to
	// train the background model.
	WarmupFrames int `yaml:"warmup_frames"`
}

// LitterBoxConfig is the zone of interest as fractions of the frame size.
type LitterBoxConfig struct {
	X1Percent float64 `yaml:"x1_percent"`
	Y1Percent float64 `yaml:"y1_percent"`
	X2Percent float64 `yaml:"x2_percent"`
	Y2Percent float64 `yaml:"y2_percent"`
	// MinUsageTime is how long the zone must stay occupied for a visit to be
	// recorded.
	MinUsageTime time.Duration `yaml:"min_usage_time"`
}

// DebugConfig holds developer switches.
type DebugConfig struct {
	ShowMaskWindow bool `yaml:"show_mask_window"`
}

// EventsConfig selects where events are recorded.
type EventsConfig struct {
	// LogPath is the append-only text log. Empty disables it.
	LogPath string `yaml:"log_path"`
	// DatabasePath is an optional SQLite database receiving the same events.
	DatabasePath string `yaml:"database_path,omitempty"`
	// SnapshotDir receives a thumbnail per zone entry. Empty disables it.
	SnapshotDir string `yaml:"snapshot_dir,omitempty"`
	// SnapshotWidth is the thumbnail width in pixels.
	SnapshotWidth int `yaml:"snapshot_width"`
	// SnapshotFormat is jpeg, png or webp.
	SnapshotFormat string `yaml:"snapshot_format"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
	// ReportInterval is how often frame statistics are logged. Zero disables.
	ReportInterval time.Duration `yaml:"report_interval"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			DeviceID:    0,
			ShowPreview: true,
			ReadRetries: 0,
		},
		Detection: DetectionConfig{
			History:            500,
			DistThreshold:      400,
			DetectShadows:      true,
			MinContourArea:     500,
			KernelSize:         3,
			DilationIterations: 2,
			WarmupFrames:       5,
		},
		LitterBox: LitterBoxConfig{
			X1Percent:    0.3,
			Y1Percent:    0.4,
			X2Percent:    0.7,
			Y2Percent:    0.9,
			MinUsageTime: 5 * time.Second,
		},
		Events: EventsConfig{
			LogPath:        "litterbox.log",
			SnapshotWidth:  320,
			SnapshotFormat: "jpeg",
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			ReportInterval: 10 * time.Second,
		},
	}
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if err := c.LitterBox.Validate(); err != nil {
		return err
	}

	d := c.Detection
	switch {
	case d.History <= 0:
		return errors.Wrapf(ErrInvalidDetection, "history must be positive, got %d", d.History)
	case d.DistThreshold <= 0:
		return errors.Wrapf(ErrInvalidDetection, "dist_threshold must be positive, got %g", d.DistThreshold)
	case d.MinContourArea < 0:
		return errors.Wrapf(ErrInvalidDetection, "min_contour_area must not be negative, got %g", d.MinContourArea)
	case d.KernelSize < 1:
		return errors.Wrapf(ErrInvalidDetection, "kernel_size must be at least 1, got %d", d.KernelSize)
	case d.DilationIterations < 0:
		return errors.Wrapf(ErrInvalidDetection, "dilation_iterations must not be negative, got %d", d.DilationIterations)
	case d.WarmupFrames < 0:
		return errors.Wrapf(ErrInvalidDetection, "warmup_frames must not be negative, got %d", d.WarmupFrames)
	}

	if c.Camera.DeviceID < 0 && c.Camera.VideoPath == "" {
		return errors.Wrapf(ErrInvalidCamera, "device_id must not be negative, got %d", c.Camera.DeviceID)
	}
	if c.Camera.ReadRetries < 0 {
		return errors.Wrapf(ErrInvalidCamera, "read_retries must not be negative, got %d", c.Camera.ReadRetries)
	}

	if c.Events.SnapshotDir != "" && c.Events.SnapshotWidth <= 0 {
		return errors.Wrapf(ErrInvalidEvents, "snapshot_width must be positive, got %d", c.Events.SnapshotWidth)
	}

	switch c.Events.SnapshotFormat {
	case "jpeg", "png", "webp":
	default:
		return errors.Wrapf(ErrInvalidEvents, "snapshot_format must be jpeg, png or webp, got %q", c.Events.SnapshotFormat)
	}

	return c.Logging.Validate()
}

// Validate checks the level and format names.
func (l LoggingConfig) Validate() error {
	if _, err := l.SlogLevel(); err != nil {
		return err
	}
	switch l.Format {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalidLogging, "format must be text or json, got %q", l.Format)
	}
	if l.ReportInterval < 0 {
		return errors.Wrapf(ErrInvalidLogging, "report_interval must not be negative, got %s", l.ReportInterval)
	}
	return nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, errors.Wrapf(ErrInvalidLogging, "level %q", l.Level)
	}
	return level, nil
}

// Validate enforces 0 <= x1 < x2 <= 1 and 0 <= y1 < y2 <= 1.
func (l LitterBoxConfig) Validate() error {
	inUnit := func(v float64) bool { return v >= 0 && v <= 1 }
	if !inUnit(l.X1Percent) || !inUnit(l.X2Percent) || !inUnit(l.Y1Percent) || !inUnit(l.Y2Percent) {
		return errors.Wrapf(ErrInvalidZone, "fractions must lie in [0,1], got (%g,%g)-(%g,%g)",
			l.X1Percent, l.Y1Percent, l.X2Percent, l.Y2Percent)
	}
	if l.X1Percent >= l.X2Percent || l.Y1Percent >= l.Y2Percent {
		return errors.Wrapf(ErrInvalidZone, "need x1 < x2 and y1 < y2, got (%g,%g)-(%g,%g)",
			l.X1Percent, l.Y1Percent, l.X2Percent, l.Y2Percent)
	}
	if l.MinUsageTime < 0 {
		return errors.Wrapf(ErrInvalidZone, "min_usage_time must not be negative, got %s", l.MinUsageTime)
	}
	return nil
}

// Rect scales the zone to a frame of the given size.
func (l LitterBoxConfig) Rect(size image.Point) zone.Rect {
	return zone.FromFractions(l.X1Percent, l.Y1Percent, l.X2Percent, l.Y2Percent, size)
}

// Segmenter converts the detection parameters for images.NewMotionSegmenter.
func (d DetectionConfig) Segmenter() images.SegmenterConfig {
	return images.SegmenterConfig{
		History:            d.History,
		DistThreshold:      float32(d.DistThreshold),
		DetectShadows:      d.DetectShadows,
		KernelSize:         d.KernelSize,
		DilationIterations: d.DilationIterations,
		WarmupFrames:       d.WarmupFrames,
	}
}

// Load reads the configuration at path.
//
// A missing file is not an error: the default configuration is persisted to
// path and returned. Keys absent from an existing file keep their default
// value; unknown keys, malformed YAML and invalid values are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "read config %s", path)
		}

		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, errors.Wrap(err, "persist default config")
		}
		slog.Info("config file not found, default written", "path", path)
		return cfg, nil
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validate config %s", path)
	}

	return cfg, nil
}

// Save writes the configuration to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create config directory %s", dir)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}
