package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"thermo-gui/internal/models"
)

// DefaultPath is used when THERMO_CONFIG is not set
const DefaultPath = "thermo-gui.toml"

// Config holds runtime configuration for the application.
// Fields may be loaded from a TOML file and overridden by environment variables.
type Config struct {
	Log         LogConfig         `toml:"log"`
	Window      WindowConfig      `toml:"window"`
	Video       VideoConfig       `toml:"video"`
	Calibration CalibrationConfig `toml:"calibration"`
	Parameters  models.Parameters `toml:"parameters"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

type WindowConfig struct {
	Width  float32 `toml:"width"`
	Height float32 `toml:"height"`
}

// VideoConfig seeds the frame range entries and the file picker location
type VideoConfig struct {
	StartFrame int    `toml:"start_frame"`
	EndFrame   int    `toml:"end_frame"`
	LastFolder string `toml:"last_folder"`
}

// CalibrationConfig is the pinhole model used when undistortion is enabled.
// CameraMatrix is row-major 3x3; Distortion holds k1, k2, p1, p2[, k3].
type CalibrationConfig struct {
	CameraMatrix []float64 `toml:"camera_matrix"`
	Distortion   []float64 `toml:"distortion"`
}

// Valid reports whether the calibration can be handed to the undistort step
func (c CalibrationConfig) Valid() bool {
	return len(c.CameraMatrix) == 9 && len(c.Distortion) >= 4
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		Window: WindowConfig{Width: 1400, Height: 900},
		Video: VideoConfig{
			StartFrame: 0,
			EndFrame:   models.UnboundedFrame,
		},
		Parameters: models.DefaultParameters(),
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.Window.Width < 800 {
		c.Window.Width = 800
	}
	if c.Window.Height < 600 {
		c.Window.Height = 600
	}
	if c.Video.StartFrame < 0 {
		c.Video.StartFrame = 0
	}
	if c.Video.EndFrame != models.UnboundedFrame && c.Video.EndFrame <= c.Video.StartFrame {
		c.Video.EndFrame = models.UnboundedFrame
	}
	if len(c.Calibration.CameraMatrix) > 0 && !c.Calibration.Valid() {
		c.Calibration = CalibrationConfig{}
	}

	p := &c.Parameters
	if p.Preprocessing.ImageScaling <= 0 {
		p.Preprocessing.ImageScaling = 1.0
	}
	if p.Preprocessing.GaussianBlur < 1 {
		p.Preprocessing.GaussianBlur = 1
	}
	if p.Preprocessing.GaussianBlur%2 == 0 {
		p.Preprocessing.GaussianBlur++
	}
	if p.EdgeDetection.HysteresisMax <= p.EdgeDetection.HysteresisMin {
		p.EdgeDetection.HysteresisMax = p.EdgeDetection.HysteresisMin + 1
	}
	if p.EdgeDetection.DilationSteps < 0 {
		p.EdgeDetection.DilationSteps = 0
	}
	if p.SegmentDetection.DRho <= 0 {
		p.SegmentDetection.DRho = 1
	}
	if p.SegmentDetection.DTheta <= 0 {
		p.SegmentDetection.DTheta = models.DegreesToRadians
	}
	if p.SegmentClustering.NumClusters < 1 {
		p.SegmentClustering.NumClusters = 2
	}
	if p.SegmentClustering.NumInit < 1 {
		p.SegmentClustering.NumInit = 1
	}
	switch p.SegmentClustering.ClusterType {
	case models.ClusterKNN, models.ClusterGMM:
	default:
		p.SegmentClustering.ClusterType = models.ClusterGMM
	}
	return p.Validate()
}

// Load attempts to read configuration from the given TOML file path. If the file does not
// exist it returns DefaultConfig(). On decode error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return DefaultConfig(), fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through getenv
func (c *Config) ApplyEnv(getenv func(string) string) {
	if level := getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	} else if getenv("DEBUG") == "1" {
		c.Log.Level = "debug"
	}
	if v := strings.ToLower(getenv("THERMO_JSON_LOGS")); v == "true" || v == "1" {
		c.Log.JSON = true
	}
}

// PathFromEnv returns THERMO_CONFIG or DefaultPath
func PathFromEnv(getenv func(string) string) string {
	if p := getenv("THERMO_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Save writes the configuration to the given path in TOML format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
