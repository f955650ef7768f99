package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermo-gui/internal/models"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesAndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermo-gui.toml")
	content := `
[log]
level = "debug"

[video]
start_frame = 10
end_frame = 5

[parameters.preprocessing]
image_scaling = 0.5
gaussian_blur = 4

[parameters.edge_detection]
hysteresis_min = 80
hysteresis_max = 20

[parameters.segment_clustering]
cluster_type = "knn"
num_clusters = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, models.UnboundedFrame, cfg.Video.EndFrame)
	assert.Equal(t, 0.5, cfg.Parameters.Preprocessing.ImageScaling)
	assert.Equal(t, 5, cfg.Parameters.Preprocessing.GaussianBlur)
	assert.Equal(t, 81, cfg.Parameters.EdgeDetection.HysteresisMax)
	assert.Equal(t, models.ClusterKNN, cfg.Parameters.SegmentClustering.ClusterType)
	assert.Equal(t, 3, cfg.Parameters.SegmentClustering.NumClusters)
	// untouched groups keep their defaults
	assert.Equal(t, models.DefaultParameters().RectangleDetection, cfg.Parameters.RectangleDetection)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log\nlevel="), 0o644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	cfg := DefaultConfig()
	cfg.Video.LastFolder = "/videos"
	cfg.Calibration = CalibrationConfig{
		CameraMatrix: []float64{500, 0, 320, 0, 500, 240, 0, 0, 1},
		Distortion:   []float64{-0.3, 0.1, 0, 0},
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/videos", loaded.Video.LastFolder)
	assert.True(t, loaded.Calibration.Valid())
}

func TestValidateDropsIncompleteCalibration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calibration.CameraMatrix = []float64{1, 2, 3}
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Calibration.Valid())
	assert.Empty(t, cfg.Calibration.CameraMatrix)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{"LOG_LEVEL": "warn", "THERMO_JSON_LOGS": "true"}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)

	debugEnv := map[string]string{"DEBUG": "1"}
	cfg = DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return debugEnv[k] })
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestPathFromEnv(t *testing.T) {
	assert.Equal(t, DefaultPath, PathFromEnv(func(string) string { return "" }))
	assert.Equal(t, "/etc/t.toml", PathFromEnv(func(string) string { return "/etc/t.toml" }))
}
