package params

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermo-gui/internal/models"
)

type echoRecorder struct {
	mu      sync.Mutex
	values  map[models.Control]float64
	enabled map[models.Control]bool
}

func newEchoRecorder() *echoRecorder {
	return &echoRecorder{
		values:  make(map[models.Control]float64),
		enabled: make(map[models.Control]bool),
	}
}

func (e *echoRecorder) SetControlValue(c models.Control, v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[c] = v
}

func (e *echoRecorder) SetControlEnabled(c models.Control, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled[c] = enabled
}

func newTestSynchronizer() (*Synchronizer, *models.ProcessingConfiguration, *echoRecorder) {
	config := models.NewProcessingConfiguration(models.DefaultParameters())
	echo := newEchoRecorder()
	return NewSynchronizer(config, echo, nil), config, echo
}

func TestApplyHysteresisCorrectsInversion(t *testing.T) {
	pairs := [][2]int{{50, 50}, {50, 10}, {0, 0}, {254, 3}}
	for _, pair := range pairs {
		s, config, echo := newTestSynchronizer()

		stored := s.ApplyHysteresis(pair[0], pair[1])

		snap := config.Snapshot().EdgeDetection
		assert.Equal(t, pair[0]+1, stored)
		assert.Equal(t, pair[0], snap.HysteresisMin)
		assert.Equal(t, pair[0]+1, snap.HysteresisMax)
		assert.Equal(t, float64(pair[0]+1), echo.values[models.ControlHysteresisMax])
	}
}

func TestApplyHysteresisKeepsValidPair(t *testing.T) {
	s, config, echo := newTestSynchronizer()

	assert.Equal(t, 120, s.ApplyHysteresis(40, 120))

	snap := config.Snapshot().EdgeDetection
	assert.Equal(t, 40, snap.HysteresisMin)
	assert.Equal(t, 120, snap.HysteresisMax)
	assert.NotContains(t, echo.values, models.ControlHysteresisMax)
}

func TestApplyPreprocessingRotation(t *testing.T) {
	for deg := 0.0; deg < 360; deg += 15 {
		s, config, echo := newTestSynchronizer()
		s.ApplyPreprocessing(1.0, deg, 3, 200, false)

		assert.InDelta(t, deg*math.Pi/180, config.Snapshot().Preprocessing.ImageRotation, 1e-12)
		assert.NotContains(t, echo.values, models.ControlRotation)
	}
}

func TestApplyPreprocessingWrapsFullTurn(t *testing.T) {
	s, config, echo := newTestSynchronizer()
	s.ApplyPreprocessing(0.8, 360, 5, 180, true)

	snap := config.Snapshot().Preprocessing
	assert.Zero(t, snap.ImageRotation)
	assert.Equal(t, float64(0), echo.values[models.ControlRotation])
	assert.Equal(t, 0.8, snap.ImageScaling)
	assert.Equal(t, 5, snap.GaussianBlur)
	assert.Equal(t, 180, snap.RedThreshold)
	assert.True(t, snap.Undistort)
}

func TestApplyScaling(t *testing.T) {
	s, config, _ := newTestSynchronizer()

	label := s.ApplyScaling(15)

	assert.InDelta(t, 1.5, config.Snapshot().Preprocessing.ImageScaling, 1e-9)
	assert.Equal(t, "Input image scaling: 1.50", label)
}

func TestApplyEdgeParamsConvertsTheta(t *testing.T) {
	s, config, _ := newTestSynchronizer()
	s.ApplyEdgeParams(2, 90, 70, 40, 120, 25)

	snap := config.Snapshot().SegmentDetection
	assert.Equal(t, 2.0, snap.DRho)
	assert.InDelta(t, math.Pi/2, snap.DTheta, 1e-12)
	assert.Equal(t, 70, snap.MinNumVotes)
	assert.Equal(t, 40.0, snap.MinLineLength)
	assert.Equal(t, 120.0, snap.MaxLineGap)
	assert.Equal(t, 25, snap.ExtensionPixels)
}

func TestApplyClusteringParamsGatesSiblingControls(t *testing.T) {
	s, config, echo := newTestSynchronizer()

	s.ApplyClusteringParams(ClusteringInput{KNN: true, NumClusters: 3, NumInit: 7, UseAngles: true})
	snap := config.Snapshot().SegmentClustering
	assert.Equal(t, models.ClusterKNN, snap.ClusterType)
	assert.Equal(t, 3, snap.NumClusters)
	assert.Equal(t, 7, snap.NumInit)
	assert.False(t, echo.enabled[models.ControlSwipeClusters])
	assert.True(t, echo.enabled[models.ControlNumInit])

	s.ApplyClusteringParams(ClusteringInput{GMM: true, NumClusters: 2, NumInit: 7, Swipe: true, UseCenters: true})
	snap = config.Snapshot().SegmentClustering
	assert.Equal(t, models.ClusterGMM, snap.ClusterType)
	assert.True(t, snap.SwipeClusters)
	assert.True(t, snap.UseCenters)
	assert.False(t, snap.UseAngles)
	assert.True(t, echo.enabled[models.ControlSwipeClusters])
	assert.False(t, echo.enabled[models.ControlNumInit])

	// the two controls are never editable at the same time
	assert.NotEqual(t, echo.enabled[models.ControlSwipeClusters], echo.enabled[models.ControlNumInit])
}

func TestApplyClusteringParamsWithoutSelectionKeepsType(t *testing.T) {
	s, config, echo := newTestSynchronizer()
	before := config.Snapshot().SegmentClustering.ClusterType

	s.ApplyClusteringParams(ClusteringInput{NumClusters: 4, NumInit: 2})

	assert.Equal(t, before, config.Snapshot().SegmentClustering.ClusterType)
	assert.Equal(t, 4, config.Snapshot().SegmentClustering.NumClusters)
	assert.Empty(t, echo.enabled)
}

func TestApplyClusterCleaningParams(t *testing.T) {
	s, config, _ := newTestSynchronizer()
	s.ApplyClusterCleaningParams(30, 45, 12)

	snap := config.Snapshot().ClusterCleaning
	assert.InDelta(t, math.Pi/6, snap.MaxAngleVariationMean, 1e-12)
	assert.InDelta(t, math.Pi/4, snap.MaxMergingAngle, 1e-12)
	assert.Equal(t, 12.0, snap.MaxEndpointDistance)
}

func TestApplyRectangleParams(t *testing.T) {
	s, config, _ := newTestSynchronizer()
	s.ApplyRectangleParams(1.8, 0.2, 1200)

	snap := config.Snapshot().RectangleDetection
	assert.Equal(t, 1.8, snap.AspectRatio)
	assert.Equal(t, 0.2, snap.AspectRatioRelativeDeviation)
	assert.Equal(t, 1200.0, snap.MinArea)
}

func TestOperationsAreIdempotent(t *testing.T) {
	s, config, _ := newTestSynchronizer()

	s.ApplyEdgeParams(1, 2, 3, 4, 5, 6)
	s.ApplyHysteresis(10, 5)
	first := config.Snapshot()
	s.ApplyEdgeParams(1, 2, 3, 4, 5, 6)
	s.ApplyHysteresis(10, 5)

	assert.Equal(t, first, config.Snapshot())
}

func TestBindSwitchesTarget(t *testing.T) {
	s, old, _ := newTestSynchronizer()
	fresh := models.NewProcessingConfiguration(models.DefaultParameters())

	s.Bind(fresh)
	s.ApplyDilation(9)

	require.Same(t, fresh, s.Configuration())
	assert.Equal(t, 9, fresh.Snapshot().EdgeDetection.DilationSteps)
	assert.NotEqual(t, 9, old.Snapshot().EdgeDetection.DilationSteps)
}
