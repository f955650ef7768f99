// Package params keeps the shared ProcessingConfiguration consistent with the
// state of the parameter controls, including while a run is active.
package params

import (
	"fmt"
	"sync"

	"thermo-gui/internal/logger"
	"thermo-gui/internal/models"
)

const component = "ParameterSynchronizer"

// ScalingStep converts scaling slider ticks to a scale factor
const ScalingStep = 0.1

// ControlEcho lets the synchronizer push corrected values and enablement back to the controls
type ControlEcho interface {
	SetControlValue(control models.Control, value float64)
	SetControlEnabled(control models.Control, enabled bool)
}

// ClusteringInput is the state of the clustering controls
type ClusteringInput struct {
	KNN         bool
	GMM         bool
	NumClusters int
	NumInit     int
	UseAngles   bool
	UseCenters  bool
	Swipe       bool
}

// Synchronizer writes control values into the bound configuration
type Synchronizer struct {
	mu     sync.RWMutex
	config *models.ProcessingConfiguration
	echo   ControlEcho
	logger logger.Logger
}

// NewSynchronizer creates a synchronizer writing into config
func NewSynchronizer(config *models.ProcessingConfiguration, echo ControlEcho, log logger.Logger) *Synchronizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synchronizer{config: config, echo: echo, logger: log}
}

// Bind switches the configuration subsequent writes go to
func (s *Synchronizer) Bind(config *models.ProcessingConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
}

// SetEcho replaces the control surface corrections are reflected on
func (s *Synchronizer) SetEcho(echo ControlEcho) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.echo = echo
}

// Configuration returns the currently bound configuration
func (s *Synchronizer) Configuration() *models.ProcessingConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *Synchronizer) update(fn func(p *models.Parameters)) {
	s.mu.RLock()
	config := s.config
	s.mu.RUnlock()
	if config != nil {
		config.Update(fn)
	}
}

func (s *Synchronizer) setValue(control models.Control, value float64) {
	s.mu.RLock()
	echo := s.echo
	s.mu.RUnlock()
	if echo != nil {
		echo.SetControlValue(control, value)
	}
}

func (s *Synchronizer) setEnabled(control models.Control, enabled bool) {
	s.mu.RLock()
	echo := s.echo
	s.mu.RUnlock()
	if echo != nil {
		echo.SetControlEnabled(control, enabled)
	}
}

// ApplyPreprocessing writes the preprocessing group. A rotation of 360 degrees is
// stored as 0 and the rotation control is reset to 0.
func (s *Synchronizer) ApplyPreprocessing(scale, rotationDegrees float64, blur, threshold int, undistort bool) {
	wrapped := rotationDegrees == 360
	if wrapped {
		rotationDegrees = 0
	}

	s.update(func(p *models.Parameters) {
		p.Preprocessing.ImageScaling = scale
		p.Preprocessing.ImageRotation = rotationDegrees * models.DegreesToRadians
		p.Preprocessing.GaussianBlur = blur
		p.Preprocessing.RedThreshold = threshold
		p.Preprocessing.Undistort = undistort
	})
	if wrapped {
		s.setValue(models.ControlRotation, 0)
	}

	s.logger.Debug(component, "preprocessing updated", map[string]interface{}{
		"scale":     scale,
		"rotation":  rotationDegrees,
		"blur":      blur,
		"threshold": threshold,
		"undistort": undistort,
	})
}

// ApplyScaling converts slider ticks to a scale factor, stores it and returns the label text
func (s *Synchronizer) ApplyScaling(ticks float64) string {
	scale := ticks * ScalingStep
	s.update(func(p *models.Parameters) {
		p.Preprocessing.ImageScaling = scale
	})
	return ScalingLabel(scale)
}

// ScalingLabel formats the text shown next to the scaling slider
func ScalingLabel(scale float64) string {
	return fmt.Sprintf("Input image scaling: %0.2f", scale)
}

// ApplyUndistort toggles lens undistortion
func (s *Synchronizer) ApplyUndistort(undistort bool) {
	s.update(func(p *models.Parameters) {
		p.Preprocessing.Undistort = undistort
	})
}

// ApplyHysteresis writes both thresholds. When max <= min, max becomes min+1 and the
// corrected value is reflected on the max control. The stored max is returned.
func (s *Synchronizer) ApplyHysteresis(minThresh, maxThresh int) int {
	corrected := maxThresh <= minThresh
	if corrected {
		maxThresh = minThresh + 1
	}

	s.update(func(p *models.Parameters) {
		p.EdgeDetection.HysteresisMin = minThresh
		p.EdgeDetection.HysteresisMax = maxThresh
	})
	if corrected {
		s.setValue(models.ControlHysteresisMax, float64(maxThresh))
		s.logger.Debug(component, "hysteresis max corrected", map[string]interface{}{
			"min": minThresh,
			"max": maxThresh,
		})
	}
	return maxThresh
}

// ApplyDilation writes the number of dilation steps applied to the edge map
func (s *Synchronizer) ApplyDilation(steps int) {
	s.update(func(p *models.Parameters) {
		p.EdgeDetection.DilationSteps = steps
	})
}

// ApplyEdgeParams writes the segment detection group
func (s *Synchronizer) ApplyEdgeParams(dRho, dThetaDegrees float64, minVotes int, minLength, maxGap float64, extension int) {
	s.update(func(p *models.Parameters) {
		p.SegmentDetection.DRho = dRho
		p.SegmentDetection.DTheta = dThetaDegrees * models.DegreesToRadians
		p.SegmentDetection.MinNumVotes = minVotes
		p.SegmentDetection.MinLineLength = minLength
		p.SegmentDetection.MaxLineGap = maxGap
		p.SegmentDetection.ExtensionPixels = extension
	})
}

// ApplyClusteringParams writes the clustering group. The selected algorithm gates which
// sibling control is editable: knn disables swipe and enables num-init, gmm the inverse.
func (s *Synchronizer) ApplyClusteringParams(in ClusteringInput) {
	var selected models.ClusterType
	switch {
	case in.KNN:
		selected = models.ClusterKNN
	case in.GMM:
		selected = models.ClusterGMM
	}

	s.update(func(p *models.Parameters) {
		c := &p.SegmentClustering
		c.NumInit = in.NumInit
		c.SwipeClusters = in.Swipe
		c.NumClusters = in.NumClusters
		c.UseCenters = in.UseCenters
		c.UseAngles = in.UseAngles
		if selected != "" {
			c.ClusterType = selected
		}
	})

	switch selected {
	case models.ClusterKNN:
		s.setEnabled(models.ControlSwipeClusters, false)
		s.setEnabled(models.ControlNumInit, true)
	case models.ClusterGMM:
		s.setEnabled(models.ControlSwipeClusters, true)
		s.setEnabled(models.ControlNumInit, false)
	}
}

// ApplyClusterCleaningParams writes the cluster cleaning group. Angles are in degrees,
// the endpoint distance in pixels.
func (s *Synchronizer) ApplyClusterCleaningParams(maxAngleVariationDegrees, maxMergingAngleDegrees, maxEndpointDistance float64) {
	s.update(func(p *models.Parameters) {
		p.ClusterCleaning.MaxAngleVariationMean = maxAngleVariationDegrees * models.DegreesToRadians
		p.ClusterCleaning.MaxMergingAngle = maxMergingAngleDegrees * models.DegreesToRadians
		p.ClusterCleaning.MaxEndpointDistance = maxEndpointDistance
	})
}

// ApplyRectangleParams writes the rectangle detection group
func (s *Synchronizer) ApplyRectangleParams(aspectRatio, maxDeviation, minArea float64) {
	s.update(func(p *models.Parameters) {
		p.RectangleDetection.AspectRatio = aspectRatio
		p.RectangleDetection.AspectRatioRelativeDeviation = maxDeviation
		p.RectangleDetection.MinArea = minArea
	})
}
