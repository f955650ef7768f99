package models

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ClusterType selects the segment clustering algorithm
type ClusterType string

const (
	ClusterKNN ClusterType = "knn"
	ClusterGMM ClusterType = "gmm"
)

// PreprocessingParameters controls the per-frame input preparation
type PreprocessingParameters struct {
	ImageScaling  float64 `toml:"image_scaling"`
	ImageRotation float64 `toml:"image_rotation"` // radians
	GaussianBlur  int     `toml:"gaussian_blur"`
	RedThreshold  int     `toml:"red_threshold"`
	Undistort     bool    `toml:"undistort"`
}

// EdgeDetectionParameters holds the Canny hysteresis pair and dilation
type EdgeDetectionParameters struct {
	HysteresisMin int `toml:"hysteresis_min"`
	HysteresisMax int `toml:"hysteresis_max"`
	DilationSteps int `toml:"dilation_steps"`
}

// SegmentDetectionParameters configures the probabilistic Hough transform
type SegmentDetectionParameters struct {
	DRho            float64 `toml:"d_rho"`
	DTheta          float64 `toml:"d_theta"` // radians
	MinNumVotes     int     `toml:"min_num_votes"`
	MinLineLength   float64 `toml:"min_line_length"`
	MaxLineGap      float64 `toml:"max_line_gap"`
	ExtensionPixels int     `toml:"extension_pixels"`
}

// SegmentClusteringParameters configures how segments are grouped
type SegmentClusteringParameters struct {
	ClusterType   ClusterType `toml:"cluster_type"`
	NumClusters   int         `toml:"num_clusters"`
	NumInit       int         `toml:"num_init"`
	UseAngles     bool        `toml:"use_angles"`
	UseCenters    bool        `toml:"use_centers"`
	SwipeClusters bool        `toml:"swipe_clusters"`
}

// ClusterCleaningParameters bounds segment merging inside a cluster
type ClusterCleaningParameters struct {
	MaxAngleVariationMean float64 `toml:"max_angle_variation_mean"` // radians
	MaxMergingAngle       float64 `toml:"max_merging_angle"`        // radians
	MaxEndpointDistance   float64 `toml:"max_endpoint_distance"`
}

// RectangleDetectionParameters filters candidate module rectangles
type RectangleDetectionParameters struct {
	AspectRatio                  float64 `toml:"aspect_ratio"`
	AspectRatioRelativeDeviation float64 `toml:"aspect_ratio_relative_deviation"`
	MinArea                      float64 `toml:"min_area"`
}

// Parameters is the full set of values the processing engine reads per frame
type Parameters struct {
	Preprocessing      PreprocessingParameters      `toml:"preprocessing"`
	EdgeDetection      EdgeDetectionParameters      `toml:"edge_detection"`
	SegmentDetection   SegmentDetectionParameters   `toml:"segment_detection"`
	SegmentClustering  SegmentClusteringParameters  `toml:"segment_clustering"`
	ClusterCleaning    ClusterCleaningParameters    `toml:"cluster_cleaning"`
	RectangleDetection RectangleDetectionParameters `toml:"rectangle_detection"`
}

// DefaultParameters returns the values the controls start from
func DefaultParameters() Parameters {
	return Parameters{
		Preprocessing: PreprocessingParameters{
			ImageScaling:  1.0,
			ImageRotation: 0,
			GaussianBlur:  3,
			RedThreshold:  200,
			Undistort:     false,
		},
		EdgeDetection: EdgeDetectionParameters{
			HysteresisMin: 30,
			HysteresisMax: 140,
			DilationSteps: 4,
		},
		SegmentDetection: SegmentDetectionParameters{
			DRho:            1,
			DTheta:          1 * DegreesToRadians,
			MinNumVotes:     60,
			MinLineLength:   50,
			MaxLineGap:      150,
			ExtensionPixels: 30,
		},
		SegmentClustering: SegmentClusteringParameters{
			ClusterType:   ClusterGMM,
			NumClusters:   2,
			NumInit:       5,
			UseAngles:     true,
			UseCenters:    false,
			SwipeClusters: true,
		},
		ClusterCleaning: ClusterCleaningParameters{
			MaxAngleVariationMean: 20 * DegreesToRadians,
			MaxMergingAngle:       10 * DegreesToRadians,
			MaxEndpointDistance:   10,
		},
		RectangleDetection: RectangleDetectionParameters{
			AspectRatio:                  1.5,
			AspectRatioRelativeDeviation: 0.35,
			MinArea:                      800,
		},
	}
}

// Validate checks the cross-field constraints of the parameter set
func (p Parameters) Validate() error {
	if p.Preprocessing.ImageScaling <= 0 {
		return NewValidationError("image_scaling", p.Preprocessing.ImageScaling, "must be positive")
	}
	if p.EdgeDetection.HysteresisMax <= p.EdgeDetection.HysteresisMin {
		return NewValidationError("hysteresis_max", p.EdgeDetection.HysteresisMax, "must exceed hysteresis_min")
	}
	switch p.SegmentClustering.ClusterType {
	case ClusterKNN, ClusterGMM:
	default:
		return NewValidationError("cluster_type", p.SegmentClustering.ClusterType, "value not in allowed options")
	}
	return nil
}

// ProcessingConfiguration holds the Parameters shared between the UI and the worker.
// Readers get an immutable snapshot; writers mutate a private copy and swap it in,
// so a single frame never observes a mix of old and new fields.
type ProcessingConfiguration struct {
	writeMu sync.Mutex
	current atomic.Pointer[Parameters]
	version atomic.Uint64
}

// NewProcessingConfiguration creates a configuration seeded with params
func NewProcessingConfiguration(params Parameters) *ProcessingConfiguration {
	pc := &ProcessingConfiguration{}
	pc.current.Store(&params)
	return pc
}

// Snapshot returns a copy of the current parameters
func (pc *ProcessingConfiguration) Snapshot() Parameters {
	return *pc.current.Load()
}

// Update applies fn to a copy of the current parameters and publishes the result
func (pc *ProcessingConfiguration) Update(fn func(p *Parameters)) {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()

	next := *pc.current.Load()
	fn(&next)
	pc.current.Store(&next)
	pc.version.Add(1)
}

// Replace publishes params wholesale
func (pc *ProcessingConfiguration) Replace(params Parameters) {
	pc.Update(func(p *Parameters) { *p = params })
}

// Version increments on every write
func (pc *ProcessingConfiguration) Version() uint64 {
	return pc.version.Load()
}

// ValidationError represents a parameter validation error
type ValidationError struct {
	Parameter string
	Value     interface{}
	Message   string
}

// NewValidationError creates a new validation error
func NewValidationError(parameter string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Parameter: parameter,
		Value:     value,
		Message:   message,
	}
}

// Error returns the error message
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for parameter '%s' with value '%v': %s",
		ve.Parameter, ve.Value, ve.Message)
}
