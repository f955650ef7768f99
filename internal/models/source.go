package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// UnboundedFrame as an end frame means "run to the end of the source"
const UnboundedFrame = -1

// VideoExtensions lists the container formats accepted by the file picker
var VideoExtensions = []string{".mov", ".mp4", ".avi"}

// SourceKind distinguishes file playback from live capture
type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceWebcam
)

func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "file"
	case SourceWebcam:
		return "webcam"
	default:
		return "unknown"
	}
}

// Source describes what a run reads frames from. Exactly one of Path or Device is used,
// selected by Kind.
type Source struct {
	Kind       SourceKind
	Path       string
	StartFrame int
	EndFrame   int
	Device     int
}

// FileSource creates a file source over [start, end). end == UnboundedFrame runs to the end.
func FileSource(path string, start, end int) Source {
	return Source{Kind: SourceFile, Path: path, StartFrame: start, EndFrame: end, Device: -1}
}

// WebcamSource creates a live capture source for a device index
func WebcamSource(device int) Source {
	return Source{Kind: SourceWebcam, Device: device, EndFrame: UnboundedFrame}
}

// Stoppable reports whether the run has a natural end and may be cancelled
func (s Source) Stoppable() bool {
	return s.Kind == SourceFile
}

// Bounded reports whether an explicit end frame was given
func (s Source) Bounded() bool {
	return s.EndFrame != UnboundedFrame
}

// Title is the window title shown while the source is bound
func (s Source) Title() string {
	if s.Kind == SourceWebcam {
		return "Thermography: Webcam"
	}
	return fmt.Sprintf("Thermography: %s", s.Path)
}

// Validate checks the descriptor before a worker opens it
func (s Source) Validate() error {
	switch s.Kind {
	case SourceFile:
		if err := ValidateVideoPath(s.Path); err != nil {
			return err
		}
		if s.StartFrame < 0 {
			return NewValidationError("start_frame", s.StartFrame, "must not be negative")
		}
		if s.Bounded() && s.EndFrame <= s.StartFrame {
			return NewValidationError("end_frame", s.EndFrame, "must exceed start_frame")
		}
	case SourceWebcam:
		if s.Device < 0 {
			return NewValidationError("device", s.Device, "must not be negative")
		}
	default:
		return NewValidationError("kind", s.Kind, "unknown source kind")
	}
	return nil
}

// ValidateVideoPath accepts non-empty paths with a supported container extension
func ValidateVideoPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return NewValidationError("path", path, "empty path")
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range VideoExtensions {
		if ext == allowed {
			return nil
		}
	}
	return NewValidationError("path", path, "unsupported video extension")
}
