package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"thermo-gui/internal/models"
)

// ValidateMat rejects empty or non 8-bit mats before an operation touches them
func ValidateMat(mat gocv.Mat, operation string) error {
	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}
	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("Mat has invalid dimensions %dx%d for operation: %s",
			mat.Cols(), mat.Rows(), operation)
	}
	switch mat.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3:
		return nil
	default:
		return fmt.Errorf("unsupported MatType %d for operation: %s", int(mat.Type()), operation)
	}
}

// MatToFrame copies an 8-bit gray or BGR mat into a frame buffer
func MatToFrame(mat gocv.Mat) (models.Frame, error) {
	if err := ValidateMat(mat, "frame export"); err != nil {
		return models.Frame{}, err
	}

	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	frame := models.Frame{
		Width:    src.Cols(),
		Height:   src.Rows(),
		Channels: src.Channels(),
		Pix:      src.ToBytes(),
	}
	if err := frame.Validate(); err != nil {
		return models.Frame{}, err
	}
	return frame, nil
}

// FrameToMat builds a mat over a copy of the frame's pixels. The caller closes it.
func FrameToMat(frame models.Frame) (gocv.Mat, error) {
	if err := frame.Validate(); err != nil {
		return gocv.Mat{}, err
	}

	matType := gocv.MatTypeCV8UC3
	if frame.Channels == 1 {
		matType = gocv.MatTypeCV8UC1
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, matType, append([]byte(nil), frame.Pix...))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("mat from frame: %w", err)
	}
	return mat, nil
}
