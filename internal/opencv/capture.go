package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"thermo-gui/internal/models"
	"thermo-gui/internal/pipeline"
)

// VideoSource reads frames from a gocv capture, honoring a [start, end) range for files
type VideoSource struct {
	capture *gocv.VideoCapture
	buffer  gocv.Mat
	live    bool
	pos     int
	end     int
	length  int
}

// OpenSource opens a file or capture device
func OpenSource(src models.Source) (pipeline.FrameSource, error) {
	var (
		vs  *VideoSource
		err error
	)
	switch src.Kind {
	case models.SourceFile:
		vs, err = OpenFile(src.Path, src.StartFrame, src.EndFrame)
	case models.SourceWebcam:
		vs, err = OpenDevice(src.Device)
	default:
		return nil, fmt.Errorf("unsupported source kind %s", src.Kind)
	}
	if err != nil {
		return nil, err
	}
	return vs, nil
}

// Opener adapts OpenSource to the pipeline's opener contract
func Opener() pipeline.SourceOpener {
	return pipeline.SourceOpenerFunc(OpenSource)
}

// OpenFile opens a video and seeks to start. end == models.UnboundedFrame reads to the end.
func OpenFile(path string, start, end int) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %s: capture not opened", path)
	}

	total := int(capture.Get(gocv.VideoCaptureFrameCount))
	end, length, err := frameRange(start, end, total)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if start > 0 {
		capture.Set(gocv.VideoCapturePosFrames, float64(start))
	}

	return &VideoSource{
		capture: capture,
		buffer:  gocv.NewMat(),
		pos:     start,
		end:     end,
		length:  length,
	}, nil
}

// frameRange resolves the requested range against the container's frame count. A count
// of zero or less means the container does not know its length; the source then reads
// until the stream ends and reports models.UnboundedFrame.
func frameRange(start, end, total int) (int, int, error) {
	switch {
	case end == models.UnboundedFrame && total <= 0:
		return models.UnboundedFrame, models.UnboundedFrame, nil
	case end == models.UnboundedFrame || (total > 0 && end > total):
		end = total
	}
	if start >= end {
		return 0, 0, fmt.Errorf("frame range [%d, %d) is empty (%d frames)", start, end, total)
	}
	return end, end - start, nil
}

// OpenDevice opens a live capture device. Its length is unbounded.
func OpenDevice(device int) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open device %d: capture not opened", device)
	}
	return &VideoSource{
		capture: capture,
		buffer:  gocv.NewMat(),
		live:    true,
		end:     models.UnboundedFrame,
		length:  models.UnboundedFrame,
	}, nil
}

// Next reads one BGR frame. ok is false once the range or the stream is exhausted.
func (s *VideoSource) Next() (models.Frame, bool, error) {
	if !s.live && s.end != models.UnboundedFrame && s.pos >= s.end {
		return models.Frame{}, false, nil
	}
	if !s.capture.Read(&s.buffer) || s.buffer.Empty() {
		if s.live {
			return models.Frame{}, false, fmt.Errorf("device read failed")
		}
		return models.Frame{}, false, nil
	}
	s.pos++

	frame, err := MatToFrame(s.buffer)
	if err != nil {
		return models.Frame{}, false, err
	}
	return frame, true, nil
}

// Len is the number of frames in range, or models.UnboundedFrame for devices
func (s *VideoSource) Len() int {
	return s.length
}

// Close releases the capture
func (s *VideoSource) Close() error {
	s.buffer.Close()
	return s.capture.Close()
}
