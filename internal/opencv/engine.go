package opencv

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"thermo-gui/internal/logger"
	"thermo-gui/internal/models"
	"thermo-gui/internal/pipeline"
)

const engineComponent = "PreviewEngine"

var (
	segmentColor   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	rectangleColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

// Calibration holds a row-major 3x3 camera matrix and distortion coefficients
type Calibration struct {
	CameraMatrix []float64
	Distortion   []float64
}

// Valid reports whether the calibration can drive undistortion
func (c Calibration) Valid() bool {
	return len(c.CameraMatrix) == 9 && len(c.Distortion) >= 4
}

// PreviewEngine runs the detection front end on each frame: preprocessing, attention
// mask, edges, line segments and rectangle candidates. Clustering and module
// classification are not part of it.
type PreviewEngine struct {
	camera     gocv.Mat
	distortion gocv.Mat
	calibrated bool
	logger     logger.Logger
}

// NewPreviewEngine creates an engine. An invalid calibration disables undistortion.
func NewPreviewEngine(calib Calibration, log logger.Logger) *PreviewEngine {
	if log == nil {
		log = logger.Nop()
	}
	e := &PreviewEngine{logger: log}
	if calib.Valid() {
		e.camera = gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
		for i, v := range calib.CameraMatrix {
			e.camera.SetDoubleAt(i/3, i%3, v)
		}
		e.distortion = gocv.NewMatWithSize(1, len(calib.Distortion), gocv.MatTypeCV64F)
		for i, v := range calib.Distortion {
			e.distortion.SetDoubleAt(0, i, v)
		}
		e.calibrated = true
	}
	return e
}

// Calibrated reports whether undistortion is available
func (e *PreviewEngine) Calibrated() bool {
	return e.calibrated
}

// Close releases the calibration mats
func (e *PreviewEngine) Close() {
	if e.calibrated {
		e.camera.Close()
		e.distortion.Close()
		e.calibrated = false
	}
}

func (e *PreviewEngine) Process(ctx context.Context, input models.Frame, params models.Parameters) ([]pipeline.Output, error) {
	src, err := FrameToMat(input)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	if src.Channels() != 3 {
		return nil, fmt.Errorf("%w: input must be BGR, got %d channels", models.ErrMalformedFrame, src.Channels())
	}

	prepared := e.preprocess(src, params.Preprocessing)
	defer prepared.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attention := attentionMask(prepared, params.Preprocessing.RedThreshold)
	defer attention.Close()

	edges := detectEdges(prepared, params.EdgeDetection)
	defer edges.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segments := prepared.Clone()
	defer segments.Close()
	count := drawSegments(edges, &segments, params.SegmentDetection)

	rectangles := prepared.Clone()
	defer rectangles.Close()
	found := drawRectangles(edges, &rectangles, params.RectangleDetection)

	e.logger.Debug(engineComponent, "frame processed", map[string]interface{}{
		"width":      prepared.Cols(),
		"height":     prepared.Rows(),
		"segments":   count,
		"rectangles": found,
	})

	attentionBGR := gocv.NewMat()
	defer attentionBGR.Close()
	gocv.CvtColor(attention, &attentionBGR, gocv.ColorGrayToBGR)

	stages := []struct {
		kind models.FrameKind
		mat  gocv.Mat
	}{
		{models.FrameInput, prepared},
		{models.FrameAttention, attentionBGR},
		{models.FrameEdges, edges},
		{models.FrameSegments, segments},
		{models.FrameRectangles, rectangles},
	}

	outputs := make([]pipeline.Output, 0, len(stages))
	for _, stage := range stages {
		frame, err := MatToFrame(stage.mat)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", stage.kind, err)
		}
		outputs = append(outputs, pipeline.Output{Kind: stage.kind, Frame: frame})
	}
	return outputs, nil
}

// preprocess applies scaling, rotation, undistortion and blur in that order
func (e *PreviewEngine) preprocess(src gocv.Mat, p models.PreprocessingParameters) gocv.Mat {
	current := src.Clone()

	replace := func(next gocv.Mat) {
		current.Close()
		current = next
	}

	if p.ImageScaling > 0 && p.ImageScaling != 1 {
		scaled := gocv.NewMat()
		gocv.Resize(current, &scaled, image.Point{}, p.ImageScaling, p.ImageScaling, gocv.InterpolationLinear)
		replace(scaled)
	}

	if p.ImageRotation != 0 {
		center := image.Point{X: current.Cols() / 2, Y: current.Rows() / 2}
		rotation := gocv.GetRotationMatrix2D(center, p.ImageRotation*180/math.Pi, 1.0)
		rotated := gocv.NewMat()
		gocv.WarpAffine(current, &rotated, rotation, image.Point{X: current.Cols(), Y: current.Rows()})
		rotation.Close()
		replace(rotated)
	}

	if p.Undistort && e.calibrated {
		undistorted := gocv.NewMat()
		gocv.Undistort(current, &undistorted, e.camera, e.distortion, e.camera)
		replace(undistorted)
	}

	if k := oddKernel(p.GaussianBlur); k > 1 {
		blurred := gocv.NewMat()
		gocv.GaussianBlur(current, &blurred, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)
		replace(blurred)
	}

	return current
}

// attentionMask marks pixels whose red channel exceeds threshold
func attentionMask(src gocv.Mat, threshold int) gocv.Mat {
	channels := gocv.Split(src)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	mask := gocv.NewMat()
	gocv.Threshold(channels[2], &mask, float32(threshold), 255, gocv.ThresholdBinary)
	return mask
}

func detectEdges(src gocv.Mat, p models.EdgeDetectionParameters) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	gocv.Canny(gray, &edges, float32(p.HysteresisMin), float32(p.HysteresisMax))

	if p.DilationSteps > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
		defer kernel.Close()
		for i := 0; i < p.DilationSteps; i++ {
			dilated := gocv.NewMat()
			gocv.Dilate(edges, &dilated, kernel)
			edges.Close()
			edges = dilated
		}
	}
	return edges
}

// drawSegments runs the probabilistic Hough transform on edges and draws each segment,
// extended at both ends, onto dst
func drawSegments(edges gocv.Mat, dst *gocv.Mat, p models.SegmentDetectionParameters) int {
	if p.DRho <= 0 || p.DTheta <= 0 {
		return 0
	}

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, float32(p.DRho), float32(p.DTheta),
		p.MinNumVotes, float32(p.MinLineLength), float32(p.MaxLineGap))

	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		a, b := extendSegment(
			image.Point{X: int(v[0]), Y: int(v[1])},
			image.Point{X: int(v[2]), Y: int(v[3])},
			p.ExtensionPixels,
		)
		gocv.Line(dst, a, b, segmentColor, 1)
	}
	return lines.Rows()
}

// extendSegment pushes both endpoints outward by pixels along the segment direction
func extendSegment(a, b image.Point, pixels int) (image.Point, image.Point) {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	length := math.Hypot(dx, dy)
	if pixels <= 0 || length == 0 {
		return a, b
	}
	ux, uy := dx/length*float64(pixels), dy/length*float64(pixels)
	return image.Point{X: a.X - int(math.Round(ux)), Y: a.Y - int(math.Round(uy))},
		image.Point{X: b.X + int(math.Round(ux)), Y: b.Y + int(math.Round(uy))}
}

// drawRectangles outlines external contours of edges that look like modules
func drawRectangles(edges gocv.Mat, dst *gocv.Mat, p models.RectangleDetectionParameters) int {
	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	found := 0
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) < p.MinArea {
			continue
		}
		rect := gocv.BoundingRect(contour)
		if !AcceptRectangle(rect.Dx(), rect.Dy(), p) {
			continue
		}
		gocv.Rectangle(dst, rect, rectangleColor, 2)
		found++
	}
	return found
}

// AcceptRectangle applies the aspect ratio filter to a w x h box. The ratio is taken
// long side over short side so orientation does not matter.
func AcceptRectangle(w, h int, p models.RectangleDetectionParameters) bool {
	if w <= 0 || h <= 0 || p.AspectRatio <= 0 {
		return false
	}
	long, short := float64(max(w, h)), float64(min(w, h))
	deviation := math.Abs(long/short-p.AspectRatio) / p.AspectRatio
	return deviation <= p.AspectRatioRelativeDeviation
}

func oddKernel(size int) int {
	if size <= 1 {
		return 0
	}
	if size%2 == 0 {
		return size + 1
	}
	return size
}
