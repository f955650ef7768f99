package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"thermo-gui/internal/models"
	"thermo-gui/internal/params"
)

const (
	radiansToDegrees = 1 / models.DegreesToRadians

	// hysteresisCeiling is the largest Canny threshold. The min slider stops one short
	// so the corrected max (min+1) always fits on its slider.
	hysteresisCeiling = 255
)

// Field is a labelled slider showing its current value
type Field struct {
	slider *widget.Slider
	value  *widget.Label
	format string
	row    fyne.CanvasObject
}

func newField(label string, lo, hi, step, value float64, format string) *Field {
	f := &Field{
		slider: widget.NewSlider(lo, hi),
		value:  widget.NewLabel(""),
		format: format,
	}
	f.slider.Step = step
	f.slider.SetValue(value)
	f.value.SetText(fmt.Sprintf(format, value))
	f.row = container.NewBorder(nil, nil, widget.NewLabel(label), f.value, f.slider)
	return f
}

func (f *Field) onChange(fn func()) {
	f.slider.OnChanged = func(v float64) {
		f.value.SetText(fmt.Sprintf(f.format, v))
		fn()
	}
}

// Value is the slider position
func (f *Field) Value() float64 { return f.slider.Value }

// Int is the slider position rounded to an integer
func (f *Field) Int() int { return int(f.slider.Value + 0.5) }

// Set moves the slider, firing its change handler
func (f *Field) Set(v float64) { f.slider.SetValue(v) }

// ParameterPanel holds the processing parameter controls. Every change is written
// through the synchronizer.
type ParameterPanel struct {
	sync    *params.Synchronizer
	scaling func() float64
	tabs    *container.AppTabs

	rotation  *Field
	blur      *Field
	threshold *Field
	undistort *widget.Check

	hysteresisMin *Field
	hysteresisMax *Field
	dilation      *Field

	dRho      *Field
	dTheta    *Field
	minVotes  *Field
	minLength *Field
	maxGap    *Field
	extension *Field

	clusterType *widget.RadioGroup
	numClusters *Field
	numInit     *Field
	useAngles   *widget.Check
	useCenters  *widget.Check
	swipe       *widget.Check

	maxAngleVariation *Field
	maxMergingAngle   *Field
	maxEndpointDist   *Field

	aspectRatio *Field
	deviation   *Field
	minArea     *Field
}

// NewParameterPanel builds the controls from defaults. scaling reports the current
// scaling slider ticks, which the preprocessing group writes alongside its own values.
func NewParameterPanel(defaults models.Parameters, sync *params.Synchronizer, scaling func() float64) *ParameterPanel {
	p := &ParameterPanel{sync: sync, scaling: scaling}
	p.createFields(defaults)
	p.connect()
	p.buildTabs()
	return p
}

func (p *ParameterPanel) createFields(d models.Parameters) {
	pre := d.Preprocessing
	p.rotation = newField("Rotation", 0, 360, 1, pre.ImageRotation*radiansToDegrees, "%.0f°")
	p.blur = newField("Blur", 0, 15, 1, float64(pre.GaussianBlur), "%.0f")
	p.threshold = newField("Temperature", 0, 255, 1, float64(pre.RedThreshold), "%.0f")
	p.undistort = widget.NewCheck("Undistort image", nil)
	p.undistort.SetChecked(pre.Undistort)

	edge := d.EdgeDetection
	p.hysteresisMin = newField("Min hysteresis", 0, hysteresisCeiling-1, 1, float64(edge.HysteresisMin), "%.0f")
	p.hysteresisMax = newField("Max hysteresis", 1, hysteresisCeiling, 1, float64(edge.HysteresisMax), "%.0f")
	p.dilation = newField("Dilation steps", 0, 10, 1, float64(edge.DilationSteps), "%.0f")

	seg := d.SegmentDetection
	p.dRho = newField("Delta rho", 1, 10, 1, seg.DRho, "%.0f")
	p.dTheta = newField("Delta theta", 0.1, 10, 0.1, seg.DTheta*radiansToDegrees, "%.1f°")
	p.minVotes = newField("Min votes", 1, 300, 1, float64(seg.MinNumVotes), "%.0f")
	p.minLength = newField("Min length", 1, 500, 1, seg.MinLineLength, "%.0f")
	p.maxGap = newField("Max gap", 0, 500, 1, seg.MaxLineGap, "%.0f")
	p.extension = newField("Extend segments", 0, 100, 1, float64(seg.ExtensionPixels), "%.0f")

	cl := d.SegmentClustering
	p.clusterType = widget.NewRadioGroup([]string{string(models.ClusterKNN), string(models.ClusterGMM)}, nil)
	p.clusterType.Horizontal = true
	p.clusterType.SetSelected(string(cl.ClusterType))
	p.numClusters = newField("Clusters", 2, 10, 1, float64(cl.NumClusters), "%.0f")
	p.numInit = newField("Init count", 1, 20, 1, float64(cl.NumInit), "%.0f")
	p.useAngles = widget.NewCheck("Use angles", nil)
	p.useAngles.SetChecked(cl.UseAngles)
	p.useCenters = widget.NewCheck("Use centers", nil)
	p.useCenters.SetChecked(cl.UseCenters)
	p.swipe = widget.NewCheck("Swipe clusters", nil)
	p.swipe.SetChecked(cl.SwipeClusters)
	SetEnabled(p.swipe, cl.ClusterType != models.ClusterKNN)
	SetEnabled(p.numInit.slider, cl.ClusterType == models.ClusterKNN)

	cc := d.ClusterCleaning
	p.maxAngleVariation = newField("Max angle variation", 0, 90, 1, cc.MaxAngleVariationMean*radiansToDegrees, "%.0f°")
	p.maxMergingAngle = newField("Max merging angle", 0, 90, 1, cc.MaxMergingAngle*radiansToDegrees, "%.0f°")
	p.maxEndpointDist = newField("Max merging distance", 0, 100, 1, cc.MaxEndpointDistance, "%.0f")

	rd := d.RectangleDetection
	p.aspectRatio = newField("Expected ratio", 0.5, 5, 0.05, rd.AspectRatio, "%.2f")
	p.deviation = newField("Max deviation", 0, 1, 0.01, rd.AspectRatioRelativeDeviation, "%.2f")
	p.minArea = newField("Min area", 0, 10000, 50, rd.MinArea, "%.0f")
}

func (p *ParameterPanel) connect() {
	for _, f := range []*Field{p.rotation, p.blur, p.threshold} {
		f.onChange(p.applyPreprocessing)
	}
	p.undistort.OnChanged = func(checked bool) { p.sync.ApplyUndistort(checked) }

	p.hysteresisMin.onChange(p.applyHysteresis)
	p.hysteresisMax.onChange(p.applyHysteresis)
	p.dilation.onChange(func() { p.sync.ApplyDilation(p.dilation.Int()) })

	for _, f := range []*Field{p.dRho, p.dTheta, p.minVotes, p.minLength, p.maxGap, p.extension} {
		f.onChange(p.applySegments)
	}

	p.clusterType.OnChanged = func(string) { p.applyClustering() }
	p.numClusters.onChange(p.applyClustering)
	p.numInit.onChange(p.applyClustering)
	for _, c := range []*widget.Check{p.useAngles, p.useCenters, p.swipe} {
		c.OnChanged = func(bool) { p.applyClustering() }
	}

	for _, f := range []*Field{p.maxAngleVariation, p.maxMergingAngle, p.maxEndpointDist} {
		f.onChange(p.applyCleaning)
	}
	for _, f := range []*Field{p.aspectRatio, p.deviation, p.minArea} {
		f.onChange(p.applyRectangles)
	}
}

func (p *ParameterPanel) applyPreprocessing() {
	p.sync.ApplyPreprocessing(p.scaling()*params.ScalingStep, p.rotation.Value(),
		p.blur.Int(), p.threshold.Int(), p.undistort.Checked)
}

func (p *ParameterPanel) applyHysteresis() {
	p.sync.ApplyHysteresis(p.hysteresisMin.Int(), p.hysteresisMax.Int())
}

func (p *ParameterPanel) applySegments() {
	p.sync.ApplyEdgeParams(p.dRho.Value(), p.dTheta.Value(), p.minVotes.Int(),
		p.minLength.Value(), p.maxGap.Value(), p.extension.Int())
}

func (p *ParameterPanel) applyClustering() {
	p.sync.ApplyClusteringParams(params.ClusteringInput{
		KNN:         p.clusterType.Selected == string(models.ClusterKNN),
		GMM:         p.clusterType.Selected == string(models.ClusterGMM),
		NumClusters: p.numClusters.Int(),
		NumInit:     p.numInit.Int(),
		UseAngles:   p.useAngles.Checked,
		UseCenters:  p.useCenters.Checked,
		Swipe:       p.swipe.Checked,
	})
}

func (p *ParameterPanel) applyCleaning() {
	p.sync.ApplyClusterCleaningParams(p.maxAngleVariation.Value(), p.maxMergingAngle.Value(), p.maxEndpointDist.Value())
}

func (p *ParameterPanel) applyRectangles() {
	p.sync.ApplyRectangleParams(p.aspectRatio.Value(), p.deviation.Value(), p.minArea.Value())
}

func (p *ParameterPanel) buildTabs() {
	group := func(objects ...fyne.CanvasObject) fyne.CanvasObject {
		return container.NewVScroll(container.NewVBox(objects...))
	}

	p.tabs = container.NewAppTabs(
		container.NewTabItem("Preprocessing", group(p.rotation.row, p.blur.row, p.threshold.row, p.undistort)),
		container.NewTabItem("Edges", group(p.hysteresisMin.row, p.hysteresisMax.row, p.dilation.row)),
		container.NewTabItem("Segments", group(p.dRho.row, p.dTheta.row, p.minVotes.row,
			p.minLength.row, p.maxGap.row, p.extension.row)),
		container.NewTabItem("Clustering", group(p.clusterType, p.numClusters.row, p.numInit.row,
			p.useAngles, p.useCenters, p.swipe)),
		container.NewTabItem("Cleaning", group(p.maxAngleVariation.row, p.maxMergingAngle.row, p.maxEndpointDist.row)),
		container.NewTabItem("Rectangles", group(p.aspectRatio.row, p.deviation.row, p.minArea.row)),
	)
}

// Control returns the widget behind a parameter control, or nil
func (p *ParameterPanel) Control(c models.Control) fyne.CanvasObject {
	switch c {
	case models.ControlUndistort:
		return p.undistort
	case models.ControlHysteresisMax:
		return p.hysteresisMax.slider
	case models.ControlRotation:
		return p.rotation.slider
	case models.ControlSwipeClusters:
		return p.swipe
	case models.ControlNumInit:
		return p.numInit.slider
	}
	return nil
}

// Field returns the slider field behind a parameter control, or nil
func (p *ParameterPanel) Field(c models.Control) *Field {
	switch c {
	case models.ControlHysteresisMax:
		return p.hysteresisMax
	case models.ControlRotation:
		return p.rotation
	case models.ControlNumInit:
		return p.numInit
	}
	return nil
}

// SetValue moves a parameter control to value. Checks treat non-zero as checked.
func (p *ParameterPanel) SetValue(c models.Control, value float64) {
	switch c {
	case models.ControlUndistort:
		p.undistort.SetChecked(value != 0)
	case models.ControlHysteresisMax:
		p.hysteresisMax.Set(value)
	case models.ControlRotation:
		p.rotation.Set(value)
	case models.ControlSwipeClusters:
		p.swipe.SetChecked(value != 0)
	case models.ControlNumInit:
		p.numInit.Set(value)
	}
}

// GetContainer returns the tabbed parameter groups
func (p *ParameterPanel) GetContainer() fyne.CanvasObject {
	return p.tabs
}

// SetEnabled enables or disables obj when it supports it
func SetEnabled(obj fyne.CanvasObject, enabled bool) {
	d, ok := obj.(fyne.Disableable)
	if !ok {
		return
	}
	if enabled {
		d.Enable()
	} else {
		d.Disable()
	}
}
