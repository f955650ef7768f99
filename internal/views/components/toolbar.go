package components

import (
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"thermo-gui/internal/models"
)

// Toolbar holds the run controls, the frame range and the progress bar
type Toolbar struct {
	container *fyne.Container

	loadButton   *widget.Button
	webcamButton *widget.Button
	startButton  *widget.Button
	pauseButton  *widget.Button
	stopButton   *widget.Button
	resetButton  *widget.Button

	startFrame *widget.Entry
	endFrame   *widget.Entry

	scaling      *widget.Slider
	scalingLabel *widget.Label

	progress *widget.ProgressBar

	loadHandler    func()
	webcamHandler  func()
	startHandler   func()
	pauseHandler   func()
	stopHandler    func()
	resetHandler   func()
	scalingHandler func(ticks float64)
}

// NewToolbar creates the run controls. Frame range entries start from the given values;
// an end of models.UnboundedFrame leaves the entry empty.
func NewToolbar(startFrame, endFrame int, scalingTicks float64) *Toolbar {
	t := &Toolbar{}

	t.loadButton = widget.NewButton("Load video", func() { call(t.loadHandler) })
	t.webcamButton = widget.NewButton("Detect webcam", func() { call(t.webcamHandler) })
	t.startButton = widget.NewButton("Play", func() { call(t.startHandler) })
	t.pauseButton = widget.NewButton("Pause", func() { call(t.pauseHandler) })
	t.stopButton = widget.NewButton("Stop", func() { call(t.stopHandler) })
	t.resetButton = widget.NewButton("Reset", func() { call(t.resetHandler) })

	t.startFrame = widget.NewEntry()
	t.startFrame.SetText(strconv.Itoa(startFrame))
	t.endFrame = widget.NewEntry()
	t.endFrame.SetPlaceHolder("end")
	if endFrame != models.UnboundedFrame {
		t.endFrame.SetText(strconv.Itoa(endFrame))
	}

	t.scalingLabel = widget.NewLabel("")
	t.scaling = widget.NewSlider(1, 30)
	t.scaling.Step = 1
	t.scaling.SetValue(scalingTicks)
	t.scaling.OnChanged = func(v float64) {
		if t.scalingHandler != nil {
			t.scalingHandler(v)
		}
	}

	t.progress = widget.NewProgressBar()
	t.progress.Min = 0
	t.progress.Max = 1

	t.pauseButton.Disable()
	t.stopButton.Disable()
	t.startButton.Disable()

	buttons := container.NewHBox(
		t.loadButton, t.webcamButton,
		widget.NewSeparator(),
		t.startButton, t.pauseButton, t.stopButton, t.resetButton,
	)
	frames := container.NewGridWithColumns(4,
		widget.NewLabel("Start frame"), t.startFrame,
		widget.NewLabel("End frame"), t.endFrame,
	)
	t.container = container.NewVBox(
		buttons,
		frames,
		container.NewBorder(nil, nil, t.scalingLabel, nil, t.scaling),
		t.progress,
	)
	return t
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func (t *Toolbar) SetLoadHandler(fn func()) { t.loadHandler = fn }
func (t *Toolbar) SetWebcamHandler(fn func()) { t.webcamHandler = fn }
func (t *Toolbar) SetStartHandler(fn func()) { t.startHandler = fn }
func (t *Toolbar) SetPauseHandler(fn func()) { t.pauseHandler = fn }
func (t *Toolbar) SetStopHandler(fn func()) { t.stopHandler = fn }
func (t *Toolbar) SetResetHandler(fn func()) { t.resetHandler = fn }
func (t *Toolbar) SetScalingHandler(fn func(ticks float64)) { t.scalingHandler = fn }

// FrameRange parses the range entries. An empty or invalid end means run to the end.
func (t *Toolbar) FrameRange() (start, end int) {
	start, err := strconv.Atoi(strings.TrimSpace(t.startFrame.Text))
	if err != nil || start < 0 {
		start = 0
	}
	end, err = strconv.Atoi(strings.TrimSpace(t.endFrame.Text))
	if err != nil || end <= start {
		end = models.UnboundedFrame
	}
	return start, end
}

// Control returns the widget behind a run control, or nil
func (t *Toolbar) Control(c models.Control) fyne.CanvasObject {
	switch c {
	case models.ControlStart:
		return t.startButton
	case models.ControlPause:
		return t.pauseButton
	case models.ControlStop:
		return t.stopButton
	case models.ControlScaling:
		return t.scaling
	}
	return nil
}

// SetScaling moves the scaling slider
func (t *Toolbar) SetScaling(ticks float64) {
	t.scaling.SetValue(ticks)
}

// ScalingTicks is the current slider position
func (t *Toolbar) ScalingTicks() float64 {
	return t.scaling.Value
}

// SetScalingLabel updates the text beside the scaling slider
func (t *Toolbar) SetScalingLabel(text string) {
	t.scalingLabel.SetText(text)
}

// SetProgressRange bounds the progress bar to [0, upper]
func (t *Toolbar) SetProgressRange(upper int) {
	t.progress.Min = 0
	t.progress.Max = float64(max(upper, 1))
	t.progress.SetValue(0)
}

// SetProgress moves the progress bar
func (t *Toolbar) SetProgress(value int) {
	t.progress.SetValue(float64(value))
}

// GetContainer returns the toolbar container
func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}
