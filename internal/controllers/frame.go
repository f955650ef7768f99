package controllers

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"thermo-gui/internal/conversion"
	"thermo-gui/internal/logger"
	"thermo-gui/internal/models"
	"thermo-gui/internal/params"
	"thermo-gui/internal/pipeline"
)

const (
	component = "FrameController"

	// IdleTitle is the window title with no source bound
	IdleTitle = "Thermography"

	// defaultScalingTicks is the scaling slider position for a factor of 1.0
	defaultScalingTicks = 1 / params.ScalingStep

	// ShutdownWait bounds how long Shutdown waits for workers to leave the engine
	ShutdownWait = 5 * time.Second
)

// View is the presentation surface the controller drives. All calls happen on the
// dispatcher's thread.
type View interface {
	params.ControlEcho

	SetTitle(title string)
	SetProgressRange(upper int)
	SetProgress(value int)
	SetScalingLabel(label string)

	PaintPanel(kind models.FrameKind, img image.Image)
	ResizePanel(kind models.FrameKind, width, height int)
	PanelSize(kind models.FrameKind) (width, height int)
	ClearPanel(kind models.FrameKind, caption string)
}

// FrameController drives one run of the processing engine over a source and fans its
// outputs out to the view. Each run gets its own worker; replaced workers are identified
// by generation and anything they still deliver is ignored.
type FrameController struct {
	config   *models.ProcessingConfiguration
	params   *params.Synchronizer
	engine   pipeline.Engine
	opener   pipeline.SourceOpener
	dispatch pipeline.Dispatcher
	logger   logger.Logger

	mu          sync.Mutex
	view        View
	worker      *pipeline.Worker
	retired     []*pipeline.Worker
	unsubscribe func()
	generation  uint64
	state       models.RunState
	source      models.Source
	stoppable   bool
	frameCount  int
}

// NewFrameController creates a controller in the idle state
func NewFrameController(
	config *models.ProcessingConfiguration,
	engine pipeline.Engine,
	opener pipeline.SourceOpener,
	dispatch pipeline.Dispatcher,
	log logger.Logger,
) *FrameController {
	if log == nil {
		log = logger.Nop()
	}
	if dispatch == nil {
		dispatch = pipeline.Inline()
	}

	fc := &FrameController{
		config:     config,
		params:     params.NewSynchronizer(config, nil, log),
		engine:     engine,
		opener:     opener,
		dispatch:   dispatch,
		logger:     log,
		view:       nopView{},
		state:      models.StateIdle,
		frameCount: models.UnboundedFrame,
	}
	fc.replaceWorker()
	return fc
}

// SetView attaches the view and brings it to the idle presentation
func (fc *FrameController) SetView(view View) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if view == nil {
		view = nopView{}
	}
	fc.view = view
	fc.params.SetEcho(view)
	fc.resetLocked()
}

// Parameters returns the synchronizer the parameter controls write through
func (fc *FrameController) Parameters() *params.Synchronizer {
	return fc.params
}

// State returns the current run state
func (fc *FrameController) State() models.RunState {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.state
}

// Stoppable reports whether the bound source may be stopped
func (fc *FrameController) Stoppable() bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.stoppable
}

// Generation identifies the current worker
func (fc *FrameController) Generation() uint64 {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.generation
}

// Stats reports the counters of the current worker
func (fc *FrameController) Stats() pipeline.RunStats {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.worker.Stats()
}

// Load binds a video file and frame range. An empty path is a cancelled selection and
// leaves everything untouched.
func (fc *FrameController) Load(path string, startFrame, endFrame int) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return fc.load(models.FileSource(path, startFrame, endFrame))
}

// LoadWebcam binds a live capture device. Live runs cannot be stopped, only paused.
func (fc *FrameController) LoadWebcam(device int) error {
	return fc.load(models.WebcamSource(device))
}

func (fc *FrameController) load(src models.Source) error {
	if err := src.Validate(); err != nil {
		return err
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	switch {
	case fc.state == models.StateRunning || fc.state == models.StatePaused:
		return fmt.Errorf("%w: cannot load while %s", models.ErrInvalidTransition, fc.state)
	case fc.state.Terminal():
		fc.resetLocked()
	}
	return fc.bindLocked(src)
}

func (fc *FrameController) bindLocked(src models.Source) error {
	count, err := fc.worker.Load(src)
	if err != nil {
		fc.logger.Error(component, err, map[string]interface{}{"source": src.Title()})
		return err
	}

	next, err := fc.state.Transition(models.StateLoaded)
	if err != nil {
		return err
	}
	fc.state = next
	fc.source = src
	fc.stoppable = src.Stoppable()
	fc.frameCount = count

	fc.view.SetTitle(src.Title())
	if count > 0 {
		fc.view.SetProgressRange(count - 1)
	} else {
		fc.view.SetProgressRange(0)
	}
	fc.view.SetProgress(0)

	if src.Kind == models.SourceWebcam {
		// Only the final value matters; the toggle mirrors the capture dialog.
		for _, undistort := range []bool{true, false} {
			fc.params.ApplyUndistort(undistort)
			fc.view.SetControlValue(models.ControlUndistort, boolValue(undistort))
		}
	}

	fc.view.SetControlEnabled(models.ControlStart, true)
	fc.view.SetControlEnabled(models.ControlPause, false)
	fc.view.SetControlEnabled(models.ControlStop, false)

	fc.logger.Info(component, "source bound", map[string]interface{}{
		"generation": fc.generation,
		"kind":       src.Kind.String(),
		"frames":     count,
		"stoppable":  fc.stoppable,
	})
	return nil
}

// Start runs the bound source, or resumes a paused run. Starting a finished run replays
// its source from the beginning on a fresh worker.
func (fc *FrameController) Start() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	switch fc.state {
	case models.StateIdle:
		return models.ErrNoSource
	case models.StateRunning:
		return nil
	case models.StateFinished:
		src := fc.source
		fc.resetLocked()
		if err := fc.bindLocked(src); err != nil {
			// Stay finished on the same source so the replay can be retried.
			fc.state = models.StateFinished
			fc.source = src
			fc.stoppable = src.Stoppable()
			fc.view.SetTitle(src.Title())
			fc.view.SetControlEnabled(models.ControlStart, true)
			return err
		}
	}

	resuming := fc.state == models.StatePaused
	next, err := fc.state.Transition(models.StateRunning)
	if err != nil {
		return err
	}
	if err := fc.worker.Start(); err != nil {
		return err
	}
	fc.state = next

	if !resuming {
		scale := fc.config.Snapshot().Preprocessing.ImageScaling
		fc.view.SetScalingLabel(params.ScalingLabel(scale))
	}
	fc.applyRunningControls()

	fc.logger.Info(component, "run started", map[string]interface{}{
		"generation": fc.generation,
		"resumed":    resuming,
	})
	return nil
}

// Pause suspends the run before its next frame
func (fc *FrameController) Pause() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	next, err := fc.state.Transition(models.StatePaused)
	if err != nil {
		return err
	}
	fc.worker.Pause()
	fc.state = next

	fc.view.SetControlEnabled(models.ControlStart, true)
	fc.view.SetControlEnabled(models.ControlPause, false)
	fc.view.SetControlEnabled(models.ControlStop, fc.stoppable)

	fc.logger.Info(component, "run paused", map[string]interface{}{"generation": fc.generation})
	return nil
}

// Stop cancels a file run immediately. Frames still in flight are discarded. Stop is a
// no-op for live capture and when nothing is running.
func (fc *FrameController) Stop() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if !fc.stoppable {
		return nil
	}
	if fc.state != models.StateRunning && fc.state != models.StatePaused {
		return nil
	}

	fc.worker.Stop()
	fc.state = models.StateFinished
	fc.applyIdleControls()

	fc.logger.Info(component, "run stopped", map[string]interface{}{"generation": fc.generation})
	return nil
}

// Reset discards the current worker, whatever its state, and returns to idle with a
// fresh one. Parameters other than scaling are kept.
func (fc *FrameController) Reset() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.resetLocked()
}

// Shutdown stops the current worker without touching the view and waits, up to
// ShutdownWait, for every stopped worker to return from the engine. The engine may
// be released once Shutdown returns.
func (fc *FrameController) Shutdown() {
	fc.mu.Lock()
	if fc.unsubscribe != nil {
		fc.unsubscribe()
		fc.unsubscribe = nil
	}
	fc.worker.Stop()
	pending := append(fc.retired, fc.worker)
	fc.retired = nil
	generation := fc.generation
	fc.mu.Unlock()

	// The lock is released first: an in-flight event may still be waiting on it.
	deadline := time.After(ShutdownWait)
	for _, w := range pending {
		select {
		case <-w.Done():
		case <-deadline:
			fc.logger.Warning(component, "worker still running at shutdown", map[string]interface{}{
				"generation": w.Generation(),
				"timeout":    ShutdownWait.String(),
			})
			return
		}
	}
	fc.logger.Info(component, "controller shut down", map[string]interface{}{"generation": generation})
}

func (fc *FrameController) resetLocked() {
	previous := fc.generation
	fc.replaceWorker()

	fc.state = models.StateIdle
	fc.source = models.Source{}
	fc.stoppable = false
	fc.frameCount = models.UnboundedFrame

	label := fc.params.ApplyScaling(defaultScalingTicks)

	fc.view.SetTitle(IdleTitle)
	fc.view.SetControlValue(models.ControlScaling, defaultScalingTicks)
	fc.view.SetScalingLabel(label)
	for _, kind := range models.FrameKinds {
		fc.view.ClearPanel(kind, kind.Caption())
	}
	fc.view.SetProgressRange(0)
	fc.view.SetProgress(0)

	fc.view.SetControlEnabled(models.ControlScaling, true)
	fc.view.SetControlEnabled(models.ControlStart, false)
	fc.view.SetControlEnabled(models.ControlPause, false)
	fc.view.SetControlEnabled(models.ControlStop, false)

	fc.logger.Debug(component, "reset", map[string]interface{}{
		"previous_generation": previous,
		"generation":          fc.generation,
	})
}

// replaceWorker hard-stops the current worker and subscribes to a new one
func (fc *FrameController) replaceWorker() {
	if fc.unsubscribe != nil {
		fc.unsubscribe()
		fc.unsubscribe = nil
	}
	if fc.worker != nil {
		fc.worker.Stop()
		fc.retired = append(pruneDone(fc.retired), fc.worker)
	}

	fc.generation++
	fc.worker = pipeline.NewWorker(fc.generation, fc.config, fc.engine, fc.opener, fc.dispatch, fc.logger)
	fc.unsubscribe = fc.worker.Bus().Subscribe(fc.handleEvent)
}

// pruneDone drops workers whose run loop has exited
func pruneDone(workers []*pipeline.Worker) []*pipeline.Worker {
	kept := workers[:0]
	for _, w := range workers {
		select {
		case <-w.Done():
		default:
			kept = append(kept, w)
		}
	}
	return kept
}

// handleEvent runs on the dispatcher's thread
func (fc *FrameController) handleEvent(ev pipeline.Event) {
	if ev.Generation != fc.Generation() {
		return
	}

	switch ev.Type {
	case pipeline.EventFrame:
		fc.onFrame(ev.Generation, ev.Kind, ev.Frame, ev.Index)
	case pipeline.EventProgress:
		fc.onProgress(ev.Generation, ev.Index)
	case pipeline.EventFinished:
		fc.onFinished(ev.Generation, ev.Finished)
	}
}

// OnFrame converts a frame for its panel and paints it. The classification map keeps
// its native size and the panel is resized to fit it; every other kind is scaled to its
// panel. A malformed frame is logged and the panel keeps its previous image.
func (fc *FrameController) OnFrame(kind models.FrameKind, frame models.Frame, index int) {
	fc.onFrame(fc.Generation(), kind, frame, index)
}

func (fc *FrameController) onFrame(generation uint64, kind models.FrameKind, frame models.Frame, index int) {
	img, err := conversion.ToDisplay(kind, frame)
	if err != nil {
		fc.logger.Warning(component, "frame dropped", map[string]interface{}{
			"kind":  kind.String(),
			"index": index,
			"error": err.Error(),
		})
		return
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if generation != fc.generation {
		return
	}

	if kind.NativeSize() {
		b := img.Bounds()
		fc.view.ResizePanel(kind, b.Dx(), b.Dy())
		fc.view.PaintPanel(kind, img)
		return
	}

	w, h := fc.view.PanelSize(kind)
	fc.view.PaintPanel(kind, conversion.FitToPanel(img, w, h))
}

// OnProgress moves the progress indicator to index. Live runs have no bound and are
// not tracked.
func (fc *FrameController) OnProgress(index int) {
	fc.onProgress(fc.Generation(), index)
}

func (fc *FrameController) onProgress(generation uint64, index int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if generation != fc.generation || fc.frameCount <= 0 {
		return
	}
	fc.view.SetProgress(index)
}

// OnFinished reflects whether the run is active. true leaves the controls as after a
// stop, false as while running.
func (fc *FrameController) OnFinished(finished bool) {
	fc.onFinished(fc.Generation(), finished)
}

func (fc *FrameController) onFinished(generation uint64, finished bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if generation != fc.generation {
		return
	}

	if !finished {
		if fc.state == models.StateRunning {
			fc.applyRunningControls()
		}
		return
	}

	if fc.state == models.StateRunning || fc.state == models.StatePaused {
		fc.state = models.StateFinished
	}
	fc.applyIdleControls()

	stats := fc.worker.Stats()
	fc.logger.Info(component, "run finished", map[string]interface{}{
		"generation":     fc.generation,
		"processed":      stats.Processed,
		"failed":         stats.Failed,
		"avg_frame_time": stats.AvgFrameTime.String(),
	})
}

func (fc *FrameController) applyRunningControls() {
	fc.view.SetControlEnabled(models.ControlScaling, false)
	fc.view.SetControlEnabled(models.ControlStart, false)
	fc.view.SetControlEnabled(models.ControlPause, true)
	fc.view.SetControlEnabled(models.ControlStop, fc.stoppable)
}

func (fc *FrameController) applyIdleControls() {
	fc.view.SetControlEnabled(models.ControlScaling, true)
	fc.view.SetControlEnabled(models.ControlStart, true)
	fc.view.SetControlEnabled(models.ControlPause, false)
	fc.view.SetControlEnabled(models.ControlStop, false)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type nopView struct{}

func (nopView) SetControlValue(models.Control, float64) {}
func (nopView) SetControlEnabled(models.Control, bool) {}
func (nopView) SetTitle(string) {}
func (nopView) SetProgressRange(int) {}
func (nopView) SetProgress(int) {}
func (nopView) SetScalingLabel(string) {}
func (nopView) PaintPanel(models.FrameKind, image.Image) {}
func (nopView) ResizePanel(models.FrameKind, int, int) {}
func (nopView) PanelSize(models.FrameKind) (int, int) { return 0, 0 }
func (nopView) ClearPanel(models.FrameKind, string) {}
