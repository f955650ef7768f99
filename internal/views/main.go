package views

import (
	"fmt"
	"image"
	"path/filepath"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"thermo-gui/internal/config"
	"thermo-gui/internal/controllers"
	"thermo-gui/internal/logger"
	"thermo-gui/internal/models"
	"thermo-gui/internal/params"
	"thermo-gui/internal/views/components"
)

const component = "MainView"

// MainView is the thermography window. It implements controllers.View; the controller
// calls it on the fyne thread.
type MainView struct {
	window     fyne.Window
	controller *controllers.FrameController
	logger     logger.Logger

	toolbar       *components.Toolbar
	panels        *components.PanelGrid
	paramPanel    *components.ParameterPanel
	mainContainer *fyne.Container

	lastFolder string
}

// NewMainView builds the window content for controller, seeded from cfg
func NewMainView(window fyne.Window, controller *controllers.FrameController, cfg config.Config, log logger.Logger) *MainView {
	if log == nil {
		log = logger.Nop()
	}
	mv := &MainView{
		window:     window,
		controller: controller,
		logger:     log,
		lastFolder: cfg.Video.LastFolder,
	}

	mv.initializeComponents(cfg)
	mv.buildLayout()
	mv.setupEventHandlers()
	return mv
}

func (mv *MainView) initializeComponents(cfg config.Config) {
	ticks := cfg.Parameters.Preprocessing.ImageScaling / params.ScalingStep
	mv.toolbar = components.NewToolbar(cfg.Video.StartFrame, cfg.Video.EndFrame, ticks)
	mv.toolbar.SetScalingLabel(params.ScalingLabel(cfg.Parameters.Preprocessing.ImageScaling))
	mv.panels = components.NewPanelGrid(4)
	mv.paramPanel = components.NewParameterPanel(cfg.Parameters, mv.controller.Parameters(), mv.toolbar.ScalingTicks)
}

func (mv *MainView) buildLayout() {
	content := container.NewHSplit(
		container.NewScroll(mv.panels.GetContainer()),
		mv.paramPanel.GetContainer(),
	)
	content.SetOffset(0.72)

	mv.mainContainer = container.NewBorder(mv.toolbar.GetContainer(), nil, nil, nil, content)
	mv.window.SetContent(mv.mainContainer)
}

func (mv *MainView) setupEventHandlers() {
	mv.toolbar.SetLoadHandler(mv.showFileDialog)
	mv.toolbar.SetWebcamHandler(mv.showWebcamDialog)
	mv.toolbar.SetStartHandler(func() { mv.report("start", mv.controller.Start()) })
	mv.toolbar.SetPauseHandler(func() { mv.report("pause", mv.controller.Pause()) })
	mv.toolbar.SetStopHandler(func() { mv.report("stop", mv.controller.Stop()) })
	mv.toolbar.SetResetHandler(mv.controller.Reset)
	mv.toolbar.SetScalingHandler(func(ticks float64) {
		mv.toolbar.SetScalingLabel(mv.controller.Parameters().ApplyScaling(ticks))
	})
}

// report logs a failed run operation; state errors are expected from stale clicks
func (mv *MainView) report(operation string, err error) {
	if err == nil {
		return
	}
	mv.logger.Warning(component, "operation rejected", map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
	})
}

func (mv *MainView) showFileDialog() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mv.ShowError(err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		_ = reader.Close()

		mv.lastFolder = filepath.Dir(path)
		start, end := mv.toolbar.FrameRange()
		if err := mv.controller.Load(path, start, end); err != nil {
			mv.ShowError(err)
		}
	}, mv.window)

	fd.SetFilter(storage.NewExtensionFileFilter(models.VideoExtensions))
	if mv.lastFolder != "" {
		if location, err := storage.ListerForURI(storage.NewFileURI(mv.lastFolder)); err == nil {
			fd.SetLocation(location)
		}
	}
	fd.Show()
}

func (mv *MainView) showWebcamDialog() {
	device := widget.NewEntry()
	device.SetText("0")
	device.Validator = func(text string) error {
		if _, err := parseDevice(text); err != nil {
			return err
		}
		return nil
	}

	items := []*widget.FormItem{widget.NewFormItem("Device index", device)}
	dialog.ShowForm("Webcam", "Use", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}
		index, err := parseDevice(device.Text)
		if err != nil {
			mv.ShowError(err)
			return
		}
		if err := mv.controller.LoadWebcam(index); err != nil {
			mv.ShowError(err)
			return
		}
		mv.report("start", mv.controller.Start())
	}, mv.window)
}

func parseDevice(text string) (int, error) {
	index, err := strconv.Atoi(text)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("device index must be a non-negative integer")
	}
	return index, nil
}

// ShowError displays an error dialog
func (mv *MainView) ShowError(err error) {
	mv.logger.Error(component, err, nil)
	dialog.ShowError(err, mv.window)
}

// LastFolder is the directory of the most recently opened video
func (mv *MainView) LastFolder() string {
	return mv.lastFolder
}

// Show displays the window
func (mv *MainView) Show() {
	mv.window.Show()
}

func (mv *MainView) SetControlValue(c models.Control, value float64) {
	if c == models.ControlScaling {
		mv.toolbar.SetScaling(value)
		return
	}
	mv.paramPanel.SetValue(c, value)
}

func (mv *MainView) SetControlEnabled(c models.Control, enabled bool) {
	obj := mv.toolbar.Control(c)
	if obj == nil {
		obj = mv.paramPanel.Control(c)
	}
	components.SetEnabled(obj, enabled)
}

func (mv *MainView) SetTitle(title string) {
	mv.window.SetTitle(title)
}

func (mv *MainView) SetProgressRange(upper int) {
	mv.toolbar.SetProgressRange(upper)
}

func (mv *MainView) SetProgress(value int) {
	mv.toolbar.SetProgress(value)
}

func (mv *MainView) SetScalingLabel(label string) {
	mv.toolbar.SetScalingLabel(label)
}

func (mv *MainView) PaintPanel(kind models.FrameKind, img image.Image) {
	mv.panels.Panel(kind).Paint(img)
}

func (mv *MainView) ResizePanel(kind models.FrameKind, width, height int) {
	mv.panels.Panel(kind).Resize(width, height)
}

func (mv *MainView) PanelSize(kind models.FrameKind) (int, int) {
	return mv.panels.Panel(kind).Size()
}

func (mv *MainView) ClearPanel(kind models.FrameKind, caption string) {
	mv.panels.Panel(kind).Clear(caption)
}

var _ controllers.View = (*MainView)(nil)
