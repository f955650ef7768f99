package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"thermo-gui/internal/config"
	"thermo-gui/internal/controllers"
	"thermo-gui/internal/logger"
	"thermo-gui/internal/models"
	"thermo-gui/internal/opencv"
	"thermo-gui/internal/pipeline"
	"thermo-gui/internal/shutdown"
	"thermo-gui/internal/views"
)

const (
	AppName    = "Thermography"
	AppID      = "com.thermography.thermo-gui"
	AppVersion = "1.0.0"
)

// Application wires the window, the frame controller and the processing engine
type Application struct {
	fyneApp fyne.App
	window  fyne.Window
	logger  logger.Logger

	cfg        *config.Config
	cfgPath    string
	parameters *models.ProcessingConfiguration
	engine     *opencv.PreviewEngine
	controller *controllers.FrameController
	view       *views.MainView
	shutdown   *shutdown.Manager
}

func main() {
	application, err := NewApplication()
	if err != nil {
		log.Fatalf("Application initialization failed: %v", err)
	}
	application.Run()
}

// NewApplication loads the settings file and builds every component
func NewApplication() (*Application, error) {
	cfgPath := config.PathFromEnv(os.Getenv)
	cfg, loadErr := config.Load(cfgPath)
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	appLogger := logger.New(logger.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
	if loadErr != nil {
		appLogger.Warning("Application", "settings file ignored, using defaults", map[string]interface{}{
			"path":  cfgPath,
			"error": loadErr.Error(),
		})
	}

	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
	})
	fyneApp := app.NewWithID(AppID)

	window := fyneApp.NewWindow(AppName)
	window.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))
	window.CenterOnScreen()

	parameters := models.NewProcessingConfiguration(cfg.Parameters)
	engine := opencv.NewPreviewEngine(opencv.Calibration{
		CameraMatrix: cfg.Calibration.CameraMatrix,
		Distortion:   cfg.Calibration.Distortion,
	}, appLogger)

	controller := controllers.NewFrameController(
		parameters,
		engine,
		opencv.Opener(),
		pipeline.Dispatcher(fyne.Do),
		appLogger,
	)
	mainView := views.NewMainView(window, controller, *cfg, appLogger)
	controller.SetView(mainView)

	manager := shutdown.NewManager(appLogger, shutdown.DefaultTimeout)
	manager.Register("engine", shutdown.Func(engine.Close))
	manager.Register("controller", controller)

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		logger:     appLogger,
		cfg:        cfg,
		cfgPath:    cfgPath,
		parameters: parameters,
		engine:     engine,
		controller: controller,
		view:       mainView,
		shutdown:   manager,
	}
	application.setupWindowEvents()

	appLogger.Info("Application", "application initialized", map[string]interface{}{
		"version":    AppVersion,
		"config":     cfgPath,
		"go_version": runtime.Version(),
		"undistort":  engine.Calibrated(),
		"log_level":  cfg.Log.Level,
	})
	return application, nil
}

// Run shows the window and blocks in the fyne event loop
func (a *Application) Run() {
	a.shutdown.Listen(func() {
		fyne.Do(a.fyneApp.Quit)
	})
	a.view.Show()
	a.fyneApp.Run()
	a.shutdown.Shutdown()
	a.saveSettings()
	a.logger.Info("Application", "application terminated", nil)
}

func (a *Application) setupWindowEvents() {
	a.window.SetOnClosed(func() {
		a.logger.Info("Application", "window closed", nil)
		a.shutdown.Shutdown()
	})
}

// saveSettings persists the folder and parameters the session ended with
func (a *Application) saveSettings() {
	a.cfg.Video.LastFolder = a.view.LastFolder()
	a.cfg.Parameters = a.parameters.Snapshot()
	if err := a.cfg.Save(a.cfgPath); err != nil {
		a.logger.Error("Application", fmt.Errorf("save settings: %w", err), map[string]interface{}{
			"path": a.cfgPath,
		})
	}
}
