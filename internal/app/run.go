package app

import (
	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"agroassist/croprec/croprec"
	"agroassist/croprec/internal/logging"
)

const (
	fyneAppID   = "agroassist.croprec"
	windowTitle = "Crop Recommendation"
)

// Run builds the logger, client and session for cfg and starts the desktop
// window. Settings changed in the window are written to configPath.
func Run(cfg croprec.Config, configPath string) error {
	logBind := binding.NewString()
	logs := newLogCapture(logBind, logLineLimit)
	logger, closeLog, err := logging.New(cfg.Log, logs)
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = logger.Sync() }()

	client := croprec.NewClient(cfg, croprec.WithLogger(logger))
	session, err := croprec.NewSession(client,
		croprec.WithSessionLogger(logger),
		croprec.WithDetailedErrors(cfg.DetailedErrors))
	if err != nil {
		return err
	}

	a := fyneapp.NewWithID(fyneAppID)
	logs.start()
	u := buildUI(a, client, session, logs, logBind, logger, configPath)
	logger.Info("window ready",
		zap.String("predict_url", cfg.Endpoints.PredictURL),
		zap.String("save_url", cfg.Endpoints.SaveURL))
	u.w.ShowAndRun()
	return nil
}

// ShowFatalError opens a window that only reports err and blocks until it is
// closed.
func ShowFatalError(err error) {
	a := fyneapp.NewWithID(fyneAppID)
	win := a.NewWindow(windowTitle)
	win.Resize(fyne.NewSize(480, 200))
	win.SetContent(widget.NewLabel(err.Error()))
	dialog.ShowError(err, win)
	win.ShowAndRun()
}
