package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"agroassist/croprec/croprec"
)

type exportFormat struct {
	Label    string
	FileName string
	Ext      string
	Write    func(io.Writer, croprec.Report) error
}

var (
	exportCSV      = exportFormat{Label: "CSV", FileName: "crop-recommendation.csv", Ext: ".csv", Write: croprec.WriteCSV}
	exportMarkdown = exportFormat{Label: "Markdown", FileName: "crop-recommendation.md", Ext: ".md", Write: croprec.WriteMarkdown}
)

type uiState struct {
	session    *croprec.Session
	client     *croprec.Client
	cfg        croprec.Config
	configPath string
	logger     *zap.Logger
	logs       *logCapture

	ctx    context.Context
	cancel context.CancelFunc
	// do runs f on the UI goroutine; async runs f in the background.
	do    func(f func())
	async func(f func())

	w             fyne.Window
	entries       map[croprec.Field]*widget.Entry
	status        *widget.Label
	statusBind    binding.String
	log           *widget.Entry
	logBind       binding.String
	configSummary *widget.Label
	resultList    *fyne.Container
	resultsBox    *fyne.Container
	checks        []*widget.Check
	shown         []croprec.Recommendation
	lastRev       uint64

	predictBtn   *widget.Button
	saveBtn      *widget.Button
	exportCSVBtn *widget.Button
	exportMDBtn  *widget.Button
	settingsBtn  *widget.Button
}

func buildUI(a fyne.App, client *croprec.Client, session *croprec.Session, logs *logCapture, logBind binding.String, logger *zap.Logger, configPath string) *uiState {
	ctx, cancel := context.WithCancel(context.Background())
	u := &uiState{
		session:    session,
		client:     client,
		cfg:        client.Config(),
		configPath: configPath,
		logger:     logger,
		logs:       logs,
		logBind:    logBind,
		ctx:        ctx,
		cancel:     cancel,
		do:         fyne.Do,
		async:      func(f func()) { go f() },
		entries:    make(map[croprec.Field]*widget.Entry, len(croprec.Fields)),
	}
	u.w = a.NewWindow(windowTitle)

	u.statusBind = binding.NewString()
	u.status = widget.NewLabelWithData(u.statusBind)
	u.status.Wrapping = fyne.TextWrapWord

	u.log = widget.NewEntryWithData(u.logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.SetPlaceHolder("Log")
	u.log.Disable()

	u.configSummary = widget.NewLabel("")
	u.configSummary.Wrapping = fyne.TextWrapWord

	items := make([]*widget.FormItem, 0, len(croprec.Fields))
	for _, field := range croprec.Fields {
		entry := widget.NewEntry()
		entry.SetPlaceHolder(field.Label())
		entry.Validator = croprec.ValidateMeasurement
		entry.OnChanged = func(text string) {
			if err := u.session.SetField(field, text); err != nil {
				u.logger.Warn("set field", zap.String("field", string(field)), zap.Error(err))
			}
		}
		u.entries[field] = entry
		items = append(items, widget.NewFormItem(field.Label(), entry))
	}
	form := widget.NewForm(items...)

	u.predictBtn = widget.NewButtonWithIcon("Predict", theme.ConfirmIcon(), func() { u.onPredict() })
	u.predictBtn.Importance = widget.HighImportance
	u.saveBtn = widget.NewButtonWithIcon("Save Selected Crops", theme.DocumentSaveIcon(), func() { u.onSave() })
	u.exportCSVBtn = widget.NewButtonWithIcon("Export CSV", theme.DownloadIcon(), func() { u.onExport(exportCSV) })
	u.exportMDBtn = widget.NewButtonWithIcon("Export Markdown", theme.DownloadIcon(), func() { u.onExport(exportMarkdown) })
	u.settingsBtn = widget.NewButtonWithIcon("Settings", theme.SettingsIcon(), func() { u.openSettings() })

	u.resultList = container.NewVBox()
	u.resultsBox = container.NewVBox(
		widget.NewLabelWithStyle("Recommended Crops", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.resultList,
		u.saveBtn,
	)
	u.resultsBox.Hide()

	left := container.NewVBox(
		widget.NewLabelWithStyle("Crop Recommendation", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		form,
		container.NewGridWithColumns(2, u.predictBtn, u.settingsBtn),
		u.status,
		widget.NewSeparator(),
		u.resultsBox,
		container.NewGridWithColumns(2, u.exportCSVBtn, u.exportMDBtn),
	)
	right := container.NewBorder(
		container.NewVBox(
			widget.NewLabelWithStyle("Settings", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			u.configSummary,
			widget.NewSeparator(),
			widget.NewLabelWithStyle("Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		),
		nil, nil, nil,
		u.log,
	)
	split := container.NewHSplit(container.NewVScroll(left), right)
	split.Offset = 0.45

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(960, 640))
	u.w.SetOnClosed(u.close)

	u.session.OnChange(func(snap croprec.Snapshot) {
		u.do(func() { u.render(snap) })
	})
	u.updateConfigSummary()
	u.render(u.session.Snapshot())
	return u
}

func (u *uiState) close() {
	u.cancel()
	if u.logs != nil {
		u.logs.stop()
	}
}

// render applies a snapshot to the widgets. Snapshots older than the last
// rendered one are ignored.
func (u *uiState) render(snap croprec.Snapshot) {
	if snap.Rev < u.lastRev {
		return
	}
	u.lastRev = snap.Rev
	_ = u.statusBind.Set(snap.Status)
	u.setBusy(snap)
	u.renderResults(snap)
}

func (u *uiState) setBusy(snap croprec.Snapshot) {
	if snap.Predicting {
		u.predictBtn.Disable()
	} else {
		u.predictBtn.Enable()
	}
	if snap.Saving {
		u.saveBtn.Disable()
	} else {
		u.saveBtn.Enable()
	}
	if snap.HasResults {
		u.exportCSVBtn.Enable()
		u.exportMDBtn.Enable()
	} else {
		u.exportCSVBtn.Disable()
		u.exportMDBtn.Disable()
	}
}

func (u *uiState) renderResults(snap croprec.Snapshot) {
	if !snap.HasResults {
		u.resultsBox.Hide()
		return
	}
	if !sameRecommendations(u.shown, snap.Results) {
		u.shown = append([]croprec.Recommendation{}, snap.Results...)
		u.checks = make([]*widget.Check, len(u.shown))
		objects := make([]fyne.CanvasObject, len(u.shown))
		for i, rec := range u.shown {
			crop := rec.Crop
			check := widget.NewCheck(rec.Label(), nil)
			check.Checked = snap.IsSelected(crop)
			check.OnChanged = func(checked bool) { u.onCheck(crop, checked) }
			u.checks[i] = check
			objects[i] = check
		}
		u.resultList.Objects = objects
		u.resultList.Refresh()
	} else {
		for i, check := range u.checks {
			want := snap.IsSelected(u.shown[i].Crop)
			if check.Checked == want {
				continue
			}
			onChanged := check.OnChanged
			check.OnChanged = nil
			check.SetChecked(want)
			check.OnChanged = onChanged
		}
	}
	u.resultsBox.Show()
}

func sameRecommendations(a, b []croprec.Recommendation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (u *uiState) onCheck(crop string, checked bool) {
	if u.session.Snapshot().IsSelected(crop) == checked {
		return
	}
	u.session.Toggle(crop)
}

func (u *uiState) onPredict() {
	for _, field := range croprec.Fields {
		entry := u.entries[field]
		if err := entry.Validate(); err != nil {
			u.w.Canvas().Focus(entry)
			dialog.ShowError(fmt.Errorf("%s: %w", field.Label(), err), u.w)
			return
		}
	}
	ctx := u.ctx
	u.async(func() {
		_ = u.session.Predict(ctx)
	})
}

func (u *uiState) onSave() {
	ctx := u.ctx
	u.async(func() {
		_ = u.session.Save(ctx)
	})
}

func (u *uiState) onExport(format exportFormat) {
	snap := u.session.Snapshot()
	if !snap.HasResults {
		dialog.ShowInformation("Export", "There are no recommendations to export yet.", u.w)
		return
	}
	report := croprec.ReportFromSnapshot(snap)
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if uc == nil {
			return
		}
		defer uc.Close()
		if err := format.Write(uc, report); err != nil {
			u.logger.Error("export failed", zap.String("format", format.Label), zap.Error(err))
			dialog.ShowError(err, u.w)
			return
		}
		u.logger.Info("exported recommendations",
			zap.String("format", format.Label),
			zap.String("path", uc.URI().Path()),
			zap.Int("crops", len(report.Results)))
	}, u.w)
	fd.SetFileName(format.FileName)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{format.Ext}))
	fd.Show()
}

func (u *uiState) updateConfigSummary() {
	cfg := u.cfg
	detail := "OFF"
	if cfg.DetailedErrors {
		detail = "ON"
	}
	u.configSummary.SetText(fmt.Sprintf("Predict: %s\nSave: %s\nTimeout: %s / Detailed errors: %s",
		cfg.Endpoints.PredictURL, cfg.Endpoints.SaveURL, cfg.Timeout, detail))
}

func (u *uiState) openSettings() {
	cfg := u.cfg
	baseEntry := widget.NewEntry()
	baseEntry.SetText(cfg.Endpoints.BaseURL)
	predictEntry := widget.NewEntry()
	predictEntry.SetText(cfg.Endpoints.PredictURL)
	saveEntry := widget.NewEntry()
	saveEntry.SetText(cfg.Endpoints.SaveURL)
	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(cfg.Timeout.String())
	detailCheck := widget.NewCheck("Show failure details in the status line", nil)
	detailCheck.SetChecked(cfg.DetailedErrors)

	form := &widget.Form{Items: []*widget.FormItem{
		{Text: "Base URL", Widget: baseEntry},
		{Text: "Predict URL", Widget: predictEntry},
		{Text: "Save URL", Widget: saveEntry},
		{Text: "Timeout", Widget: timeoutEntry},
		{Text: "Errors", Widget: detailCheck},
	}}

	dialog.NewCustomConfirm("Settings", "OK", "Cancel", form, func(ok bool) {
		if !ok {
			return
		}
		err := u.submitSettings(settingsInput{
			BaseURL:        baseEntry.Text,
			PredictURL:     predictEntry.Text,
			SaveURL:        saveEntry.Text,
			Timeout:        timeoutEntry.Text,
			DetailedErrors: detailCheck.Checked,
		})
		if err != nil {
			dialog.ShowError(err, u.w)
		}
	}, u.w).Show()
}

// settingsInput is the raw text of the settings dialog.
type settingsInput struct {
	BaseURL        string
	PredictURL     string
	SaveURL        string
	Timeout        string
	DetailedErrors bool
}

// submitSettings parses the dialog fields and applies them. Nothing changes
// when any field is rejected.
func (u *uiState) submitSettings(in settingsInput) error {
	timeout, err := time.ParseDuration(strings.TrimSpace(in.Timeout))
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	cfg := u.cfg
	cfg.Endpoints = croprec.EndpointConfig{
		BaseURL:    strings.TrimSpace(in.BaseURL),
		PredictURL: strings.TrimSpace(in.PredictURL),
		SaveURL:    strings.TrimSpace(in.SaveURL),
	}
	cfg.Timeout = timeout
	cfg.DetailedErrors = in.DetailedErrors
	return u.applyConfig(cfg)
}

// applyConfig validates cfg, hands it to the client and session and persists
// it to the config file.
func (u *uiState) applyConfig(cfg croprec.Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	u.cfg = u.client.UpdateConfig(cfg)
	u.session.SetDetailedErrors(cfg.DetailedErrors)
	u.updateConfigSummary()
	if err := croprec.SaveConfig(u.configPath, u.cfg); err != nil {
		u.logger.Error("save settings", zap.Error(err))
		return err
	}
	u.logger.Info("settings updated", zap.String("predict_url", u.cfg.Endpoints.PredictURL))
	return nil
}
