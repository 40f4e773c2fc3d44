package ui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/autotune/config"
	"github.com/calvinmclean/autotune/monitor"
)

// SerialPortNone selects the in-process simulator instead of a tuner on a serial port
const SerialPortNone = "Simulator"

// Settings are the values editable in the config window. They are kept as strings for binding.
type Settings struct {
	SerialPort  string
	BaudRate    string
	TWChartAddr string
	TargetL     string
	TargetC     string
}

// Simulated reports whether the simulator was selected
func (s Settings) Simulated() bool {
	return s.SerialPort == "" || s.SerialPort == SerialPortNone
}

// Apply copies the settings into cfg
func (s Settings) Apply(cfg *config.Config) error {
	baud, err := strconv.Atoi(s.BaudRate)
	if err != nil || baud <= 0 {
		return fmt.Errorf("invalid baud rate %q", s.BaudRate)
	}
	l, err := strconv.ParseUint(s.TargetL, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid target L %q", s.TargetL)
	}
	c, err := strconv.ParseUint(s.TargetC, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid target C %q", s.TargetC)
	}

	cfg.Serial.BaudRate = baud
	cfg.Serial.Port = ""
	if !s.Simulated() {
		cfg.Serial.Port = s.SerialPort
	}
	cfg.TWChart.Address = s.TWChartAddr
	cfg.Simulator.TargetL = uint16(l)
	cfg.Simulator.TargetC = uint16(c)
	return cfg.Validate()
}

type ConfigWindow struct {
	app      fyne.App
	OnSubmit func(Settings)
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

func (cw *ConfigWindow) loadSettingsFromPreferences(s *Settings, defaults *config.Config) {
	prefs := cw.app.Preferences()
	s.SerialPort = prefs.StringWithFallback("serialPort", SerialPortNone)
	s.BaudRate = prefs.StringWithFallback("baudRate", strconv.Itoa(defaults.Serial.BaudRate))
	s.TWChartAddr = prefs.StringWithFallback("twchartAddr", defaults.TWChart.Address)
	s.TargetL = prefs.StringWithFallback("targetL", strconv.Itoa(int(defaults.Simulator.TargetL)))
	s.TargetC = prefs.StringWithFallback("targetC", strconv.Itoa(int(defaults.Simulator.TargetC)))
}

func (cw *ConfigWindow) saveSettingsToPreferences(s *Settings) {
	prefs := cw.app.Preferences()
	prefs.SetString("serialPort", s.SerialPort)
	prefs.SetString("baudRate", s.BaudRate)
	prefs.SetString("twchartAddr", s.TWChartAddr)
	prefs.SetString("targetL", s.TargetL)
	prefs.SetString("targetC", s.TargetC)
}

// Show opens the window with values from the preferences, falling back to defaults
func (cw *ConfigWindow) Show(defaults *config.Config) {
	window := cw.app.NewWindow("Auto Tune - Configuration")
	window.Resize(fyne.NewSize(400, 250))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	var settings Settings
	cw.loadSettingsFromPreferences(&settings, defaults)

	serialPorts, err := monitor.Ports()
	if err != nil {
		showError(cw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return
	}
	serialPorts = append([]string{SerialPortNone}, serialPorts...)

	serialEntry := widget.NewSelect(serialPorts, nil)
	serialEntry.Bind(binding.BindString(&settings.SerialPort))

	baudRateEntry := widget.NewEntry()
	baudRateEntry.Bind(binding.BindString(&settings.BaudRate))

	twchartAddrEntry := widget.NewEntry()
	twchartAddrEntry.SetPlaceHolder("optional")
	twchartAddrEntry.Bind(binding.BindString(&settings.TWChartAddr))

	targetLEntry := widget.NewEntry()
	targetLEntry.Bind(binding.BindString(&settings.TargetL))

	targetCEntry := widget.NewEntry()
	targetCEntry.Bind(binding.BindString(&settings.TargetC))

	submitButton := widget.NewButton("Submit", func() {
		if err := settings.Apply(defaults.Copy()); err != nil {
			dialog.ShowError(err, window)
			return
		}
		cw.saveSettingsToPreferences(&settings)
		cw.OnSubmit(settings)
		window.Close()
	})

	validateForm := func() {
		if settings.SerialPort != "" && settings.BaudRate != "" {
			submitButton.Enable()
			return
		}
		submitButton.Disable()
	}

	// Add listeners to field changes
	serialEntry.OnChanged = func(_ string) { validateForm() }
	baudRateEntry.OnChanged = func(_ string) { validateForm() }

	// Initial validation
	validateForm()

	form := container.NewVBox(
		widget.NewCard("Configuration", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Serial Port:"),
				serialEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Baud Rate:"),
				baudRateEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("TWChart Address:"),
				twchartAddrEntry,
			),
		)),
		widget.NewCard("Simulated antenna", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Best L:"),
				targetLEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Best C:"),
				targetCEntry,
			),
		)),
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(form)
}

func showError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
