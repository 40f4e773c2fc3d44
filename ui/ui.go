// Package ui is a fyne front panel for the tuner: the character LCD, the buttons and a log of
// trace records. It can drive the simulator in-process or a real tuner over serial.
package ui

import (
	"context"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/display"
	"github.com/calvinmclean/autotune/trace"
)

const maxLogLines = 200

// FrontPanel is a StatusSink and Tracer that shows what the tuner is doing and sends button
// presses to a Presser
type FrontPanel struct {
	presser    Presser
	cols, rows int

	mu      sync.Mutex
	status  autotune.Status
	logs    []string
	refresh func()
	timer   *timer
}

var (
	_ autotune.StatusSink = &FrontPanel{}
	_ trace.Tracer        = &FrontPanel{}
)

// NewFrontPanel creates a panel with a cols x rows LCD
func NewFrontPanel(presser Presser, cols, rows int) *FrontPanel {
	return &FrontPanel{presser: presser, cols: cols, rows: rows}
}

// Update shows a new status on the LCD
func (p *FrontPanel) Update(s autotune.Status) {
	p.mu.Lock()
	previous := p.status.State
	p.status = s
	refresh, t := p.refresh, p.timer
	p.mu.Unlock()

	if t != nil {
		switch {
		case s.State.InProgress() && !previous.InProgress():
			t.Start(time.Now())
		case !s.State.InProgress() && previous.InProgress():
			t.Pause()
		}
	}
	if refresh != nil {
		fyne.Do(refresh)
	}
}

// Trace appends a record to the log
func (p *FrontPanel) Trace(r trace.Record) {
	p.Log(trace.Encode(r))
}

// Log appends a free form line, such as console output from a real tuner
func (p *FrontPanel) Log(line string) {
	p.mu.Lock()
	p.logs = append(p.logs, line)
	if len(p.logs) > maxLogLines {
		p.logs = p.logs[len(p.logs)-maxLogLines:]
	}
	p.mu.Unlock()
}

func (p *FrontPanel) snapshot() (autotune.Status, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, strings.Join(p.logs, "\n")
}

func (p *FrontPanel) createLCD() (*fyne.Container, func()) {
	background := canvas.NewRectangle(lcdBackground)
	lines := make([]*canvas.Text, p.rows)
	objects := make([]fyne.CanvasObject, p.rows)
	for i := range lines {
		lines[i] = canvas.NewText(strings.Repeat(" ", p.cols), lcdText)
		lines[i].TextStyle = fyne.TextStyle{Monospace: true}
		lines[i].TextSize = 24
		objects[i] = lines[i]
	}

	update := func(s autotune.Status) {
		background.FillColor = stateColor(s.State)
		background.Refresh()
		for i, line := range display.Render(s, p.cols, p.rows) {
			lines[i].Text = line
			lines[i].Refresh()
		}
	}
	update(autotune.Status{Score: autotune.MaxScore})

	lcd := container.NewStack(background, container.NewPadded(container.NewVBox(objects...)))
	return lcd, func() {
		s, _ := p.snapshot()
		update(s)
	}
}

func (p *FrontPanel) createButtons() *fyne.Container {
	hold := widget.NewCheck("Hold (long press)", nil)
	press := func(b autotune.Button) func() {
		return func() {
			e := autotune.Event{Button: b}
			if hold.Checked {
				e.Press = autotune.LongPress
				hold.SetChecked(false)
			}
			p.presser.Press(e)
		}
	}

	tuneButton := widget.NewButton("Tune", press(autotune.ButtonTune))
	tuneButton.Importance = widget.HighImportance

	return container.NewVBox(
		container.NewGridWithColumns(2,
			tuneButton,
			widget.NewButton("Bypass", func() {
				p.presser.Press(autotune.Event{Button: autotune.ButtonTune, Press: autotune.LongPress})
			}),
		),
		container.NewGridWithColumns(4,
			widget.NewButton("L-", press(autotune.ButtonLDown)),
			widget.NewButton("L+", press(autotune.ButtonLUp)),
			widget.NewButton("C-", press(autotune.ButtonCDown)),
			widget.NewButton("C+", press(autotune.ButtonCUp)),
		),
		container.NewHBox(
			hold,
			layout.NewSpacer(),
			widget.NewButton("LoZ/HiZ", press(autotune.ButtonTopology)),
		),
	)
}

func (p *FrontPanel) createLogAccordion() *widget.Accordion {
	logContent := widget.NewLabel("")
	logContent.TextStyle = fyne.TextStyle{Monospace: true}
	logScroll := container.NewVScroll(logContent)
	logScroll.SetMinSize(fyne.NewSize(300, 150))

	go func() {
		for range time.Tick(time.Second) {
			_, logs := p.snapshot()
			fyne.Do(func() {
				if logContent.Text == logs {
					return
				}
				logContent.SetText(logs)
				logScroll.ScrollToBottom()
			})
		}
	}()

	return widget.NewAccordion(
		widget.NewAccordionItem("Trace", logScroll),
	)
}

// Show opens the front panel window in application. The application quits when ctx is done.
func (p *FrontPanel) Show(ctx context.Context, application fyne.App) fyne.Window {
	window := application.NewWindow("Auto Tune")

	lcd, refresh := p.createLCD()
	cycleTimer := newTimer()
	cycleTimer.Go()
	window.SetOnClosed(cycleTimer.Stop)

	p.mu.Lock()
	p.refresh = refresh
	p.timer = cycleTimer
	p.mu.Unlock()
	refresh()

	contentContainer := container.NewVBox(
		lcd,
		container.NewHBox(
			widget.NewLabel("Cycle"),
			layout.NewSpacer(),
			container.NewPadded(cycleTimer.text),
		),
		p.createButtons(),
		p.createLogAccordion(),
	)

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			application.Quit()
		})
	}()

	window.SetContent(contentContainer)
	window.Resize(fyne.NewSize(360, 300))
	window.Show()
	return window
}

// Run shows the panel in a new application until it is closed or ctx is done
func (p *FrontPanel) Run(ctx context.Context) {
	application := app.New()
	p.Show(ctx, application)
	application.Run()
}
