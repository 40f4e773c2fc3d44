package main

import (
	"context"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/calvinmclean/autotune/input"
	"github.com/calvinmclean/autotune/monitor"
	"github.com/calvinmclean/autotune/ui"
)

func uiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Choose a tuner or the simulator in a window and show its front panel",
		RunE:  runUI,
	}
}

func runUI(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	application := app.NewWithID(appID)

	configWindow := ui.NewConfigWindow(application)
	configWindow.OnSubmit = func(s ui.Settings) {
		conf := cfg.Copy()
		if err := s.Apply(conf); err != nil {
			logger.Error("invalid settings", "error", err)
			application.Quit()
			return
		}

		stop := func(err error) {
			if err != nil {
				logger.Error("front panel session failed", "error", err)
			}
			cancel()
		}

		if s.Simulated() {
			queue := input.NewQueue()
			panel := ui.NewFrontPanel(ui.QueuePresser{Queue: queue}, conf.Display.Cols, conf.Display.Rows)
			panel.Show(ctx, application)
			go func() {
				stop(simulate(ctx, conf, queue, panel))
			}()
			return
		}

		port, err := monitor.Open(conf.Serial.Port, conf.Serial.BaudRate)
		if err != nil {
			logger.Error("error opening tuner", "error", err)
			application.Quit()
			return
		}

		panel := ui.NewFrontPanel(ui.SerialPresser{Writer: port}, conf.Display.Cols, conf.Display.Rows)
		panel.Show(ctx, application)
		go func() {
			defer port.Close()
			stop(follow(ctx, conf, port, panel))
		}()
	}

	configWindow.Show(cfg)
	application.Run()
	return nil
}
