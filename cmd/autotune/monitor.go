package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/config"
	"github.com/calvinmclean/autotune/monitor"
	"github.com/calvinmclean/autotune/trace"
	"github.com/calvinmclean/autotune/twchart"
	"github.com/calvinmclean/autotune/ui"
)

func monitorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor [port]",
		Short: "Follow a tuner over its serial console",
		Long: `monitor prints every tuning cycle the tuner reports on its serial console. Lines typed
on stdin are sent to the tuner as console commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMonitor,
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg.Serial.Port = args[0]
	}
	if cfg.Serial.Port == "" {
		return errors.New("no serial port: pass one as an argument or set serial.port")
	}

	port, err := monitor.Open(cfg.Serial.Port, cfg.Serial.BaudRate)
	if err != nil {
		return err
	}
	defer port.Close()

	go sendLines(os.Stdin, port)

	if os.Getenv("ENABLE_UI") == "true" {
		return runWithPanel(cmd.Context(), ui.SerialPresser{Writer: port}, func(ctx context.Context, panel *ui.FrontPanel) error {
			return follow(ctx, cfg, port, panel)
		})
	}

	return follow(cmd.Context(), cfg, port, nil)
}

// follow reports the tuner's trace until ctx is done. panel is nil without a front panel.
func follow(ctx context.Context, conf *config.Config, r io.Reader, panel *ui.FrontPanel) error {
	tracers := []trace.Tracer{monitor.NewCollector(printCycle)}
	if panel != nil {
		tracers = append(tracers, panel)
	}
	if conf.TWChart.Address != "" {
		recorder := twchart.NewRecorder(conf.TWChart.Address, logger)
		go recorder.Run(ctx)
		tracers = append(tracers, recorder)
	}
	tracer := trace.Multi(tracers...)

	onRecord := func(rec trace.Record) {
		logger.Debug("trace", "record", trace.Encode(rec))
		tracer.Trace(rec)
		if panel != nil {
			panel.Update(autotune.Status{State: rec.State, Config: rec.Config, Score: rec.Score})
		}
	}
	onLine := func(line string) {
		pterm.Println(line)
		if panel != nil {
			panel.Log(line)
		}
	}

	logger.Info("following tuner", "port", conf.Serial.Port, "baud", conf.Serial.BaudRate)
	return monitor.Follow(ctx, r, onRecord, onLine)
}

// sendLines forwards console commands typed by the user
func sendLines(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := monitor.Send(w, scanner.Text()); err != nil {
			logger.Error("error sending command", "error", err)
			return
		}
	}
}
