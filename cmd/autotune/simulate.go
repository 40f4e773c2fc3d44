package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/commands"
	"github.com/calvinmclean/autotune/config"
	"github.com/calvinmclean/autotune/controller"
	"github.com/calvinmclean/autotune/input"
	"github.com/calvinmclean/autotune/monitor"
	"github.com/calvinmclean/autotune/sim"
	"github.com/calvinmclean/autotune/timeutil"
	"github.com/calvinmclean/autotune/trace"
	"github.com/calvinmclean/autotune/twchart"
	"github.com/calvinmclean/autotune/ui"
)

var (
	flagTargetL uint16
	flagTargetC uint16
	flagTune    bool
)

func simulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the tuner against a simulated antenna",
		Long: `simulate runs the controller on a simulated relay network and SWR bridge. Console
commands typed on stdin are handled the same way the tuner handles its serial console.
Type H for the list of commands.`,
		RunE: runSimulate,
	}

	cmd.Flags().Uint16Var(&flagTargetL, "target-l", 0, "L index of the simulated antenna's best match")
	cmd.Flags().Uint16Var(&flagTargetC, "target-c", 0, "C index of the simulated antenna's best match")
	cmd.Flags().BoolVar(&flagTune, "tune", false, "Start a tuning cycle immediately")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("target-l") {
		cfg.Simulator.TargetL = flagTargetL
	}
	if cmd.Flags().Changed("target-c") {
		cfg.Simulator.TargetC = flagTargetC
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if os.Getenv("ENABLE_UI") == "true" {
		queue := input.NewQueue()
		return runWithPanel(cmd.Context(), ui.QueuePresser{Queue: queue}, func(ctx context.Context, panel *ui.FrontPanel) error {
			return simulate(ctx, cfg, queue, panel)
		})
	}

	return simulate(cmd.Context(), cfg, nil, nil)
}

// simulate runs the controller's idle loop on a simulated antenna until ctx is done. queue and
// panel are nil without a front panel.
func simulate(ctx context.Context, conf *config.Config, queue *input.Queue, panel *ui.FrontPanel) error {
	clock := timeutil.RealClock{}
	network := sim.NewNetwork(conf.Surface(), conf.SimConfig(), clock)

	hw := controller.Hardware{
		Relays: network,
		ADC:    network,
		Gain:   network,
	}
	if conf.Relay.Changeover {
		hw.Changeover = network
	}

	var c *controller.Controller
	console := commands.NewSource(readBytes(ctx, os.Stdin), os.Stdout, func() autotune.Status {
		return c.Status()
	})

	sources := []input.Source{console}
	tracers := []trace.Tracer{trace.NewLogger(logger), monitor.NewCollector(printCycle)}
	opts := []controller.Option{
		controller.WithLogger(logger),
		controller.WithClock(clock),
	}

	if queue != nil {
		sources = append(sources, queue)
	}
	if panel != nil {
		tracers = append(tracers, panel)
		opts = append(opts, controller.WithStatusSink(panel))
	}
	if conf.TWChart.Address != "" {
		recorder := twchart.NewRecorder(conf.TWChart.Address, logger)
		go recorder.Run(ctx)
		tracers = append(tracers, recorder)
	}

	opts = append(opts,
		controller.WithEvents(input.Merge(sources...)),
		controller.WithTracer(trace.Multi(tracers...)),
	)

	var err error
	c, err = controller.New(hw, conf.ControllerConfig(), opts...)
	if err != nil {
		return err
	}

	logger.Info("simulating antenna", "target", conf.Target().String(), "changeover", conf.Relay.Changeover)

	if flagTune {
		_, err = c.Tune(ctx)
		if err != nil && !controller.IsAbort(err) {
			return err
		}
	}

	return c.Run(ctx)
}

var errNoInput = errors.New("no input available")

// byteChan adapts a blocking reader to the non-blocking commands.ByteReader
type byteChan chan byte

func readBytes(ctx context.Context, r io.Reader) byteChan {
	ch := make(byteChan, 64)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			for _, b := range buf[:n] {
				select {
				case ch <- b:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

func (c byteChan) ReadByte() (byte, error) {
	select {
	case b := <-c:
		return b, nil
	default:
		return 0, errNoInput
	}
}
