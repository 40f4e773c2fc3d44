package main

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/monitor"
	"github.com/calvinmclean/autotune/ui"
)

// printCycle prints a summary table when a tuning cycle ends
func printCycle(c monitor.Cycle) {
	final, ok := c.Final()
	if !ok {
		return
	}
	steps := c.Steps()

	best := "-"
	if b, ok := c.Best(); ok {
		best = b.Config.String() + " @ " + b.Score.String()
	}

	data := pterm.TableData{
		{"Cycle", "Outcome", "Config", "SWR", "Best Seen", "Coarse", "Fine", "Verify"},
		{
			strconv.FormatUint(uint64(c.Number), 10),
			final.State.String(),
			final.Config.String(),
			final.Score.String(),
			best,
			strconv.Itoa(steps[autotune.StateCoarseSearching]),
			strconv.Itoa(steps[autotune.StateFineSearching]),
			strconv.Itoa(steps[autotune.StateVerifying]),
		},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// runWithPanel shows the front panel in the main goroutine while run works in another one.
// Closing the panel cancels run.
func runWithPanel(ctx context.Context, presser ui.Presser, run func(context.Context, *ui.FrontPanel) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	panel := ui.NewFrontPanel(presser, cfg.Display.Cols, cfg.Display.Rows)

	errc := make(chan error, 1)
	go func() {
		errc <- run(ctx, panel)
		cancel()
	}()

	panel.Run(ctx)
	cancel()
	return <-errc
}
