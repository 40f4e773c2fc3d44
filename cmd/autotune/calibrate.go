package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/calvinmclean/autotune/calibrate"
)

var (
	flagOut      string
	flagSurfaces int
	flagSeed     int64
	flagWindows  []int
)

func calibrateCommand() *cobra.Command {
	defaults := calibrate.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Compare fine search window sizes on simulated antennas",
		RunE:  runCalibrate,
	}

	cmd.Flags().StringVar(&flagOut, "out", "calibrate.html", "Path of the HTML chart report")
	cmd.Flags().IntVar(&flagSurfaces, "surfaces", defaults.Surfaces, "Number of random antennas")
	cmd.Flags().Int64Var(&flagSeed, "seed", defaults.Seed, "Seed for the random antennas")
	cmd.Flags().IntSliceVar(&flagWindows, "windows", defaults.Windows, "Odd square window sizes to compare")
	return cmd
}

func runCalibrate(cmd *cobra.Command, _ []string) error {
	study := calibrate.DefaultConfig()
	study.Windows = flagWindows
	study.Surfaces = flagSurfaces
	study.Seed = flagSeed
	study.Controller = cfg.ControllerConfig()
	study.Sim = cfg.SimConfig()

	pterm.Info.Printf("Tuning %d antennas with %d window sizes\n", study.Surfaces, len(study.Windows))

	report, err := calibrate.Run(cmd.Context(), study)
	if err != nil {
		return err
	}

	data := pterm.TableData{{"Window", "Matched", "Samples", "Std", "Distance", "P90 Distance", "SWR"}}
	for _, r := range report.Results {
		data = append(data, []string{
			strconv.Itoa(r.Size) + "x" + strconv.Itoa(r.Size),
			fmt.Sprintf("%.0f%%", 100*r.MatchedRatio()),
			fmt.Sprintf("%.1f", r.MeanSamples),
			fmt.Sprintf("%.1f", r.StdSamples),
			fmt.Sprintf("%.2f", r.MeanDistance),
			fmt.Sprintf("%.0f", r.P90Distance),
			fmt.Sprintf("%.3f", r.MeanSWR),
		})
	}
	err = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	if err != nil {
		return err
	}

	f, err := os.Create(flagOut)
	if err != nil {
		return fmt.Errorf("error creating report: %w", err)
	}
	defer f.Close()

	err = report.WriteHTML(f)
	if err != nil {
		return err
	}

	pterm.Success.Printf("Wrote %s\n", flagOut)
	return nil
}
