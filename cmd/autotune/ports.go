package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/calvinmclean/autotune/monitor"
)

func portsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(*cobra.Command, []string) error {
			ports, err := monitor.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				pterm.Warning.Println("No serial ports found")
				return nil
			}
			for _, p := range ports {
				pterm.Println(p)
			}
			return nil
		},
	}
}

func configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the configuration in use as YAML",
		RunE: func(*cobra.Command, []string) error {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}
