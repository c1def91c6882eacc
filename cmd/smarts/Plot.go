package main

import (
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/smartslearn/experiment/tracker"
)

func PlotCommand() *cobra.Command {
	var input, output, title, yLabel string
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot per-episode data saved by run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tracker.PlotFile(input, title, yLabel, output)
		},
	}

	f := cmd.Flags()
	f.StringVar(&input, "input", "", "tracker data file")
	f.StringVar(&output, "output", "plot.png", "image to write")
	f.StringVar(&title, "title", "", "plot title")
	f.StringVar(&yLabel, "ylabel", "Return", "label of the y axis")
	cmd.MarkFlagRequired("input")
	return cmd
}
