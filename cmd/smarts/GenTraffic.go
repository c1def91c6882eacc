package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/smartslearn/scenario"
)

// GenTraffic writes numSocialVehicles randomly routed social vehicles
// to the traffic directory of the scenario at scenarioRoot and returns
// the path written
func GenTraffic(scenarioRoot string, numSocialVehicles int,
	outputDir string, seed uint64, overwrite bool) (string, error) {
	if numSocialVehicles < 1 {
		return "", fmt.Errorf("genTraffic: number of social vehicles "+
			"must be positive\n\thave(%v)", numSocialVehicles)
	}

	n := numSocialVehicles
	return scenario.GenTraffic(scenarioRoot, scenario.SocialVehicles(n),
		scenario.SocialVehiclesName(n), outputDir, seed, overwrite)
}

func GenTrafficCommand() *cobra.Command {
	var (
		scenarioRoot string
		numVehicles  int
		outputDir    string
		seed         uint64
		overwrite    bool
	)
	cmd := &cobra.Command{
		Use:   "gentraffic",
		Short: "Generate social vehicle traffic for a scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := GenTraffic(scenarioRoot, numVehicles, outputDir,
				seed, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&scenarioRoot, "scenario", "", "scenario directory")
	f.IntVar(&numVehicles, "num_social_vehicles", 10,
		"number of social vehicles to generate")
	f.StringVar(&outputDir, "output_dir", "",
		"directory to write traffic to, defaults to the scenario")
	f.Uint64Var(&seed, "seed", 42, "random seed of the generated routes")
	f.BoolVar(&overwrite, "overwrite", false, "overwrite existing traffic")
	cmd.MarkFlagRequired("scenario")
	return cmd
}
