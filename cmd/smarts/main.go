// Command smarts runs and trains driving agents against a SMARTS
// simulator bridge and generates scenario traffic.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/config"
	"github.com/samuelfneumann/smartslearn/environment/envconfig"
	"github.com/samuelfneumann/smartslearn/environment/smarts/hiway"
	"github.com/samuelfneumann/smartslearn/utils/logging"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configPath  string
	logLevel    string
	logEncoding string
}

// experiment loads the configured experiment with the logging flags
// applied
func (o *rootOptions) experiment() (config.Experiment, error) {
	e := config.Default()
	if o.configPath != "" {
		var err error
		if e, err = config.Load(o.configPath); err != nil {
			return config.Experiment{}, err
		}
	}

	if o.logLevel != "" {
		e.Logging.Level = o.logLevel
	}
	if o.logEncoding != "" {
		e.Logging.Encoding = o.logEncoding
	}
	return e, nil
}

// envCreator creates the environment in which agentID acts with p
type envCreator func(ctx context.Context, c envconfig.Config, agentID string,
	seed uint64, p agent.Policy, logger *zap.Logger) (*hiway.HiWay, error)

// dialEnv creates environments connected to the configured bridge
func dialEnv(ctx context.Context, c envconfig.Config, agentID string,
	seed uint64, p agent.Policy, logger *zap.Logger) (*hiway.HiWay, error) {
	return c.Create(ctx, agentID, seed, p, logger)
}

// multiEnvCreator creates the environment in which every agent in
// policies drives with its policy on a shared road
type multiEnvCreator func(ctx context.Context, c envconfig.Config,
	policies map[string]agent.Policy, seed uint64,
	logger *zap.Logger) (*hiway.Multi, error)

// dialMulti creates shared environments connected to the configured
// bridge
func dialMulti(ctx context.Context, c envconfig.Config,
	policies map[string]agent.Policy, seed uint64,
	logger *zap.Logger) (*hiway.Multi, error) {
	return c.CreateMulti(ctx, policies, seed, logger)
}

// setup validates e and returns its logger
func setup(e config.Experiment) (*zap.Logger, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return logging.New(e.Logging.Level, e.Logging.Encoding)
}

func RootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "smarts",
		Short:         "Drive SMARTS agents with lane-relative observations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "",
		"experiment configuration file (.json, .yaml, or .yml)")
	f.StringVar(&opts.logLevel, "log_level", "",
		"log level, overrides the configuration")
	f.StringVar(&opts.logEncoding, "log_encoding", "",
		"log encoding (json or console), overrides the configuration")

	cmd.AddCommand(
		RunCommand(opts, dialEnv),
		TrainCommand(opts, dialMulti),
		GenTrafficCommand(),
		PlotCommand(),
	)
	return cmd
}

func main() {
	if err := RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
