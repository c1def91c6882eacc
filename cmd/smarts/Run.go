package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samuelfneumann/smartslearn/config"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/environment/smarts/render"
	"github.com/samuelfneumann/smartslearn/experiment"
	"github.com/samuelfneumann/smartslearn/experiment/checkpointer"
	"github.com/samuelfneumann/smartslearn/experiment/tracker"
	"github.com/samuelfneumann/smartslearn/timestep"
)

// Rendered frame size in pixels and meters per pixel
const (
	frameSize  = 640
	frameScale = 8.0
)

type runOptions struct {
	bridge          string
	scenarios       []string
	headless        bool
	seed            uint64
	episodes        int
	maxEpisodeSteps int
	resultDir       string
	renderDir       string
	renderEvery     int

	// checkpointEvery saves episode metrics to the result directory
	// every this many steps of an episode. Zero disables checkpoints.
	checkpointEvery int
	timestamped     bool
}

// apply overrides the environment of e with the flags set on cmd
func (o runOptions) apply(cmd *cobra.Command, e *config.Experiment) {
	if o.bridge != "" {
		e.Env.Bridge = o.bridge
	}
	if len(o.scenarios) > 0 {
		e.Env.Scenarios = o.scenarios
	}
	if cmd.Flags().Changed("headless") {
		e.Env.Headless = o.headless
	}
	if cmd.Flags().Changed("max_episode_steps") {
		e.Env.MaxEpisodeSteps = o.maxEpisodeSteps
	}
}

// Run evaluates the configured agent for a number of episodes and
// writes the accumulated reward to out
func Run(ctx context.Context, e config.Experiment, opts runOptions,
	create envCreator, logger *zap.Logger, out io.Writer) error {
	if opts.episodes < 1 {
		return fmt.Errorf("run: episodes must be positive\n\thave(%v)",
			opts.episodes)
	}
	if opts.renderEvery < 1 {
		return fmt.Errorf("run: render interval must be positive"+
			"\n\thave(%v)", opts.renderEvery)
	}

	action, err := e.Env.Action()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	p, err := e.Agent.Policy.CreatePolicy(action.Spec(), opts.seed)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	env, err := create(ctx, e.Env, e.Agent.ID, opts.seed, p, logger)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer env.Close()

	var trackers []tracker.Tracker
	if opts.resultDir != "" {
		if err := os.MkdirAll(opts.resultDir, 0o755); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		trackers = resultTrackers(opts.resultDir)
	}

	var renderErr error
	if opts.renderDir != "" {
		if err := os.MkdirAll(opts.renderDir, 0o755); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		r, err := render.New(frameSize, frameSize, frameScale)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		r.Radius = e.Env.Lanes / 2

		frame := 0
		env.SetObserver(func(obs smarts.Observation, _ timestep.TimeStep) {
			if renderErr == nil && frame%opts.renderEvery == 0 {
				path := filepath.Join(opts.renderDir,
					fmt.Sprintf("frame_%06d.png", frame))
				renderErr = r.SavePNG(path, obs)
			}
			frame++
		})
	}

	steps := math.MaxInt32
	if e.Env.MaxEpisodeSteps > 0 {
		steps = opts.episodes * e.Env.MaxEpisodeSteps
	}
	metrics := experiment.NewEpisodeMetrics()
	var checkpointers []checkpointer.Checkpointer
	if opts.resultDir != "" && opts.checkpointEvery > 0 {
		name := filepath.Join(opts.resultDir, "metrics_")
		filename := checkpointer.FilenameEnumerator(0, name, ".json")
		if opts.timestamped {
			filename = checkpointer.FileTimer(name, ".json")
		}
		c, err := checkpointer.NewNStep(opts.checkpointEvery, metrics,
			filename)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		checkpointers = append(checkpointers, c)
	}

	exp, err := experiment.NewOnline(env, p, steps, trackers, checkpointers,
		logger)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	exp.AddCallbacks(metrics)

	if err := p.Setup(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	for i := 0; i < opts.episodes; i++ {
		done, err := exp.RunEpisode()
		if err != nil {
			p.Teardown()
			return fmt.Errorf("run: %w", err)
		}
		if renderErr != nil {
			p.Teardown()
			return fmt.Errorf("run: %w", renderErr)
		}
		if done {
			break
		}
	}
	if err := p.Teardown(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if opts.resultDir != "" {
		if err := exp.Save(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	total := 0.0
	for i, ep := range metrics.Episodes() {
		fmt.Fprintf(out, "episode %d: steps %d, return %.4f, mean speed "+
			"%.2f km/h, distance %.2f m\n", i, ep.Steps, ep.Return,
			ep.MeanSpeed, ep.Distance)
		total += ep.Return
	}
	fmt.Fprintf(out, "Accumulated reward: %v\n", total)
	return nil
}

// resultTrackers returns the trackers saving per-episode data to dir
func resultTrackers(dir string) []tracker.Tracker {
	return []tracker.Tracker{
		tracker.NewReturn(filepath.Join(dir, "return.bin")),
		tracker.NewEpisodeLength(filepath.Join(dir, "episode_length.bin")),
		tracker.NewMeanSpeed(filepath.Join(dir, "mean_speed.bin")),
		tracker.NewDistance(filepath.Join(dir, "distance.bin")),
	}
}

func RunCommand(root *rootOptions, create envCreator) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate an agent against a simulator bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := root.experiment()
			if err != nil {
				return err
			}
			opts.apply(cmd, &e)

			logger, err := setup(e)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return Run(cmd.Context(), e, opts, create, logger,
				cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.bridge, "bridge", "",
		"websocket URL of the simulator bridge")
	f.StringSliceVar(&opts.scenarios, "scenario", nil,
		"scenario directories to drive in")
	f.BoolVar(&opts.headless, "headless", true,
		"run the simulator without visualisation")
	f.Uint64Var(&opts.seed, "seed", 42, "random seed")
	f.IntVar(&opts.episodes, "episodes", 1, "number of episodes to run")
	f.IntVar(&opts.maxEpisodeSteps, "max_episode_steps", 1000,
		"maximum number of steps per episode")
	f.StringVar(&opts.resultDir, "result_dir", "",
		"directory to save per-episode data to")
	f.StringVar(&opts.renderDir, "render_dir", "",
		"directory to save rendered frames to")
	f.IntVar(&opts.renderEvery, "render_every", 1,
		"render every this many observations")
	f.IntVar(&opts.checkpointEvery, "checkpoint_every", 0,
		"save episode metrics to the result directory every this many "+
			"steps of an episode, 0 to disable")
	f.BoolVar(&opts.timestamped, "timestamp_checkpoints", false,
		"name metric checkpoints by time rather than by number")
	return cmd
}
