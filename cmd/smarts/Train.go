package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/agent/policy"
	"github.com/samuelfneumann/smartslearn/config"
	"github.com/samuelfneumann/smartslearn/experiment"
	"github.com/samuelfneumann/smartslearn/pbt"
	"github.com/samuelfneumann/smartslearn/utils/progressbar"
)

// progressWidth is the width of the round progress bar
const progressWidth = 40

type trainOptions struct {
	headless       bool
	numSamples     int
	seed           uint64
	numAgents      int
	numWorkers     int
	resumeTraining bool
	resultDir      string
	checkpointNum  int
	rounds         int
}

// apply overrides the trainer of e with the flags set on cmd
func (o trainOptions) apply(cmd *cobra.Command, e *config.Experiment) {
	f := cmd.Flags()
	if f.Changed("headless") {
		e.Env.Headless = o.headless
	}
	if f.Changed("num_samples") {
		e.Trainer.NumSamples = o.numSamples
	}
	if f.Changed("seed") {
		e.Trainer.Seed = o.seed
	}
	if f.Changed("num_agents") {
		e.Trainer.NumAgents = o.numAgents
	}
	if f.Changed("num_workers") {
		e.Trainer.NumWorkers = o.numWorkers
	}
	if f.Changed("resume_training") {
		e.Trainer.ResumeTraining = o.resumeTraining
	}
	if f.Changed("result_dir") {
		e.Trainer.ResultDir = o.resultDir
	}
	if f.Changed("checkpoint_num") {
		e.Trainer.CheckpointNum = o.checkpointNum
	}
	if f.Changed("rounds") {
		e.Trainer.Rounds = o.rounds
	}
}

// Train runs population based training rounds until the configured
// number of rounds have completed. Each round every member drives
// NumAgents agents together on one road for StepsPerRound steps and is
// scored by their mean episode return. The population is checkpointed
// to the result directory every CheckpointEvery rounds and after the
// final round.
//
// Member hyperparameters are sampled, perturbed, and checkpointed but
// no policy consumes them: policies act but do not learn, so exploit
// and explore only move Model checkpoints between members.
//
// Round progress is displayed on progress unless it is nil.
func Train(ctx context.Context, e config.Experiment,
	create multiEnvCreator, logger *zap.Logger, out, progress io.Writer) (*pbt.Population, error) {
	t := e.Trainer
	if t.StepsPerRound < 1 {
		return nil, fmt.Errorf("train: steps per round must be positive"+
			"\n\thave(%v)", t.StepsPerRound)
	}

	pop, err := pbt.NewPopulation(t.NumSamples, pbt.DefaultMutations(),
		t.NumWorkers, t.Seed, logger)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	if t.ResumeTraining {
		round := t.CheckpointNum
		if round == 0 {
			if round, err = pbt.LatestCheckpoint(t.ResultDir); err != nil {
				return nil, fmt.Errorf("train: %w", err)
			}
		}
		if err := pop.Restore(pbt.CheckpointPath(t.ResultDir, round)); err != nil {
			return nil, fmt.Errorf("train: %w", err)
		}
		logger.Info("resumed training", zap.Int("round", pop.Rounds()),
			zap.Int("members", len(pop.Members)))
	}

	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.New(progress, progressWidth, t.Rounds)
		bar.Set(pop.Rounds())
		bar.Display()
	}

	for pop.Rounds() < t.Rounds {
		round := pop.Rounds()
		if err := pop.Round(ctx, evaluator(e, create, round, logger)); err != nil {
			return nil, fmt.Errorf("train: %w", err)
		}

		best := pop.Best()
		logger.Info("round finished",
			zap.Int("round", round),
			zap.Int("best", best.ID),
			zap.Float64("score", best.Score),
		)

		done := pop.Rounds() == t.Rounds
		if done || (t.CheckpointEvery > 0 && pop.Rounds()%t.CheckpointEvery == 0) {
			path, err := pop.Save(t.ResultDir)
			if err != nil {
				return nil, fmt.Errorf("train: %w", err)
			}
			logger.Info("population checkpointed", zap.String("path", path))
		}

		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}
	if bar != nil {
		bar.Close()
	}

	best := pop.Best()
	fmt.Fprintf(out, "best member %d after %d rounds: score %.4f\n",
		best.ID, pop.Rounds(), best.Score)
	for _, k := range best.Config.Keys() {
		fmt.Fprintf(out, "\t%v: %v\n", k, best.Config[k])
	}
	return pop, nil
}

// evaluator returns the pbt.Evaluator for round. Members of a Model
// policy act with the model at their checkpoint, so that exploiting
// members continue from the model they copied.
func evaluator(e config.Experiment, create multiEnvCreator, round int,
	logger *zap.Logger) pbt.Evaluator {
	return func(ctx context.Context, m *pbt.Member) (float64, error) {
		pc := e.Agent.Policy.PolicyConfig
		if model, ok := pc.(policy.ModelConfig); ok {
			if m.Checkpoint == "" {
				m.Checkpoint = model.Path
			}
			pc = policy.ModelConfig{Path: m.Checkpoint}
		}

		n := e.Trainer.NumAgents
		seed := e.Trainer.Seed +
			uint64((round*e.Trainer.NumSamples+m.ID)*n)
		memberLogger := logger.With(zap.Int("round", round),
			zap.Int("member", m.ID))
		memberLogger.Debug("evaluating member",
			zap.Any("config", map[string]float64(m.Config)))

		return runMember(ctx, e, pc, seed, create, memberLogger)
	}
}

// runMember drives the NumAgents agents of a member together on one
// road for a round and returns the mean return of their finished
// episodes. Agent i acts with a policy seeded with seed + i.
func runMember(ctx context.Context, e config.Experiment,
	pc agent.PolicyConfig, seed uint64, create multiEnvCreator,
	logger *zap.Logger) (float64, error) {
	action, err := e.Env.Action()
	if err != nil {
		return 0, err
	}

	n := e.Trainer.NumAgents
	policies := make(map[string]agent.Policy, n)
	for i := 0; i < n; i++ {
		p, err := pc.CreatePolicy(action.Spec(), seed+uint64(i))
		if err != nil {
			teardown(policies)
			return 0, err
		}
		policies[agentID(e.Agent.ID, i, n)] = p
	}

	env, err := create(ctx, e.Env, policies, seed, logger)
	if err != nil {
		teardown(policies)
		return 0, err
	}
	defer env.Close()

	exp, err := experiment.NewMultiAgent(env, policies,
		e.Trainer.StepsPerRound, logger)
	if err != nil {
		teardown(policies)
		return 0, err
	}
	metrics := experiment.NewEpisodeMetrics()
	exp.AddCallbacks(metrics)

	runErr := exp.Run()
	if err := teardown(policies); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return 0, runErr
	}
	return metrics.MeanReturn(), nil
}

// teardown tears down every policy and returns the first error
func teardown(policies map[string]agent.Policy) error {
	var first error
	for id, p := range policies {
		if err := p.Teardown(); err != nil && first == nil {
			first = fmt.Errorf("agent %v: %w", id, err)
		}
	}
	return first
}

// agentID returns the ID of the i-th of n agents sharing base
func agentID(base string, i, n int) string {
	if n == 1 {
		return base
	}
	return fmt.Sprintf("%v-%v", base, i)
}

func TrainCommand(root *rootOptions, create multiEnvCreator) *cobra.Command {
	var opts trainOptions
	def := config.Default().Trainer
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run population based training rounds against a simulator bridge",
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

			_, err = Train(cmd.Context(), e, create, logger,
				cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.headless, "headless", true,
		"run the simulator without visualisation")
	f.IntVar(&opts.numSamples, "num_samples", def.NumSamples,
		"number of population members")
	f.Uint64Var(&opts.seed, "seed", def.Seed, "random seed")
	f.IntVar(&opts.numAgents, "num_agents", def.NumAgents,
		"number of agents each member drives")
	f.IntVar(&opts.numWorkers, "num_workers", def.NumWorkers,
		"number of members evaluated concurrently")
	f.BoolVar(&opts.resumeTraining, "resume_training", false,
		"resume from a population checkpoint in the result directory")
	f.StringVar(&opts.resultDir, "result_dir", def.ResultDir,
		"directory to save population checkpoints to")
	f.IntVar(&opts.checkpointNum, "checkpoint_num", 0,
		"round of the checkpoint to resume from, 0 for the latest")
	f.IntVar(&opts.rounds, "rounds", def.Rounds, "number of rounds to run")
	return cmd
}
