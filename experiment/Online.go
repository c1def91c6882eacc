package experiment

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samuelfneumann/smartslearn/agent"
	env "github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/experiment/checkpointer"
	"github.com/samuelfneumann/smartslearn/experiment/tracker"
	ts "github.com/samuelfneumann/smartslearn/timestep"
	"github.com/samuelfneumann/smartslearn/utils/logging"
)

var _ Experiment = (*Online)(nil)

// Online is an Experiment that runs a policy online only. No offline
// evaluation is performed.
type Online struct {
	env.Environment
	policy       agent.Policy
	maxSteps     int
	currentSteps int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
	callbacks     []Callbacks
	logger        *zap.Logger
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given policy. The steps parameter determines how
// many timesteps the experiment is run for, t determines what data is
// saved, and c determines when models are checkpointed.
func NewOnline(e env.Environment, p agent.Policy, steps int,
	t []tracker.Tracker, c []checkpointer.Checkpointer,
	logger *zap.Logger) (*Online, error) {
	if steps < 1 {
		return nil, fmt.Errorf("newOnline: steps must be positive"+
			"\n\thave(%v)", steps)
	}

	return &Online{
		Environment:   e,
		policy:        p,
		maxSteps:      steps,
		trackers:      t,
		checkpointers: c,
		logger:        logging.OrNop(logger),
	}, nil
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// AddCallbacks adds episode callbacks to the experiment
func (o *Online) AddCallbacks(c Callbacks) {
	o.callbacks = append(o.callbacks, c)
}

// Steps returns the number of steps taken so far
func (o *Online) Steps() int {
	return o.currentSteps
}

// RunEpisode runs a single episode of the experiment and returns
// whether the step budget has been spent
func (o *Online) RunEpisode() (bool, error) {
	if o.currentSteps >= o.maxSteps {
		return true, nil
	}

	step, err := o.Environment.Reset()
	if err != nil {
		return false, fmt.Errorf("runEpisode: %w", err)
	}
	id := uuid.New()
	o.track(step)
	for _, c := range o.callbacks {
		c.OnEpisodeStart(id, step)
	}
	logger := o.logger.With(zap.Stringer("episode", id))
	logger.Debug("episode started")

	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++

		action, err := o.policy.Act(step.Observation)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}
		if step, _, err = o.Environment.Step(action); err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}

		o.track(step)
		for _, c := range o.callbacks {
			c.OnEpisodeStep(id, step)
		}
		if err := o.checkpoint(step); err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}
	}

	if step.Last() {
		for _, c := range o.callbacks {
			c.OnEpisodeEnd(id, step)
		}
		logger.Info("episode finished",
			zap.Int("steps", step.Number),
			zap.Stringer("end", step.EndType()),
			zap.Float64("distance", step.Info[ts.InfoScore]),
		)
	}

	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps. The policy is set
// up if it is not already.
func (o *Online) Run() error {
	if err := o.policy.Setup(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	for ended := false; !ended; {
		var err error
		if ended, err = o.RunEpisode(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}

func (o *Online) checkpoint(t ts.TimeStep) error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(t); err != nil {
			return err
		}
	}
	return nil
}
