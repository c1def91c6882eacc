// Package hiway implements a single-agent highway driving environment
// over the SMARTS simulator
package hiway

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/timestep"
	"github.com/samuelfneumann/smartslearn/utils/logging"
)

// HiWay is a single-agent environment over a Simulator. Observations,
// actions, and rewards are translated by the adapters of an agent.Spec
// and episodes are cut off after the agent interface's maximum number
// of episode steps.
//
// Each TimeStep's Info holds the raw ego speed under timestep.InfoSpeed
// and the simulator's distance travelled under timestep.InfoScore.
type HiWay struct {
	sim      smarts.Simulator
	agentID  string
	spec     agent.Spec
	ender    environment.Ender
	discount float64
	logger   *zap.Logger
	observer Observer

	currentTimeStep timestep.TimeStep
	started         bool
}

// Observer is notified of every raw observation together with the
// TimeStep it was adapted into
type Observer func(obs smarts.Observation, step timestep.TimeStep)

// New returns a new HiWay environment controlling agent agentID in sim
func New(sim smarts.Simulator, agentID string, spec agent.Spec,
	discount float64, logger *zap.Logger) (*HiWay, error) {
	if sim == nil {
		return nil, fmt.Errorf("new: nil simulator")
	}
	if agentID == "" {
		return nil, fmt.Errorf("new: empty agent id")
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("new: discount must be in [0, 1]\n\thave(%v)",
			discount)
	}

	return &HiWay{
		sim:      sim,
		agentID:  agentID,
		spec:     spec,
		ender:    environment.NewStepLimit(spec.Interface.MaxEpisodeSteps),
		discount: discount,
		logger:   logging.OrNop(logger).With(zap.String("agent", agentID)),
	}, nil
}

// Reset implements the environment.Environment interface
func (h *HiWay) Reset() (timestep.TimeStep, error) {
	observations, err := h.sim.Reset()
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	step, err := h.start(observations)
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %w", err)
	}
	return step, nil
}

// Step implements the environment.Environment interface
func (h *HiWay) Step(action *mat.VecDense) (timestep.TimeStep, bool, error) {
	a, err := h.action(action)
	if err != nil {
		return timestep.TimeStep{}, false, fmt.Errorf("step: %w", err)
	}

	result, err := h.sim.Step(map[string]smarts.Action{h.agentID: a})
	if err != nil {
		return timestep.TimeStep{}, false, fmt.Errorf("step: %w", err)
	}

	step, err := h.advance(result)
	if err != nil {
		return timestep.TimeStep{}, false, fmt.Errorf("step: %w", err)
	}
	return step, step.Last(), nil
}

// start begins a new episode from the first observations of a reset
// simulator
func (h *HiWay) start(observations map[string]smarts.Observation) (
	timestep.TimeStep, error) {
	obs, ok := observations[h.agentID]
	if !ok {
		return timestep.TimeStep{}, fmt.Errorf("no observation for agent %v",
			h.agentID)
	}

	vec, err := h.spec.Observation.Transform(obs)
	if err != nil {
		return timestep.TimeStep{}, err
	}

	step := timestep.New(timestep.First, 0, h.discount, vec, 0)
	step.SetInfo(timestep.InfoSpeed, obs.Ego.Speed)
	step.SetInfo(timestep.InfoScore, 0)

	h.currentTimeStep = step
	h.started = true
	h.notify(obs, step)
	return step, nil
}

// action adapts a policy action for the simulator
func (h *HiWay) action(action *mat.VecDense) (smarts.Action, error) {
	if !h.started {
		return smarts.Action{}, fmt.Errorf("environment must be reset " +
			"before stepping")
	}
	if h.currentTimeStep.Last() {
		return smarts.Action{}, fmt.Errorf("episode has ended, reset the " +
			"environment")
	}
	return h.spec.Action.Transform(action)
}

// advance moves the episode forward to the simulator's result of the
// last step
func (h *HiWay) advance(result smarts.StepResult) (timestep.TimeStep, error) {
	obs, ok := result.Observations[h.agentID]
	if !ok {
		return timestep.TimeStep{}, fmt.Errorf("no observation for agent %v",
			h.agentID)
	}
	done := result.Dones[h.agentID]

	vec, err := h.spec.Observation.Transform(obs)
	if err != nil {
		if !done {
			return timestep.TimeStep{}, err
		}

		// Agents which have left the road may have no waypoints on their
		// final step
		h.logger.Debug("reusing previous observation on final step",
			zap.Error(err))
		vec = mat.VecDenseCopyOf(h.currentTimeStep.Observation)
	}

	reward := h.spec.Reward(obs, result.Rewards[h.agentID])
	step := timestep.New(timestep.Mid, reward, h.discount, vec,
		h.currentTimeStep.Number+1)
	step.SetInfo(timestep.InfoSpeed, obs.Ego.Speed)
	step.SetInfo(timestep.InfoScore, result.Scores[h.agentID])

	if done {
		step.StepType = timestep.Last
		step.SetEnd(endType(obs.Events))
	} else {
		h.ender.End(&step)
	}

	if step.Last() {
		h.logger.Debug("episode ended",
			zap.Int("steps", step.Number),
			zap.Stringer("end", step.EndType()),
			zap.Float64("score", result.Scores[h.agentID]),
		)
	}

	h.currentTimeStep = step
	h.notify(obs, step)
	return step, nil
}

// SetObserver registers o to be notified of every raw observation. A
// nil Observer removes the current one.
func (h *HiWay) SetObserver(o Observer) {
	h.observer = o
}

func (h *HiWay) notify(obs smarts.Observation, step timestep.TimeStep) {
	if h.observer != nil {
		h.observer(obs, step)
	}
}

// endType returns the reason an episode ended given the final events
func endType(e smarts.Events) timestep.EndType {
	switch {
	case e.Collisions || e.OffRoad || e.ReachedGoal:
		return timestep.TerminalStateReached
	case e.ReachedMaxEpisodeSteps:
		return timestep.Timeout
	}
	return timestep.Unknown
}

// CurrentTimeStep implements the environment.Environment interface
func (h *HiWay) CurrentTimeStep() timestep.TimeStep {
	return h.currentTimeStep
}

// RewardSpec implements the environment.Environment interface
func (h *HiWay) RewardSpec() environment.Spec {
	return environment.NewBoxSpec(1, environment.Reward, math.Inf(-1),
		math.Inf(1))
}

// DiscountSpec implements the environment.Environment interface
func (h *HiWay) DiscountSpec() environment.Spec {
	return environment.NewBoxSpec(1, environment.Discount, h.discount,
		h.discount)
}

// ObservationSpec implements the environment.Environment interface
func (h *HiWay) ObservationSpec() environment.Spec {
	return h.spec.ObservationSpec()
}

// ActionSpec implements the environment.Environment interface
func (h *HiWay) ActionSpec() environment.Spec {
	return h.spec.ActionSpec()
}

// Close closes the underlying simulator
func (h *HiWay) Close() error {
	return h.sim.Close()
}
