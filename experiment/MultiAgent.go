package experiment

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/agent"
	env "github.com/samuelfneumann/smartslearn/environment"
	ts "github.com/samuelfneumann/smartslearn/timestep"
	"github.com/samuelfneumann/smartslearn/utils/logging"
)

// MultiAgent is an online experiment in which several policies act
// together in one multi-agent environment, each controlling the agent
// with its ID. The step budget counts environment steps, each of which
// advances every agent still driving.
//
// Every agent's episode is reported to the callbacks under its own
// UUID.
type MultiAgent struct {
	environment  env.MultiAgent
	policies     map[string]agent.Policy
	maxSteps     int
	currentSteps int

	callbacks []Callbacks
	logger    *zap.Logger
}

// NewMultiAgent creates and returns a new multi-agent experiment. There
// must be a policy for every agent of e.
func NewMultiAgent(e env.MultiAgent, policies map[string]agent.Policy,
	steps int, logger *zap.Logger) (*MultiAgent, error) {
	if steps < 1 {
		return nil, fmt.Errorf("newMultiAgent: steps must be positive"+
			"\n\thave(%v)", steps)
	}
	for _, id := range e.AgentIDs() {
		if policies[id] == nil {
			return nil, fmt.Errorf("newMultiAgent: no policy for agent %v", id)
		}
	}

	return &MultiAgent{
		environment: e,
		policies:    policies,
		maxSteps:    steps,
		logger:      logging.OrNop(logger),
	}, nil
}

// AddCallbacks adds episode callbacks to the experiment
func (m *MultiAgent) AddCallbacks(c Callbacks) {
	m.callbacks = append(m.callbacks, c)
}

// Steps returns the number of steps taken so far
func (m *MultiAgent) Steps() int {
	return m.currentSteps
}

// RunEpisode runs a single episode, which lasts until every agent's
// episode has ended, and returns whether the step budget has been spent
func (m *MultiAgent) RunEpisode() (bool, error) {
	if m.currentSteps >= m.maxSteps {
		return true, nil
	}

	steps, err := m.environment.Reset()
	if err != nil {
		return false, fmt.Errorf("runEpisode: %w", err)
	}
	episodes := make(map[string]uuid.UUID, len(steps))
	for id, step := range steps {
		episodes[id] = uuid.New()
		for _, c := range m.callbacks {
			c.OnEpisodeStart(episodes[id], step)
		}
	}
	m.logger.Debug("episode started", zap.Int("agents", len(steps)))

	for done := false; !done && m.currentSteps < m.maxSteps; {
		m.currentSteps++

		actions := make(map[string]*mat.VecDense, len(steps))
		for id, step := range steps {
			if step.Last() {
				continue
			}
			a, err := m.policies[id].Act(step.Observation)
			if err != nil {
				return false, fmt.Errorf("runEpisode: agent %v: %w", id, err)
			}
			actions[id] = a
		}

		next, allDone, err := m.environment.Step(actions)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}
		for id, step := range next {
			steps[id] = step
			for _, c := range m.callbacks {
				c.OnEpisodeStep(episodes[id], step)
			}
			if !step.Last() {
				continue
			}

			for _, c := range m.callbacks {
				c.OnEpisodeEnd(episodes[id], step)
			}
			m.logger.Info("episode finished",
				zap.String("agent", id),
				zap.Int("steps", step.Number),
				zap.Stringer("end", step.EndType()),
				zap.Float64("distance", step.Info[ts.InfoScore]),
			)
		}
		done = allDone
	}

	return m.currentSteps >= m.maxSteps, nil
}

// Run runs the entire experiment for all timesteps. Every policy is set
// up if it is not already.
func (m *MultiAgent) Run() error {
	for _, id := range m.environment.AgentIDs() {
		if err := m.policies[id].Setup(); err != nil {
			return fmt.Errorf("run: agent %v: %w", id, err)
		}
	}

	for ended := false; !ended; {
		var err error
		if ended, err = m.RunEpisode(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}
	return nil
}
