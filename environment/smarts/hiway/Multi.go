package hiway

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/timestep"
	"github.com/samuelfneumann/smartslearn/utils/logging"
)

var _ environment.MultiAgent = (*Multi)(nil)

// Multi is a multi-agent environment over a single Simulator. Every
// agent shares the road with the others and observes them as
// neighbours. Each agent's observations, actions, and rewards are
// translated by its own agent.Spec, exactly as in HiWay, and each
// agent's episode ends independently. Agents whose episode has ended
// sit out until the next Reset.
type Multi struct {
	sim    smarts.Simulator
	ids    []string
	agents map[string]*HiWay
	logger *zap.Logger
}

// NewMulti returns a new Multi environment controlling the agent of
// every ID in specs in sim
func NewMulti(sim smarts.Simulator, specs map[string]agent.Spec,
	discount float64, logger *zap.Logger) (*Multi, error) {
	if sim == nil {
		return nil, fmt.Errorf("newMulti: nil simulator")
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("newMulti: no agents")
	}

	ids := make([]string, 0, len(specs))
	for id := range specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	agents := make(map[string]*HiWay, len(ids))
	for _, id := range ids {
		h, err := New(sim, id, specs[id], discount, logger)
		if err != nil {
			return nil, fmt.Errorf("newMulti: %w", err)
		}
		agents[id] = h
	}

	return &Multi{
		sim:    sim,
		ids:    ids,
		agents: agents,
		logger: logging.OrNop(logger).With(zap.Strings("agents", ids)),
	}, nil
}

// AgentIDs implements the environment.MultiAgent interface. IDs are
// sorted.
func (m *Multi) AgentIDs() []string {
	return append([]string(nil), m.ids...)
}

// Reset implements the environment.MultiAgent interface
func (m *Multi) Reset() (map[string]timestep.TimeStep, error) {
	observations, err := m.sim.Reset()
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	steps := make(map[string]timestep.TimeStep, len(m.ids))
	for _, id := range m.ids {
		step, err := m.agents[id].start(observations)
		if err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}
		steps[id] = step
	}
	return steps, nil
}

// Step implements the environment.MultiAgent interface. Every agent
// whose episode has not ended must act.
func (m *Multi) Step(actions map[string]*mat.VecDense) (
	map[string]timestep.TimeStep, bool, error) {
	active := m.active()
	if len(active) == 0 {
		return nil, false, fmt.Errorf("step: every episode has ended, " +
			"reset the environment")
	}

	simActions := make(map[string]smarts.Action, len(active))
	for _, id := range active {
		action, ok := actions[id]
		if !ok {
			return nil, false, fmt.Errorf("step: no action for agent %v", id)
		}

		a, err := m.agents[id].action(action)
		if err != nil {
			return nil, false, fmt.Errorf("step: agent %v: %w", id, err)
		}
		simActions[id] = a
	}

	result, err := m.sim.Step(simActions)
	if err != nil {
		return nil, false, fmt.Errorf("step: %w", err)
	}

	steps := make(map[string]timestep.TimeStep, len(active))
	for _, id := range active {
		step, err := m.agents[id].advance(result)
		if err != nil {
			return nil, false, fmt.Errorf("step: %w", err)
		}
		steps[id] = step
	}

	done := len(m.active()) == 0
	if done {
		m.logger.Debug("all episodes ended")
	}
	return steps, done, nil
}

// CurrentTimeSteps returns the most recent TimeStep of each agent
func (m *Multi) CurrentTimeSteps() map[string]timestep.TimeStep {
	steps := make(map[string]timestep.TimeStep, len(m.ids))
	for _, id := range m.ids {
		steps[id] = m.agents[id].CurrentTimeStep()
	}
	return steps
}

// ActionSpec returns the action specification of agent id
func (m *Multi) ActionSpec(id string) (environment.Spec, error) {
	h, ok := m.agents[id]
	if !ok {
		return environment.Spec{}, fmt.Errorf("actionSpec: no agent %v", id)
	}
	return h.ActionSpec(), nil
}

// SetObserver registers o to be notified of every raw observation of
// agent id. A nil Observer removes the current one.
func (m *Multi) SetObserver(id string, o Observer) error {
	h, ok := m.agents[id]
	if !ok {
		return fmt.Errorf("setObserver: no agent %v", id)
	}
	h.SetObserver(o)
	return nil
}

// Close closes the underlying simulator
func (m *Multi) Close() error {
	return m.sim.Close()
}

// active returns the IDs of the agents whose episode has not ended
func (m *Multi) active() []string {
	var active []string
	for _, id := range m.ids {
		if step := m.agents[id].CurrentTimeStep(); !step.Last() {
			active = append(active, id)
		}
	}
	return active
}
