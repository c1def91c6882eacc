// Package envconfig provides configuration structs for configuring
// SMARTS driving environments. Environment configurations in this
// package are JSON and YAML serializable.
package envconfig

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/environment/smarts/adapter"
	"github.com/samuelfneumann/smartslearn/environment/smarts/hiway"
	"github.com/samuelfneumann/smartslearn/environment/smarts/remote"
)

// Lane counts of the observation adapters
const (
	ThreeLanes = 3
	FiveLanes  = 5
)

// Config implements a specific configuration of a SMARTS scenario and
// the agent interface used to drive in it
type Config struct {
	// Bridge is the websocket URL of the simulator bridge
	Bridge    string   `json:"bridge" yaml:"bridge"`
	Scenarios []string `json:"scenarios" yaml:"scenarios"`
	Headless  bool     `json:"headless" yaml:"headless"`

	AgentType       agent.Type `json:"agent_type" yaml:"agent_type"`
	MaxEpisodeSteps int        `json:"max_episode_steps" yaml:"max_episode_steps"`

	// Lanes is the number of lanes observed, either ThreeLanes or
	// FiveLanes
	Lanes    int     `json:"lanes" yaml:"lanes"`
	Discount float64 `json:"discount" yaml:"discount"`
}

// NewConfig returns a new environment Config
func NewConfig(bridge string, scenarios []string, agentType agent.Type,
	maxEpisodeSteps, lanes int, discount float64) Config {
	return Config{
		Bridge:          bridge,
		Scenarios:       scenarios,
		Headless:        true,
		AgentType:       agentType,
		MaxEpisodeSteps: maxEpisodeSteps,
		Lanes:           lanes,
		Discount:        discount,
	}
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	if len(c.Scenarios) == 0 {
		return fmt.Errorf("validate: no scenarios")
	}
	if _, err := agent.FromType(c.AgentType, c.MaxEpisodeSteps); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if c.MaxEpisodeSteps < 0 {
		return fmt.Errorf("validate: max episode steps must be "+
			"non-negative\n\thave(%v)", c.MaxEpisodeSteps)
	}
	if _, err := c.Observation(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1]\n\thave(%v)",
			c.Discount)
	}
	return nil
}

// Observation returns the observation adapter for the configured
// number of lanes
func (c Config) Observation() (adapter.LaneTTC, error) {
	switch c.Lanes {
	case ThreeLanes:
		return adapter.LaneTTC3, nil
	case FiveLanes:
		return adapter.LaneTTC5, nil
	}
	return adapter.LaneTTC{}, fmt.Errorf("observation: no adapter for %v "+
		"lanes", c.Lanes)
}

// Interface returns the agent interface of the configured agent type
func (c Config) Interface() (agent.Interface, error) {
	return agent.FromType(c.AgentType, c.MaxEpisodeSteps)
}

// Action returns the action adapter matching the configured agent
// type's action space
func (c Config) Action() (adapter.ActionAdapter, error) {
	iface, err := c.Interface()
	if err != nil {
		return nil, fmt.Errorf("action: %w", err)
	}
	if iface.Action == agent.Lane {
		return adapter.Lane{}, nil
	}
	return adapter.Continuous{}, nil
}

// AgentSpec returns the agent Spec acting with policy in the
// configured environment
func (c Config) AgentSpec(policy agent.Policy) (agent.Spec, error) {
	iface, err := c.Interface()
	if err != nil {
		return agent.Spec{}, fmt.Errorf("agentSpec: %w", err)
	}
	obs, err := c.Observation()
	if err != nil {
		return agent.Spec{}, fmt.Errorf("agentSpec: %w", err)
	}
	action, err := c.Action()
	if err != nil {
		return agent.Spec{}, fmt.Errorf("agentSpec: %w", err)
	}

	return agent.NewSpec(iface, policy, obs, action, adapter.PassThrough)
}

// Create connects to the configured simulator bridge and returns the
// environment in which agentID acts with policy
func (c Config) Create(ctx context.Context, agentID string, seed uint64,
	policy agent.Policy, logger *zap.Logger) (*hiway.HiWay, error) {
	sim, err := c.dial(ctx, []string{agentID}, seed, logger)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	env, err := c.CreateWith(sim, agentID, policy, logger)
	if err != nil {
		sim.Close()
		return nil, fmt.Errorf("create: %w", err)
	}
	return env, nil
}

// CreateWith returns the environment in which agentID acts with policy
// in an existing simulator
func (c Config) CreateWith(sim smarts.Simulator, agentID string,
	policy agent.Policy, logger *zap.Logger) (*hiway.HiWay, error) {
	spec, err := c.AgentSpec(policy)
	if err != nil {
		return nil, fmt.Errorf("createWith: %w", err)
	}
	return hiway.New(sim, agentID, spec, c.Discount, logger)
}

// CreateMulti connects to the configured simulator bridge and returns
// the environment in which every agent in policies drives with its
// policy on a shared road
func (c Config) CreateMulti(ctx context.Context, policies map[string]agent.Policy,
	seed uint64, logger *zap.Logger) (*hiway.Multi, error) {
	ids := make([]string, 0, len(policies))
	for id := range policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sim, err := c.dial(ctx, ids, seed, logger)
	if err != nil {
		return nil, fmt.Errorf("createMulti: %w", err)
	}

	env, err := c.CreateMultiWith(sim, policies, logger)
	if err != nil {
		sim.Close()
		return nil, fmt.Errorf("createMulti: %w", err)
	}
	return env, nil
}

// CreateMultiWith returns the environment in which every agent in
// policies drives with its policy in an existing simulator
func (c Config) CreateMultiWith(sim smarts.Simulator,
	policies map[string]agent.Policy, logger *zap.Logger) (*hiway.Multi,
	error) {
	specs := make(map[string]agent.Spec, len(policies))
	for id, policy := range policies {
		spec, err := c.AgentSpec(policy)
		if err != nil {
			return nil, fmt.Errorf("createMultiWith: agent %v: %w", id, err)
		}
		specs[id] = spec
	}
	return hiway.NewMulti(sim, specs, c.Discount, logger)
}

// dial connects to the configured simulator bridge, asking it to create
// agentIDs with the configured agent interface
func (c Config) dial(ctx context.Context, agentIDs []string, seed uint64,
	logger *zap.Logger) (*remote.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	iface, err := c.Interface()
	if err != nil {
		return nil, err
	}

	interfaces := make(map[string]agent.Interface, len(agentIDs))
	for _, id := range agentIDs {
		interfaces[id] = iface
	}
	return remote.Dial(ctx, c.Bridge, remote.Config{
		Scenarios:  c.Scenarios,
		AgentIDs:   agentIDs,
		Interfaces: interfaces,
		Headless:   c.Headless,
		Seed:       seed,
		Logger:     logger,
	})
}
