package policy

import (
	"fmt"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment"
)

func init() {
	agent.Register(agent.KeepLanePolicy, KeepLaneConfig{})
	agent.Register(agent.RandomPolicy, RandomConfig{})
	agent.Register(agent.ModelPolicy, ModelConfig{})
}

// KeepLaneConfig creates KeepLane policies
type KeepLaneConfig struct{}

// CreatePolicy implements the agent.PolicyConfig interface
func (KeepLaneConfig) CreatePolicy(actionSpec environment.Spec,
	_ uint64) (agent.Policy, error) {
	if _, err := numActions(actionSpec); err != nil {
		return nil, fmt.Errorf("createPolicy: keep lane: %w", err)
	}
	return NewKeepLane(), nil
}

// Validate implements the agent.PolicyConfig interface
func (KeepLaneConfig) Validate() error { return nil }

// Type implements the agent.PolicyConfig interface
func (KeepLaneConfig) Type() agent.PolicyType { return agent.KeepLanePolicy }

// RandomConfig creates Random policies
type RandomConfig struct{}

// CreatePolicy implements the agent.PolicyConfig interface
func (RandomConfig) CreatePolicy(actionSpec environment.Spec,
	seed uint64) (agent.Policy, error) {
	return NewRandom(actionSpec, seed)
}

// Validate implements the agent.PolicyConfig interface
func (RandomConfig) Validate() error { return nil }

// Type implements the agent.PolicyConfig interface
func (RandomConfig) Type() agent.PolicyType { return agent.RandomPolicy }

// ModelConfig creates Model policies from a saved network
type ModelConfig struct {
	Path string `json:"path" yaml:"path"`
}

// CreatePolicy implements the agent.PolicyConfig interface
func (m ModelConfig) CreatePolicy(actionSpec environment.Spec,
	_ uint64) (agent.Policy, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("createPolicy: %w", err)
	}
	return NewModel(actionSpec, FromFile(m.Path))
}

// Validate implements the agent.PolicyConfig interface
func (m ModelConfig) Validate() error {
	if m.Path == "" {
		return fmt.Errorf("validate: model policy requires a path")
	}
	return nil
}

// Type implements the agent.PolicyConfig interface
func (ModelConfig) Type() agent.PolicyType { return agent.ModelPolicy }
