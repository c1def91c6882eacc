// Package agent defines driving agents: the interface an agent requests
// from the simulator, the policy choosing its actions, and the adapters
// translating between the two.
package agent

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/environment/smarts/adapter"
)

// Policy chooses actions from adapted observations.
//
// A Policy moves through Uninitialized -> Ready -> Closed. Setup
// acquires any resources the policy needs (for example loading a
// model), Act may only be called while Ready, and Teardown releases
// resources. See Lifecycle.
type Policy interface {
	Setup() error
	Act(obs *mat.VecDense) (*mat.VecDense, error)
	Teardown() error
}

// Spec packages together everything needed to run an agent in the
// simulator
type Spec struct {
	Interface   Interface
	Policy      Policy
	Observation adapter.ObservationAdapter
	Action      adapter.ActionAdapter
	Reward      adapter.RewardAdapter
}

// NewSpec returns a new agent Spec. If reward is nil, rewards are
// passed through unchanged.
func NewSpec(iface Interface, policy Policy,
	obs adapter.ObservationAdapter, action adapter.ActionAdapter,
	reward adapter.RewardAdapter) (Spec, error) {
	if reward == nil {
		reward = adapter.PassThrough
	}

	s := Spec{
		Interface:   iface,
		Policy:      policy,
		Observation: obs,
		Action:      action,
		Reward:      reward,
	}
	if err := s.Validate(); err != nil {
		return Spec{}, fmt.Errorf("newSpec: %w", err)
	}
	return s, nil
}

// Validate returns an error if the Spec is incomplete or if its action
// adapter does not match the action space of its interface
func (s Spec) Validate() error {
	if s.Policy == nil {
		return errors.New("validate: no policy")
	}
	if s.Observation == nil || s.Action == nil || s.Reward == nil {
		return errors.New("validate: missing adapter")
	}

	cardinality := s.Action.Spec().Cardinality
	switch s.Interface.Action {
	case Continuous:
		if cardinality != environment.Continuous {
			return fmt.Errorf("validate: interface action %v requires "+
				"continuous actions", s.Interface.Action)
		}
	case Lane:
		if cardinality != environment.Discrete {
			return fmt.Errorf("validate: interface action %v requires "+
				"discrete actions", s.Interface.Action)
		}
	default:
		return fmt.Errorf("validate: unknown action space %q",
			s.Interface.Action)
	}
	return nil
}

// Act adapts a raw observation, queries the policy, and adapts the
// policy's action for the simulator
func (s Spec) Act(obs smarts.Observation) (smarts.Action, error) {
	vec, err := s.Observation.Transform(obs)
	if err != nil {
		return smarts.Action{}, fmt.Errorf("act: could not adapt "+
			"observation: %w", err)
	}

	a, err := s.Policy.Act(vec)
	if err != nil {
		return smarts.Action{}, fmt.Errorf("act: %w", err)
	}

	action, err := s.Action.Transform(a)
	if err != nil {
		return smarts.Action{}, fmt.Errorf("act: could not adapt "+
			"action: %w", err)
	}
	return action, nil
}

// ObservationSpec returns the specification of adapted observations
func (s Spec) ObservationSpec() environment.Spec {
	return s.Observation.Spec()
}

// ActionSpec returns the specification of policy actions
func (s Spec) ActionSpec() environment.Spec {
	return s.Action.Spec()
}
