// Package environment outlines the interfaces and structs needed to
// implement concrete driving environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/timestep"
)

// Ender determines when an episode should end
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment
type Environment interface {
	// Reset resets the environment between episodes and returns the
	// first TimeStep of the new episode
	Reset() (timestep.TimeStep, error)

	// Step takes one environmental step, returning the next TimeStep
	// and whether the episode is done
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	// CurrentTimeStep returns the most recent TimeStep
	CurrentTimeStep() timestep.TimeStep

	RewardSpec() Spec
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}

// Closer is an Environment holding external resources
type Closer interface {
	Environment
	Close() error
}

// MultiAgent implements a simulated environment in which several agents,
// each identified by an ID, act together
type MultiAgent interface {
	// AgentIDs returns the IDs of the agents acting in the environment
	AgentIDs() []string

	// Reset resets the environment between episodes and returns the
	// first TimeStep of each agent
	Reset() (map[string]timestep.TimeStep, error)

	// Step takes one environmental step with an action for each agent
	// whose episode has not ended. It returns the next TimeStep of each
	// of those agents and whether every agent's episode is done.
	Step(actions map[string]*mat.VecDense) (map[string]timestep.TimeStep,
		bool, error)
}
