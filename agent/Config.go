package agent

import "github.com/samuelfneumann/smartslearn/environment"

// PolicyType names a kind of Policy which can be created from a
// PolicyConfig
type PolicyType string

const (
	KeepLanePolicy PolicyType = "KeepLane"
	RandomPolicy   PolicyType = "Random"
	ModelPolicy    PolicyType = "Model"
)

// PolicyConfig represents a configuration for creating a Policy
type PolicyConfig interface {
	// CreatePolicy creates the policy that the config describes. The
	// policy acts in the action space described by actionSpec.
	CreatePolicy(actionSpec environment.Spec, seed uint64) (Policy, error)

	// Validate returns an error describing whether or not the
	// configuration is valid
	Validate() error

	// Type returns the type of policy the config creates
	Type() PolicyType
}
