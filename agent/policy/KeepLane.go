// Package policy implements driving policies
package policy

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment"
)

// KeepLane is a policy which always stays in its current lane. It acts
// in the discrete lane action space.
type KeepLane struct {
	life agent.Lifecycle
}

// NewKeepLane returns a new KeepLane policy
func NewKeepLane() *KeepLane {
	return &KeepLane{}
}

// Setup implements the agent.Policy interface
func (k *KeepLane) Setup() error {
	return k.life.Start(nil)
}

// Act implements the agent.Policy interface
func (k *KeepLane) Act(_ *mat.VecDense) (*mat.VecDense, error) {
	if err := k.life.Check(); err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}
	return mat.NewVecDense(1, []float64{0}), nil
}

// Teardown implements the agent.Policy interface
func (k *KeepLane) Teardown() error {
	return k.life.Stop(nil)
}

// numActions returns the number of discrete actions described by a
// single-dimensional discrete action spec
func numActions(spec environment.Spec) (int, error) {
	if spec.Cardinality != environment.Discrete {
		return 0, fmt.Errorf("numActions: action spec must be discrete")
	}
	if spec.Shape.Len() != 1 {
		return 0, fmt.Errorf("numActions: discrete actions must be a "+
			"single index\n\twant(1)\n\thave(%v)", spec.Shape.Len())
	}

	n := int(spec.UpperBound.AtVec(0)-spec.LowerBound.AtVec(0)) + 1
	if n < 1 {
		return 0, fmt.Errorf("numActions: empty action space")
	}
	return n, nil
}
