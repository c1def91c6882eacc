package adapter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
)

// ActionAdapter converts a policy's action vector to a simulator action
type ActionAdapter interface {
	Transform(*mat.VecDense) (smarts.Action, error)
	Spec() environment.Spec
}

// RewardAdapter shapes the simulator's reward for an agent
type RewardAdapter func(obs smarts.Observation, reward float64) float64

// PassThrough returns the simulator's reward unchanged
func PassThrough(_ smarts.Observation, reward float64) float64 {
	return reward
}

// Continuous adapts [throttle, brake, steering] actions
type Continuous struct{}

// Transform implements ActionAdapter
func (Continuous) Transform(a *mat.VecDense) (smarts.Action, error) {
	if a.Len() != 3 {
		return smarts.Action{}, fmt.Errorf("transform: continuous action "+
			"must be [throttle, brake, steering]\n\twant(3)\n\thave(%v)",
			a.Len())
	}

	action := make([]float64, 3)
	for i := range action {
		action[i] = a.AtVec(i)
	}
	return smarts.Action{Continuous: action}, nil
}

// Spec implements ActionAdapter
func (Continuous) Spec() environment.Spec {
	return environment.NewSpec(
		mat.NewVecDense(3, nil),
		environment.Action,
		mat.NewVecDense(3, []float64{0.0, 0.0, -1.0}),
		mat.NewVecDense(3, []float64{1.0, 1.0, 1.0}),
		environment.Continuous,
	)
}

// Lane adapts discrete actions indexing smarts.LaneActions
type Lane struct{}

// Transform implements ActionAdapter
func (Lane) Transform(a *mat.VecDense) (smarts.Action, error) {
	if a.Len() != 1 {
		return smarts.Action{}, fmt.Errorf("transform: lane action must "+
			"be a single index\n\twant(1)\n\thave(%v)", a.Len())
	}

	index := a.AtVec(0)
	if index != math.Trunc(index) || index < 0 ||
		int(index) >= len(smarts.LaneActions) {
		return smarts.Action{}, fmt.Errorf("transform: no lane action %v",
			index)
	}
	return smarts.Action{Lane: smarts.LaneActions[int(index)]}, nil
}

// Spec implements ActionAdapter
func (Lane) Spec() environment.Spec {
	return environment.NewSpec(
		mat.NewVecDense(1, nil),
		environment.Action,
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{float64(len(smarts.LaneActions) - 1)}),
		environment.Discrete,
	)
}
