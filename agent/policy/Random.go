package policy

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment"
)

// Random selects actions uniformly at random from its action space.
// Discrete actions are drawn from a uniform categorical distribution
// and continuous actions uniformly within the action bounds.
type Random struct {
	life agent.Lifecycle
	spec environment.Spec
	seed uint64

	categorical *distuv.Categorical
	uniforms    []distuv.Uniform
}

// NewRandom returns a new Random policy over actionSpec. The random
// stream is restarted from seed at Setup.
func NewRandom(actionSpec environment.Spec, seed uint64) (*Random, error) {
	if actionSpec.Cardinality == environment.Discrete {
		if _, err := numActions(actionSpec); err != nil {
			return nil, fmt.Errorf("newRandom: %w", err)
		}
	}
	return &Random{spec: actionSpec, seed: seed}, nil
}

// Setup implements the agent.Policy interface
func (r *Random) Setup() error {
	return r.life.Start(func() error {
		src := rand.NewSource(r.seed)

		if r.spec.Cardinality == environment.Discrete {
			n, err := numActions(r.spec)
			if err != nil {
				return fmt.Errorf("setup: %w", err)
			}
			weights := make([]float64, n)
			for i := range weights {
				weights[i] = 1.0
			}
			c := distuv.NewCategorical(weights, src)
			r.categorical = &c
			return nil
		}

		r.uniforms = make([]distuv.Uniform, r.spec.Shape.Len())
		for i := range r.uniforms {
			r.uniforms[i] = distuv.Uniform{
				Min: r.spec.LowerBound.AtVec(i),
				Max: r.spec.UpperBound.AtVec(i),
				Src: src,
			}
		}
		return nil
	})
}

// Act implements the agent.Policy interface
func (r *Random) Act(_ *mat.VecDense) (*mat.VecDense, error) {
	if err := r.life.Check(); err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}

	if r.categorical != nil {
		action := r.spec.LowerBound.AtVec(0) + r.categorical.Rand()
		return mat.NewVecDense(1, []float64{action}), nil
	}

	action := make([]float64, len(r.uniforms))
	for i := range r.uniforms {
		action[i] = r.uniforms[i].Rand()
	}
	return mat.NewVecDense(len(action), action), nil
}

// Teardown implements the agent.Policy interface
func (r *Random) Teardown() error {
	return r.life.Stop(func() error {
		r.categorical = nil
		r.uniforms = nil
		return nil
	})
}
