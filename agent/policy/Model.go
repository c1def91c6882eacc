package policy

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/network"
	"github.com/samuelfneumann/smartslearn/utils/floatutils"
	"github.com/samuelfneumann/smartslearn/utils/matutils"
)

// Loader loads the network that a Model policy acts with
type Loader func() (network.Closer, error)

// FromFile returns a Loader which restores a network saved with
// (*network.MLP).Save
func FromFile(path string) Loader {
	return func() (network.Closer, error) {
		return network.Load(path)
	}
}

// Model is a policy which acts according to a trained network. The
// network is loaded at Setup and released at Teardown.
//
// In a discrete action space the network outputs one score per action
// and the highest scoring action is taken, ties going to the lowest
// action. In a continuous action space the network outputs the action
// itself, which is clipped to the action bounds.
type Model struct {
	life agent.Lifecycle
	spec environment.Spec
	load Loader
	net  network.Closer
}

// NewModel returns a new Model policy acting in actionSpec with the
// network returned by load
func NewModel(actionSpec environment.Spec, load Loader) (*Model, error) {
	if load == nil {
		return nil, fmt.Errorf("newModel: nil loader")
	}
	return &Model{spec: actionSpec, load: load}, nil
}

// Setup implements the agent.Policy interface
func (m *Model) Setup() error {
	return m.life.Start(func() error {
		net, err := m.load()
		if err != nil {
			return fmt.Errorf("setup: could not load model: %w", err)
		}

		want := m.spec.Shape.Len()
		if m.spec.Cardinality == environment.Discrete {
			if want, err = numActions(m.spec); err != nil {
				net.Close()
				return fmt.Errorf("setup: %w", err)
			}
		}
		if net.Outputs() != want {
			net.Close()
			return fmt.Errorf("setup: model outputs do not match action "+
				"space\n\twant(%v)\n\thave(%v)", want, net.Outputs())
		}

		m.net = net
		return nil
	})
}

// Act implements the agent.Policy interface
func (m *Model) Act(obs *mat.VecDense) (*mat.VecDense, error) {
	if err := m.life.Check(); err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}

	out, err := m.net.Score(mat.Col(nil, 0, obs))
	if err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}

	if m.spec.Cardinality == environment.Discrete {
		_, indices := floatutils.MaxSlice(out)
		action := m.spec.LowerBound.AtVec(0) + float64(indices[0])
		return mat.NewVecDense(1, []float64{action}), nil
	}

	action := mat.NewVecDense(len(out), out)
	matutils.VecClipBounds(action, m.spec.LowerBound, m.spec.UpperBound)
	return action, nil
}

// Teardown implements the agent.Policy interface
func (m *Model) Teardown() error {
	return m.life.Stop(func() error {
		err := m.net.Close()
		m.net = nil
		return err
	})
}
