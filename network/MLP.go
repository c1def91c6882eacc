package network

import (
	"encoding/gob"
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP is a multi-layered perceptron which scores a single observation
// at a time. A final linear layer with a bias unit is always added so
// that the network produces Outputs() values.
type MLP struct {
	g      *G.ExprGraph
	vm     G.VM
	input  *G.Node
	layers []*fcLayer

	prediction *G.Node
	predVal    G.Value

	features    int
	outputs     int
	hiddenSizes []int
	activations []*Activation
}

// checkpoint is the serialized form of an MLP
type checkpoint struct {
	Features    int
	Outputs     int
	HiddenSizes []int
	Activations []string
	Weights     [][]float64
	Biases      [][]float64
}

// NewMLP returns a new MLP taking features inputs and producing outputs
// values. The number of nodes in hidden layer i is hiddenSizes[i] and
// its activation is activations[i]. Weights are initialized from a
// Glorot normal distribution seeded with seed and biases are zero.
func NewMLP(features, outputs int, hiddenSizes []int,
	activations []*Activation, seed uint64) (*MLP, error) {
	src := rand.NewSource(seed)
	sizes := layerSizes(features, outputs, hiddenSizes)
	weights := make([][]float64, len(sizes)-1)
	biases := make([][]float64, len(sizes)-1)
	for i := range weights {
		weights[i] = glorotNormal(sizes[i], sizes[i+1], src)
		biases[i] = make([]float64, sizes[i+1])
	}

	net, err := build(features, outputs, hiddenSizes, activations, weights,
		biases)
	if err != nil {
		return nil, fmt.Errorf("newMLP: %w", err)
	}
	return net, nil
}

// Load restores an MLP saved with Save
func Load(path string) (*MLP, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: could not open checkpoint: %w", err)
	}
	defer file.Close()

	var c checkpoint
	if err := gob.NewDecoder(file).Decode(&c); err != nil {
		return nil, fmt.Errorf("load: could not decode checkpoint: %w", err)
	}

	activations := make([]*Activation, len(c.Activations))
	for i, name := range c.Activations {
		if activations[i], err = ActivationByName(name); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
	}

	net, err := build(c.Features, c.Outputs, c.HiddenSizes, activations,
		c.Weights, c.Biases)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return net, nil
}

// build constructs the computational graph of an MLP with the given
// layer weights
func build(features, outputs int, hiddenSizes []int,
	activations []*Activation, weights, biases [][]float64) (*MLP, error) {
	if features < 1 || outputs < 1 {
		return nil, fmt.Errorf("build: features (%v) and outputs (%v) must "+
			"be positive", features, outputs)
	}

	if len(activations) != len(hiddenSizes) {
		return nil, fmt.Errorf("build: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(hiddenSizes), len(activations))
	}

	sizes := layerSizes(features, outputs, hiddenSizes)
	if len(weights) != len(sizes)-1 || len(biases) != len(sizes)-1 {
		return nil, fmt.Errorf("build: invalid number of layers\n\twant(%v)"+
			"\n\thave(%v)", len(sizes)-1, len(weights))
	}

	// The final layer is linear
	acts := append(append([]*Activation{}, activations...), Identity())

	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(1, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	net := &MLP{
		g:           g,
		input:       input,
		features:    features,
		outputs:     outputs,
		hiddenSizes: hiddenSizes,
		activations: activations,
	}

	pred := input
	for i := range weights {
		layer, err := newFCLayer(g, sizes[i], sizes[i+1], weights[i],
			biases[i], acts[i], fmt.Sprintf("L%d", i))
		if err != nil {
			return nil, fmt.Errorf("build: layer %v: %w", i, err)
		}
		net.layers = append(net.layers, layer)

		if pred, err = layer.fwd(pred); err != nil {
			msg := "build: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}
	net.prediction = pred
	G.Read(net.prediction, &net.predVal)
	net.vm = G.NewTapeMachine(g)

	return net, nil
}

// Score runs the forward pass of the MLP on a single observation
func (m *MLP) Score(obs []float64) ([]float64, error) {
	if len(obs) != m.features {
		return nil, fmt.Errorf("score: invalid number of features"+
			"\n\twant(%v)\n\thave(%v)", m.features, len(obs))
	}

	input := make([]float64, len(obs))
	copy(input, obs)
	inputTensor := tensor.New(
		tensor.WithShape(1, m.features),
		tensor.WithBacking(input),
	)
	if err := G.Let(m.input, inputTensor); err != nil {
		return nil, fmt.Errorf("score: could not set input: %v", err)
	}

	defer m.vm.Reset()
	if err := m.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("score: could not run forward pass: %v", err)
	}

	pred := m.predVal.Data().([]float64)
	out := make([]float64, len(pred))
	copy(out, pred)
	return out, nil
}

// Features returns the number of features in a single observation
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of outputs from the network
func (m *MLP) Outputs() int {
	return m.outputs
}

// Save writes the MLP's architecture and weights to path
func (m *MLP) Save(path string) error {
	c := checkpoint{
		Features:    m.features,
		Outputs:     m.outputs,
		HiddenSizes: m.hiddenSizes,
		Activations: make([]string, len(m.activations)),
	}
	for i, act := range m.activations {
		c.Activations[i] = act.String()
	}
	for _, layer := range m.layers {
		w, b := layer.values()
		c.Weights = append(c.Weights, w)
		c.Biases = append(c.Biases, b)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: could not create checkpoint: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c); err != nil {
		return fmt.Errorf("save: could not encode checkpoint: %w", err)
	}
	return nil
}

// Close releases the resources of the MLP's VM
func (m *MLP) Close() error {
	return m.vm.Close()
}

// layerSizes returns the number of nodes in each layer, including the
// input and output layers
func layerSizes(features, outputs int, hiddenSizes []int) []int {
	sizes := append([]int{features}, hiddenSizes...)
	return append(sizes, outputs)
}
