package network

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds a fully connected layer to the graph g. The weights
// and bias are given in row major order with shapes (in, out) and
// (1, out).
func newFCLayer(g *G.ExprGraph, in, out int, weights, bias []float64,
	act *Activation, name string) (*fcLayer, error) {
	if len(weights) != in*out {
		return nil, fmt.Errorf("newFCLayer: invalid number of weights"+
			"\n\twant(%v)\n\thave(%v)", in*out, len(weights))
	}
	if len(bias) != out {
		return nil, fmt.Errorf("newFCLayer: invalid number of biases"+
			"\n\twant(%v)\n\thave(%v)", out, len(bias))
	}

	w := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"W"),
		G.WithValue(tensor.New(
			tensor.WithShape(in, out),
			tensor.WithBacking(weights),
		)),
	)
	b := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(1, out),
		G.WithName(name+"B"),
		G.WithValue(tensor.New(
			tensor.WithShape(1, out),
			tensor.WithBacking(bias),
		)),
	)

	return &fcLayer{weights: w, bias: b, act: act}, nil
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, err
	}

	if f.act == nil {
		return x, nil
	}
	return f.act.fwd(x)
}

// values returns copies of the layer's weights and bias
func (f *fcLayer) values() (weights, bias []float64) {
	w := f.weights.Value().Data().([]float64)
	b := f.bias.Value().Data().([]float64)

	weights = make([]float64, len(w))
	bias = make([]float64, len(b))
	copy(weights, w)
	copy(bias, b)
	return
}

// glorotNormal samples in*out weights from a Glorot normal distribution
func glorotNormal(in, out int, src rand.Source) []float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: math.Sqrt(2.0 / float64(in+out)),
		Src:   src,
	}

	weights := make([]float64, in*out)
	for i := range weights {
		weights[i] = dist.Rand()
	}
	return weights
}
