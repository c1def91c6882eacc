// Package pbt implements population based training schedules:
// hyperparameter mutations and the exploit and explore rounds which
// copy the configurations of strong trials into weak ones.
package pbt

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Hyperparameter names used by the default mutations
const (
	Lambda           = "lambda"
	ClipParam        = "clip_param"
	LearningRate     = "lr"
	NumSGDIter       = "num_sgd_iter"
	SGDMinibatchSize = "sgd_minibatch_size"
	TrainBatchSize   = "train_batch_size"
)

// DefaultResampleProbability is the probability that a perturbed
// hyperparameter is resampled from its distribution rather than
// shifted from its current value
const DefaultResampleProbability = 0.25

// Perturbation factors applied to continuous and integer
// hyperparameters
const (
	DecreaseFactor = 0.8
	IncreaseFactor = 1.2
)

// Kind is the kind of distribution a hyperparameter is drawn from
type Kind string

const (
	// Continuous hyperparameters are drawn uniformly from [Min, Max)
	Continuous Kind = "Continuous"

	// Integer hyperparameters are drawn uniformly from the integers in
	// [Min, Max)
	Integer Kind = "Integer"

	// Categorical hyperparameters are drawn uniformly from Values
	Categorical Kind = "Categorical"
)

// Config maps hyperparameter names to values. Integer hyperparameters
// hold whole numbers.
type Config map[string]float64

// Copy returns a copy of the Config
func (c Config) Copy() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns the hyperparameter names in sorted order
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Mutation describes how a single hyperparameter is sampled and
// perturbed
type Mutation struct {
	Name   string    `json:"name" yaml:"name"`
	Kind   Kind      `json:"kind" yaml:"kind"`
	Min    float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64   `json:"max,omitempty" yaml:"max,omitempty"`
	Values []float64 `json:"values,omitempty" yaml:"values,omitempty"`
}

// DefaultMutations returns the mutations of a PPO trainer's
// hyperparameters
func DefaultMutations() []Mutation {
	return []Mutation{
		{Name: Lambda, Kind: Continuous, Min: 0.9, Max: 1.0},
		{Name: ClipParam, Kind: Continuous, Min: 0.01, Max: 0.5},
		{Name: LearningRate, Kind: Categorical,
			Values: []float64{1e-3, 5e-4, 1e-4, 5e-5, 1e-5}},
		{Name: NumSGDIter, Kind: Integer, Min: 1, Max: 30},
		{Name: SGDMinibatchSize, Kind: Integer, Min: 128, Max: 16384},
		{Name: TrainBatchSize, Kind: Integer, Min: 2000, Max: 160000},
	}
}

// Validate returns an error if the Mutation cannot be sampled
func (m Mutation) Validate() error {
	switch m.Kind {
	case Continuous:
		if !(m.Min < m.Max) {
			return fmt.Errorf("validate: %v: empty range [%v, %v)", m.Name,
				m.Min, m.Max)
		}
	case Integer:
		if math.Ceil(m.Min) >= m.Max {
			return fmt.Errorf("validate: %v: no integers in [%v, %v)",
				m.Name, m.Min, m.Max)
		}
	case Categorical:
		if len(m.Values) == 0 {
			return fmt.Errorf("validate: %v: no values", m.Name)
		}
	default:
		return fmt.Errorf("validate: %v: unknown kind %q", m.Name, m.Kind)
	}
	return nil
}

// Sample draws a value from the Mutation's distribution
func (m Mutation) Sample(rng *rand.Rand) float64 {
	switch m.Kind {
	case Continuous:
		return distuv.Uniform{Min: m.Min, Max: m.Max, Src: rng}.Rand()
	case Integer:
		low := int(math.Ceil(m.Min))
		high := int(math.Ceil(m.Max))
		return float64(low + rng.Intn(high-low))
	default:
		return m.Values[rng.Intn(len(m.Values))]
	}
}

// Perturb returns a value near v. Continuous and integer values are
// multiplied by DecreaseFactor or IncreaseFactor, and categorical
// values move one position up or down Values, staying in range.
func (m Mutation) Perturb(v float64, rng *rand.Rand) float64 {
	down := rng.Float64() < 0.5

	switch m.Kind {
	case Continuous, Integer:
		factor := IncreaseFactor
		if down {
			factor = DecreaseFactor
		}
		if m.Kind == Integer {
			return math.Round(v * factor)
		}
		return v * factor

	default:
		i := m.nearest(v)
		if down {
			i--
		} else {
			i++
		}
		if i < 0 {
			i = 0
		} else if i >= len(m.Values) {
			i = len(m.Values) - 1
		}
		return m.Values[i]
	}
}

// nearest returns the index of the categorical value closest to v
func (m Mutation) nearest(v float64) int {
	best := 0
	for i, value := range m.Values {
		if math.Abs(value-v) < math.Abs(m.Values[best]-v) {
			best = i
		}
	}
	return best
}

// Sample draws a Config from every mutation's distribution and applies
// Explore
func Sample(mutations []Mutation, rng *rand.Rand) Config {
	c := make(Config, len(mutations))
	for _, m := range mutations {
		c[m.Name] = m.Sample(rng)
	}
	return Explore(c)
}

// Perturb returns a perturbed copy of c. Each mutated hyperparameter is
// resampled with probability resample and perturbed from its current
// value otherwise. Explore is applied to the result.
func Perturb(c Config, mutations []Mutation, resample float64,
	rng *rand.Rand) Config {
	out := c.Copy()
	for _, m := range mutations {
		v, ok := out[m.Name]
		if !ok || rng.Float64() < resample {
			out[m.Name] = m.Sample(rng)
			continue
		}
		out[m.Name] = m.Perturb(v, rng)
	}
	return Explore(out)
}

// Explore enforces the constraints between PPO hyperparameters: the
// train batch holds at least two minibatches and at least one SGD
// iteration is run. Explore modifies and returns c.
func Explore(c Config) Config {
	if minibatch, ok := c[SGDMinibatchSize]; ok {
		if c[TrainBatchSize] < 2*minibatch {
			c[TrainBatchSize] = 2 * minibatch
		}
	}
	if iter, ok := c[NumSGDIter]; ok && iter < 1 {
		c[NumSGDIter] = 1
	}
	return c
}
