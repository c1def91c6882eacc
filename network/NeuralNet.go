// Package network implements the neural networks that score
// observations for driving policies.
package network

// Scorer maps a flattened observation to a vector of action outputs.
// Scorers are opaque to the policies that use them: a policy only
// knows how many features a Scorer consumes and how many outputs it
// produces.
type Scorer interface {
	Score(obs []float64) ([]float64, error)
	Features() int
	Outputs() int
}

// Closer is a Scorer holding resources which must be released
type Closer interface {
	Scorer
	Close() error
}
