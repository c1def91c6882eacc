// Package checkpointer implements checkpointing of trained models
// during an experiment
package checkpointer

import ts "github.com/samuelfneumann/smartslearn/timestep"

// Saver is an object that can save itself to a file, such as a
// *network.MLP
type Saver interface {
	Save(path string) error
}

// Checkpointer checkpoints/saves objects based on timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}
