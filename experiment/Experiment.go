// Package experiment implements functionality for running an experiment
package experiment

import "github.com/samuelfneumann/smartslearn/experiment/tracker"

// Experiment outlines structs that can run experiments.
//
// Experiments send each environment TimeStep to their Trackers, which
// cache the data they need in RAM until Save is called. Run runs
// episodes until the experiment's step budget is spent and RunEpisode
// runs a single episode, returning whether the budget has been spent.
type Experiment interface {
	Run() error
	RunEpisode() (bool, error)

	// Save all tracked data to disk
	Save() error

	// Register adds a new tracker.Tracker to the (possibly already
	// running) experiment
	Register(t tracker.Tracker)
}
