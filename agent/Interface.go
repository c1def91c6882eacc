package agent

import "fmt"

// ActionSpaceType is the kind of action the simulator expects from an
// agent
type ActionSpaceType string

const (
	// Continuous actions are [throttle, brake, steering]
	Continuous ActionSpaceType = "Continuous"

	// Lane actions are discrete lane-level commands
	Lane ActionSpaceType = "Lane"
)

// Type is a predefined agent interface
type Type string

const (
	Laner                        Type = "Laner"
	StandardWithAbsoluteSteering Type = "StandardWithAbsoluteSteering"
)

// DefaultNeighborhoodRadius is the radius, in meters, within which
// neighbouring vehicles are observed by the predefined interfaces
const DefaultNeighborhoodRadius float64 = 100

// Interface describes what an agent observes and how it acts
type Interface struct {
	// MaxEpisodeSteps ends episodes after this many steps. Zero means
	// episodes are never cut off.
	MaxEpisodeSteps int `json:"max_episode_steps" yaml:"max_episode_steps"`

	Waypoints bool `json:"waypoints" yaml:"waypoints"`

	// NeighborhoodRadius is the radius within which neighbouring
	// vehicles are observed. Zero disables neighbour observations.
	NeighborhoodRadius float64 `json:"neighborhood_radius" yaml:"neighborhood_radius"`

	Action ActionSpaceType `json:"action" yaml:"action"`
}

// FromType returns the predefined Interface of type t
func FromType(t Type, maxEpisodeSteps int) (Interface, error) {
	switch t {
	case Laner:
		return Interface{
			MaxEpisodeSteps: maxEpisodeSteps,
			Waypoints:       true,
			Action:          Lane,
		}, nil

	case StandardWithAbsoluteSteering:
		return Interface{
			MaxEpisodeSteps:    maxEpisodeSteps,
			Waypoints:          true,
			NeighborhoodRadius: DefaultNeighborhoodRadius,
			Action:             Continuous,
		}, nil
	}

	return Interface{}, fmt.Errorf("fromType: no such agent type %v", t)
}
