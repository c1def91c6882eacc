// Package smarts describes the per-step data exchanged with the SMARTS
// driving simulator: the ego vehicle, the candidate lane-following
// waypoint paths, and the neighbouring social vehicles.
//
// All values are snapshots taken once per simulation step and are never
// mutated by this module.
package smarts

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Waypoint is a single point along a candidate driving path
type Waypoint struct {
	Pos        r2.Vec  `json:"pos" yaml:"pos"`
	Heading    float64 `json:"heading" yaml:"heading"` // radians, 0 faces +y
	LaneID     string  `json:"lane_id" yaml:"lane_id"`
	LaneIndex  int     `json:"lane_index" yaml:"lane_index"`
	LaneWidth  float64 `json:"lane_width" yaml:"lane_width"`
	SpeedLimit float64 `json:"speed_limit,omitempty" yaml:"speed_limit,omitempty"`
}

// WaypointPath is one drivable route the ego could follow by staying in
// a lane, ordered from the waypoint nearest the ego to the farthest
type WaypointPath []Waypoint

// VehicleState is a snapshot of a neighbouring traffic participant
type VehicleState struct {
	ID        string  `json:"id" yaml:"id"`
	Position  r2.Vec  `json:"position" yaml:"position"`
	Heading   float64 `json:"heading" yaml:"heading"`
	Speed     float64 `json:"speed" yaml:"speed"`
	LaneID    string  `json:"lane_id" yaml:"lane_id"`
	LaneIndex int     `json:"lane_index" yaml:"lane_index"`
}

// EgoState is the state of the controlled vehicle
type EgoState struct {
	ID        string  `json:"id" yaml:"id"`
	Position  r2.Vec  `json:"position" yaml:"position"`
	Heading   float64 `json:"heading" yaml:"heading"`
	Speed     float64 `json:"speed" yaml:"speed"`
	Steering  float64 `json:"steering" yaml:"steering"`
	LaneID    string  `json:"lane_id" yaml:"lane_id"`
	LaneIndex int     `json:"lane_index" yaml:"lane_index"`
}

// Events are the episode-relevant events the simulator reports for an
// agent on a step
type Events struct {
	Collisions             bool `json:"collisions" yaml:"collisions"`
	OffRoad                bool `json:"off_road" yaml:"off_road"`
	ReachedGoal            bool `json:"reached_goal" yaml:"reached_goal"`
	ReachedMaxEpisodeSteps bool `json:"reached_max_episode_steps" yaml:"reached_max_episode_steps"`
}

// Terminal returns whether any event ends the episode
func (e Events) Terminal() bool {
	return e.Collisions || e.OffRoad || e.ReachedGoal ||
		e.ReachedMaxEpisodeSteps
}

// Observation is the raw per-step observation bundle of a single agent
type Observation struct {
	Ego           EgoState       `json:"ego_vehicle_state" yaml:"ego_vehicle_state"`
	WaypointPaths []WaypointPath `json:"waypoint_paths" yaml:"waypoint_paths"`
	Neighbors     []VehicleState `json:"neighborhood_vehicle_states" yaml:"neighborhood_vehicle_states"`
	Events        Events         `json:"events" yaml:"events"`
}

// Heads returns the first waypoint of every non-empty path
func (o Observation) Heads() []Waypoint {
	heads := make([]Waypoint, 0, len(o.WaypointPaths))
	for _, path := range o.WaypointPaths {
		if len(path) > 0 {
			heads = append(heads, path[0])
		}
	}
	return heads
}
