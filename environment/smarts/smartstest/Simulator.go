// Package smartstest provides a scripted smarts.Simulator for testing
// environments and experiments without the SMARTS simulator
package smartstest

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/samuelfneumann/smartslearn/environment/smarts"
)

const (
	// LaneWidth is the width of every lane on the straight road
	LaneWidth = 3.5

	// StepSeconds is the simulated time between steps
	StepSeconds = 0.1

	// LeadGap is the distance of the stopped lead vehicle ahead of the
	// first agent in lane 1
	LeadGap = 20.0

	// AgentGap is the distance between agents sharing a lane
	AgentGap = 10.0

	// PathLength is the number of waypoints, spaced one meter apart, in
	// each lane's path
	PathLength = 30

	// SocialID is the ID of the stopped lead vehicle
	SocialID = "social-0"
)

// Simulator drives agents down a straight road of parallel lanes
// heading towards +y. Agent i starts in lane i modulo Lanes, AgentGap
// meters behind any agent before it in the same lane, and every agent
// travels at the same constant speed. When the road has more than one
// lane, a stopped vehicle sits LeadGap meters ahead of the first agent
// in lane 1.
//
// Every agent observes the stopped vehicle and all other agents still
// on the road as neighbours. Once an agent is done it is removed from
// the simulation until the next Reset. The simulator records every
// action it receives.
type Simulator struct {
	AgentIDs []string
	Lanes    int

	// Speed is the speed of every agent in km/h
	Speed float64

	// Reward is returned on every step
	Reward float64

	// DoneAfter ends episodes after this many steps with the
	// ReachedMaxEpisodeSteps event. Zero means never.
	DoneAfter int

	// OffRoadAfter drives the agents off the road after this many
	// steps. Their final observations have no waypoints. Zero means
	// never.
	OffRoadAfter int

	// GoalAfter ends the episode of an agent after the given number of
	// steps with the ReachedGoal event
	GoalAfter map[string]int

	// ResetErr and StepErr are returned by Reset and Step when set
	ResetErr error
	StepErr  error

	// Actions holds the actions received for each agent
	Actions map[string][]smarts.Action
	Resets  int
	Closed  bool

	y     float64
	steps int
	done  map[string]bool
}

// New returns a new Simulator with lanes lanes driving agentID at
// 36 km/h
func New(agentID string, lanes int) *Simulator {
	return NewMulti([]string{agentID}, lanes)
}

// NewMulti returns a new Simulator with lanes lanes driving every agent
// in agentIDs at 36 km/h
func NewMulti(agentIDs []string, lanes int) *Simulator {
	return &Simulator{
		AgentIDs: agentIDs,
		Lanes:    lanes,
		Speed:    36,
		Reward:   1,
		Actions:  make(map[string][]smarts.Action),
		done:     make(map[string]bool),
	}
}

// Reset implements the smarts.Simulator interface
func (s *Simulator) Reset() (map[string]smarts.Observation, error) {
	if s.Closed {
		return nil, fmt.Errorf("reset: simulator closed")
	}
	if s.ResetErr != nil {
		return nil, s.ResetErr
	}

	s.Resets++
	s.y = 0
	s.steps = 0
	s.done = make(map[string]bool)

	observations := make(map[string]smarts.Observation, len(s.AgentIDs))
	for i, id := range s.AgentIDs {
		observations[id] = s.observation(i)
	}
	return observations, nil
}

// Step implements the smarts.Simulator interface. Every agent still on
// the road must act.
func (s *Simulator) Step(actions map[string]smarts.Action) (smarts.StepResult,
	error) {
	if s.Closed {
		return smarts.StepResult{}, fmt.Errorf("step: simulator closed")
	}
	if s.StepErr != nil {
		return smarts.StepResult{}, s.StepErr
	}

	active := s.active()
	for _, i := range active {
		if _, ok := actions[s.AgentIDs[i]]; !ok {
			return smarts.StepResult{}, fmt.Errorf("step: no action for %v",
				s.AgentIDs[i])
		}
	}
	for _, i := range active {
		id := s.AgentIDs[i]
		s.Actions[id] = append(s.Actions[id], actions[id])
	}

	s.steps++
	s.y += s.Speed / 3.6 * StepSeconds

	result := smarts.StepResult{
		Observations: make(map[string]smarts.Observation, len(active)),
		Rewards:      make(map[string]float64, len(active)),
		Dones:        make(map[string]bool, len(active)),
		Scores:       make(map[string]float64, len(active)),
	}
	for _, i := range active {
		id := s.AgentIDs[i]
		obs := s.observation(i)
		done := false
		if s.OffRoadAfter > 0 && s.steps >= s.OffRoadAfter {
			obs.WaypointPaths = nil
			obs.Events.OffRoad = true
			done = true
		} else if n := s.GoalAfter[id]; n > 0 && s.steps >= n {
			obs.Events.ReachedGoal = true
			done = true
		} else if s.DoneAfter > 0 && s.steps >= s.DoneAfter {
			obs.Events.ReachedMaxEpisodeSteps = true
			done = true
		}

		result.Observations[id] = obs
		result.Rewards[id] = s.Reward
		result.Dones[id] = done
		result.Scores[id] = s.y
	}
	for id, done := range result.Dones {
		if done {
			s.done[id] = true
		}
	}
	return result, nil
}

// Close implements the smarts.Simulator interface
func (s *Simulator) Close() error {
	s.Closed = true
	return nil
}

// Steps returns the number of steps taken in the current episode
func (s *Simulator) Steps() int {
	return s.steps
}

// active returns the indices of the agents still on the road
func (s *Simulator) active() []int {
	var active []int
	for i, id := range s.AgentIDs {
		if !s.done[id] {
			active = append(active, i)
		}
	}
	return active
}

// lane returns the lane index and position of agent i
func (s *Simulator) lane(i int) (int, r2.Vec) {
	lane := 0
	if s.Lanes > 0 {
		lane = i % s.Lanes
	}
	behind := 0.0
	if s.Lanes > 0 {
		behind = float64(i/s.Lanes) * AgentGap
	}
	return lane, r2.Vec{X: float64(lane) * LaneWidth, Y: s.y - behind}
}

func laneID(lane int) string {
	return fmt.Sprintf("lane-%d", lane)
}

func (s *Simulator) observation(agent int) smarts.Observation {
	lane, pos := s.lane(agent)

	paths := make([]smarts.WaypointPath, s.Lanes)
	for i := range paths {
		path := make(smarts.WaypointPath, PathLength)
		for j := range path {
			path[j] = smarts.Waypoint{
				Pos:       r2.Vec{X: float64(i) * LaneWidth, Y: pos.Y + float64(j)},
				LaneID:    laneID(i),
				LaneIndex: i,
				LaneWidth: LaneWidth,
			}
		}
		paths[i] = path
	}

	var neighbors []smarts.VehicleState
	if s.Lanes > 1 {
		neighbors = append(neighbors, smarts.VehicleState{
			ID:        SocialID,
			Position:  r2.Vec{X: LaneWidth, Y: s.y + LeadGap},
			LaneID:    laneID(1),
			LaneIndex: 1,
		})
	}
	for _, i := range s.active() {
		if i == agent {
			continue
		}
		otherLane, otherPos := s.lane(i)
		neighbors = append(neighbors, smarts.VehicleState{
			ID:        s.AgentIDs[i],
			Position:  otherPos,
			Speed:     s.Speed,
			LaneID:    laneID(otherLane),
			LaneIndex: otherLane,
		})
	}

	return smarts.Observation{
		Ego: smarts.EgoState{
			ID:        s.AgentIDs[agent],
			Position:  pos,
			Speed:     s.Speed,
			LaneID:    laneID(lane),
			LaneIndex: lane,
		},
		WaypointPaths: paths,
		Neighbors:     neighbors,
	}
}
