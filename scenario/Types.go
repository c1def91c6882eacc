// Package scenario describes the social vehicle traffic and ego
// missions of SMARTS scenarios and generates their files
package scenario

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Distribution is a normal distribution over a multiplier, such as a
// multiplier of the speed limit
type Distribution struct {
	Mean  float64 `json:"mean" yaml:"mean"`
	Sigma float64 `json:"sigma" yaml:"sigma"`
}

// LaneChangingModel configures how eagerly an actor changes lanes
type LaneChangingModel struct {
	Impatience  float64 `json:"impatience" yaml:"impatience"`
	Cooperative float64 `json:"cooperative" yaml:"cooperative"`
}

// JunctionModel configures how an actor behaves at junctions
type JunctionModel struct {
	DriveAfterRedTime float64 `json:"drive_after_red_time" yaml:"drive_after_red_time"`
	ImpatienceTime    float64 `json:"impatience_time" yaml:"impatience_time"`
}

// TrafficActor is a kind of social vehicle
type TrafficActor struct {
	Name         string             `json:"name" yaml:"name"`
	Speed        Distribution       `json:"speed" yaml:"speed"`
	LaneChanging *LaneChangingModel `json:"lane_changing,omitempty" yaml:"lane_changing,omitempty"`
	Junction     *JunctionModel     `json:"junction,omitempty" yaml:"junction,omitempty"`
}

// NewTrafficActor returns an actor driving at the speed limit with the
// simulator's default behaviour models
func NewTrafficActor(name string) TrafficActor {
	return TrafficActor{Name: name, Speed: Distribution{Mean: 1.0}}
}

// Endpoint is a position on the road network given by an edge, a lane
// index on that edge, and an offset along the lane in meters
type Endpoint struct {
	Edge   string  `json:"edge" yaml:"edge"`
	Lane   int     `json:"lane" yaml:"lane"`
	Offset float64 `json:"offset" yaml:"offset"`
}

// Route is a route through the road network. A random route is chosen
// by the simulator when the scenario is built.
type Route struct {
	Random bool      `json:"random,omitempty" yaml:"random,omitempty"`
	Begin  *Endpoint `json:"begin,omitempty" yaml:"begin,omitempty"`
	End    *Endpoint `json:"end,omitempty" yaml:"end,omitempty"`
	Via    []string  `json:"via,omitempty" yaml:"via,omitempty"`
}

// RandomRoute returns a Route chosen at random by the simulator
func RandomRoute() Route {
	return Route{Random: true}
}

// NewRoute returns a Route from begin to end
func NewRoute(begin, end Endpoint, via ...string) Route {
	return Route{Begin: &begin, End: &end, Via: via}
}

// Validate returns an error if the route is neither random nor fully
// specified
func (r Route) Validate() error {
	if r.Random {
		if r.Begin != nil || r.End != nil {
			return fmt.Errorf("validate: random routes have no endpoints")
		}
		return nil
	}
	if r.Begin == nil || r.End == nil {
		return fmt.Errorf("validate: route requires a begin and end")
	}
	return nil
}

// WeightedActor is an actor and its relative frequency within a Flow
type WeightedActor struct {
	Actor  TrafficActor `json:"actor" yaml:"actor"`
	Weight float64      `json:"weight" yaml:"weight"`
}

// Flow spawns actors along a route at a rate per hour between begin
// and end seconds
type Flow struct {
	ID     string          `json:"id,omitempty" yaml:"id,omitempty"`
	Route  Route           `json:"route" yaml:"route"`
	Rate   float64         `json:"rate" yaml:"rate"`
	Begin  float64         `json:"begin" yaml:"begin"`
	End    float64         `json:"end" yaml:"end"`
	Actors []WeightedActor `json:"actors" yaml:"actors"`
}

// Validate returns an error describing whether or not the Flow is
// valid
func (f Flow) Validate() error {
	if err := f.Route.Validate(); err != nil {
		return err
	}
	if f.Rate <= 0 {
		return fmt.Errorf("validate: rate must be positive\n\thave(%v)",
			f.Rate)
	}
	if f.End <= f.Begin {
		return fmt.Errorf("validate: flow must end after it begins"+
			"\n\tbegin(%v)\n\tend(%v)", f.Begin, f.End)
	}
	if len(f.Actors) == 0 {
		return fmt.Errorf("validate: flow has no actors")
	}
	for _, a := range f.Actors {
		if a.Actor.Name == "" {
			return fmt.Errorf("validate: unnamed actor")
		}
		if a.Weight <= 0 {
			return fmt.Errorf("validate: actor %v weight must be positive",
				a.Actor.Name)
		}
	}
	return nil
}

// Hash returns a deterministic hash of the flow's route, timing, and
// actors, salted with index so that otherwise identical flows of a
// Traffic are told apart
func (f Flow) Hash(index int) uint64 {
	d := xxhash.New()
	writeUint := func(v uint64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	writeFloat := func(v float64) { writeUint(math.Float64bits(v)) }
	writeString := func(s string) {
		writeUint(uint64(len(s)))
		d.WriteString(s)
	}
	writeEndpoint := func(e *Endpoint) {
		if e == nil {
			writeUint(0)
			return
		}
		writeUint(1)
		writeString(e.Edge)
		writeUint(uint64(e.Lane))
		writeFloat(e.Offset)
	}

	writeUint(uint64(index))
	if f.Route.Random {
		writeUint(1)
	} else {
		writeUint(0)
	}
	writeEndpoint(f.Route.Begin)
	writeEndpoint(f.Route.End)
	writeUint(uint64(len(f.Route.Via)))
	for _, edge := range f.Route.Via {
		writeString(edge)
	}

	writeFloat(f.Rate)
	writeFloat(f.Begin)
	writeFloat(f.End)
	for _, a := range f.Actors {
		writeString(a.Actor.Name)
		writeFloat(a.Actor.Speed.Mean)
		writeFloat(a.Actor.Speed.Sigma)
		writeFloat(a.Weight)
	}
	return d.Sum64()
}

// FlowID returns the identifier of the flow at index within a Traffic
func (f Flow) FlowID(index int) string {
	return fmt.Sprintf("flow-%016x", f.Hash(index))
}

// Traffic is the social vehicle traffic of a scenario
type Traffic struct {
	Flows []Flow `json:"flows" yaml:"flows"`
}

// Mission is the task of an ego agent. An endless mission starts at
// Route.Begin and never ends.
type Mission struct {
	Route   Route `json:"route" yaml:"route"`
	Endless bool  `json:"endless,omitempty" yaml:"endless,omitempty"`
}

// EndlessMission returns a mission which begins at begin and continues
// forever
func EndlessMission(begin Endpoint) Mission {
	return Mission{Route: Route{Begin: &begin}, Endless: true}
}

// Validate returns an error describing whether or not the Mission is
// valid
func (m Mission) Validate() error {
	if m.Endless {
		if m.Route.Begin == nil || m.Route.Random {
			return fmt.Errorf("validate: endless missions require a begin")
		}
		return nil
	}
	return m.Route.Validate()
}
