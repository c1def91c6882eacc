// Package adapter translates between the simulator's native observations
// and actions and the flat vectors consumed and produced by policies.
package adapter

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/environment/smarts/ttc"
)

// Observation field names. Flattened observations lay fields out in
// sorted order of these names, which is the order policy networks were
// trained on.
const (
	AngleError         = "angle_error"
	DistanceFromCenter = "distance_from_center"
	EgoLaneDist        = "ego_lane_dist"
	EgoTTC             = "ego_ttc"
	Speed              = "speed"
	Steering           = "steering"
)

const (
	maxAngleError = 180.0
	unbounded     = 1e10
)

// ObservationAdapter converts a raw simulator observation to a vector
type ObservationAdapter interface {
	Transform(smarts.Observation) (*mat.VecDense, error)
	Spec() environment.Spec
}

// Field is a named, contiguous block of a flattened observation
type Field struct {
	Name   string
	Offset int
	Size   int
}

// LaneTTC observes the ego's position and heading relative to its lane
// together with the lane-relative time-to-collision features of package
// ttc
type LaneTTC struct {
	// Radius is the number of lanes reported on each side of the ego
	Radius int

	// SpeedScale and SteeringScale divide the raw ego speed and steering
	SpeedScale    float64
	SteeringScale float64
}

// LaneTTC3 observes the ego lane and one lane on either side with raw
// speed and steering
var LaneTTC3 = LaneTTC{Radius: ttc.Lanes3, SpeedScale: 1, SteeringScale: 1}

// LaneTTC5 observes the ego lane and two lanes on either side with
// normalised speed and steering
var LaneTTC5 = LaneTTC{Radius: ttc.Lanes5, SpeedScale: 100,
	SteeringScale: 45}

// Fields returns the layout of the flattened observation
func (l LaneTTC) Fields() []Field {
	lanes := 2*l.Radius + 1
	sizes := map[string]int{
		AngleError:         1,
		DistanceFromCenter: 1,
		EgoLaneDist:        lanes,
		EgoTTC:             lanes,
		Speed:              1,
		Steering:           1,
	}

	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, len(names))
	offset := 0
	for i, name := range names {
		fields[i] = Field{Name: name, Offset: offset, Size: sizes[name]}
		offset += sizes[name]
	}
	return fields
}

// Field returns the named field of the flattened observation
func (l LaneTTC) Field(name string) (Field, bool) {
	for _, f := range l.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Len returns the length of the flattened observation
func (l LaneTTC) Len() int {
	return 4 + 2*(2*l.Radius+1)
}

// Transform flattens a raw observation
func (l LaneTTC) Transform(obs smarts.Observation) (*mat.VecDense, error) {
	ego := obs.Ego
	heads := obs.Heads()
	if len(heads) == 0 {
		return nil, fmt.Errorf("transform: %w", ttc.ErrNoPaths)
	}

	// Distance of the vehicle from the center of its lane
	closest := heads[smarts.Closest(heads, ego.Position)]
	signedDist := closest.SignedLateralError(ego.Position)
	halfWidth := closest.LaneWidth * 0.5
	normDist := 0.0
	if halfWidth > 0 {
		normDist = signedDist / halfWidth
	}

	byPathTTC, byPathDist, err := ttc.ByPath(ego, obs.WaypointPaths,
		obs.Neighbors)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	features := ttc.EgoCentered(closest.LaneIndex, l.Radius, byPathTTC,
		byPathDist)

	values := map[string][]float64{
		AngleError:         {closest.RelativeHeading(ego.Heading)},
		DistanceFromCenter: {normDist},
		EgoLaneDist:        features.LaneDist,
		EgoTTC:             features.TTC,
		Speed:              {ego.Speed / l.SpeedScale},
		Steering:           {ego.Steering / l.SteeringScale},
	}

	data := make([]float64, 0, l.Len())
	for _, f := range l.Fields() {
		data = append(data, values[f.Name]...)
	}
	return mat.NewVecDense(len(data), data), nil
}

// Spec returns the observation specification of the flattened
// observation
func (l LaneTTC) Spec() environment.Spec {
	lower := make([]float64, l.Len())
	upper := make([]float64, l.Len())
	for _, f := range l.Fields() {
		bound := unbounded
		if f.Name == AngleError {
			bound = maxAngleError
		}
		for i := f.Offset; i < f.Offset+f.Size; i++ {
			lower[i] = -bound
			upper[i] = bound
		}
	}

	return environment.NewSpec(mat.NewVecDense(l.Len(), nil),
		environment.Observation, mat.NewVecDense(l.Len(), lower),
		mat.NewVecDense(l.Len(), upper), environment.Continuous)
}
