// Package ttc encodes the traffic around the ego vehicle into fixed-size,
// lane-relative time-to-collision and lane-distance features.
//
// For every candidate lane within some radius of the ego's lane, the
// encoder reports the normalised distance along the lane to the nearest
// conflicting vehicle and the normalised time until the ego would reach
// it at the current closing speed. Index radius of each feature array is
// always the ego's own lane, index radius+k is k lanes above it, and
// index radius-k is k lanes below it.
//
// A value of Sentinel (1.0) means nothing was detected on a lane, while
// 0.0 means the lane does not exist.
package ttc

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/samuelfneumann/smartslearn/environment/smarts"
)

// Fixed constants of the encoding. These were tuned against one
// simulation configuration and are part of the contract with trained
// policies, so they are not configurable.
const (
	// ProximityThreshold is the maximum distance between a vehicle and
	// its nearest waypoint for the vehicle to be considered on a path
	ProximityThreshold float64 = 2

	// MinRelativeSpeed is the smallest closing speed magnitude, in m/s
	MinRelativeSpeed float64 = 1e-5

	// TTCScale normalises time-to-collision
	TTCScale float64 = 10

	// DistScale normalises distances along a lane
	DistScale float64 = 100

	// Sentinel marks a lane on which no conflicting vehicle was found
	Sentinel float64 = 1.0
)

// Common encoder radii
const (
	Lanes3 = 1
	Lanes5 = 2
)

var (
	ErrNoPaths   = errors.New("no waypoint paths")
	ErrEmptyPath = errors.New("empty waypoint path")
	ErrRadius    = errors.New("radius must be at least 1")
)

// Features holds the ego-centred encoding. Both slices have length
// 2*radius + 1.
type Features struct {
	TTC      []float64
	LaneDist []float64
}

// Len returns the number of lanes encoded
func (f Features) Len() int {
	return len(f.TTC)
}

// laneWaypoint is a waypoint tagged with the path it belongs to and its
// distance along that path from the path's head
type laneWaypoint struct {
	smarts.Waypoint
	path int
	dist float64
}

// Encode computes the ego-centred time-to-collision and lane distance
// features for the given radius. Encode returns an error only if there
// are no paths, if some path has no waypoints, or if radius < 1.
func Encode(ego smarts.EgoState, paths []smarts.WaypointPath,
	neighbors []smarts.VehicleState, radius int) (Features, error) {
	if radius < 1 {
		return Features{}, fmt.Errorf("encode: %w: have %v", ErrRadius, radius)
	}

	ttcByPath, distByPath, err := ByPath(ego, paths, neighbors)
	if err != nil {
		return Features{}, fmt.Errorf("encode: %w", err)
	}

	egoLane, err := EgoLaneIndex(ego.Position, paths)
	if err != nil {
		return Features{}, fmt.Errorf("encode: %w", err)
	}

	return EgoCentered(egoLane, radius, ttcByPath, distByPath), nil
}

// EgoLaneIndex returns the lane index of the path head closest to the
// ego's position
func EgoLaneIndex(position r2.Vec, paths []smarts.WaypointPath) (int, error) {
	if err := validate(paths); err != nil {
		return 0, fmt.Errorf("egoLaneIndex: %w", err)
	}

	heads := make([]smarts.Waypoint, len(paths))
	for i := range paths {
		heads[i] = paths[i][0]
	}
	return heads[smarts.Closest(heads, position)].LaneIndex, nil
}

// ByPath computes the time-to-collision and lane distance of the
// nearest conflicting vehicle on each path, indexed by path. Paths with
// no conflicting vehicle hold Sentinel.
func ByPath(ego smarts.EgoState, paths []smarts.WaypointPath,
	neighbors []smarts.VehicleState) (ttc, laneDist []float64, err error) {
	if err := validate(paths); err != nil {
		return nil, nil, fmt.Errorf("byPath: %w", err)
	}

	wps := cumulative(paths)

	ttc = make([]float64, len(paths))
	laneDist = make([]float64, len(paths))
	for i := range paths {
		ttc[i] = Sentinel
		laneDist[i] = Sentinel
	}

	for _, v := range neighbors {
		nearest, ok := nearestOnLane(wps, v)
		if !ok {
			continue
		}

		relativeSpeed := (ego.Speed - v.Speed) * 1000 / 3600
		if relativeSpeed < MinRelativeSpeed && relativeSpeed > -MinRelativeSpeed {
			relativeSpeed = MinRelativeSpeed
		}

		t := nearest.dist / relativeSpeed
		t /= TTCScale
		if t <= 0 {
			// The collision would have happened in the past
			continue
		}

		d := nearest.dist / DistScale
		if d < laneDist[nearest.path] {
			laneDist[nearest.path] = d
		}
		if t < ttc[nearest.path] {
			ttc[nearest.path] = t
		}
	}

	return ttc, laneDist, nil
}

// EgoCentered re-indexes per-path features around the ego's lane. Lanes
// which fall outside the range of paths are zero-filled.
func EgoCentered(egoLane, radius int, ttcByPath,
	distByPath []float64) Features {
	size := 2*radius + 1
	f := Features{
		TTC:      make([]float64, size),
		LaneDist: make([]float64, size),
	}

	for i := 0; i < size; i++ {
		path := egoLane + i - radius
		if path < 0 || path >= len(ttcByPath) {
			continue
		}
		f.TTC[i] = ttcByPath[path]
		f.LaneDist[i] = distByPath[path]
	}
	return f
}

// cumulative flattens the paths into waypoints tagged with their path
// index and arc length from the head of their path
func cumulative(paths []smarts.WaypointPath) []laneWaypoint {
	size := 0
	for _, path := range paths {
		size += len(path)
	}

	wps := make([]laneWaypoint, 0, size)
	for i, path := range paths {
		dist := 0.0
		for j, wp := range path {
			if j > 0 {
				dist += smarts.Distance(path[j-1].Pos, wp.Pos)
			}
			wps = append(wps, laneWaypoint{wp, i, dist})
		}
	}
	return wps
}

// nearestOnLane returns the waypoint on the vehicle's lane closest to
// the vehicle. The second return value is false if no waypoint lies on
// the vehicle's lane within ProximityThreshold, which happens when the
// vehicle is behind the ego or beyond the end of the paths.
func nearestOnLane(wps []laneWaypoint, v smarts.VehicleState) (laneWaypoint,
	bool) {
	var nearest laneWaypoint
	best := -1.0
	for _, wp := range wps {
		if wp.LaneID != v.LaneID {
			continue
		}
		if d := wp.DistTo(v.Position); best < 0 || d < best {
			best = d
			nearest = wp
		}
	}

	if best < 0 || best > ProximityThreshold {
		return laneWaypoint{}, false
	}
	return nearest, true
}

func validate(paths []smarts.WaypointPath) error {
	if len(paths) == 0 {
		return ErrNoPaths
	}
	for i, path := range paths {
		if len(path) == 0 {
			return fmt.Errorf("%w: path %v", ErrEmptyPath, i)
		}
	}
	return nil
}
