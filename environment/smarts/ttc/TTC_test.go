package ttc

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/samuelfneumann/smartslearn/environment/smarts"
)

const laneWidth = 3.5

// straightPaths returns n parallel paths heading along +y, with
// waypoints at y = 0, 10, 20. Path i follows lane "lane-i" with lane
// index i.
func straightPaths(n int) []smarts.WaypointPath {
	paths := make([]smarts.WaypointPath, n)
	for i := range paths {
		for _, y := range []float64{0, 10, 20} {
			paths[i] = append(paths[i], smarts.Waypoint{
				Pos:       r2.Vec{X: float64(i) * laneWidth, Y: y},
				LaneID:    fmt.Sprintf("lane-%d", i),
				LaneIndex: i,
				LaneWidth: laneWidth,
			})
		}
	}
	return paths
}

func egoOn(lane int, speed float64) smarts.EgoState {
	return smarts.EgoState{
		Position: r2.Vec{X: float64(lane) * laneWidth, Y: 0},
		Speed:    speed,
	}
}

func vehicle(lane int, y, speed float64) smarts.VehicleState {
	return smarts.VehicleState{
		ID:       fmt.Sprintf("car-%d-%v", lane, y),
		Position: r2.Vec{X: float64(lane) * laneWidth, Y: y},
		Speed:    speed,
		LaneID:   fmt.Sprintf("lane-%d", lane),
	}
}

var approx = cmpopts.EquateApprox(0, 1e-12)

func TestEncodeSingleLeadVehicle(t *testing.T) {
	ego := egoOn(1, 50)
	neighbors := []smarts.VehicleState{vehicle(1, 10, 50-36)}

	f, err := Encode(ego, straightPaths(3), neighbors, Lanes3)
	require.NoError(t, err)

	want := []float64{1.0, 0.1, 1.0}
	if diff := cmp.Diff(want, f.TTC, approx); diff != "" {
		t.Errorf("ttc mismatch (-want +have):\n%s", diff)
	}
	if diff := cmp.Diff(want, f.LaneDist, approx); diff != "" {
		t.Errorf("lane dist mismatch (-want +have):\n%s", diff)
	}
}

func TestEncodeNoLaneToTheLeft(t *testing.T) {
	ego := egoOn(0, 50)
	neighbors := []smarts.VehicleState{
		vehicle(0, 10, 20),
		vehicle(1, 20, 10),
		vehicle(2, 10, 0),
	}

	f, err := Encode(ego, straightPaths(3), neighbors, Lanes5)
	require.NoError(t, err)
	require.Equal(t, 5, f.Len())

	for _, i := range []int{0, 1} {
		assert.Equal(t, 0.0, f.TTC[i], "ttc index %v", i)
		assert.Equal(t, 0.0, f.LaneDist[i], "lane dist index %v", i)
	}
	for _, i := range []int{2, 3, 4} {
		assert.NotZero(t, f.TTC[i], "ttc index %v", i)
		assert.NotZero(t, f.LaneDist[i], "lane dist index %v", i)
	}
}

func TestEncodeZeroFillsLanesPastTheTop(t *testing.T) {
	for radius := 1; radius <= 3; radius++ {
		f, err := Encode(egoOn(2, 30), straightPaths(3), nil, radius)
		require.NoError(t, err)

		for k := 1; k <= radius; k++ {
			assert.Equal(t, 0.0, f.TTC[radius+k])
			assert.Equal(t, 0.0, f.LaneDist[radius+k])
		}
		for k := 0; k <= radius && 2-k >= 0; k++ {
			assert.Equal(t, Sentinel, f.TTC[radius-k])
			assert.Equal(t, Sentinel, f.LaneDist[radius-k])
		}
	}
}

func TestEncodeSentinelWithoutNeighbors(t *testing.T) {
	f, err := Encode(egoOn(1, 30), straightPaths(3), nil, Lanes3)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 1}, f.TTC)
	assert.Equal(t, []float64{1, 1, 1}, f.LaneDist)

	f, err = Encode(egoOn(0, 30), straightPaths(1), nil, Lanes5)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 1, 0, 0}, f.TTC)
	assert.Equal(t, []float64{0, 0, 1, 0, 0}, f.LaneDist)
}

func TestEncodeKeepsMinimumPerLane(t *testing.T) {
	ego := egoOn(1, 60)
	paths := straightPaths(3)
	first := vehicle(1, 20, 24)

	base, err := Encode(ego, paths, []smarts.VehicleState{first}, Lanes3)
	require.NoError(t, err)

	for _, second := range []smarts.VehicleState{
		vehicle(1, 10, 24), // closer
		vehicle(1, 20, 0),  // same place, faster closing
		vehicle(1, 20, 50), // same place, slower closing
		vehicle(1, 10, 90), // pulling away
	} {
		f, err := Encode(ego, paths, []smarts.VehicleState{first, second},
			Lanes3)
		require.NoError(t, err)

		assert.LessOrEqual(t, f.TTC[1], base.TTC[1])
		assert.LessOrEqual(t, f.LaneDist[1], base.LaneDist[1])
		assert.Equal(t, base.TTC[0], f.TTC[0])
		assert.Equal(t, base.TTC[2], f.TTC[2])
	}
}

func TestEncodeIgnoresIrrelevantVehicles(t *testing.T) {
	ego := egoOn(1, 60)
	paths := straightPaths(3)
	relevant := []smarts.VehicleState{vehicle(0, 10, 30), vehicle(2, 20, 10)}

	want, err := Encode(ego, paths, relevant, Lanes3)
	require.NoError(t, err)

	offPath := vehicle(1, 10, 0)
	offPath.Position.X += ProximityThreshold + 0.5

	beyond := vehicle(1, 30, 0)
	beyond.Position.Y += ProximityThreshold

	unknownLane := vehicle(1, 10, 0)
	unknownLane.LaneID = "junction-7"

	for name, v := range map[string]smarts.VehicleState{
		"off path":     offPath,
		"beyond paths": beyond,
		"unknown lane": unknownLane,
	} {
		t.Run(name, func(t *testing.T) {
			have, err := Encode(ego, paths,
				append([]smarts.VehicleState{v}, relevant...), Lanes3)
			require.NoError(t, err)
			assert.Equal(t, want, have)
		})
	}
}

func TestEncodeDiscardsPastCollisions(t *testing.T) {
	ego := egoOn(1, 30)

	// Faster vehicle ahead: negative time to collision
	f, err := Encode(ego, straightPaths(3),
		[]smarts.VehicleState{vehicle(1, 10, 60)}, Lanes3)
	require.NoError(t, err)
	assert.Equal(t, Sentinel, f.TTC[1])
	assert.Equal(t, Sentinel, f.LaneDist[1])

	// Vehicle at the head of the path: zero time to collision
	f, err = Encode(ego, straightPaths(3),
		[]smarts.VehicleState{vehicle(1, 0, 10)}, Lanes3)
	require.NoError(t, err)
	assert.Equal(t, Sentinel, f.TTC[1])
	assert.Equal(t, Sentinel, f.LaneDist[1])
}

func TestEncodeClampsRelativeSpeed(t *testing.T) {
	ego := egoOn(1, 40)
	f, err := Encode(ego, straightPaths(3),
		[]smarts.VehicleState{vehicle(1, 10, 40)}, Lanes3)
	require.NoError(t, err)

	// 10 / 1e-5 / 10 is far above the sentinel, so only the lane
	// distance changes
	assert.Equal(t, Sentinel, f.TTC[1])
	assert.InDelta(t, 0.1, f.LaneDist[1], 1e-12)
}

func TestEncodeUsesArcLength(t *testing.T) {
	// A path that bends: (0, 0) -> (0, 6) -> (8, 6)
	path := smarts.WaypointPath{
		{Pos: r2.Vec{X: 0, Y: 0}, LaneID: "a"},
		{Pos: r2.Vec{X: 0, Y: 6}, LaneID: "a"},
		{Pos: r2.Vec{X: 8, Y: 6}, LaneID: "a"},
	}
	v := smarts.VehicleState{Position: r2.Vec{X: 8, Y: 7}, Speed: 0,
		LaneID: "a"}
	ego := smarts.EgoState{Speed: 36}

	ttcs, dists, err := ByPath(ego, []smarts.WaypointPath{path},
		[]smarts.VehicleState{v})
	require.NoError(t, err)

	assert.InDelta(t, 14.0/100, dists[0], 1e-12)
	assert.InDelta(t, 14.0/10/10, ttcs[0], 1e-12)
}

func TestEncodeIsDeterministic(t *testing.T) {
	ego := egoOn(1, 55)
	paths := straightPaths(4)
	neighbors := []smarts.VehicleState{
		vehicle(0, 20, 10), vehicle(1, 10, 33), vehicle(1, 20, 3),
		vehicle(2, 10, 70), vehicle(3, 20, 0),
	}

	first, err := Encode(ego, paths, neighbors, Lanes5)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Encode(ego, paths, neighbors, Lanes5)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestEncodeEgoLaneOutsidePaths(t *testing.T) {
	paths := straightPaths(2)
	for i := range paths {
		for j := range paths[i] {
			paths[i][j].LaneIndex += 4
		}
	}

	f, err := Encode(egoOn(0, 30), paths, nil, Lanes3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, f.TTC)
	assert.Equal(t, []float64{0, 0, 0}, f.LaneDist)
}

func TestEncodeErrors(t *testing.T) {
	ego := egoOn(0, 10)

	_, err := Encode(ego, nil, nil, Lanes3)
	assert.ErrorIs(t, err, ErrNoPaths)

	_, err = Encode(ego, []smarts.WaypointPath{straightPaths(1)[0], {}}, nil,
		Lanes3)
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = Encode(ego, straightPaths(1), nil, 0)
	assert.ErrorIs(t, err, ErrRadius)
}

func TestEgoCentered(t *testing.T) {
	ttcs := []float64{0.1, 0.2, 0.3, 0.4}
	dists := []float64{0.5, 0.6, 0.7, 0.8}

	f := EgoCentered(1, 2, ttcs, dists)
	assert.Equal(t, []float64{0, 0.1, 0.2, 0.3, 0.4}, f.TTC)
	assert.Equal(t, []float64{0, 0.5, 0.6, 0.7, 0.8}, f.LaneDist)

	f = EgoCentered(3, 1, ttcs, dists)
	assert.Equal(t, []float64{0.3, 0.4, 0}, f.TTC)
	assert.Equal(t, []float64{0.7, 0.8, 0}, f.LaneDist)
}

func BenchmarkEncode(b *testing.B) {
	ego := egoOn(2, 55)
	paths := straightPaths(5)
	neighbors := make([]smarts.VehicleState, 0, 15)
	for lane := 0; lane < 5; lane++ {
		for _, y := range []float64{0, 10, 20} {
			neighbors = append(neighbors, vehicle(lane, y, float64(lane*10)))
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(ego, paths, neighbors, Lanes5); err != nil {
			b.Fatal(err)
		}
	}
}
