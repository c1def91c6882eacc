package hiway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/agent/policy"
	"github.com/samuelfneumann/smartslearn/environment/smarts/adapter"
	"github.com/samuelfneumann/smartslearn/environment/smarts/smartstest"
	"github.com/samuelfneumann/smartslearn/timestep"
)

func newMulti(t *testing.T, sim *smartstest.Simulator, maxSteps int) *Multi {
	t.Helper()

	iface, err := agent.FromType(agent.Laner, maxSteps)
	require.NoError(t, err)
	specs := make(map[string]agent.Spec)
	for _, id := range sim.AgentIDs {
		spec, err := agent.NewSpec(iface, policy.NewKeepLane(),
			adapter.LaneTTC3, adapter.Lane{}, nil)
		require.NoError(t, err)
		specs[id] = spec
	}

	env, err := NewMulti(sim, specs, 0.99, nil)
	require.NoError(t, err)
	return env
}

// laneDist returns the lane distance features of an adapted observation
func laneDist(step timestep.TimeStep) []float64 {
	f, _ := adapter.LaneTTC3.Field(adapter.EgoLaneDist)
	return mat.Col(nil, 0, step.Observation)[f.Offset : f.Offset+f.Size]
}

func TestMultiSharedRoad(t *testing.T) {
	// Both agents drive in the single lane, b AgentGap meters behind a
	sim := smartstest.NewMulti([]string{"a", "b"}, 1)
	env := newMulti(t, sim, 0)
	assert.Equal(t, []string{"a", "b"}, env.AgentIDs())

	steps, err := env.Reset()
	require.NoError(t, err)
	require.Len(t, steps, 2)
	first := steps["a"]
	assert.True(t, first.First())

	// Only b has a vehicle ahead of it
	assert.InDeltaSlice(t, []float64{0, 1, 0}, laneDist(steps["a"]), 1e-9)
	assert.InDeltaSlice(t, []float64{0, smartstest.AgentGap / 100, 0},
		laneDist(steps["b"]), 1e-9)

	steps, done, err := env.Step(map[string]*mat.VecDense{
		"a": keepLane,
		"b": keepLane,
	})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, steps["a"].Number)
	assert.Equal(t, 1.0, steps["b"].Reward)
	assert.Len(t, sim.Actions["a"], 1)
	assert.Len(t, sim.Actions["b"], 1)
	assert.Equal(t, steps, env.CurrentTimeSteps())
}

func TestMultiIndependentEpisodes(t *testing.T) {
	sim := smartstest.NewMulti([]string{"a", "b"}, 1)
	sim.GoalAfter = map[string]int{"a": 1}
	env := newMulti(t, sim, 3)

	_, err := env.Reset()
	require.NoError(t, err)

	_, _, err = env.Step(map[string]*mat.VecDense{"a": keepLane})
	assert.Error(t, err, "b must act")

	steps, done, err := env.Step(map[string]*mat.VecDense{
		"a": keepLane,
		"b": keepLane,
	})
	require.NoError(t, err)
	assert.False(t, done)
	a := steps["a"]
	assert.True(t, a.Last())
	assert.Equal(t, timestep.TerminalStateReached, a.EndType())

	// a has left the road so b acts alone and no longer sees it
	steps, done, err = env.Step(map[string]*mat.VecDense{"b": keepLane})
	require.NoError(t, err)
	assert.False(t, done)
	require.Len(t, steps, 1)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, laneDist(steps["b"]), 1e-9)
	assert.Len(t, sim.Actions["a"], 1)
	assert.Len(t, sim.Actions["b"], 2)

	steps, done, err = env.Step(map[string]*mat.VecDense{"b": keepLane})
	require.NoError(t, err)
	assert.True(t, done)
	b := steps["b"]
	assert.Equal(t, timestep.Timeout, b.EndType())

	_, _, err = env.Step(map[string]*mat.VecDense{"b": keepLane})
	assert.Error(t, err, "stepping after every episode ended")

	// Reset brings every agent back
	steps, err = env.Reset()
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestMultiErrors(t *testing.T) {
	sim := smartstest.NewMulti([]string{"a", "b"}, 3)
	env := newMulti(t, sim, 0)

	_, _, err := env.Step(map[string]*mat.VecDense{"a": keepLane,
		"b": keepLane})
	assert.Error(t, err, "stepping before reset")

	boom := errors.New("boom")
	sim.ResetErr = boom
	_, err = env.Reset()
	assert.ErrorIs(t, err, boom)

	sim.ResetErr = nil
	_, err = env.Reset()
	require.NoError(t, err)
	sim.StepErr = boom
	_, _, err = env.Step(map[string]*mat.VecDense{"a": keepLane,
		"b": keepLane})
	assert.ErrorIs(t, err, boom)

	_, err = env.ActionSpec("c")
	assert.Error(t, err)
	spec, err := env.ActionSpec("a")
	require.NoError(t, err)
	assert.Equal(t, adapter.Lane{}.Spec().Cardinality, spec.Cardinality)
	assert.Error(t, env.SetObserver("c", nil))

	require.NoError(t, env.Close())
	assert.True(t, sim.Closed)
}

func TestNewMultiErrors(t *testing.T) {
	iface, _ := agent.FromType(agent.Laner, 0)
	spec, err := agent.NewSpec(iface, policy.NewKeepLane(), adapter.LaneTTC3,
		adapter.Lane{}, nil)
	require.NoError(t, err)

	_, err = NewMulti(nil, map[string]agent.Spec{"a": spec}, 0.9, nil)
	assert.Error(t, err)
	_, err = NewMulti(smartstest.New("a", 3), nil, 0.9, nil)
	assert.Error(t, err)
	_, err = NewMulti(smartstest.New("a", 3),
		map[string]agent.Spec{"a": spec, "b": {}}, 0.9, nil)
	assert.Error(t, err)
}
