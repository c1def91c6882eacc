package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/agent/policy"
	"github.com/samuelfneumann/smartslearn/environment/smarts/adapter"
	"github.com/samuelfneumann/smartslearn/environment/smarts/hiway"
	"github.com/samuelfneumann/smartslearn/environment/smarts/smartstest"
)

func newMultiEnv(t *testing.T, sim *smartstest.Simulator, maxSteps int,
	policies map[string]agent.Policy) *hiway.Multi {
	t.Helper()
	iface, err := agent.FromType(agent.Laner, maxSteps)
	require.NoError(t, err)

	specs := make(map[string]agent.Spec, len(policies))
	for id, p := range policies {
		spec, err := agent.NewSpec(iface, p, adapter.LaneTTC3, adapter.Lane{},
			nil)
		require.NoError(t, err)
		specs[id] = spec
	}
	env, err := hiway.NewMulti(sim, specs, 0.99, nil)
	require.NoError(t, err)
	return env
}

func TestMultiAgentRun(t *testing.T) {
	sim := smartstest.NewMulti([]string{"a", "b"}, 3)
	sim.GoalAfter = map[string]int{"a": 2}
	policies := map[string]agent.Policy{
		"a": policy.NewKeepLane(),
		"b": policy.NewKeepLane(),
	}
	env := newMultiEnv(t, sim, 4, policies)

	exp, err := NewMultiAgent(env, policies, 10, nil)
	require.NoError(t, err)
	metrics := NewEpisodeMetrics()
	exp.AddCallbacks(metrics)

	require.NoError(t, exp.Run())
	assert.Equal(t, 10, exp.Steps())
	assert.Equal(t, 3, sim.Resets)

	// a reaches its goal after 2 steps and b times out after 4, so the
	// third episode ends the budget with only a finished
	assert.Len(t, sim.Actions["a"], 6)
	assert.Len(t, sim.Actions["b"], 10)

	var lengths []int
	for _, ep := range metrics.Episodes() {
		lengths = append(lengths, ep.Steps)
	}
	assert.ElementsMatch(t, []int{2, 4, 2, 4, 2}, lengths)
	assert.InDelta(t, 2.8, metrics.MeanReturn(), 1e-9)

	ended, err := exp.RunEpisode()
	require.NoError(t, err)
	assert.True(t, ended)
}

func TestMultiAgentErrors(t *testing.T) {
	sim := smartstest.NewMulti([]string{"a", "b"}, 3)
	a := policy.NewKeepLane()
	policies := map[string]agent.Policy{"a": a, "b": policy.NewKeepLane()}
	env := newMultiEnv(t, sim, 0, policies)

	_, err := NewMultiAgent(env, policies, 0, nil)
	assert.Error(t, err)
	_, err = NewMultiAgent(env, map[string]agent.Policy{"a": a}, 5, nil)
	assert.Error(t, err)

	exp, err := NewMultiAgent(env, policies, 5, nil)
	require.NoError(t, err)
	_, err = exp.RunEpisode()
	assert.ErrorIs(t, err, agent.ErrNotReady)

	require.NoError(t, a.Teardown())
	assert.ErrorIs(t, exp.Run(), agent.ErrClosed)
}
