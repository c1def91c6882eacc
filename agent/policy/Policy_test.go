package policy

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/environment/smarts/adapter"
	"github.com/samuelfneumann/smartslearn/network"
)

// fakeNet scores every observation with fixed outputs
type fakeNet struct {
	outputs []float64
	closed  bool
}

func (f *fakeNet) Score([]float64) ([]float64, error) { return f.outputs, nil }
func (f *fakeNet) Features() int                      { return 2 }
func (f *fakeNet) Outputs() int                       { return len(f.outputs) }
func (f *fakeNet) Close() error                       { f.closed = true; return nil }

func loaderOf(n *fakeNet) Loader {
	return func() (network.Closer, error) { return n, nil }
}

func TestKeepLaneLifecycle(t *testing.T) {
	p := NewKeepLane()

	_, err := p.Act(nil)
	assert.ErrorIs(t, err, agent.ErrNotReady)

	require.NoError(t, p.Setup())
	require.NoError(t, p.Setup())
	a, err := p.Act(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, a.RawVector().Data)

	require.NoError(t, p.Teardown())
	_, err = p.Act(nil)
	assert.ErrorIs(t, err, agent.ErrClosed)
	assert.ErrorIs(t, p.Setup(), agent.ErrClosed)
	assert.NoError(t, p.Teardown())
}

func TestRandomDiscrete(t *testing.T) {
	spec := adapter.Lane{}.Spec()
	p, err := NewRandom(spec, 3)
	require.NoError(t, err)
	require.NoError(t, p.Setup())

	seen := make(map[float64]bool)
	for i := 0; i < 200; i++ {
		a, err := p.Act(nil)
		require.NoError(t, err)
		require.True(t, spec.Contains(a), "action %v out of bounds", a.AtVec(0))
		seen[a.AtVec(0)] = true
	}
	assert.Len(t, seen, 4)
}

func TestRandomContinuousIsSeeded(t *testing.T) {
	spec := adapter.Continuous{}.Spec()
	run := func() [][]float64 {
		p, err := NewRandom(spec, 11)
		require.NoError(t, err)
		require.NoError(t, p.Setup())
		defer p.Teardown()

		var actions [][]float64
		for i := 0; i < 10; i++ {
			a, err := p.Act(nil)
			require.NoError(t, err)
			require.True(t, spec.Contains(a))
			actions = append(actions, a.RawVector().Data)
		}
		return actions
	}
	assert.Equal(t, run(), run())
}

func TestModelDiscreteArgmax(t *testing.T) {
	net := &fakeNet{outputs: []float64{0.1, 2, 2, -1}}
	p, err := NewModel(adapter.Lane{}.Spec(), loaderOf(net))
	require.NoError(t, err)

	_, err = p.Act(mat.NewVecDense(2, nil))
	assert.ErrorIs(t, err, agent.ErrNotReady)

	require.NoError(t, p.Setup())
	a, err := p.Act(mat.NewVecDense(2, nil))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, a.RawVector().Data)

	require.NoError(t, p.Teardown())
	assert.True(t, net.closed)
}

func TestModelContinuousClips(t *testing.T) {
	net := &fakeNet{outputs: []float64{1.5, 0.2, -3}}
	p, err := NewModel(adapter.Continuous{}.Spec(), loaderOf(net))
	require.NoError(t, err)
	require.NoError(t, p.Setup())

	a, err := p.Act(mat.NewVecDense(2, nil))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.2, -1}, a.RawVector().Data)
}

func TestModelSetupErrors(t *testing.T) {
	net := &fakeNet{outputs: []float64{1, 2}}
	p, err := NewModel(adapter.Lane{}.Spec(), loaderOf(net))
	require.NoError(t, err)
	assert.Error(t, p.Setup())
	assert.True(t, net.closed)
	assert.Equal(t, agent.Uninitialized, p.life.State())

	loadErr := errors.New("no such model")
	p, err = NewModel(adapter.Lane{}.Spec(), func() (network.Closer, error) {
		return nil, loadErr
	})
	require.NoError(t, err)
	assert.ErrorIs(t, p.Setup(), loadErr)

	_, err = NewModel(adapter.Lane{}.Spec(), nil)
	assert.Error(t, err)
}

func TestModelFromFile(t *testing.T) {
	net, err := network.NewMLP(14, 4, []int{8}, []*network.Activation{
		network.TanH()}, 5)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "policy.bin")
	require.NoError(t, net.Save(path))
	require.NoError(t, net.Close())

	p, err := ModelConfig{Path: path}.CreatePolicy(adapter.Lane{}.Spec(), 0)
	require.NoError(t, err)
	require.NoError(t, p.Setup())
	defer p.Teardown()

	a, err := p.Act(mat.NewVecDense(14, nil))
	require.NoError(t, err)
	assert.True(t, adapter.Lane{}.Spec().Contains(a))
}

func TestTypedPolicyConfig(t *testing.T) {
	typed := agent.NewTypedPolicyConfig(ModelConfig{Path: "model.bin"})
	data, err := json.Marshal(typed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Model","config":{"path":"model.bin"}}`,
		string(data))

	var fromJSON agent.TypedPolicyConfig
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, typed, fromJSON)

	var fromYAML agent.TypedPolicyConfig
	require.NoError(t, yaml.Unmarshal([]byte("type: Random\n"), &fromYAML))
	assert.Equal(t, agent.RandomPolicy, fromYAML.Type)
	assert.IsType(t, RandomConfig{}, fromYAML.PolicyConfig)

	var unknown agent.TypedPolicyConfig
	assert.Error(t, json.Unmarshal([]byte(`{"type":"Oracle"}`), &unknown))
}

func TestKeepLaneConfigRequiresDiscrete(t *testing.T) {
	_, err := KeepLaneConfig{}.CreatePolicy(adapter.Continuous{}.Spec(), 0)
	assert.Error(t, err)

	spec := environment.NewBoxSpec(1, environment.Action, 0, 3)
	spec.Cardinality = environment.Discrete
	p, err := KeepLaneConfig{}.CreatePolicy(spec, 0)
	require.NoError(t, err)
	assert.IsType(t, &KeepLane{}, p)
}
