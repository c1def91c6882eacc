package envconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/agent/policy"
	"github.com/samuelfneumann/smartslearn/environment"
	"github.com/samuelfneumann/smartslearn/environment/smarts/adapter"
	"github.com/samuelfneumann/smartslearn/environment/smarts/remote"
	"github.com/samuelfneumann/smartslearn/environment/smarts/smartstest"
)

func TestValidate(t *testing.T) {
	c := NewConfig("ws://localhost:8081", []string{"scenarios/loop"},
		agent.Laner, 1000, ThreeLanes, 0.99)
	require.NoError(t, c.Validate())

	for name, mutate := range map[string]func(*Config){
		"no scenarios":  func(c *Config) { c.Scenarios = nil },
		"agent type":    func(c *Config) { c.AgentType = "Tank" },
		"lanes":         func(c *Config) { c.Lanes = 4 },
		"discount":      func(c *Config) { c.Discount = 1.1 },
		"episode steps": func(c *Config) { c.MaxEpisodeSteps = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			bad := c
			mutate(&bad)
			assert.Error(t, bad.Validate())
		})
	}
}

func TestAdapters(t *testing.T) {
	c := NewConfig("", []string{"s"}, agent.StandardWithAbsoluteSteering,
		2000, FiveLanes, 0.9)

	obs, err := c.Observation()
	require.NoError(t, err)
	assert.Equal(t, adapter.LaneTTC5, obs)

	action, err := c.Action()
	require.NoError(t, err)
	assert.Equal(t, environment.Continuous, action.Spec().Cardinality)

	c.AgentType = agent.Laner
	action, err = c.Action()
	require.NoError(t, err)
	assert.Equal(t, adapter.Lane{}, action)
}

func TestCreateWith(t *testing.T) {
	c := NewConfig("", []string{"s"}, agent.Laner, 5, ThreeLanes, 0.99)
	sim := smartstest.New("ego", 3)

	env, err := c.CreateWith(sim, "ego", policy.NewKeepLane(), nil)
	require.NoError(t, err)
	assert.Equal(t, adapter.LaneTTC3.Len(), env.ObservationSpec().Shape.Len())

	step, err := env.Reset()
	require.NoError(t, err)
	assert.True(t, step.First())
}

func TestCreateMultiWith(t *testing.T) {
	c := NewConfig("", []string{"s"}, agent.Laner, 5, ThreeLanes, 0.99)
	sim := smartstest.NewMulti([]string{"AGENT-0", "AGENT-1"}, 3)

	env, err := c.CreateMultiWith(sim, map[string]agent.Policy{
		"AGENT-0": policy.NewKeepLane(),
		"AGENT-1": policy.NewKeepLane(),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AGENT-0", "AGENT-1"}, env.AgentIDs())

	steps, err := env.Reset()
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	c.Lanes = 4
	_, err = c.CreateMultiWith(sim, map[string]agent.Policy{
		"AGENT-0": policy.NewKeepLane(),
	}, nil)
	assert.Error(t, err)
}

// makeRecorder is a bridge which acknowledges every request and records
// the make request
type makeRecorder struct {
	mu   sync.Mutex
	made *remote.MakeParams
}

func (m *makeRecorder) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var req remote.Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Make != nil {
			m.mu.Lock()
			m.made = req.Make
			m.mu.Unlock()
		}
		if err := conn.WriteJSON(remote.Response{ID: req.ID}); err != nil {
			return
		}
	}
}

func TestCreateSendsInterfaces(t *testing.T) {
	rec := &makeRecorder{}
	s := httptest.NewServer(http.HandlerFunc(rec.handle))
	defer s.Close()
	url := "ws" + strings.TrimPrefix(s.URL, "http")

	c := NewConfig(url, []string{"scenarios/loop"},
		agent.StandardWithAbsoluteSteering, 2000, FiveLanes, 0.99)
	want, err := c.Interface()
	require.NoError(t, err)

	env, err := c.CreateMulti(context.Background(), map[string]agent.Policy{
		"AGENT-1": policy.NewKeepLane(),
		"AGENT-0": policy.NewKeepLane(),
	}, 3, nil)
	require.NoError(t, err)
	require.NoError(t, env.Close())

	rec.mu.Lock()
	made := rec.made
	rec.mu.Unlock()
	require.NotNil(t, made)
	assert.Equal(t, []string{"AGENT-0", "AGENT-1"}, made.AgentIDs)
	assert.Equal(t, map[string]agent.Interface{
		"AGENT-0": want,
		"AGENT-1": want,
	}, made.Interfaces)
	assert.Equal(t, 100.0, made.Interfaces["AGENT-0"].NeighborhoodRadius)
	assert.Equal(t, 2000, made.Interfaces["AGENT-0"].MaxEpisodeSteps)
	assert.Equal(t, uint64(3), made.Seed)

	single, err := c.Create(context.Background(), "ego", 1, nil, nil)
	assert.Error(t, err, "a nil policy is rejected")
	assert.Nil(t, single)
}
