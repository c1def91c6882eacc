package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/environment/smarts/smartstest"
)

// bridge serves a smartstest.Simulator over a websocket
type bridge struct {
	t *testing.T

	mu       sync.Mutex
	sim      *smartstest.Simulator
	make     *MakeParams
	methods  []string
	badIDs   bool
	failStep bool
}

func (b *bridge) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		err = nil
		b.mu.Lock()
		b.methods = append(b.methods, req.Method)
		resp := Response{ID: req.ID}
		if b.badIDs {
			resp.ID = uuid.NewString()
		}

		switch req.Method {
		case MethodMake:
			b.make = req.Make
			b.sim = smartstest.NewMulti(req.Make.AgentIDs, 3)
		case MethodReset:
			resp.Observations, err = b.sim.Reset()
		case MethodStep:
			if b.failStep {
				resp.Error = "agent crashed"
				break
			}
			var result smarts.StepResult
			result, err = b.sim.Step(req.Actions)
			resp.Step = &result
		case MethodClose:
			err = b.sim.Close()
		default:
			resp.Error = "unknown method " + req.Method
		}
		if err != nil {
			resp.Error = err.Error()
		}
		b.mu.Unlock()

		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

// state returns what the bridge has seen so far
func (b *bridge) state() (made *MakeParams,
	actions map[string][]smarts.Action, closed bool, methods []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sim != nil {
		actions = b.sim.Actions
		closed = b.sim.Closed
	}
	return b.make, actions, closed, append([]string(nil), b.methods...)
}

func newBridge(t *testing.T) (*bridge, string) {
	b := &bridge{t: t}
	s := httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(s.Close)
	return b, "ws" + strings.TrimPrefix(s.URL, "http")
}

var laner = agent.Interface{
	MaxEpisodeSteps: 1000,
	Waypoints:       true,
	Action:          agent.Lane,
}

var testConfig = Config{
	Scenarios:  []string{"scenarios/loop"},
	AgentIDs:   []string{"ego"},
	Interfaces: map[string]agent.Interface{"ego": laner},
	Headless:   true,
	Seed:       42,
}

func TestClientEpisode(t *testing.T) {
	b, url := newBridge(t)
	c, err := Dial(context.Background(), url, testConfig)
	require.NoError(t, err)

	made, _, _, _ := b.state()
	require.NotNil(t, made)
	assert.Equal(t, MakeParams{
		Scenarios:  []string{"scenarios/loop"},
		AgentIDs:   []string{"ego"},
		Interfaces: map[string]agent.Interface{"ego": laner},
		Headless:   true,
		Seed:       42,
	}, *made)

	obs, err := c.Reset()
	require.NoError(t, err)
	require.Contains(t, obs, "ego")
	assert.Len(t, obs["ego"].WaypointPaths, 3)
	assert.Equal(t, smartstest.LaneWidth, obs["ego"].Neighbors[0].Position.X)

	result, err := c.Step(map[string]smarts.Action{
		"ego": {Lane: smarts.SlowDown},
	})
	require.NoError(t, err)
	assert.False(t, result.AllDone())
	assert.InDelta(t, 1.0, result.Scores["ego"], 1e-9)
	_, actions, _, _ := b.state()
	assert.Equal(t, []smarts.Action{{Lane: smarts.SlowDown}}, actions["ego"])

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, _, closed, methods := b.state()
	assert.True(t, closed)
	assert.Equal(t, []string{MethodMake, MethodReset, MethodStep,
		MethodClose}, methods)

	_, err = c.Reset()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Step(nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClientMultiAgent(t *testing.T) {
	b, url := newBridge(t)
	config := testConfig
	config.AgentIDs = []string{"AGENT-0", "AGENT-1"}
	config.Interfaces = map[string]agent.Interface{
		"AGENT-0": laner,
		"AGENT-1": laner,
	}
	c, err := Dial(context.Background(), url, config)
	require.NoError(t, err)
	defer c.Close()

	obs, err := c.Reset()
	require.NoError(t, err)
	require.Len(t, obs, 2)

	// Each agent sees the stopped vehicle and the other agent
	var ids []string
	for _, v := range obs["AGENT-0"].Neighbors {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{smartstest.SocialID, "AGENT-1"}, ids)

	result, err := c.Step(map[string]smarts.Action{
		"AGENT-0": {Lane: smarts.KeepLane},
		"AGENT-1": {Lane: smarts.ChangeLaneLeft},
	})
	require.NoError(t, err)
	assert.Len(t, result.Observations, 2)
	_, actions, _, _ := b.state()
	assert.Equal(t, []smarts.Action{{Lane: smarts.ChangeLaneLeft}},
		actions["AGENT-1"])
}

func TestClientConcurrentClose(t *testing.T) {
	b, url := newBridge(t)
	c, err := Dial(context.Background(), url, testConfig)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Close()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	_, _, closed, methods := b.state()
	assert.True(t, closed)
	assert.Equal(t, []string{MethodMake, MethodClose}, methods)
}

func TestClientBridgeError(t *testing.T) {
	b, url := newBridge(t)
	c, err := Dial(context.Background(), url, testConfig)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Reset()
	require.NoError(t, err)

	b.mu.Lock()
	b.failStep = true
	b.mu.Unlock()
	_, err = c.Step(map[string]smarts.Action{"ego": {Lane: smarts.KeepLane}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent crashed")
}

func TestClientIDMismatch(t *testing.T) {
	b, url := newBridge(t)
	b.mu.Lock()
	b.badIDs = true
	b.mu.Unlock()

	_, err := Dial(context.Background(), url, testConfig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id mismatch")
}

func TestDialErrors(t *testing.T) {
	_, url := newBridge(t)

	_, err := Dial(context.Background(), url, Config{Scenarios: []string{"a"}})
	assert.Error(t, err)

	_, err = Dial(context.Background(), url, Config{AgentIDs: []string{"a"}})
	assert.Error(t, err)

	noInterface := testConfig
	noInterface.Interfaces = nil
	_, err = Dial(context.Background(), url, noInterface)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Dial(ctx, url, testConfig)
	assert.Error(t, err)
}
