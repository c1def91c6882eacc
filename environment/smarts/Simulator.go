package smarts

// LaneAction is a discrete lane-level command understood by the simulator
type LaneAction string

const (
	KeepLane        LaneAction = "keep_lane"
	SlowDown        LaneAction = "slow_down"
	ChangeLaneLeft  LaneAction = "change_lane_left"
	ChangeLaneRight LaneAction = "change_lane_right"
)

// LaneActions lists the discrete lane actions in the order policies
// index them
var LaneActions = []LaneAction{KeepLane, SlowDown, ChangeLaneLeft,
	ChangeLaneRight}

// Action is a single agent's action for one simulation step. Exactly one
// of Continuous or Lane is set.
type Action struct {
	// Continuous holds [throttle, brake, steering]
	Continuous []float64  `json:"continuous,omitempty"`
	Lane       LaneAction `json:"lane,omitempty"`
}

// StepResult is the simulator's response to a step, keyed by agent id
type StepResult struct {
	Observations map[string]Observation `json:"observations"`
	Rewards      map[string]float64     `json:"rewards"`
	Dones        map[string]bool        `json:"dones"`

	// Scores holds the distance each agent has travelled so far
	Scores map[string]float64 `json:"scores"`
}

// AllDone returns whether every agent's episode has finished
func (s StepResult) AllDone() bool {
	if len(s.Dones) == 0 {
		return false
	}
	for _, done := range s.Dones {
		if !done {
			return false
		}
	}
	return true
}

// Simulator is the external SMARTS simulator. Multi-agent orchestration,
// physics, and traffic all happen behind this interface.
type Simulator interface {
	// Reset starts a new episode and returns the first observation of
	// each agent
	Reset() (map[string]Observation, error)

	// Step applies one action per agent and advances the simulation
	Step(actions map[string]Action) (StepResult, error)

	// Close releases the simulator
	Close() error
}
