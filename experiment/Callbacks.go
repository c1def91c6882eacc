package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/samuelfneumann/smartslearn/timestep"
	"github.com/samuelfneumann/smartslearn/utils/floatutils"
)

// Callbacks are notified as episodes progress. Each episode is
// identified by a fresh UUID.
type Callbacks interface {
	OnEpisodeStart(id uuid.UUID, step timestep.TimeStep)
	OnEpisodeStep(id uuid.UUID, step timestep.TimeStep)
	OnEpisodeEnd(id uuid.UUID, step timestep.TimeStep)
}

// EpisodeSummary holds the metrics of a finished episode
type EpisodeSummary struct {
	ID        uuid.UUID `json:"id"`
	Steps     int       `json:"steps"`
	Return    float64   `json:"return"`
	MeanSpeed float64   `json:"mean_speed"`

	// Distance is the distance travelled as scored by the simulator
	Distance float64 `json:"distance"`
}

// EpisodeMetrics is a Callbacks which records the ego speed over each
// episode and summarises every finished episode
type EpisodeMetrics struct {
	mu       sync.Mutex
	speeds   map[uuid.UUID][]float64
	returns  map[uuid.UUID]float64
	episodes []EpisodeSummary
}

// NewEpisodeMetrics returns a new EpisodeMetrics
func NewEpisodeMetrics() *EpisodeMetrics {
	return &EpisodeMetrics{
		speeds:  make(map[uuid.UUID][]float64),
		returns: make(map[uuid.UUID]float64),
	}
}

// OnEpisodeStart implements the Callbacks interface
func (e *EpisodeMetrics) OnEpisodeStart(id uuid.UUID, step timestep.TimeStep) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speeds[id] = []float64{step.Info[timestep.InfoSpeed]}
	e.returns[id] = 0
}

// OnEpisodeStep implements the Callbacks interface
func (e *EpisodeMetrics) OnEpisodeStep(id uuid.UUID, step timestep.TimeStep) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speeds[id] = append(e.speeds[id], step.Info[timestep.InfoSpeed])
	e.returns[id] += step.Reward
}

// OnEpisodeEnd implements the Callbacks interface
func (e *EpisodeMetrics) OnEpisodeEnd(id uuid.UUID, step timestep.TimeStep) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.episodes = append(e.episodes, EpisodeSummary{
		ID:        id,
		Steps:     step.Number,
		Return:    e.returns[id],
		MeanSpeed: floatutils.Mean(e.speeds[id]),
		Distance:  step.Info[timestep.InfoScore],
	})
	delete(e.speeds, id)
	delete(e.returns, id)
}

// Episodes returns the summaries of all finished episodes in the order
// they finished
func (e *EpisodeMetrics) Episodes() []EpisodeSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]EpisodeSummary(nil), e.episodes...)
}

// MeanReturn returns the mean return of all finished episodes
func (e *EpisodeMetrics) MeanReturn() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	returns := make([]float64, len(e.episodes))
	for i, ep := range e.episodes {
		returns[i] = ep.Return
	}
	return floatutils.Mean(returns)
}

// Save writes the summaries of all finished episodes to path as JSON
func (e *EpisodeMetrics) Save(path string) error {
	data, err := json.MarshalIndent(e.Episodes(), "", "\t")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
