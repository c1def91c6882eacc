package tracker

import (
	"github.com/samuelfneumann/smartslearn/timestep"
	"github.com/samuelfneumann/smartslearn/utils/floatutils"
)

// MeanSpeed tracks the mean raw ego speed over each episode, including
// the speed on the first step
type MeanSpeed struct {
	speeds     []float64
	meanSpeeds []float64
	filename   string
}

// NewMeanSpeed returns a new MeanSpeed Tracker
func NewMeanSpeed(filename string) *MeanSpeed {
	return &MeanSpeed{filename: filename}
}

// Track implements the Tracker interface
func (m *MeanSpeed) Track(t timestep.TimeStep) {
	if t.First() {
		m.speeds = m.speeds[:0]
	}
	m.speeds = append(m.speeds, t.Info[timestep.InfoSpeed])

	if t.Last() {
		m.meanSpeeds = append(m.meanSpeeds, floatutils.Mean(m.speeds))
		m.speeds = m.speeds[:0]
	}
}

// Data returns the mean speed of all finished episodes
func (m *MeanSpeed) Data() []float64 {
	return append([]float64(nil), m.meanSpeeds...)
}

// Save implements the Tracker interface
func (m *MeanSpeed) Save() error {
	return save(m.filename, m.meanSpeeds)
}

// Distance tracks the distance travelled in each episode, as scored by
// the simulator on the last step
type Distance struct {
	distances []float64
	filename  string
}

// NewDistance returns a new Distance Tracker
func NewDistance(filename string) *Distance {
	return &Distance{filename: filename}
}

// Track implements the Tracker interface
func (d *Distance) Track(t timestep.TimeStep) {
	if t.Last() {
		d.distances = append(d.distances, t.Info[timestep.InfoScore])
	}
}

// Data returns the distance travelled in all finished episodes
func (d *Distance) Data() []float64 {
	return append([]float64(nil), d.distances...)
}

// Save implements the Tracker interface
func (d *Distance) Save() error {
	return save(d.filename, d.distances)
}
