package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrExists is returned when generating a file which already exists
// without permission to overwrite it
var ErrExists = errors.New("file exists")

// TrafficFile is the generated form of a Traffic
type TrafficFile struct {
	Name  string `yaml:"name"`
	Seed  uint64 `yaml:"seed"`
	Flows []Flow `yaml:"flows"`
}

// MissionsFile is the generated form of a scenario's missions
type MissionsFile struct {
	Seed     uint64    `yaml:"seed"`
	Missions []Mission `yaml:"missions"`
}

// GenTraffic writes traffic for the scenario at scenarioRoot to
// <outputDir>/traffic/<name>.yaml and returns the path written. If
// outputDir is empty the file is written under scenarioRoot. Each flow
// is given a deterministic ID. The seed is recorded so that the
// simulator resolves random routes reproducibly.
func GenTraffic(scenarioRoot string, traffic Traffic, name,
	outputDir string, seed uint64, overwrite bool) (string, error) {
	if name == "" {
		return "", fmt.Errorf("genTraffic: empty traffic name")
	}
	if len(traffic.Flows) == 0 {
		return "", fmt.Errorf("genTraffic: no flows")
	}

	out := TrafficFile{Name: name, Seed: seed}
	for i, f := range traffic.Flows {
		if err := f.Validate(); err != nil {
			return "", fmt.Errorf("genTraffic: flow %v: %w", i, err)
		}
		f.ID = f.FlowID(i)
		out.Flows = append(out.Flows, f)
	}

	dir, err := outputFor(scenarioRoot, outputDir)
	if err != nil {
		return "", fmt.Errorf("genTraffic: %w", err)
	}
	path := filepath.Join(dir, "traffic", name+".yaml")
	if err := writeYAML(path, out, overwrite); err != nil {
		return "", fmt.Errorf("genTraffic: %w", err)
	}
	return path, nil
}

// GenMissions writes the ego missions for the scenario at scenarioRoot
// to <outputDir>/missions.yaml and returns the path written
func GenMissions(scenarioRoot string, missions []Mission, outputDir string,
	seed uint64, overwrite bool) (string, error) {
	if len(missions) == 0 {
		return "", fmt.Errorf("genMissions: no missions")
	}
	for i, m := range missions {
		if err := m.Validate(); err != nil {
			return "", fmt.Errorf("genMissions: mission %v: %w", i, err)
		}
	}

	dir, err := outputFor(scenarioRoot, outputDir)
	if err != nil {
		return "", fmt.Errorf("genMissions: %w", err)
	}
	path := filepath.Join(dir, "missions.yaml")
	file := MissionsFile{Seed: seed, Missions: missions}
	if err := writeYAML(path, file, overwrite); err != nil {
		return "", fmt.Errorf("genMissions: %w", err)
	}
	return path, nil
}

// LoadTraffic reads a file written by GenTraffic
func LoadTraffic(path string) (TrafficFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrafficFile{}, fmt.Errorf("loadTraffic: %w", err)
	}

	var f TrafficFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return TrafficFile{}, fmt.Errorf("loadTraffic: %w", err)
	}
	return f, nil
}

// SocialVehicles returns traffic of n flows each spawning a single car
// on a random route in the first second of the episode
func SocialVehicles(n int) Traffic {
	flows := make([]Flow, n)
	for i := range flows {
		flows[i] = Flow{
			Route: RandomRoute(),
			Rate:  1,
			Begin: 0,
			End:   1,
			Actors: []WeightedActor{
				{Actor: NewTrafficActor("car"), Weight: 1.0},
			},
		}
	}
	return Traffic{Flows: flows}
}

// SocialVehiclesName is the traffic name used for n social vehicles
func SocialVehiclesName(n int) string {
	return fmt.Sprintf("random_%d", n)
}

// outputFor checks that scenarioRoot is a directory and returns the
// directory generated files are written under
func outputFor(scenarioRoot, outputDir string) (string, error) {
	info, err := os.Stat(scenarioRoot)
	if err != nil {
		return "", fmt.Errorf("no scenario at %v: %w", scenarioRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scenario %v is not a directory", scenarioRoot)
	}

	if outputDir == "" {
		return scenarioRoot, nil
	}
	return outputDir, nil
}

func writeYAML(path string, v interface{}, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%v: %w", path, ErrExists)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
