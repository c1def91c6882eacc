// Package config loads experiment configurations from JSON or YAML
// files. A configuration describes the environment, the agent and its
// policy, the trainer, and logging.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/agent/policy"
	"github.com/samuelfneumann/smartslearn/environment/envconfig"
	"github.com/samuelfneumann/smartslearn/utils/logging"
)

// Agent configures the controlled agent
type Agent struct {
	ID     string                  `json:"id" yaml:"id"`
	Policy agent.TypedPolicyConfig `json:"policy" yaml:"policy"`
}

// Trainer configures population based training
type Trainer struct {
	NumSamples     int    `json:"num_samples" yaml:"num_samples"`
	NumAgents      int    `json:"num_agents" yaml:"num_agents"`
	NumWorkers     int    `json:"num_workers" yaml:"num_workers"`
	Seed           uint64 `json:"seed" yaml:"seed"`
	ResumeTraining bool   `json:"resume_training" yaml:"resume_training"`
	ResultDir      string `json:"result_dir" yaml:"result_dir"`

	// CheckpointNum restores the population from this checkpoint when
	// resuming. Zero restores the latest checkpoint.
	CheckpointNum int `json:"checkpoint_num" yaml:"checkpoint_num"`

	// Rounds is the number of exploit and explore rounds
	Rounds int `json:"rounds" yaml:"rounds"`

	// StepsPerRound is the number of environment steps each member
	// takes between rounds
	StepsPerRound int `json:"steps_per_round" yaml:"steps_per_round"`

	// CheckpointEvery saves the population after this many rounds
	CheckpointEvery int `json:"checkpoint_every" yaml:"checkpoint_every"`
}

// Logging configures the experiment logger
type Logging struct {
	Level    string `json:"level" yaml:"level"`
	Encoding string `json:"encoding" yaml:"encoding"`
}

// Experiment is a complete experiment configuration
type Experiment struct {
	Env     envconfig.Config `json:"env" yaml:"env"`
	Agent   Agent            `json:"agent" yaml:"agent"`
	Trainer Trainer          `json:"trainer" yaml:"trainer"`
	Logging Logging          `json:"logging" yaml:"logging"`
}

// Default returns the default experiment: a lane-changing agent on a
// three-lane observation connected to a local bridge
func Default() Experiment {
	return Experiment{
		Env: envconfig.NewConfig("ws://localhost:8081",
			[]string{"scenarios/loop"}, agent.Laner, 1000,
			envconfig.ThreeLanes, 0.99),
		Agent: Agent{
			ID:     "AGENT-007",
			Policy: agent.NewTypedPolicyConfig(policy.KeepLaneConfig{}),
		},
		Trainer: Trainer{
			NumSamples:      1,
			NumAgents:       1,
			NumWorkers:      4,
			Seed:            42,
			ResultDir:       "/home/ray_results",
			Rounds:          100,
			StepsPerRound:   2000,
			CheckpointEvery: 10,
		},
		Logging: Logging{
			Level:    "info",
			Encoding: logging.JSON,
		},
	}
}

// Load reads an experiment from path. Files ending in .yaml or .yml are
// decoded as YAML and all others as JSON. Values missing from the file
// keep their defaults.
func Load(path string) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, fmt.Errorf("load: %w", err)
	}

	e := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, &e)
	} else {
		err = json.Unmarshal(data, &e)
	}
	if err != nil {
		return Experiment{}, fmt.Errorf("load: could not decode %v: %w",
			path, err)
	}

	if err := e.Validate(); err != nil {
		return Experiment{}, fmt.Errorf("load: %w", err)
	}
	return e, nil
}

// Save writes the experiment to path in the format given by its
// extension
func (e Experiment) Save(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(e)
	} else {
		data, err = json.MarshalIndent(e, "", "\t")
	}
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Validate returns an error describing whether or not the
// configuration is valid
func (e Experiment) Validate() error {
	if err := e.Env.Validate(); err != nil {
		return fmt.Errorf("validate: env: %w", err)
	}

	if e.Agent.ID == "" {
		return fmt.Errorf("validate: empty agent id")
	}
	if e.Agent.Policy.PolicyConfig == nil {
		return fmt.Errorf("validate: no policy")
	}
	if err := e.Agent.Policy.Validate(); err != nil {
		return fmt.Errorf("validate: policy: %w", err)
	}

	t := e.Trainer
	if t.NumSamples < 1 || t.NumAgents < 1 || t.NumWorkers < 1 {
		return fmt.Errorf("validate: trainer samples (%v), agents (%v), "+
			"and workers (%v) must be positive", t.NumSamples, t.NumAgents,
			t.NumWorkers)
	}
	if t.CheckpointNum < 0 || t.Rounds < 0 || t.StepsPerRound < 0 ||
		t.CheckpointEvery < 0 {
		return fmt.Errorf("validate: trainer counts must be non-negative")
	}

	if _, err := logging.New(e.Logging.Level, e.Logging.Encoding); err != nil {
		return fmt.Errorf("validate: logging: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
