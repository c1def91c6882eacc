package pbt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// checkpointPattern names population checkpoints by round
const checkpointPattern = "checkpoint_%06d.json"

type snapshot struct {
	Round   int       `json:"round"`
	Members []*Member `json:"members"`
}

// CheckpointPath returns the path of the population checkpoint taken
// after round in dir
func CheckpointPath(dir string, round int) string {
	return filepath.Join(dir, fmt.Sprintf(checkpointPattern, round))
}

// LatestCheckpoint returns the round of the newest population
// checkpoint in dir
func LatestCheckpoint(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "checkpoint_*.json"))
	if err != nil {
		return 0, fmt.Errorf("latestCheckpoint: %w", err)
	}

	rounds := make([]int, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".json")
		round, err := strconv.Atoi(strings.TrimPrefix(name, "checkpoint_"))
		if err == nil && round >= 0 {
			rounds = append(rounds, round)
		}
	}
	if len(rounds) == 0 {
		return 0, fmt.Errorf("latestCheckpoint: no checkpoints in %v", dir)
	}

	sort.Ints(rounds)
	return rounds[len(rounds)-1], nil
}

// Save writes the members and completed rounds of the population to
// CheckpointPath(dir, Rounds()) and returns the path written
func (p *Population) Save(dir string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.MarshalIndent(snapshot{
		Round:   p.rounds,
		Members: p.Members,
	}, "", "\t")
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	path := CheckpointPath(dir, p.rounds)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	return path, nil
}

// Restore replaces the members and completed rounds of the population
// with those of the checkpoint at path
func (p *Population) Restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("restore: could not decode %v: %w", path, err)
	}
	if len(snap.Members) == 0 {
		return fmt.Errorf("restore: %v has no members", path)
	}
	for _, m := range snap.Members {
		if m == nil {
			return fmt.Errorf("restore: %v has a null member", path)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Members = snap.Members
	p.rounds = snap.Round
	return nil
}
