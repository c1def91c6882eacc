package pbt

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRestore(t *testing.T) {
	dir := t.TempDir()

	p, err := NewPopulation(4, DefaultMutations(), 2, 3, nil)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.NoError(t, p.Round(context.Background(),
			func(_ context.Context, m *Member) (float64, error) {
				m.Checkpoint = filepath.Join("models", "m.bin")
				return float64(m.ID), nil
			}))
	}

	path, err := p.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, CheckpointPath(dir, 2), path)

	q, err := NewPopulation(1, DefaultMutations(), 1, 9, nil)
	require.NoError(t, err)
	require.NoError(t, q.Restore(path))

	assert.Equal(t, 2, q.Rounds())
	if diff := cmp.Diff(p.Members, q.Members); diff != "" {
		t.Errorf("restored members differ (-want +got):\n%v", diff)
	}
}

func TestLatestCheckpoint(t *testing.T) {
	dir := t.TempDir()

	_, err := LatestCheckpoint(dir)
	assert.Error(t, err)

	for _, round := range []int{3, 12, 7} {
		require.NoError(t, os.WriteFile(CheckpointPath(dir, round),
			[]byte("{}"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkpoint_x.json"),
		[]byte("{}"), 0o644))

	round, err := LatestCheckpoint(dir)
	require.NoError(t, err)
	assert.Equal(t, 12, round)
}

func TestRestoreErrors(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPopulation(2, DefaultMutations(), 1, 1, nil)
	require.NoError(t, err)

	assert.Error(t, p.Restore(filepath.Join(dir, "missing.json")))

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"round":1}`), 0o644))
	assert.Error(t, p.Restore(empty))
	assert.Len(t, p.Members, 2)
	assert.Equal(t, 0, p.Rounds())
}
