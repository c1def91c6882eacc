package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/smartslearn/environment/smarts/smartstest"
	"github.com/samuelfneumann/smartslearn/environment/smarts/ttc"
)

func TestToPixel(t *testing.T) {
	r, err := New(200, 100, 2)
	require.NoError(t, err)

	sim := smartstest.New("ego", 3)
	obs, err := sim.Reset()
	require.NoError(t, err)
	ego := obs["ego"].Ego

	// Straight ahead is up, the next lane is to the right
	x, y := r.toPixel(ego.Position, ego.Heading, ego.Position)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	x, y = r.toPixel(ego.Position, ego.Heading,
		obs["ego"].Neighbors[0].Position)
	assert.InDelta(t, 100+smartstest.LaneWidth*2, x, 1e-9)
	assert.InDelta(t, 50-smartstest.LeadGap*2, y, 1e-9)
}

func TestSnapshot(t *testing.T) {
	r, err := New(120, 160, 4)
	require.NoError(t, err)

	obs, err := smartstest.New("ego", 3).Reset()
	require.NoError(t, err)

	img, err := r.Snapshot(obs["ego"])
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())

	cr, cg, cb, _ := img.At(60, 80).RGBA()
	er, eg, eb, _ := EgoColour.RGBA()
	assert.Equal(t, []uint32{er, eg, eb}, []uint32{cr, cg, cb})

	r.Radius = ttc.Lanes5
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, r.SavePNG(path, obs["ego"]))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestNewErrors(t *testing.T) {
	_, err := New(0, 10, 1)
	assert.Error(t, err)
	_, err = New(10, 10, 0)
	assert.Error(t, err)
}
