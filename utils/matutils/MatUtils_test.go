package matutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestVecClipBounds(t *testing.T) {
	a := mat.NewVecDense(3, []float64{2, -0.5, -4})
	VecClipBounds(a,
		mat.NewVecDense(3, []float64{0, 0, -1}),
		mat.NewVecDense(3, []float64{1, 1, 1}),
	)
	assert.Equal(t, []float64{1, 0, -1}, a.RawVector().Data)

	// Strided vectors are clipped in place
	m := mat.NewDense(3, 2, []float64{2, 9, 0.5, 9, -4, 9})
	col := m.ColView(0).(*mat.VecDense)
	VecClipBounds(col,
		mat.NewVecDense(3, []float64{0, 0, -1}),
		mat.NewVecDense(3, []float64{1, 1, 1}),
	)
	assert.Equal(t, []float64{1, 9, 0.5, 9, -1, 9}, m.RawMatrix().Data)
}
