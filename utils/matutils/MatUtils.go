// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/smartslearn/utils/floatutils"
)

// VecClipBounds performs an element-wise clipping of a vector's values
// such that a[i] lies in [min[i], max[i]]
func VecClipBounds(a *mat.VecDense, min, max mat.Vector) {
	for i := 0; i < a.Len(); i++ {
		a.SetVec(i, floatutils.Clip(a.AtVec(i), min.AtVec(i), max.AtVec(i)))
	}
}
