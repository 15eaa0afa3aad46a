package ivp

import (
	"testing"

	"github.com/ivpsolve/ivpcore/nvector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQuadPartialErrConIgnoresLargeQuadError exercises spec.md §8's
// testable property: with errconQ = PARTIAL (the QuadInit default), a
// deliberately huge quadrature derivative never triggers an error-test
// failure, since the quadrature error only feeds the step local-error test
// when errconQ = FULL.
func TestQuadPartialErrConIgnoresLargeQuadError(t *testing.T) {
	itg := New(1)
	itg.SetMethod(Adams)
	itg.SetIterType(Functional)
	itg.SetScalarTolerances(1e-6, 1e-10)
	itg.SetODEResidual(func(tt float64, y, yp nvector.Vector) error {
		yp.Fill(1)
		return nil
	})

	y0 := nvector.NewFrom([]float64{0})
	require.NoError(t, itg.Init(y0, 0))

	q0 := nvector.NewFrom([]float64{0})
	require.NoError(t, itg.QuadInit(func(tt float64, y, qp nvector.Vector) error {
		qp.Fill(1e10) // wildly inconsistent with any reasonable quadrature tolerance
		return nil
	}, q0))

	out := nvector.New(1)
	_, code := itg.Solve(1.0, Normal, out)
	assert.Equal(t, Success, code)
	assert.Zero(t, itg.Outputs().NumErrTestFails)
}

// TestQuadFullErrConTracksQuadrature exercises the FULL errcon path:
// quadrature error now folds into the step acceptance test, but for a
// well-behaved quadrature RHS this still succeeds and produces a sane
// quadrature value q(t) = t (since q'=1, q0=0).
func TestQuadFullErrConTracksQuadrature(t *testing.T) {
	itg := New(1)
	itg.SetMethod(Adams)
	itg.SetIterType(Functional)
	itg.SetScalarTolerances(1e-6, 1e-10)
	itg.SetODEResidual(func(tt float64, y, yp nvector.Vector) error {
		yp.Fill(1)
		return nil
	})

	y0 := nvector.NewFrom([]float64{0})
	require.NoError(t, itg.Init(y0, 0))

	q0 := nvector.NewFrom([]float64{0})
	require.NoError(t, itg.QuadInit(func(tt float64, y, qp nvector.Vector) error {
		qp.Fill(1)
		return nil
	}, q0))
	require.NoError(t, itg.SetQuadTolerances(1e-6, 1e-10))
	itg.SetQuadErrCon(true)

	out := nvector.New(1)
	tret, code := itg.Solve(2.0, Normal, out)
	require.Equal(t, Success, code)

	qOut := nvector.New(1)
	require.NoError(t, itg.QuadDky(tret, 0, qOut))
	assert.InDelta(t, tret, qOut.Raw()[0], 1e-4)
}
