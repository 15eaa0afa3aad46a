package ivp

import (
	"math"
	"testing"

	"github.com/ivpsolve/ivpcore/nvector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSensDQLinearDecay exercises spec.md §8's sensitivity-consistency
// property for y'=p*y, y(0)=1: the analytic solution s(t)=dy/dp satisfies
// s(t) = t*exp(p*t), independent of which coupling strategy (ism) drives
// the correction.
func TestSensDQLinearDecay(t *testing.T) {
	const lambda = -1.0
	const tEnd = 2.0

	for _, ism := range []SensStrategy{Simultaneous, Staggered, Staggered1} {
		t.Run(ism.String(), func(t *testing.T) {
			p := []float64{lambda}

			itg := New(1)
			itg.SetMethod(Adams)
			itg.SetIterType(Functional)
			itg.SetScalarTolerances(1e-8, 1e-12)
			itg.SetODEResidual(func(tt float64, y, yp nvector.Vector) error {
				yp.Scale(p[0], y)
				return nil
			})

			y0 := nvector.NewFrom([]float64{1})
			require.NoError(t, itg.Init(y0, 0))

			s0 := []nvector.Vector{nvector.NewFrom([]float64{0})}
			require.NoError(t, itg.SensInit(ism, p, []float64{1}, nil, s0))
			itg.UseDQSensRHS(0)

			out := nvector.New(1)
			tret, code := itg.Solve(tEnd, Normal, out)
			require.Equal(t, Success, code)

			sOut := nvector.New(1)
			require.NoError(t, itg.SensDky(tret, 0, 0, sOut))

			want := tret * math.Exp(lambda*tret)
			assert.InDelta(t, want, sOut.Raw()[0], 5e-4)
		})
	}
}

// TestSetSensRHSRejectsStaggered1 exercises spec.md §8's testable property:
// STAGGERED1 is rejected with ILL_INPUT when an ALLSENS callback is
// installed, since STAGGERED1 requires ifS=ONESENS.
func TestSetSensRHSRejectsStaggered1(t *testing.T) {
	itg := New(1)
	itg.SetMethod(Adams)
	itg.SetIterType(Functional)
	itg.SetScalarTolerances(1e-6, 1e-10)
	itg.SetODEResidual(func(tt float64, y, yp nvector.Vector) error {
		yp.Scale(-1, y)
		return nil
	})

	y0 := nvector.NewFrom([]float64{1})
	require.NoError(t, itg.Init(y0, 0))

	s0 := []nvector.Vector{nvector.NewFrom([]float64{0})}
	require.NoError(t, itg.SensInit(Staggered1, []float64{-1}, []float64{1}, nil, s0))

	_, err := itg.SetSensRHS(func(tt float64, y, yp nvector.Vector, s, sp []nvector.Vector) error {
		return nil
	})
	require.Error(t, err)
	ivpErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrIllInput, ivpErr.Code)
}
