package ivp

import (
	"testing"

	"github.com/ivpsolve/ivpcore/nvector"
	"github.com/stretchr/testify/assert"
)

func TestCorrectFunctionalConvergesOnDecay(t *testing.T) {
	itg := newTestIntegrator(Adams, 1)
	itg.iter = Functional
	itg.ewt = nvector.NewFrom([]float64{1})
	itg.tempv = nvector.New(1)
	itg.ftemp = nvector.New(1)
	itg.limits.MaxCorrectorIters = 10
	itg.hist.h = 0.01
	itg.hist.l[1] = 1
	itg.rl1 = 1
	itg.SetODEResidual(func(t float64, y, yp nvector.Vector) error {
		yp.Scale(-1, y)
		return nil
	})

	yPred := nvector.NewFrom([]float64{1})
	y := nvector.New(1)
	yp := nvector.New(1)

	fail := itg.correct(0, yPred, nil, y, yp)
	assert.Equal(t, corrOK, fail)
	assert.Less(t, y.Raw()[0], 1.0, "decay should reduce y below the predictor value")
}
