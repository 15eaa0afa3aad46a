package ivp

import (
	"testing"

	"github.com/ivpsolve/ivpcore/nvector"
	"github.com/stretchr/testify/assert"
)

func TestDkyOrderZeroReturnsZnZero(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.uround = 1e-16
	itg.tn = 1.0
	itg.hist.h = 0.1
	itg.hist.q = 1
	itg.hist.zn[0] = nvector.NewFrom([]float64{3})
	itg.hist.zn[1] = nvector.NewFrom([]float64{2})

	out := nvector.New(1)
	err := itg.Dky(1.0, 0, out)
	assert.NoError(t, err)
	assert.Equal(t, 3.0, out.Raw()[0])
}

func TestDkyRejectsOutOfRangeTime(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.tn = 1.0
	itg.hist.h = 0.1
	itg.hist.q = 1
	itg.hist.zn[0] = nvector.NewFrom([]float64{3})
	itg.hist.zn[1] = nvector.NewFrom([]float64{2})

	out := nvector.New(1)
	err := itg.Dky(5.0, 0, out)
	assert.Error(t, err)
	var ivpErr *Error
	assert.ErrorAs(t, err, &ivpErr)
	assert.Equal(t, ErrBadT, ivpErr.Code)
}

func TestDkyRejectsOrderAboveQ(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.tn = 1.0
	itg.hist.h = 0.1
	itg.hist.q = 1

	out := nvector.New(1)
	err := itg.Dky(1.0, 5, out)
	assert.Error(t, err)
}
