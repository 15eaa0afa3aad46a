package ivp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEtaFromError(t *testing.T) {
	assert.Equal(t, 10.0, etaFromError(0, 1))
	assert.InDelta(t, 1.0, etaFromError(0.5, 1), 1e-9)
	assert.Less(t, etaFromError(2, 1), 1.0)
}

func TestClampStep(t *testing.T) {
	l := Limits{HMin: 0.01, HMaxInv: 1.0 / 10}
	assert.Equal(t, 0.01, clampStep(0.0001, l))
	assert.Equal(t, 10.0, clampStep(100, l))
	assert.Equal(t, -10.0, clampStep(-100, l))
	assert.Equal(t, 1.0, clampStep(1.0, l))
}

func TestPhase0RampsOrderThenExits(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.limits.MaxOrd = 2
	itg.limits.EtaMax = 10
	itg.phase0 = true
	itg.hist.q = 1
	itg.hist.h = 0.1

	itg.selectOrderAndStep(0, 0, 0, false, false)
	assert.Equal(t, 2, itg.hist.qPrime)
	assert.True(t, itg.phase0)

	itg.hist.q = 2
	itg.selectOrderAndStep(0, 0, 0, false, false)
	assert.False(t, itg.phase0, "phase0 must end once q reaches MaxOrd")
}

// TestSelectOrderAndStepPrefersLowerOrder exercises the haveQm1 branch of
// the phase-1 controller (spec.md §4.7): a much smaller E_{q-1} than E_q
// must win out and drop qPrime to q-1.
func TestSelectOrderAndStepPrefersLowerOrder(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.phase0 = false
	itg.limits.MaxOrd = 3
	itg.limits.EtaMax = 1000
	itg.hist.q = 2

	itg.selectOrderAndStep(0.5, 1e-6, 0, true, false)
	assert.Equal(t, 1, itg.hist.qPrime)
}

// TestSelectOrderAndStepPrefersHigherOrder exercises the haveQp1 branch:
// a much smaller E_{q+1} than E_q must raise qPrime to q+1.
func TestSelectOrderAndStepPrefersHigherOrder(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.phase0 = false
	itg.limits.MaxOrd = 3
	itg.limits.EtaMax = 1000
	itg.hist.q = 2

	itg.selectOrderAndStep(0.5, 0, 1e-6, false, true)
	assert.Equal(t, 3, itg.hist.qPrime)
}

// TestSelectOrderAndStepKeepsCurrentOrder confirms that when the current
// order's error is the smallest of the three candidates, qPrime is left
// unchanged even though both alternate-order estimates are available.
func TestSelectOrderAndStepKeepsCurrentOrder(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.phase0 = false
	itg.limits.MaxOrd = 3
	itg.limits.EtaMax = 1000
	itg.hist.q = 2

	itg.selectOrderAndStep(1e-6, 0.5, 0.5, true, true)
	assert.Equal(t, 2, itg.hist.qPrime)
}
