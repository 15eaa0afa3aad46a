package ivp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHandleConvFailureEscalation exercises spec.md §4.8's convergence-
// failure row: each recoverable failure restores history, cuts h by
// etaCF, counts towards ncf, and goes fatal once MaxNCF is reached.
func TestHandleConvFailureEscalation(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.limits.MaxNCF = 2
	itg.limits.HMin = 0
	itg.tn = 1.0

	snap := itg.snapshotAll()

	h0 := itg.hist.h
	code := itg.handleConvFailure(corrRecoverableFail, snap)
	require.Equal(t, Success, code)
	assert.Equal(t, 1, itg.ncf)
	assert.InDelta(t, h0*etaCF, itg.hist.h, 1e-12)

	code = itg.handleConvFailure(corrRecoverableFail, snap)
	require.Equal(t, ErrConvFailure, code)
	assert.Equal(t, fatal, itg.state)
}

// TestHandleConvFailureRHSIsImmediatelyFatal exercises the non-recoverable
// RHS-failure short-circuit: no retry, no ncf increment.
func TestHandleConvFailureRHSIsImmediatelyFatal(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	snap := itg.snapshotAll()

	code := itg.handleConvFailure(corrRHSFail, snap)
	assert.Equal(t, ErrRHSFailure, code)
	assert.Zero(t, itg.ncf)
}

// TestHandleErrTestFailureEscalation exercises spec.md §4.8's error-test
// failure row: the 1st failure only cuts h, the 2nd also drops the order,
// the 3rd resets the order to 1, and MaxNEF consecutive failures go fatal.
func TestHandleErrTestFailureEscalation(t *testing.T) {
	itg := newTestIntegrator(BDF, 1)
	itg.limits.MaxNEF = 4
	itg.hist.q = 3
	itg.hist.qPrime = 3

	snap := itg.snapshotAll()

	h0 := itg.hist.h
	code := itg.handleErrTestFailure(snap)
	require.Equal(t, Success, code)
	assert.InDelta(t, h0*etaEF1, itg.hist.h, 1e-12)
	assert.Equal(t, 3, itg.hist.q, "order only drops on the 2nd consecutive failure")

	h1 := itg.hist.h
	code = itg.handleErrTestFailure(snap)
	require.Equal(t, Success, code)
	assert.InDelta(t, h1*etaEF2, itg.hist.h, 1e-12)
	assert.Equal(t, 2, itg.hist.q)

	h2 := itg.hist.h
	code = itg.handleErrTestFailure(snap)
	require.Equal(t, Success, code)
	assert.InDelta(t, h2*etaEF3, itg.hist.h, 1e-12)
	assert.Equal(t, 1, itg.hist.q)

	code = itg.handleErrTestFailure(snap)
	assert.Equal(t, ErrErrFailure, code)
	assert.Equal(t, fatal, itg.state)
}
