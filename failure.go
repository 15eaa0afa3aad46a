package ivp

import "github.com/ivpsolve/ivpcore/nvector"

// stepSnapshot captures every Nordsieck history participating in a step
// (state, each active sensitivity, quadrature) so one snapshot/restore
// pair undoes all of them together on a recoverable failure, per spec.md
// §8's invariant that "zn[j] == zn[j]_before exactly" after restore.
type stepSnapshot struct {
	state []nvector.Vector
	sens  [][]nvector.Vector
	quad  []nvector.Vector
}

func (itg *Integrator) snapshotAll() stepSnapshot {
	snap := stepSnapshot{state: itg.hist.snapshot()}
	if itg.sens != nil {
		snap.sens = make([][]nvector.Vector, len(itg.sens.hist))
		for i, h := range itg.sens.hist {
			snap.sens[i] = h.snapshot()
		}
	}
	if itg.quad != nil {
		snap.quad = itg.quad.hist.snapshot()
	}
	return snap
}

func (itg *Integrator) restoreAll(snap stepSnapshot) {
	itg.hist.restore(snap.state)
	if itg.sens != nil {
		for i, h := range itg.sens.hist {
			h.restore(snap.sens[i])
		}
	}
	if itg.quad != nil {
		itg.quad.hist.restore(snap.quad)
	}
}

// handleConvFailure implements the convergence-failure row of the
// failure-handler table in spec.md §4.8: restore history, reduce h,
// force a Jacobian refresh, and retry, up to MaxNCF consecutive
// failures or until h is already at h_min.
func (itg *Integrator) handleConvFailure(kind corrFailKind, snap stepSnapshot) ReturnCode {
	if kind == corrRHSFail {
		itg.sink.Emit(FailureEvent{Kind: EventRHSFailure, Tn: itg.tn, H: itg.hist.h, Q: itg.hist.q, Nst: itg.out.NumSteps})
		return ErrRHSFailure
	}
	if kind == corrSetupFail {
		itg.sink.Emit(FailureEvent{Kind: EventSetupFailure, Tn: itg.tn, H: itg.hist.h, Q: itg.hist.q, Nst: itg.out.NumSteps})
		return ErrSetupFailure
	}
	if kind == corrSolveFail {
		itg.sink.Emit(FailureEvent{Kind: EventSolveFailure, Tn: itg.tn, H: itg.hist.h, Q: itg.hist.q, Nst: itg.out.NumSteps})
		return ErrSolveFailure
	}

	itg.ncf++
	itg.out.NumNonlinConvFails++
	itg.restoreAll(snap)
	if itg.ncf >= itg.limits.MaxNCF || absf(itg.hist.h) <= itg.limits.HMin {
		itg.state = fatal
		itg.sink.Emit(FailureEvent{Kind: EventConvFailure, Tn: itg.tn, H: itg.hist.h, Q: itg.hist.q, Nst: itg.out.NumSteps})
		return ErrConvFailure
	}
	itg.hist.h *= etaCF
	itg.hist.hPrime = itg.hist.h
	itg.hist.eta *= etaCF
	itg.forceSetup = true
	return Success
}

// handleErrTestFailure implements the error-test-failure rows of
// spec.md §4.8's table: escalating step/order cuts on the 1st/2nd/3rd
// consecutive failure, fatal beyond MaxNEF.
func (itg *Integrator) handleErrTestFailure(snap stepSnapshot) ReturnCode {
	itg.nef++
	itg.out.NumErrTestFails++
	itg.restoreAll(snap)

	if itg.nef >= itg.limits.MaxNEF {
		itg.state = fatal
		itg.sink.Emit(FailureEvent{Kind: EventErrFailure, Tn: itg.tn, H: itg.hist.h, Q: itg.hist.q, Nst: itg.out.NumSteps})
		return ErrErrFailure
	}

	var eta float64
	switch itg.nef {
	case 1:
		eta = etaEF1
	case 2:
		eta = etaEF2
		if itg.hist.q > 1 {
			itg.hist.q--
		}
	default:
		eta = etaEF3
		itg.hist.q = 1
	}
	itg.hist.h *= eta
	itg.hist.hPrime = itg.hist.h
	itg.hist.eta *= eta
	itg.forceSetup = true
	return Success
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
