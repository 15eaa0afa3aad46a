package ivp

import (
	"math"

	"github.com/ivpsolve/ivpcore/linsolve"
	"github.com/ivpsolve/ivpcore/nvector"
)

// Solve advances the integration from t_n towards tout under the given
// driver mode, spec.md §4.9. NORMAL returns y(tout) via dense-output
// interpolation once tout has been reached or passed; ONE_STEP returns
// immediately after a single internal step, whichever comes first if
// tstop is set. yOut receives the requested solution; the return time is
// reported alongside the ReturnCode.
func (itg *Integrator) Solve(tout float64, mode DriverMode, yOut nvector.Vector) (float64, ReturnCode) {
	if itg.hist == nil {
		return itg.tn, ErrMemNull
	}
	if itg.state == fatal {
		return itg.tn, ErrErrFailure
	}

	if itg.firstCall {
		if code := itg.firstStepSetup(tout); code != Success {
			return itg.tn, code
		}
	}

	if itg.tstopSet && itg.hDir*(itg.tstop-tout) < 0 {
		return itg.tn, ErrIllInput
	}

	for steps := 0; ; steps++ {
		if mode == Normal && itg.hDir*(itg.tn-tout) >= 0 {
			if err := itg.Dky(tout, 0, yOut); err != nil {
				return itg.tn, ErrBadT
			}
			return tout, Success
		}

		if itg.tstopSet {
			if itg.hDir*(itg.tn-itg.tstop) >= 0 {
				itg.Dky(itg.tstop, 0, yOut)
				return itg.tstop, TstopReturn
			}
			if itg.hDir*(itg.tn+itg.hist.hPrime-itg.tstop) > 0 {
				itg.hist.hPrime = itg.tstop - itg.tn
			}
		}

		if steps >= itg.limits.MaxStepsPerCall {
			return itg.tn, ErrTooMuchWork
		}

		code := itg.step()
		if code != Success {
			return itg.tn, code
		}

		if mode == OneStep {
			yOut.LinearSum(1, itg.hist.zn[0], 0, itg.hist.zn[0])
			if itg.tstopSet && itg.hDir*(itg.tn-itg.tstop) >= 0 {
				return itg.tn, TstopReturn
			}
			return itg.tn, Success
		}
	}
}

// firstStepSetup performs the one-time initialization CVode's first call
// does: evaluate f(t0,y0), estimate h0 if the caller didn't supply one,
// and seed zn[1], spec.md §4.9.
func (itg *Integrator) firstStepSetup(tout float64) ReturnCode {
	itg.hDir = 1
	if tout < itg.tn {
		itg.hDir = -1
	}
	f0 := itg.newVec(itg.n)
	var err error
	if itg.isODE {
		err = itg.residual(itg.tn, itg.hist.zn[0], nil, f0)
	} else if itg.yp0 != nil {
		f0.LinearSum(1, itg.yp0, 0, itg.yp0)
	} else {
		return illInput("firstStepSetup: DAE form requires SetInitialDerivative").Code
	}
	if err != nil {
		return ErrRHSFailure
	}
	itg.out.NumRHSEvals++

	h0 := itg.limits.H0
	if h0 == 0 {
		tdist := math.Abs(tout - itg.tn)
		if tdist == 0 {
			tdist = 1
		}
		ynorm := f0.WRMSNorm(itg.ewt)
		denom := ynorm
		if 1/tdist > denom {
			denom = 1 / tdist
		}
		if denom == 0 {
			denom = 1
		}
		h0 = 0.5 / denom
	}
	h0 = math.Copysign(h0, float64(itg.hDir))
	h0 = clampStep(h0, itg.limits)

	itg.hist.h = h0
	itg.hist.hPrime = h0
	itg.hist.hScale = h0
	itg.hist.eta = 1
	itg.hist.zn[1].LinearSum(h0, f0, 0, f0)
	if itg.sens != nil {
		for _, h := range itg.sens.hist {
			h.h, h.hPrime, h.hScale = h0, h0, h0
		}
	}
	if itg.quad != nil {
		itg.quad.hist.h, itg.quad.hist.hPrime, itg.quad.hist.hScale = h0, h0, h0
		if err := itg.quad.rhs(itg.tn, itg.hist.zn[0], itg.quad.ftempQ); err == nil {
			itg.quad.hist.zn[1].LinearSum(h0, itg.quad.ftempQ, 0, itg.quad.ftempQ)
		}
	}
	itg.firstCall = false
	return Success
}

// step performs exactly one internal step: predict, correct, test, and on
// success commit the Nordsieck update and choose the next step/order; on
// recoverable failure restore history and retry with a reduced step, per
// spec.md §4.1-§4.8.
func (itg *Integrator) step() ReturnCode {
	// hint carries the convfail annotation of spec.md §4.3 into the next
	// correct() call: NoFailure on the first attempt and after an
	// error-test failure, BadJacobian/OtherFailure after a convergence
	// failure depending on whether the Jacobian used in that failed
	// attempt was already current (itg.jcur).
	hint := linsolve.NoFailure
	for {
		snap := itg.snapshotAll()
		itg.hist.rescale(itg.hist.eta)
		itg.hist.h = itg.hist.hPrime
		if itg.sens != nil {
			for _, h := range itg.sens.hist {
				h.rescale(itg.hist.eta)
				h.h = itg.hist.h
			}
		}
		if itg.quad != nil {
			itg.quad.hist.rescale(itg.hist.eta)
			itg.quad.hist.h = itg.hist.h
		}

		itg.checkHNil()
		itg.setCoeffs()
		if itg.sens != nil {
			for _, h := range itg.sens.hist {
				h.tq = itg.hist.tq
			}
		}

		yPred := itg.newVec(itg.n)
		ypPred := itg.newVec(itg.n)
		predict(itg.hist, itg.isODE, itg.hist.h, yPred, ypPred)

		y := itg.newVec(itg.n)
		yp := itg.newVec(itg.n)
		fail := itg.correct(hint, yPred, ypPred, y, yp)

		if fail != corrOK {
			code := itg.handleConvFailure(fail, snap)
			if code != Success {
				return code
			}
			hint = itg.nextConvFailHint()
			continue
		}

		var sPred, sOut []nvector.Vector
		if itg.sens != nil {
			sPred = make([]nvector.Vector, itg.sens.ns)
			sOut = make([]nvector.Vector, itg.sens.ns)
			for i := range sPred {
				sPred[i] = itg.newVec(itg.n)
				sOut[i] = itg.newVec(itg.n)
			}
			itg.sensPredict(sPred)
			if sensFail := itg.correctSensitivities(y, yp, sPred, sOut); sensFail != corrOK {
				code := itg.handleConvFailure(sensFail, snap)
				if code != Success {
					return code
				}
				hint = itg.nextConvFailHint()
				continue
			}
		}

		var qPred, qOut nvector.Vector
		if itg.quad != nil {
			qPred = itg.newVec(itg.quad.nq)
			qOut = itg.newVec(itg.quad.nq)
			itg.quadPredict(qPred)
			if err := itg.quadCorrect(itg.tn+itg.hist.h, y, qPred, qOut); err != nil {
				if isRecoverable(err) {
					code := itg.handleConvFailure(corrRecoverableFail, snap)
					if code != Success {
						return code
					}
					hint = itg.nextConvFailHint()
					continue
				}
				return ErrRHSFailure
			}
		}

		eq, accept := itg.errorTest()
		if !accept {
			code := itg.handleErrTestFailure(snap)
			if code != Success {
				return code
			}
			hint = linsolve.NoFailure
			continue
		}

		itg.ncf, itg.nef = 0, 0

		var eqm1, eqp1 float64
		var haveQm1, haveQp1 bool
		if itg.hist.qWait == 0 {
			eqm1, haveQm1 = itg.errorAtOrderMinus1()
			eqp1, haveQp1 = itg.errorAtOrderPlus1()
		}

		itg.completeStep()
		itg.selectOrderAndStep(eq, eqm1, eqp1, haveQm1, haveQp1)
		itg.out.NumSteps++
		itg.out.QLast, itg.out.QCur = itg.hist.q, itg.hist.qPrime
		itg.out.HLast, itg.out.HCur = itg.hist.h, itg.hist.hPrime
		itg.out.TCur = itg.tn
		return Success
	}
}

// nextConvFailHint classifies the convfail hint of spec.md §4.3 for the
// retry attempt after a recoverable convergence failure: BadJacobian if
// the Jacobian data used in the failed attempt was already stale
// (!itg.jcur), OtherFailure if the failure happened despite a fresh
// Jacobian.
func (itg *Integrator) nextConvFailHint() linsolve.ConvFailHint {
	if itg.jcur {
		return linsolve.OtherFailure
	}
	return linsolve.BadJacobian
}

// correctSensitivities dispatches to the strategy-specific sensitivity
// corrector and folds every s_i's acor into the error-test input, spec.md
// §4.5. All three strategies run after the state has converged for this
// step; they differ in how many sensitivities share one correction pass
// (SIMULTANEOUS/STAGGERED: all at once) versus converge independently
// with their own failure counters (STAGGERED1).
func (itg *Integrator) correctSensitivities(y, yp nvector.Vector, sPred, sOut []nvector.Vector) corrFailKind {
	if itg.sens.ism == Simultaneous {
		return itg.correctSensSimultaneous(itg.tn+itg.hist.h, y, yp, sPred, sOut)
	}
	if itg.sens.ism == Staggered {
		return itg.correctSensStaggered(itg.tn+itg.hist.h, y, yp, sPred, sOut)
	}
	results := itg.correctSensStaggered1(itg.tn+itg.hist.h, y, yp, sPred, sOut)
	for i, r := range results {
		if r != corrOK {
			if itg.sens.ncfS[i] >= itg.limits.MaxNCF {
				return corrRHSFail
			}
			return r
		}
	}
	return corrOK
}

// completeStep commits the accepted step: advances t_n, folds acor into
// every active Nordsieck history, and applies any order change queued by
// the previous controller decision, spec.md §4.1/§4.7.
func (itg *Integrator) completeStep() {
	itg.tn += itg.hist.h
	completeHistory(itg.hist, itg.hist.l[:], itg.hist.q, itg.hist.qPrime)
	if itg.sens != nil {
		for _, h := range itg.sens.hist {
			completeHistory(h, itg.hist.l[:], h.q, itg.hist.qPrime)
		}
	}
	if itg.quad != nil {
		completeHistory(itg.quad.hist, itg.hist.l[:], itg.quad.hist.q, itg.hist.qPrime)
	}
	itg.gammaPrev = itg.gamma
}

// completeHistory folds acor into zn[0..q] via zn[j] += l[j]*acor and
// applies an order change, zeroing the vacated row on a decrease and
// seeding the new top row on an increase.
// This is a simplified analogue of CVODE's CVIncreaseBDF/CVDecreaseBDF:
// an exact re-derivation of the new top Nordsieck row from past history
// is replaced by seeding it directly from the scaled correction
// (tq[5]*acor), the same proxy errorAtOrderPlus1 reads before this runs.
func completeHistory(h *history, l []float64, qOld, qNew int) {
	for j := 0; j <= qOld; j++ {
		h.zn[j].LinearSum(1, h.zn[j], l[j], h.acor)
	}
	switch {
	case qNew > qOld:
		h.zn[qNew].LinearSum(h.tq[5], h.acor, 0, h.acor)
		h.q = qNew
		h.qWait = h.q + 1
	case qNew < qOld:
		h.zn[qOld].Fill(0)
		h.q = qNew
		h.qWait = h.q + 1
	default:
		if h.qWait > 0 {
			h.qWait--
		}
	}
	h.qPrime = h.q
	h.bumpTau(h.h)
}
