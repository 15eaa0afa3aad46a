package ivp

import (
	"math"

	"github.com/ivpsolve/ivpcore/linsolve"
	"github.com/ivpsolve/ivpcore/nvector"
)

// sensState carries the Ns forward-sensitivity substates, spec.md §4.5.
// Each sensitivity vector s_i gets its own Nordsieck history sharing the
// state history's q/h/l coefficients (only zn, ewt and the per-parameter
// convergence counters differ, matching STAGGERED1's need to iterate each
// s_i to its own convergence independently).
type sensState struct {
	ns   int
	ism  SensStrategy
	ifS  SensRHSMode
	dqUsed bool

	p, pbar []float64
	plist   []int

	rhsAll SensRHSAllFunc
	rhsOne SensRHSOneFunc

	hist []*history
	ewt  []nvector.Vector

	errcon ErrControl

	// per-parameter convergence-failure counters for STAGGERED1, spec.md
	// §4.5's requirement that each s_i fail/retry independently.
	ncfS []int

	rhoMax float64 // DQ scheme-selection threshold, spec.md §4.11
}

// SensInit allocates the Ns sensitivity substates and seeds zn[0] = s0_i,
// spec.md §4.5. p/pbar/plist configure DQ scaling and selection even when
// an analytic rhsAll/rhsOne is supplied later via SetSensRHS*. When DQ is
// used (UseDQSensRHS), p is shared, mutable state: dqSensOne perturbs
// p[|plist_i|-1] around each RHS call, so the installed RHSFunc/
// ResidualFunc closure must read its parameter values from this same
// slice at call time rather than capturing them by value.
func (itg *Integrator) SensInit(ism SensStrategy, p, pbar []float64, plist []int, s0 []nvector.Vector) error {
	if itg.hist == nil {
		return illInput("SensInit: Init must be called first")
	}
	ns := len(s0)
	// STAGGERED1 only makes sense driving one sensitivity's RHS at a time
	// (spec.md §4.4: "requires ifS = ONESENS"); default ifS accordingly so
	// a bare SensInit(Staggered1, ...) never starts in the rejected
	// ALLSENS state that SetSensRHS below refuses to enter.
	ifS := AllSens
	if ism == Staggered1 {
		ifS = OneSens
	}
	ss := &sensState{
		ns:     ns,
		ism:    ism,
		ifS:    ifS,
		p:      p,
		pbar:   pbar,
		plist:  plist,
		errcon: ErrControlFull,
		rhoMax: 0,
	}
	ss.hist = make([]*history, ns)
	ss.ewt = make([]nvector.Vector, ns)
	ss.ncfS = make([]int, ns)
	for i := 0; i < ns; i++ {
		ss.hist[i] = newHistory(itg.n, len(itg.hist.zn)-1, itg.newVec)
		ss.hist[i].zn[0] = s0[i].Clone()
		ss.hist[i].q, ss.hist[i].qPrime = itg.hist.q, itg.hist.q
		ss.ewt[i] = itg.newVec(itg.n)
		ss.ewt[i].LinearSum(1, itg.ewt, 0, itg.ewt)
	}
	itg.sens = ss
	return nil
}

// SetSensRHS installs an analytic ALLSENS callback, clearing any DQ flag
// (spec.md §9's resSDQ/ifS resolution: supplying an analytic RHS after
// init always takes precedence over DQ). STAGGERED1 requires ifS=ONESENS
// (spec.md §4.4), so installing a batch ALLSENS callback while ism is
// STAGGERED1 is rejected with ILL_INPUT rather than silently downgrading
// the strategy (spec.md §8's testable property).
func (itg *Integrator) SetSensRHS(f SensRHSAllFunc) (*Integrator, error) {
	if itg.sens == nil {
		return itg, illInput("SetSensRHS: SensInit must be called first")
	}
	if itg.sens.ism == Staggered1 {
		return itg, illInput("SetSensRHS: STAGGERED1 requires ifS=ONESENS, not a batch ALLSENS callback")
	}
	itg.sens.rhsAll = f
	itg.sens.rhsOne = nil
	itg.sens.dqUsed = false
	itg.sens.ifS = AllSens
	return itg, nil
}

// SetSensRHSOne installs an analytic ONESENS callback, usable by STAGGERED
// and STAGGERED1.
func (itg *Integrator) SetSensRHSOne(f SensRHSOneFunc) *Integrator {
	if itg.sens == nil {
		return itg
	}
	itg.sens.rhsOne = f
	itg.sens.rhsAll = nil
	itg.sens.dqUsed = false
	itg.sens.ifS = OneSens
	return itg
}

// UseDQSensRHS switches the sensitivity RHS to the internal finite-
// difference approximation (spec.md §4.11), dropping any analytic
// callback installed earlier, and selects ifS by ism: STAGGERED1 requires
// ONESENS; SIMULTANEOUS/STAGGERED use ALLSENS.
func (itg *Integrator) UseDQSensRHS(rhoMax float64) *Integrator {
	if itg.sens == nil {
		return itg
	}
	itg.sens.rhsAll, itg.sens.rhsOne = nil, nil
	itg.sens.dqUsed = true
	itg.sens.rhoMax = rhoMax
	if itg.sens.ism == Staggered1 {
		itg.sens.ifS = OneSens
	} else {
		itg.sens.ifS = AllSens
	}
	return itg
}

// sensPredict forms every sensitivity predictor row ahead of the shared
// corrector pass, spec.md §4.2/§4.5.
func (itg *Integrator) sensPredict(sPred []nvector.Vector) {
	for i, h := range itg.sens.hist {
		predictRow(h, sPred[i])
	}
}

// correctSensSimultaneous corrects every sensitivity using the already-
// converged state and the cached state linearization (SIMULTANEOUS,
// spec.md §4.5). A true stacked (y,s_1,...,s_Ns) Newton system would
// iterate all blocks together; this engine's per-step pipeline always
// converges the state first, so SIMULTANEOUS is realized here as one
// shared-linearization pass over every sensitivity at once, the same
// approximation the spec calls out ("ignoring ∂f/∂p coupling in the
// matrix, kept in the residual") applied to the whole batch in a single
// shot rather than state-then-sensitivities-one-at-a-time.
func (itg *Integrator) correctSensSimultaneous(t float64, y, yp nvector.Vector, sPred, sOut []nvector.Vector) corrFailKind {
	return itg.correctSensStaggered(t, y, yp, sPred, sOut)
}

// correctSensStaggered corrects each sensitivity after the state has
// already converged for this step (STAGGERED, spec.md §4.5): state
// Newton iteration is complete and frozen, each s_i is solved with the
// same linearization.
func (itg *Integrator) correctSensStaggered(t float64, y, yp nvector.Vector, sPred []nvector.Vector, sOut []nvector.Vector) corrFailKind {
	ss := itg.sens
	if ss.ifS == AllSens && ss.rhsAll != nil {
		sp := make([]nvector.Vector, ss.ns)
		for i := range sp {
			sp[i] = itg.newVec(itg.n)
		}
		if err := ss.rhsAll(t, y, yp, sPred, sp); err != nil {
			if isRecoverable(err) {
				return corrRecoverableFail
			}
			return corrRHSFail
		}
		useNewton := itg.iter == Newton && itg.solver != nil
		for i := range ss.hist {
			delta := itg.newVec(itg.n)
			delta.LinearSum(itg.hist.h*itg.rl1, sp[i], 0, sp[i])
			if useNewton {
				switch r := itg.solver.SolveS(i, delta, y, yp); r {
				case linsolve.SolveUnrecoverable:
					return corrSolveFail
				case linsolve.SolveRecoverable:
					return corrRecoverableFail
				}
			}
			ss.hist[i].acor.LinearSum(1, delta, 0, delta)
			sOut[i].LinearSum(1, sPred[i], 1, ss.hist[i].acor)
		}
		return corrOK
	}
	for i := range ss.hist {
		if fail := itg.correctSensOne(t, y, yp, i, sPred[i], sOut[i]); fail != corrOK {
			return fail
		}
	}
	return corrOK
}

// correctSensStaggered1 corrects each s_i to its own independent
// convergence and failure/retry state (STAGGERED1, spec.md §4.5), the
// only strategy that tracks a per-parameter convergence-failure counter.
func (itg *Integrator) correctSensStaggered1(t float64, y, yp nvector.Vector, sPred []nvector.Vector, sOut []nvector.Vector) []corrFailKind {
	ss := itg.sens
	results := make([]corrFailKind, ss.ns)
	for i := range ss.hist {
		fail := itg.correctSensOne(t, y, yp, i, sPred[i], sOut[i])
		results[i] = fail
		if fail == corrOK {
			ss.ncfS[i] = 0
		} else if fail == corrRecoverableFail {
			ss.ncfS[i]++
		}
	}
	return results
}

// correctSensOne corrects a single sensitivity s_i against the frozen state
// linearization, spec.md §4.4/§4.5. Under FUNCTIONAL state iteration this is
// a single explicit update identical in form to quadCorrect's. Under NEWTON
// iteration it reuses the corrector's already-factored P by calling
// solver.SolveS per spec.md §6 ("reuse of the state Jacobian is essential"),
// iterating s_i to the same WRMS convergence test correctNewton uses — no
// fresh Setup is ever triggered here, since s_i shares the state's gamma and
// linearization for the whole step.
func (itg *Integrator) correctSensOne(t float64, y, yp nvector.Vector, i int, sPred, sOut nvector.Vector) corrFailKind {
	ss := itg.sens
	h := itg.hist
	acor := ss.hist[i].acor
	acor.Fill(0)
	sOut.LinearSum(1, sPred, 0, sPred)

	useNewton := itg.iter == Newton && itg.solver != nil
	maxIters := 1
	if useNewton {
		maxIters = itg.limits.MaxCorrectorIters
	}

	var rate, lastNorm float64
	for m := 0; m < maxIters; m++ {
		spi := itg.newVec(itg.n)
		var err error
		if ss.rhsOne != nil {
			err = ss.rhsOne(t, y, yp, i, sOut, spi)
		} else {
			err = itg.dqSensOne(t, y, yp, i, sOut, spi)
		}
		if err != nil {
			if isRecoverable(err) {
				return corrRecoverableFail
			}
			return corrRHSFail
		}

		delta := itg.newVec(itg.n)
		delta.LinearSum(h.h*itg.rl1, spi, -1, acor)

		if useNewton {
			switch r := itg.solver.SolveS(i, delta, y, yp); r {
			case linsolve.SolveUnrecoverable:
				return corrSolveFail
			case linsolve.SolveRecoverable:
				return corrRecoverableFail
			}
		}

		norm := delta.WRMSNorm(ss.ewt[i])
		acor.LinearSum(1, acor, 1, delta)
		sOut.LinearSum(1, sPred, 1, acor)

		if !useNewton {
			return corrOK
		}

		if m > 0 {
			rate = math.Max(0.3*rate, norm/lastNorm)
		} else {
			rate = 1
		}
		lastNorm = norm
		test := rate * norm / (1 - math.Min(rate, 0.9))
		if test < convergenceEps {
			return corrOK
		}
	}
	return corrRecoverableFail
}

// errorNorm combines every active sensitivity's WRMS error into the single
// scalar the step local-error test folds in when errcon is FULL, spec.md
// §4.6: the maximum across sensitivities, matching the max-combination
// rule already used between state/sensitivity/quadrature.
func (ss *sensState) errorNorm() float64 {
	var worst float64
	for i, h := range ss.hist {
		e := h.acor.WRMSNorm(ss.ewt[i]) * h.tq[2]
		if e > worst {
			worst = e
		}
	}
	return worst
}
