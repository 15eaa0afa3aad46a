package ivp

import "github.com/ivpsolve/ivpcore/nvector"

// quadState carries the quadrature substate advanced alongside y by the
// same Nordsieck machinery, spec.md §4.4. Its history shares q/h/l with
// the state history; only zn and the error weight differ.
type quadState struct {
	nq   int
	rhs  QuadRHSFunc
	hist *history

	reltol  float64
	abstol  float64
	abstolV nvector.Vector
	tolKind ToleranceKind

	errcon ErrControl
	ewt    nvector.Vector

	ftempQ nvector.Vector
}

// QuadInit allocates the quadrature substate and seeds zQ[0] = q0,
// mirroring Init's state-history setup (spec.md §4.4).
func (itg *Integrator) QuadInit(f QuadRHSFunc, q0 nvector.Vector) error {
	if itg.hist == nil {
		return illInput("QuadInit: Init must be called first")
	}
	nq := q0.Len()
	qs := &quadState{
		nq:     nq,
		rhs:    f,
		errcon: ErrControlPartial,
	}
	qs.hist = newHistory(nq, len(itg.hist.zn)-1, itg.newVec)
	qs.hist.zn[0] = q0.Clone()
	qs.hist.q, qs.hist.qPrime = itg.hist.q, itg.hist.q
	qs.ewt = itg.newVec(nq)
	qs.ftempQ = itg.newVec(nq)
	itg.quad = qs
	return itg.setQuadEwt()
}

// SetQuadErrCon toggles whether quadrature error contributes to the step
// local-error test (spec.md §4.4/§4.6).
func (itg *Integrator) SetQuadErrCon(full bool) *Integrator {
	if itg.quad == nil {
		return itg
	}
	if full {
		itg.quad.errcon = ErrControlFull
	} else {
		itg.quad.errcon = ErrControlPartial
	}
	return itg
}

// SetQuadTolerances configures the quadrature error weight independently
// of the state tolerances, as SUNDIALS' QuadSStolerances/QuadSVtolerances
// do; required whenever errcon is FULL.
func (itg *Integrator) SetQuadTolerances(reltol, abstol float64) error {
	if itg.quad == nil {
		return illInput("SetQuadTolerances: QuadInit was never called")
	}
	itg.quad.tolKind = ScalarRelScalarAbs
	itg.quad.reltol, itg.quad.abstol = reltol, abstol
	return itg.setQuadEwt()
}

func (itg *Integrator) setQuadEwt() error {
	qs := itg.quad
	raw := qs.hist.zn[0].Raw()
	ewt := qs.ewt.Raw()
	for i, qi := range raw {
		at := qs.abstol
		if qs.tolKind == ScalarRelVectorAbs && qs.abstolV != nil {
			at = qs.abstolV.Raw()[i]
		}
		w := qs.reltol*absf(qi) + at
		if w <= 0 {
			w = 1 // quadrature tolerances default to inert until configured
		}
		ewt[i] = 1 / w
	}
	return nil
}

// quadPredict forms the quadrature predictor row, sharing the state
// predictor formula (spec.md §4.2/§4.4).
func (itg *Integrator) quadPredict(dst nvector.Vector) {
	predictRow(itg.quad.hist, dst)
}

// quadCorrect advances the quadrature value by one functional-style
// correction using the already-converged state y, per spec.md §4.4: the
// quadrature RHS has no feedback into the state corrector, so a single
// evaluation scaled by the shared h*rl1 (h/ell_1) factor suffices.
func (itg *Integrator) quadCorrect(t float64, y nvector.Vector, qPred, qOut nvector.Vector) error {
	qs := itg.quad
	if err := qs.rhs(t, y, qs.ftempQ); err != nil {
		if isRecoverable(err) {
			return err
		}
		return err
	}
	h := itg.hist
	qs.hist.acor.LinearSum(h.h*itg.rl1, qs.ftempQ, 0, qs.hist.acor)
	qOut.LinearSum(1, qPred, 1, qs.hist.acor)
	return nil
}
