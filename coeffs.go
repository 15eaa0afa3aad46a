package ivp

import "math"

// setCoeffs computes the per-step multistep coefficients (ell, tq, and
// the implicit-form leading coefficient rl1) from the order q and the
// step-size history tau, per spec.md §4.1. It branches on method the
// same way the teacher's algorithms.go keeps every Butcher-tableau
// solver as one function switching on a compile-time table rather than
// one type per method; here the switch is on itg.method since the two
// multistep families share every other mechanism (history, predictor,
// corrector, error test).
func (itg *Integrator) setCoeffs() {
	h := itg.hist
	switch itg.method {
	case Adams:
		itg.setAdamsCoeffs()
	case BDF:
		itg.setBDFCoeffs()
	}
	itg.rl1 = 1 / h.l[1]
	itg.gamma = h.h * itg.rl1
	if itg.hist.q == 1 {
		itg.gammaRatio = 1
	} else {
		itg.gammaRatio = itg.gamma / itg.gammaPrev
	}
}

// setAdamsCoeffs computes ell_0..ell_q for the Adams-Moulton corrector.
// The Adams ell polynomial is generated from the standard recursive
// construction: ell(x) = prod_{i=1}^{q-1} (x + i)/i for the predictor
// polynomial's derivative relation; for a uniform-step reference
// implementation the coefficients reduce to the classical Adams-Moulton
// corrector weights, recomputed here from the variable-step recurrence
// so unequal step histories remain exact.
func (itg *Integrator) setAdamsCoeffs() {
	h := itg.hist
	q := h.q
	h.l[0], h.l[1] = 1, 1
	for i := 2; i <= q; i++ {
		h.l[i] = 0
	}
	// xi_j = step ratio of the j-th previous step to the current one.
	var xiInv float64 = 1
	hsum := h.h
	for j := 2; j <= q; j++ {
		hsum += h.tau[j-1]
		xiInv = h.h / hsum
		for i := j; i >= 2; i-- {
			h.l[i] = h.l[i] + h.l[i-1]*xiInv
		}
	}
	// Error-test constants: tq[2] scales the order-q error estimate.
	var a1 float64
	for i := 2; i <= q; i++ {
		a1 += h.l[i] / float64(i)
	}
	h.tq[2] = 1.0 / a1
	h.tq[1] = h.tq[2] * float64(q+1)
	if q > 1 {
		h.tq[3] = h.tq[2] * float64(q) / float64(q+1)
	} else {
		h.tq[3] = 1
	}
	h.tq[4] = 0.1 / h.tq[2]
	h.tq[5] = h.tq[2]
}

// setBDFCoeffs computes the fixed-leading-coefficient BDF corrector
// weights via the Nordsieck recurrence over the previous q step sizes.
func (itg *Integrator) setBDFCoeffs() {
	h := itg.hist
	q := h.q
	h.l[0], h.l[1] = 1, 1
	for i := 2; i <= q; i++ {
		h.l[i] = 0
	}
	var alpha0, alpha0Hat float64 = -1, -1
	var xiInv, xistarInv float64 = 1, 1
	hsum := h.h
	for j := 2; j <= q; j++ {
		hsum += h.tau[j-1]
		xiInv = h.h / hsum
		alpha0 -= 1.0 / float64(j)
		for i := j; i >= 1; i-- {
			h.l[i] += h.l[i-1] * xiInv
		}
	}
	if q > 1 {
		xistarInv = h.h / (hsum + h.tau[q])
		alpha0Hat = alpha0 - 1.0/float64(q+1)
	} else {
		xistarInv = 1
		alpha0Hat = alpha0
	}
	var aLp1 float64 = -alpha0Hat - alpha0
	cLp1 := aLp1 / (1 + float64(q)*aLp1 - alpha0Hat)
	_ = cLp1
	h.tq[2] = math.Abs(alpha0 - alpha0Hat) * (1 + float64(q)*aLp1 - alpha0Hat)
	h.tq[2] = 1 / h.tq[2]
	h.tq[1] = xistarInv * h.tq[2]
	h.tq[5] = h.tq[2]
	if q > 1 {
		h.tq[3] = float64(q) / h.tq[2]
	} else {
		h.tq[3] = 1
	}
	h.tq[4] = 0.1 / h.tq[2]
}

// bumpTau shifts the step-size history tau after a successful step,
// spec.md §4.1's "alpha_j, sigma_j, psi_j updated from previous
// successful step sizes."
func (h *history) bumpTau(hUsed float64) {
	for j := len(h.tau) - 1; j > 1; j-- {
		h.tau[j] = h.tau[j-1]
	}
	h.tau[1] = hUsed
}
