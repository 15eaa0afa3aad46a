package ivp

import "github.com/ivpsolve/ivpcore/nvector"

// Dky evaluates the k-th derivative of the interpolating polynomial at
// time t, spec.md §4.10. t must lie within the last-step interval
// [t_n - h_u, t_n] and k must not exceed the current order, matching
// CVodeGetDky's BAD_T/BAD_K contract.
func (itg *Integrator) Dky(t float64, k int, dky nvector.Vector) error {
	if itg.hist == nil {
		return newError(ErrMemNull, nil)
	}
	h := itg.hist
	if k < 0 || k > h.q {
		return newError(ErrBadK, nil)
	}
	tfuzz := 100 * itg.uround * (absf(itg.tn) + absf(h.h))
	tp := itg.tn - h.h - tfuzz
	tn1 := itg.tn + tfuzz
	if (t-tp)*(t-tn1) > 0 {
		return newError(ErrBadT, nil)
	}
	return dkyFrom(h, itg.tn, t, k, dky)
}

// dkyFrom implements the shared Taylor-reconstruction formula used by the
// state, sensitivity and quadrature dense-output variants alike, spec.md
// §4.10: dky = sum_j c_j * (s)^(j-k) * zn[j], built via the same nested
// Horner-style accumulation CVODE's CVodeGetDky uses.
func dkyFrom(h *history, tn, t float64, k int, dky nvector.Vector) error {
	s := (t - tn) / h.h

	c := 1.0
	for i := 0; i < k; i++ {
		c *= float64(h.q - i)
	}

	dky.Scale(c, h.zn[h.q])
	for j := h.q - 1; j >= k; j-- {
		c = 1.0
		for i := 0; i < k; i++ {
			c *= float64(j - i)
		}
		dky.Scale(s, dky)
		dky.LinearSum(c, h.zn[j], 1, dky)
	}
	if k == 0 {
		return nil
	}
	scale := 1.0
	for i := 0; i < k; i++ {
		scale /= h.h
	}
	dky.Scale(scale, dky)
	return nil
}

// SensDky evaluates the k-th derivative of sensitivity i's interpolating
// polynomial at t, the sensitivity analogue of Dky (spec.md §4.10).
func (itg *Integrator) SensDky(t float64, k, i int, dky nvector.Vector) error {
	if itg.sens == nil {
		return newError(ErrSensNotInit, nil)
	}
	if i < 0 || i >= itg.sens.ns {
		return newError(ErrBadK, nil)
	}
	h := itg.sens.hist[i]
	if k < 0 || k > h.q {
		return newError(ErrBadK, nil)
	}
	return dkyFrom(h, itg.tn, t, k, dky)
}

// QuadDky is the quadrature analogue of Dky.
func (itg *Integrator) QuadDky(t float64, k int, dky nvector.Vector) error {
	if itg.quad == nil {
		return newError(ErrQuadNotInit, nil)
	}
	h := itg.quad.hist
	if k < 0 || k > h.q {
		return newError(ErrBadK, nil)
	}
	return dkyFrom(h, itg.tn, t, k, dky)
}
