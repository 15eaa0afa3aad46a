package ivp

import "math"

// Step-size reduction factors applied by the failure handler on
// successive error-test failures, spec.md §4.8. Values follow the
// conventional BDF/Adams engineering practice of a mild first cut, a
// sharper cut once the order has already been dropped, and a final
// conservative cut once the order has been reset to 1.
const (
	etaEF1 = 0.5
	etaEF2 = 0.3
	etaEF3 = 0.25
	etaCF  = 0.25 // convergence-failure step reduction, spec.md §4.8
)

// selectOrderAndStep implements the step/order controller of spec.md
// §4.7: phase 0 doubles h (capped by EtaMax) and raises the order by one
// after each step until MaxOrd is reached, phase 1 chooses among
// {q-1, q, q+1} by minimizing predicted efficiency and sets h' from the
// accepted order's error estimate. haveQm1/haveQp1 and the matching
// eqm1/eqp1 error estimates are only real (not zero/false) once the
// order-wait counter in history.qWait has elapsed; the driver's step()
// gates on it before calling errorAtOrderMinus1/errorAtOrderPlus1 (spec.md
// §4.6's "after several steps at unchanged step size and order").
func (itg *Integrator) selectOrderAndStep(eq, eqm1, eqp1 float64, haveQm1, haveQp1 bool) {
	h := itg.hist
	if itg.phase0 {
		if h.q < itg.limits.MaxOrd {
			h.qPrime = h.q + 1
		} else {
			h.qPrime = h.q
			itg.phase0 = false
		}
		eta := 2.0
		if eta > itg.limits.EtaMax {
			eta = itg.limits.EtaMax
		}
		h.eta = eta
		h.hPrime = eta * h.h
		if h.qPrime == h.q {
			itg.phase0 = false
		}
		return
	}

	etaQ := etaFromError(eq, h.q)
	best := etaQ
	h.qPrime = h.q

	if haveQm1 {
		etaQm1 := etaFromError(eqm1, h.q-1)
		if etaQm1 > best {
			best = etaQm1
			h.qPrime = h.q - 1
		}
	}
	if haveQp1 && h.q+1 <= itg.limits.MaxOrd {
		etaQp1 := etaFromError(eqp1, h.q+1)
		if etaQp1 > best {
			best = etaQp1
			h.qPrime = h.q + 1
		}
	}

	eta := best
	if eta < 1.5 {
		eta = 1 // don't bother changing h for a marginal gain
	}
	if eta > itg.limits.EtaMax {
		eta = itg.limits.EtaMax
	}
	h.eta = eta
	h.hPrime = eta * h.h
	h.hPrime = clampStep(h.hPrime, itg.limits)
}

// etaFromError implements eta_k = (1/(2*E_k))^(1/(k+1)), spec.md §4.7.
func etaFromError(ek float64, k int) float64 {
	if ek <= 0 {
		return 10 // no error signal yet; allow a generous growth
	}
	return math.Pow(1/(2*ek), 1/float64(k+1))
}

// clampStep enforces h_min/h_max per spec.md §3's invariant
// |h| in [h_min, 1/h_max_inv].
func clampStep(h float64, l Limits) float64 {
	sign := 1.0
	if h < 0 {
		sign, h = -1, -h
	}
	if l.HMin > 0 && h < l.HMin {
		h = l.HMin
	}
	if l.HMaxInv > 0 {
		hMax := 1 / l.HMaxInv
		if h > hMax {
			h = hMax
		}
	}
	return sign * h
}
