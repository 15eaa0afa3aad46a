package ivp

import "github.com/ivpsolve/ivpcore/nvector"

// numTestConstants is the size of the tq array: error-test constants at
// orders q-1, q, q+1 plus the convergence-test and step-reduction
// constants, per spec.md §3.
const numTestConstants = 5

// history holds one Nordsieck array and its associated per-step
// coefficients, shared verbatim by the state, sensitivity and quadrature
// substates (only the backing zn slice differs), per spec.md §4.1/§4.5.
type history struct {
	zn []nvector.Vector // zn[0..q], zn[j] = (h^j/j!) y^(j)

	q, qPrime int
	qWait     int

	h, hPrime, eta, hScale float64

	tau [14]float64 // previous step sizes, tau[1..q+1]
	tq  [numTestConstants + 1]float64
	l   [13]float64 // ell_0..ell_q corrector polynomial coefficients

	acor nvector.Vector // final cumulative correction this step
}

func newHistory(n, lmax int, newVec func(int) nvector.Vector) *history {
	h := &history{zn: make([]nvector.Vector, lmax+1)}
	for j := range h.zn {
		h.zn[j] = newVec(n)
	}
	h.acor = newVec(n)
	return h
}

// rescale applies the history rescaling rule zn[j] <- eta^j * zn[j] in
// place, spec.md §4.1. It must be paired with a snapshot/restore on any
// recoverable failure so the pre-step history is restored exactly
// (spec.md §8 invariant).
func (h *history) rescale(eta float64) {
	factor := eta
	for j := 1; j < len(h.zn); j++ {
		h.zn[j].Scale(factor, h.zn[j])
		factor *= eta
	}
}

// snapshot returns a deep copy of every zn row for restore, since
// rescale mutates the rows in place and spec.md §8 requires exact
// restoration on recoverable failure ("zn[j] == zn[j]_before exactly").
func (h *history) snapshot() []nvector.Vector {
	cp := make([]nvector.Vector, len(h.zn))
	for j, v := range h.zn {
		cp[j] = v.Clone()
	}
	return cp
}

func (h *history) restore(snap []nvector.Vector) {
	for j := range h.zn {
		h.zn[j] = snap[j]
	}
}
