package ivp

import "github.com/ivpsolve/ivpcore/nvector"

// predict forms y_pred = sum_{j=0}^{q} zn[j] and, for DAE-form problems,
// y'_pred = (1/h) sum_{j=1}^{q} j*zn[j], per spec.md §4.2. The predictor
// is a pure function of history and has no failure modes; it writes into
// the caller-supplied yPred/ypPred vectors.
func predict(h *history, isODE bool, step float64, yPred, ypPred nvector.Vector) {
	yPred.Fill(0)
	for j := h.q; j >= 0; j-- {
		yPred.LinearSum(1, yPred, 1, h.zn[j])
	}
	if !isODE {
		ypPred.Fill(0)
		for j := h.q; j >= 1; j-- {
			ypPred.LinearSum(1, ypPred, float64(j), h.zn[j])
		}
		ypPred.Scale(1/step, ypPred)
	}
}

// predictRow applies the same row-sum formula to any single history
// (state, one sensitivity row, or quadrature), used by the sensitivity
// and quadrature substates which share the predictor formula row-wise
// per spec.md §4.2/§4.4.
func predictRow(h *history, dst nvector.Vector) {
	dst.Fill(0)
	for j := h.q; j >= 0; j-- {
		dst.LinearSum(1, dst, 1, h.zn[j])
	}
}
