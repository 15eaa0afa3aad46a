package ivp

import (
	"math"

	"github.com/ivpsolve/ivpcore/linsolve"
	"github.com/ivpsolve/ivpcore/nvector"
)

// corrFailKind classifies why correct returned without convergence.
type corrFailKind int

const (
	corrOK corrFailKind = iota
	corrRecoverableFail
	corrRHSFail
	corrSetupFail
	corrSolveFail
)

// correct runs the per-step nonlinear corrector to convergence, spec.md
// §4.3. yPred/ypPred are the predictor output (ypPred only meaningful in
// DAE form); on success y holds the corrected solution and itg.hist.acor
// holds the final cumulative correction used by the error test.
//
// Grounded on the teacher's NewtonRaphsonSolver (algorithms.go), which
// drives a fixed-point-style residual/Jacobian/linsolve loop per step;
// this generalizes that single always-implicit loop into the spec's two
// distinct iteration schemes (functional vs Newton) sharing one
// convergence test.
func (itg *Integrator) correct(hint linsolve.ConvFailHint, yPred, ypPred, y, yp nvector.Vector) corrFailKind {
	acor := itg.hist.acor
	acor.Fill(0)
	y.LinearSum(1, yPred, 0, yPred)
	if !itg.isODE {
		yp.LinearSum(1, ypPred, 0, ypPred)
	}

	if itg.iter == Functional {
		return itg.correctFunctional(yPred, y, yp, acor)
	}
	return itg.correctNewton(hint, yPred, ypPred, y, yp, acor)
}

// correctFunctional implements y^(m+1) = y_pred + (h/ell_1)*(f(t_n,y^(m))
// - z_pred) iterated to the WRMS convergence test of spec.md §4.3. Only
// valid for the explicit ODE form.
func (itg *Integrator) correctFunctional(yPred, y, yp nvector.Vector, acor nvector.Vector) corrFailKind {
	h := itg.hist
	delta := itg.tempv
	var rate float64
	var lastNorm float64
	for m := 0; m < itg.limits.MaxCorrectorIters; m++ {
		if err := itg.residual(itg.tn+h.h, y, nil, itg.ftemp); err != nil {
			if isRecoverable(err) {
				return corrRecoverableFail
			}
			return corrRHSFail
		}
		itg.out.NumRHSEvals++
		// delta = h*rl1*f - acor  (acor plays the role of z_pred's
		// running correction since y == yPred + acor at loop entry).
		delta.LinearSum(h.h*itg.rl1, itg.ftemp, -1, acor)
		norm := delta.WRMSNorm(itg.ewt)
		acor.LinearSum(1, acor, 1, delta)
		y.LinearSum(1, yPred, 1, acor)

		if m > 0 {
			rate = math.Max(0.3*rate, norm/lastNorm)
		} else {
			rate = 1
		}
		lastNorm = norm
		test := rate * norm / (1 - math.Min(rate, 0.9))
		if test < convergenceEps {
			itg.crate = rate
			itg.out.NumNonlinIters += int64(m + 1)
			return corrOK
		}
	}
	return corrRecoverableFail
}

// convergenceEps is the corrector convergence tolerance epsilon_conv of
// spec.md §4.3. SUNDIALS-family integrators default this to a small
// multiple of uround-scaled safety factor; 0.1 is the customary constant
// applied against the already-normalized WRMS test quantity.
const convergenceEps = 0.1

// correctNewton implements P*delta = -residual, y <- y + delta, iterated
// to the same convergence test, driving the linear-solver hooks per
// spec.md §4.3/§6.
func (itg *Integrator) correctNewton(hint linsolve.ConvFailHint, yPred, ypPred, y, yp nvector.Vector, acor nvector.Vector) corrFailKind {
	if itg.solver == nil {
		return corrSetupFail
	}
	h := itg.hist
	needSetup := itg.forceSetup || !itg.jcur ||
		math.Abs(itg.gammaRatio-1) > 0.3 || itg.gammaRatio == 0
	if needSetup {
		jcur, res := itg.solver.Setup(hint, itg.gamma, itg.tn+h.h, yPred, ypPred)
		itg.out.NumLinSetups++
		itg.jcur = jcur
		itg.gammaPrev = itg.gamma
		itg.forceSetup = false
		if res == linsolve.SetupUnrecoverable {
			return corrSetupFail
		}
		if res == linsolve.SetupRecoverable {
			return corrRecoverableFail
		}
	}

	var rate, lastNorm float64
	for m := 0; m < itg.limits.MaxCorrectorIters; m++ {
		res := itg.ftemp
		if err := itg.residual(itg.tn+h.h, y, yp, res); err != nil {
			if isRecoverable(err) {
				return corrRecoverableFail
			}
			return corrRHSFail
		}
		itg.out.NumRHSEvals++
		res.Scale(-1, res)

		switch r := itg.solver.Solve(res, y, yp); r {
		case linsolve.SolveUnrecoverable:
			return corrSolveFail
		case linsolve.SolveRecoverable:
			return corrRecoverableFail
		}
		delta := res

		norm := delta.WRMSNorm(itg.ewt)
		acor.LinearSum(1, acor, 1, delta)
		y.LinearSum(1, y, 1, delta)
		if !itg.isODE {
			yp.LinearSum(1, yp, itg.rl1, delta)
		}

		if m > 0 {
			rate = math.Max(0.3*rate, norm/lastNorm)
		} else {
			rate = 1
		}
		lastNorm = norm
		test := rate * norm / (1 - math.Min(rate, 0.9))

		if test < convergenceEps {
			if itg.constraints != nil {
				mask := itg.tempv.Clone()
				if !y.ConstrMask(itg.constraints, mask) {
					return corrRecoverableFail
				}
			}
			itg.crate = rate
			itg.out.NumNonlinIters += int64(m + 1)
			return corrOK
		}
	}
	return corrRecoverableFail
}
