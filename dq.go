package ivp

import (
	"math"

	"github.com/ivpsolve/ivpcore/nvector"
)

// paramIndex resolves plist[i] into a zero-based index into p/pbar and
// whether parameter i only perturbs the initial condition (never the
// RHS), per spec.md §4.11/§3: "entry j selects parameter |plist_j|-1;
// sign negative means that parameter affects initial conditions only."
// A nil plist defaults to the identity mapping (sensitivity i tracks
// parameter i).
func (ss *sensState) paramIndex(i int) (idx int, icOnly bool) {
	if ss.plist == nil || i >= len(ss.plist) {
		return i, false
	}
	entry := ss.plist[i]
	if entry < 0 {
		return -entry - 1, true
	}
	return entry - 1, false
}

// dqSensOne approximates s'_i = df/dy * s_i + df/dp_i by finite
// differences of the state RHS, spec.md §4.11. It perturbs y along s_i
// to approximate the df/dy*s_i term, and (when parameter i is not
// marked initial-condition-only) perturbs the shared parameter slice
// itg.sens.p in place around the RHS call to approximate df/dp_i — this
// relies on the caller's RHSFunc closure reading itg.sens.p live, the
// same "RHS closes over the mutable parameter vector" convention
// SUNDIALS' CVODES DQ routine assumes when the RHS signature carries no
// explicit p argument.
//
// Scheme selection follows spec.md §4.11: perturb y and p together
// ("simultaneous") when their natural perturbation magnitudes are
// within a factor of rhoMax of each other (or rhoMax == 0), else
// perturb each separately and sum the two directional derivatives.
// rhoMax >= 0 selects centered differences, rhoMax < 0 selects forward.
// It only supports the explicit ODE form, as SUNDIALS' CVODES DQ
// routine does; DAE-form problems must supply an analytic sensitivity
// RHS.
func (itg *Integrator) dqSensOne(t float64, y, yp nvector.Vector, i int, si, spi nvector.Vector) error {
	if !itg.isODE {
		return illInput("dqSensOne: finite-difference sensitivity RHS requires ODE form")
	}
	ss := itg.sens
	delta := math.Sqrt(math.Max(itg.reltol, itg.uround))

	pbarI := 1.0
	if i < len(ss.pbar) && ss.pbar[i] != 0 {
		pbarI = ss.pbar[i]
	}
	deltaP := pbarI * delta

	normS := si.WRMSNorm(itg.ewt)
	deltaY := normS * pbarI
	if alt := delta / pbarI; alt > deltaY {
		deltaY = alt
	}
	if deltaY == 0 {
		deltaY = delta
	}

	paramIdx, icOnly := ss.paramIndex(i)
	haveParam := !icOnly && ss.p != nil && paramIdx >= 0 && paramIdx < len(ss.p)

	ratio := 1.0
	if haveParam && deltaP != 0 {
		ratio = deltaY / deltaP
	}
	ratioMax := math.Max(ratio, 1/ratio)
	centered := ss.rhoMax >= 0
	simultaneous := !haveParam || ss.rhoMax == 0 || ratioMax <= math.Abs(ss.rhoMax)

	f0 := itg.newVec(itg.n)
	if err := itg.evalStateRHS(t, y, f0); err != nil {
		return err
	}
	itg.out.NumRHSEvals++

	// evalPerturbed evaluates f at y+dy*si with parameter paramIdx
	// temporarily shifted by dp, restoring it before returning.
	evalPerturbed := func(dy, dp float64) (nvector.Vector, error) {
		yPert := itg.newVec(itg.n)
		yPert.LinearSum(1, y, dy, si)
		var old float64
		if haveParam && dp != 0 {
			old = ss.p[paramIdx]
			ss.p[paramIdx] = old + dp
		}
		out := itg.newVec(itg.n)
		err := itg.evalStateRHS(t, yPert, out)
		if haveParam && dp != 0 {
			ss.p[paramIdx] = old
		}
		itg.out.NumRHSEvals++
		return out, err
	}

	if simultaneous {
		d := deltaY
		if haveParam && deltaP < d {
			d = deltaP
		}
		fPlus, err := evalPerturbed(d, d)
		if err != nil {
			return err
		}
		if centered {
			fMinus, err := evalPerturbed(-d, -d)
			if err != nil {
				return err
			}
			spi.LinearSum(0.5/d, fPlus, -0.5/d, fMinus)
		} else {
			spi.LinearSum(1/d, fPlus, -1/d, f0)
		}
		return nil
	}

	// Separate perturbation: the df/dy*s_i and df/dp_i directional
	// derivatives are estimated independently and summed.
	var dyTerm, dpTerm nvector.Vector
	if centered {
		fPlusY, err := evalPerturbed(deltaY, 0)
		if err != nil {
			return err
		}
		fMinusY, err := evalPerturbed(-deltaY, 0)
		if err != nil {
			return err
		}
		dyTerm = itg.newVec(itg.n)
		dyTerm.LinearSum(0.5/deltaY, fPlusY, -0.5/deltaY, fMinusY)

		fPlusP, err := evalPerturbed(0, deltaP)
		if err != nil {
			return err
		}
		fMinusP, err := evalPerturbed(0, -deltaP)
		if err != nil {
			return err
		}
		dpTerm = itg.newVec(itg.n)
		dpTerm.LinearSum(0.5/deltaP, fPlusP, -0.5/deltaP, fMinusP)
	} else {
		fPlusY, err := evalPerturbed(deltaY, 0)
		if err != nil {
			return err
		}
		dyTerm = itg.newVec(itg.n)
		dyTerm.LinearSum(1/deltaY, fPlusY, -1/deltaY, f0)

		fPlusP, err := evalPerturbed(0, deltaP)
		if err != nil {
			return err
		}
		dpTerm = itg.newVec(itg.n)
		dpTerm.LinearSum(1/deltaP, fPlusP, -1/deltaP, f0)
	}
	spi.LinearSum(1, dyTerm, 1, dpTerm)
	return nil
}

// evalStateRHS evaluates y'=f(t,y) through the residual abstraction,
// valid only when isODE (residual was installed via SetODEResidual).
func (itg *Integrator) evalStateRHS(t float64, y, out nvector.Vector) error {
	return itg.residual(t, y, nil, out)
}
