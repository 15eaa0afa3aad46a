package ivp

import (
	"math"

	"github.com/ivpsolve/ivpcore/linsolve"
	"github.com/ivpsolve/ivpcore/nvector"
)

// Integrator is the single owner of the per-problem solver state: the
// Nordsieck history, coefficients, Newton state and optional sensitivity
// and quadrature substates, per spec.md §3. It is not re-entrant: one
// Integrator must be driven by one goroutine at a time (spec.md §5).
//
// The zero value is not usable; construct with New and configure with
// the Set* methods before calling Init, mirroring the teacher's
// New()+SetConfig()+SetChangeMap() construction sequence in
// simulation.go.
type Integrator struct {
	uround float64

	method  Method
	iter    IterType
	tolKind ToleranceKind
	reltol  float64
	abstol  float64
	abstolV nvector.Vector

	n      int
	newVec func(int) nvector.Vector

	hist *history

	tn         float64
	hDir       float64 // sign of the integration direction
	firstCall  bool
	phase0     bool

	ewt          nvector.Vector
	tempv, ftemp nvector.Vector

	gamma, gammaPrev, gammaRatio, crate float64
	rl1                                 float64
	jcur                                bool
	setupNonNull                        bool
	forceSetup                          bool

	limits Limits
	sink   EventSink

	solver   linsolve.LinearSolver
	residual ResidualFunc
	isODE    bool

	constraints nvector.Vector // optional, nil if unused

	nhnil int
	state runState
	ncf   int
	nef   int

	sens *sensState
	quad *quadState

	out OptionalOutputs

	tstop    float64
	tstopSet bool

	yp0 nvector.Vector // optional initial derivative, DAE form only
}

// New constructs an Integrator for a problem of size n using the Dense
// N-vector implementation, mirroring the teacher's New() factory which
// returns a ready-to-configure *Simulation with sensible defaults (RK4
// solver, "time" domain, one algorithm step).
func New(n int) *Integrator {
	return newWithAllocator(n, func(n int) nvector.Vector { return nvector.New(n) })
}

func newWithAllocator(n int, alloc func(int) nvector.Vector) *Integrator {
	itg := &Integrator{
		uround: 2.220446049250313e-16,
		method: BDF,
		iter:   Newton,
		limits: defaultLimits(),
		sink:   NopSink{},
		n:      n,
		newVec: alloc,
	}
	itg.limits.fillDefaults(itg.method)
	return itg
}

// SetMethod selects Adams or BDF; must be called before Init.
func (itg *Integrator) SetMethod(m Method) *Integrator {
	itg.method = m
	itg.limits.MaxOrd = 0
	itg.limits.fillDefaults(m)
	return itg
}

// SetIterType selects functional or Newton corrector iteration.
func (itg *Integrator) SetIterType(it IterType) *Integrator {
	itg.iter = it
	return itg
}

// SetScalarTolerances configures scalar relative + scalar absolute
// tolerance, per spec.md §3's tol_kind.
func (itg *Integrator) SetScalarTolerances(reltol, abstol float64) *Integrator {
	itg.tolKind = ScalarRelScalarAbs
	itg.reltol, itg.abstol = reltol, abstol
	return itg
}

// SetVectorTolerances configures scalar relative + per-component
// absolute tolerance.
func (itg *Integrator) SetVectorTolerances(reltol float64, abstol nvector.Vector) *Integrator {
	itg.tolKind = ScalarRelVectorAbs
	itg.reltol, itg.abstolV = reltol, abstol
	return itg
}

// SetLimits overrides the default Limits.
func (itg *Integrator) SetLimits(l Limits) *Integrator {
	itg.limits = l
	itg.limits.fillDefaults(itg.method)
	return itg
}

// SetEventSink installs the structured-event collaborator (spec.md §7).
func (itg *Integrator) SetEventSink(sink EventSink) *Integrator {
	itg.sink = sink
	return itg
}

// SetLinearSolver installs the Newton linear-solver plug-in (spec.md §6).
func (itg *Integrator) SetLinearSolver(s linsolve.LinearSolver) *Integrator {
	itg.solver = s
	itg.setupNonNull = s != nil
	return itg
}

// SetConstraints installs an optional component-wise constraint vector,
// |c_i| in {0,1,2}, checked after each Newton convergence (spec.md §9).
func (itg *Integrator) SetConstraints(c nvector.Vector) *Integrator {
	itg.constraints = c
	return itg
}

// SetODEResidual configures the explicit ODE form y'=f(t,y) by adapting
// RHSFunc to the internal residual signature: in ODE form the residual
// writes f(t,y) into res and ignores its y' argument.
func (itg *Integrator) SetODEResidual(f RHSFunc) *Integrator {
	itg.isODE = true
	itg.residual = func(t float64, y, yp nvector.Vector, res nvector.Vector) error {
		if err := f(t, y, res); err != nil {
			return err
		}
		return nil
	}
	return itg
}

// SetDAEResidual configures the implicit form F(t,y,y')=0 directly.
func (itg *Integrator) SetDAEResidual(f ResidualFunc) *Integrator {
	itg.isODE = false
	itg.residual = f
	return itg
}

// Init performs the malloc-time history allocation and sets the initial
// Nordsieck row zn[0]=y0 (zn[1]=h0*y0' is seeded by the driver on the
// first Solve call, in both ODE and DAE form). t0 is the initial time.
func (itg *Integrator) Init(y0 nvector.Vector, t0 float64) error {
	if itg.residual == nil {
		return illInput("Init: no residual/RHS set")
	}
	itg.hist = newHistory(itg.n, itg.limits.MaxOrd+1, itg.newVec)
	itg.hist.zn[0] = y0.Clone()
	itg.hist.q = 1
	itg.hist.qPrime = 1
	itg.hist.qWait = itg.hist.q + 1
	itg.tn = t0
	itg.firstCall = true
	itg.phase0 = true
	itg.state = running
	itg.ewt = itg.newVec(itg.n)
	itg.tempv = itg.newVec(itg.n)
	itg.ftemp = itg.newVec(itg.n)
	if err := itg.setEwt(y0); err != nil {
		return err
	}
	if itg.solver != nil {
		if err := itg.solver.Init(); err != nil {
			return newError(ErrMemNull, err)
		}
	}
	return nil
}

// ReInit resets counters and history by running Init again, which
// allocates a new history and work vectors; the allocation from the prior
// Init is not reused. It rejects a y0 whose size differs from the
// problem size; MaxOrd is not checked.
func (itg *Integrator) ReInit(y0 nvector.Vector, t0 float64) error {
	if itg.hist == nil {
		return illInput("ReInit: Init was never called")
	}
	if y0.Len() != itg.n {
		return illInput("ReInit: problem size changed, got %d want %d", y0.Len(), itg.n)
	}
	itg.out = OptionalOutputs{}
	itg.nhnil, itg.ncf, itg.nef = 0, 0, 0
	return itg.Init(y0, t0)
}

// Free releases the linear-solver plug-in's resources. There is no other
// owned native resource to release in this Go implementation; the
// analogue of the teacher's release-on-free contract is preserved for
// symmetry with spec.md §3's lifecycle and so callers that always pair
// New with a deferred Free keep working if a future LinearSolver does
// hold OS resources.
func (itg *Integrator) Free() {
	if itg.solver != nil {
		itg.solver.Free()
	}
}

// setEwt computes ewt_i = 1/(reltol*|y_i| + abstol_i), spec.md §3's
// error-weight invariant, and reports a hard error if any component is
// non-positive.
func (itg *Integrator) setEwt(y nvector.Vector) error {
	raw := y.Raw()
	ewt := itg.ewt.Raw()
	for i, yi := range raw {
		var at float64
		if itg.tolKind == ScalarRelScalarAbs {
			at = itg.abstol
		} else {
			at = itg.abstolV.Raw()[i]
		}
		w := itg.reltol*math.Abs(yi) + at
		if w <= 0 {
			return illInput("ewt[%d] computed non-positive weight", i)
		}
		ewt[i] = 1 / w
	}
	return nil
}

// CurrentTime returns t_n, the last accepted time.
func (itg *Integrator) CurrentTime() float64 { return itg.tn }

// CurrentOrder returns the current order q.
func (itg *Integrator) CurrentOrder() int { return itg.hist.q }

// CurrentStep returns the step size used to produce the current history.
func (itg *Integrator) CurrentStep() float64 { return itg.hist.h }

// Outputs returns a snapshot of the cumulative counters (spec.md §6's
// optional-output array).
func (itg *Integrator) Outputs() OptionalOutputs { return itg.out }

// SetTstop installs a designated time past which the integrator must not
// step, spec.md §4.9.
func (itg *Integrator) SetTstop(tstop float64) *Integrator {
	itg.tstop, itg.tstopSet = tstop, true
	return itg
}

// ClearTstop disables tstop handling.
func (itg *Integrator) ClearTstop() *Integrator {
	itg.tstopSet = false
	return itg
}

// SetInitialDerivative supplies y'0 for DAE-form problems, used by the
// initial step-size estimate and to seed zn[1]. Ignored in ODE form,
// where y'0 = f(t0,y0) is evaluated directly.
func (itg *Integrator) SetInitialDerivative(yp0 nvector.Vector) *Integrator {
	itg.yp0 = yp0
	return itg
}
