// Package linsolve implements the linear-solver plug-in contract of
// spec.md §6: init/setup/solve/solveS/free hooks the Newton corrector
// drives to solve P*x = b for the Newton correction. Three concrete
// capabilities are provided — Dense, Banded and Iterative — mirroring the
// direct/iterative split the teacher's NewtonRaphsonSolver makes between
// building a dense Jacobian (via gonum/diff/fd) and solving with
// gonum.org/v1/gonum/exp/linsolve's GMRES.
package linsolve

import "github.com/ivpsolve/ivpcore/nvector"

// ConvFailHint annotates the corrector's prior-failure context for the
// setup hook, per spec.md §4.3.
type ConvFailHint int

const (
	// NoFailure: first attempt this step, or the prior step's only
	// failure was an error-test failure.
	NoFailure ConvFailHint = iota
	// BadJacobian: the previous step's Newton iteration failed to
	// converge and the cached Jacobian data was already stale.
	BadJacobian
	// OtherFailure: the previous step's Newton iteration failed with a
	// freshly computed Jacobian.
	OtherFailure
)

// SetupResult is returned by Setup.
type SetupResult int

const (
	SetupOK SetupResult = iota
	SetupRecoverable
	SetupUnrecoverable
)

// SolveResult is returned by Solve/SolveS.
type SolveResult int

const (
	SolveOK SolveResult = iota
	SolveRecoverable
	SolveUnrecoverable
)

// ResidualFunc evaluates either f(t,y) (ODE form) or F(t,y,y') (DAE
// form); the corrector always calls it with the DAE-compatible signature,
// passing a nil yp and ignoring it for ODE-form problems.
type ResidualFunc func(t float64, y, yp nvector.Vector, out nvector.Vector) error

// LinearSolver is the capability interface every plug-in implements.
// gamma is h*rl1; the corrector passes this value in both ODE and DAE
// form; see spec.md §4.3.
type LinearSolver interface {
	// Init allocates solver-owned state. Called once at sensitivity/
	// quadrature-agnostic integrator init.
	Init() error
	// Setup may recompute Jacobian data from (tPred, yPred, fPred) and
	// the current gamma; it must report whether it refreshed the
	// Jacobian in jCurrent, to let the corrector avoid infinite setup
	// loops on repeated failures.
	Setup(hint ConvFailHint, gamma float64, tPred float64, yPred, fPred nvector.Vector) (jCurrent bool, result SetupResult)
	// Solve overwrites b with the solution of P*x = b for the current
	// Jacobian data and gamma.
	Solve(b nvector.Vector, yCur, fCur nvector.Vector) SolveResult
	// SolveS is the optional per-sensitivity solve hook used by the
	// STAGGERED and STAGGERED1 sensitivity strategies; most solvers can
	// implement it by forwarding to Solve since P is shared across
	// sensitivity blocks (spec.md §4.4).
	SolveS(is int, b nvector.Vector, yCur, fCur nvector.Vector) SolveResult
	// Free releases solver-owned resources.
	Free()
}
