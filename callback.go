package ivp

import "github.com/ivpsolve/ivpcore/nvector"

// RecoverableError marks a callback error as recoverable: the corrector
// should retry with a reduced step rather than aborting the integration,
// per spec.md §6's "0=ok, >0=recoverable, <0=fatal" callback contract.
// Any other error is treated as fatal, including an error that merely
// wraps a *RecoverableError. This is the Go analogue of the teacher's
// ErrorRemove sentinel-error pattern in events.go, generalized from a
// single sentinel to a wrapper type any callback error can be put in via
// Recoverable.
type RecoverableError struct {
	cause error
}

func Recoverable(cause error) *RecoverableError { return &RecoverableError{cause: cause} }

func (e *RecoverableError) Error() string {
	if e.cause == nil {
		return "recoverable callback failure"
	}
	return e.cause.Error()
}

func (e *RecoverableError) Unwrap() error { return e.cause }

func isRecoverable(err error) bool {
	_, ok := err.(*RecoverableError)
	return ok
}

// RHSFunc is the explicit ODE-form right-hand side y'=f(t,y).
type RHSFunc func(t float64, y nvector.Vector, yp nvector.Vector) error

// ResidualFunc is the implicit DAE-form residual F(t,y,y')=0.
type ResidualFunc func(t float64, y, yp nvector.Vector, res nvector.Vector) error

// SensRHSAllFunc computes every sensitivity derivative s'_i at once
// (ALLSENS), given the current state, state derivative and all
// sensitivity vectors.
type SensRHSAllFunc func(t float64, y, yp nvector.Vector, s, sp []nvector.Vector) error

// SensRHSOneFunc computes a single sensitivity derivative s'_i (ONESENS),
// used directly by STAGGERED1 and by DQ when only one sensitivity is
// perturbed at a time.
type SensRHSOneFunc func(t float64, y, yp nvector.Vector, i int, si, spi nvector.Vector) error

// QuadRHSFunc computes the quadrature derivative q'=f_Q(t,y).
type QuadRHSFunc func(t float64, y nvector.Vector, qp nvector.Vector) error
