package linsolve

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/ivpsolve/ivpcore/nvector"
)

// Dense is a direct linear solver that recomputes a dense Jacobian by
// finite differences (gonum.org/v1/gonum/diff/fd, grounded on the
// teacher's state.Jacobian / NewtonRaphsonSolver) and factors P = I -
// gamma*J (ODE form) with an LU decomposition.
//
// Residual must be the ODE-form right-hand side f(t,y); Dense does not
// support DAE-form problems.
type Dense struct {
	N        int
	Residual func(t float64, y nvector.Vector, out nvector.Vector) error
	Settings *fd.JacobianSettings

	jac  *mat.Dense
	p    mat.Dense
	lu   mat.LU
	jcur bool
}

var _ LinearSolver = (*Dense)(nil)

func (s *Dense) Init() error {
	s.jac = mat.NewDense(s.N, s.N, nil)
	return nil
}

func (s *Dense) Setup(hint ConvFailHint, gamma float64, tPred float64, yPred, fPred nvector.Vector) (bool, SetupResult) {
	f := func(dst, x []float64) {
		y := nvector.NewFrom(append([]float64(nil), x...))
		out := nvector.New(s.N)
		if err := s.Residual(tPred, y, out); err != nil {
			panic(err) // Setup has no error path for a Residual error during differencing
		}
		copy(dst, out.Raw())
	}
	fd.Jacobian(s.jac, f, yPred.Raw(), s.Settings)

	s.p.Reset()
	s.p.CloneFrom(eye(s.N))
	s.p.Sub(&s.p, scaled(s.jac, gamma))
	s.lu.Factorize(&s.p)
	s.jcur = true
	return true, SetupOK
}

func (s *Dense) Solve(b nvector.Vector, yCur, fCur nvector.Vector) SolveResult {
	bv := mat.NewVecDense(s.N, append([]float64(nil), b.Raw()...))
	var x mat.VecDense
	if err := s.lu.SolveVecTo(&x, false, bv); err != nil {
		return SolveRecoverable
	}
	copy(b.Raw(), x.RawVector().Data)
	return SolveOK
}

func (s *Dense) SolveS(is int, b nvector.Vector, yCur, fCur nvector.Vector) SolveResult {
	return s.Solve(b, yCur, fCur)
}

func (s *Dense) Free() {}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func scaled(m *mat.Dense, c float64) *mat.Dense {
	r, cN := m.Dims()
	out := mat.NewDense(r, cN, nil)
	out.Scale(c, m)
	return out
}
