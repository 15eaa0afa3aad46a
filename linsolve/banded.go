package linsolve

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/ivpsolve/ivpcore/nvector"
)

// Banded is a direct solver for Jacobians known to be banded, e.g. from a
// method-of-lines discretization. It computes a dense finite-difference
// Jacobian, keeps only the entries inside a configurable (lower, upper)
// band (via denseToBand, generalized from the teacher's full-bandwidth
// helper in algorithms.go), and factors P = I - gamma*J_band as a dense
// matrix with a dense LU. Storage and factorization do not exploit the
// band structure.
type Banded struct {
	N, LowerBW, UpperBW int
	Residual            func(t float64, y nvector.Vector, out nvector.Vector) error
	Settings            *fd.JacobianSettings

	jac  *mat.Dense
	band *mat.BandDense
	lu   mat.LU
}

var _ LinearSolver = (*Banded)(nil)

func (s *Banded) Init() error {
	s.jac = mat.NewDense(s.N, s.N, nil)
	return nil
}

func (s *Banded) Setup(hint ConvFailHint, gamma float64, tPred float64, yPred, fPred nvector.Vector) (bool, SetupResult) {
	f := func(dst, x []float64) {
		y := nvector.NewFrom(append([]float64(nil), x...))
		out := nvector.New(s.N)
		if err := s.Residual(tPred, y, out); err != nil {
			panic(err)
		}
		copy(dst, out.Raw())
	}
	fd.Jacobian(s.jac, f, yPred.Raw(), s.Settings)

	s.band = denseToBand(s.jac, s.LowerBW, s.UpperBW)
	p := mat.NewDense(s.N, s.N, nil)
	for i := 0; i < s.N; i++ {
		p.Set(i, i, 1)
	}
	for i := 0; i < s.N; i++ {
		lo, hi := i-s.LowerBW, i+s.UpperBW
		if lo < 0 {
			lo = 0
		}
		if hi > s.N-1 {
			hi = s.N - 1
		}
		for j := lo; j <= hi; j++ {
			p.Set(i, j, p.At(i, j)-gamma*s.band.At(i, j))
		}
	}
	s.lu.Factorize(p)
	return true, SetupOK
}

func (s *Banded) Solve(b nvector.Vector, yCur, fCur nvector.Vector) SolveResult {
	bv := mat.NewVecDense(s.N, append([]float64(nil), b.Raw()...))
	var x mat.VecDense
	if err := s.lu.SolveVecTo(&x, false, bv); err != nil {
		return SolveRecoverable
	}
	copy(b.Raw(), x.RawVector().Data)
	return SolveOK
}

func (s *Banded) SolveS(is int, b nvector.Vector, yCur, fCur nvector.Vector) SolveResult {
	return s.Solve(b, yCur, fCur)
}

func (s *Banded) Free() {}

// denseToBand extracts a (lower,upper)-bandwidth banded view of a dense
// matrix, generalizing the teacher's always-full-bandwidth denseToBand.
func denseToBand(d *mat.Dense, lower, upper int) *mat.BandDense {
	r, c := d.Dims()
	b := mat.NewBandDense(r, c, lower, upper, nil)
	for i := 0; i < r; i++ {
		lo, hi := i-lower, i+upper
		if lo < 0 {
			lo = 0
		}
		if hi > c-1 {
			hi = c - 1
		}
		for j := lo; j <= hi; j++ {
			b.SetBand(i, j, d.At(i, j))
		}
	}
	return b
}
