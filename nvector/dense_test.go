package nvector_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivpsolve/ivpcore/nvector"
)

func TestWRMSNorm(t *testing.T) {
	v := nvector.NewFrom([]float64{3, 4})
	w := nvector.NewFrom([]float64{1, 1})
	got := v.WRMSNorm(w)
	want := math.Sqrt((9.0 + 16.0) / 2.0)
	assert.InDelta(t, want, got, 1e-12)
}

func TestWRMSNormMaskExcludesNonPositive(t *testing.T) {
	v := nvector.NewFrom([]float64{3, 4, 100})
	w := nvector.NewFrom([]float64{1, 1, 1})
	mask := nvector.NewFrom([]float64{1, 1, 0})
	got := v.WRMSNormMask(w, mask)
	want := math.Sqrt((9.0 + 16.0) / 2.0)
	assert.InDelta(t, want, got, 1e-12)
}

func TestLinearSum(t *testing.T) {
	dst := nvector.New(3)
	x := nvector.NewFrom([]float64{1, 2, 3})
	y := nvector.NewFrom([]float64{4, 5, 6})
	dst.LinearSum(2, x, -1, y)
	assert.Equal(t, []float64{-2, -1, 0}, dst.Raw())
}

func TestConstrMask(t *testing.T) {
	v := nvector.NewFrom([]float64{1, -1, 0})
	c := nvector.NewFrom([]float64{1, 1, 2})
	m := nvector.New(3)
	ok := v.ConstrMask(c, m)
	assert.False(t, ok)
	assert.Equal(t, []float64{0, 1, 1}, m.Raw())
}

func TestMinQuotient(t *testing.T) {
	v := nvector.NewFrom([]float64{4, 9, 2})
	d := nvector.NewFrom([]float64{2, 3, 0})
	got := v.MinQuotient(d)
	assert.InDelta(t, 2.0, got, 1e-12)
}

func TestCloneIsIndependent(t *testing.T) {
	v := nvector.NewFrom([]float64{1, 2})
	cp := v.Clone()
	v.Raw()[0] = 99
	assert.Equal(t, 1.0, cp.Raw()[0])
}
