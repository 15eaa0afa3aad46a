package ivp

import (
	"testing"

	"github.com/ivpsolve/ivpcore/nvector"
	"github.com/stretchr/testify/assert"
)

func TestHistoryRescale(t *testing.T) {
	h := newHistory(2, 5, func(n int) nvector.Vector { return nvector.New(n) })
	h.zn[0] = nvector.NewFrom([]float64{1, 1})
	h.zn[1] = nvector.NewFrom([]float64{2, 2})
	h.zn[2] = nvector.NewFrom([]float64{4, 4})

	h.rescale(0.5)

	assert.Equal(t, []float64{1, 1}, h.zn[0].Raw())
	assert.Equal(t, []float64{1, 1}, h.zn[1].Raw())
	assert.Equal(t, []float64{1, 1}, h.zn[2].Raw())
}

func TestHistorySnapshotRestore(t *testing.T) {
	h := newHistory(1, 3, func(n int) nvector.Vector { return nvector.New(n) })
	h.zn[0] = nvector.NewFrom([]float64{5})
	h.zn[1] = nvector.NewFrom([]float64{7})

	snap := h.snapshot()
	h.zn[0].Raw()[0] = 999
	h.zn[1].Raw()[0] = 999

	h.restore(snap)

	assert.Equal(t, 5.0, h.zn[0].Raw()[0])
	assert.Equal(t, 7.0, h.zn[1].Raw()[0])
}

func TestBumpTau(t *testing.T) {
	h := &history{}
	h.bumpTau(0.1)
	h.bumpTau(0.2)
	h.bumpTau(0.3)
	assert.Equal(t, 0.3, h.tau[1])
	assert.Equal(t, 0.2, h.tau[2])
	assert.Equal(t, 0.1, h.tau[3])
}
