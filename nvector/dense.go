package nvector

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dense is the reference Vector implementation: a plain []float64 backed
// by gonum/floats for its element-wise kernels, the same way the
// teacher's state package built its arithmetic on top of floats.Add,
// floats.AddScaled, floats.Scale and friends.
type Dense struct {
	x []float64
}

var _ Vector = (*Dense)(nil)

func (d *Dense) Len() int { return len(d.x) }

func (d *Dense) Clone() Vector {
	cp := make([]float64, len(d.x))
	copy(cp, d.x)
	return &Dense{x: cp}
}

func (d *Dense) Fill(c float64) {
	for i := range d.x {
		d.x[i] = c
	}
}

func asDense(v Vector) *Dense {
	dv, ok := v.(*Dense)
	if !ok {
		panic("nvector: Dense only operates on *Dense arguments")
	}
	return dv
}

func (d *Dense) LinearSum(a float64, x Vector, b float64, y Vector) {
	xd, yd := asDense(x), asDense(y)
	for i := range d.x {
		d.x[i] = a*xd.x[i] + b*yd.x[i]
	}
}

func (d *Dense) Product(x, y Vector) {
	xd, yd := asDense(x), asDense(y)
	copy(d.x, xd.x)
	floats.Mul(d.x, yd.x)
}

func (d *Dense) Division(x, y Vector) {
	xd, yd := asDense(x), asDense(y)
	copy(d.x, xd.x)
	floats.Div(d.x, yd.x)
}

func (d *Dense) Abs(x Vector) {
	xd := asDense(x)
	for i, v := range xd.x {
		d.x[i] = math.Abs(v)
	}
}

func (d *Dense) Inverse(x Vector) {
	xd := asDense(x)
	for i, v := range xd.x {
		d.x[i] = 1 / v
	}
}

func (d *Dense) AddConst(x Vector, b float64) {
	xd := asDense(x)
	copy(d.x, xd.x)
	floats.AddConst(b, d.x)
}

func (d *Dense) Scale(c float64, x Vector) {
	xd := asDense(x)
	copy(d.x, xd.x)
	floats.Scale(c, d.x)
}

func (d *Dense) Dot(x Vector) float64 {
	return floats.Dot(d.x, asDense(x).x)
}

func (d *Dense) WRMSNorm(w Vector) float64 {
	wd := asDense(w)
	n := len(d.x)
	if n == 0 {
		return 0
	}
	var sum float64
	for i, v := range d.x {
		t := v * wd.x[i]
		sum += t * t
	}
	return math.Sqrt(sum / float64(n))
}

func (d *Dense) WRMSNormMask(w, mask Vector) float64 {
	wd, md := asDense(w), asDense(mask)
	var sum float64
	var n int
	for i, v := range d.x {
		if md.x[i] <= 0 {
			continue
		}
		t := v * wd.x[i]
		sum += t * t
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

func (d *Dense) Min() float64 {
	return floats.Min(d.x)
}

func (d *Dense) MaxNorm() float64 {
	var m float64
	for _, v := range d.x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// ConstrMask implements the ODE-form constraint check of spec.md §9:
// |c_i| in {0,1,2}; 0 disables the check, 1 requires sign(v_i)==sign(c_i),
// 2 requires the same with a strict (nonzero) inequality.
func (d *Dense) ConstrMask(c, m Vector) bool {
	cd, md := asDense(c), asDense(m)
	ok := true
	for i, v := range d.x {
		ci := cd.x[i]
		violated := false
		switch {
		case ci == 0:
		case math.Abs(ci) == 1:
			if v*ci < 0 {
				violated = true
			}
		case math.Abs(ci) == 2:
			if v*ci <= 0 {
				violated = true
			}
		}
		if violated {
			md.x[i] = 1
			ok = false
		} else {
			md.x[i] = 0
		}
	}
	return ok
}

func (d *Dense) MinQuotient(denom Vector) float64 {
	dd := asDense(denom)
	min := math.Inf(1)
	for i, den := range dd.x {
		if den == 0 {
			continue
		}
		q := d.x[i] / den
		if q < min {
			min = q
		}
	}
	return min
}

func (d *Dense) Space() (lrw, liw int) {
	return len(d.x), 1
}

func (d *Dense) Raw() []float64 { return d.x }
