package ivp

// Limits carries every tunable cap described in spec.md §3's "Limits"
// bullet and §6's optional-input array, grounded in the teacher's Config
// struct (simulation.go) which groups tunables under one value type set
// via SetConfig.
type Limits struct {
	MaxOrd            int     // 0 => method default (12 Adams / 5 BDF)
	MaxStepsPerCall   int     // default 500
	MaxCorrectorIters int     // default 3
	MaxHNilWarnings   int     // default 10; -1 disables
	MaxNCF            int     // default 10 (consecutive convergence failures)
	MaxNEF            int     // default 7 (consecutive error-test failures)
	HMin              float64
	HMaxInv           float64 // 0 => unbounded
	EtaMax            float64 // 0 => default 10; caps the step growth factor in both phases
	H0                float64 // user-supplied initial step, 0 => estimate
}

func defaultLimits() Limits {
	return Limits{
		MaxStepsPerCall:   500,
		MaxCorrectorIters: 3,
		MaxHNilWarnings:   10,
		MaxNCF:            10,
		MaxNEF:            7,
		EtaMax:            10,
	}
}

func (l *Limits) fillDefaults(m Method) {
	if l.MaxOrd <= 0 {
		l.MaxOrd = m.qMaxDefault()
	}
	if l.MaxStepsPerCall <= 0 {
		l.MaxStepsPerCall = 500
	}
	if l.MaxCorrectorIters <= 0 {
		l.MaxCorrectorIters = 3
	}
	if l.MaxHNilWarnings == 0 {
		l.MaxHNilWarnings = 10
	}
	if l.MaxNCF <= 0 {
		l.MaxNCF = 10
	}
	if l.MaxNEF <= 0 {
		l.MaxNEF = 7
	}
	if l.EtaMax <= 0 {
		l.EtaMax = 10
	}
}

// OptionalOutputs mirrors the cumulative-output half of spec.md §6's
// optional-input/output array: named counters instead of fixed array
// slots, since Go has no analogue of the C family's caller-allocated
// long[] buffer.
type OptionalOutputs struct {
	NumSteps              int64
	NumRHSEvals           int64
	NumLinSetups          int64
	NumNonlinIters        int64
	NumNonlinConvFails    int64
	NumErrTestFails       int64
	NumStabLimOrderReds   int64
	QLast, QCur           int
	HLast, HCur           float64
	TCur                  float64
	ToleranceScaleFactor  float64
}
