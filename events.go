package ivp

import "go.uber.org/zap"

// FailureKind classifies the event records an EventSink receives, the
// concrete form of Design Note "In-place fprintf error messages →
// structured error events" (spec.md §9).
type FailureKind int

const (
	EventHNil FailureKind = iota
	EventConvFailure
	EventErrFailure
	EventSetupFailure
	EventSolveFailure
	EventRHSFailure
)

func (k FailureKind) String() string {
	switch k {
	case EventHNil:
		return "t+h==t"
	case EventConvFailure:
		return "nonlinear convergence failure"
	case EventErrFailure:
		return "local error test failure"
	case EventSetupFailure:
		return "linear solver setup failure"
	case EventSolveFailure:
		return "linear solver solve failure"
	case EventRHSFailure:
		return "residual/RHS failure"
	default:
		return "unknown"
	}
}

// FailureEvent is the typed record emitted on escalation, per spec.md
// §7: "Messages are not emitted for per-attempt recoveries, only upon
// escalation."
type FailureEvent struct {
	Kind FailureKind
	Tn   float64
	H    float64
	Q    int
	Nst  int64
}

// EventSink is the injected, write-only collaborator for structured
// failure/warning records; the core never formats text itself (Design
// Note: "Global file pointer for error reporting → injected sink").
type EventSink interface {
	Emit(FailureEvent)
}

// ZapSink adapts a *zap.Logger to EventSink, the concrete sink shipped by
// this repo. zap is wired because it is the structured-logging library
// used elsewhere in the example pack (viamrobotics-rdk); a bare
// fmt.Printf sink would have been the stdlib fallback this project is
// built to avoid.
type ZapSink struct {
	Log *zap.Logger
}

func (z ZapSink) Emit(ev FailureEvent) {
	if z.Log == nil {
		return
	}
	fields := []zap.Field{
		zap.Float64("t", ev.Tn),
		zap.Float64("h", ev.H),
		zap.Int("order", ev.Q),
		zap.Int64("internal_steps", ev.Nst),
	}
	switch ev.Kind {
	case EventHNil:
		z.Log.Warn(ev.Kind.String(), fields...)
	default:
		z.Log.Error(ev.Kind.String(), fields...)
	}
}

// NopSink discards every event; used as the zero-value default so a
// freshly malloc'd Integrator never panics on a nil sink.
type NopSink struct{}

func (NopSink) Emit(FailureEvent) {}

// checkHNil detects the "t+h==t" condition of spec.md §3/§4.9: h has
// become too small relative to t_n for the addition to change its
// floating-point value, a sign the integration is stalling. Emits
// EventHNil through the sink, rate-limited to at most MaxHNilWarnings
// occurrences per integrator lifetime (spec.md §7); MaxHNilWarnings==-1
// disables the check entirely.
func (itg *Integrator) checkHNil() {
	if itg.limits.MaxHNilWarnings == -1 {
		return
	}
	if itg.tn+itg.hist.h == itg.tn {
		itg.nhnil++
		if itg.nhnil <= itg.limits.MaxHNilWarnings {
			itg.sink.Emit(FailureEvent{Kind: EventHNil, Tn: itg.tn, H: itg.hist.h, Q: itg.hist.q, Nst: itg.out.NumSteps})
		}
	}
}
