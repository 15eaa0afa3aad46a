package ivp

import "github.com/pkg/errors"

// ReturnCode is the typed analogue of spec.md §6's numeric return code
// enumeration: zero is success, positive is informational, negative is
// error.
type ReturnCode int

const (
	Success           ReturnCode = 0
	TstopReturn       ReturnCode = 1
	RootReturn        ReturnCode = 2
	ErrMemNull        ReturnCode = -1
	ErrIllInput       ReturnCode = -2
	ErrTooMuchWork    ReturnCode = -3
	ErrTooMuchAcc     ReturnCode = -4
	ErrErrFailure     ReturnCode = -5
	ErrConvFailure    ReturnCode = -6
	ErrSetupFailure   ReturnCode = -7
	ErrSolveFailure   ReturnCode = -8
	ErrRHSFailure     ReturnCode = -9
	ErrRepeatedRHS    ReturnCode = -10
	ErrConstrFailure  ReturnCode = -11
	ErrBadK           ReturnCode = -12
	ErrBadT           ReturnCode = -13
	ErrNullOutput     ReturnCode = -14
	ErrSensNotInit    ReturnCode = -15
	ErrQuadNotInit    ReturnCode = -16
)

func (c ReturnCode) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case TstopReturn:
		return "TSTOP_RETURN"
	case RootReturn:
		return "ROOT_RETURN"
	case ErrMemNull:
		return "MEM_NULL"
	case ErrIllInput:
		return "ILL_INPUT"
	case ErrTooMuchWork:
		return "TOO_MUCH_WORK"
	case ErrTooMuchAcc:
		return "TOO_MUCH_ACC"
	case ErrErrFailure:
		return "ERR_FAILURE"
	case ErrConvFailure:
		return "CONV_FAILURE"
	case ErrSetupFailure:
		return "SETUP_FAILURE"
	case ErrSolveFailure:
		return "SOLVE_FAILURE"
	case ErrRHSFailure:
		return "RHS_FAILURE"
	case ErrRepeatedRHS:
		return "REPEATED_RHS_ERR"
	case ErrConstrFailure:
		return "CONSTR_FAILURE"
	case ErrBadK:
		return "BAD_K"
	case ErrBadT:
		return "BAD_T"
	case ErrNullOutput:
		return "NULL_OUTPUT"
	case ErrSensNotInit:
		return "SENS_NOT_INIT"
	case ErrQuadNotInit:
		return "QUAD_NOT_INIT"
	default:
		return "UNKNOWN"
	}
}

// Error adapts a ReturnCode to the error interface, wrapping an optional
// cause with github.com/pkg/errors the way the teacher's indirect
// dependency on pkg/errors (also a direct require of viamrobotics-rdk) is
// meant to be used: preserve a stack/cause instead of flattening to a
// plain string.
type Error struct {
	Code  ReturnCode
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code.String() + ": " + e.cause.Error()
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.cause }

func newError(code ReturnCode, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Code: code, cause: cause}
}

func illInput(format string, args ...interface{}) *Error {
	return newError(ErrIllInput, errors.Errorf(format, args...))
}
