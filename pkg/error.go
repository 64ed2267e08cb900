package pkg

import "errors"

// Flash controller errors.
var (
	// ErrMisalignedAddress indicates an erase or program target that is not
	// page or program-unit aligned, or a buffer of odd length.
	ErrMisalignedAddress = errors.New("misaligned address")

	// ErrOutOfRange indicates an address outside the programmable region.
	ErrOutOfRange = errors.New("address out of range")

	// ErrControllerTimeout indicates a busy-wait exceeded its poll bound.
	ErrControllerTimeout = errors.New("controller timeout")

	// ErrProgramFault indicates the controller reported a programming error
	// (target half-word was not erased).
	ErrProgramFault = errors.New("program fault")

	// ErrWriteProtected indicates the controller rejected an erase or
	// program of a write-protected page.
	ErrWriteProtected = errors.New("write protected")

	// ErrLocked indicates the controller stayed locked after an unlock
	// attempt, or a command was issued while it was locked.
	ErrLocked = errors.New("controller locked")

	// ErrNotSupported indicates an operation whose feature is disabled.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Fault represents the terminal outcome of a controller operation.
type Fault int

// Fault values.
const (
	FaultNone         Fault = iota // Operation completed
	FaultProgram                   // PGERR reported
	FaultWriteProtect              // WRPRTERR reported
	FaultTimeout                   // Busy bit never cleared
	FaultLocked                    // Controller locked
)

// String returns a string representation of the fault.
func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultProgram:
		return "program"
	case FaultWriteProtect:
		return "write-protect"
	case FaultTimeout:
		return "timeout"
	case FaultLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Error returns the sentinel error for the fault, or nil for FaultNone.
func (f Fault) Error() error {
	switch f {
	case FaultNone:
		return nil
	case FaultProgram:
		return ErrProgramFault
	case FaultWriteProtect:
		return ErrWriteProtected
	case FaultTimeout:
		return ErrControllerTimeout
	case FaultLocked:
		return ErrLocked
	default:
		return ErrInvalidParameter
	}
}
