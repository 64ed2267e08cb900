package sim

import "fmt"

// AccessKind identifies a bus operation in the trace.
type AccessKind uint8

// Access kinds.
const (
	AccessLoad    AccessKind = iota // Load16/Load32
	AccessStore                     // Store16/Store32
	AccessBarrier                   // Barrier
	AccessDelay                     // Delay
)

// String returns a short name for the access kind.
func (k AccessKind) String() string {
	switch k {
	case AccessLoad:
		return "load"
	case AccessStore:
		return "store"
	case AccessBarrier:
		return "barrier"
	case AccessDelay:
		return "delay"
	default:
		return "unknown"
	}
}

// Access is one recorded bus operation.
type Access struct {
	Kind  AccessKind
	Addr  uint32
	Value uint32
	Width uint8 // 16 or 32 for loads and stores
}

// String formats the access for test failure output.
func (a Access) String() string {
	switch a.Kind {
	case AccessLoad, AccessStore:
		return fmt.Sprintf("%s%d 0x%08X=0x%X", a.Kind, a.Width, a.Addr, a.Value)
	default:
		return a.Kind.String()
	}
}

// ViolationKind identifies a protocol misuse detected by the simulator.
type ViolationKind uint8

// Violation kinds.
const (
	ViolationWriteWhileBusy    ViolationKind = iota // Store issued with BSY set
	ViolationReadWhileBusy                          // Flash array read with BSY set
	ViolationLockWhileLocked                        // CR.LOCK set while locked (GD32 erratum)
	ViolationKeySequence                            // Bad or redundant key write; locked until reset
	ViolationProgramNotEnabled                      // Flash store without CR.PG
	ViolationOptionNotEnabled                       // Option operation without OPTWRE/OPTPG
	ViolationWidth                                  // Wrong access width or alignment
	ViolationUnmapped                               // Access outside any mapped region
)

// String returns a short name for the violation kind.
func (k ViolationKind) String() string {
	switch k {
	case ViolationWriteWhileBusy:
		return "write-while-busy"
	case ViolationReadWhileBusy:
		return "read-while-busy"
	case ViolationLockWhileLocked:
		return "lock-while-locked"
	case ViolationKeySequence:
		return "key-sequence"
	case ViolationProgramNotEnabled:
		return "program-not-enabled"
	case ViolationOptionNotEnabled:
		return "option-not-enabled"
	case ViolationWidth:
		return "width"
	case ViolationUnmapped:
		return "unmapped"
	default:
		return "unknown"
	}
}

// Violation is one recorded protocol misuse.
type Violation struct {
	Kind  ViolationKind
	Addr  uint32
	Value uint32
}
