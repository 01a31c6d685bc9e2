package rv64

import "fmt"

// Exception causes this core can raise. No interrupt causes exist here —
// there is no interrupt delivery model.
const (
	CauseInsnAddrMisaligned uint64 = 0
	CauseIllegalInsn        uint64 = 2
	CauseBreakpoint         uint64 = 3
)

// TrapError signals that Step must enter the trap handshake instead of
// retiring normally: scause <- Cause, sepc <- the offending PC, stval <-
// Tval, pc <- stvec.
type TrapError struct {
	Cause uint64
	Tval  uint64
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("trap: cause=%d tval=0x%x", e.Cause, e.Tval)
}

func trap(cause, tval uint64) *TrapError {
	return &TrapError{Cause: cause, Tval: tval}
}
