package rv64

import "context"

// Machine couples a Hart to a Bus for the duration of one run. RAM is
// owned exclusively by the Machine; no state persists beyond it.
type Machine struct {
	Hart *Hart
	Bus  *Bus
}

// NewMachine allocates a fresh Bus (zero-initialized RAM of ramSize at
// ramBase, UART mapped at uartBase) and a Hart with PC = entry.
func NewMachine(ramBase, ramSize, uartBase, entry uint64, console Console) *Machine {
	return &Machine{
		Hart: NewHart(entry),
		Bus:  NewBus(ramBase, ramSize, uartBase, console),
	}
}

// Step performs at most one architectural instruction retire: fetch,
// decode, dispatch, and either commit the result or enter a trap.
func (m *Machine) Step() {
	pc := m.Hart.PC

	if pc%4 != 0 {
		m.enterTrap(CauseInsnAddrMisaligned, pc, pc)
		return
	}

	insn := m.Bus.Fetch(pc)
	m.Hart.PC = pc + 4

	if err := m.execute(insn, pc); err != nil {
		if te, ok := err.(*TrapError); ok {
			m.enterTrap(te.Cause, pc, te.Tval)
		}
	}

	// Force x0 back to zero unconditionally; every instruction's "rd <- v"
	// semantics is then safe without a per-operation guard.
	m.Hart.X[0] = 0
}

// enterTrap performs the synchronous transfer to stvec: scause <- cause,
// sepc <- the offending pc, stval <- tval, pc <- stvec. No privilege
// change, no interrupt masking — this core has neither.
func (m *Machine) enterTrap(cause, pc, tval uint64) {
	m.Hart.Scause = cause
	m.Hart.Sepc = pc
	m.Hart.Stval = tval
	m.Hart.PC = m.Hart.Stvec
}

// Run executes Step in a loop until the hart halts, the instruction budget
// is exhausted, or ctx is canceled. onProgress, if non-nil, is invoked
// periodically with the running instruction count and the budget — purely
// a diagnostic hook with no effect on architectural state. Run returns the
// number of instructions executed and the reason it stopped: ctx.Err() on
// cancellation, otherwise nil (halted or budget exhausted are both
// ordinary, successful terminations).
func (m *Machine) Run(ctx context.Context, budget uint64, onProgress func(executed, budget uint64)) (uint64, error) {
	const progressEvery = 1 << 20

	var executed uint64
	for !m.Hart.Halted && executed < budget {
		if executed%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return executed, err
			}
			if onProgress != nil {
				onProgress(executed, budget)
			}
		}
		m.Step()
		executed++
	}
	if onProgress != nil {
		onProgress(executed, budget)
	}
	return executed, nil
}
