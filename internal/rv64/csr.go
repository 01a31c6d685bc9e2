package rv64

// CSR addresses recognized by this core. Anything else reads as zero and
// discards writes.
const (
	CSRStvec  uint16 = 0x105
	CSRSepc   uint16 = 0x141
	CSRScause uint16 = 0x142
	CSRStval  uint16 = 0x143
)

// csrRead returns the current value of csr, or zero if unrecognized.
func (h *Hart) csrRead(csr uint16) uint64 {
	switch csr {
	case CSRStvec:
		return h.Stvec
	case CSRSepc:
		return h.Sepc
	case CSRScause:
		return h.Scause
	case CSRStval:
		return h.Stval
	default:
		return 0
	}
}

// csrWrite stores val into csr. Unrecognized addresses are discarded.
// Writes take effect immediately and are visible to the very next
// instruction.
func (h *Hart) csrWrite(csr uint16, val uint64) {
	switch csr {
	case CSRStvec:
		h.Stvec = val
	case CSRSepc:
		h.Sepc = val
	case CSRScause:
		h.Scause = val
	case CSRStval:
		h.Stval = val
	}
}
