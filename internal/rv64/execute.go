package rv64

// execute decodes and dispatches one already-fetched instruction word
// against the hart and bus. pc is the instruction's own fetch address —
// m.Hart.PC has already been advanced to pc+4 by the caller by this point,
// so AUIPC/JAL/JALR must compute against pc, not m.Hart.PC. execute returns
// a *TrapError for any condition that must synchronously trap; all other
// errors never occur (memory never fails at this layer).
func (m *Machine) execute(insn uint32, pc uint64) error {
	switch opcode(insn) {
	case opLui:
		m.Hart.WriteReg(rd(insn), immU(insn))
		return nil
	case opAuipc:
		m.Hart.WriteReg(rd(insn), uint64(int64(pc)+int64(immU(insn))))
		return nil
	case opJal:
		target := uint64(int64(pc) + immJ(insn))
		m.Hart.WriteReg(rd(insn), pc+4)
		m.Hart.PC = target
		return nil
	case opJalr:
		target := (uint64(int64(m.Hart.ReadReg(rs1(insn))) + immI(insn))) &^ 1
		m.Hart.WriteReg(rd(insn), pc+4)
		m.Hart.PC = target
		return nil
	case opBranch:
		return m.execBranch(insn, pc)
	case opLoad:
		return m.execLoad(insn)
	case opStore:
		return m.execStore(insn)
	case opOpImm:
		return m.execOpImm(insn)
	case opOpImm32:
		return m.execOpImm32(insn)
	case opOp:
		return m.execOp(insn)
	case opOp32:
		return m.execOp32(insn)
	case opSystem:
		return m.execSystem(insn)
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}
}

func (m *Machine) execBranch(insn uint32, pc uint64) error {
	r1 := m.Hart.ReadReg(rs1(insn))
	r2 := m.Hart.ReadReg(rs2(insn))

	var taken bool
	switch funct3(insn) {
	case 0b000: // BEQ
		taken = r1 == r2
	case 0b001: // BNE
		taken = r1 != r2
	case 0b100: // BLT
		taken = int64(r1) < int64(r2)
	case 0b101: // BGE
		taken = int64(r1) >= int64(r2)
	case 0b110: // BLTU
		taken = r1 < r2
	case 0b111: // BGEU
		taken = r1 >= r2
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}

	if taken {
		m.Hart.PC = uint64(int64(pc) + immB(insn))
	}
	return nil
}

func (m *Machine) execLoad(insn uint32) error {
	addr := uint64(int64(m.Hart.ReadReg(rs1(insn))) + immI(insn))

	var val uint64
	switch funct3(insn) {
	case 0b000: // LB
		val = uint64(int64(int8(m.Bus.Read8(addr))))
	case 0b001: // LH
		val = uint64(int64(int16(m.Bus.Read16(addr))))
	case 0b010: // LW
		val = uint64(int64(int32(m.Bus.Read32(addr))))
	case 0b011: // LD
		val = m.Bus.Read64(addr)
	case 0b100: // LBU
		val = uint64(m.Bus.Read8(addr))
	case 0b101: // LHU
		val = uint64(m.Bus.Read16(addr))
	case 0b110: // LWU
		val = uint64(m.Bus.Read32(addr))
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}

	m.Hart.WriteReg(rd(insn), val)
	return nil
}

func (m *Machine) execStore(insn uint32) error {
	addr := uint64(int64(m.Hart.ReadReg(rs1(insn))) + immS(insn))
	val := m.Hart.ReadReg(rs2(insn))

	switch funct3(insn) {
	case 0b000: // SB
		m.Bus.Write8(addr, uint8(val))
	case 0b001: // SH
		m.Bus.Write16(addr, uint16(val))
	case 0b010: // SW
		m.Bus.Write32(addr, uint32(val))
	case 0b011: // SD
		m.Bus.Write64(addr, val)
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}
	return nil
}

func (m *Machine) execOpImm(insn uint32) error {
	r1 := m.Hart.ReadReg(rs1(insn))
	imm := immI(insn)
	sh := shamt(insn)

	var val uint64
	switch funct3(insn) {
	case 0b000: // ADDI
		val = uint64(int64(r1) + imm)
	case 0b001: // SLLI
		val = r1 << sh
	case 0b010: // SLTI
		if int64(r1) < imm {
			val = 1
		}
	case 0b011: // SLTIU
		if r1 < uint64(imm) {
			val = 1
		}
	case 0b100: // XORI
		val = r1 ^ uint64(imm)
	case 0b101: // SRLI/SRAI, selected by instr[30]
		if (insn>>30)&1 == 1 {
			val = uint64(int64(r1) >> sh) // SRAI
		} else {
			val = r1 >> sh // SRLI
		}
	case 0b110: // ORI
		val = r1 | uint64(imm)
	case 0b111: // ANDI
		val = r1 & uint64(imm)
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}

	m.Hart.WriteReg(rd(insn), val)
	return nil
}

func (m *Machine) execOpImm32(insn uint32) error {
	r1 := uint32(m.Hart.ReadReg(rs1(insn)))
	imm := int32(immI(insn))
	sh := shamt32(insn)

	var val int32
	switch funct3(insn) {
	case 0b000: // ADDIW
		val = int32(r1) + imm
	case 0b001: // SLLIW
		val = int32(r1 << sh)
	case 0b101: // SRLIW/SRAIW
		if (insn>>30)&1 == 1 {
			val = int32(r1) >> sh // SRAIW
		} else {
			val = int32(r1 >> sh) // SRLIW
		}
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}

	m.Hart.WriteReg(rd(insn), uint64(val))
	return nil
}

func (m *Machine) execOp(insn uint32) error {
	r1 := m.Hart.ReadReg(rs1(insn))
	r2 := m.Hart.ReadReg(rs2(insn))
	f7 := funct7(insn)

	var val uint64
	switch funct3(insn) {
	case 0b000: // ADD/SUB
		if f7 == 0b0100000 {
			val = uint64(int64(r1) - int64(r2)) // SUB
		} else if f7 == 0 {
			val = uint64(int64(r1) + int64(r2)) // ADD
		} else {
			return trap(CauseIllegalInsn, uint64(insn))
		}
	case 0b001: // SLL
		val = r1 << (r2 & 0x3f)
	case 0b010: // SLT
		if int64(r1) < int64(r2) {
			val = 1
		}
	case 0b011: // SLTU
		if r1 < r2 {
			val = 1
		}
	case 0b100: // XOR
		val = r1 ^ r2
	case 0b101: // SRL/SRA
		if f7 == 0b0100000 {
			val = uint64(int64(r1) >> (r2 & 0x3f)) // SRA
		} else if f7 == 0 {
			val = r1 >> (r2 & 0x3f) // SRL
		} else {
			return trap(CauseIllegalInsn, uint64(insn))
		}
	case 0b110: // OR
		val = r1 | r2
	case 0b111: // AND
		val = r1 & r2
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}

	m.Hart.WriteReg(rd(insn), val)
	return nil
}

func (m *Machine) execOp32(insn uint32) error {
	r1 := uint32(m.Hart.ReadReg(rs1(insn)))
	r2 := uint32(m.Hart.ReadReg(rs2(insn)))
	f7 := funct7(insn)

	var val int32
	switch funct3(insn) {
	case 0b000: // ADDW/SUBW
		if f7 == 0b0100000 {
			val = int32(r1) - int32(r2) // SUBW
		} else if f7 == 0 {
			val = int32(r1) + int32(r2) // ADDW
		} else {
			return trap(CauseIllegalInsn, uint64(insn))
		}
	case 0b001: // SLLW
		val = int32(r1 << (r2 & 0x1f))
	case 0b101: // SRLW/SRAW
		if f7 == 0b0100000 {
			val = int32(r1) >> (r2 & 0x1f) // SRAW
		} else if f7 == 0 {
			val = int32(r1 >> (r2 & 0x1f)) // SRLW
		} else {
			return trap(CauseIllegalInsn, uint64(insn))
		}
	default:
		return trap(CauseIllegalInsn, uint64(insn))
	}

	m.Hart.WriteReg(rd(insn), uint64(val))
	return nil
}

// execSystem handles ecall/ebreak/wfi and the CSRRW/CSRRS/CSRRC trio. The
// rs1-as-uimm5 immediate forms (CSRRWI/CSRRSI/CSRRCI, funct3 5-7) are not
// implemented and fall through to the illegal-instruction trap.
func (m *Machine) execSystem(insn uint32) error {
	f3 := funct3(insn)

	if f3 == 0 {
		switch (insn >> 20) & 0xfff {
		case 0: // ecall
			return m.HandleFirmwareCall()
		case 1: // ebreak
			return trap(CauseBreakpoint, 0)
		case 0x105: // wfi
			return nil
		default:
			return trap(CauseIllegalInsn, uint64(insn))
		}
	}

	if f3 < 1 || f3 > 3 {
		return trap(CauseIllegalInsn, uint64(insn))
	}

	csr := uint16(insn >> 20)
	rdReg := rd(insn)
	rs1Reg := rs1(insn)
	rs1Val := m.Hart.ReadReg(rs1Reg)

	old := m.Hart.csrRead(csr)
	if rdReg != 0 {
		m.Hart.WriteReg(rdReg, old)
	}

	switch f3 {
	case 1: // CSRRW
		m.Hart.csrWrite(csr, rs1Val)
	case 2: // CSRRS
		m.Hart.csrWrite(csr, old|rs1Val)
	case 3: // CSRRC
		m.Hart.csrWrite(csr, old&^rs1Val)
	}

	return nil
}
