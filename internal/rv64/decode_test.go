package rv64

import "testing"

// TestImmIExtraction checks the I-immediate against hand-picked encodings,
// including the sign-extension boundary.
func TestImmIExtraction(t *testing.T) {
	cases := []struct {
		insn uint32
		want int64
	}{
		{encodeADDI(1, 0, 0), 0},
		{encodeADDI(1, 0, 2047), 2047},
		{encodeADDI(1, 0, -1), -1},
		{encodeADDI(1, 0, -2048), -2048},
	}
	for _, c := range cases {
		if got := immI(c.insn); got != c.want {
			t.Errorf("immI(0x%08x): got %d, want %d", c.insn, got, c.want)
		}
	}
}

// TestImmUExtraction checks that immU zeroes the low 12 bits and leaves the
// upper 20 untouched.
func TestImmUExtraction(t *testing.T) {
	insn := encodeLUI(1, 0xABCDE)
	got := immU(insn)
	want := uint64(0xABCDE) << 12
	if got != want {
		t.Errorf("immU: got 0x%x, want 0x%x", got, want)
	}
	if got&0xfff != 0 {
		t.Errorf("immU: low 12 bits not zero: 0x%x", got)
	}
}

// TestImmBExtraction checks the B-immediate's scattered bit layout and its
// sign extension, independent of decode.go's own field extraction (the
// encodeBEQ helper in machine_test.go builds the instruction word by hand).
func TestImmBExtraction(t *testing.T) {
	cases := []int32{4, -4, 4094, -4096}
	for _, offset := range cases {
		insn := encodeBEQ(0, 0, offset)
		if got := immB(insn); got != int64(offset) {
			t.Errorf("immB(beq off=%d): got %d, want %d", offset, got, offset)
		}
	}
}

// TestImmJExtraction checks the J-immediate's scattered bit layout.
func TestImmJExtraction(t *testing.T) {
	insn := encodeJAL(1, 1<<10)
	if got := immJ(insn); got != 1<<10 {
		t.Errorf("immJ: got %d, want %d", got, 1<<10)
	}
	neg := encodeJAL(1, -2)
	if got := immJ(neg); got != -2 {
		t.Errorf("immJ: got %d, want -2", got)
	}
}

// TestImmSExtraction checks the S-immediate's split rd/imm[11:5] fields.
func TestImmSExtraction(t *testing.T) {
	insn := encodeStore(11, 5, 0b010, -100)
	if got := immS(insn); got != -100 {
		t.Errorf("immS: got %d, want -100", got)
	}
}

// TestOpImm32SignExtension checks that an OP-IMM-32 result's bits[63:32]
// equal the sign-extension of bit 31.
func TestOpImm32SignExtension(t *testing.T) {
	m, _ := newTestMachine(4096)
	// x11 = 0x7fffffff; addiw x12, x11, 1 -> 32-bit result 0x80000000, which must
	// sign-extend to 0xffffffff80000000, not zero-extend.
	insns := []uint32{
		encodeLUI(11, 0x80000),    // x11 = 0x80000000
		encodeADDI(11, 11, -1),    // x11 = 0x7fffffff
		encodeADDIW(12, 11, 1),    // x12 = sext32(0x80000000)
	}
	loadProgram(m, insns)
	for range insns {
		m.Step()
	}
	want := uint64(0xffffffff80000000)
	if m.Hart.X[12] != want {
		t.Errorf("addiw sign extension: got 0x%x, want 0x%x", m.Hart.X[12], want)
	}
}

// TestOp32SignExtension checks the same sign-extension rule for the
// register-register ADDW form.
func TestOp32SignExtension(t *testing.T) {
	m, _ := newTestMachine(4096)
	insns := []uint32{
		encodeLUI(11, 0x80000), // x11 = 0x80000000
		encodeLUI(12, 0),       // x12 = 0
		encodeADDI(12, 12, -1), // x12 = 0xffffffffffffffff
		encodeADDW(13, 11, 12), // x13 = sext32(0x80000000 + 0xffffffff) = sext32(0x7fffffff)
	}
	loadProgram(m, insns)
	for range insns {
		m.Step()
	}
	want := uint64(0x7fffffff)
	if m.Hart.X[13] != want {
		t.Errorf("addw: got 0x%x, want 0x%x", m.Hart.X[13], want)
	}
}

// TestPCStaysAligned checks that after any non-trapping instruction the PC
// remains a multiple of 4.
func TestPCStaysAligned(t *testing.T) {
	m, _ := newTestMachine(4096)
	insns := []uint32{
		encodeLUI(1, 0x80000), // x1 = RAMBase
		encodeADDI(1, 1, 12),  // x1 = RAMBase + 12, the addi below
		encodeJALR(0, 1, 0),   // jumps to RAMBase + 12, still 4-aligned
		encodeADDI(2, 0, 1),
	}
	loadProgram(m, insns)
	for i := 0; i < len(insns); i++ {
		m.Step()
		if m.Hart.PC%4 != 0 {
			t.Fatalf("step %d: pc 0x%x not 4-aligned", i, m.Hart.PC)
		}
	}
}

// TestStoreLoadRoundTrip checks that a store followed by a load of the same
// width at the same address recovers the original bit pattern.
func TestStoreLoadRoundTrip(t *testing.T) {
	m, _ := newTestMachine(8192)
	const addr = RAMBase + 0x1000

	m.Bus.Write64(addr, 0x0102030405060708)
	if got := m.Bus.Read64(addr); got != 0x0102030405060708 {
		t.Errorf("dword round trip: got 0x%x", got)
	}

	m.Bus.Write32(addr, 0xCAFEBABE)
	if got := m.Bus.Read32(addr); got != 0xCAFEBABE {
		t.Errorf("word round trip: got 0x%x", got)
	}

	m.Bus.Write16(addr, 0xBEEF)
	if got := m.Bus.Read16(addr); got != 0xBEEF {
		t.Errorf("half round trip: got 0x%x", got)
	}

	m.Bus.Write8(addr, 0x42)
	if got := m.Bus.Read8(addr); got != 0x42 {
		t.Errorf("byte round trip: got 0x%x", got)
	}
}

func encodeJAL(rd uint32, offset int32) uint32 {
	u := uint32(offset)
	imm20 := (u >> 20) & 1
	imm10_1 := (u >> 1) & 0x3ff
	imm11 := (u >> 11) & 1
	imm19_12 := (u >> 12) & 0xff
	return 0b1101111 | (rd << 7) | (imm19_12 << 12) | (imm11 << 20) | (imm10_1 << 21) | (imm20 << 31)
}

func encodeStore(rs1, rs2, funct3 uint32, offset int32) uint32 {
	u := uint32(offset)
	imm4_0 := u & 0x1f
	imm11_5 := (u >> 5) & 0x7f
	return 0b0100011 | (imm4_0 << 7) | (funct3 << 12) | (rs1 << 15) | (rs2 << 20) | (imm11_5 << 25)
}

func encodeADDIW(rd, rs1 uint32, imm int32) uint32 {
	return encodeIType(0b0011011, rd, 0, rs1, imm)
}

func encodeADDW(rd, rs1, rs2 uint32) uint32 {
	return 0b0111011 | (rd << 7) | (0 << 12) | (rs1 << 15) | (rs2 << 20) | (0 << 25)
}
