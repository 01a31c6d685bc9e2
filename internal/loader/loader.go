// Package loader parses a 64-bit little-endian RISC-V object file and
// copies its loadable segments into a machine's physical RAM.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/wuyijing-dev/RivOS/internal/rv64"
)

// Target is the RAM this core loads into: a contiguous window the loader
// must stay within.
type Target struct {
	Base uint64
	Size uint64
	Bus  *rv64.Bus
}

// Load validates r as a 64-bit RISC-V ELF image, copies every nonzero
// PT_LOAD segment into t (zero-filling memsz before copying filesz bytes,
// so BSS reads zero), and returns the architectural entry point.
//
// Load is atomic from the caller's perspective: on any error the RAM
// contents are unspecified and the error is the only thing the caller
// should rely on.
func Load(r io.ReaderAt, t Target) (entry uint64, err error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return 0, fmt.Errorf("invalid object file: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return 0, fmt.Errorf("unsupported ELF class %v (want 64-bit)", f.Class)
	}
	if f.Machine != elf.EM_RISCV {
		return 0, fmt.Errorf("unsupported ELF machine %v (want RISC-V)", f.Machine)
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}

		dst := prog.Paddr
		if dst == 0 {
			dst = prog.Vaddr
		}

		if dst < t.Base || dst+prog.Memsz > t.Base+t.Size {
			return 0, fmt.Errorf("segment [0x%x, 0x%x) out of RAM range [0x%x, 0x%x)",
				dst, dst+prog.Memsz, t.Base, t.Base+t.Size)
		}

		t.Bus.ZeroRange(dst, prog.Memsz)

		if prog.Filesz > 0 {
			data := make([]byte, prog.Filesz)
			if _, err := prog.ReadAt(data, 0); err != nil {
				return 0, fmt.Errorf("read segment at file offset 0x%x: %w", prog.Off, err)
			}
			t.Bus.LoadBytes(dst, data)
		}
	}

	return f.Entry, nil
}
