package hotpatch

import (
	"debug/elf"
	"fmt"
)

// Where non-PIE x86-64 executables are linked to load.
const processStartAddress = uint64(0x400000)

func firstLoadAddress(path string) (vaddr uint64, err error) {
	exe, err := elf.Open(path)
	if err != nil {
		return
	}
	defer exe.Close()

	for _, prog := range exe.Progs {
		if prog.Type == elf.PT_LOAD {
			return prog.Vaddr, nil
		}
	}
	err = fmt.Errorf("unable to find an ELF PT_LOAD segment in %v", path)
	return
}

// Used when the file behind a mapping cannot be read: a classic executable
// sits at its link address, anything else is assumed position independent.
func guessLoadAddress(mappedAt uint64) uint64 {
	if mappedAt == processStartAddress {
		return processStartAddress
	}
	return 0
}
