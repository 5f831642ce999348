package plan

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Describe renders code as x86-64 instructions in Intel syntax, for logs.
// Bytes that do not decode are shown as "(bad)"; a trailing partial
// instruction is shown as "...".
func Describe(code []byte, pc uintptr) string {
	var parts []string
	for offset := 0; offset < len(code); {
		inst, err := x86asm.Decode(code[offset:], 64)
		if err != nil {
			if err == x86asm.ErrTruncated {
				parts = append(parts, "...")
				break
			}
			parts = append(parts, "(bad)")
			offset++
			continue
		}
		parts = append(parts, x86asm.IntelSyntax(inst, uint64(pc)+uint64(offset), nil))
		offset += inst.Len
	}
	return strings.Join(parts, "; ")
}
