package hotpatch

import (
	"encoding/binary"
)

// The patched code is always little endian (x86, x86-64), regardless of how
// the host happens to lay out integers.

// EncodeUint32LE returns value as 4 little endian bytes.
func EncodeUint32LE(value uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, value)
	return out
}

// DecodeUint32LE reads a little endian uint32 from the first 4 bytes of b.
func DecodeUint32LE(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
