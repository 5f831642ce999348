//go:build linux

package hotpatch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// mapCode maps anonymous read+execute pages filled with fill.
func mapCode(t *testing.T, pages int, fill byte) (base uintptr) {
	t.Helper()
	size := pages * os.Getpagesize()
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Munmap(mem) })

	for i := range mem {
		mem[i] = fill
	}
	require.NoError(t, unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC))
	return GetSliceAddr(mem)
}

func permissionsAt(t *testing.T, address uintptr) string {
	t.Helper()
	f, err := os.Open("/proc/self/maps")
	require.NoError(t, err)
	defer f.Close()
	mappings, err := parseMaps(f)
	require.NoError(t, err)
	for _, m := range mappings {
		if uint64(address) >= m.start && uint64(address) < m.end {
			return m.perms
		}
	}
	t.Fatalf("%#x is not mapped", address)
	return ""
}

func TestPatchBytesReadBack(t *testing.T) {
	base := mapCode(t, 1, 0xcc)
	payload := []byte{0x90, 0x90, 0x90, 0x90, 0x90}

	require.NoError(t, PatchBytes(base+0x42, payload))
	assert.Equal(t, payload, ReadMemory(base+0x42, len(payload)))
	assert.Equal(t, byte(0xcc), ReadMemory(base+0x41, 1)[0])
	assert.Equal(t, byte(0xcc), ReadMemory(base+0x47, 1)[0])
	assert.Equal(t, "r-xp", permissionsAt(t, base))
}

func TestPatchBytesWholePage(t *testing.T) {
	base := mapCode(t, 1, 0xcc)
	payload := bytes.Repeat([]byte{0x90}, int(PageSize()))

	require.NoError(t, PatchBytes(base, payload))
	assert.Equal(t, payload, ReadMemory(base, len(payload)))
}

func TestPatchBytesIdempotent(t *testing.T) {
	base := mapCode(t, 1, 0xcc)
	payload := []byte{0x90, 0x90, 0x90, 0x90, 0x90, 0x90}

	require.NoError(t, PatchBytes(base+0x756, payload))
	once := ReadMemory(base, int(PageSize()))
	require.NoError(t, PatchBytes(base+0x756, payload))
	assert.Equal(t, once, ReadMemory(base, int(PageSize())))
}

func TestPatchUint32LE(t *testing.T) {
	base := mapCode(t, 1, 0)
	for _, v := range []uint32{0, 1, 0x73, 0xdeadbeef, 0xffffffff} {
		require.NoError(t, PatchUint32LE(base+0x9cf, v))
		assert.Equal(t, v, DecodeUint32LE(ReadMemory(base+0x9cf, 4)))
	}
}

func TestPatchSpanningPageBoundary(t *testing.T) {
	base := mapCode(t, 2, 0xcc)
	address := base + PageSize() - 1
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	require.NoError(t, PatchBytes(address, payload))
	assert.Equal(t, payload, ReadMemory(address, len(payload)))
	assert.Equal(t, "r-xp", permissionsAt(t, base))
	assert.Equal(t, "r-xp", permissionsAt(t, base+PageSize()))
}

func TestPatchEmptyPayload(t *testing.T) {
	assert.NoError(t, PatchBytes(0, nil))
}

func TestPatchUnmappedFails(t *testing.T) {
	// The zero page is never mapped.
	err := PatchBytes(0x10, []byte{0x90, 0x90, 0x90, 0x90, 0x90})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtectionChange)
	assert.ErrorIs(t, err, unix.ENOMEM)
	assert.NotErrorIs(t, err, ErrProtectionRestore)
}

func TestPatchRefusedLeavesMemoryUnchanged(t *testing.T) {
	size := 2 * os.Getpagesize()
	path := filepath.Join(t.TempDir(), "image")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xcc}, size), 0o444))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	// A shared mapping of a read-only file can never be made writable.
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Munmap(mem) })
	base := GetSliceAddr(mem)
	address := base + PageSize() - 4
	require.Equal(t, "r--s", permissionsAt(t, base))

	err = PatchBytes(address, []byte{0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtectionChange)
	assert.ErrorIs(t, err, unix.EACCES)

	var protErr *ProtectionError
	require.ErrorAs(t, err, &protErr)
	assert.False(t, protErr.LeftWritable())
	assert.Equal(t, NewPageWindow(address, 8, PageSize()), protErr.Window)

	assert.Equal(t, bytes.Repeat([]byte{0xcc}, size), ReadMemory(base, size))
	// The refused window keeps its protection; it is not forced to r-x.
	assert.Equal(t, "r--s", permissionsAt(t, base))
	assert.Equal(t, "r--s", permissionsAt(t, base+PageSize()))
}

func TestPatchRequestApply(t *testing.T) {
	base := mapCode(t, 1, 0xcc)
	request := PatchRequest{Address: base + 0x244, Payload: []byte{0x90, 0x90, 0x90, 0x90, 0x90}}

	require.NoError(t, request.Apply())
	assert.Equal(t, request.Payload, ReadMemory(request.Address, len(request.Payload)))
}

func TestTryReadMemory(t *testing.T) {
	base := mapCode(t, 1, 0xcc)
	b, err := TryReadMemory(base, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xcc, 0xcc, 0xcc, 0xcc}, b)

	_, err = TryReadMemory(0x10, 4)
	assert.Error(t, err)
}
