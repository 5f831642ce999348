package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kstenerud/go-hotpatch"
	"golang.org/x/sys/unix"
)

func mapCode(fill byte) (mem []byte, err error) {
	if mem, err = unix.Mmap(-1, 0, os.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE); err != nil {
		return
	}
	for i := range mem {
		mem[i] = fill
	}
	err = unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC)
	return
}

func TestExecutableName() (err error) {
	name, err := hotpatch.ExecutableName()
	if err != nil {
		return
	}
	exe, err := os.Executable()
	if err != nil {
		return
	}
	if expected := filepath.Base(exe); name != expected {
		return fmt.Errorf("Expected %v but got %v", expected, name)
	}
	return
}

func TestFindLibc() (err error) {
	module, err := hotpatch.DefaultLocator.FindModule("libc.so")
	if err != nil {
		return
	}
	base, err := hotpatch.FindModuleBase("libc.so")
	if err != nil {
		return
	}
	if base == 0 || base != module.BaseAddress {
		return fmt.Errorf("Expected libc base %#x to be non-zero and unbiased, got %#x", module.BaseAddress, base)
	}
	// The first page of a loaded ELF image starts with its magic number.
	header, err := hotpatch.TryReadMemory(base, 4)
	if err != nil {
		return
	}
	if !bytes.Equal(header, []byte("\x7fELF")) {
		return fmt.Errorf("Expected ELF magic at libc base %#x, got %x", base, header)
	}
	return
}

func TestFindMissingModule() (err error) {
	_, err = hotpatch.FindModuleBase("libdoesnotexist.so")
	if !errors.Is(err, hotpatch.ErrModuleNotFound) {
		return fmt.Errorf("Expected ErrModuleNotFound but got %v", err)
	}
	return nil
}

func TestPatchMemory() (err error) {
	mem, err := mapCode(0xcc)
	if err != nil {
		return
	}
	defer unix.Munmap(mem)

	address := hotpatch.GetSliceAddr(mem) + 0x42
	nops := []byte{0x90, 0x90, 0x90, 0x90, 0x90}
	if err = hotpatch.PatchBytes(address, nops); err != nil {
		return
	}
	if actual := hotpatch.ReadMemory(address, len(nops)); !bytes.Equal(actual, nops) {
		return fmt.Errorf("Expected %x but got %x", nops, actual)
	}
	return
}

func TestPatchUint32() (err error) {
	mem, err := mapCode(0)
	if err != nil {
		return
	}
	defer unix.Munmap(mem)

	address := hotpatch.GetSliceAddr(mem) + 0x9cf
	if err = hotpatch.PatchUint32LE(address, 0xdeadbeef); err != nil {
		return
	}
	if actual := hotpatch.DecodeUint32LE(mem[0x9cf:]); actual != 0xdeadbeef {
		return fmt.Errorf("Expected 0xdeadbeef but got %#x", actual)
	}
	return
}
