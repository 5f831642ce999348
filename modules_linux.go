package hotpatch

import (
	"bufio"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

const deletedSuffix = " (deleted)"

// ProcessModules enumerates the modules of another process.
//
// Another process's loader cannot be asked, so the list is rebuilt from
// /proc/<pid>/maps: one entry per ELF file mapped from offset 0, in address
// order, named by the resolved file path, with the main executable reported
// under the empty name. The order and names can differ from what that
// process's dl_iterate_phdr reports.
func ProcessModules(pid int) ModuleIterator {
	return procMaps{pid: pid}
}

// procMaps reads /proc/<pid>/maps; pid 0 is the current process.
type procMaps struct {
	pid int
}

func (p procMaps) dir() string {
	if p.pid == 0 {
		return "/proc/self"
	}
	return "/proc/" + strconv.Itoa(p.pid)
}

func (p procMaps) Modules(yield func(LoadedModule) bool) error {
	f, err := os.Open(filepath.Join(p.dir(), "maps"))
	if err != nil {
		return err
	}
	defer f.Close()

	mappings, err := parseMaps(f)
	if err != nil {
		return fmt.Errorf("parsing %v: %w", f.Name(), err)
	}

	exe, err := os.Readlink(filepath.Join(p.dir(), "exe"))
	if err != nil {
		klog.V(4).Infof("hotpatch: cannot identify main image of %v: %v", p.dir(), err)
	}
	exe = strings.TrimSuffix(exe, deletedSuffix)

	for _, module := range modulesFromMappings(mappings, exe, PageSize(), firstLoadAddress) {
		if !yield(module) {
			break
		}
	}
	return nil
}

type mapping struct {
	start  uint64
	end    uint64
	perms  string
	offset uint64
	path   string
}

// Lines look like:
// 559576822000-559576827000 r-xp 00002000 00:1a 4586   /usr/bin/cat
func parseMaps(r io.Reader) (mappings []mapping, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var m mapping
		if m, err = parseMapsLine(line); err != nil {
			return
		}
		mappings = append(mappings, m)
	}
	err = scanner.Err()
	return
}

func parseMapsLine(line string) (m mapping, err error) {
	var fields [5]string
	rest := line
	for i := range fields {
		rest = strings.TrimLeft(rest, " \t")
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		fields[i], rest = rest[:end], rest[end:]
	}
	if fields[4] == "" {
		err = fmt.Errorf("malformed maps line %q", line)
		return
	}
	m.path = strings.TrimSpace(rest)
	m.perms = fields[1]

	lo, hi, ok := strings.Cut(fields[0], "-")
	if !ok {
		err = fmt.Errorf("malformed address range in maps line %q", line)
		return
	}
	if m.start, err = strconv.ParseUint(lo, 16, 64); err != nil {
		return
	}
	if m.end, err = strconv.ParseUint(hi, 16, 64); err != nil {
		return
	}
	m.offset, err = strconv.ParseUint(fields[2], 16, 64)
	return
}

// loadAddressFunc returns the link-time virtual address of the first PT_LOAD
// segment of the ELF file at path.
type loadAddressFunc func(path string) (uint64, error)

func modulesFromMappings(mappings []mapping, exe string, pageSize uintptr, loadAddress loadAddressFunc) (modules []LoadedModule) {
	seen := make(map[string]bool)
	for _, m := range mappings {
		path := strings.TrimSuffix(m.path, deletedSuffix)
		// The loader maps the first PT_LOAD segment from file offset 0.
		if path == "" || strings.HasPrefix(path, "[") || m.offset != 0 || seen[path] {
			continue
		}
		seen[path] = true

		vaddr, err := loadAddress(path)
		if isNotELF(err) {
			continue
		}
		if err != nil {
			vaddr = guessLoadAddress(m.start)
			klog.V(4).Infof("hotpatch: reading %v: %v; assuming first segment at %#x", path, err, vaddr)
		}

		linkStart := uint64(AlignDown(uintptr(vaddr), pageSize))
		if linkStart > m.start {
			klog.V(4).Infof("hotpatch: %v mapped at %#x below its link address %#x, skipping", path, m.start, linkStart)
			continue
		}

		name := path
		if path == exe {
			name = ""
		}
		modules = append(modules, LoadedModule{Name: name, BaseAddress: uintptr(m.start - linkStart)})
	}
	return
}

func isNotELF(err error) bool {
	var formatErr *elf.FormatError
	return errors.As(err, &formatErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
