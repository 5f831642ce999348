//go:build linux && cgo

package hotpatch

/*
#define _GNU_SOURCE
#include <link.h>
#include <stdint.h>

extern int hotpatchVisitModule(char* name, uintptr_t base, uintptr_t handle);

static int visit_module(struct dl_phdr_info *info, size_t size, void *data) {
	return hotpatchVisitModule((char *)info->dlpi_name, (uintptr_t)info->dlpi_addr, (uintptr_t)data);
}

static void iterate_modules(uintptr_t handle) {
	dl_iterate_phdr(visit_module, (void *)handle);
}

#define MAX_SNAPSHOT_MODULES 256

struct module_snapshot {
	const char *names[MAX_SNAPSHOT_MODULES];
	uintptr_t bases[MAX_SNAPSHOT_MODULES];
	int count;
};

static int record_module(struct dl_phdr_info *info, size_t size, void *data) {
	struct module_snapshot *snapshot = data;
	if (snapshot->count < MAX_SNAPSHOT_MODULES) {
		snapshot->names[snapshot->count] = info->dlpi_name;
		snapshot->bases[snapshot->count] = (uintptr_t)info->dlpi_addr;
		snapshot->count++;
	}
	return 0;
}

static void snapshot_modules(struct module_snapshot *snapshot) {
	snapshot->count = 0;
	dl_iterate_phdr(record_module, snapshot);
}
*/
import "C"

import (
	"runtime/cgo"
)

// SelfModules enumerates the modules of the current process through the
// dynamic loader (dl_iterate_phdr): the names the loader reports, in the
// loader's order. The main executable comes first, under the empty name.
func SelfModules() ModuleIterator {
	return loaderModules{}
}

type loaderModules struct{}

// The loader lock is held while yield runs. yield must not load or unload
// modules.
func (loaderModules) Modules(yield func(LoadedModule) bool) error {
	handle := cgo.NewHandle(yield)
	defer handle.Delete()
	C.iterate_modules(C.uintptr_t(handle))
	return nil
}

// loaderSnapshot lists the loaded modules in one pass of the loader without
// calling back into Go.
func loaderSnapshot() (modules []LoadedModule) {
	var snapshot C.struct_module_snapshot
	C.snapshot_modules(&snapshot)
	for i := 0; i < int(snapshot.count); i++ {
		modules = append(modules, LoadedModule{
			Name:        C.GoString(snapshot.names[i]),
			BaseAddress: uintptr(snapshot.bases[i]),
		})
	}
	return
}
