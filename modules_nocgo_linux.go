//go:build linux && !cgo

package hotpatch

// SelfModules enumerates the modules of the current process.
//
// Without cgo the loader cannot be asked, so the list is rebuilt from
// /proc/self/maps as ProcessModules does, and its order and names can differ
// from dl_iterate_phdr's.
func SelfModules() ModuleIterator {
	return procMaps{}
}
