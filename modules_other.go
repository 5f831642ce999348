//go:build !linux && !windows

package hotpatch

// SelfModules enumerates the modules of the current process.
func SelfModules() ModuleIterator {
	return unsupportedModules{}
}

// ProcessModules enumerates the modules of another process.
func ProcessModules(pid int) ModuleIterator {
	return unsupportedModules{}
}

type unsupportedModules struct{}

func (unsupportedModules) Modules(func(LoadedModule) bool) error {
	return ErrNotSupported
}
