package hotpatch

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// SelfModules enumerates the modules of the current process.
func SelfModules() ModuleIterator {
	return ModuleIteratorFunc(func(yield func(LoadedModule) bool) error {
		return enumProcessModules(windows.CurrentProcess(), yield)
	})
}

// ProcessModules enumerates the modules of another process.
func ProcessModules(pid int) ModuleIterator {
	return ModuleIteratorFunc(func(yield func(LoadedModule) bool) error {
		process, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, uint32(pid))
		if err != nil {
			return err
		}
		defer windows.CloseHandle(process)
		return enumProcessModules(process, yield)
	})
}

func enumProcessModules(process windows.Handle, yield func(LoadedModule) bool) error {
	const handleSize = uint32(unsafe.Sizeof(windows.Handle(0)))

	handles := make([]windows.Handle, 256)
	var needed uint32
	for {
		if err := windows.EnumProcessModules(process, &handles[0], uint32(len(handles))*handleSize, &needed); err != nil {
			return err
		}
		if count := int(needed / handleSize); count > len(handles) {
			handles = make([]windows.Handle, count)
			continue
		}
		break
	}
	handles = handles[:needed/handleSize]

	for _, handle := range handles {
		var name [windows.MAX_PATH]uint16
		if err := windows.GetModuleBaseName(process, handle, &name[0], uint32(len(name))); err != nil {
			return err
		}
		var info windows.ModuleInfo
		if err := windows.GetModuleInformation(process, handle, &info, uint32(unsafe.Sizeof(info))); err != nil {
			return err
		}
		if !yield(LoadedModule{Name: windows.UTF16ToString(name[:]), BaseAddress: info.BaseOfDll}) {
			break
		}
	}
	return nil
}
