package hotpatch

import (
	"fmt"
	"strings"

	"k8s.io/klog/v2"
)

// LoadedModule is a dynamically loaded module as reported by the platform
// loader. BaseAddress is the load bias: the value to add to the module's
// link-time addresses to get run-time addresses.
type LoadedModule struct {
	Name        string
	BaseAddress uintptr
}

func (m LoadedModule) String() string {
	return fmt.Sprintf("%s@%#x", m.Name, m.BaseAddress)
}

// ModuleIterator enumerates the modules loaded in a process, calling yield
// once per module in loader order. Iteration stops when yield returns false.
type ModuleIterator interface {
	Modules(yield func(LoadedModule) bool) error
}

// ModuleIteratorFunc adapts a function to ModuleIterator.
type ModuleIteratorFunc func(yield func(LoadedModule) bool) error

func (f ModuleIteratorFunc) Modules(yield func(LoadedModule) bool) error {
	return f(yield)
}

// StaticLinkBias is the non-zero static load bias that libssutils.org.so was
// linked with. Offsets into it are given relative to its unbiased base.
const StaticLinkBias = uintptr(0x100000)

// BiasRule subtracts Bias from the base of modules whose name contains
// Pattern.
type BiasRule struct {
	Pattern string
	Bias    uintptr
}

// DefaultBiasRules are the corrections applied by DefaultLocator.
var DefaultBiasRules = []BiasRule{
	{Pattern: "libssutils.org.so", Bias: StaticLinkBias},
}

// Locator finds modules by name substring.
type Locator struct {
	Iterator ModuleIterator
	Biases   []BiasRule
}

// DefaultLocator enumerates the modules of the current process.
var DefaultLocator = &Locator{
	Iterator: SelfModules(),
	Biases:   DefaultBiasRules,
}

// FindModule returns the first module whose name contains nameSubstring,
// with its raw base address.
//
// The first match in loader order wins and iteration stops there. If several
// modules contain the substring, which one is returned depends on the order
// the loader happens to report them in; use a substring specific enough to
// match only one module.
func (l *Locator) FindModule(nameSubstring string) (module LoadedModule, err error) {
	found := false
	err = l.Iterator.Modules(func(m LoadedModule) bool {
		if strings.Contains(m.Name, nameSubstring) {
			module = m
			found = true
			return false
		}
		return true
	})
	if err != nil {
		err = fmt.Errorf("enumerating modules: %w", err)
		return
	}
	if !found {
		err = fmt.Errorf("%w: no module name contains %q", ErrModuleNotFound, nameSubstring)
	}
	return
}

// FindModuleBase is FindModule, with the base address corrected by the first
// bias rule whose pattern occurs in the matched module's name. Matches not
// covered by a rule are returned uncorrected.
func (l *Locator) FindModuleBase(nameSubstring string) (base uintptr, err error) {
	module, err := l.FindModule(nameSubstring)
	if err != nil {
		return
	}
	base = module.BaseAddress
	if rule, ok := l.biasFor(module.Name); ok {
		if base < rule.Bias {
			return 0, fmt.Errorf("%w: %v, bias %#x", ErrInvalidBase, module, rule.Bias)
		}
		base -= rule.Bias
	}
	klog.V(2).Infof("hotpatch: %q resolved to %v, base %#x", nameSubstring, module, base)
	return
}

func (l *Locator) biasFor(name string) (BiasRule, bool) {
	for _, rule := range l.Biases {
		if strings.Contains(name, rule.Pattern) {
			return rule, true
		}
	}
	return BiasRule{}, false
}

// FindModuleBase looks nameSubstring up with DefaultLocator.
func FindModuleBase(nameSubstring string) (uintptr, error) {
	return DefaultLocator.FindModuleBase(nameSubstring)
}
