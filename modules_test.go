package hotpatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModules reports mods in order and counts how many were visited.
type fakeModules struct {
	mods    []LoadedModule
	visited int
	err     error
}

func (f *fakeModules) Modules(yield func(LoadedModule) bool) error {
	if f.err != nil {
		return f.err
	}
	for _, m := range f.mods {
		f.visited++
		if !yield(m) {
			break
		}
	}
	return nil
}

func newTestLocator(mods ...LoadedModule) (*Locator, *fakeModules) {
	iter := &fakeModules{mods: mods}
	return &Locator{Iterator: iter, Biases: DefaultBiasRules}, iter
}

func TestFindModuleBaseSubstring(t *testing.T) {
	locator, _ := newTestLocator(
		LoadedModule{Name: "", BaseAddress: 0},
		LoadedModule{Name: "/usr/lib/libfoo.so.1", BaseAddress: 0x7f0000001000},
		LoadedModule{Name: "/usr/lib/libbar.so", BaseAddress: 0x7f0000002000},
	)

	base, err := locator.FindModuleBase("libfoo")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x7f0000001000), base)

	base, err = locator.FindModuleBase("bar.so")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x7f0000002000), base)
}

func TestFindModuleBaseNotFound(t *testing.T) {
	locator, _ := newTestLocator(
		LoadedModule{Name: "libfoo.so.1", BaseAddress: 0x7f0000001000},
		LoadedModule{Name: "libbar.so", BaseAddress: 0x7f0000002000},
	)

	_, err := locator.FindModuleBase("libbaz")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestFindModuleFirstMatchWins(t *testing.T) {
	locator, iter := newTestLocator(
		LoadedModule{Name: "libfoo.so.2", BaseAddress: 0x7f0000003000},
		LoadedModule{Name: "libfoo.so.1", BaseAddress: 0x7f0000001000},
		LoadedModule{Name: "libbar.so", BaseAddress: 0x7f0000002000},
	)

	module, err := locator.FindModule("libfoo")
	require.NoError(t, err)
	assert.Equal(t, "libfoo.so.2", module.Name)
	assert.Equal(t, 1, iter.visited)
}

func TestFindModuleBaseBiasOnlyForRule(t *testing.T) {
	locator, _ := newTestLocator(
		LoadedModule{Name: "/opt/app/lib/libssutils.org.so", BaseAddress: 0x7f1234500000},
		LoadedModule{Name: "/opt/app/lib/libssutils.so", BaseAddress: 0x7f1234a00000},
	)

	base, err := locator.FindModuleBase("libssutils.org.so")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x7f1234400000), base)

	base, err = locator.FindModuleBase("libssutils.so")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x7f1234a00000), base)

	module, err := locator.FindModule("libssutils.org.so")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x7f1234500000), module.BaseAddress)
}

func TestFindModuleBaseBelowBias(t *testing.T) {
	locator, _ := newTestLocator(LoadedModule{Name: "libssutils.org.so", BaseAddress: 0x80000})

	_, err := locator.FindModuleBase("libssutils")
	assert.ErrorIs(t, err, ErrInvalidBase)
}

func TestFindModuleIteratorError(t *testing.T) {
	failure := errors.New("no maps")
	locator := &Locator{Iterator: &fakeModules{err: failure}}

	_, err := locator.FindModuleBase("libfoo")
	assert.ErrorIs(t, err, failure)
	assert.NotErrorIs(t, err, ErrModuleNotFound)
}

func TestModuleIteratorFunc(t *testing.T) {
	locator := &Locator{Iterator: ModuleIteratorFunc(func(yield func(LoadedModule) bool) error {
		yield(LoadedModule{Name: "libfoo.so", BaseAddress: 0x1000})
		return nil
	})}

	base, err := locator.FindModuleBase("foo")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x1000), base)
}
