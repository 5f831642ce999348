package hotpatch

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// PageWindow is the page-aligned range [Start, Start+Size) whose protection
// is changed to patch a target range.
type PageWindow struct {
	Start uintptr
	Size  uintptr
}

// NewPageWindow returns the minimal set of whole pages covering
// [address, address+length). pageSize must be a power of two.
func NewPageWindow(address, length, pageSize uintptr) PageWindow {
	start := AlignDown(address, pageSize)
	return PageWindow{
		Start: start,
		Size:  AlignUp(address-start+length, pageSize),
	}
}

// End returns the first address past the window.
func (w PageWindow) End() uintptr {
	return w.Start + w.Size
}

// Pages returns the number of pages in the window.
func (w PageWindow) Pages(pageSize uintptr) int {
	return int(w.Size / pageSize)
}

func (w PageWindow) String() string {
	return fmt.Sprintf("[%#x-%#x)", w.Start, w.End())
}

// AlignDown rounds a down to a multiple of b, which must be a power of two.
func AlignDown[I constraints.Unsigned](a, b I) I {
	return a &^ (b - 1)
}

// AlignUp rounds a up to a multiple of b, which must be a power of two.
func AlignUp[I constraints.Unsigned](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}
