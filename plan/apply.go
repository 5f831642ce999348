package plan

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/kstenerud/go-hotpatch"
)

type Status int

const (
	StatusApplied Status = iota
	StatusPlanned
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusPlanned:
		return "planned"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

type Outcome struct {
	Patch   Patch
	Address uintptr
	Status  Status
	Err     error
}

type Report struct {
	Executable string
	Outcomes   []Outcome
}

func (r *Report) Count(status Status) (n int) {
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return
}

// Err joins the errors of all failed patches.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			errs = append(errs, fmt.Errorf("%v: %w", o.Patch.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}

func (r *Report) String() string {
	var parts []string
	for _, s := range []Status{StatusApplied, StatusPlanned, StatusSkipped, StatusFailed} {
		if n := r.Count(s); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %v", n, s))
		}
	}
	if len(parts) == 0 {
		return "no patches"
	}
	return strings.Join(parts, ", ")
}

// ModuleLocator resolves a module name substring to its base address.
// *hotpatch.Locator implements it.
type ModuleLocator interface {
	FindModuleBase(nameSubstring string) (uintptr, error)
}

// Applier applies the patches of a plan selected for one executable.
type Applier struct {
	Locator ModuleLocator
	Patch   func(address uintptr, payload []byte) error
	// Read, if set, is used to log the code being replaced.
	Read func(address uintptr, length int) ([]byte, error)
	// DryRun computes and logs targets without writing anything.
	DryRun bool
}

// NewApplier returns an Applier that patches the current process.
func NewApplier(locator ModuleLocator) *Applier {
	return &Applier{
		Locator: locator,
		Patch:   hotpatch.PatchBytes,
		Read:    hotpatch.TryReadMemory,
	}
}

// Apply runs the patches of p that apply to executable, in plan order.
//
// Each module is resolved once. Patches on a module that is not loaded are
// skipped. A failed patch does not stop the ones after it.
func (a *Applier) Apply(p *Plan, executable string) *Report {
	report := &Report{Executable: executable}
	bases := make(map[string]resolution)

	for _, patch := range p.For(executable) {
		outcome := Outcome{Patch: patch}

		var base uintptr
		if patch.Module != "" {
			r, ok := bases[patch.Module]
			if !ok {
				r.base, r.err = a.Locator.FindModuleBase(patch.Module)
				bases[patch.Module] = r
			}
			if r.err != nil {
				outcome.Err = r.err
				if errors.Is(r.err, hotpatch.ErrModuleNotFound) {
					outcome.Status = StatusSkipped
					klog.V(1).Infof("hotpatch: skipping %v: %v", patch.Name, r.err)
				} else {
					outcome.Status = StatusFailed
					klog.Errorf("hotpatch: %v: %v", patch.Name, r.err)
				}
				report.Outcomes = append(report.Outcomes, outcome)
				continue
			}
			base = r.base
		}

		outcome.Address = patch.Target(base)
		outcome.Status, outcome.Err = a.apply(patch, outcome.Address)
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report
}

type resolution struct {
	base uintptr
	err  error
}

func (a *Applier) apply(patch Patch, address uintptr) (Status, error) {
	payload := patch.Payload()
	if klog.V(2).Enabled() || a.DryRun {
		a.logReplacement(patch, address, payload)
	}
	if a.DryRun {
		return StatusPlanned, nil
	}
	if err := a.Patch(address, payload); err != nil {
		klog.Errorf("hotpatch: %v at %#x: %v", patch.Name, address, err)
		return StatusFailed, err
	}
	klog.V(1).Infof("hotpatch: applied %v at %#x", patch.Name, address)
	return StatusApplied, nil
}

func (a *Applier) logReplacement(patch Patch, address uintptr, payload []byte) {
	if a.Read == nil {
		klog.Infof("hotpatch: %v: %#x <- %v", patch.Name, address, HexBytes(payload))
		return
	}
	current, err := a.Read(address, len(payload))
	if err != nil {
		klog.Infof("hotpatch: %v: %#x unreadable: %v", patch.Name, address, err)
		return
	}
	klog.Infof("hotpatch: %v: %#x: %v [%v] <- %v [%v]", patch.Name, address,
		HexBytes(current), Describe(current, address),
		HexBytes(payload), Describe(payload, address))
}
