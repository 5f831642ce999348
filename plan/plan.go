// Package plan decides which patches apply to a process.
//
// A Plan is a declarative list of patches, usually loaded from YAML. Each
// patch targets either an offset into a named module (resolved at run time
// with a hotpatch.Locator) or an absolute address in the main image, and can
// be limited to processes whose executable has a given name:
//
//	patches:
//	  - name: default-limit
//	    module: libfoo.so
//	    offset: 0x34d9cf
//	    uint32: 0x73
//	  - name: worker-skip-call
//	    executables: [workerd]
//	    address: 0x404f42
//	    bytes: 90 90 90 90 90
package plan

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kstenerud/go-hotpatch"
)

var ErrInvalidPlan = errors.New("invalid plan")

type Plan struct {
	Patches []Patch `yaml:"patches"`
}

type Patch struct {
	Name string `yaml:"name"`
	// Executable names (base names, exact match) the patch applies to.
	// Empty means every executable.
	Executables []string `yaml:"executables,omitempty"`

	Module  string  `yaml:"module,omitempty"`
	Offset  uint64  `yaml:"offset,omitempty"`
	Address *uint64 `yaml:"address,omitempty"`

	Bytes  HexBytes `yaml:"bytes,omitempty"`
	Uint32 *uint32  `yaml:"uint32,omitempty"`
}

// HexBytes is a byte string written as hex digits. Whitespace between digits
// is ignored, so "90 90 90" and "909090" are the same.
type HexBytes []byte

func (h *HexBytes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a hex string", value.Line)
	}
	decoded, err := hex.DecodeString(strings.Join(strings.Fields(value.Value), ""))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*h = decoded
	return nil
}

func (h HexBytes) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

func (h HexBytes) String() string {
	parts := make([]string, len(h))
	for i, b := range h {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a YAML plan.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) Validate() error {
	var errs []error
	names := make(map[string]bool, len(p.Patches))
	for i, patch := range p.Patches {
		if err := patch.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("patch %d: %w", i, err))
		}
		if names[patch.Name] {
			errs = append(errs, fmt.Errorf("patch %d: duplicate name %q", i, patch.Name))
		}
		names[patch.Name] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, errors.Join(errs...))
	}
	return nil
}

// For returns the patches that apply to the named executable, in plan order.
func (p *Plan) For(executable string) []Patch {
	var selected []Patch
	for _, patch := range p.Patches {
		if patch.AppliesTo(executable) {
			selected = append(selected, patch)
		}
	}
	return selected
}

// Modules returns the distinct modules the plan refers to, in plan order.
func (p *Plan) Modules() []string {
	var modules []string
	for _, patch := range p.Patches {
		if patch.Module != "" && !slices.Contains(modules, patch.Module) {
			modules = append(modules, patch.Module)
		}
	}
	return modules
}

func (p Patch) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("missing name")
	case p.Module != "" && p.Address != nil:
		return fmt.Errorf("%v: module and address are mutually exclusive", p.Name)
	case p.Module == "" && p.Address == nil:
		return fmt.Errorf("%v: needs a module or an address", p.Name)
	case p.Module == "" && p.Offset != 0:
		return fmt.Errorf("%v: offset without module", p.Name)
	case len(p.Bytes) > 0 && p.Uint32 != nil:
		return fmt.Errorf("%v: bytes and uint32 are mutually exclusive", p.Name)
	case len(p.Bytes) == 0 && p.Uint32 == nil:
		return fmt.Errorf("%v: needs bytes or a uint32", p.Name)
	}
	return nil
}

func (p Patch) AppliesTo(executable string) bool {
	return len(p.Executables) == 0 || slices.Contains(p.Executables, executable)
}

// Payload returns the bytes the patch writes.
func (p Patch) Payload() []byte {
	if p.Uint32 != nil {
		return hotpatch.EncodeUint32LE(*p.Uint32)
	}
	return p.Bytes
}

// Target computes the patch address. moduleBase is the resolved base of
// p.Module and is ignored for absolute patches.
func (p Patch) Target(moduleBase uintptr) uintptr {
	if p.Address != nil {
		return uintptr(*p.Address)
	}
	return moduleBase + uintptr(p.Offset)
}
