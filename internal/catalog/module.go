package catalog

import (
	"fmt"

	"github.com/kingrea/contract-composer/internal/slot"
)

// Category groups modules by the concern they address.
type Category string

const (
	CategoryAccessControl  Category = "access-control"
	CategoryAdmin          Category = "admin"
	CategorySecurity       Category = "security"
	CategoryEvents         Category = "events"
	CategoryUpgradeability Category = "upgradeability"
	CategoryTypeSelection  Category = "type-selection"
	CategoryOperationSet   Category = "operation-set"
	CategoryIntegration    Category = "integration"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAccessControl,
	CategoryAdmin,
	CategorySecurity,
	CategoryEvents,
	CategoryUpgradeability,
	CategoryTypeSelection,
	CategoryOperationSet,
	CategoryIntegration,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Access describes how permissive a module's access semantics are.
type Access string

const (
	AccessNeutral     Access = ""
	AccessPermissive  Access = "permissive"
	AccessRestrictive Access = "restrictive"
)

// GasCost is a coarse gas cost class.
type GasCost string

const (
	GasUnknown GasCost = ""
	GasLow     GasCost = "low"
	GasMedium  GasCost = "medium"
	GasHigh    GasCost = "high"
)

// Semantics carries optional tags used for soft conflict detection.
type Semantics struct {
	Access     Access
	Mutability string
	GasCost    GasCost
}

// Injection is one module's contribution to a slot.
type Injection struct {
	Slot    string
	Content string
	// Mode overrides the slot's mode when set.
	Mode slot.Mode
	// Order sorts contributions; lower values are applied earlier.
	Order     int
	Condition string
	Module    string
}

// Estimates are optional size/gas hints declared by a module.
type Estimates struct {
	SizeBytes int
	Gas       int
}

// Module is an optional, composable feature unit. Catalog entries are
// read-only; the engine never mutates them.
type Module struct {
	Name        string
	Version     string
	Description string
	Category    Category
	Tags        []string

	CompatibleWith   []string
	IncompatibleWith []string
	Requires         []string
	Enhances         []string

	RequiresSlots       []string
	RequiresTypes       []string
	RequiresBaseVersion string

	Provides  []Symbol
	Exclusive bool
	Semantics Semantics

	Injections  []Injection
	Imports     []string
	Inheritance []string
	// Files and Tests map output path to content.
	Files map[string]string
	Tests map[string]string

	Estimates  Estimates
	Deprecated string
}

// Validate checks the structural invariants the engine relies on.
func (m Module) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("catalog: module name is required")
	}
	if !m.Category.Valid() {
		return fmt.Errorf("catalog: module %s has unknown category %q", m.Name, m.Category)
	}
	for idx, inj := range m.Injections {
		if !slot.ValidName(inj.Slot) {
			return fmt.Errorf("catalog: module %s injection[%d] has invalid slot name %q", m.Name, idx, inj.Slot)
		}
		if inj.Mode != "" && !inj.Mode.Valid() {
			return fmt.Errorf("catalog: module %s injection[%d] has unknown mode %q", m.Name, idx, inj.Mode)
		}
	}
	return nil
}

// InjectionsFor returns the module's injections with the contributing module
// name filled in.
func (m Module) InjectionsFor() []Injection {
	if len(m.Injections) == 0 {
		return nil
	}
	out := make([]Injection, len(m.Injections))
	for i, inj := range m.Injections {
		inj.Module = m.Name
		out[i] = inj
	}
	return out
}

// DeclaresIncompatibility reports whether m lists other as incompatible.
func (m Module) DeclaresIncompatibility(other string) bool {
	return containsString(m.IncompatibleWith, other)
}

// CompatibleWithBase reports whether the base is allowed. An empty list
// accepts every base.
func (m Module) CompatibleWithBase(base string) bool {
	if len(m.CompatibleWith) == 0 {
		return true
	}
	return containsString(m.CompatibleWith, base)
}

// Unique drops later modules that reuse an earlier module's name, preserving
// the first-seen order.
func Unique(mods []Module) []Module {
	if len(mods) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(mods))
	out := make([]Module, 0, len(mods))
	for _, mod := range mods {
		if _, ok := seen[mod.Name]; ok {
			continue
		}
		seen[mod.Name] = struct{}{}
		out = append(out, mod)
	}
	return out
}

// Names returns the module names in slice order.
func Names(mods []Module) []string {
	names := make([]string, len(mods))
	for i, mod := range mods {
		names[i] = mod.Name
	}
	return names
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
