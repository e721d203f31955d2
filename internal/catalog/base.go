package catalog

import (
	"sort"

	"github.com/kingrea/contract-composer/internal/slot"
)

// SlotDefinition declares an extension point a base template offers.
type SlotDefinition struct {
	Name        string
	Description string
	Mode        slot.Mode
	Required    bool
}

// TypeParam describes a substitutable type marker. An empty Allowed list
// accepts any value.
type TypeParam struct {
	Allowed     []string
	Default     string
	Description string
}

// Allows reports whether value is acceptable for the parameter.
func (p TypeParam) Allows(value string) bool {
	if len(p.Allowed) == 0 {
		return true
	}
	for _, allowed := range p.Allowed {
		if allowed == value {
			return true
		}
	}
	return false
}

// Base is the always-present file set for one artifact family. Values are
// treated as immutable once loaded.
type Base struct {
	Name        string
	Version     string
	Description string
	// Files maps output path to template body.
	Files       map[string]string
	Slots       []SlotDefinition
	TypeParams  map[string]TypeParam
	Exposes     []Symbol
	Inheritance []string
	Imports     []string
}

// SourceLabel identifies the base as a declaring source in collision reports.
func (b Base) SourceLabel() string {
	return "base:" + b.Name
}

// FilePaths returns the file paths in sorted order.
func (b Base) FilePaths() []string {
	paths := make([]string, 0, len(b.Files))
	for path := range b.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Slot looks up a declared slot definition.
func (b Base) Slot(name string) (SlotDefinition, bool) {
	for _, def := range b.Slots {
		if def.Name == name {
			return def, true
		}
	}
	return SlotDefinition{}, false
}

// ParseSlots runs the slot parser over every file, keyed by path.
func (b Base) ParseSlots() map[string]slot.Result {
	out := make(map[string]slot.Result, len(b.Files))
	for path, body := range b.Files {
		out[path] = slot.Parse(body)
	}
	return out
}

// HasSlot reports whether name is discoverable either as a marker in any file
// or as a declared slot definition.
func (b Base) HasSlot(name string) bool {
	if _, ok := b.Slot(name); ok {
		return true
	}
	for _, result := range b.ParseSlots() {
		if result.Has(name) {
			return true
		}
	}
	return false
}

// EffectiveTypeParams overlays overrides on the declared defaults. Overrides
// for unknown parameters are ignored here; validation reports them.
func (b Base) EffectiveTypeParams(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(b.TypeParams))
	for name, param := range b.TypeParams {
		if param.Default != "" {
			out[name] = param.Default
		}
	}
	for name, value := range overrides {
		if _, ok := b.TypeParams[name]; ok {
			out[name] = value
		}
	}
	return out
}

// UsesTypeParam reports whether any file carries a [[name]] marker.
func (b Base) UsesTypeParam(name string) bool {
	for _, result := range b.ParseSlots() {
		if result.HasTypeParam(name) {
			return true
		}
	}
	return false
}

// TypeParamNames returns declared parameter names sorted.
func (b Base) TypeParamNames() []string {
	names := make([]string, 0, len(b.TypeParams))
	for name := range b.TypeParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
