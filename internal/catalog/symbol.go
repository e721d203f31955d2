package catalog

import "fmt"

// SymbolKind classifies a name a base exposes or a module provides.
type SymbolKind string

const (
	KindVariable SymbolKind = "variable"
	KindFunction SymbolKind = "function"
	KindModifier SymbolKind = "modifier"
	KindEvent    SymbolKind = "event"
	KindError    SymbolKind = "error"
)

// SymbolKinds lists every kind in reporting order.
var SymbolKinds = []SymbolKind{KindVariable, KindFunction, KindModifier, KindEvent, KindError}

// Label returns a human-readable name for the kind.
func (k SymbolKind) Label() string {
	switch k {
	case KindVariable:
		return "state variable"
	case KindFunction:
		return "function"
	case KindModifier:
		return "modifier"
	case KindEvent:
		return "event"
	case KindError:
		return "custom error"
	default:
		return string(k)
	}
}

// Symbol is a typed declaration record.
type Symbol struct {
	Kind SymbolKind
	Name string
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s %s", s.Kind.Label(), s.Name)
}

// Manifest groups declarations by kind. It is the on-disk shape of both the
// base "exposes" block and a module's "provides" block.
type Manifest struct {
	StateVariables []string `json:"state_variables,omitempty" yaml:"state_variables,omitempty"`
	Functions      []string `json:"functions,omitempty" yaml:"functions,omitempty"`
	Modifiers      []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Events         []string `json:"events,omitempty" yaml:"events,omitempty"`
	Errors         []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Symbols flattens the manifest into typed records, kind by kind.
func (m Manifest) Symbols() []Symbol {
	var out []Symbol
	add := func(kind SymbolKind, names []string) {
		for _, name := range names {
			if name == "" {
				continue
			}
			out = append(out, Symbol{Kind: kind, Name: name})
		}
	}
	add(KindVariable, m.StateVariables)
	add(KindFunction, m.Functions)
	add(KindModifier, m.Modifiers)
	add(KindEvent, m.Events)
	add(KindError, m.Errors)
	return out
}

// NamesOf returns the names of the given kind in declaration order.
func NamesOf(symbols []Symbol, kind SymbolKind) []string {
	var names []string
	for _, sym := range symbols {
		if sym.Kind == kind {
			names = append(names, sym.Name)
		}
	}
	return names
}
