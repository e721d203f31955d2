package slot

import (
	"regexp"
	"strings"
)

// Mode controls how multiple contributions to the same slot are combined.
type Mode string

const (
	ModeAppend  Mode = "append"
	ModePrepend Mode = "prepend"
	ModeReplace Mode = "replace"
	ModeOnce    Mode = "once"
)

// Reserved slot and name markers.
const (
	ImportsSlot     = "IMPORTS"
	InheritanceSlot = "INHERITANCE"
	ProjectName     = "PROJECT_NAME"
	ContractName    = "CONTRACT_NAME"
)

var (
	slotPattern  = regexp.MustCompile(`\{\{([A-Z][A-Z0-9_]*)(?::([^{}\n]*))?\}\}`)
	typePattern  = regexp.MustCompile(`\[\[([A-Z][A-Z0-9_]*)\]\]`)
	namePattern  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	knownModeSet = map[Mode]struct{}{
		ModeAppend:  {},
		ModePrepend: {},
		ModeReplace: {},
		ModeOnce:    {},
	}
)

// ParseMode maps a marker suffix to a Mode. Unknown or empty values fall back
// to append.
func ParseMode(value string) Mode {
	mode := Mode(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := knownModeSet[mode]; ok {
		return mode
	}
	return ModeAppend
}

// suffixMode resolves a marker suffix. Anything that is not a known mode is
// kept as a marker and treated as append.
func suffixMode(suffix string) (Mode, bool) {
	mode := Mode(strings.ToLower(strings.TrimSpace(suffix)))
	if mode.Valid() {
		return mode, true
	}
	return ModeAppend, false
}

// Valid reports whether m is one of the four supported modes.
func (m Mode) Valid() bool {
	_, ok := knownModeSet[m]
	return ok
}

// ValidName reports whether name has the identifier shape used by markers.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// IsReserved reports whether the name receives special handling during merge
// regardless of declared mode.
func IsReserved(name string) bool {
	switch name {
	case ImportsSlot, InheritanceSlot, ProjectName, ContractName:
		return true
	default:
		return false
	}
}

// Marker renders the canonical marker text for a slot name.
func Marker(name string) string {
	return "{{" + name + "}}"
}

// TypeMarker renders the marker text for a type parameter.
func TypeMarker(name string) string {
	return "[[" + name + "]]"
}

// Occurrence is a single slot marker found in template text.
type Occurrence struct {
	Name string
	Mode Mode
	// Explicit is true when the marker carried a recognised mode suffix.
	Explicit bool
	Offset   int
	Length   int
	// Line is 1-based.
	Line int
	Raw  string
}

// Result is the outcome of parsing one template body.
type Result struct {
	Slots      []Occurrence
	TypeParams []string
}

// Parse scans text for slot and type-parameter markers.
func Parse(text string) Result {
	var result Result
	matches := slotPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) > 0 {
		result.Slots = make([]Occurrence, 0, len(matches))
	}
	line := 1
	cursor := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		line += strings.Count(text[cursor:start], "\n")
		cursor = start
		occ := Occurrence{
			Name:   text[m[2]:m[3]],
			Mode:   ModeAppend,
			Offset: start,
			Length: end - start,
			Line:   line,
			Raw:    text[start:end],
		}
		if m[4] >= 0 {
			occ.Mode, occ.Explicit = suffixMode(text[m[4]:m[5]])
		}
		result.Slots = append(result.Slots, occ)
	}
	seen := map[string]struct{}{}
	for _, m := range typePattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result.TypeParams = append(result.TypeParams, name)
	}
	return result
}

// Names returns the distinct slot names in first-seen order.
func (r Result) Names() []string {
	if len(r.Slots) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(r.Slots))
	names := make([]string, 0, len(r.Slots))
	for _, occ := range r.Slots {
		if _, ok := seen[occ.Name]; ok {
			continue
		}
		seen[occ.Name] = struct{}{}
		names = append(names, occ.Name)
	}
	return names
}

// Has reports whether at least one marker with the given name was found.
func (r Result) Has(name string) bool {
	_, ok := r.Find(name)
	return ok
}

// Find returns the first occurrence of the named slot.
func (r Result) Find(name string) (Occurrence, bool) {
	for _, occ := range r.Slots {
		if occ.Name == name {
			return occ, true
		}
	}
	return Occurrence{}, false
}

// Missing returns the required names that have no marker, in input order.
func (r Result) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if !r.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Satisfies reports whether every required name has a marker.
func (r Result) Satisfies(required []string) bool {
	return len(r.Missing(required)) == 0
}

// HasTypeParam reports whether a [[NAME]] marker was found.
func (r Result) HasTypeParam(name string) bool {
	for _, param := range r.TypeParams {
		if param == name {
			return true
		}
	}
	return false
}

// ReplaceSlots rewrites every slot marker in text using fn. fn receives the
// parsed occurrence (line and offset are not populated) and returns the
// replacement text.
func ReplaceSlots(text string, fn func(Occurrence) string) string {
	return slotPattern.ReplaceAllStringFunc(text, func(raw string) string {
		m := slotPattern.FindStringSubmatch(raw)
		occ := Occurrence{Name: m[1], Mode: ModeAppend, Length: len(raw), Raw: raw}
		occ.Mode, occ.Explicit = suffixMode(m[2])
		return fn(occ)
	})
}

// ReplaceTypeParams substitutes [[NAME]] markers that have a value in values.
// Markers without a value are left untouched.
func ReplaceTypeParams(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}
	return typePattern.ReplaceAllStringFunc(text, func(raw string) string {
		name := raw[2 : len(raw)-2]
		if value, ok := values[name]; ok {
			return value
		}
		return raw
	})
}
