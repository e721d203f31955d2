package merge

import (
	"sort"
	"strings"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/resolver"
	"github.com/kingrea/contract-composer/internal/slot"
)

// plan holds everything collected from the modules before any file is
// rendered. Merge and Preview build the same plan.
type plan struct {
	base        catalog.Base
	order       []catalog.Module
	injections  []catalog.Injection
	bySlot      map[string][]catalog.Injection
	imports     []string
	inheritance []string
	typeParams  map[string]string
	project     string
	contract    string
}

func newPlan(base catalog.Base, order []catalog.Module, opts Options) *plan {
	p := &plan{
		base:       base,
		order:      order,
		bySlot:     map[string][]catalog.Injection{},
		typeParams: base.EffectiveTypeParams(opts.TypeParams),
		project:    opts.ProjectName,
	}
	if p.project == "" {
		p.project = base.Name
	}
	p.contract = ContractName(p.project)

	for _, mod := range order {
		p.injections = append(p.injections, mod.InjectionsFor()...)
	}
	sort.SliceStable(p.injections, func(i, j int) bool {
		return p.injections[i].Order < p.injections[j].Order
	})
	for _, inj := range p.injections {
		p.bySlot[inj.Slot] = append(p.bySlot[inj.Slot], inj)
	}

	importSeen := seedSet(base.Imports)
	parentSeen := seedSet(base.Inheritance)
	for _, mod := range order {
		p.imports = appendUnique(p.imports, importSeen, mod.Imports)
		p.inheritance = appendUnique(p.inheritance, parentSeen, mod.Inheritance)
	}
	return p
}

// orderFor resolves the application order, falling back to selection order
// when the selection has a cycle. Merge never reaches the fallback because
// validation rejects cycles first.
func orderFor(mods []catalog.Module) ([]catalog.Module, error) {
	unique := catalog.Unique(mods)
	ordered, err := resolver.Resolve(unique)
	if err != nil {
		return unique, err
	}
	return ordered, nil
}

// importBlock is the value substituted for {{IMPORTS}}.
func (p *plan) importBlock() string {
	return strings.Join(p.imports, "\n")
}

// inheritanceList is the value substituted for {{INHERITANCE}}. When the base
// declares default parents its body already names them, so module entries
// continue that list.
func (p *plan) inheritanceList() string {
	if len(p.inheritance) == 0 {
		return ""
	}
	joined := strings.Join(p.inheritance, ", ")
	if len(p.base.Inheritance) > 0 {
		return ", " + joined
	}
	return joined
}

// slotMode picks the combination mode for a slot: an injection's explicit
// mode first, then the marker suffix, then the declared slot mode.
func (p *plan) slotMode(occ slot.Occurrence, injections []catalog.Injection) slot.Mode {
	for _, inj := range injections {
		if inj.Mode.Valid() {
			return inj.Mode
		}
	}
	if occ.Explicit {
		return occ.Mode
	}
	if def, ok := p.base.Slot(occ.Name); ok && def.Mode.Valid() {
		return def.Mode
	}
	return slot.ModeAppend
}

// occurrence returns the first marker for name across the base files in path
// order. A slot that is only declared yields a bare occurrence.
func (p *plan) occurrence(name string) slot.Occurrence {
	for _, path := range p.base.FilePaths() {
		if occ, ok := slot.Parse(p.base.Files[path]).Find(name); ok {
			return occ
		}
	}
	return slot.Occurrence{Name: name, Mode: slot.ModeAppend}
}

// Combine merges ordered contributions according to mode.
func Combine(mode slot.Mode, contents []string) string {
	if len(contents) == 0 {
		return ""
	}
	switch mode {
	case slot.ModePrepend:
		reversed := make([]string, len(contents))
		for i, content := range contents {
			reversed[len(contents)-1-i] = content
		}
		return strings.Join(reversed, "\n")
	case slot.ModeReplace:
		return contents[len(contents)-1]
	case slot.ModeOnce:
		return contents[0]
	default:
		return strings.Join(contents, "\n")
	}
}

func contentsOf(injections []catalog.Injection) []string {
	out := make([]string, len(injections))
	for i, inj := range injections {
		out[i] = inj.Content
	}
	return out
}

func seedSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

func appendUnique(dst []string, seen map[string]struct{}, values []string) []string {
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		dst = append(dst, value)
	}
	return dst
}
