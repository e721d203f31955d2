package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/validation"
)

// previewLines caps how much of each injection is shown.
const previewLines = 3

// Preview describes what Merge would change without rendering any files.
// It still renders when validation fails so the conflicts can be inspected
// next to the contributions.
func Preview(base catalog.Base, mods []catalog.Module, opts Options) string {
	report := validation.Validate(base, mods, opts.validation())
	order, cycleErr := orderFor(mods)
	p := newPlan(base, order, opts)

	var b strings.Builder
	fmt.Fprintf(&b, "Preview: %s (%s)\n", p.contract, baseLabel(base))
	if report.Valid {
		b.WriteString("Status: valid")
	} else {
		fmt.Fprintf(&b, "Status: invalid, %d %s", len(report.Errors), pluralize(len(report.Errors), "error", "errors"))
	}
	if n := len(report.Warnings); n > 0 {
		fmt.Fprintf(&b, ", %d %s", n, pluralize(n, "warning", "warnings"))
	}
	b.WriteString("\n")
	if len(order) > 0 {
		fmt.Fprintf(&b, "Modules: %s\n", strings.Join(catalog.Names(order), " -> "))
	}
	if cycleErr != nil {
		fmt.Fprintf(&b, "Order: %v\n", cycleErr)
	}

	writeSection(&b, "Imports added", p.imports)
	writeSection(&b, "Inheritance added", p.inheritance)

	for _, name := range p.slotNames() {
		injections := p.bySlot[name]
		mode := p.slotMode(p.occurrence(name), injections)
		fmt.Fprintf(&b, "\n@@ %s (%s) @@\n", name, mode)
		for _, inj := range injections {
			writeContribution(&b, inj)
		}
	}

	functions, variables := newSymbols(order)
	writeSection(&b, "New functions", functions)
	writeSection(&b, "New state variables", variables)

	var files []string
	for _, mod := range order {
		for _, path := range sortedKeys(mod.Files) {
			files = append(files, OutputPath(path))
		}
		for _, path := range sortedKeys(mod.Tests) {
			files = append(files, OutputPath(path))
		}
	}
	writeSection(&b, "Files added", files)
	return b.String()
}

// slotNames lists slots with contributions in the order they first receive
// one.
func (p *plan) slotNames() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, inj := range p.injections {
		if _, ok := seen[inj.Slot]; ok {
			continue
		}
		seen[inj.Slot] = struct{}{}
		names = append(names, inj.Slot)
	}
	return names
}

func writeContribution(b *strings.Builder, inj catalog.Injection) {
	lines := strings.Split(strings.TrimRight(inj.Content, "\n"), "\n")
	shown := lines
	if len(shown) > previewLines {
		shown = shown[:previewLines]
	}
	for i, line := range shown {
		if i == 0 {
			fmt.Fprintf(b, "+ %s\t// %s\n", line, inj.Module)
			continue
		}
		fmt.Fprintf(b, "+ %s\n", line)
	}
	if hidden := len(lines) - len(shown); hidden > 0 {
		fmt.Fprintf(b, "  ... %d more %s\n", hidden, pluralize(hidden, "line", "lines"))
	}
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "+ %s\n", item)
	}
}

func newSymbols(order []catalog.Module) (functions, variables []string) {
	for _, mod := range order {
		functions = append(functions, catalog.NamesOf(mod.Provides, catalog.KindFunction)...)
		variables = append(variables, catalog.NamesOf(mod.Provides, catalog.KindVariable)...)
	}
	sort.Strings(functions)
	sort.Strings(variables)
	return functions, variables
}

func baseLabel(base catalog.Base) string {
	if base.Version == "" {
		return base.Name
	}
	return base.Name + " " + base.Version
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
