package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/mod/semver"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/resolver"
	"github.com/kingrea/contract-composer/internal/slot"
)

func checkBaseCompatibility(r *run) {
	for _, mod := range r.modules {
		if !mod.CompatibleWithBase(r.base.Name) {
			r.fail(Error{
				Category: CategoryCompatibility,
				Module:   mod.Name,
				Message:  fmt.Sprintf("module %s is not compatible with base %s (supports: %s)", mod.Name, r.base.Name, strings.Join(mod.CompatibleWith, ", ")),
				Sources:  []string{mod.Name, r.base.SourceLabel()},
			})
		}
		if mod.RequiresBaseVersion == "" {
			continue
		}
		want := canonicalVersion(mod.RequiresBaseVersion)
		have := canonicalVersion(r.base.Version)
		switch {
		case !semver.IsValid(want):
			r.fail(Error{
				Category: CategoryCompatibility,
				Module:   mod.Name,
				Message:  fmt.Sprintf("module %s declares an invalid base version requirement %q", mod.Name, mod.RequiresBaseVersion),
				Sources:  []string{mod.Name},
			})
		case !semver.IsValid(have):
			r.fail(Error{
				Category: CategoryCompatibility,
				Module:   mod.Name,
				Message:  fmt.Sprintf("module %s requires base version >= %s but base %s has no valid version (%q)", mod.Name, mod.RequiresBaseVersion, r.base.Name, r.base.Version),
				Sources:  []string{mod.Name, r.base.SourceLabel()},
			})
		case semver.Compare(have, want) < 0:
			r.fail(Error{
				Category: CategoryCompatibility,
				Module:   mod.Name,
				Message:  fmt.Sprintf("module %s requires base version >= %s, base %s is %s", mod.Name, mod.RequiresBaseVersion, r.base.Name, r.base.Version),
				Sources:  []string{mod.Name, r.base.SourceLabel()},
			})
		}
	}
}

func checkModuleCompatibility(r *run) {
	for i := 0; i < len(r.modules); i++ {
		for j := i + 1; j < len(r.modules); j++ {
			a, b := r.modules[i], r.modules[j]
			if a.DeclaresIncompatibility(b.Name) || b.DeclaresIncompatibility(a.Name) {
				r.fail(Error{
					Category: CategoryCompatibility,
					Module:   a.Name,
					Message:  fmt.Sprintf("modules %s and %s are incompatible", a.Name, b.Name),
					Sources:  []string{a.Name, b.Name},
				})
			}
		}
	}
}

func checkDependencies(r *run) {
	selected := make(map[string]struct{}, len(r.modules))
	for _, mod := range r.modules {
		selected[mod.Name] = struct{}{}
	}
	for _, mod := range r.modules {
		for _, dep := range mod.Requires {
			if _, ok := selected[dep]; ok {
				continue
			}
			r.fail(Error{
				Category: CategoryDependency,
				Module:   mod.Name,
				Message:  fmt.Sprintf("module %s requires %s, which is not selected", mod.Name, dep),
				Sources:  []string{mod.Name, dep},
			})
		}
	}
	if cycle, ok := resolver.New(r.modules).DetectCycle(); ok {
		r.fail(Error{
			Category: CategoryDependency,
			Module:   cycle[0],
			Message:  fmt.Sprintf("circular dependency: %s", cycle),
			Sources:  cycle.Members(),
		})
	}
}

func checkSlots(r *run) {
	filled := map[string]struct{}{}
	for _, mod := range r.modules {
		reported := map[string]struct{}{}
		check := func(name, how string) {
			if r.base.HasSlot(name) {
				return
			}
			if _, done := reported[name]; done {
				return
			}
			reported[name] = struct{}{}
			r.fail(Error{
				Category: CategorySlot,
				Module:   mod.Name,
				Message:  fmt.Sprintf("module %s %s slot %s, which base %s does not define", mod.Name, how, name, r.base.Name),
				Sources:  []string{mod.Name},
			})
		}
		for _, name := range mod.RequiresSlots {
			check(name, "requires")
		}
		for _, inj := range mod.Injections {
			check(inj.Slot, "injects into")
			filled[inj.Slot] = struct{}{}
			for _, occ := range slot.Parse(inj.Content).Slots {
				if occ.Name == slot.ProjectName || occ.Name == slot.ContractName {
					continue
				}
				r.fail(Error{
					Category: CategorySlot,
					Module:   mod.Name,
					Message:  fmt.Sprintf("module %s injects %s into slot %s; injected content may only use name markers", mod.Name, occ.Raw, inj.Slot),
					Sources:  []string{mod.Name},
				})
			}
		}
	}
	for _, def := range r.base.Slots {
		if !def.Required || slot.IsReserved(def.Name) {
			continue
		}
		if _, ok := filled[def.Name]; ok {
			continue
		}
		r.warn(Warning{
			Category: WarningSlot,
			Message:  fmt.Sprintf("required slot %s receives no content from the selected modules", def.Name),
		})
	}
}

func checkTypes(r *run) {
	keys := make([]string, 0, len(r.opts.TypeParams))
	for key := range r.opts.TypeParams {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := r.opts.TypeParams[key]
		param, ok := r.base.TypeParams[key]
		if !ok {
			r.fail(Error{
				Category: CategoryType,
				Message:  fmt.Sprintf("unknown type parameter %s for base %s", key, r.base.Name),
			})
			continue
		}
		if !param.Allows(value) {
			r.fail(Error{
				Category: CategoryType,
				Message:  fmt.Sprintf("type parameter %s=%s is not allowed (allowed: %s)", key, value, strings.Join(param.Allowed, ", ")),
			})
		}
	}

	effective := r.base.EffectiveTypeParams(r.opts.TypeParams)
	values := map[string]struct{}{}
	for _, value := range effective {
		values[value] = struct{}{}
	}
	for _, mod := range r.modules {
		if len(mod.RequiresTypes) == 0 {
			continue
		}
		matched := false
		for _, want := range mod.RequiresTypes {
			if _, ok := values[want]; ok {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		r.fail(Error{
			Category: CategoryType,
			Module:   mod.Name,
			Message:  fmt.Sprintf("module %s requires one of [%s], effective type parameters are [%s]", mod.Name, strings.Join(mod.RequiresTypes, ", "), strings.Join(sortedValues(effective), ", ")),
			Sources:  []string{mod.Name},
		})
	}
}

func checkCollisions(r *run) {
	owners := map[catalog.Symbol]string{}
	claim := func(sym catalog.Symbol, source, module string) {
		original, taken := owners[sym]
		if !taken {
			owners[sym] = source
			return
		}
		if original == source {
			return
		}
		r.fail(Error{
			Category: CategoryCollision,
			Module:   module,
			Message:  fmt.Sprintf("%s %s declared by %s is already declared by %s", sym.Kind.Label(), sym.Name, source, original),
			Sources:  []string{original, source},
		})
	}
	baseLabel := r.base.SourceLabel()
	for _, sym := range r.base.Exposes {
		claim(sym, baseLabel, "")
	}
	for _, mod := range r.modules {
		for _, sym := range mod.Provides {
			claim(sym, mod.Name, mod.Name)
		}
	}
}

func checkExclusivity(r *run) {
	groups := map[catalog.Category][]string{}
	var order []catalog.Category
	for _, mod := range r.modules {
		if !mod.Exclusive {
			continue
		}
		if _, ok := groups[mod.Category]; !ok {
			order = append(order, mod.Category)
		}
		groups[mod.Category] = append(groups[mod.Category], mod.Name)
	}
	for _, category := range order {
		members := groups[category]
		if len(members) < 2 {
			continue
		}
		r.fail(Error{
			Category: CategoryExclusivity,
			Message:  fmt.Sprintf("only one exclusive %s module may be selected, got %s", category, strings.Join(members, ", ")),
			Sources:  members,
		})
	}
}

func estimateSize(r *run) {
	size := EstimateSize(r.base, r.modules)
	switch {
	case size > r.opts.Limits.Hard:
		r.warn(Warning{
			Category: WarningSize,
			Message:  fmt.Sprintf("estimated size %s bytes exceeds the maximum contract size of %s bytes; deployment will fail unless functionality is removed", humanize.Comma(int64(size)), humanize.Comma(int64(r.opts.Limits.Hard))),
		})
	case size > r.opts.Limits.Soft:
		r.warn(Warning{
			Category: WarningSize,
			Message:  fmt.Sprintf("estimated size %s bytes exceeds the recommended %s bytes", humanize.Comma(int64(size)), humanize.Comma(int64(r.opts.Limits.Soft))),
		})
	}
}

func checkSemantics(r *run) {
	var permissive, restrictive, highGas []string
	for _, mod := range r.modules {
		switch mod.Semantics.Access {
		case catalog.AccessPermissive:
			permissive = append(permissive, mod.Name)
		case catalog.AccessRestrictive:
			restrictive = append(restrictive, mod.Name)
		}
		if mod.Semantics.GasCost == catalog.GasHigh {
			highGas = append(highGas, mod.Name)
		}
	}
	if len(permissive) > 0 && len(restrictive) > 0 {
		r.warn(Warning{
			Category: WarningSemantic,
			Message:  fmt.Sprintf("permissive access modules (%s) are combined with restrictive ones (%s)", strings.Join(permissive, ", "), strings.Join(restrictive, ", ")),
		})
	}
	if len(highGas) >= 2 {
		r.warn(Warning{
			Category: WarningGas,
			Message:  fmt.Sprintf("multiple high gas cost modules selected: %s", strings.Join(highGas, ", ")),
		})
	}
	for _, mod := range r.modules {
		for _, parent := range mod.Inheritance {
			if contains(r.base.Inheritance, parent) {
				r.warn(Warning{
					Category: WarningInheritance,
					Module:   mod.Name,
					Message:  fmt.Sprintf("module %s inherits %s, which base %s already inherits", mod.Name, parent, r.base.Name),
				})
			}
		}
		if mod.Deprecated == "" {
			continue
		}
		r.warn(Warning{
			Category: WarningDeprecation,
			Module:   mod.Name,
			Message:  fmt.Sprintf("module %s is deprecated: %s", mod.Name, mod.Deprecated),
		})
	}
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func sortedValues(values map[string]string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
