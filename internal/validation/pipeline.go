// Package validation checks a base template and module selection for
// compatibility before anything is merged.
//
// Validate runs nine phases in a fixed order. No phase short-circuits
// another, so a single run reports every problem at once:
//
//  1. base compatibility (compatibleWith, requiresBaseVersion)
//  2. pairwise module compatibility (incompatibleWith)
//  3. dependency satisfaction and cycle detection
//  4. slot existence
//  5. type-parameter overrides and module type requirements
//  6. name collisions across exposes/provides
//  7. category exclusivity
//  8. estimated output size (warnings only)
//  9. semantic conflicts and deprecations (warnings only)
//
// The pipeline is a pure function of its inputs and holds no shared state.
package validation

import (
	"unicode/utf8"

	"github.com/kingrea/contract-composer/internal/catalog"
)

// Default size thresholds in bytes. The hard ceiling is the EIP-170 contract
// code size limit.
const (
	DefaultSoftLimit = 20000
	DefaultHardLimit = 24576
)

// Compiled bytes are approximated as 0.6 bytes per source character.
const (
	sizeNumerator   = 6
	sizeDenominator = 10
)

// Limits bounds the estimated artifact size.
type Limits struct {
	Soft int
	Hard int
}

func (l Limits) withDefaults() Limits {
	if l.Soft <= 0 {
		l.Soft = DefaultSoftLimit
	}
	if l.Hard <= 0 {
		l.Hard = DefaultHardLimit
	}
	return l
}

// Options carries caller-supplied inputs beyond the base and modules.
type Options struct {
	TypeParams map[string]string
	Limits     Limits
}

type run struct {
	base     catalog.Base
	modules  []catalog.Module
	opts     Options
	errors   []Error
	warnings []Warning
}

func (r *run) fail(e Error) {
	r.errors = append(r.errors, e)
}

func (r *run) warn(w Warning) {
	r.warnings = append(r.warnings, w)
}

type phase func(*run)

var phases = []phase{
	checkBaseCompatibility,
	checkModuleCompatibility,
	checkDependencies,
	checkSlots,
	checkTypes,
	checkCollisions,
	checkExclusivity,
	estimateSize,
	checkSemantics,
}

// Validate runs every phase and returns the aggregated result. Duplicate
// module names in mods are collapsed to their first occurrence.
func Validate(base catalog.Base, mods []catalog.Module, opts Options) Result {
	opts.Limits = opts.Limits.withDefaults()
	r := &run{
		base:    base,
		modules: catalog.Unique(mods),
		opts:    opts,
	}
	for _, p := range phases {
		p(r)
	}
	return Result{
		Valid:    len(r.errors) == 0,
		Errors:   r.errors,
		Warnings: r.warnings,
	}
}

// EstimateSize returns the approximate compiled size of the base plus the
// modules, in bytes.
func EstimateSize(base catalog.Base, mods []catalog.Module) int {
	total := 0
	for _, body := range base.Files {
		total += charCost(body)
	}
	for _, mod := range catalog.Unique(mods) {
		total += ModuleSize(mod)
	}
	return total
}

// ModuleSize returns the module's declared size estimate, or an estimate
// derived from its injection content when none is declared.
func ModuleSize(mod catalog.Module) int {
	if mod.Estimates.SizeBytes > 0 {
		return mod.Estimates.SizeBytes
	}
	total := 0
	for _, inj := range mod.Injections {
		total += charCost(inj.Content)
	}
	return total
}

func charCost(text string) int {
	return utf8.RuneCountInString(text) * sizeNumerator / sizeDenominator
}
