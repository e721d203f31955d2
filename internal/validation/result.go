package validation

import (
	"errors"
	"fmt"
)

// ErrorCategory tags a blocking validation problem.
type ErrorCategory string

const (
	CategoryCompatibility ErrorCategory = "compatibility"
	CategoryDependency    ErrorCategory = "dependency"
	CategorySlot          ErrorCategory = "slot"
	CategoryType          ErrorCategory = "type"
	CategoryCollision     ErrorCategory = "collision"
	CategoryExclusivity   ErrorCategory = "exclusivity"
	CategorySize          ErrorCategory = "size"
)

// WarningCategory tags an advisory finding.
type WarningCategory string

const (
	WarningGas         WarningCategory = "gas"
	WarningSize        WarningCategory = "size"
	WarningInheritance WarningCategory = "inheritance"
	WarningDeprecation WarningCategory = "deprecation"
	WarningSemantic    WarningCategory = "semantic"
	WarningSlot        WarningCategory = "slot"
)

// Error is a blocking problem. It implements error so callers can wrap or
// join it, but the pipeline itself only ever collects these as data.
type Error struct {
	Category ErrorCategory
	// Module is the module the problem is attributed to, if any.
	Module  string
	Message string
	// Sources lists every module (or base label) involved.
	Sources []string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Warning never blocks a merge.
type Warning struct {
	Category WarningCategory
	Module   string
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Category, w.Message)
}

// Result is produced fresh per run and not mutated after it is returned.
type Result struct {
	Valid    bool
	Errors   []Error
	Warnings []Warning
}

// Err joins every error, or returns nil for a valid result.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ErrorsIn filters errors by category.
func (r Result) ErrorsIn(category ErrorCategory) []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// WarningsIn filters warnings by category.
func (r Result) WarningsIn(category WarningCategory) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Category == category {
			out = append(out, w)
		}
	}
	return out
}
