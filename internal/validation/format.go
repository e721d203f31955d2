package validation

import (
	"fmt"
	"strings"
)

// Format renders a human-readable report. Errors are marked with ✗ and
// warnings with ⚠.
func Format(result Result) string {
	var b strings.Builder
	if result.Valid {
		b.WriteString("✓ Validation passed")
	} else {
		fmt.Fprintf(&b, "✗ Validation failed with %d %s", len(result.Errors), plural(len(result.Errors), "error", "errors"))
	}
	if n := len(result.Warnings); n > 0 {
		fmt.Fprintf(&b, " (%d %s)", n, plural(n, "warning", "warnings"))
	}
	b.WriteString("\n")
	if len(result.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "  ✗ [%s] %s\n", e.Category, e.Message)
		}
	}
	if len(result.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  ⚠ [%s] %s\n", w.Category, w.Message)
		}
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
