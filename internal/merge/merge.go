// Package merge applies a validated module selection to a base template and
// produces the output files.
package merge

import (
	"encoding/hex"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/slot"
	"github.com/kingrea/contract-composer/internal/validation"
)

// TemplateSuffix is removed from base file paths in the output.
const TemplateSuffix = ".tmpl"

// ErrValidation is returned by Result.Err when the merge was refused.
var ErrValidation = errors.New("merge: validation failed")

// Options configures a merge.
type Options struct {
	// ProjectName feeds {{PROJECT_NAME}} and {{CONTRACT_NAME}}. Defaults to
	// the base name.
	ProjectName string
	TypeParams  map[string]string
	Limits      validation.Limits
}

func (o Options) validation() validation.Options {
	return validation.Options{TypeParams: o.TypeParams, Limits: o.Limits}
}

// Stats summarises a successful merge.
type Stats struct {
	Base        string
	Modules     []string
	SlotsUsed   []string
	Fingerprint string
}

// Result is the outcome of Merge. Files is empty unless Success is true.
type Result struct {
	Success    bool
	Files      map[string]string
	Validation validation.Result
	Stats      Stats
}

// Err reports why the merge did not succeed, wrapping ErrValidation.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return errors.Join(ErrValidation, r.Validation.Err())
}

// Merge validates the selection and, when it passes, renders every base file
// with module content injected, followed by the modules' additional and test
// files in application order. Later modules overwrite earlier ones on path
// collisions.
func Merge(base catalog.Base, mods []catalog.Module, opts Options) Result {
	report := validation.Validate(base, mods, opts.validation())
	result := Result{
		Files:      map[string]string{},
		Validation: report,
		Stats:      Stats{Base: base.Name},
	}
	if !report.Valid {
		return result
	}
	order, err := orderFor(mods)
	if err != nil {
		// validation already rejects cycles
		return result
	}

	p := newPlan(base, order, opts)
	used := map[string]struct{}{}
	for _, path := range base.FilePaths() {
		result.Files[OutputPath(path)] = p.render(base.Files[path], used)
	}
	for _, mod := range order {
		for _, path := range sortedKeys(mod.Files) {
			result.Files[OutputPath(path)] = p.substituteNames(mod.Files[path])
		}
		for _, path := range sortedKeys(mod.Tests) {
			result.Files[OutputPath(path)] = p.substituteNames(mod.Tests[path])
		}
	}

	result.Success = true
	result.Stats.Modules = catalog.Names(order)
	result.Stats.SlotsUsed = sortedKeys(used)
	result.Stats.Fingerprint = Fingerprint(result.Files)
	return result
}

// render fills one base file. Slots are resolved first so that name and type
// markers inside injected content are substituted as well.
func (p *plan) render(text string, used map[string]struct{}) string {
	text = slot.ReplaceSlots(text, func(occ slot.Occurrence) string {
		switch occ.Name {
		case slot.ProjectName, slot.ContractName:
			return occ.Raw
		case slot.ImportsSlot:
			return p.importBlock()
		case slot.InheritanceSlot:
			return p.inheritanceList()
		}
		injections := p.bySlot[occ.Name]
		if len(injections) == 0 {
			return ""
		}
		used[occ.Name] = struct{}{}
		return Combine(p.slotMode(occ, injections), contentsOf(injections))
	})
	text = p.substituteNames(text)
	text = slot.ReplaceTypeParams(text, p.typeParams)
	return Cleanup(text)
}

func (p *plan) substituteNames(text string) string {
	return slot.ReplaceSlots(text, func(occ slot.Occurrence) string {
		switch occ.Name {
		case slot.ProjectName:
			return p.project
		case slot.ContractName:
			return p.contract
		}
		return occ.Raw
	})
}

var blankRun = regexp.MustCompile(`\n{3,}`)

// Cleanup strips trailing whitespace from every line and collapses runs of
// blank lines left behind by empty slots into a single blank line.
func Cleanup(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}

// Fingerprint hashes the file set independent of map order.
func Fingerprint(files map[string]string) string {
	h := blake3.New()
	for _, path := range sortedKeys(files) {
		_, _ = h.Write([]byte(path))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(files[path]))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
