package plugins

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/slot"
)

// ModuleDefinition is the on-disk schema of a module under the catalog's
// modules directory. YAML, JSON and Go-scripted definitions all decode into it.
type ModuleDefinition struct {
	Name        string   `json:"name" yaml:"name" validate:"required,modulename"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string   `json:"category" yaml:"category" validate:"required,category"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	CompatibleWith   []string `json:"compatible_with,omitempty" yaml:"compatible_with,omitempty"`
	IncompatibleWith []string `json:"incompatible_with,omitempty" yaml:"incompatible_with,omitempty" validate:"dive,modulename"`
	Requires         []string `json:"requires,omitempty" yaml:"requires,omitempty" validate:"dive,modulename"`
	Enhances         []string `json:"enhances,omitempty" yaml:"enhances,omitempty"`

	RequiresSlots       []string `json:"requires_slots,omitempty" yaml:"requires_slots,omitempty" validate:"dive,slotname"`
	RequiresTypes       []string `json:"requires_types,omitempty" yaml:"requires_types,omitempty"`
	RequiresBaseVersion string   `json:"requires_base_version,omitempty" yaml:"requires_base_version,omitempty"`

	Provides  catalog.Manifest    `json:"provides,omitempty" yaml:"provides,omitempty"`
	Exclusive bool                `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Semantics SemanticsDefinition `json:"semantics,omitempty" yaml:"semantics,omitempty"`

	Injections  []InjectionDefinition `json:"injections,omitempty" yaml:"injections,omitempty" validate:"dive"`
	Imports     []string              `json:"imports,omitempty" yaml:"imports,omitempty"`
	Inheritance []string              `json:"inheritance,omitempty" yaml:"inheritance,omitempty"`
	Files       map[string]string     `json:"files,omitempty" yaml:"files,omitempty" validate:"dive,keys,required,endkeys"`
	Tests       map[string]string     `json:"tests,omitempty" yaml:"tests,omitempty" validate:"dive,keys,required,endkeys"`

	Estimates  EstimatesDefinition `json:"estimates,omitempty" yaml:"estimates,omitempty"`
	Deprecated string              `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// SemanticsDefinition holds the optional conflict-detection tags.
type SemanticsDefinition struct {
	Access     string `json:"access,omitempty" yaml:"access,omitempty" validate:"omitempty,oneof=permissive restrictive"`
	Mutability string `json:"mutability,omitempty" yaml:"mutability,omitempty"`
	GasCost    string `json:"gas_cost,omitempty" yaml:"gas_cost,omitempty" validate:"omitempty,oneof=low medium high"`
}

// InjectionDefinition is a single slot contribution. Order is mandatory so
// that ties between contributions never depend on file layout.
type InjectionDefinition struct {
	Slot      string `json:"slot" yaml:"slot" validate:"required,slotname"`
	Content   string `json:"content" yaml:"content" validate:"required"`
	Mode      string `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=append prepend replace once"`
	Order     *int   `json:"order" yaml:"order" validate:"required"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// EstimatesDefinition carries declared cost hints.
type EstimatesDefinition struct {
	SizeBytes int `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty" validate:"gte=0"`
	Gas       int `json:"gas,omitempty" yaml:"gas,omitempty" validate:"gte=0"`
}

// TemplateDefinition is the template.yaml manifest of a base template
// directory. File bodies live next to it under files/.
type TemplateDefinition struct {
	Name        string                         `json:"name" yaml:"name" validate:"required,modulename"`
	Version     string                         `json:"version,omitempty" yaml:"version,omitempty"`
	Description string                         `json:"description,omitempty" yaml:"description,omitempty"`
	Slots       []SlotDefinition               `json:"slots,omitempty" yaml:"slots,omitempty" validate:"dive"`
	TypeParams  map[string]TypeParamDefinition `json:"type_params,omitempty" yaml:"type_params,omitempty" validate:"dive,keys,slotname,endkeys"`
	Exposes     catalog.Manifest               `json:"exposes,omitempty" yaml:"exposes,omitempty"`
	Inheritance []string                       `json:"inheritance,omitempty" yaml:"inheritance,omitempty"`
	Imports     []string                       `json:"imports,omitempty" yaml:"imports,omitempty"`
}

// SlotDefinition declares an extension point in template.yaml.
type SlotDefinition struct {
	Name        string `json:"name" yaml:"name" validate:"required,slotname"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Mode        string `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=append prepend replace once"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// TypeParamDefinition declares one [[NAME]] parameter.
type TypeParamDefinition struct {
	Allowed     []string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Default     string   `json:"default,omitempty" yaml:"default,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return fieldName(field.Tag.Get("yaml"), field.Name)
	})
	_ = v.RegisterValidation("slotname", func(fl validator.FieldLevel) bool {
		return slot.ValidName(fl.Field().String())
	})
	_ = v.RegisterValidation("modulename", func(fl validator.FieldLevel) bool {
		return validModuleName(fl.Field().String())
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return catalog.Category(fl.Field().String()).Valid()
	})
	return v
}

// Normalized returns a trimmed copy of the definition.
func (def ModuleDefinition) Normalized() ModuleDefinition {
	clone := def
	clone.Name = strings.TrimSpace(def.Name)
	clone.Version = strings.TrimSpace(def.Version)
	clone.Description = strings.TrimSpace(def.Description)
	clone.Category = strings.ToLower(strings.TrimSpace(def.Category))
	clone.RequiresBaseVersion = strings.TrimSpace(def.RequiresBaseVersion)
	clone.Deprecated = strings.TrimSpace(def.Deprecated)
	clone.Tags = trimAll(def.Tags)
	clone.CompatibleWith = trimAll(def.CompatibleWith)
	clone.IncompatibleWith = trimAll(def.IncompatibleWith)
	clone.Requires = trimAll(def.Requires)
	clone.Enhances = trimAll(def.Enhances)
	clone.RequiresSlots = trimAll(def.RequiresSlots)
	clone.RequiresTypes = trimAll(def.RequiresTypes)
	clone.Imports = trimAll(def.Imports)
	clone.Inheritance = trimAll(def.Inheritance)
	if len(def.Injections) > 0 {
		clone.Injections = make([]InjectionDefinition, len(def.Injections))
		for i, inj := range def.Injections {
			inj.Slot = strings.TrimSpace(inj.Slot)
			inj.Mode = strings.ToLower(strings.TrimSpace(inj.Mode))
			inj.Condition = strings.TrimSpace(inj.Condition)
			clone.Injections[i] = inj
		}
	}
	clone.Files = trimKeys(def.Files)
	clone.Tests = trimKeys(def.Tests)
	return clone
}

// Validate checks the definition against its schema tags.
func (def ModuleDefinition) Validate() error {
	normalized := def.Normalized()
	if err := validate.Struct(normalized); err != nil {
		return fmt.Errorf("module %s: %w", labelOf(normalized.Name), describe(err))
	}
	return nil
}

// Module converts the definition into a catalog record.
func (def ModuleDefinition) Module() catalog.Module {
	def = def.Normalized()
	mod := catalog.Module{
		Name:                def.Name,
		Version:             def.Version,
		Description:         def.Description,
		Category:            catalog.Category(def.Category),
		Tags:                def.Tags,
		CompatibleWith:      def.CompatibleWith,
		IncompatibleWith:    def.IncompatibleWith,
		Requires:            def.Requires,
		Enhances:            def.Enhances,
		RequiresSlots:       def.RequiresSlots,
		RequiresTypes:       def.RequiresTypes,
		RequiresBaseVersion: def.RequiresBaseVersion,
		Provides:            def.Provides.Symbols(),
		Exclusive:           def.Exclusive,
		Semantics: catalog.Semantics{
			Access:     catalog.Access(def.Semantics.Access),
			Mutability: def.Semantics.Mutability,
			GasCost:    catalog.GasCost(def.Semantics.GasCost),
		},
		Imports:     def.Imports,
		Inheritance: def.Inheritance,
		Files:       def.Files,
		Tests:       def.Tests,
		Estimates: catalog.Estimates{
			SizeBytes: def.Estimates.SizeBytes,
			Gas:       def.Estimates.Gas,
		},
		Deprecated: def.Deprecated,
	}
	for _, inj := range def.Injections {
		mod.Injections = append(mod.Injections, catalog.Injection{
			Slot:      inj.Slot,
			Content:   inj.Content,
			Mode:      slot.Mode(inj.Mode),
			Order:     orderValue(inj.Order),
			Condition: inj.Condition,
		})
	}
	return mod
}

// Validate checks the template manifest against its schema tags.
func (def TemplateDefinition) Validate() error {
	if err := validate.Struct(def); err != nil {
		return fmt.Errorf("template %s: %w", labelOf(def.Name), describe(err))
	}
	return nil
}

// Base converts the manifest plus its file bodies into a catalog record.
func (def TemplateDefinition) Base(files map[string]string) catalog.Base {
	base := catalog.Base{
		Name:        strings.TrimSpace(def.Name),
		Version:     strings.TrimSpace(def.Version),
		Description: strings.TrimSpace(def.Description),
		Files:       files,
		Exposes:     def.Exposes.Symbols(),
		Inheritance: trimAll(def.Inheritance),
		Imports:     trimAll(def.Imports),
	}
	for _, s := range def.Slots {
		base.Slots = append(base.Slots, catalog.SlotDefinition{
			Name:        s.Name,
			Description: s.Description,
			Mode:        slot.Mode(strings.ToLower(s.Mode)),
			Required:    s.Required,
		})
	}
	if len(def.TypeParams) > 0 {
		base.TypeParams = make(map[string]catalog.TypeParam, len(def.TypeParams))
		for name, param := range def.TypeParams {
			base.TypeParams[name] = catalog.TypeParam{
				Allowed:     param.Allowed,
				Default:     param.Default,
				Description: param.Description,
			}
		}
	}
	return base
}

// describe flattens validator errors into one message per failing field.
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	problems := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Errorf("%s is required", field))
		case "oneof":
			problems = append(problems, fmt.Errorf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		case "slotname":
			problems = append(problems, fmt.Errorf("%s: %q is not a valid slot name", field, fe.Value()))
		case "modulename":
			problems = append(problems, fmt.Errorf("%s: %q is not a valid module name", field, fe.Value()))
		case "category":
			problems = append(problems, fmt.Errorf("%s: unknown category %q", field, fe.Value()))
		default:
			problems = append(problems, fmt.Errorf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.Join(problems...)
}

func orderValue(order *int) int {
	if order == nil {
		return 0
	}
	return *order
}

// validModuleName accepts lowercase identifiers joined by '-', '_' or '.'.
func validModuleName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case i > 0 && (r == '-' || r == '_' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func fieldName(tag, fallback string) string {
	name := strings.SplitN(tag, ",", 2)[0]
	if name == "" || name == "-" {
		return fallback
	}
	return name
}

func labelOf(name string) string {
	if name == "" {
		return "<unnamed>"
	}
	return name
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func trimKeys(files map[string]string) map[string]string {
	if len(files) == 0 {
		return nil
	}
	out := make(map[string]string, len(files))
	for path, body := range files {
		out[strings.TrimSpace(path)] = body
	}
	return out
}
