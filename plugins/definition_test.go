package plugins

import (
	"strings"
	"testing"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/slot"
)

func TestModuleDefinitionValidate(t *testing.T) {
	def := ModuleDefinition{
		Name:     " vesting ",
		Category: "Operation-Set",
		Injections: []InjectionDefinition{
			{Slot: "FUNCTIONS", Content: "function release() external {}", Mode: "once", Order: order(0)},
		},
		Estimates: EstimatesDefinition{SizeBytes: 900},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("expected definition to validate, got %v", err)
	}
}

func TestModuleDefinitionValidateFailures(t *testing.T) {
	tests := []struct {
		name string
		def  ModuleDefinition
		msg  string
	}{
		{
			name: "missing name",
			def:  ModuleDefinition{Category: "admin"},
			msg:  "name is required",
		},
		{
			name: "bad module name",
			def:  ModuleDefinition{Name: "Bad Name", Category: "admin"},
			msg:  "not a valid module name",
		},
		{
			name: "bad requirement",
			def:  ModuleDefinition{Name: "x", Category: "admin", Requires: []string{"-leading"}},
			msg:  "requires[0]",
		},
		{
			name: "empty injection content",
			def: ModuleDefinition{Name: "x", Category: "admin", Injections: []InjectionDefinition{
				{Slot: "FUNCTIONS", Order: order(1)},
			}},
			msg: "injections[0].content is required",
		},
		{
			name: "missing injection order",
			def: ModuleDefinition{Name: "x", Category: "admin", Injections: []InjectionDefinition{
				{Slot: "FUNCTIONS", Content: "function f() external {}"},
			}},
			msg: "injections[0].order is required",
		},
		{
			name: "negative estimate",
			def:  ModuleDefinition{Name: "x", Category: "admin", Estimates: EstimatesDefinition{SizeBytes: -1}},
			msg:  "size_bytes failed gte",
		},
		{
			name: "unknown access",
			def:  ModuleDefinition{Name: "x", Category: "admin", Semantics: SemanticsDefinition{Access: "open"}},
			msg:  "semantics.access must be one of",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.def.Validate(); err == nil || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected error containing %q, got %v", tc.msg, err)
			}
		})
	}
}

func TestModuleDefinitionToModule(t *testing.T) {
	def := ModuleDefinition{
		Name:        "pausable",
		Category:    "security",
		Requires:    []string{" ownable "},
		Provides:    catalog.Manifest{Functions: []string{"pause"}, Modifiers: []string{"whenNotPaused"}},
		Semantics:   SemanticsDefinition{GasCost: "high"},
		Inheritance: []string{"Pausable", ""},
		Injections: []InjectionDefinition{
			{Slot: "FUNCTIONS", Content: "function pause() external {}", Mode: "Prepend", Order: order(2)},
		},
	}
	mod := def.Module()
	if mod.Category != catalog.CategorySecurity || mod.Semantics.GasCost != catalog.GasHigh {
		t.Fatalf("unexpected module: %+v", mod)
	}
	if len(mod.Requires) != 1 || mod.Requires[0] != "ownable" {
		t.Fatalf("expected trimmed requires, got %v", mod.Requires)
	}
	if len(mod.Inheritance) != 1 {
		t.Fatalf("expected blank inheritance dropped, got %v", mod.Inheritance)
	}
	if len(mod.Provides) != 2 {
		t.Fatalf("expected 2 provided symbols, got %v", mod.Provides)
	}
	if inj := mod.Injections[0]; inj.Mode != slot.ModePrepend || inj.Order != 2 {
		t.Fatalf("unexpected injection: %+v", inj)
	}
	if err := mod.Validate(); err != nil {
		t.Fatalf("converted module should validate: %v", err)
	}
}

func TestTemplateDefinitionValidate(t *testing.T) {
	def := TemplateDefinition{
		Name:       "erc20",
		Slots:      []SlotDefinition{{Name: "hooks"}},
		TypeParams: map[string]TypeParamDefinition{"amount": {Default: "uint256"}},
	}
	err := def.Validate()
	if err == nil {
		t.Fatalf("expected invalid slot and type parameter names to fail")
	}
	for _, want := range []string{`"hooks"`, `"amount"`} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func order(n int) *int {
	return &n
}
