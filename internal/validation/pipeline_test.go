package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/contract-composer/internal/catalog"
)

const tokenBody = `pragma solidity ^0.8.20;
{{IMPORTS}}
contract {{CONTRACT_NAME}} is {{INHERITANCE}} {
    {{STATE_VARIABLES}}
    [[AMOUNT_TYPE]] public totalSupply;
    {{FUNCTIONS}}
}
`

func testBase() catalog.Base {
	return catalog.Base{
		Name:    "erc20",
		Version: "1.2.0",
		Files:   map[string]string{"contracts/Token.sol.tmpl": tokenBody},
		Slots: []catalog.SlotDefinition{
			{Name: "HOOKS", Description: "transfer hooks"},
		},
		TypeParams: map[string]catalog.TypeParam{
			"AMOUNT_TYPE": {Allowed: []string{"uint256", "uint128"}, Default: "uint256"},
		},
		Exposes: catalog.Manifest{
			StateVariables: []string{"totalSupply"},
			Functions:      []string{"transfer"},
		}.Symbols(),
		Inheritance: []string{"ERC20"},
	}
}

func module(name string, edit func(*catalog.Module)) catalog.Module {
	m := catalog.Module{Name: name, Category: catalog.CategoryAdmin}
	if edit != nil {
		edit(&m)
	}
	return m
}

func TestValidSelectionPasses(t *testing.T) {
	mods := []catalog.Module{
		module("ownable", func(m *catalog.Module) {
			m.Category = catalog.CategoryAccessControl
			m.CompatibleWith = []string{"erc20"}
			m.RequiresSlots = []string{"FUNCTIONS"}
			m.Provides = catalog.Manifest{StateVariables: []string{"owner"}}.Symbols()
			m.Injections = []catalog.Injection{{Slot: "STATE_VARIABLES", Content: "address owner;"}}
		}),
		module("pausable", func(m *catalog.Module) {
			m.Requires = []string{"ownable"}
			m.RequiresTypes = []string{"uint256"}
			m.RequiresBaseVersion = "1.0.0"
		}),
	}
	result := Validate(testBase(), mods, Options{})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.NoError(t, result.Err())
}

func TestBaseCompatibility(t *testing.T) {
	mods := []catalog.Module{
		module("nft-only", func(m *catalog.Module) { m.CompatibleWith = []string{"erc721"} }),
		module("too-new", func(m *catalog.Module) { m.RequiresBaseVersion = "2.0.0" }),
		module("broken-req", func(m *catalog.Module) { m.RequiresBaseVersion = "latest" }),
	}
	result := Validate(testBase(), mods, Options{})
	require.False(t, result.Valid)
	errs := result.ErrorsIn(CategoryCompatibility)
	require.Len(t, errs, 3)
	assert.Equal(t, "nft-only", errs[0].Module)
	assert.Contains(t, errs[1].Message, ">= 2.0.0")
	assert.Contains(t, errs[2].Message, "invalid base version requirement")
}

func TestPairwiseIncompatibilityReportedOncePerPair(t *testing.T) {
	mods := []catalog.Module{
		module("roles", func(m *catalog.Module) { m.IncompatibleWith = []string{"ownable"} }),
		module("ownable", func(m *catalog.Module) { m.IncompatibleWith = []string{"roles"} }),
		module("events", nil),
	}
	result := Validate(testBase(), mods, Options{})
	errs := result.ErrorsIn(CategoryCompatibility)
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"roles", "ownable"}, errs[0].Sources)
}

func TestMissingDependency(t *testing.T) {
	result := Validate(testBase(), []catalog.Module{
		module("pausable", func(m *catalog.Module) { m.Requires = []string{"ownable"} }),
	}, Options{})
	errs := result.ErrorsIn(CategoryDependency)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "requires ownable")
}

func TestCycleReportedAsSingleError(t *testing.T) {
	mods := []catalog.Module{
		module("A", func(m *catalog.Module) { m.Requires = []string{"B"} }),
		module("B", func(m *catalog.Module) { m.Requires = []string{"C"} }),
		module("C", func(m *catalog.Module) { m.Requires = []string{"A"} }),
	}
	result := Validate(testBase(), mods, Options{})
	errs := result.ErrorsIn(CategoryDependency)
	require.Len(t, errs, 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, errs[0].Sources)
	assert.Contains(t, errs[0].Message, "A -> B -> C -> A")
}

func TestDiamondDependencyHasNoCycle(t *testing.T) {
	mods := []catalog.Module{
		module("A", func(m *catalog.Module) { m.Requires = []string{"C"} }),
		module("B", func(m *catalog.Module) { m.Requires = []string{"C"} }),
		module("C", nil),
	}
	result := Validate(testBase(), mods, Options{})
	assert.Empty(t, result.ErrorsIn(CategoryDependency))
}

func TestSlotExistence(t *testing.T) {
	mods := []catalog.Module{
		module("hooks", func(m *catalog.Module) {
			m.RequiresSlots = []string{"HOOKS", "MODIFIERS"}
			m.Injections = []catalog.Injection{
				{Slot: "MODIFIERS", Content: "modifier x() { _; }"},
				{Slot: "EVENTS", Content: "event X();"},
				{Slot: "FUNCTIONS", Content: "function f() public {}"},
			}
		}),
	}
	result := Validate(testBase(), mods, Options{})
	errs := result.ErrorsIn(CategorySlot)
	require.Len(t, errs, 2, "MODIFIERS reported once, EVENTS once")
	assert.Contains(t, errs[0].Message, "MODIFIERS")
	assert.Contains(t, errs[1].Message, "EVENTS")
}

func TestSlotMarkersInInjectedContentAreRejected(t *testing.T) {
	nested := module("nested", func(m *catalog.Module) {
		m.Injections = []catalog.Injection{
			{Slot: "FUNCTIONS", Content: "x {{HOOKS}} [[AMOUNT_TYPE]]"},
			{Slot: "STATE_VARIABLES", Content: "string name = \"{{PROJECT_NAME}}\"; // {{CONTRACT_NAME}}"},
		}
	})
	result := Validate(testBase(), []catalog.Module{nested}, Options{})
	errs := result.ErrorsIn(CategorySlot)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "{{HOOKS}}")
	assert.Contains(t, errs[0].Message, "slot FUNCTIONS")
}

func TestMarkerWithUnknownModeDefinesSlot(t *testing.T) {
	base := testBase()
	base.Files = map[string]string{"a.txt": "[{{EXTRA:append2}}]"}
	hooks := module("hooks", func(m *catalog.Module) {
		m.Injections = []catalog.Injection{{Slot: "EXTRA", Content: "x"}}
	})
	result := Validate(base, []catalog.Module{hooks}, Options{})
	assert.Empty(t, result.ErrorsIn(CategorySlot))
}

func TestRequiredSlotWithoutContributionWarns(t *testing.T) {
	base := testBase()
	base.Slots = append(base.Slots, catalog.SlotDefinition{Name: "FUNCTIONS", Required: true})
	result := Validate(base, nil, Options{})
	assert.True(t, result.Valid)
	warnings := result.WarningsIn(WarningSlot)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "FUNCTIONS")
}

func TestTypeValidation(t *testing.T) {
	needs128 := module("compact", func(m *catalog.Module) { m.RequiresTypes = []string{"uint128"} })

	result := Validate(testBase(), []catalog.Module{needs128}, Options{
		TypeParams: map[string]string{"AMOUNT_TYPE": "int8", "NOPE": "x"},
	})
	errs := result.ErrorsIn(CategoryType)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Message, "AMOUNT_TYPE=int8")
	assert.Contains(t, errs[1].Message, "unknown type parameter NOPE")
	assert.Equal(t, "compact", errs[2].Module)

	result = Validate(testBase(), []catalog.Module{needs128}, Options{
		TypeParams: map[string]string{"AMOUNT_TYPE": "uint128"},
	})
	assert.Empty(t, result.ErrorsIn(CategoryType))
}

func TestCollisionBetweenModules(t *testing.T) {
	balance := catalog.Manifest{StateVariables: []string{"balance"}}.Symbols()
	mods := []catalog.Module{
		module("ledger", func(m *catalog.Module) { m.Provides = balance }),
		module("vault", func(m *catalog.Module) { m.Provides = balance }),
	}
	result := Validate(testBase(), mods, Options{})
	errs := result.ErrorsIn(CategoryCollision)
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"ledger", "vault"}, errs[0].Sources)
	assert.Contains(t, errs[0].Message, "ledger")
	assert.Contains(t, errs[0].Message, "vault")
}

func TestCollisionWithBaseExposes(t *testing.T) {
	result := Validate(testBase(), []catalog.Module{
		module("supply", func(m *catalog.Module) {
			m.Provides = catalog.Manifest{StateVariables: []string{"totalSupply"}, Events: []string{"transfer"}}.Symbols()
		}),
	}, Options{})
	errs := result.ErrorsIn(CategoryCollision)
	require.Len(t, errs, 1, "same name with a different kind does not collide")
	assert.Equal(t, []string{"base:erc20", "supply"}, errs[0].Sources)
	assert.Contains(t, errs[0].Message, "base:erc20")
}

func TestExclusivity(t *testing.T) {
	same := []catalog.Module{
		module("ownable", func(m *catalog.Module) { m.Category = catalog.CategoryAccessControl; m.Exclusive = true }),
		module("roles", func(m *catalog.Module) { m.Category = catalog.CategoryAccessControl; m.Exclusive = true }),
	}
	result := Validate(testBase(), same, Options{})
	errs := result.ErrorsIn(CategoryExclusivity)
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"ownable", "roles"}, errs[0].Sources)

	different := []catalog.Module{
		module("ownable", func(m *catalog.Module) { m.Category = catalog.CategoryAccessControl; m.Exclusive = true }),
		module("uups", func(m *catalog.Module) { m.Category = catalog.CategoryUpgradeability; m.Exclusive = true }),
	}
	assert.Empty(t, Validate(testBase(), different, Options{}).ErrorsIn(CategoryExclusivity))
}

func TestSizeWarnings(t *testing.T) {
	soft := module("big", func(m *catalog.Module) { m.Estimates.SizeBytes = 21000 })
	result := Validate(testBase(), []catalog.Module{soft}, Options{})
	assert.True(t, result.Valid)
	warnings := result.WarningsIn(WarningSize)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "recommended")
	assert.NotContains(t, warnings[0].Message, "maximum")

	hard := module("huge", func(m *catalog.Module) { m.Estimates.SizeBytes = 30000 })
	result = Validate(testBase(), []catalog.Module{hard}, Options{})
	assert.True(t, result.Valid, "size is advisory")
	assert.Empty(t, result.ErrorsIn(CategorySize))
	warnings = result.WarningsIn(WarningSize)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "maximum contract size")

	custom := Validate(testBase(), []catalog.Module{soft}, Options{Limits: Limits{Soft: 50000, Hard: 60000}})
	assert.Empty(t, custom.WarningsIn(WarningSize))
}

func TestEstimateSizeFallsBackToInjectionContent(t *testing.T) {
	base := catalog.Base{Files: map[string]string{"a": strings.Repeat("x", 100)}}
	mod := module("m", func(m *catalog.Module) {
		m.Injections = []catalog.Injection{{Slot: "A", Content: strings.Repeat("y", 50)}}
	})
	assert.Equal(t, 30, ModuleSize(mod))
	assert.Equal(t, 90, EstimateSize(base, []catalog.Module{mod}))
}

func TestSemanticWarnings(t *testing.T) {
	mods := []catalog.Module{
		module("open-mint", func(m *catalog.Module) {
			m.Semantics = catalog.Semantics{Access: catalog.AccessPermissive, GasCost: catalog.GasHigh}
		}),
		module("whitelist", func(m *catalog.Module) {
			m.Semantics = catalog.Semantics{Access: catalog.AccessRestrictive, GasCost: catalog.GasHigh}
			m.Deprecated = "use allowlist"
			m.Inheritance = []string{"ERC20"}
		}),
	}
	result := Validate(testBase(), mods, Options{})
	assert.True(t, result.Valid)
	assert.Len(t, result.WarningsIn(WarningSemantic), 1)
	assert.Len(t, result.WarningsIn(WarningGas), 1)
	assert.Len(t, result.WarningsIn(WarningDeprecation), 1)
	assert.Len(t, result.WarningsIn(WarningInheritance), 1)
}

func TestPhasesDoNotShortCircuit(t *testing.T) {
	mods := []catalog.Module{
		module("a", func(m *catalog.Module) {
			m.CompatibleWith = []string{"erc721"}
			m.Requires = []string{"missing"}
			m.RequiresSlots = []string{"NOWHERE"}
			m.Exclusive = true
			m.Provides = catalog.Manifest{Functions: []string{"transfer"}}.Symbols()
		}),
		module("b", func(m *catalog.Module) { m.Exclusive = true }),
	}
	result := Validate(testBase(), mods, Options{TypeParams: map[string]string{"X": "y"}})
	require.False(t, result.Valid)
	for _, category := range []ErrorCategory{
		CategoryCompatibility, CategoryDependency, CategorySlot,
		CategoryType, CategoryCollision, CategoryExclusivity,
	} {
		assert.NotEmpty(t, result.ErrorsIn(category), "category %s", category)
	}
	assert.Error(t, result.Err())
}

func TestDuplicateSelectionsAreCollapsed(t *testing.T) {
	balance := catalog.Manifest{StateVariables: []string{"balance"}}.Symbols()
	m := module("ledger", func(m *catalog.Module) { m.Provides = balance })
	result := Validate(testBase(), []catalog.Module{m, m}, Options{})
	assert.True(t, result.Valid)
}

func TestFormat(t *testing.T) {
	result := Result{
		Valid:    false,
		Errors:   []Error{{Category: CategorySlot, Message: "slot X missing"}},
		Warnings: []Warning{{Category: WarningGas, Message: "expensive"}},
	}
	out := Format(result)
	assert.Contains(t, out, "✗ Validation failed with 1 error (1 warning)")
	assert.Contains(t, out, "✗ [slot] slot X missing")
	assert.Contains(t, out, "⚠ [gas] expensive")

	assert.True(t, strings.HasPrefix(Format(Result{Valid: true}), "✓ Validation passed"))
}
