package merge

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/slot"
	"github.com/kingrea/contract-composer/internal/validation"
)

const tokenBody = `pragma solidity ^0.8.20;

{{IMPORTS}}

contract {{CONTRACT_NAME}} is ERC20{{INHERITANCE}} {
    {{STATE_VARIABLES}}

    [[AMOUNT_TYPE]] public cap;

    {{FUNCTIONS}}
}
`

func tokenBase() catalog.Base {
	return catalog.Base{
		Name:    "erc20",
		Version: "1.0.0",
		Files:   map[string]string{"contracts/Token.sol.tmpl": tokenBody},
		Slots: []catalog.SlotDefinition{
			{Name: "STATE_VARIABLES", Mode: slot.ModeAppend},
			{Name: "FUNCTIONS", Mode: slot.ModeAppend},
		},
		TypeParams: map[string]catalog.TypeParam{
			"AMOUNT_TYPE": {Allowed: []string{"uint256", "uint128"}, Default: "uint256"},
		},
		Inheritance: []string{"ERC20"},
		Imports:     []string{`import "@openzeppelin/contracts/token/ERC20/ERC20.sol";`},
	}
}

func ownable() catalog.Module {
	return catalog.Module{
		Name:        "ownable",
		Category:    catalog.CategoryAccessControl,
		Imports:     []string{`import "@openzeppelin/contracts/access/Ownable.sol";`},
		Inheritance: []string{"Ownable"},
		Provides:    catalog.Manifest{Functions: []string{"owner", "transferOwnership"}}.Symbols(),
		Injections: []catalog.Injection{
			{Slot: "FUNCTIONS", Content: "function owner() public view returns (address) {}"},
		},
		Tests: map[string]string{"test/Ownable.t.sol": "contract {{CONTRACT_NAME}}OwnableTest {}"},
	}
}

func pausable() catalog.Module {
	return catalog.Module{
		Name:     "pausable",
		Category: catalog.CategorySecurity,
		Requires: []string{"ownable"},
		Imports: []string{
			`import "@openzeppelin/contracts/access/Ownable.sol";`,
			`import "@openzeppelin/contracts/utils/Pausable.sol";`,
			`import "@openzeppelin/contracts/token/ERC20/ERC20.sol";`,
		},
		Inheritance: []string{"Pausable", "Ownable", "ERC20"},
		Provides:    catalog.Manifest{StateVariables: []string{"_paused"}}.Symbols(),
		Injections: []catalog.Injection{
			{Slot: "STATE_VARIABLES", Content: "bool private _paused;"},
			{Slot: "FUNCTIONS", Content: "function pause() public onlyOwner {}"},
		},
	}
}

func TestMergeWithoutModulesClearsSlots(t *testing.T) {
	result := Merge(tokenBase(), nil, Options{ProjectName: "my token"})
	require.True(t, result.Success)

	want := "pragma solidity ^0.8.20;\n\ncontract MyToken is ERC20 {\n\n    uint256 public cap;\n\n}\n"
	assert.Equal(t, map[string]string{"contracts/Token.sol": want}, result.Files)
	assert.Equal(t, "erc20", result.Stats.Base)
	assert.Empty(t, result.Stats.Modules)
	assert.Empty(t, result.Stats.SlotsUsed)
}

func TestMergeWithoutMarkersReturnsBaseUnchanged(t *testing.T) {
	base := catalog.Base{
		Name:  "plain",
		Files: map[string]string{"README.md": "# Plain\n\nNothing to fill.\n", "src/Lib.sol": "library Lib {}\n"},
	}
	result := Merge(base, nil, Options{})
	require.True(t, result.Success)
	assert.Equal(t, base.Files, result.Files)
}

func TestMergeAppliesModulesInDependencyOrder(t *testing.T) {
	result := Merge(tokenBase(), []catalog.Module{pausable(), ownable()}, Options{ProjectName: "vault"})
	require.True(t, result.Success, result.Validation.Err())

	assert.Equal(t, []string{"ownable", "pausable"}, result.Stats.Modules)
	assert.Equal(t, []string{"FUNCTIONS", "STATE_VARIABLES"}, result.Stats.SlotsUsed)

	out := result.Files["contracts/Token.sol"]
	assert.Contains(t, out, "contract Vault is ERC20, Ownable, Pausable {")
	assert.Contains(t, out, "    bool private _paused;\n")
	assert.Contains(t, out,
		"function owner() public view returns (address) {}\nfunction pause() public onlyOwner {}")

	importBlock := "import \"@openzeppelin/contracts/access/Ownable.sol\";\nimport \"@openzeppelin/contracts/utils/Pausable.sol\";"
	assert.Contains(t, out, importBlock)
	assert.Equal(t, 1, strings.Count(out, "Ownable.sol"))
	assert.NotContains(t, out, "ERC20.sol", "base default imports are not emitted")

	assert.Equal(t, "contract VaultOwnableTest {}", result.Files["test/Ownable.t.sol"])
	assert.Len(t, result.Stats.Fingerprint, 64)
}

func TestMergeModesFollowInjectionOrder(t *testing.T) {
	cases := []struct {
		marker string
		want   string
	}{
		{"{{HOOKS}}", "b\nc\na"},
		{"{{HOOKS:append}}", "b\nc\na"},
		{"{{HOOKS:prepend}}", "a\nc\nb"},
		{"{{HOOKS:replace}}", "a"},
		{"{{HOOKS:once}}", "b"},
	}
	mod := catalog.Module{
		Name:     "hooks",
		Category: catalog.CategoryIntegration,
		Injections: []catalog.Injection{
			{Slot: "HOOKS", Content: "a", Order: 2},
			{Slot: "HOOKS", Content: "b", Order: 0},
			{Slot: "HOOKS", Content: "c", Order: 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.marker, func(t *testing.T) {
			base := catalog.Base{Name: "hooks", Files: map[string]string{"out.txt": tc.marker}}
			result := Merge(base, []catalog.Module{mod}, Options{})
			require.True(t, result.Success)
			assert.Equal(t, tc.want, result.Files["out.txt"])
		})
	}
}

func TestMergeModePrecedence(t *testing.T) {
	base := catalog.Base{
		Name:  "modes",
		Files: map[string]string{"a.txt": "{{FROM_DEF}}|{{FROM_MARKER:once}}|{{FROM_INJECTION:once}}"},
		Slots: []catalog.SlotDefinition{
			{Name: "FROM_DEF", Mode: slot.ModeReplace},
			{Name: "FROM_MARKER", Mode: slot.ModeReplace},
		},
	}
	first := catalog.Module{Name: "first", Category: catalog.CategoryIntegration, Injections: []catalog.Injection{
		{Slot: "FROM_DEF", Content: "1"},
		{Slot: "FROM_MARKER", Content: "1"},
		{Slot: "FROM_INJECTION", Content: "1"},
	}}
	second := catalog.Module{Name: "second", Category: catalog.CategoryIntegration, Injections: []catalog.Injection{
		{Slot: "FROM_DEF", Content: "2"},
		{Slot: "FROM_MARKER", Content: "2"},
		{Slot: "FROM_INJECTION", Content: "2", Mode: slot.ModeAppend},
	}}
	result := Merge(base, []catalog.Module{first, second}, Options{})
	require.True(t, result.Success)
	assert.Equal(t, "2|1|1\n2", result.Files["a.txt"])
}

func TestMergeFillsMarkersWithUnknownModes(t *testing.T) {
	base := catalog.Base{Name: "b", Files: map[string]string{"a.txt": "[{{HOOKS:append2}}] [{{HOOKS:pre-pend}}]"}}
	hooks := catalog.Module{Name: "hooks", Category: catalog.CategoryIntegration, Injections: []catalog.Injection{
		{Slot: "HOOKS", Content: "a"},
		{Slot: "HOOKS", Content: "b", Order: 1},
	}}
	result := Merge(base, []catalog.Module{hooks}, Options{})
	require.True(t, result.Success, result.Validation.Errors)
	assert.Equal(t, "[a\nb] [a\nb]", result.Files["a.txt"])
}

func TestMergeRefusesSlotMarkersInInjectedContent(t *testing.T) {
	base := catalog.Base{Name: "b", Files: map[string]string{"a.txt": "{{A}}|{{B}}|[[T]]"}}
	nested := catalog.Module{Name: "nested", Category: catalog.CategoryIntegration, Injections: []catalog.Injection{
		{Slot: "A", Content: "x {{B}} [[T]]"},
	}}
	result := Merge(base, []catalog.Module{nested}, Options{})
	assert.False(t, result.Success)
	assert.Empty(t, result.Files)
	require.Len(t, result.Validation.ErrorsIn(validation.CategorySlot), 1)
}

func TestMergeTypeParamOverride(t *testing.T) {
	result := Merge(tokenBase(), nil, Options{TypeParams: map[string]string{"AMOUNT_TYPE": "uint128"}})
	require.True(t, result.Success)
	assert.Contains(t, result.Files["contracts/Token.sol"], "uint128 public cap;")
	assert.Contains(t, result.Files["contracts/Token.sol"], "contract Erc20 is ERC20 {")
}

func TestMergeRefusesInvalidSelection(t *testing.T) {
	rival := ownable()
	rival.Name = "roles"
	rival.IncompatibleWith = []string{"ownable"}

	result := Merge(tokenBase(), []catalog.Module{ownable(), rival}, Options{})
	assert.False(t, result.Success)
	assert.Empty(t, result.Files)
	assert.False(t, result.Validation.Valid)
	assert.True(t, errors.Is(result.Err(), ErrValidation))
	assert.Empty(t, result.Stats.Fingerprint)
}

func TestMergeLaterModuleWinsFileCollision(t *testing.T) {
	first := catalog.Module{Name: "first", Category: catalog.CategoryIntegration,
		Files: map[string]string{"contracts/Shared.sol.tmpl": "first"}}
	second := catalog.Module{Name: "second", Category: catalog.CategoryIntegration, Requires: []string{"first"},
		Files: map[string]string{"contracts/Shared.sol": "second"}}

	result := Merge(tokenBase(), []catalog.Module{second, first}, Options{})
	require.True(t, result.Success)
	assert.Equal(t, "second", result.Files["contracts/Shared.sol"])
}

func TestMergeIsDeterministic(t *testing.T) {
	mods := []catalog.Module{ownable(), pausable()}
	a := Merge(tokenBase(), mods, Options{ProjectName: "vault"})
	b := Merge(tokenBase(), mods, Options{ProjectName: "vault"})
	c := Merge(tokenBase(), mods, Options{ProjectName: "treasury"})
	assert.Equal(t, a.Files, b.Files)
	assert.Equal(t, a.Stats.Fingerprint, b.Stats.Fingerprint)
	assert.NotEqual(t, a.Stats.Fingerprint, c.Stats.Fingerprint)
}

func TestCleanup(t *testing.T) {
	assert.Equal(t, "a\n\nb", Cleanup("a  \n\n\n\n\nb\t"))
	assert.Equal(t, "a\n\nb", Cleanup("a\n   \n  \n\nb"))
	assert.Equal(t, "a\nb", Cleanup("a\nb"))
}

func TestCombine(t *testing.T) {
	assert.Equal(t, "", Combine(slot.ModeReplace, nil))
	assert.Equal(t, "x\ny", Combine(slot.Mode(""), []string{"x", "y"}))
}

func TestContractName(t *testing.T) {
	cases := map[string]string{
		"my-token project": "MyTokenProject",
		"erc20":            "Erc20",
		"vault_v2":         "VaultV2",
		"2fast token":      "FastToken",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ContractName(in), in)
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "contracts/Token.sol", OutputPath("contracts/Token.sol.tmpl"))
	assert.Equal(t, "README.md", OutputPath("README.md"))
}
