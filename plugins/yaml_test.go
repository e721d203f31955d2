package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDefinition = `name: custom-hooks
version: 1.0.0
category: integration
requires_slots: [FUNCTIONS]
injections:
  - slot: FUNCTIONS
    mode: Append
    order: 0
    content: |
      function hook() external {}
`

func TestParseModuleYAML(t *testing.T) {
	def, err := ParseModuleYAML([]byte(sampleDefinition))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Name != "custom-hooks" || def.Category != "integration" {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if len(def.Injections) != 1 || def.Injections[0].Mode != "append" {
		t.Fatalf("expected normalized injection mode, got %+v", def.Injections)
	}
}

func TestParseModuleYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{name: "empty", data: "", msg: "empty"},
		{name: "unknown key", data: "name: x\ncategory: admin\ncolour: red\n", msg: "colour"},
		{name: "unknown category", data: "name: x\ncategory: misc\n", msg: "unknown category"},
		{name: "bad slot", data: "name: x\ncategory: admin\nrequires_slots: [lower]\n", msg: "not a valid slot name"},
		{name: "bad mode", data: "name: x\ncategory: admin\ninjections:\n  - slot: A\n    content: x\n    order: 1\n    mode: merge\n", msg: "mode must be one of"},
		{name: "missing order", data: "name: x\ncategory: admin\ninjections:\n  - slot: A\n    content: x\n", msg: "injections[0].order is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseModuleYAML([]byte(tc.data)); err == nil || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected error containing %q, got %v", tc.msg, err)
			}
		})
	}
}

func TestParseModuleJSONAcceptsComments(t *testing.T) {
	data := `{
  // trailing commas and comments are fine
  "name": "events",
  "category": "events",
  "provides": {"events": ["Minted",]},
}`
	def, err := ParseModuleJSON([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := def.Module().Provides; len(got) != 1 || got[0].Name != "Minted" {
		t.Fatalf("unexpected provides: %+v", got)
	}
}

func TestLoadDefinitionDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "hooks.yaml")
	if err := os.WriteFile(path, []byte(sampleDefinition), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("write readme: %v", err)
	}
	defs, err := LoadDefinitionDir(context.Background(), root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0].Path != path {
		t.Fatalf("expected path %s, got %s", path, defs[0].Path)
	}
}

func TestLoadDefinitionDirMissing(t *testing.T) {
	defs, err := LoadDefinitionDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if defs != nil {
		t.Fatalf("expected nil slice for missing dir, got %v", defs)
	}
}
