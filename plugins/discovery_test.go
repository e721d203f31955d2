package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/contract-composer/internal/catalog"
)

var (
	fixtureTemplates = filepath.Join("testdata", "catalog", "templates")
	fixtureModules   = filepath.Join("testdata", "catalog", "modules")
)

func TestLoadCatalogFixture(t *testing.T) {
	cat, err := LoadCatalog(context.Background(), fixtureTemplates, fixtureModules)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if got := cat.BaseNames(); len(got) != 1 || got[0] != "erc20" {
		t.Fatalf("unexpected bases: %v", got)
	}
	want := []string{"burnable", "capped", "ownable", "pausable", "roles"}
	got := cat.ModuleNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected modules %v, got %v", want, got)
	}
	capped, err := cat.Module("capped")
	if err != nil {
		t.Fatalf("capped: %v", err)
	}
	if len(capped.Injections) != 3 || capped.Injections[1].Order != 5 {
		t.Fatalf("unexpected capped injections: %+v", capped.Injections)
	}
}

func TestLoadBaseTemplate(t *testing.T) {
	base, err := LoadBaseTemplate(fixtureTemplates, "erc20")
	if err != nil {
		t.Fatalf("load base: %v", err)
	}
	if base.Version != "1.2.0" {
		t.Fatalf("unexpected version %q", base.Version)
	}
	paths := base.FilePaths()
	if len(paths) != 2 || paths[0] != "contracts/Token.sol.tmpl" || paths[1] != "test/Token.t.sol.tmpl" {
		t.Fatalf("unexpected files: %v", paths)
	}
	def, ok := base.Slot("BEFORE_UPDATE")
	if !ok || def.Mode != "prepend" {
		t.Fatalf("expected BEFORE_UPDATE prepend slot, got %+v", def)
	}
	if param := base.TypeParams["AMOUNT_TYPE"]; param.Default != "uint256" || !param.Allows("uint128") {
		t.Fatalf("unexpected type param: %+v", param)
	}
	if !base.HasSlot("IMPORTS") {
		t.Fatalf("expected IMPORTS marker to be discovered")
	}
}

func TestLoadBaseTemplateNotFound(t *testing.T) {
	_, err := LoadBaseTemplate(fixtureTemplates, "erc721")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := LoadBaseTemplate(fixtureTemplates, "../modules"); err == nil {
		t.Fatalf("expected path-like names to be rejected")
	}
}

func TestLoadTemplateDirNameMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "erc20")
	writeFile(t, filepath.Join(dir, TemplateManifest), "name: erc721\n")
	writeFile(t, filepath.Join(dir, TemplateFilesDir, "A.sol"), "contract A {}\n")
	if _, err := LoadTemplateDir(dir); err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("expected name mismatch error, got %v", err)
	}
}

func TestLoadTemplateDirRequiresFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "empty")
	writeFile(t, filepath.Join(dir, TemplateManifest), "version: 0.1.0\n")
	if _, err := LoadTemplateDir(dir); err == nil || !strings.Contains(err.Error(), "no files") {
		t.Fatalf("expected missing files error, got %v", err)
	}
}

func TestLoadModule(t *testing.T) {
	mod, err := LoadModule(context.Background(), fixtureModules, "burnable")
	if err != nil {
		t.Fatalf("load module: %v", err)
	}
	if mod.Category != catalog.CategoryOperationSet || len(mod.Inheritance) != 1 {
		t.Fatalf("unexpected burnable module: %+v", mod)
	}
	if _, err := LoadModule(context.Background(), fixtureModules, "mintable"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadAllModulesRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "name: dup\ncategory: admin\n")
	writeFile(t, filepath.Join(dir, "b.json"), `{"name": "dup", "category": "admin"}`)
	if _, err := LoadAllModules(context.Background(), dir); err == nil || !strings.Contains(err.Error(), "duplicate module dup") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
