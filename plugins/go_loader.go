package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

// ModulesFunc is the function a Go module file must declare. It returns one
// map per module, using the same keys as a YAML definition, and optionally an
// error.
const ModulesFunc = "ModuleDefinitions"

// ErrGoModules marks a Go module file that does not follow the ModulesFunc
// contract.
var ErrGoModules = errors.New("plugin: invalid go module file")

// loadGoDefinitionFile interprets a Go source file with yaegi and decodes each
// module it returns through the YAML schema, so scripted modules get exactly
// the same validation as declarative ones.
func loadGoDefinitionFile(path string) ([]DefinitionFile, error) {
	raw, err := evalModulesFunc(path)
	if err != nil {
		return nil, err
	}
	source := filepath.Clean(path)
	files := make([]DefinitionFile, 0, len(raw))
	for idx, fields := range raw {
		ref := fmt.Sprintf("%s#%d", source, idx+1)
		payload, err := yaml.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("plugin: encode %s: %w", ref, err)
		}
		def, err := ParseModuleYAML(payload)
		if err != nil {
			return nil, fmt.Errorf("plugin: %s: %w", ref, err)
		}
		files = append(files, DefinitionFile{Definition: def, Path: ref})
	}
	return files, nil
}

func evalModulesFunc(path string) ([]map[string]any, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrGoModules, path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	fn, err := i.Eval(ModulesFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s does not declare %s(): %v", ErrGoModules, path, ModulesFunc, err)
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s: %s is not a function", ErrGoModules, path, ModulesFunc)
	}
	if fn.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%w: %s: %s must take no arguments", ErrGoModules, path, ModulesFunc)
	}
	mods, err := moduleMaps(fn.Call(nil))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mods, nil
}

// moduleMaps unpacks the ([]map[string]any[, error]) results of ModulesFunc.
func moduleMaps(results []reflect.Value) ([]map[string]any, error) {
	switch len(results) {
	case 1:
	case 2:
		if errVal := results[1]; errVal.IsValid() && !errVal.IsNil() {
			callErr, ok := errVal.Interface().(error)
			if !ok {
				return nil, fmt.Errorf("%w: second result of %s is not an error", ErrGoModules, ModulesFunc)
			}
			return nil, fmt.Errorf("plugin: %s failed: %w", ModulesFunc, callErr)
		}
	default:
		return nil, fmt.Errorf("%w: %s returns %d values, want 1 or 2", ErrGoModules, ModulesFunc, len(results))
	}

	list := results[0]
	if mods, ok := list.Interface().([]map[string]any); ok {
		return mods, nil
	}
	if list.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: %s returns %s, want []map[string]any", ErrGoModules, ModulesFunc, list.Type())
	}
	mods := make([]map[string]any, list.Len())
	for idx := range mods {
		fields, ok := list.Index(idx).Interface().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: module %d from %s is %T, want map[string]any", ErrGoModules, idx+1, ModulesFunc, list.Index(idx).Interface())
		}
		mods[idx] = fields
	}
	return mods, nil
}
