package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// DefinitionFile pairs a parsed module definition with its on-disk source.
type DefinitionFile struct {
	Definition ModuleDefinition
	Path       string
}

// ParseModuleYAML decodes and validates a single module definition. Unknown
// keys are rejected so typos in a definition surface immediately.
func ParseModuleYAML(data []byte) (ModuleDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ModuleDefinition{}, fmt.Errorf("plugin: definition payload is empty")
	}
	var def ModuleDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return ModuleDefinition{}, fmt.Errorf("plugin: decode definition: %w", err)
	}
	return finish(def)
}

// ParseModuleJSON decodes a JSON definition. Comments and trailing commas
// are accepted.
func ParseModuleJSON(data []byte) (ModuleDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ModuleDefinition{}, fmt.Errorf("plugin: definition payload is empty")
	}
	var def ModuleDefinition
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return ModuleDefinition{}, fmt.Errorf("plugin: decode definition: %w", err)
	}
	return finish(def)
}

func finish(def ModuleDefinition) (ModuleDefinition, error) {
	if err := def.Validate(); err != nil {
		return ModuleDefinition{}, fmt.Errorf("plugin: %w", err)
	}
	return def.Normalized(), nil
}

// LoadDefinitionFile reads one module file. Go files may declare several
// modules, so a slice is returned.
func LoadDefinitionFile(path string) ([]DefinitionFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("plugin: %s is a directory", path)
	}
	if isGoFile(path) {
		return loadGoDefinitionFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	var def ModuleDefinition
	if isJSONFile(path) {
		def, err = ParseModuleJSON(data)
	} else {
		def, err = ParseModuleYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return []DefinitionFile{{Definition: def, Path: filepath.Clean(path)}}, nil
}

// LoadDefinitionDir parses every definition file directly under dir.
// Missing directories are treated as "no modules".
func LoadDefinitionDir(ctx context.Context, dir string) ([]DefinitionFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isDefinitionFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(trimmed, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, nil
	}

	parsed := make([][]DefinitionFile, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defs, err := LoadDefinitionFile(path)
			if err != nil {
				return err
			}
			parsed[i] = defs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var defs []DefinitionFile
	for _, batch := range parsed {
		defs = append(defs, batch...)
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
	return defs, nil
}

func isDefinitionFile(name string) bool {
	return isYAMLFile(name) || isJSONFile(name) || isGoFile(name)
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func isJSONFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".jsonc")
}

func isGoFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".go")
}
