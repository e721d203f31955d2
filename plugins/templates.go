package plugins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/contract-composer/internal/catalog"
)

const (
	// TemplateManifest is the file describing a base template directory.
	TemplateManifest = "template.yaml"
	// TemplateFilesDir holds the base bodies, relative to the template dir.
	TemplateFilesDir = "files"
)

// ParseTemplateYAML decodes and validates a template manifest.
func ParseTemplateYAML(data []byte) (TemplateDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return TemplateDefinition{}, fmt.Errorf("plugin: template manifest is empty")
	}
	var def TemplateDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return TemplateDefinition{}, fmt.Errorf("plugin: decode template: %w", err)
	}
	return def, nil
}

// LoadTemplateDir reads a single template directory: its manifest plus every
// file under files/. The manifest name defaults to the directory name and
// must match it when given.
func LoadTemplateDir(dir string) (catalog.Base, error) {
	dirName := filepath.Base(filepath.Clean(dir))
	data, err := os.ReadFile(filepath.Join(dir, TemplateManifest))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return catalog.Base{}, fmt.Errorf("plugin: template %s: %w", dirName, catalog.ErrNotFound)
		}
		return catalog.Base{}, fmt.Errorf("plugin: read %s: %w", dir, err)
	}
	def, err := ParseTemplateYAML(data)
	if err != nil {
		return catalog.Base{}, fmt.Errorf("plugin: %s: %w", dir, err)
	}
	if strings.TrimSpace(def.Name) == "" {
		def.Name = dirName
	}
	if def.Name != dirName {
		return catalog.Base{}, fmt.Errorf("plugin: %s: template name %q does not match directory %q", dir, def.Name, dirName)
	}
	if err := def.Validate(); err != nil {
		return catalog.Base{}, fmt.Errorf("plugin: %s: %w", dir, err)
	}
	files, err := readTemplateFiles(filepath.Join(dir, TemplateFilesDir))
	if err != nil {
		return catalog.Base{}, err
	}
	if len(files) == 0 {
		return catalog.Base{}, fmt.Errorf("plugin: template %s has no files under %s/", def.Name, TemplateFilesDir)
	}
	return def.Base(files), nil
}

// LoadBaseTemplate loads the named template from templatesDir.
func LoadBaseTemplate(templatesDir, name string) (catalog.Base, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return catalog.Base{}, fmt.Errorf("plugin: invalid template name %q", name)
	}
	dir := filepath.Join(templatesDir, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return catalog.Base{}, fmt.Errorf("plugin: template %s: %w", name, catalog.ErrNotFound)
	}
	return LoadTemplateDir(dir)
}

// LoadAllTemplates loads every template directory under templatesDir, sorted
// by name. A missing directory yields no templates.
func LoadAllTemplates(ctx context.Context, templatesDir string) ([]catalog.Base, error) {
	entries, err := os.ReadDir(templatesDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", templatesDir, err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			dirs = append(dirs, filepath.Join(templatesDir, entry.Name()))
		}
	}
	bases := make([]catalog.Base, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			base, err := LoadTemplateDir(dir)
			if err != nil {
				return err
			}
			bases[i] = base
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i].Name < bases[j].Name })
	return bases, nil
}

func readTemplateFiles(root string) (map[string]string, error) {
	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("plugin: read template files %s: %w", root, err)
	}
	return files, nil
}
