package plugins

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/contract-composer/internal/catalog"
)

// LoadAllModules loads every module definition under modulesDir. Two files
// declaring the same module name are rejected.
func LoadAllModules(ctx context.Context, modulesDir string) ([]catalog.Module, error) {
	defs, err := LoadDefinitionDir(ctx, modulesDir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]string, len(defs))
	mods := make([]catalog.Module, 0, len(defs))
	for _, file := range defs {
		name := file.Definition.Name
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("plugin: duplicate module %s (%s and %s)", name, existing, file.Path)
		}
		seen[name] = file.Path
		mods = append(mods, file.Definition.Module())
	}
	return mods, nil
}

// LoadModule loads a single module by name from modulesDir.
func LoadModule(ctx context.Context, modulesDir, name string) (catalog.Module, error) {
	mods, err := LoadAllModules(ctx, modulesDir)
	if err != nil {
		return catalog.Module{}, err
	}
	for _, mod := range mods {
		if mod.Name == name {
			return mod, nil
		}
	}
	return catalog.Module{}, fmt.Errorf("plugin: module %s: %w", name, catalog.ErrNotFound)
}

// LoadCatalog loads templates and modules concurrently and registers them in
// a fresh catalog.
func LoadCatalog(ctx context.Context, templatesDir, modulesDir string) (*catalog.Catalog, error) {
	var (
		bases []catalog.Base
		mods  []catalog.Module
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bases, err = LoadAllTemplates(gctx, templatesDir)
		return err
	})
	g.Go(func() error {
		var err error
		mods, err = LoadAllModules(gctx, modulesDir)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat := catalog.New()
	for _, base := range bases {
		if err := cat.AddBase(base); err != nil {
			return nil, fmt.Errorf("plugin: %w", err)
		}
	}
	for _, mod := range mods {
		if err := cat.AddModule(mod); err != nil {
			return nil, fmt.Errorf("plugin: %w", err)
		}
	}
	return cat, nil
}
