package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a base or module name is not in the catalog.
var ErrNotFound = errors.New("catalog: not found")

// Catalog holds the loaded base templates and modules. After loading it is
// only read, so one Catalog may back any number of concurrent validate and
// merge calls.
type Catalog struct {
	mu      sync.RWMutex
	bases   map[string]Base
	modules map[string]Module
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		bases:   map[string]Base{},
		modules: map[string]Module{},
	}
}

// AddBase installs a base template. Returns an error if the name exists.
func (c *Catalog) AddBase(base Base) error {
	if base.Name == "" {
		return fmt.Errorf("catalog: base name is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.bases[base.Name]; exists {
		return fmt.Errorf("catalog: base %s already registered", base.Name)
	}
	c.bases[base.Name] = base
	return nil
}

// AddModule installs a module. Returns an error if the name exists or the
// module is malformed.
func (c *Catalog) AddModule(mod Module) error {
	if err := mod.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.modules[mod.Name]; exists {
		return fmt.Errorf("catalog: module %s already registered", mod.Name)
	}
	c.modules[mod.Name] = mod
	return nil
}

// MustAddModule panics if registration fails.
func (c *Catalog) MustAddModule(mod Module) {
	if err := c.AddModule(mod); err != nil {
		panic(err)
	}
}

// Base returns the named base template.
func (c *Catalog) Base(name string) (Base, error) {
	c.mu.RLock()
	base, ok := c.bases[name]
	c.mu.RUnlock()
	if !ok {
		return Base{}, fmt.Errorf("base %s: %w", name, ErrNotFound)
	}
	return base, nil
}

// Module returns the named module.
func (c *Catalog) Module(name string) (Module, error) {
	c.mu.RLock()
	mod, ok := c.modules[name]
	c.mu.RUnlock()
	if !ok {
		return Module{}, fmt.Errorf("module %s: %w", name, ErrNotFound)
	}
	return mod, nil
}

// Modules returns a snapshot of every module keyed by name.
func (c *Catalog) Modules() map[string]Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Module, len(c.modules))
	for name, mod := range c.modules {
		out[name] = mod
	}
	return out
}

// Select resolves names to modules, dropping duplicates and keeping the
// first-seen order. Every unknown name is reported in the returned error.
func (c *Catalog) Select(names ...string) ([]Module, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{}, len(names))
	out := make([]Module, 0, len(names))
	var missing []error
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		mod, ok := c.modules[name]
		if !ok {
			missing = append(missing, fmt.Errorf("module %s: %w", name, ErrNotFound))
			continue
		}
		out = append(out, mod)
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	return out, nil
}

// Enhancing returns modules whose enhances list names target, sorted by name.
func (c *Catalog) Enhancing(target string) []Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Module
	for _, mod := range c.modules {
		if containsString(mod.Enhances, target) {
			out = append(out, mod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BaseNames returns sorted base template names.
func (c *Catalog) BaseNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.bases))
	for name := range c.bases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleNames returns sorted module names.
func (c *Catalog) ModuleNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByCategory returns modules in the category sorted by name.
func (c *Catalog) ByCategory(category Category) []Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Module
	for _, mod := range c.modules {
		if mod.Category == category {
			out = append(out, mod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
