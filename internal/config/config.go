// internal/config/config.go
//
// This package handles configuration and the .composer directory structure.
// Every project that composes contracts gets a .composer/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ComposerDir is the name of the directory we create in each project
	ComposerDir = ".composer"

	// EnvPrefix namespaces environment overrides, e.g. COMPOSER_LIMITS_SOFT.
	EnvPrefix = "COMPOSER"

	defaultSoftLimit = 20000
	defaultHardLimit = 24576
)

const defaultProjectConfigYAML = `# composer project configuration
version: 1

# Where base templates and modules are discovered, relative to the project root.
catalog:
  templates: templates
  modules: modules

# Merged projects are written to <output.dir>/<project-name-slug>.
output:
  dir: build

# Default selection used when validate/merge are run without arguments.
project:
  name: ""
  base: ""
  modules: []
  params: {}

# Estimated bytecode size thresholds in bytes.
limits:
  soft: 20000
  hard: 24576

log:
  level: info
  format: text
`

// CatalogConfig locates the template and module directories.
type CatalogConfig struct {
	Templates string `yaml:"templates"`
	Modules   string `yaml:"modules"`
}

// OutputConfig controls where merge results are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Selection is the saved default base and module list.
type Selection struct {
	Name    string            `yaml:"name"`
	Base    string            `yaml:"base"`
	Modules []string          `yaml:"modules"`
	Params  map[string]string `yaml:"params"`
}

// LimitsConfig mirrors the validation size thresholds.
type LimitsConfig struct {
	Soft int `yaml:"soft"`
	Hard int `yaml:"hard"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProjectConfig models .composer/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	Catalog CatalogConfig `yaml:"catalog"`
	Output  OutputConfig  `yaml:"output"`
	Project Selection     `yaml:"project"`
	Limits  LimitsConfig  `yaml:"limits"`
	Log     LogConfig     `yaml:"log"`
}

// Config holds the runtime configuration.
type Config struct {
	// ProjectDir is the directory composer was run from
	ProjectDir string

	// ComposerProjectDir is ProjectDir/.composer
	ComposerProjectDir string

	Project ProjectConfig
}

// InitDir creates the .composer directory structure in the given project
// directory and writes a default config.yaml if none exists.
//
// Structure created:
// .composer/
// ├── config.yaml
// ├── logs/     <- composer.log
// └── state/    <- history.jsonl
func InitDir(projectDir string) error {
	composerDir := filepath.Join(projectDir, ComposerDir)
	dirs := []string{
		filepath.Join(composerDir, "logs"),
		filepath.Join(composerDir, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(composerDir, "config.yaml"))
}

// Load reads .composer/config.yaml (if present) layered over the defaults,
// then applies COMPOSER_* environment overrides.
func Load(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", projectDir, err)
	}
	cfg := &Config{
		ProjectDir:         abs,
		ComposerProjectDir: filepath.Join(abs, ComposerDir),
	}

	v := newViper()
	path := cfg.ProjectConfigPath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	parsed := fromViper(v)
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Project = parsed
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	defaults := defaultProjectConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("catalog.templates", defaults.Catalog.Templates)
	v.SetDefault("catalog.modules", defaults.Catalog.Modules)
	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("project.name", "")
	v.SetDefault("project.base", "")
	v.SetDefault("project.modules", []string{})
	v.SetDefault("project.params", map[string]string{})
	v.SetDefault("limits.soft", defaults.Limits.Soft)
	v.SetDefault("limits.hard", defaults.Limits.Hard)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) ProjectConfig {
	return ProjectConfig{
		Version: v.GetInt("version"),
		Catalog: CatalogConfig{
			Templates: v.GetString("catalog.templates"),
			Modules:   v.GetString("catalog.modules"),
		},
		Output: OutputConfig{Dir: v.GetString("output.dir")},
		Project: Selection{
			Name:    v.GetString("project.name"),
			Base:    v.GetString("project.base"),
			Modules: v.GetStringSlice("project.modules"),
			Params:  v.GetStringMapString("project.params"),
		},
		Limits: LimitsConfig{
			Soft: v.GetInt("limits.soft"),
			Hard: v.GetInt("limits.hard"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ComposerProjectDir, "logs")
}

// LogPath returns the composer log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "composer.log")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.ComposerProjectDir, "state")
}

// JournalPath returns the JSON-lines run history.
func (c *Config) JournalPath() string {
	return filepath.Join(c.StateDir(), "history.jsonl")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ComposerProjectDir, "config.yaml")
}

// TemplatesDir returns the absolute base template directory.
func (c *Config) TemplatesDir() string {
	return resolvePath(c.ProjectDir, c.Project.Catalog.Templates)
}

// ModulesDir returns the absolute module directory.
func (c *Config) ModulesDir() string {
	return resolvePath(c.ProjectDir, c.Project.Catalog.Modules)
}

// OutputDir returns where a merge of the named project is written.
func (c *Config) OutputDir(projectName string) string {
	root := resolvePath(c.ProjectDir, c.Project.Output.Dir)
	name := slug.Make(projectName)
	if name == "" {
		return root
	}
	return filepath.Join(root, name)
}

// DefaultSelection returns the saved base/module selection.
func (c *Config) DefaultSelection() Selection {
	return c.Project.Project
}

// SetDefaultSelection updates the saved selection and persists it back to
// .composer/config.yaml.
func (c *Config) SetDefaultSelection(sel Selection) error {
	sel.Base = strings.TrimSpace(sel.Base)
	if sel.Base == "" {
		return fmt.Errorf("config: base is required")
	}
	sel.Name = strings.TrimSpace(sel.Name)
	sel.Modules = dedupe(sel.Modules)
	c.Project.Project = sel
	return c.saveProjectConfig()
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Catalog: CatalogConfig{Templates: "templates", Modules: "modules"},
		Output:  OutputConfig{Dir: "build"},
		Limits:  LimitsConfig{Soft: defaultSoftLimit, Hard: defaultHardLimit},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func (pc *ProjectConfig) normalize() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	pc.Catalog.Templates = strings.TrimSpace(pc.Catalog.Templates)
	pc.Catalog.Modules = strings.TrimSpace(pc.Catalog.Modules)
	pc.Output.Dir = strings.TrimSpace(pc.Output.Dir)
	pc.Project.Name = strings.TrimSpace(pc.Project.Name)
	pc.Project.Base = strings.TrimSpace(pc.Project.Base)
	pc.Project.Modules = dedupe(pc.Project.Modules)
	pc.Project.Params = upperKeys(pc.Project.Params)
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
	pc.Log.Format = strings.ToLower(strings.TrimSpace(pc.Log.Format))
	if pc.Limits.Soft <= 0 {
		pc.Limits.Soft = defaultSoftLimit
	}
	if pc.Limits.Hard <= 0 {
		pc.Limits.Hard = defaultHardLimit
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Catalog.Templates == "" {
		return fmt.Errorf("catalog.templates is required")
	}
	if pc.Catalog.Modules == "" {
		return fmt.Errorf("catalog.modules is required")
	}
	if pc.Limits.Soft > pc.Limits.Hard {
		return fmt.Errorf("limits.soft (%d) must not exceed limits.hard (%d)", pc.Limits.Soft, pc.Limits.Hard)
	}
	switch pc.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// upperKeys restores marker casing; viper lowercases map keys.
func upperKeys(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, value := range params {
		out[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return out
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.ComposerProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure composer dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
