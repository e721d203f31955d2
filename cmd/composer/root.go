package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/contract-composer/internal/composer"
	"github.com/kingrea/contract-composer/internal/config"
	"github.com/kingrea/contract-composer/internal/logging"
)

// errInvalid makes the process exit non-zero after a report was printed.
var errInvalid = errors.New("selection is invalid")

type rootOptions struct {
	projectDir string
	verbose    bool
}

// selectionFlags are shared by every command that composes something.
type selectionFlags struct {
	name    string
	base    string
	modules []string
	params  keyValueFlag
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "composer",
		Short:         "Compose smart-contract projects from a base template and feature modules",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.projectDir, "project", "C", "", "project directory (defaults to cwd)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "mirror log entries to stderr")

	root.AddCommand(
		newInitCommand(opts),
		newListCommand(opts),
		newValidateCommand(opts),
		newPreviewCommand(opts),
		newMergeCommand(opts),
		newCheckCommand(opts),
		newWatchCommand(opts),
		newHistoryCommand(opts),
		newTUICommand(opts),
	)
	return root
}

func addSelectionFlags(cmd *cobra.Command, sel *selectionFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&sel.name, "name", "n", "", "project name used for {{PROJECT_NAME}} and {{CONTRACT_NAME}}")
	flags.StringVarP(&sel.base, "base", "b", "", "base template (defaults to the saved selection)")
	flags.StringSliceVarP(&sel.modules, "module", "m", nil, "module to include (repeatable, or comma separated)")
	flags.VarP(&sel.params, "param", "p", "type parameter override KEY=VALUE (repeatable)")
}

// request merges flags and positional module names.
func (sel *selectionFlags) request(args []string) composer.Request {
	modules := append([]string(nil), sel.modules...)
	for _, arg := range args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			modules = append(modules, trimmed)
		}
	}
	return composer.Request{
		Project: sel.name,
		Base:    sel.base,
		Modules: modules,
		Params:  sel.params.Map(),
	}
}

func (o *rootOptions) resolveProjectDir() (string, error) {
	project := o.projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
	}
	abs, err := filepath.Abs(project)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	return abs, nil
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	dir, err := o.resolveProjectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// open loads config, logger and catalog. The caller closes the logger.
func (o *rootOptions) open(ctx context.Context) (*composer.Service, *logging.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg, o.verbose)
	if err != nil {
		return nil, nil, err
	}
	svc, err := composer.Open(ctx, cfg, log)
	if err != nil {
		_ = log.Close()
		return nil, nil, err
	}
	return svc, log, nil
}
