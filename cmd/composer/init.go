package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/contract-composer/internal/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	sel := &selectionFlags{}
	cmd := &cobra.Command{
		Use:   "init [modules...]",
		Short: "Create the .composer directory and optionally save a default selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.resolveProjectDir()
			if err != nil {
				return err
			}
			if err := config.InitDir(dir); err != nil {
				return fmt.Errorf("init %s: %w", config.ComposerDir, err)
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := newPrinter(cmd.OutOrStdout())
			out.printf("Initialized %s\n", cfg.ComposerProjectDir)

			req := sel.request(args)
			if req.Base == "" {
				if len(req.Modules) > 0 {
					return fmt.Errorf("--base is required when saving modules")
				}
				return nil
			}
			saved := config.Selection{Name: req.Project, Base: req.Base, Modules: req.Modules, Params: req.Params}
			if err := cfg.SetDefaultSelection(saved); err != nil {
				return err
			}
			out.printf("Saved selection: %s", req.Base)
			if len(req.Modules) > 0 {
				out.printf(" + %v", req.Modules)
			}
			out.printf("\n")
			return nil
		},
	}
	addSelectionFlags(cmd, sel)
	return cmd
}
