package main

import (
	"github.com/spf13/cobra"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	sel := &selectionFlags{}
	cmd := &cobra.Command{
		Use:   "validate [modules...]",
		Short: "Check a base and module selection without merging",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, log, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Close()

			result, err := svc.Validate(sel.request(args))
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).validation(result)
			if !result.Valid {
				return errInvalid
			}
			return nil
		},
	}
	addSelectionFlags(cmd, sel)
	return cmd
}

func newPreviewCommand(opts *rootOptions) *cobra.Command {
	sel := &selectionFlags{}
	var color bool
	cmd := &cobra.Command{
		Use:   "preview [modules...]",
		Short: "Summarize what a merge would add, slot by slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, log, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Close()

			text, err := svc.Preview(sel.request(args))
			if err != nil {
				return err
			}
			out := newPrinter(cmd.OutOrStdout())
			if color {
				return out.highlight("preview", "diff", text)
			}
			out.printf("%s", text)
			return nil
		},
	}
	addSelectionFlags(cmd, sel)
	cmd.Flags().BoolVar(&color, "color", false, "syntax-highlight the preview")
	return cmd
}
