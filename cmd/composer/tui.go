package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/contract-composer/internal/tui"
)

func newTUICommand(opts *rootOptions) *cobra.Command {
	sel := &selectionFlags{}
	cmd := &cobra.Command{
		Use:   "tui [modules...]",
		Short: "Pick modules interactively with live validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, log, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Close()

			// tea.NewProgram takes over the terminal until the user quits.
			p := tea.NewProgram(
				tui.NewApp(svc, sel.request(args)),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run tui: %w", err)
			}
			return nil
		},
	}
	addSelectionFlags(cmd, sel)
	return cmd
}
