package main

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kingrea/contract-composer/internal/logbook"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent validate, preview, merge and check runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			book, err := logbook.New(cfg.JournalPath())
			if err != nil {
				return err
			}
			entries, total := book.Tail(limit)
			out := newPrinter(cmd.OutOrStdout())
			if total == 0 {
				out.printf("%s\n", out.dim.Render("no runs recorded yet"))
				return nil
			}
			out.printf("%s\n", out.title.Render("Showing "+humanize.Comma(int64(len(entries)))+" of "+humanize.Comma(int64(total))+" run(s)"))
			for _, entry := range entries {
				out.printf("%s\n", formatEntry(out, entry))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of entries to show")
	return cmd
}

func formatEntry(out *printer, entry logbook.Entry) string {
	status := out.ok.Render("ok  ")
	if !entry.Valid {
		status = out.bad.Render("fail")
	}
	parts := []string{
		out.dim.Render(humanize.Time(entry.Time)),
		string(entry.Kind),
		status,
		entry.Base,
	}
	if len(entry.Modules) > 0 {
		parts = append(parts, "+"+strings.Join(entry.Modules, ","))
	}
	if entry.Errors > 0 {
		parts = append(parts, humanize.Comma(int64(entry.Errors))+" error(s)")
	}
	if entry.Warnings > 0 {
		parts = append(parts, humanize.Comma(int64(entry.Warnings))+" warning(s)")
	}
	if entry.Fingerprint != "" {
		parts = append(parts, shortDigest(entry.Fingerprint))
	}
	if entry.Output != "" {
		parts = append(parts, "→ "+entry.Output)
	}
	return strings.Join(parts, "  ")
}
