package main

import (
	"errors"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kingrea/contract-composer/internal/composer"
	"github.com/kingrea/contract-composer/internal/merge"
	"github.com/kingrea/contract-composer/internal/output"
)

func newMergeCommand(opts *rootOptions) *cobra.Command {
	sel := &selectionFlags{}
	var (
		outDir     string
		dryRun     bool
		printFiles bool
		color      bool
	)
	cmd := &cobra.Command{
		Use:   "merge [modules...]",
		Short: "Merge the selection and write the project files",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, log, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Close()

			out := newPrinter(cmd.OutOrStdout())
			req := svc.Normalize(sel.request(args))
			dir := outDir
			if dir == "" {
				dir = svc.Config().OutputDir(req.Project)
			}
			var result merge.Result
			if dryRun {
				result, err = svc.Merge(req)
			} else {
				result, _, err = svc.Write(req, dir)
			}
			if errors.Is(err, merge.ErrValidation) {
				out.validation(result.Validation)
				return errInvalid
			}
			if err != nil {
				return err
			}
			if len(result.Validation.Warnings) > 0 {
				out.validation(result.Validation)
			}

			paths := make([]string, 0, len(result.Files))
			var total uint64
			for path, content := range result.Files {
				paths = append(paths, path)
				total += uint64(len(content))
			}
			sort.Strings(paths)
			if printFiles {
				for _, path := range paths {
					if err := out.file(path, result.Files[path], color); err != nil {
						return err
					}
				}
			}

			out.printf("%s %s with %v\n", out.ok.Render("Merged"), result.Stats.Base, result.Stats.Modules)
			for _, path := range paths {
				out.printf("  %s\n", path)
			}
			out.printf("%d file(s), %s, fingerprint %s\n", len(paths), humanize.Bytes(total), shortDigest(result.Stats.Fingerprint))
			if dryRun {
				out.printf("%s\n", out.dim.Render("dry run: nothing written"))
				return nil
			}
			out.printf("Written to %s\n", dir)
			return nil
		},
	}
	addSelectionFlags(cmd, sel)
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (defaults to <output.dir>/<project-slug>)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "merge in memory without writing files")
	cmd.Flags().BoolVar(&printFiles, "print", false, "print merged file contents")
	cmd.Flags().BoolVar(&color, "color", false, "syntax-highlight printed files")
	return cmd
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Report merged files that were modified or deleted since the merge",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, log, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Close()

			var dir string
			if len(args) == 1 {
				dir = args[0]
			} else {
				dir = svc.Config().OutputDir(svc.Normalize(composer.Request{Project: name}).Project)
			}
			manifest, results, err := svc.Check(dir)
			if err != nil {
				return err
			}
			out := newPrinter(cmd.OutOrStdout())
			out.printf("%s %s (%s, %s)\n", out.title.Render("Checking"), dir, manifest.Base, humanize.Time(manifest.GeneratedAt))
			drift := 0
			for _, res := range results {
				switch res.State {
				case output.StateReady:
					out.printf("  %s %s\n", out.ok.Render("ok      "), res.Path)
				case output.StateMissing:
					drift++
					out.printf("  %s %s\n", out.bad.Render("missing "), res.Path)
				default:
					drift++
					out.printf("  %s %s\n", out.warn.Render("modified"), res.Path)
				}
			}
			if drift > 0 {
				out.printf("%d of %d file(s) drifted\n", drift, len(results))
				return errors.New("output has drifted from its manifest")
			}
			out.printf("All %d file(s) match the manifest\n", len(results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "project name whose default output directory is checked")
	return cmd
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
